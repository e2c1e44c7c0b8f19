package repositories

import (
	"context"
	"time"

	domain "github.com/franchisehub/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations in a transactional boundary.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderListFilter narrows order list queries. Zero values mean "no filter";
// Limit caps the page size.
type OrderListFilter struct {
	Status      *domain.OrderStatus
	StoreID     string
	FranchiseID string
	Limit       int
}

// OrderUpdate carries the mutable order header fields written by the status
// machine, guarded by the version the caller read.
type OrderUpdate struct {
	Status           domain.OrderStatus
	PaymentStatus    domain.PaymentStatus
	DeliveryDate     *time.Time
	ProcessedAt      *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	ExpectedVersion  int64
	CascadeCancelled bool
}

// OrderRepository persists order headers with their line items and provides
// joined reads for users and administrators.
type OrderRepository interface {
	// Insert writes the order header and every line item. Callers wrap it in
	// the unit of work so the write is atomic.
	Insert(ctx context.Context, order domain.Order) error
	// Update applies the mutable header fields with a version guard; a guard
	// miss surfaces as a conflict. CascadeCancelled additionally forces every
	// line item to CANCELLED.
	Update(ctx context.Context, orderID string, update OrderUpdate) error
	// FindByID loads the order with store fields and line items joined with
	// their product snapshots.
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	// List loads orders matching the filter, newest first, items included.
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// StoreRepository reads franchise stores owned by the catalog subsystem.
type StoreRepository interface {
	FindActiveByID(ctx context.Context, storeID string) (domain.Store, error)
	FindActiveByName(ctx context.Context, name string) (domain.Store, error)
}

// ProductRepository reads catalog products for existence checks at pricing time.
type ProductRepository interface {
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// UserRepository reads portal account profiles and their store linkage.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
}

// CounterRepository produces monotonically increasing sequences for
// human-facing order numbers.
type CounterRepository interface {
	Next(ctx context.Context, name string, step int64) (int64, error)
}
