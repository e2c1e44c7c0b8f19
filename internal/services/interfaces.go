package services

import (
	"context"

	domain "github.com/franchisehub/api/internal/domain"
)

// Actor identifies the caller for authorisation-sensitive reads and writes.
// Non-admin actors are always scoped to their own resolved store.
type Actor struct {
	UserID string
	Admin  bool
}

// OrderLineInput is a requested order line as submitted by the client. The
// unit price is the client-captured catalog price at order time; the product
// itself is re-verified server side.
type OrderLineInput struct {
	ProductID string
	Quantity  int
	UnitPrice int64
}

// CreateOrderCommand carries everything needed to place a new order.
type CreateOrderCommand struct {
	UserID          string
	Lines           []OrderLineInput
	ShippingAddress string
	ShippingMethod  *string
}

// UpdateOrderCommand mutates order status, payment status, or delivery date.
// Raw string fields are validated against the enums before any write; a nil
// field is left untouched, and an empty DeliveryDate clears the stored date.
type UpdateOrderCommand struct {
	OrderID       string
	ActorID       string
	Status        *string
	PaymentStatus *string
	DeliveryDate  *string
}

// CancelOrderCommand withdraws an order on behalf of the owning store user.
type CancelOrderCommand struct {
	OrderID string
	UserID  string
}

// ListOrdersQuery filters the order listing. Non-admin actors are implicitly
// restricted to their resolved store regardless of the filters they pass.
type ListOrdersQuery struct {
	Actor       Actor
	Status      string
	StoreID     string
	FranchiseID string
	Limit       int
}

// OrderService drives the order lifecycle: creation with pricing, scoped
// reads, administrator status transitions, and store self-service cancellation.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	ListOrders(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (domain.Order, error)
	UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
}

// StoreResolver determines the exactly-one active store a user may order for.
type StoreResolver interface {
	ResolveStore(ctx context.Context, userID string) (domain.Store, error)
}
