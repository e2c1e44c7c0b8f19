package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/repositories"
)

const (
	orderIDPrefix      = "ord_"
	orderNumberCounter = "orders"

	maxOrderListLimit = 200
	deliveryDateForm  = "2006-01-02"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located (or is not
	// visible to the caller's store).
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates a disallowed status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates a concurrent writer advanced the order first.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderForbiddenState indicates self-service cancellation of a non-NEW order.
	ErrOrderForbiddenState = errors.New("order: cancellation only allowed while NEW")
	// ErrOrderNoChanges indicates an update carried no recognised or differing fields.
	ErrOrderNoChanges = errors.New("order: no changes requested")
)

// Forward-only lifecycle. CANCELLED is reachable from NEW only; DELIVERED and
// CANCELLED are terminal. Re-setting the current status is a tolerated no-op.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusNew:        {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:  nil,
	domain.OrderStatusCancelled:  nil,
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Counters    repositories.CounterRepository
	Stores      StoreResolver
	Pricer      *Pricer
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
}

type orderService struct {
	orders     repositories.OrderRepository
	products   repositories.ProductRepository
	counters   repositories.CounterRepository
	stores     StoreResolver
	pricer     *Pricer
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Stores == nil {
		return nil, errors.New("order service: store resolver is required")
	}

	pricer := deps.Pricer
	if pricer == nil {
		pricer = NewPricer(nil)
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	return &orderService{
		orders:     deps.Orders,
		products:   deps.Products,
		counters:   deps.Counters,
		stores:     deps.Stores,
		pricer:     pricer,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if len(cmd.Lines) == 0 {
		return domain.Order{}, ErrEmptyOrder
	}

	store, err := s.stores.ResolveStore(ctx, cmd.UserID)
	if err != nil {
		return domain.Order{}, err
	}

	products, err := s.products.FindByIDs(ctx, uniqueProductIDs(cmd.Lines))
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	breakdown, err := s.pricer.PriceOrder(cmd.Lines, products)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	order := domain.Order{
		ID:              s.nextOrderID(),
		StoreID:         store.ID,
		FranchiseID:     store.FranchiseID,
		StoreName:       store.Name,
		Status:          domain.OrderStatusNew,
		PaymentStatus:   domain.PaymentStatusPending,
		TotalAmount:     breakdown.Total,
		VatAmount:       breakdown.Vat,
		DiscountAmount:  0,
		ShippingAddress: strings.TrimSpace(cmd.ShippingAddress),
		PlacedAt:        now,
		Version:         1,
	}
	if cmd.ShippingMethod != nil {
		if method := strings.TrimSpace(*cmd.ShippingMethod); method != "" {
			order.ShippingMethod = &method
		}
	}

	order.Items = make([]domain.OrderItem, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		item := domain.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Status:    domain.OrderItemStatusPending,
		}
		if product, ok := products[line.ProductID]; ok {
			item.SKU = product.SKU
			item.ProductName = product.Name
		}
		order.Items = append(order.Items, item)
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.OrderNumber = number

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	filter := repositories.OrderListFilter{Limit: query.Limit}
	if filter.Limit <= 0 {
		filter.Limit = 0
	} else if filter.Limit > maxOrderListLimit {
		filter.Limit = maxOrderListLimit
	}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := domain.OrderStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, raw)
		}
		filter.Status = &status
	}

	if query.Actor.Admin {
		filter.StoreID = strings.TrimSpace(query.StoreID)
		filter.FranchiseID = strings.TrimSpace(query.FranchiseID)
	} else {
		// Non-admin callers are always scoped to their own store; any
		// store/franchise filter they pass is discarded.
		store, err := s.stores.ResolveStore(ctx, query.Actor.UserID)
		if err != nil {
			return nil, err
		}
		filter.StoreID = store.ID
		filter.FranchiseID = ""
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	if !actor.Admin {
		store, err := s.stores.ResolveStore(ctx, actor.UserID)
		if err != nil {
			return domain.Order{}, err
		}
		if order.StoreID != store.ID {
			return domain.Order{}, fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
		}
	}

	return order, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	changed := false
	cascade := false

	if cmd.Status != nil {
		target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(*cmd.Status)))
		if !target.Valid() {
			return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *cmd.Status)
		}
		statusChanged, err := s.applyStatusTransition(&order, target, now)
		if err != nil {
			return domain.Order{}, err
		}
		if statusChanged {
			changed = true
			cascade = target == domain.OrderStatusCancelled
		}
	}

	if cmd.PaymentStatus != nil {
		target := domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(*cmd.PaymentStatus)))
		if !target.Valid() {
			return domain.Order{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, *cmd.PaymentStatus)
		}
		// Payment state moves independently of fulfilment state.
		if order.PaymentStatus != target {
			order.PaymentStatus = target
			changed = true
		}
	}

	if cmd.DeliveryDate != nil {
		raw := strings.TrimSpace(*cmd.DeliveryDate)
		if raw == "" {
			if order.DeliveryDate != nil {
				order.DeliveryDate = nil
				changed = true
			}
		} else {
			parsed, err := time.Parse(deliveryDateForm, raw)
			if err != nil {
				return domain.Order{}, fmt.Errorf("%w: delivery date must be YYYY-MM-DD", ErrOrderInvalidInput)
			}
			if order.DeliveryDate == nil || !order.DeliveryDate.Equal(parsed) {
				order.DeliveryDate = &parsed
				changed = true
			}
		}
	}

	if !changed {
		return order, ErrOrderNoChanges
	}

	update := repositories.OrderUpdate{
		Status:           order.Status,
		PaymentStatus:    order.PaymentStatus,
		DeliveryDate:     order.DeliveryDate,
		ProcessedAt:      order.ProcessedAt,
		ShippedAt:        order.ShippedAt,
		DeliveredAt:      order.DeliveredAt,
		CancelledAt:      order.CancelledAt,
		ExpectedVersion:  order.Version,
		CascadeCancelled: cascade,
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order.ID, update); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	order.Version++
	if cascade {
		cancelItems(order.Items)
	}
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	store, err := s.stores.ResolveStore(ctx, cmd.UserID)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if order.StoreID != store.ID {
		// Orders of other stores are invisible, not forbidden.
		return domain.Order{}, fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
	}

	if order.Status != domain.OrderStatusNew {
		return domain.Order{}, fmt.Errorf("%w: current status is %s", ErrOrderForbiddenState, order.Status)
	}

	now := s.now()
	if _, err := s.applyStatusTransition(&order, domain.OrderStatusCancelled, now); err != nil {
		return domain.Order{}, err
	}

	update := repositories.OrderUpdate{
		Status:           order.Status,
		PaymentStatus:    order.PaymentStatus,
		DeliveryDate:     order.DeliveryDate,
		ProcessedAt:      order.ProcessedAt,
		ShippedAt:        order.ShippedAt,
		DeliveredAt:      order.DeliveredAt,
		CancelledAt:      order.CancelledAt,
		ExpectedVersion:  order.Version,
		CascadeCancelled: true,
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order.ID, update); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	order.Version++
	cancelItems(order.Items)
	return order, nil
}

// applyStatusTransition mutates the order towards the target status. It
// reports whether anything changed; re-setting the current status is a no-op
// so timestamps are stamped at most once.
func (s *orderService) applyStatusTransition(order *domain.Order, target domain.OrderStatus, now time.Time) (bool, error) {
	current := order.Status
	if current == target {
		return false, nil
	}

	if !canTransition(current, target) {
		return false, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, current, target)
	}

	order.Status = target
	s.stampStatusTimestamp(order, target, now)
	return true, nil
}

// stampStatusTimestamp records the first entry into a lifecycle status.
// Already-set timestamps are never overwritten.
func (s *orderService) stampStatusTimestamp(order *domain.Order, status domain.OrderStatus, now time.Time) {
	switch status {
	case domain.OrderStatusProcessing:
		if order.ProcessedAt == nil {
			order.ProcessedAt = &now
		}
	case domain.OrderStatusShipped:
		if order.ShippedAt == nil {
			order.ShippedAt = &now
		}
	case domain.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	case domain.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderNumberCounter, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SO-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func canTransition(current, target domain.OrderStatus) bool {
	if current == target {
		return true
	}
	return slices.Contains(orderStateTransitions[current], target)
}

func cancelItems(items []domain.OrderItem) {
	for i := range items {
		items[i].Status = domain.OrderItemStatusCancelled
	}
}

func uniqueProductIDs(lines []OrderLineInput) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			continue
		}
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
