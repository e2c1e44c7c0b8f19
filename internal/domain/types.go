package domain

import (
	"time"
)

// OrderStatus enumerates the lifecycle states an order moves through.
type OrderStatus string

const (
	// OrderStatusNew is the state every order is created in.
	OrderStatusNew OrderStatus = "NEW"
	// OrderStatusProcessing indicates head office accepted the order and is preparing it.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped indicates the order left the distribution centre.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered indicates the store confirmed receipt.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the order was withdrawn; terminal.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every valid order status value.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether the status is one of the known enum values.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus tracks settlement independently of fulfilment progress.
type PaymentStatus string

const (
	// PaymentStatusPending indicates no settlement has been recorded yet.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid indicates the order has been settled.
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusFailed indicates a settlement attempt failed.
	PaymentStatusFailed PaymentStatus = "FAILED"
	// PaymentStatusRefunded indicates a completed settlement was reversed.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentStatuses lists every valid payment status value.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// Valid reports whether the payment status is a known enum value.
func (s PaymentStatus) Valid() bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderItemStatus tracks fulfilment at the line level.
type OrderItemStatus string

const (
	// OrderItemStatusPending is the initial state for every line.
	OrderItemStatusPending OrderItemStatus = "PENDING"
	// OrderItemStatusAllocated indicates warehouse stock was set aside for the line.
	OrderItemStatusAllocated OrderItemStatus = "ALLOCATED"
	// OrderItemStatusShipped indicates the line left the distribution centre.
	OrderItemStatusShipped OrderItemStatus = "SHIPPED"
	// OrderItemStatusCancelled indicates the line was withdrawn with its order.
	OrderItemStatusCancelled OrderItemStatus = "CANCELLED"
)

// Store identifies a physical franchise location. Stores are managed by the
// catalog subsystem; the order core only reads them.
type Store struct {
	ID          string
	FranchiseID string
	Name        string
	Active      bool
}

// Product is a sellable catalog item. The order core reads it for existence
// checks; prices are captured into order lines at creation time and never
// recomputed from the live catalog afterwards.
type Product struct {
	ID        string
	SKU       string
	Name      string
	Price     int64
	TaxRate   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the portal account profile as exposed by the identity subsystem.
// StoreID links the account to its franchise store; StoreName is a legacy
// fallback linkage resolved by exact name match.
type User struct {
	ID        string
	Name      string
	Role      string
	StoreID   *string
	StoreName *string
}

// Order is the aggregate root for a supply order. Monetary fields are whole
// won; TotalAmount == Subtotal + VatAmount - DiscountAmount at creation and
// is never silently recomputed.
type Order struct {
	ID              string
	OrderNumber     string
	StoreID         string
	FranchiseID     string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	TotalAmount     int64
	VatAmount       int64
	DiscountAmount  int64
	ShippingAddress string
	ShippingMethod  *string
	DeliveryDate    *time.Time
	PlacedAt        time.Time
	ProcessedAt     *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	Version         int64
	Items           []OrderItem

	// StoreName is populated on reads joined with the store row.
	StoreName string
}

// OrderItem belongs to exactly one order. UnitPrice is the price captured at
// order time; SKU and ProductName are catalog snapshot fields joined on read.
type OrderItem struct {
	ID          int64
	OrderID     string
	ProductID   string
	SKU         string
	ProductName string
	Quantity    int
	UnitPrice   int64
	Status      OrderItemStatus
}

// Subtotal returns the sum of line totals for the order's items.
func (o Order) Subtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}
