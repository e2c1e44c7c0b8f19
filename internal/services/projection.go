package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/platform/requestctx"
)

const (
	displayDateForm     = "2006-01-02"
	displayDateTimeForm = "2006-01-02 15:04"
)

// statusPresentation pairs the customer-facing label with a severity class
// used by portal front ends for badge colouring.
type statusPresentation struct {
	Label string
	Class string
}

var orderStatusPresentations = map[domain.OrderStatus]statusPresentation{
	domain.OrderStatusNew:        {Label: "Received", Class: "info"},
	domain.OrderStatusProcessing: {Label: "Processing", Class: "warning"},
	domain.OrderStatusShipped:    {Label: "Shipped", Class: "info"},
	domain.OrderStatusDelivered:  {Label: "Delivered", Class: "success"},
	domain.OrderStatusCancelled:  {Label: "Cancelled", Class: "danger"},
}

var paymentStatusPresentations = map[domain.PaymentStatus]statusPresentation{
	domain.PaymentStatusPending:  {Label: "Payment pending", Class: "warning"},
	domain.PaymentStatusPaid:     {Label: "Paid", Class: "success"},
	domain.PaymentStatusFailed:   {Label: "Payment failed", Class: "danger"},
	domain.PaymentStatusRefunded: {Label: "Refunded", Class: "info"},
}

// OrderItemView is the display shape of a single order line.
type OrderItemView struct {
	ProductID   string `json:"productId"`
	SKU         string `json:"sku,omitempty"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	LineTotal   int64  `json:"lineTotal"`
	Status      string `json:"status"`
}

// OrderView is the read-model shape shared by the list and detail endpoints.
// Monetary fields are whole won; formatted dates use the portal's display forms.
type OrderView struct {
	ID                 string          `json:"id"`
	OrderNumber        string          `json:"orderNumber"`
	StoreID            string          `json:"storeId"`
	StoreName          string          `json:"storeName,omitempty"`
	FranchiseID        string          `json:"franchiseId,omitempty"`
	Status             string          `json:"status"`
	StatusLabel        string          `json:"statusLabel"`
	StatusClass        string          `json:"statusClass"`
	PaymentStatus      string          `json:"paymentStatus"`
	PaymentLabel       string          `json:"paymentLabel"`
	PaymentClass       string          `json:"paymentClass"`
	Subtotal           int64           `json:"subtotal"`
	VatAmount          int64           `json:"vatAmount"`
	DiscountAmount     int64           `json:"discountAmount"`
	TotalAmount        int64           `json:"totalAmount"`
	ItemCount          int             `json:"itemCount"`
	ShippingAddress    string          `json:"shippingAddress,omitempty"`
	ShippingMethod     string          `json:"shippingMethod,omitempty"`
	DeliveryDate       string          `json:"deliveryDate,omitempty"`
	PlacedAt           string          `json:"placedAt"`
	ProcessedAt        string          `json:"processedAt,omitempty"`
	ShippedAt          string          `json:"shippedAt,omitempty"`
	DeliveredAt        string          `json:"deliveredAt,omitempty"`
	CancelledAt        string          `json:"cancelledAt,omitempty"`
	Version            int64           `json:"version"`
	Items              []OrderItemView `json:"items"`
}

// OrderProjector flattens domain orders into display views. The VAT policy is
// only used to cross-check the stored totals; stored amounts always win.
type OrderProjector struct {
	vat VatPolicy
}

// NewOrderProjector constructs a projector. A nil policy disables the
// total cross-check warning.
func NewOrderProjector(vat VatPolicy) *OrderProjector {
	return &OrderProjector{vat: vat}
}

// Project renders one order. When the stored total disagrees with the
// recomputed gross it logs a warning but still serves the stored value.
func (p *OrderProjector) Project(ctx context.Context, order domain.Order) OrderView {
	subtotal := order.Subtotal()

	if p.vat != nil && len(order.Items) > 0 {
		expected := subtotal + p.vat.Assess(subtotal) - order.DiscountAmount
		if expected != order.TotalAmount {
			requestctx.Logger(ctx).Warn("order.total.mismatch",
				zap.String("order_id", order.ID),
				zap.Int64("stored_total", order.TotalAmount),
				zap.Int64("computed_total", expected),
			)
		}
	}

	view := OrderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		StoreID:         order.StoreID,
		StoreName:       order.StoreName,
		FranchiseID:     order.FranchiseID,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		Subtotal:        subtotal,
		VatAmount:       order.VatAmount,
		DiscountAmount:  order.DiscountAmount,
		TotalAmount:     order.TotalAmount,
		ItemCount:       len(order.Items),
		ShippingAddress: order.ShippingAddress,
		DeliveryDate:    formatDate(order.DeliveryDate),
		PlacedAt:        order.PlacedAt.UTC().Format(displayDateTimeForm),
		ProcessedAt:     formatDateTime(order.ProcessedAt),
		ShippedAt:       formatDateTime(order.ShippedAt),
		DeliveredAt:     formatDateTime(order.DeliveredAt),
		CancelledAt:     formatDateTime(order.CancelledAt),
		Version:         order.Version,
		Items:           make([]OrderItemView, 0, len(order.Items)),
	}
	if order.ShippingMethod != nil {
		view.ShippingMethod = *order.ShippingMethod
	}

	if pres, ok := orderStatusPresentations[order.Status]; ok {
		view.StatusLabel = pres.Label
		view.StatusClass = pres.Class
	} else {
		view.StatusLabel = string(order.Status)
		view.StatusClass = "info"
	}
	if pres, ok := paymentStatusPresentations[order.PaymentStatus]; ok {
		view.PaymentLabel = pres.Label
		view.PaymentClass = pres.Class
	} else {
		view.PaymentLabel = string(order.PaymentStatus)
		view.PaymentClass = "info"
	}

	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ProductID:   item.ProductID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.UnitPrice * int64(item.Quantity),
			Status:      string(item.Status),
		})
	}

	return view
}

// ProjectAll renders a slice of orders preserving their order.
func (p *OrderProjector) ProjectAll(ctx context.Context, orders []domain.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, p.Project(ctx, order))
	}
	return views
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(displayDateForm)
}

func formatDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(displayDateTimeForm)
}
