package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/platform/database"
	"github.com/franchisehub/api/internal/repositories"
)

const defaultOrderListLimit = 50

// OrderRepository persists orders and line items in MySQL.
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository constructs an OrderRepository over the shared handle.
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type orderRow struct {
	ID              string             `db:"id"`
	OrderNumber     string             `db:"order_number"`
	StoreID         string             `db:"store_id"`
	FranchiseID     string             `db:"franchise_id"`
	Status          string             `db:"status"`
	PaymentStatus   string             `db:"payment_status"`
	TotalAmount     int64              `db:"total_amount"`
	VatAmount       int64              `db:"vat_amount"`
	DiscountAmount  int64              `db:"discount_amount"`
	ShippingAddress string             `db:"shipping_address"`
	ShippingMethod  sql.Null[string]   `db:"shipping_method"`
	DeliveryDate    *time.Time         `db:"delivery_date"`
	PlacedAt        time.Time          `db:"placed_at"`
	ProcessedAt     *time.Time         `db:"processed_at"`
	ShippedAt       *time.Time         `db:"shipped_at"`
	DeliveredAt     *time.Time         `db:"delivered_at"`
	CancelledAt     *time.Time         `db:"cancelled_at"`
	Version         int64              `db:"version"`
	StoreName       string             `db:"store_name"`
}

type orderItemRow struct {
	ID          int64            `db:"id"`
	OrderID     string           `db:"order_id"`
	ProductID   string           `db:"product_id"`
	SKU         sql.Null[string] `db:"sku"`
	ProductName sql.Null[string] `db:"product_name"`
	Quantity    int              `db:"quantity"`
	UnitPrice   int64            `db:"unit_price"`
	Status      string           `db:"status"`
}

func (r orderRow) toDomain() domain.Order {
	order := domain.Order{
		ID:              r.ID,
		OrderNumber:     r.OrderNumber,
		StoreID:         r.StoreID,
		FranchiseID:     r.FranchiseID,
		Status:          domain.OrderStatus(r.Status),
		PaymentStatus:   domain.PaymentStatus(r.PaymentStatus),
		TotalAmount:     r.TotalAmount,
		VatAmount:       r.VatAmount,
		DiscountAmount:  r.DiscountAmount,
		ShippingAddress: r.ShippingAddress,
		DeliveryDate:    r.DeliveryDate,
		PlacedAt:        r.PlacedAt,
		ProcessedAt:     r.ProcessedAt,
		ShippedAt:       r.ShippedAt,
		DeliveredAt:     r.DeliveredAt,
		CancelledAt:     r.CancelledAt,
		Version:         r.Version,
		StoreName:       r.StoreName,
	}
	if r.ShippingMethod.Valid {
		method := r.ShippingMethod.V
		order.ShippingMethod = &method
	}
	return order
}

func (r orderItemRow) toDomain() domain.OrderItem {
	return domain.OrderItem{
		ID:          r.ID,
		OrderID:     r.OrderID,
		ProductID:   r.ProductID,
		SKU:         r.SKU.V,
		ProductName: r.ProductName.V,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Status:      domain.OrderItemStatus(r.Status),
	}
}

const insertOrderSQL = `
INSERT INTO orders (
	id, order_number, store_id, franchise_id, status, payment_status,
	total_amount, vat_amount, discount_amount, shipping_address,
	shipping_method, delivery_date, placed_at, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertOrderItemSQL = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price, status)
VALUES (?, ?, ?, ?, ?)`

// Insert writes the order header and all line items. Run it inside the unit
// of work: a failed item insert rolls back the header with it.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	ext := r.db.Ext(ctx)

	var shippingMethod any
	if order.ShippingMethod != nil {
		shippingMethod = *order.ShippingMethod
	}

	_, err := ext.ExecContext(ctx, insertOrderSQL,
		order.ID, order.OrderNumber, order.StoreID, order.FranchiseID,
		string(order.Status), string(order.PaymentStatus),
		order.TotalAmount, order.VatAmount, order.DiscountAmount,
		order.ShippingAddress, shippingMethod, order.DeliveryDate,
		order.PlacedAt, order.Version,
	)
	if err != nil {
		return database.WrapError("orders.insert", err)
	}

	for _, item := range order.Items {
		_, err := ext.ExecContext(ctx, insertOrderItemSQL,
			order.ID, item.ProductID, item.Quantity, item.UnitPrice, string(item.Status),
		)
		if err != nil {
			return database.WrapError("orders.insert.items", err)
		}
	}
	return nil
}

const updateOrderSQL = `
UPDATE orders SET
	status = ?, payment_status = ?, delivery_date = ?,
	processed_at = ?, shipped_at = ?, delivered_at = ?, cancelled_at = ?,
	version = version + 1
WHERE id = ? AND version = ?`

const cancelOrderItemsSQL = `UPDATE order_items SET status = ? WHERE order_id = ?`

// Update applies the status machine's header mutation with a version guard.
// A guard miss means a concurrent writer advanced the row; it surfaces as a
// conflict so callers can retry against fresh state.
func (r *OrderRepository) Update(ctx context.Context, orderID string, update repositories.OrderUpdate) error {
	ext := r.db.Ext(ctx)

	res, err := ext.ExecContext(ctx, updateOrderSQL,
		string(update.Status), string(update.PaymentStatus), update.DeliveryDate,
		update.ProcessedAt, update.ShippedAt, update.DeliveredAt, update.CancelledAt,
		orderID, update.ExpectedVersion,
	)
	if err != nil {
		return database.WrapError("orders.update", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return database.WrapError("orders.update", err)
	}
	if affected == 0 {
		return database.ConflictError("orders.update",
			fmt.Errorf("order %s: version %d is stale or order is gone", orderID, update.ExpectedVersion))
	}

	if update.CascadeCancelled {
		if _, err := ext.ExecContext(ctx, cancelOrderItemsSQL, string(domain.OrderItemStatusCancelled), orderID); err != nil {
			return database.WrapError("orders.update.cascade", err)
		}
	}
	return nil
}

const selectOrderSQL = `
SELECT o.id, o.order_number, o.store_id, o.franchise_id, o.status,
	o.payment_status, o.total_amount, o.vat_amount, o.discount_amount,
	o.shipping_address, o.shipping_method, o.delivery_date, o.placed_at,
	o.processed_at, o.shipped_at, o.delivered_at, o.cancelled_at, o.version,
	s.name AS store_name
FROM orders o
JOIN stores s ON s.id = o.store_id`

const selectOrderItemsSQL = `
SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price, i.status,
	p.sku AS sku, p.name AS product_name
FROM order_items i
LEFT JOIN products p ON p.id = i.product_id
WHERE i.order_id IN (?)
ORDER BY i.id`

// FindByID loads a single order with store fields and priced line items.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	ext := r.db.Ext(ctx)

	var row orderRow
	if err := sqlx.GetContext(ctx, ext, &row, selectOrderSQL+" WHERE o.id = ?", orderID); err != nil {
		return domain.Order{}, database.WrapError("orders.find", err)
	}

	order := row.toDomain()
	items, err := r.loadItems(ctx, []string{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]
	return order, nil
}

// List loads orders matching the filter, newest first, line items included.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	ext := r.db.Ext(ctx)

	var conds []string
	var args []any
	if filter.Status != nil {
		conds = append(conds, "o.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.StoreID != "" {
		conds = append(conds, "o.store_id = ?")
		args = append(args, filter.StoreID)
	}
	if filter.FranchiseID != "" {
		conds = append(conds, "o.franchise_id = ?")
		args = append(args, filter.FranchiseID)
	}

	query := selectOrderSQL
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	query += " ORDER BY o.placed_at DESC, o.id DESC LIMIT ?"
	args = append(args, limit)

	var rows []orderRow
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, database.WrapError("orders.list", err)
	}
	if len(rows) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	itemsByOrder, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order := row.toDomain()
		order.Items = itemsByOrder[order.ID]
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[string][]domain.OrderItem{}, nil
	}

	query, args, err := sqlx.In(selectOrderItemsSQL, orderIDs)
	if err != nil {
		return nil, database.WrapError("orders.items", err)
	}

	var rows []orderItemRow
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rows, query, args...); err != nil {
		return nil, database.WrapError("orders.items", err)
	}

	result := make(map[string][]domain.OrderItem, len(orderIDs))
	for _, row := range rows {
		result[row.OrderID] = append(result[row.OrderID], row.toDomain())
	}
	return result, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
