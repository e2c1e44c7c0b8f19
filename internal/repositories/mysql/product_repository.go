package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/platform/database"
	"github.com/franchisehub/api/internal/repositories"
)

// ProductRepository reads catalog products from MySQL.
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository constructs a ProductRepository over the shared handle.
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type productRow struct {
	ID        string    `db:"id"`
	SKU       string    `db:"sku"`
	Name      string    `db:"name"`
	Price     int64     `db:"price"`
	TaxRate   float64   `db:"tax_rate"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const selectProductsSQL = `
SELECT id, sku, name, price, tax_rate, created_at, updated_at
FROM products WHERE id IN (?)`

// FindByIDs loads the referenced products keyed by id. Missing ids are simply
// absent from the result; existence decisions belong to the caller.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if len(productIDs) == 0 {
		return map[string]domain.Product{}, nil
	}

	query, args, err := sqlx.In(selectProductsSQL, productIDs)
	if err != nil {
		return nil, database.WrapError("products.find", err)
	}

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rows, query, args...); err != nil {
		return nil, database.WrapError("products.find", err)
	}

	result := make(map[string]domain.Product, len(rows))
	for _, row := range rows {
		result[row.ID] = domain.Product{
			ID:        row.ID,
			SKU:       row.SKU,
			Name:      row.Name,
			Price:     row.Price,
			TaxRate:   row.TaxRate,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
	}
	return result, nil
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
