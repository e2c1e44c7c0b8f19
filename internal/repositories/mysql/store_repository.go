package mysql

import (
	"context"

	"github.com/jmoiron/sqlx"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/platform/database"
	"github.com/franchisehub/api/internal/repositories"
)

// StoreRepository reads franchise stores from MySQL.
type StoreRepository struct {
	db *database.DB
}

// NewStoreRepository constructs a StoreRepository over the shared handle.
func NewStoreRepository(db *database.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

type storeRow struct {
	ID          string `db:"id"`
	FranchiseID string `db:"franchise_id"`
	Name        string `db:"name"`
	Active      bool   `db:"active"`
}

func (r storeRow) toDomain() domain.Store {
	return domain.Store{
		ID:          r.ID,
		FranchiseID: r.FranchiseID,
		Name:        r.Name,
		Active:      r.Active,
	}
}

const selectStoreSQL = `SELECT id, franchise_id, name, active FROM stores`

// FindActiveByID loads an active store by its identifier.
func (r *StoreRepository) FindActiveByID(ctx context.Context, storeID string) (domain.Store, error) {
	var row storeRow
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &row, selectStoreSQL+" WHERE id = ? AND active = 1", storeID)
	if err != nil {
		return domain.Store{}, database.WrapError("stores.find", err)
	}
	return row.toDomain(), nil
}

// FindActiveByName resolves the legacy name-based store linkage.
func (r *StoreRepository) FindActiveByName(ctx context.Context, name string) (domain.Store, error) {
	var row storeRow
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &row, selectStoreSQL+" WHERE name = ? AND active = 1", name)
	if err != nil {
		return domain.Store{}, database.WrapError("stores.find", err)
	}
	return row.toDomain(), nil
}

var _ repositories.StoreRepository = (*StoreRepository)(nil)
