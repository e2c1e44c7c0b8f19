package mysql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/platform/database"
	"github.com/franchisehub/api/internal/repositories"
)

// UserRepository reads portal account profiles from MySQL.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository constructs a UserRepository over the shared handle.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID        string           `db:"id"`
	Name      string           `db:"name"`
	Role      string           `db:"role"`
	StoreID   sql.Null[string] `db:"store_id"`
	StoreName sql.Null[string] `db:"store_name"`
}

const selectUserSQL = `SELECT id, name, role, store_id, store_name FROM users WHERE id = ?`

// FindByID loads a user profile with its store linkage.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &row, selectUserSQL, userID); err != nil {
		return domain.User{}, database.WrapError("users.find", err)
	}

	user := domain.User{ID: row.ID, Name: row.Name, Role: row.Role}
	if row.StoreID.Valid && row.StoreID.V != "" {
		storeID := row.StoreID.V
		user.StoreID = &storeID
	}
	if row.StoreName.Valid && row.StoreName.V != "" {
		storeName := row.StoreName.V
		user.StoreName = &storeName
	}
	return user, nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)
