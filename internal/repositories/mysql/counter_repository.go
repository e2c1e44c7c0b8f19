package mysql

import (
	"context"

	"github.com/franchisehub/api/internal/platform/database"
	"github.com/franchisehub/api/internal/repositories"
)

// CounterRepository produces order-number sequences from a counters table.
type CounterRepository struct {
	db *database.DB
}

// NewCounterRepository constructs a CounterRepository over the shared handle.
func NewCounterRepository(db *database.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// The LAST_INSERT_ID upsert makes the increment atomic and returns the new
// value through the driver without a second round trip.
const nextCounterSQL = `
INSERT INTO counters (name, value) VALUES (?, LAST_INSERT_ID(?))
ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + ?)`

// Next atomically advances the named counter by step and returns the new value.
func (r *CounterRepository) Next(ctx context.Context, name string, step int64) (int64, error) {
	if step <= 0 {
		step = 1
	}
	res, err := r.db.Ext(ctx).ExecContext(ctx, nextCounterSQL, name, step, step)
	if err != nil {
		return 0, database.WrapError("counters.next", err)
	}
	value, err := res.LastInsertId()
	if err != nil {
		return 0, database.WrapError("counters.next", err)
	}
	return value, nil
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)
