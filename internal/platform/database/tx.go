package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type txContextKey struct{}

// RunInTx executes fn inside a database transaction. The transaction is
// carried on the context so repository calls made from fn join it; nested
// calls reuse the outer transaction instead of opening a new one.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return WrapError("transaction", errors.New("database: transaction function is nil"))
	}
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := d.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return WrapError("transaction", err)
	}

	txCtx := context.WithValue(ctx, txContextKey{}, tx)

	var done bool
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(txCtx); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return WrapError("transaction", errors.Join(err, rbErr))
		}
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return WrapError("transaction", err)
	}
	return nil
}

// TxFromContext returns the transaction carried on the context, if any.
func TxFromContext(ctx context.Context) *sqlx.Tx {
	if ctx == nil {
		return nil
	}
	tx, _ := ctx.Value(txContextKey{}).(*sqlx.Tx)
	return tx
}

// Ext resolves the executor for a repository call: the in-flight transaction
// when one is carried on the context, the shared pool otherwise.
func (d *DB) Ext(ctx context.Context) sqlx.ExtContext {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return d.DB
}
