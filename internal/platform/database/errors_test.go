package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/franchisehub/api/internal/repositories"
)

func categorise(t *testing.T, err error) repositories.RepositoryError {
	t.Helper()

	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("error %v does not implement RepositoryError", err)
	}
	return repoErr
}

func TestWrapErrorNoRows(t *testing.T) {
	err := WrapError("orders.find", sql.ErrNoRows)

	repoErr := categorise(t, err)
	if !repoErr.IsNotFound() || repoErr.IsConflict() || repoErr.IsUnavailable() {
		t.Fatalf("sql.ErrNoRows not categorised as not-found: %v", err)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatal("wrapped error must unwrap to sql.ErrNoRows")
	}
}

func TestWrapErrorDuplicateEntry(t *testing.T) {
	err := WrapError("orders.insert", &mysql.MySQLError{Number: 1062, Message: "duplicate entry"})

	if repoErr := categorise(t, err); !repoErr.IsConflict() {
		t.Fatalf("duplicate entry not categorised as conflict: %v", err)
	}
}

func TestWrapErrorDeadlock(t *testing.T) {
	err := WrapError("orders.update", &mysql.MySQLError{Number: 1213, Message: "deadlock found"})

	if repoErr := categorise(t, err); !repoErr.IsConflict() {
		t.Fatalf("deadlock not categorised as conflict: %v", err)
	}
}

func TestWrapErrorLockWaitTimeout(t *testing.T) {
	err := WrapError("orders.update", &mysql.MySQLError{Number: 1205, Message: "lock wait timeout"})

	if repoErr := categorise(t, err); !repoErr.IsUnavailable() {
		t.Fatalf("lock wait timeout not categorised as unavailable: %v", err)
	}
}

func TestWrapErrorConnDone(t *testing.T) {
	err := WrapError("orders.list", sql.ErrConnDone)

	if repoErr := categorise(t, err); !repoErr.IsUnavailable() {
		t.Fatalf("closed connection not categorised as unavailable: %v", err)
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	if err := WrapError("orders.find", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("context.Canceled was wrapped: %v", err)
	}

	var repoErr repositories.RepositoryError
	if errors.As(WrapError("orders.find", context.DeadlineExceeded), &repoErr) {
		t.Fatal("deadline errors must not be categorised")
	}
}

func TestWrapErrorIdempotent(t *testing.T) {
	inner := ConflictError("orders.update", errors.New("version guard miss"))
	err := WrapError("orders.update", inner)

	repoErr := categorise(t, err)
	if !repoErr.IsConflict() {
		t.Fatalf("existing categorisation lost: %v", err)
	}
}

func TestConflictErrorConstructor(t *testing.T) {
	err := ConflictError("orders.update", errors.New("no rows matched"))
	if !err.IsConflict() || err.IsNotFound() {
		t.Fatalf("unexpected categorisation: %+v", err)
	}
}

func TestNotFoundErrorConstructor(t *testing.T) {
	err := NotFoundError("stores.find", errors.New("no store"))
	if !err.IsNotFound() || err.IsConflict() {
		t.Fatalf("unexpected categorisation: %+v", err)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if err := WrapError("orders.find", nil); err != nil {
		t.Fatalf("wrapping nil produced %v", err)
	}
}
