package idempotency

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

func TestReserveNewKey(t *testing.T) {
	store := NewMemoryStore()

	reservation, err := store.Reserve(context.Background(), "key-1", "fp-1", baseTime, time.Hour)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if reservation.State != ReservationStateNew {
		t.Fatalf("state = %v, want new", reservation.State)
	}
	if reservation.Record.Status != StatusPending {
		t.Fatalf("record status = %s, want pending", reservation.Record.Status)
	}
}

func TestReserveWhilePending(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Reserve(context.Background(), "key-1", "fp-1", baseTime, time.Hour); err != nil {
		t.Fatalf("first Reserve: %v", err)
	}

	reservation, err := store.Reserve(context.Background(), "key-1", "fp-1", baseTime.Add(time.Second), time.Hour)
	if err != nil {
		t.Fatalf("second Reserve: %v", err)
	}
	if reservation.State != ReservationStatePending {
		t.Fatalf("state = %v, want pending", reservation.State)
	}
}

func TestReserveReplaysCompletedResponse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", baseTime, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	resp := Response{
		Status:  http.StatusCreated,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    []byte(`{"order":{"id":"ord_1"}}`),
	}
	if err := store.SaveResponse(ctx, "key-1", "fp-1", resp, baseTime.Add(time.Second), time.Hour); err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}

	reservation, err := store.Reserve(ctx, "key-1", "fp-1", baseTime.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("replay Reserve: %v", err)
	}
	if reservation.State != ReservationStateCompleted {
		t.Fatalf("state = %v, want completed", reservation.State)
	}
	if reservation.Record.ResponseStatus != http.StatusCreated {
		t.Fatalf("stored status = %d", reservation.Record.ResponseStatus)
	}
	if string(reservation.Record.ResponseBody) != `{"order":{"id":"ord_1"}}` {
		t.Fatalf("stored body = %s", reservation.Record.ResponseBody)
	}
}

func TestReserveFingerprintMismatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", baseTime, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if _, err := store.Reserve(ctx, "key-1", "fp-other", baseTime, time.Hour); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected ErrFingerprintMismatch, got %v", err)
	}
}

func TestReserveExpiredKeyIsFresh(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", baseTime, time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	reservation, err := store.Reserve(ctx, "key-1", "fp-2", baseTime.Add(2*time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("Reserve after expiry: %v", err)
	}
	if reservation.State != ReservationStateNew {
		t.Fatalf("state = %v, want new after expiry", reservation.State)
	}
}

func TestReleaseAllowsRetry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", baseTime, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := store.Release(ctx, "key-1", "fp-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	reservation, err := store.Reserve(ctx, "key-1", "fp-1", baseTime.Add(time.Second), time.Hour)
	if err != nil {
		t.Fatalf("Reserve after release: %v", err)
	}
	if reservation.State != ReservationStateNew {
		t.Fatalf("state = %v, want new after release", reservation.State)
	}
}

func TestCleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "old", "fp", baseTime, time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := store.Reserve(ctx, "fresh", "fp", baseTime, 24*time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	removed, err := store.CleanupExpired(ctx, baseTime.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}
