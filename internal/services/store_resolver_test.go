package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/franchisehub/api/internal/domain"
)

type stubUserRepository struct {
	findByIDFn func(ctx context.Context, userID string) (domain.User, error)
}

func (s *stubUserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, userID)
	}
	return domain.User{}, notFoundErr{}
}

type stubStoreRepository struct {
	findByIDFn   func(ctx context.Context, storeID string) (domain.Store, error)
	findByNameFn func(ctx context.Context, name string) (domain.Store, error)
}

func (s *stubStoreRepository) FindActiveByID(ctx context.Context, storeID string) (domain.Store, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, storeID)
	}
	return domain.Store{}, notFoundErr{}
}

func (s *stubStoreRepository) FindActiveByName(ctx context.Context, name string) (domain.Store, error) {
	if s.findByNameFn != nil {
		return s.findByNameFn(ctx, name)
	}
	return domain.Store{}, notFoundErr{}
}

// notFoundErr satisfies repositories.RepositoryError for stubbing.
type notFoundErr struct{}

func (notFoundErr) Error() string       { return "not found" }
func (notFoundErr) IsNotFound() bool    { return true }
func (notFoundErr) IsConflict() bool    { return false }
func (notFoundErr) IsUnavailable() bool { return false }

type conflictErr struct{}

func (conflictErr) Error() string       { return "conflict" }
func (conflictErr) IsNotFound() bool    { return false }
func (conflictErr) IsConflict() bool    { return true }
func (conflictErr) IsUnavailable() bool { return false }

func strPtr(v string) *string { return &v }

func TestResolveStoreByID(t *testing.T) {
	users := &stubUserRepository{
		findByIDFn: func(_ context.Context, userID string) (domain.User, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return domain.User{ID: "user-1", StoreID: strPtr("store-9")}, nil
		},
	}
	stores := &stubStoreRepository{
		findByIDFn: func(_ context.Context, storeID string) (domain.Store, error) {
			if storeID != "store-9" {
				t.Fatalf("unexpected store id %q", storeID)
			}
			return domain.Store{ID: "store-9", FranchiseID: "fr-1", Name: "Gangnam", Active: true}, nil
		},
	}

	resolver, err := NewStoreResolver(users, stores)
	if err != nil {
		t.Fatalf("NewStoreResolver: %v", err)
	}

	store, err := resolver.ResolveStore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveStore returned error: %v", err)
	}
	if store.ID != "store-9" || store.FranchiseID != "fr-1" {
		t.Fatalf("unexpected store %+v", store)
	}
}

func TestResolveStoreFallsBackToName(t *testing.T) {
	users := &stubUserRepository{
		findByIDFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "user-2", StoreName: strPtr("Hongdae")}, nil
		},
	}
	stores := &stubStoreRepository{
		findByNameFn: func(_ context.Context, name string) (domain.Store, error) {
			if name != "Hongdae" {
				t.Fatalf("unexpected store name %q", name)
			}
			return domain.Store{ID: "store-2", Name: "Hongdae", Active: true}, nil
		},
	}

	resolver, _ := NewStoreResolver(users, stores)
	store, err := resolver.ResolveStore(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("ResolveStore returned error: %v", err)
	}
	if store.ID != "store-2" {
		t.Fatalf("unexpected store %+v", store)
	}
}

func TestResolveStoreNoLinkage(t *testing.T) {
	users := &stubUserRepository{
		findByIDFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "user-3"}, nil
		},
	}
	resolver, _ := NewStoreResolver(users, &stubStoreRepository{})

	if _, err := resolver.ResolveStore(context.Background(), "user-3"); !errors.Is(err, ErrNoStoreLinked) {
		t.Fatalf("expected ErrNoStoreLinked, got %v", err)
	}
}

func TestResolveStoreUnknownUser(t *testing.T) {
	resolver, _ := NewStoreResolver(&stubUserRepository{}, &stubStoreRepository{})

	if _, err := resolver.ResolveStore(context.Background(), "ghost"); !errors.Is(err, ErrNoStoreLinked) {
		t.Fatalf("expected ErrNoStoreLinked, got %v", err)
	}
}

func TestResolveStoreInactiveStore(t *testing.T) {
	users := &stubUserRepository{
		findByIDFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "user-4", StoreID: strPtr("store-gone")}, nil
		},
	}
	resolver, _ := NewStoreResolver(users, &stubStoreRepository{})

	if _, err := resolver.ResolveStore(context.Background(), "user-4"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestResolveStoreEmptyUserID(t *testing.T) {
	resolver, _ := NewStoreResolver(&stubUserRepository{}, &stubStoreRepository{})

	if _, err := resolver.ResolveStore(context.Background(), "  "); !errors.Is(err, ErrNoStoreLinked) {
		t.Fatalf("expected ErrNoStoreLinked, got %v", err)
	}
}
