package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/repositories"
)

var (
	// ErrNoStoreLinked indicates the user profile carries no store linkage at all.
	ErrNoStoreLinked = errors.New("store: user has no linked store")
	// ErrStoreNotFound indicates the linked store is missing or inactive.
	ErrStoreNotFound = errors.New("store: linked store not found or inactive")
)

type storeResolver struct {
	users  repositories.UserRepository
	stores repositories.StoreRepository
}

// NewStoreResolver wires the repositories into a StoreResolver.
func NewStoreResolver(users repositories.UserRepository, stores repositories.StoreRepository) (StoreResolver, error) {
	if users == nil {
		return nil, errors.New("store resolver: user repository is required")
	}
	if stores == nil {
		return nil, errors.New("store resolver: store repository is required")
	}
	return &storeResolver{users: users, stores: stores}, nil
}

// ResolveStore looks up the user's profile and returns the one active store
// the user may order for. A direct store reference wins; the legacy name
// linkage is the fallback.
func (r *storeResolver) ResolveStore(ctx context.Context, userID string) (domain.Store, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Store{}, fmt.Errorf("%w: empty user id", ErrNoStoreLinked)
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.Store{}, fmt.Errorf("%w: unknown user %s", ErrNoStoreLinked, userID)
		}
		return domain.Store{}, err
	}

	switch {
	case user.StoreID != nil && strings.TrimSpace(*user.StoreID) != "":
		store, err := r.stores.FindActiveByID(ctx, strings.TrimSpace(*user.StoreID))
		if err != nil {
			if isNotFound(err) {
				return domain.Store{}, fmt.Errorf("%w: store %s", ErrStoreNotFound, *user.StoreID)
			}
			return domain.Store{}, err
		}
		return store, nil

	case user.StoreName != nil && strings.TrimSpace(*user.StoreName) != "":
		store, err := r.stores.FindActiveByName(ctx, strings.TrimSpace(*user.StoreName))
		if err != nil {
			if isNotFound(err) {
				return domain.Store{}, fmt.Errorf("%w: store named %q", ErrStoreNotFound, *user.StoreName)
			}
			return domain.Store{}, err
		}
		return store, nil

	default:
		return domain.Store{}, fmt.Errorf("%w: user %s", ErrNoStoreLinked, userID)
	}
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
