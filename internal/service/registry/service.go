// Package registry maintains the identity side of the ledger: registering,
// editing and removing farmers, customers, wage entries and expenses, and
// serving read models. It never writes an aggregate field.
package registry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// Store is what the registry needs from the backing store.
type Store interface {
	repository.Store
	repository.Reader
}

// Service implements the registry use cases.
type Service struct {
	store  Store
	policy repository.RetryPolicy
	logger *zap.Logger
}

// NewService creates a registry service.
func NewService(store Store, maxAttempts int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		policy: repository.RetryPolicy{Attempts: maxAttempts},
		logger: logger,
	}
}

func (s *Service) write(ctx context.Context, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.fail(op, repository.RunInTransaction(ctx, s.store, s.policy, fn))
}

// fail classifies store errors that were not already turned into *apperr.Error.
func (s *Service) fail(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(op, err)
	default:
		s.logger.Error("registry operation failed", zap.String("op", op), zap.Error(err))
		return apperr.Storage(op, err)
	}
}

// notFound turns repository.ErrNotFound into a NotFound error and wraps
// anything else unchanged, so conflicts inside a unit still reach the retry loop.
func notFound(op, entity, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(op, "%s %s not found", entity, id)
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}
