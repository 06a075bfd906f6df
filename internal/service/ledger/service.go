// Package ledger executes the transactions that move money and stock between
// farmers, customers, workers and the variety stock. It is the only code that
// writes aggregate fields.
package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// Service runs every ledger transaction as one retried unit of work.
type Service struct {
	store  repository.Store
	policy repository.RetryPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a ledger service. maxAttempts bounds how many times a
// unit is replayed after a write conflict.
func NewService(store repository.Store, maxAttempts int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	s.policy = repository.RetryPolicy{
		Attempts: maxAttempts,
		Backoff:  repository.DefaultRetryPolicy.Backoff,
		OnRetry: func(attempt int, err error) {
			s.logger.Debug("write conflict, replaying unit", zap.Int("attempt", attempt), zap.Error(err))
		},
	}
	return s
}

// PurchaseResult is returned by RecordFarmerPurchase.
type PurchaseResult struct {
	Purchase *models.FarmerPurchase `json:"purchase"`
	Farmer   *models.Farmer         `json:"farmer"`
	Stock    *models.VarietyStock   `json:"stock"`
}

// FarmerPaymentResult is returned by RecordFarmerPayment.
type FarmerPaymentResult struct {
	Farmer  *models.Farmer        `json:"farmer"`
	Payment *models.FarmerPayment `json:"payment"`
}

// CustomerResult is returned by customer credit and payment.
type CustomerResult struct {
	Customer    *models.Customer            `json:"customer"`
	Transaction *models.CustomerTransaction `json:"transaction"`
}

// BatchResult is returned by RecordBatchArrival.
type BatchResult struct {
	Batch  *models.Batch        `json:"batch"`
	Farmer *models.Farmer       `json:"farmer"`
	Stock  *models.VarietyStock `json:"stock"`
}

func (s *Service) runInTx(ctx context.Context, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := repository.RunInTransaction(ctx, s.store, s.policy, fn)
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrConflict):
		s.logger.Warn("giving up after repeated write conflicts", zap.String("op", op), zap.Error(err))
		return apperr.Conflict(op, err)
	default:
		s.logger.Error("ledger transaction failed", zap.String("op", op), zap.Error(err))
		return apperr.Storage(op, err)
	}
}

func (s *Service) dateOr(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t
}
