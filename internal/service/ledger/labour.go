package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// MarkLabourPaid flips a wage entry to paid. Marking an already paid entry
// returns it unchanged and succeeds, so callers may retry freely.
func (s *Service) MarkLabourPaid(ctx context.Context, req LabourPayRequest) (*models.Labour, error) {
	const op = "ledger.MarkLabourPaid"
	if req.LabourID.IsZero() {
		return nil, apperr.Validation(op, "labour id is required")
	}

	var (
		result  *models.Labour
		changed bool
	)
	err := s.runInTx(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		changed = false
		labour, err := tx.FindLabour(ctx, req.LabourID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(op, "labour record %s not found", req.LabourID.Hex())
		}
		if err != nil {
			return fmt.Errorf("find labour: %w", err)
		}

		if labour.IsPaid {
			result = labour
			return nil
		}

		paidAt := s.now().UTC()
		labour.IsPaid = true
		labour.PaidDate = &paidAt
		if err := tx.SaveLabour(ctx, labour); err != nil {
			return fmt.Errorf("save labour: %w", err)
		}
		result = labour
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("labour marked paid", zap.String("labour_id", req.LabourID.Hex()), zap.Float64("wage", result.Wage))
	} else {
		s.logger.Debug("labour already paid", zap.String("labour_id", req.LabourID.Hex()))
	}
	return result, nil
}
