package ledger

import (
	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
)

// The checks below run on the computed state right before it is written.
// A failure aborts the unit; values are never clamped.

func checkFarmer(op string, f *models.Farmer) error {
	switch {
	case money.IsNegative(f.PendingPayment):
		return apperr.Invariant(op, "farmer %s pending payment would become %.2f", f.ID.Hex(), f.PendingPayment)
	case money.IsNegative(f.TotalPaymentGiven):
		return apperr.Invariant(op, "farmer %s total payment would become %.2f", f.ID.Hex(), f.TotalPaymentGiven)
	case f.TotalBoxes5 < 0 || f.TotalBoxes10 < 0:
		return apperr.Invariant(op, "farmer %s box totals would become negative", f.ID.Hex())
	}
	return nil
}

func checkStock(op string, s *models.VarietyStock) error {
	if s.Box5Remaining() < 0 || s.Box10Remaining() < 0 {
		return apperr.Invariant(op, "variety %s remaining stock would become negative", s.Variety)
	}
	return nil
}

func checkCustomer(op string, c *models.Customer) error {
	if money.IsNegative(c.Balance) {
		return apperr.Invariant(op, "customer %s balance would become %.2f", c.ID.Hex(), c.Balance)
	}
	return nil
}
