package reporting

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
)

// Rule names reported in violations.
const (
	RuleFarmerPendingNonNegative  = "farmer_pending_non_negative"
	RuleFarmerPendingBalanced     = "farmer_pending_equals_purchases_minus_payments"
	RuleFarmerPurchasesMatchLog   = "farmer_purchase_total_matches_records"
	RuleFarmerPaymentsMatchLog    = "farmer_payment_total_matches_records"
	RuleCustomerBalanceNonNeg     = "customer_balance_non_negative"
	RuleCustomerBalanceBalanced   = "customer_balance_equals_credit_minus_paid"
	RuleCustomerBalanceMatchesLog = "customer_balance_matches_transactions"
	RuleStockRemainingNonNegative = "stock_remaining_non_negative"
)

// Reconcile recomputes every aggregate from its rules and its records and
// reports each disagreement. Nothing is corrected.
func (s *Service) Reconcile(ctx context.Context) (*models.ReconciliationReport, error) {
	snap, err := s.load(ctx, "reporting.Reconcile")
	if err != nil {
		return nil, err
	}

	purchased := map[primitive.ObjectID][]float64{}
	paid := map[primitive.ObjectID][]float64{}
	for _, p := range snap.purchases {
		purchased[p.FarmerID] = append(purchased[p.FarmerID], p.TotalCost)
		paid[p.FarmerID] = append(paid[p.FarmerID], p.PaymentGiven)
	}
	for _, b := range snap.batches {
		purchased[b.FarmerID] = append(purchased[b.FarmerID], b.TotalCost)
	}
	for _, p := range snap.payments {
		paid[p.FarmerID] = append(paid[p.FarmerID], p.Amount)
	}

	signed := map[primitive.ObjectID][]float64{}
	for _, e := range snap.entries {
		signed[e.CustomerID] = append(signed[e.CustomerID], e.SignedAmount())
	}

	report := &models.ReconciliationReport{
		CheckedAt:        s.now().UTC(),
		FarmersChecked:   len(snap.farmers),
		CustomersChecked: len(snap.customers),
		Violations:       []models.InvariantViolation{},
	}
	add := func(v models.InvariantViolation) {
		report.Violations = append(report.Violations, v)
	}

	for _, f := range snap.farmers {
		farmer := func(rule string, expected, actual float64) models.InvariantViolation {
			return models.InvariantViolation{Entity: "farmer", ID: f.ID.Hex(), Name: f.Name, Rule: rule, Expected: expected, Actual: actual}
		}
		if money.IsNegative(f.PendingPayment) {
			add(farmer(RuleFarmerPendingNonNegative, 0, f.PendingPayment))
		}
		if want := money.Sub(f.TotalPurchaseAmount, f.TotalPaymentGiven); !money.Equal(want, f.PendingPayment) {
			add(farmer(RuleFarmerPendingBalanced, want, f.PendingPayment))
		}
		if want := money.Sum(purchased[f.ID]...); !money.Equal(want, f.TotalPurchaseAmount) {
			add(farmer(RuleFarmerPurchasesMatchLog, want, f.TotalPurchaseAmount))
		}
		if want := money.Sum(paid[f.ID]...); !money.Equal(want, f.TotalPaymentGiven) {
			add(farmer(RuleFarmerPaymentsMatchLog, want, f.TotalPaymentGiven))
		}
	}

	for _, c := range snap.customers {
		customer := func(rule string, expected, actual float64) models.InvariantViolation {
			return models.InvariantViolation{Entity: "customer", ID: c.ID.Hex(), Name: c.Name, Rule: rule, Expected: expected, Actual: actual}
		}
		if money.IsNegative(c.Balance) {
			add(customer(RuleCustomerBalanceNonNeg, 0, c.Balance))
		}
		if want := money.Sub(c.TotalCredit, c.TotalPaid); !money.Equal(want, c.Balance) {
			add(customer(RuleCustomerBalanceBalanced, want, c.Balance))
		}
		if want := money.Sum(signed[c.ID]...); !money.Equal(want, c.Balance) {
			add(customer(RuleCustomerBalanceMatchesLog, want, c.Balance))
		}
	}

	for _, st := range snap.stocks {
		if st.Box5Remaining() < 0 || st.Box10Remaining() < 0 {
			add(models.InvariantViolation{
				Entity:   "variety",
				ID:       st.ID.Hex(),
				Name:     st.Variety,
				Rule:     RuleStockRemainingNonNegative,
				Expected: 0,
				Actual:   float64(min(st.Box5Remaining(), st.Box10Remaining())),
			})
		}
	}

	if !report.Consistent() {
		s.logger.Warn("ledger reconciliation found violations", zap.Int("count", len(report.Violations)))
	}
	return report, nil
}
