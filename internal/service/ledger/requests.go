package ledger

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
)

// PurchaseRequest buys BoxQuantity boxes of one size from a farmer.
type PurchaseRequest struct {
	FarmerID     primitive.ObjectID
	Variety      string
	BoxType      models.BoxType
	BoxQuantity  int
	RatePerBox   float64
	PaymentGiven float64
	Date         time.Time
}

// TotalCost is BoxQuantity × RatePerBox, using the rate as it is stored.
func (r PurchaseRequest) TotalCost() float64 {
	return money.Mul(float64(r.BoxQuantity), money.Round(r.RatePerBox))
}

// Validate checks the request shape and the payment-versus-cost rule.
func (r PurchaseRequest) Validate() error {
	const op = "ledger.RecordFarmerPurchase"
	switch {
	case r.FarmerID.IsZero():
		return apperr.Validation(op, "farmerId is required")
	case strings.TrimSpace(r.Variety) == "":
		return apperr.Validation(op, "variety is required")
	case !r.BoxType.Valid():
		return apperr.Validation(op, "boxType must be 5 or 10")
	case r.BoxQuantity < 1:
		return apperr.Validation(op, "boxQuantity must be at least 1")
	case !money.Finite(r.RatePerBox) || r.RatePerBox < 1:
		return apperr.Validation(op, "ratePerBox must be at least 1")
	case !money.Finite(r.PaymentGiven) || money.IsNegative(r.PaymentGiven):
		return apperr.Validation(op, "paymentGiven must not be negative")
	}
	if money.Cmp(money.Round(r.PaymentGiven), r.TotalCost()) > 0 {
		return apperr.Validation(op, "paymentGiven %.2f exceeds total cost %.2f", r.PaymentGiven, r.TotalCost())
	}
	return nil
}

// FarmerPaymentRequest pays a farmer against their pending balance.
type FarmerPaymentRequest struct {
	FarmerID primitive.ObjectID
	Amount   float64
	Date     time.Time
}

func (r FarmerPaymentRequest) Validate() error {
	const op = "ledger.RecordFarmerPayment"
	switch {
	case r.FarmerID.IsZero():
		return apperr.Validation(op, "farmerId is required")
	case !money.Finite(r.Amount) || money.Cmp(r.Amount, 0) <= 0:
		return apperr.Validation(op, "amount must be greater than 0")
	}
	return nil
}

// CustomerEntryRequest is shared by customer credit and payment.
type CustomerEntryRequest struct {
	CustomerID  primitive.ObjectID
	Amount      float64
	Description string
}

func (r CustomerEntryRequest) validate(op string) error {
	switch {
	case r.CustomerID.IsZero():
		return apperr.Validation(op, "customerId is required")
	case !money.Finite(r.Amount) || money.Cmp(r.Amount, 0) <= 0:
		return apperr.Validation(op, "amount must be greater than 0")
	}
	return nil
}

// BatchRequest records a mixed arrival of 5kg and 10kg boxes.
type BatchRequest struct {
	FarmerID     primitive.ObjectID
	Variety      string
	Box5         int
	Box10        int
	CostPerBox5  float64
	CostPerBox10 float64
	ArrivalDate  time.Time
}

// TotalCost is Box5 × CostPerBox5 + Box10 × CostPerBox10, using the costs as they are stored.
func (r BatchRequest) TotalCost() float64 {
	return money.Add(
		money.Mul(float64(r.Box5), money.Round(r.CostPerBox5)),
		money.Mul(float64(r.Box10), money.Round(r.CostPerBox10)),
	)
}

func (r BatchRequest) Validate() error {
	const op = "ledger.RecordBatchArrival"
	switch {
	case r.FarmerID.IsZero():
		return apperr.Validation(op, "farmerId is required")
	case strings.TrimSpace(r.Variety) == "":
		return apperr.Validation(op, "variety is required")
	case r.Box5 < 0 || r.Box10 < 0:
		return apperr.Validation(op, "box counts must not be negative")
	case r.Box5 == 0 && r.Box10 == 0:
		return apperr.Validation(op, "batch must contain at least one box")
	case !money.Finite(r.CostPerBox5) || money.IsNegative(r.CostPerBox5):
		return apperr.Validation(op, "costPerBox5 must not be negative")
	case !money.Finite(r.CostPerBox10) || money.IsNegative(r.CostPerBox10):
		return apperr.Validation(op, "costPerBox10 must not be negative")
	}
	return nil
}

// LabourPayRequest marks a wage entry as paid.
type LabourPayRequest struct {
	LabourID primitive.ObjectID
}
