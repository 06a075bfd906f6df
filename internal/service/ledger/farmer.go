package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// RecordFarmerPurchase stores the purchase and updates the farmer totals and
// the variety stock in one unit.
func (s *Service) RecordFarmerPurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	const op = "ledger.RecordFarmerPurchase"
	if err := req.Validate(); err != nil {
		return nil, err
	}

	variety := strings.TrimSpace(req.Variety)
	date := s.dateOr(req.Date)
	totalCost := req.TotalCost()
	payment := money.Round(req.PaymentGiven)
	pending := money.Sub(totalCost, payment)

	var result *PurchaseResult
	err := s.runInTx(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		farmer, err := findFarmer(ctx, tx, op, req.FarmerID)
		if err != nil {
			return err
		}

		purchase := &models.FarmerPurchase{
			FarmerID:      farmer.ID,
			Variety:       variety,
			BoxType:       req.BoxType,
			BoxQuantity:   req.BoxQuantity,
			RatePerBox:    money.Round(req.RatePerBox),
			TotalKg:       req.BoxQuantity * req.BoxType.Kg(),
			TotalCost:     totalCost,
			PaymentGiven:  payment,
			PendingAmount: pending,
			Date:          date,
		}

		if req.BoxType == models.Box5 {
			farmer.TotalBoxes5 += req.BoxQuantity
		} else {
			farmer.TotalBoxes10 += req.BoxQuantity
		}
		farmer.TotalPurchaseAmount = money.Add(farmer.TotalPurchaseAmount, totalCost)
		farmer.TotalPaymentGiven = money.Add(farmer.TotalPaymentGiven, purchase.PaymentGiven)
		farmer.PendingPayment = money.Add(farmer.PendingPayment, pending)

		stock, created, err := loadStock(ctx, tx, variety)
		if err != nil {
			return err
		}
		if req.BoxType == models.Box5 {
			stock.Box5Total += req.BoxQuantity
		} else {
			stock.Box10Total += req.BoxQuantity
		}

		if err := checkFarmer(op, farmer); err != nil {
			return err
		}
		if err := checkStock(op, stock); err != nil {
			return err
		}

		if err := tx.CreatePurchase(ctx, purchase); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		if err := tx.SaveFarmer(ctx, farmer); err != nil {
			return fmt.Errorf("save farmer: %w", err)
		}
		if err := writeStock(ctx, tx, stock, created); err != nil {
			return err
		}

		result = &PurchaseResult{Purchase: purchase, Farmer: farmer, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("farmer purchase recorded",
		zap.String("farmer_id", req.FarmerID.Hex()),
		zap.String("variety", variety),
		zap.Int("box_type", req.BoxType.Kg()),
		zap.Int("boxes", req.BoxQuantity),
		zap.Float64("total_cost", totalCost),
		zap.Float64("pending", pending),
	)
	return result, nil
}

// RecordFarmerPayment pays down a farmer's pending balance. Overpaying is rejected.
func (s *Service) RecordFarmerPayment(ctx context.Context, req FarmerPaymentRequest) (*FarmerPaymentResult, error) {
	const op = "ledger.RecordFarmerPayment"
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := money.Round(req.Amount)
	date := s.dateOr(req.Date)

	var result *FarmerPaymentResult
	err := s.runInTx(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		farmer, err := findFarmer(ctx, tx, op, req.FarmerID)
		if err != nil {
			return err
		}
		if money.Cmp(amount, farmer.PendingPayment) > 0 {
			return apperr.Validation(op, "amount %.2f exceeds pending payment %.2f", amount, farmer.PendingPayment)
		}

		farmer.TotalPaymentGiven = money.Add(farmer.TotalPaymentGiven, amount)
		farmer.PendingPayment = money.Sub(farmer.PendingPayment, amount)
		if err := checkFarmer(op, farmer); err != nil {
			return err
		}

		payment := &models.FarmerPayment{
			FarmerID:     farmer.ID,
			Amount:       amount,
			PendingAfter: farmer.PendingPayment,
			Date:         date,
		}
		if err := tx.CreateFarmerPayment(ctx, payment); err != nil {
			return fmt.Errorf("create farmer payment: %w", err)
		}
		if err := tx.SaveFarmer(ctx, farmer); err != nil {
			return fmt.Errorf("save farmer: %w", err)
		}

		result = &FarmerPaymentResult{Farmer: farmer, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("farmer payment recorded",
		zap.String("farmer_id", req.FarmerID.Hex()),
		zap.Float64("amount", amount),
		zap.Float64("pending", result.Farmer.PendingPayment),
	)
	return result, nil
}

// RecordBatchArrival stores a mixed 5kg/10kg arrival. The whole cost becomes
// pending for the farmer.
func (s *Service) RecordBatchArrival(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	const op = "ledger.RecordBatchArrival"
	if err := req.Validate(); err != nil {
		return nil, err
	}

	variety := strings.TrimSpace(req.Variety)
	arrival := s.dateOr(req.ArrivalDate)
	totalCost := req.TotalCost()

	var result *BatchResult
	err := s.runInTx(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		farmer, err := findFarmer(ctx, tx, op, req.FarmerID)
		if err != nil {
			return err
		}

		batch := &models.Batch{
			BatchID:      newBatchID(variety, arrival.Format("20060102")),
			FarmerID:     farmer.ID,
			Variety:      variety,
			Box5:         req.Box5,
			Box10:        req.Box10,
			CostPerBox5:  money.Round(req.CostPerBox5),
			CostPerBox10: money.Round(req.CostPerBox10),
			TotalCost:    totalCost,
			ArrivalDate:  arrival,
		}

		farmer.TotalBoxes5 += req.Box5
		farmer.TotalBoxes10 += req.Box10
		farmer.TotalPurchaseAmount = money.Add(farmer.TotalPurchaseAmount, totalCost)
		farmer.PendingPayment = money.Add(farmer.PendingPayment, totalCost)

		stock, created, err := loadStock(ctx, tx, variety)
		if err != nil {
			return err
		}
		stock.Box5Total += req.Box5
		stock.Box10Total += req.Box10

		if err := checkFarmer(op, farmer); err != nil {
			return err
		}
		if err := checkStock(op, stock); err != nil {
			return err
		}

		if err := tx.CreateBatch(ctx, batch); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return fmt.Errorf("%w: batch id %s already used", repository.ErrConflict, batch.BatchID)
			}
			return fmt.Errorf("create batch: %w", err)
		}
		if err := tx.SaveFarmer(ctx, farmer); err != nil {
			return fmt.Errorf("save farmer: %w", err)
		}
		if err := writeStock(ctx, tx, stock, created); err != nil {
			return err
		}

		result = &BatchResult{Batch: batch, Farmer: farmer, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch recorded",
		zap.String("batch_id", result.Batch.BatchID),
		zap.String("farmer_id", req.FarmerID.Hex()),
		zap.Int("box5", req.Box5),
		zap.Int("box10", req.Box10),
		zap.Float64("total_cost", totalCost),
	)
	return result, nil
}

func findFarmer(ctx context.Context, tx repository.Tx, op string, id primitive.ObjectID) (*models.Farmer, error) {
	farmer, err := tx.FindFarmer(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(op, "farmer %s not found", id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("find farmer: %w", err)
	}
	return farmer, nil
}

// loadStock returns the variety's stock, or a fresh zero document when the
// variety has never been stocked.
func loadStock(ctx context.Context, tx repository.Tx, variety string) (*models.VarietyStock, bool, error) {
	stock, err := tx.FindVarietyStock(ctx, variety)
	switch {
	case err == nil:
		return stock, false, nil
	case errors.Is(err, repository.ErrNotFound):
		return &models.VarietyStock{Variety: variety}, true, nil
	default:
		return nil, false, fmt.Errorf("find variety stock: %w", err)
	}
}

// writeStock persists stock. Losing the race to create a variety is reported
// as a conflict so the replayed unit finds the winner's document and increments it.
func writeStock(ctx context.Context, tx repository.Tx, stock *models.VarietyStock, created bool) error {
	if !created {
		if err := tx.SaveVarietyStock(ctx, stock); err != nil {
			return fmt.Errorf("save variety stock: %w", err)
		}
		return nil
	}

	err := tx.CreateVarietyStock(ctx, stock)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return fmt.Errorf("%w: variety %s created concurrently", repository.ErrConflict, stock.Variety)
	}
	if err != nil {
		return fmt.Errorf("create variety stock: %w", err)
	}
	return nil
}

func newBatchID(variety, day string) string {
	code := strings.ToUpper(strings.Join(strings.Fields(variety), ""))
	return fmt.Sprintf("BATCH-%s-%s-%d", code, day, 10+rand.IntN(90))
}
