package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// FarmerInput carries the identity fields of a farmer.
type FarmerInput struct {
	Name    string
	Mobile  string
	Village string
}

func (in FarmerInput) normalize(op string) (FarmerInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Village = strings.TrimSpace(in.Village)
	if in.Name == "" {
		return in, apperr.Validation(op, "name is required")
	}
	return in, nil
}

// FarmerLedger is a farmer with the records behind their totals.
type FarmerLedger struct {
	Farmer    *models.Farmer          `json:"farmer"`
	Purchases []models.FarmerPurchase `json:"purchases"`
	Payments  []models.FarmerPayment  `json:"payments"`
	Batches   []models.Batch          `json:"batches"`
}

// CreateFarmer registers a farmer with zero totals.
func (s *Service) CreateFarmer(ctx context.Context, input FarmerInput) (*models.Farmer, error) {
	const op = "registry.CreateFarmer"
	in, err := input.normalize(op)
	if err != nil {
		return nil, err
	}

	var farmer *models.Farmer
	err = s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		farmer = &models.Farmer{Name: in.Name, Mobile: in.Mobile, Village: in.Village}
		if err := tx.CreateFarmer(ctx, farmer); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return apperr.Validation(op, "farmer with mobile %s already exists", in.Mobile)
			}
			return fmt.Errorf("create farmer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("farmer registered", zap.String("farmer_id", farmer.ID.Hex()))
	return farmer, nil
}

// UpdateFarmer edits identity fields. Totals are left untouched.
func (s *Service) UpdateFarmer(ctx context.Context, id primitive.ObjectID, input FarmerInput) (*models.Farmer, error) {
	const op = "registry.UpdateFarmer"
	in, err := input.normalize(op)
	if err != nil {
		return nil, err
	}

	var farmer *models.Farmer
	err = s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.FindFarmer(ctx, id)
		if err != nil {
			return notFound(op, "farmer", id.Hex(), err)
		}

		if in.Mobile != "" && in.Mobile != current.Mobile {
			other, err := tx.FindFarmerByMobile(ctx, in.Mobile)
			switch {
			case err == nil && other.ID != id:
				return apperr.Validation(op, "farmer with mobile %s already exists", in.Mobile)
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("find farmer by mobile: %w", err)
			}
		}

		current.Name = in.Name
		current.Mobile = in.Mobile
		current.Village = in.Village
		if err := tx.SaveFarmer(ctx, current); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return apperr.Validation(op, "farmer with mobile %s already exists", in.Mobile)
			}
			return fmt.Errorf("save farmer: %w", err)
		}
		farmer = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return farmer, nil
}

// DeleteFarmer removes the farmer. Purchases, payments and batches remain.
func (s *Service) DeleteFarmer(ctx context.Context, id primitive.ObjectID) error {
	const op = "registry.DeleteFarmer"
	err := s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.DeleteFarmer(ctx, id); err != nil {
			return notFound(op, "farmer", id.Hex(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("farmer deleted", zap.String("farmer_id", id.Hex()))
	return nil
}

func (s *Service) ListFarmers(ctx context.Context, search string) ([]models.Farmer, error) {
	farmers, err := s.store.ListFarmers(ctx, search)
	return farmers, s.fail("registry.ListFarmers", err)
}

func (s *Service) GetFarmer(ctx context.Context, id primitive.ObjectID) (*models.Farmer, error) {
	const op = "registry.GetFarmer"
	farmer, err := s.store.GetFarmer(ctx, id)
	if err != nil {
		return nil, s.fail(op, notFound(op, "farmer", id.Hex(), err))
	}
	return farmer, nil
}

// FarmerLedger returns the farmer with purchases, payments and batches, newest first.
func (s *Service) FarmerLedger(ctx context.Context, id primitive.ObjectID) (*FarmerLedger, error) {
	const op = "registry.FarmerLedger"
	farmer, err := s.GetFarmer(ctx, id)
	if err != nil {
		return nil, err
	}

	purchases, err := s.store.ListPurchases(ctx, id)
	if err != nil {
		return nil, s.fail(op, err)
	}
	payments, err := s.store.ListFarmerPayments(ctx, id)
	if err != nil {
		return nil, s.fail(op, err)
	}
	batches, err := s.store.ListBatches(ctx, id)
	if err != nil {
		return nil, s.fail(op, err)
	}

	return &FarmerLedger{Farmer: farmer, Purchases: purchases, Payments: payments, Batches: batches}, nil
}

func (s *Service) ListBatches(ctx context.Context) ([]models.Batch, error) {
	batches, err := s.store.ListBatches(ctx, primitive.NilObjectID)
	return batches, s.fail("registry.ListBatches", err)
}

func (s *Service) ListVarietyStocks(ctx context.Context) ([]models.VarietyStock, error) {
	stocks, err := s.store.ListVarietyStocks(ctx)
	return stocks, s.fail("registry.ListVarietyStocks", err)
}

func (s *Service) GetVarietyStock(ctx context.Context, variety string) (*models.VarietyStock, error) {
	const op = "registry.GetVarietyStock"
	variety = strings.TrimSpace(variety)
	stock, err := s.store.GetVarietyStock(ctx, variety)
	if err != nil {
		return nil, s.fail(op, notFound(op, "variety", variety, err))
	}
	return stock, nil
}
