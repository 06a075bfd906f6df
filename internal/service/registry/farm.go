package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// LabourInput describes one day of work.
type LabourInput struct {
	WorkerName  string
	PhoneNumber string
	HoursWorked float64
	RatePerHour float64
	WorkDate    time.Time
	Notes       string
}

// ExpenseInput describes one operating expense.
type ExpenseInput struct {
	Title    string
	Amount   float64
	Category string
	Date     time.Time
}

// PendingLabour lists unpaid wage entries.
type PendingLabour struct {
	Entries      []models.Labour `json:"entries"`
	TotalPending float64         `json:"totalPending"`
}

// CreateLabour records an unpaid wage entry; the wage is hours × rate.
func (s *Service) CreateLabour(ctx context.Context, in LabourInput) (*models.Labour, error) {
	const op = "registry.CreateLabour"
	in.WorkerName = strings.TrimSpace(in.WorkerName)
	switch {
	case in.WorkerName == "":
		return nil, apperr.Validation(op, "workerName is required")
	case !money.Finite(in.HoursWorked) || money.Cmp(in.HoursWorked, 0) <= 0:
		return nil, apperr.Validation(op, "hoursWorked must be greater than 0")
	case !money.Finite(in.RatePerHour) || money.Cmp(in.RatePerHour, 0) <= 0:
		return nil, apperr.Validation(op, "ratePerHour must be greater than 0")
	}
	if in.WorkDate.IsZero() {
		in.WorkDate = time.Now().UTC()
	}
	rate := money.Round(in.RatePerHour)

	labour := &models.Labour{
		WorkerName:  in.WorkerName,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		HoursWorked: in.HoursWorked,
		RatePerHour: rate,
		Wage:        money.Mul(in.HoursWorked, rate),
		WorkDate:    in.WorkDate,
		Notes:       strings.TrimSpace(in.Notes),
	}
	err := s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateLabour(ctx, labour); err != nil {
			return fmt.Errorf("create labour: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("labour recorded", zap.String("labour_id", labour.ID.Hex()), zap.Float64("wage", labour.Wage))
	return labour, nil
}

func (s *Service) ListLabour(ctx context.Context, filter repository.LabourFilter) ([]models.Labour, error) {
	entries, err := s.store.ListLabour(ctx, filter)
	return entries, s.fail("registry.ListLabour", err)
}

// PendingLabour returns unpaid wage entries and their total.
func (s *Service) PendingLabour(ctx context.Context) (*PendingLabour, error) {
	unpaid := false
	entries, err := s.store.ListLabour(ctx, repository.LabourFilter{IsPaid: &unpaid})
	if err != nil {
		return nil, s.fail("registry.PendingLabour", err)
	}

	wages := make([]float64, 0, len(entries))
	for _, l := range entries {
		wages = append(wages, l.Wage)
	}
	return &PendingLabour{Entries: entries, TotalPending: money.Sum(wages...)}, nil
}

func (s *Service) GetLabour(ctx context.Context, id primitive.ObjectID) (*models.Labour, error) {
	const op = "registry.GetLabour"
	labour, err := s.store.GetLabour(ctx, id)
	if err != nil {
		return nil, s.fail(op, notFound(op, "labour record", id.Hex(), err))
	}
	return labour, nil
}

func (s *Service) DeleteLabour(ctx context.Context, id primitive.ObjectID) error {
	const op = "registry.DeleteLabour"
	return s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.DeleteLabour(ctx, id); err != nil {
			return notFound(op, "labour record", id.Hex(), err)
		}
		return nil
	})
}

// CreateExpense records an expense; an empty category becomes the default.
func (s *Service) CreateExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	const op = "registry.CreateExpense"
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return nil, apperr.Validation(op, "title is required")
	case !money.Finite(in.Amount) || money.IsNegative(in.Amount):
		return nil, apperr.Validation(op, "amount must not be negative")
	}

	expense := &models.Expense{
		Title:    in.Title,
		Amount:   money.Round(in.Amount),
		Category: strings.TrimSpace(in.Category),
		Date:     in.Date,
	}
	if expense.Category == "" {
		expense.Category = models.DefaultExpenseCategory
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}

	err := s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateExpense(ctx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, filter repository.ExpenseFilter) ([]models.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, filter)
	return expenses, s.fail("registry.ListExpenses", err)
}
