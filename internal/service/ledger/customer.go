package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// RecordCustomerCredit adds goods taken on credit to the customer's balance.
func (s *Service) RecordCustomerCredit(ctx context.Context, req CustomerEntryRequest) (*CustomerResult, error) {
	const op = "ledger.RecordCustomerCredit"
	if err := req.validate(op); err != nil {
		return nil, err
	}
	amount := money.Round(req.Amount)

	return s.customerEntry(ctx, op, req, models.CustomerCredit, func(c *models.Customer) error {
		c.Balance = money.Add(c.Balance, amount)
		c.TotalPurchase = money.Add(c.TotalPurchase, amount)
		c.TotalCredit = money.Add(c.TotalCredit, amount)
		return nil
	})
}

// RecordCustomerPayment reduces the customer's balance. Paying more than is
// owed is rejected.
func (s *Service) RecordCustomerPayment(ctx context.Context, req CustomerEntryRequest) (*CustomerResult, error) {
	const op = "ledger.RecordCustomerPayment"
	if err := req.validate(op); err != nil {
		return nil, err
	}
	amount := money.Round(req.Amount)

	return s.customerEntry(ctx, op, req, models.CustomerPayment, func(c *models.Customer) error {
		if money.Cmp(amount, c.Balance) > 0 {
			return apperr.Validation(op, "amount %.2f exceeds balance %.2f", amount, c.Balance)
		}
		c.Balance = money.Sub(c.Balance, amount)
		c.TotalPaid = money.Add(c.TotalPaid, amount)
		return nil
	})
}

func (s *Service) customerEntry(ctx context.Context, op string, req CustomerEntryRequest, kind models.CustomerTransactionKind, apply func(*models.Customer) error) (*CustomerResult, error) {
	var result *CustomerResult
	err := s.runInTx(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		customer, err := findCustomer(ctx, tx, op, req.CustomerID)
		if err != nil {
			return err
		}
		if err := apply(customer); err != nil {
			return err
		}
		if err := checkCustomer(op, customer); err != nil {
			return err
		}

		entry := &models.CustomerTransaction{
			CustomerID:   customer.ID,
			Kind:         kind,
			Amount:       money.Round(req.Amount),
			Description:  strings.TrimSpace(req.Description),
			BalanceAfter: customer.Balance,
		}
		if err := tx.CreateCustomerTransaction(ctx, entry); err != nil {
			return fmt.Errorf("create customer transaction: %w", err)
		}
		if err := tx.SaveCustomer(ctx, customer); err != nil {
			return fmt.Errorf("save customer: %w", err)
		}

		result = &CustomerResult{Customer: customer, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer entry recorded",
		zap.String("customer_id", req.CustomerID.Hex()),
		zap.String("kind", string(kind)),
		zap.Float64("amount", result.Transaction.Amount),
		zap.Float64("balance", result.Customer.Balance),
	)
	return result, nil
}

func findCustomer(ctx context.Context, tx repository.Tx, op string, id primitive.ObjectID) (*models.Customer, error) {
	customer, err := tx.FindCustomer(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(op, "customer %s not found", id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return customer, nil
}
