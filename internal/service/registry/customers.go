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
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// CustomerInput carries the identity fields of a customer.
type CustomerInput struct {
	Name    string
	Mobile  string
	Address string
	City    string
	State   string
	Pincode string
}

func (in CustomerInput) normalize(op string) (CustomerInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.Pincode = strings.TrimSpace(in.Pincode)
	switch {
	case in.Name == "":
		return in, apperr.Validation(op, "name is required")
	case in.Mobile == "":
		return in, apperr.Validation(op, "mobile is required")
	}
	return in, nil
}

func (in CustomerInput) applyTo(c *models.Customer) {
	c.Name = in.Name
	c.Mobile = in.Mobile
	c.Address = in.Address
	c.City = in.City
	c.State = in.State
	c.Pincode = in.Pincode
}

// PendingBalances lists customers who owe money.
type PendingBalances struct {
	Customers    []models.Customer `json:"customers"`
	TotalPending float64           `json:"totalPending"`
}

// CreateCustomer registers a customer with a zero balance.
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error) {
	const op = "registry.CreateCustomer"
	in, err := input.normalize(op)
	if err != nil {
		return nil, err
	}

	var customer *models.Customer
	err = s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		customer = &models.Customer{}
		in.applyTo(customer)
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return apperr.Validation(op, "customer with mobile %s already exists", in.Mobile)
			}
			return fmt.Errorf("create customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer registered", zap.String("customer_id", customer.ID.Hex()))
	return customer, nil
}

// UpdateCustomer edits identity fields. Balances are left untouched.
func (s *Service) UpdateCustomer(ctx context.Context, id primitive.ObjectID, input CustomerInput) (*models.Customer, error) {
	const op = "registry.UpdateCustomer"
	in, err := input.normalize(op)
	if err != nil {
		return nil, err
	}

	var customer *models.Customer
	err = s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.FindCustomer(ctx, id)
		if err != nil {
			return notFound(op, "customer", id.Hex(), err)
		}

		if in.Mobile != current.Mobile {
			other, err := tx.FindCustomerByMobile(ctx, in.Mobile)
			switch {
			case err == nil && other.ID != id:
				return apperr.Validation(op, "customer with mobile %s already exists", in.Mobile)
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("find customer by mobile: %w", err)
			}
		}

		in.applyTo(current)
		if err := tx.SaveCustomer(ctx, current); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return apperr.Validation(op, "customer with mobile %s already exists", in.Mobile)
			}
			return fmt.Errorf("save customer: %w", err)
		}
		customer = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes the customer. The transaction log remains.
func (s *Service) DeleteCustomer(ctx context.Context, id primitive.ObjectID) error {
	const op = "registry.DeleteCustomer"
	err := s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.DeleteCustomer(ctx, id); err != nil {
			return notFound(op, "customer", id.Hex(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("customer deleted", zap.String("customer_id", id.Hex()))
	return nil
}

func (s *Service) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	customers, err := s.store.ListCustomers(ctx, search)
	return customers, s.fail("registry.ListCustomers", err)
}

func (s *Service) GetCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	const op = "registry.GetCustomer"
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, s.fail(op, notFound(op, "customer", id.Hex(), err))
	}
	return customer, nil
}

func (s *Service) GetCustomerByMobile(ctx context.Context, mobile string) (*models.Customer, error) {
	const op = "registry.GetCustomerByMobile"
	mobile = strings.TrimSpace(mobile)
	customer, err := s.store.GetCustomerByMobile(ctx, mobile)
	if err != nil {
		return nil, s.fail(op, notFound(op, "customer with mobile", mobile, err))
	}
	return customer, nil
}

// PendingBalances returns customers with a positive balance, largest first.
func (s *Service) PendingBalances(ctx context.Context) (*PendingBalances, error) {
	customers, err := s.store.ListCustomersWithBalance(ctx)
	if err != nil {
		return nil, s.fail("registry.PendingBalances", err)
	}

	balances := make([]float64, 0, len(customers))
	for _, c := range customers {
		balances = append(balances, c.Balance)
	}
	return &PendingBalances{Customers: customers, TotalPending: money.Sum(balances...)}, nil
}

// CustomerTransactions returns the credit and payment log of a customer, oldest first.
func (s *Service) CustomerTransactions(ctx context.Context, id primitive.ObjectID) ([]models.CustomerTransaction, error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.store.ListCustomerTransactions(ctx, id)
	return entries, s.fail("registry.CustomerTransactions", err)
}
