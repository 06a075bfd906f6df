package memory

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

func contains(field, search string) bool {
	return strings.Contains(strings.ToLower(field), search)
}

func (s *Store) ListFarmers(_ context.Context, search string) ([]models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Farmer, 0, len(s.farmers))
	for _, f := range s.farmers {
		if search == "" || contains(f.Name, search) || contains(f.Mobile, search) || contains(f.Village, search) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetFarmer(_ context.Context, id primitive.ObjectID) (*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.farmers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (s *Store) ListPurchases(_ context.Context, farmerID primitive.ObjectID) ([]models.FarmerPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FarmerPurchase, 0)
	for _, p := range s.purchases {
		if farmerID.IsZero() || p.FarmerID == farmerID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) ListFarmerPayments(_ context.Context, farmerID primitive.ObjectID) ([]models.FarmerPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FarmerPayment, 0)
	for _, p := range s.payments {
		if farmerID.IsZero() || p.FarmerID == farmerID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) ListBatches(_ context.Context, farmerID primitive.ObjectID) ([]models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Batch, 0)
	for _, b := range s.batches {
		if farmerID.IsZero() || b.FarmerID == farmerID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArrivalDate.After(out[j].ArrivalDate) })
	return out, nil
}

func (s *Store) ListVarietyStocks(_ context.Context) ([]models.VarietyStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.VarietyStock, 0, len(s.stocks))
	for _, v := range s.stocks {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variety < out[j].Variety })
	return out, nil
}

func (s *Store) GetVarietyStock(_ context.Context, variety string) (*models.VarietyStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.stocks[variety]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if search == "" || contains(c.Name, search) || contains(c.Mobile, search) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCustomersWithBalance(_ context.Context) ([]models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Customer, 0)
	for _, c := range s.customers {
		if c.Balance > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetCustomerByMobile(_ context.Context, mobile string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.Mobile == mobile {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListCustomerTransactions(_ context.Context, customerID primitive.ObjectID) ([]models.CustomerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CustomerTransaction, 0)
	for _, t := range s.customerTxs {
		if customerID.IsZero() || t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ListLabour(_ context.Context, filter repository.LabourFilter) ([]models.Labour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(filter.WorkerName))
	out := make([]models.Labour, 0)
	for _, l := range s.labour {
		if filter.IsPaid != nil && l.IsPaid != *filter.IsPaid {
			continue
		}
		if name != "" && !contains(l.WorkerName, name) {
			continue
		}
		if filter.From != nil && l.WorkDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && l.WorkDate.After(*filter.To) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.After(out[j].WorkDate) })
	return out, nil
}

func (s *Store) GetLabour(_ context.Context, id primitive.ObjectID) (*models.Labour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.labour[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (s *Store) ListExpenses(_ context.Context, filter repository.ExpenseFilter) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Expense, 0)
	for _, e := range s.expenses {
		if filter.Category != "" && !strings.EqualFold(e.Category, filter.Category) {
			continue
		}
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Date.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) ListOrders(_ context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if search != "" && !contains(o.CustomerName, search) && !contains(o.CustomerMobile, search) && !contains(o.InvoiceNumber, search) {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.From != nil && o.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && o.Date.After(*filter.To) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].InvoiceNumber > out[j].InvoiceNumber
	})
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}
