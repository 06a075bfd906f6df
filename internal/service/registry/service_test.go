package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
	"github.com/ridhampc123-lang/mango/internal/repository/memory"
	"github.com/ridhampc123-lang/mango/internal/service/ledger"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store, 3, nil), store
}

func TestCreateFarmer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	farmer, err := svc.CreateFarmer(ctx, FarmerInput{Name: "  Ganesh ", Mobile: "9876543210", Village: "Ratnagiri"})
	require.NoError(t, err)
	assert.Equal(t, "Ganesh", farmer.Name)
	assert.False(t, farmer.ID.IsZero())
	assert.Zero(t, farmer.PendingPayment)

	_, err = svc.CreateFarmer(ctx, FarmerInput{Name: "Other", Mobile: "9876543210"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.CreateFarmer(ctx, FarmerInput{Name: " "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateFarmer_WithoutMobileIsNotUnique(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateFarmer(ctx, FarmerInput{Name: "One"})
	require.NoError(t, err)
	_, err = svc.CreateFarmer(ctx, FarmerInput{Name: "Two"})
	require.NoError(t, err)
}

func TestUpdateFarmer_KeepsTotals(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seeded := store.SeedFarmer(models.Farmer{Name: "Ganesh", Mobile: "1", TotalPurchaseAmount: 900, PendingPayment: 900})
	store.SeedFarmer(models.Farmer{Name: "Taken", Mobile: "2"})

	updated, err := svc.UpdateFarmer(ctx, seeded.ID, FarmerInput{Name: "Ganesh Patil", Mobile: "3", Village: "Devgad"})
	require.NoError(t, err)
	assert.Equal(t, "Ganesh Patil", updated.Name)
	assert.Equal(t, 900.0, updated.PendingPayment)
	assert.Equal(t, 900.0, updated.TotalPurchaseAmount)

	_, err = svc.UpdateFarmer(ctx, seeded.ID, FarmerInput{Name: "Ganesh", Mobile: "2"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.UpdateFarmer(ctx, primitive.NewObjectID(), FarmerInput{Name: "Nobody"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteFarmer_KeepsLedgerHistory(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 3, nil)
	engine := ledger.NewService(store, 3, nil)
	ctx := context.Background()

	farmer, err := svc.CreateFarmer(ctx, FarmerInput{Name: "Ganesh"})
	require.NoError(t, err)
	_, err = engine.RecordFarmerPurchase(ctx, ledger.PurchaseRequest{
		FarmerID: farmer.ID, Variety: "Kesar", BoxType: models.Box5, BoxQuantity: 2, RatePerBox: 300,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFarmer(ctx, farmer.ID))
	_, err = svc.GetFarmer(ctx, farmer.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	purchases, err := store.ListPurchases(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.DeleteFarmer(ctx, farmer.ID)))
}

func TestFarmerLedger(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 3, nil)
	engine := ledger.NewService(store, 3, nil)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})

	_, err := engine.RecordFarmerPurchase(ctx, ledger.PurchaseRequest{
		FarmerID: farmer.ID, Variety: "Kesar", BoxType: models.Box10, BoxQuantity: 1, RatePerBox: 500,
	})
	require.NoError(t, err)
	_, err = engine.RecordFarmerPayment(ctx, ledger.FarmerPaymentRequest{FarmerID: farmer.ID, Amount: 200})
	require.NoError(t, err)

	view, err := svc.FarmerLedger(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, view.Farmer.PendingPayment)
	assert.Len(t, view.Purchases, 1)
	assert.Len(t, view.Payments, 1)
	assert.Empty(t, view.Batches)
}

func TestCustomers(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Anita"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	anita, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Anita", Mobile: "9000000001", City: "Pune"})
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "Copy", Mobile: "9000000001"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	byMobile, err := svc.GetCustomerByMobile(ctx, " 9000000001 ")
	require.NoError(t, err)
	assert.Equal(t, anita.ID, byMobile.ID)

	store.SeedCustomer(models.Customer{Name: "Big", Mobile: "2", TotalCredit: 900, Balance: 900})
	store.SeedCustomer(models.Customer{Name: "Small", Mobile: "3", TotalCredit: 100.25, Balance: 100.25})

	pending, err := svc.PendingBalances(ctx)
	require.NoError(t, err)
	require.Len(t, pending.Customers, 2)
	assert.Equal(t, "Big", pending.Customers[0].Name)
	assert.Equal(t, 1000.25, pending.TotalPending)

	updated, err := svc.UpdateCustomer(ctx, anita.ID, CustomerInput{Name: "Anita K", Mobile: "9000000009", City: "Mumbai"})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)

	_, err = svc.UpdateCustomer(ctx, anita.ID, CustomerInput{Name: "Anita", Mobile: "2"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, svc.DeleteCustomer(ctx, anita.ID))
	_, err = svc.CustomerTransactions(ctx, anita.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestLabour(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLabour(ctx, LabourInput{WorkerName: "Suresh", HoursWorked: 0, RatePerHour: 50})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	suresh, err := svc.CreateLabour(ctx, LabourInput{WorkerName: "Suresh", HoursWorked: 7.5, RatePerHour: 60, WorkDate: day})
	require.NoError(t, err)
	assert.Equal(t, 450.0, suresh.Wage)
	assert.False(t, suresh.IsPaid)

	_, err = svc.CreateLabour(ctx, LabourInput{WorkerName: "Mahesh", HoursWorked: 4, RatePerHour: 55.5, WorkDate: day.AddDate(0, 0, 1)})
	require.NoError(t, err)

	pending, err := svc.PendingLabour(ctx)
	require.NoError(t, err)
	assert.Len(t, pending.Entries, 2)
	assert.Equal(t, 672.0, pending.TotalPending)

	from := day.AddDate(0, 0, 1)
	later, err := svc.ListLabour(ctx, repository.LabourFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "Mahesh", later[0].WorkerName)

	require.NoError(t, svc.DeleteLabour(ctx, suresh.ID))
	_, err = svc.GetLabour(ctx, suresh.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateExpense_DefaultsCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	expense, err := svc.CreateExpense(ctx, ExpenseInput{Title: "Diesel", Amount: 1250.555})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultExpenseCategory, expense.Category)
	assert.Equal(t, 1250.56, expense.Amount)

	_, err = svc.CreateExpense(ctx, ExpenseInput{Title: "Refund", Amount: -5})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	list, err := svc.ListExpenses(ctx, repository.ExpenseFilter{Category: "general"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateLabour_WageFollowsStoredRate(t *testing.T) {
	svc, _ := newTestService(t)

	entry, err := svc.CreateLabour(context.Background(), LabourInput{WorkerName: "Vijay", HoursWorked: 1000, RatePerHour: 1.005})
	require.NoError(t, err)

	assert.Equal(t, 1.01, entry.RatePerHour)
	assert.Equal(t, 1010.0, entry.Wage)
	assert.Equal(t, money.Mul(entry.HoursWorked, entry.RatePerHour), entry.Wage)
}

func validOrder() OrderInput {
	return OrderInput{
		CustomerName:   " Asha Patil ",
		CustomerMobile: "9000000001",
		Address:        "Shivaji Nagar, Pune",
		BoxType:        10,
		BoxPrice:       1250,
		BoxQuantity:    3,
		Date:           time.Date(2025, time.April, 12, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateOrder_ComputesTotalAndInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, validOrder())
	require.NoError(t, err)
	assert.Equal(t, "Asha Patil", first.CustomerName)
	assert.Equal(t, "INV-2025-0001", first.InvoiceNumber)
	assert.Equal(t, 3750.0, first.TotalAmount)
	assert.Equal(t, models.Box10, first.BoxType)
	assert.Equal(t, models.OrderPending, first.PaymentStatus)

	in := validOrder()
	in.PaymentStatus = "paid"
	second, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0002", second.InvoiceNumber)
	assert.Equal(t, models.OrderPaid, second.PaymentStatus)

	in = validOrder()
	in.Date = time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)
	nextYear, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", nextYear.InvoiceNumber)
}

func TestCreateOrder_TotalFollowsStoredPrice(t *testing.T) {
	svc, _ := newTestService(t)
	in := validOrder()
	in.BoxPrice = 1.005
	in.BoxQuantity = 1000

	order, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1.01, order.BoxPrice)
	assert.Equal(t, money.Mul(float64(order.BoxQuantity), order.BoxPrice), order.TotalAmount)
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OrderInput)
	}{
		{name: "missing name", mutate: func(in *OrderInput) { in.CustomerName = " " }},
		{name: "missing mobile", mutate: func(in *OrderInput) { in.CustomerMobile = "" }},
		{name: "missing address", mutate: func(in *OrderInput) { in.Address = "" }},
		{name: "unknown box", mutate: func(in *OrderInput) { in.BoxType = 7 }},
		{name: "zero price", mutate: func(in *OrderInput) { in.BoxPrice = 0 }},
		{name: "zero quantity", mutate: func(in *OrderInput) { in.BoxQuantity = 0 }},
		{name: "bad status", mutate: func(in *OrderInput) { in.PaymentStatus = "Partial" }},
	}

	svc, store := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validOrder()
			tt.mutate(&in)
			_, err := svc.CreateOrder(context.Background(), in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	orders, err := store.ListOrders(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_ParallelInvoicesAreUnique(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 50, nil)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, validOrder())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	orders, err := store.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, n)
	seen := make(map[string]bool, n)
	for _, o := range orders {
		seen[o.InvoiceNumber] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["INV-2025-0001"])
	assert.True(t, seen["INV-2025-0010"])
}

func TestUpdateOrder_RecomputesTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, validOrder())
	require.NoError(t, err)

	qty, boxType, address := 4, 5, " Kothrud "
	updated, err := svc.UpdateOrder(ctx, order.ID, OrderUpdate{BoxQuantity: &qty, BoxType: &boxType, Address: &address})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, updated.TotalAmount)
	assert.Equal(t, models.Box5, updated.BoxType)
	assert.Equal(t, "Kothrud", updated.Address)
	assert.Equal(t, order.InvoiceNumber, updated.InvoiceNumber)

	price := -1.0
	_, err = svc.UpdateOrder(ctx, order.ID, OrderUpdate{BoxPrice: &price})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	paid, err := svc.SetOrderPaymentStatus(ctx, order.ID, "Paid")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.PaymentStatus)
	assert.Equal(t, 5000.0, paid.TotalAmount)

	_, err = svc.SetOrderPaymentStatus(ctx, order.ID, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDeleteOrder_DoesNotReissueInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.CreateOrder(ctx, validOrder())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, first.ID))
	_, err = svc.GetOrder(ctx, first.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	second, err := svc.CreateOrder(ctx, validOrder())
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0002", second.InvoiceNumber)
}

func TestOrders_UnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	missing := primitive.NewObjectID()
	qty := 2

	_, err := svc.UpdateOrder(ctx, missing, OrderUpdate{BoxQuantity: &qty})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.DeleteOrder(ctx, missing)))
}
