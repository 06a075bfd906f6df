package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
	"github.com/ridhampc123-lang/mango/internal/repository/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store, 5, nil), store
}

func assertFarmerBalanced(t *testing.T, f *models.Farmer) {
	t.Helper()
	assert.Equal(t, money.Sub(f.TotalPurchaseAmount, f.TotalPaymentGiven), f.PendingPayment, "pending must equal purchases minus payments")
	assert.False(t, money.IsNegative(f.PendingPayment))
}

func alphonsoPurchase(farmerID primitive.ObjectID) PurchaseRequest {
	return PurchaseRequest{
		FarmerID:     farmerID,
		Variety:      "Alphonso",
		BoxType:      models.Box10,
		BoxQuantity:  5,
		RatePerBox:   800,
		PaymentGiven: 2000,
	}
}

func TestRecordFarmerPurchase_ScenarioA(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})

	res, err := svc.RecordFarmerPurchase(ctx, alphonsoPurchase(farmer.ID))
	require.NoError(t, err)

	assert.Equal(t, 50, res.Purchase.TotalKg)
	assert.Equal(t, 4000.0, res.Purchase.TotalCost)
	assert.Equal(t, 2000.0, res.Purchase.PendingAmount)

	stored, err := store.GetFarmer(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.TotalBoxes10)
	assert.Equal(t, 0, stored.TotalBoxes5)
	assert.Equal(t, 4000.0, stored.TotalPurchaseAmount)
	assert.Equal(t, 2000.0, stored.TotalPaymentGiven)
	assert.Equal(t, 2000.0, stored.PendingPayment)
	assertFarmerBalanced(t, stored)

	stock, err := store.GetVarietyStock(ctx, "Alphonso")
	require.NoError(t, err)
	assert.Equal(t, 5, stock.Box10Total)
	assert.Equal(t, 0, stock.Box5Total)
	assert.Equal(t, *stock, *res.Stock)

	purchases, err := store.ListPurchases(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestRecordFarmerPayment_ScenarioB(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})

	_, err := svc.RecordFarmerPurchase(ctx, alphonsoPurchase(farmer.ID))
	require.NoError(t, err)

	res, err := svc.RecordFarmerPayment(ctx, FarmerPaymentRequest{FarmerID: farmer.ID, Amount: 2000})
	require.NoError(t, err)
	assert.Equal(t, 4000.0, res.Farmer.TotalPaymentGiven)
	assert.Equal(t, 0.0, res.Farmer.PendingPayment)
	assert.Equal(t, 0.0, res.Payment.PendingAfter)
	assertFarmerBalanced(t, res.Farmer)

	_, err = svc.RecordFarmerPayment(ctx, FarmerPaymentRequest{FarmerID: farmer.ID, Amount: 1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stored, _ := store.GetFarmer(ctx, farmer.ID)
	assert.Equal(t, 4000.0, stored.TotalPaymentGiven)
	assert.Equal(t, 0.0, stored.PendingPayment)

	payments, err := store.ListFarmerPayments(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestRecordFarmerPayment_OverpayLeavesFarmerUnchanged(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh", TotalPurchaseAmount: 300, PendingPayment: 300})

	_, err := svc.RecordFarmerPayment(ctx, FarmerPaymentRequest{FarmerID: farmer.ID, Amount: 300.01})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	stored, _ := store.GetFarmer(ctx, farmer.ID)
	assert.Equal(t, farmer, *stored)
}

func TestRecordCustomerEntries_ScenarioC(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	customer := store.SeedCustomer(models.Customer{Name: "Anita", Mobile: "9000000001"})

	credit, err := svc.RecordCustomerCredit(ctx, CustomerEntryRequest{CustomerID: customer.ID, Amount: 500, Description: "10 boxes"})
	require.NoError(t, err)
	assert.Equal(t, 500.0, credit.Customer.Balance)
	assert.Equal(t, 500.0, credit.Customer.TotalCredit)
	assert.Equal(t, 500.0, credit.Customer.TotalPurchase)
	assert.Equal(t, models.CustomerCredit, credit.Transaction.Kind)

	_, err = svc.RecordCustomerPayment(ctx, CustomerEntryRequest{CustomerID: customer.ID, Amount: 600})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	stored, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, stored.Balance)

	log, err := store.ListCustomerTransactions(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestCustomerBalanceMatchesLog(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	customer := store.SeedCustomer(models.Customer{Name: "Anita", Mobile: "9000000001"})

	steps := []struct {
		credit bool
		amount float64
	}{
		{true, 120.10}, {true, 80.20}, {false, 50.15}, {true, 0.30}, {false, 150.45},
	}
	for _, step := range steps {
		req := CustomerEntryRequest{CustomerID: customer.ID, Amount: step.amount}
		var err error
		if step.credit {
			_, err = svc.RecordCustomerCredit(ctx, req)
		} else {
			_, err = svc.RecordCustomerPayment(ctx, req)
		}
		require.NoError(t, err)
	}

	stored, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Sub(stored.TotalCredit, stored.TotalPaid), stored.Balance)
	assert.Equal(t, 0.0, stored.Balance)

	log, err := store.ListCustomerTransactions(ctx, customer.ID)
	require.NoError(t, err)
	signed := make([]float64, 0, len(log))
	for _, entry := range log {
		signed = append(signed, entry.SignedAmount())
	}
	assert.Equal(t, stored.Balance, money.Sum(signed...))
	assert.Equal(t, stored.Balance, log[len(log)-1].BalanceAfter)
}

func TestRecordFarmerPurchase_ConcurrentNewVarietyScenarioD(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	f1 := store.SeedFarmer(models.Farmer{Name: "One"})
	f2 := store.SeedFarmer(models.Farmer{Name: "Two"})

	other := NewService(store, 5, nil)
	racing := &interleavingStore{Store: store}
	racing.during = func() {
		_, err := other.RecordFarmerPurchase(ctx, PurchaseRequest{
			FarmerID: f2.ID, Variety: "Kesar", BoxType: models.Box5, BoxQuantity: 3, RatePerBox: 400,
		})
		require.NoError(t, err)
	}
	svc := NewService(racing, 5, nil)

	_, err := svc.RecordFarmerPurchase(ctx, PurchaseRequest{
		FarmerID: f1.ID, Variety: "Kesar", BoxType: models.Box10, BoxQuantity: 4, RatePerBox: 700,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, racing.attempts, "first attempt must lose the create race and replay")

	stocks, err := store.ListVarietyStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "Kesar", stocks[0].Variety)
	assert.Equal(t, 3, stocks[0].Box5Total)
	assert.Equal(t, 4, stocks[0].Box10Total)
}

func TestRecordFarmerPurchase_ParallelNoLostIncrements(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 50, nil)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Shared"})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordFarmerPurchase(ctx, PurchaseRequest{
				FarmerID: farmer.ID, Variety: "Kesar", BoxType: models.Box5, BoxQuantity: 2, RatePerBox: 100, PaymentGiven: 50,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stock, err := store.GetVarietyStock(ctx, "Kesar")
	require.NoError(t, err)
	assert.Equal(t, 2*workers, stock.Box5Total)

	stored, err := store.GetFarmer(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*workers, stored.TotalBoxes5)
	assert.Equal(t, float64(200*workers), stored.TotalPurchaseAmount)
	assert.Equal(t, float64(150*workers), stored.PendingPayment)
	assertFarmerBalanced(t, stored)
}

func TestRecordFarmerPurchase_AtomicOnFailure(t *testing.T) {
	for _, point := range []string{"CreatePurchase", "SaveFarmer", "CreateVarietyStock", memory.CommitFault} {
		t.Run(point, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()
			farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})
			store.InjectFault(point, errors.New("store unavailable"))

			_, err := svc.RecordFarmerPurchase(ctx, alphonsoPurchase(farmer.ID))
			require.Error(t, err)
			assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))

			stored, _ := store.GetFarmer(ctx, farmer.ID)
			assert.Equal(t, farmer, *stored)
			purchases, _ := store.ListPurchases(ctx, primitive.NilObjectID)
			assert.Empty(t, purchases)
			_, err = store.GetVarietyStock(ctx, "Alphonso")
			assert.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}

func TestRecordFarmerPurchase_Validation(t *testing.T) {
	svc, store := newTestService(t)
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})
	base := alphonsoPurchase(farmer.ID)

	tests := []struct {
		name   string
		mutate func(r *PurchaseRequest)
	}{
		{"missing farmer id", func(r *PurchaseRequest) { r.FarmerID = primitive.NilObjectID }},
		{"blank variety", func(r *PurchaseRequest) { r.Variety = "  " }},
		{"bad box type", func(r *PurchaseRequest) { r.BoxType = 7 }},
		{"zero quantity", func(r *PurchaseRequest) { r.BoxQuantity = 0 }},
		{"rate below one", func(r *PurchaseRequest) { r.RatePerBox = 0.5 }},
		{"negative payment", func(r *PurchaseRequest) { r.PaymentGiven = -1 }},
		{"payment above cost", func(r *PurchaseRequest) { r.PaymentGiven = 4000.01 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := svc.RecordFarmerPurchase(context.Background(), req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	purchases, _ := store.ListPurchases(context.Background(), primitive.NilObjectID)
	assert.Empty(t, purchases)
}

func TestRecordFarmerPurchase_UnknownFarmer(t *testing.T) {
	svc, store := newTestService(t)
	_, err := svc.RecordFarmerPurchase(context.Background(), alphonsoPurchase(primitive.NewObjectID()))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	stocks, _ := store.ListVarietyStocks(context.Background())
	assert.Empty(t, stocks)
}

func TestRecordBatchArrival(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh", TotalPurchaseAmount: 1000, TotalPaymentGiven: 400, PendingPayment: 600})

	res, err := svc.RecordBatchArrival(ctx, BatchRequest{
		FarmerID: farmer.ID, Variety: "Kesar", Box5: 4, Box10: 2, CostPerBox5: 250.5, CostPerBox10: 480,
	})
	require.NoError(t, err)

	assert.Equal(t, 1962.0, res.Batch.TotalCost)
	assert.Regexp(t, `^BATCH-KESAR-\d{8}-\d{2}$`, res.Batch.BatchID)
	assert.Equal(t, 2562.0, res.Farmer.PendingPayment)
	assert.Equal(t, 2962.0, res.Farmer.TotalPurchaseAmount)
	assert.Equal(t, 4, res.Farmer.TotalBoxes5)
	assert.Equal(t, 2, res.Farmer.TotalBoxes10)
	assertFarmerBalanced(t, res.Farmer)

	assert.Equal(t, 4, res.Stock.Box5Total)
	assert.Equal(t, 2, res.Stock.Box10Total)

	batches, err := store.ListBatches(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestRecordBatchArrival_RejectsEmptyBatch(t *testing.T) {
	svc, store := newTestService(t)
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})

	_, err := svc.RecordBatchArrival(context.Background(), BatchRequest{FarmerID: farmer.ID, Variety: "Kesar"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRecordBatchArrival_DuplicateBatchIDIsRetried(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})
	store.InjectFault("CreateBatch", repository.ErrDuplicateKey)

	_, err := svc.RecordBatchArrival(ctx, BatchRequest{FarmerID: farmer.ID, Variety: "Kesar", Box5: 1, CostPerBox5: 100})
	require.NoError(t, err)

	batches, _ := store.ListBatches(ctx, primitive.NilObjectID)
	assert.Len(t, batches, 1)
}

func TestMarkLabourPaid_Idempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	labour := models.Labour{WorkerName: "Suresh", HoursWorked: 8, RatePerHour: 50, Wage: 400}
	require.NoError(t, store.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateLabour(ctx, &labour)
	}))

	first, err := svc.MarkLabourPaid(ctx, LabourPayRequest{LabourID: labour.ID})
	require.NoError(t, err)
	require.True(t, first.IsPaid)
	require.NotNil(t, first.PaidDate)

	second, err := svc.MarkLabourPaid(ctx, LabourPayRequest{LabourID: labour.ID})
	require.NoError(t, err)
	assert.True(t, second.IsPaid)
	assert.Equal(t, first.PaidDate, second.PaidDate)
	assert.Equal(t, first.Version, second.Version)

	stored, err := store.GetLabour(ctx, labour.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version, stored.Version)
}

func TestMarkLabourPaid_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.MarkLabourPaid(context.Background(), LabourPayRequest{LabourID: primitive.NewObjectID()})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRunInTx_ExhaustedConflictsSurfaceAsConflict(t *testing.T) {
	svc := NewService(alwaysConflicting{}, 3, nil)
	_, err := svc.RecordCustomerCredit(context.Background(), CustomerEntryRequest{CustomerID: primitive.NewObjectID(), Amount: 10})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorIs(t, err, repository.ErrConflict)
}

// interleavingStore runs during once, after the first unit has staged its
// writes and before it commits.
type interleavingStore struct {
	*memory.Store
	once     sync.Once
	during   func()
	attempts int
}

func (s *interleavingStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.attempts++
	return s.Store.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		s.once.Do(s.during)
		return nil
	})
}

type alwaysConflicting struct{}

func (alwaysConflicting) WithTransaction(context.Context, func(context.Context, repository.Tx) error) error {
	return repository.ErrConflict
}

func TestRecordFarmerPurchase_CostFollowsStoredRate(t *testing.T) {
	svc, store := newTestService(t)
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})

	res, err := svc.RecordFarmerPurchase(context.Background(), PurchaseRequest{
		FarmerID: farmer.ID, Variety: "Kesar", BoxType: models.Box5, BoxQuantity: 1000, RatePerBox: 1.005, PaymentGiven: 0.005,
	})
	require.NoError(t, err)

	p := res.Purchase
	assert.Equal(t, 1.01, p.RatePerBox)
	assert.Equal(t, money.Mul(float64(p.BoxQuantity), p.RatePerBox), p.TotalCost)
	assert.Equal(t, 1010.0, p.TotalCost)
	assert.Equal(t, 0.01, p.PaymentGiven)
	assert.Equal(t, money.Sub(p.TotalCost, p.PaymentGiven), p.PendingAmount)
	assertFarmerBalanced(t, res.Farmer)
}

func TestRecordBatchArrival_CostFollowsStoredRates(t *testing.T) {
	svc, store := newTestService(t)
	farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})

	res, err := svc.RecordBatchArrival(context.Background(), BatchRequest{
		FarmerID: farmer.ID, Variety: "Kesar", Box5: 1000, Box10: 100, CostPerBox5: 1.005, CostPerBox10: 2.499,
	})
	require.NoError(t, err)

	b := res.Batch
	assert.Equal(t, 1.01, b.CostPerBox5)
	assert.Equal(t, 2.5, b.CostPerBox10)
	assert.Equal(t, money.Add(money.Mul(float64(b.Box5), b.CostPerBox5), money.Mul(float64(b.Box10), b.CostPerBox10)), b.TotalCost)
	assert.Equal(t, 1260.0, b.TotalCost)
	assertFarmerBalanced(t, res.Farmer)
}

func TestRecordFarmerPayment_ParallelNeverOverpays(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 50, nil)
	ctx := context.Background()
	farmer := store.SeedFarmer(models.Farmer{Name: "Shared", TotalPurchaseAmount: 1000, PendingPayment: 1000})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordFarmerPayment(ctx, FarmerPaymentRequest{FarmerID: farmer.ID, Amount: 400})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	assert.Equal(t, 2, succeeded)

	stored, err := store.GetFarmer(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, 800.0, stored.TotalPaymentGiven)
	assert.Equal(t, 200.0, stored.PendingPayment)
	assertFarmerBalanced(t, stored)

	payments, err := store.ListFarmerPayments(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestRecordCustomerPayment_ParallelNeverOverpays(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 50, nil)
	ctx := context.Background()
	customer := store.SeedCustomer(models.Customer{Name: "Anita", Mobile: "9000000001", TotalPurchase: 1000, TotalCredit: 1000, Balance: 1000})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordCustomerPayment(ctx, CustomerEntryRequest{CustomerID: customer.ID, Amount: 400})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	assert.Equal(t, 2, succeeded)

	stored, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, stored.Balance)
	assert.Equal(t, 800.0, stored.TotalPaid)
	assert.Equal(t, money.Sub(stored.TotalCredit, stored.TotalPaid), stored.Balance)

	log, err := store.ListCustomerTransactions(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, log, 2)
}

func TestLedger_UnknownEntities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	missing := primitive.NewObjectID()

	_, err := svc.RecordFarmerPayment(ctx, FarmerPaymentRequest{FarmerID: missing, Amount: 10})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.RecordCustomerCredit(ctx, CustomerEntryRequest{CustomerID: missing, Amount: 10})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.RecordCustomerPayment(ctx, CustomerEntryRequest{CustomerID: missing, Amount: 10})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.RecordBatchArrival(ctx, BatchRequest{FarmerID: missing, Variety: "Kesar", Box5: 1, CostPerBox5: 100})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRecordBatchArrival_AtomicOnFailure(t *testing.T) {
	for _, point := range []string{"CreateBatch", "SaveFarmer", "CreateVarietyStock", memory.CommitFault} {
		t.Run(point, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()
			farmer := store.SeedFarmer(models.Farmer{Name: "Ganesh"})
			store.InjectFault(point, errors.New("store unavailable"))

			_, err := svc.RecordBatchArrival(ctx, BatchRequest{FarmerID: farmer.ID, Variety: "Kesar", Box5: 4, Box10: 2, CostPerBox5: 300, CostPerBox10: 550})
			require.Error(t, err)
			assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))

			stored, _ := store.GetFarmer(ctx, farmer.ID)
			assert.Equal(t, farmer, *stored)
			batches, _ := store.ListBatches(ctx, primitive.NilObjectID)
			assert.Empty(t, batches)
			_, err = store.GetVarietyStock(ctx, "Kesar")
			assert.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}
