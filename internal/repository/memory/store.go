// Package memory provides an in-process ledger store.
//
// Units of work read committed state plus their own staged writes and apply
// everything at commit, after checking that no document they touched has been
// changed by a concurrent commit. A lost race returns repository.ErrConflict,
// the same way a MongoDB write conflict does, so retry paths can be exercised
// without a replica set.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// CommitFault is the fault point checked right before staged writes are applied.
const CommitFault = "Commit"

// Store is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	farmers     map[primitive.ObjectID]models.Farmer
	purchases   []models.FarmerPurchase
	payments    []models.FarmerPayment
	batches     []models.Batch
	stocks      map[string]models.VarietyStock
	customers   map[primitive.ObjectID]models.Customer
	customerTxs []models.CustomerTransaction
	labour      map[primitive.ObjectID]models.Labour
	expenses    []models.Expense
	orders      map[primitive.ObjectID]models.Order
	invoices    map[int]models.InvoiceCounter
	reports     []models.DailyReport
	batchIDs    map[string]bool

	faultMu sync.Mutex
	faults  map[string]error
}

var _ repository.LedgerStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:       time.Now,
		farmers:   make(map[primitive.ObjectID]models.Farmer),
		stocks:    make(map[string]models.VarietyStock),
		customers: make(map[primitive.ObjectID]models.Customer),
		labour:    make(map[primitive.ObjectID]models.Labour),
		orders:    make(map[primitive.ObjectID]models.Order),
		invoices:  make(map[int]models.InvoiceCounter),
		batchIDs:  make(map[string]bool),
		faults:    make(map[string]error),
	}
}

// InjectFault makes the next call to the named Tx method (or CommitFault)
// fail with err. Each injected fault fires once.
func (s *Store) InjectFault(point string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[point] = err
}

func (s *Store) fault(point string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	err, ok := s.faults[point]
	if !ok {
		return nil
	}
	delete(s.faults, point)
	return err
}

// WithTransaction implements repository.Store.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(s)
	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit()
}

// SaveDailyReport implements repository.ReportRepository.
func (s *Store) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// DailyReports returns the reports saved so far.
func (s *Store) DailyReports() []models.DailyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DailyReport(nil), s.reports...)
}

// SeedFarmer writes a farmer directly, bypassing the ledger. Intended for
// fixtures and for reproducing damaged data.
func (s *Store) SeedFarmer(f models.Farmer) models.Farmer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	s.farmers[f.ID] = f
	return f
}

// SeedCustomer writes a customer directly, bypassing the ledger.
func (s *Store) SeedCustomer(c models.Customer) models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.customers[c.ID] = c
	return c
}

// staged holds the writes of one unit of work for a keyed collection.
// A nil row marks a deletion.
type staged[K comparable, T any] struct {
	rows    map[K]*T
	base    map[K]int64
	created map[K]bool
}

func newStaged[K comparable, T any]() *staged[K, T] {
	return &staged[K, T]{
		rows:    make(map[K]*T),
		base:    make(map[K]int64),
		created: make(map[K]bool),
	}
}

func (st *staged[K, T]) create(k K, doc *T) {
	cp := *doc
	st.rows[k] = &cp
	st.created[k] = true
}

func (st *staged[K, T]) save(k K, doc *T, version *int64) {
	if _, seen := st.base[k]; !seen && !st.created[k] {
		st.base[k] = *version
	}
	*version++
	cp := *doc
	st.rows[k] = &cp
}

func (st *staged[K, T]) remove(k K, version int64) {
	if st.created[k] {
		delete(st.rows, k)
		delete(st.created, k)
		return
	}
	if _, seen := st.base[k]; !seen {
		st.base[k] = version
	}
	st.rows[k] = nil
}

func (st *staged[K, T]) validate(committed map[K]T, version func(*T) int64) error {
	for k := range st.rows {
		cur, exists := committed[k]
		if st.created[k] {
			if exists {
				return fmt.Errorf("%w: key %v created concurrently", repository.ErrConflict, k)
			}
			continue
		}
		if !exists {
			return fmt.Errorf("%w: key %v removed concurrently", repository.ErrConflict, k)
		}
		if base, ok := st.base[k]; ok && version(&cur) != base {
			return fmt.Errorf("%w: key %v modified concurrently", repository.ErrConflict, k)
		}
	}
	return nil
}

func (st *staged[K, T]) apply(committed map[K]T) {
	for k, row := range st.rows {
		if row == nil {
			delete(committed, k)
			continue
		}
		committed[k] = *row
	}
}

type tx struct {
	store *Store

	farmers   *staged[primitive.ObjectID, models.Farmer]
	stocks    *staged[string, models.VarietyStock]
	customers *staged[primitive.ObjectID, models.Customer]
	labour    *staged[primitive.ObjectID, models.Labour]
	orders    *staged[primitive.ObjectID, models.Order]
	invoices  *staged[int, models.InvoiceCounter]

	purchases   []models.FarmerPurchase
	payments    []models.FarmerPayment
	batches     []models.Batch
	customerTxs []models.CustomerTransaction
	expenses    []models.Expense
}

var _ repository.Tx = (*tx)(nil)

func newTx(s *Store) *tx {
	return &tx{
		store:     s,
		farmers:   newStaged[primitive.ObjectID, models.Farmer](),
		stocks:    newStaged[string, models.VarietyStock](),
		customers: newStaged[primitive.ObjectID, models.Customer](),
		labour:    newStaged[primitive.ObjectID, models.Labour](),
		orders:    newStaged[primitive.ObjectID, models.Order](),
		invoices:  newStaged[int, models.InvoiceCounter](),
	}
}

func find[K comparable, T any](t *tx, st *staged[K, T], committed map[K]T, k K) (*T, error) {
	if row, touched := st.rows[k]; touched {
		if row == nil {
			return nil, repository.ErrNotFound
		}
		cp := *row
		return &cp, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	row, ok := committed[k]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

// current returns the version a save must match: the staged copy's when the
// unit already touched the document, the committed one otherwise.
func current[K comparable, T any](t *tx, st *staged[K, T], committed map[K]T, k K, version func(*T) int64) (int64, error) {
	doc, err := find(t, st, committed, k)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return version(doc), nil
}

func farmerVersion(f *models.Farmer) int64          { return f.Version }
func stockVersion(s *models.VarietyStock) int64     { return s.Version }
func customerVersion(c *models.Customer) int64      { return c.Version }
func labourVersion(l *models.Labour) int64          { return l.Version }
func orderVersion(o *models.Order) int64            { return o.Version }
func invoiceVersion(c *models.InvoiceCounter) int64 { return c.Version }

func newIDIfZero(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func (t *tx) fault(point string) error { return t.store.fault(point) }

func (t *tx) stamp() time.Time { return t.store.now().UTC() }

func (t *tx) FindFarmer(_ context.Context, id primitive.ObjectID) (*models.Farmer, error) {
	if err := t.fault("FindFarmer"); err != nil {
		return nil, err
	}
	return find(t, t.farmers, t.store.farmers, id)
}

func (t *tx) FindFarmerByMobile(_ context.Context, mobile string) (*models.Farmer, error) {
	if err := t.fault("FindFarmerByMobile"); err != nil {
		return nil, err
	}
	for _, f := range t.farmers.rows {
		if f != nil && f.Mobile == mobile {
			cp := *f
			return &cp, nil
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for id, f := range t.store.farmers {
		if _, touched := t.farmers.rows[id]; touched {
			continue
		}
		if f.Mobile == mobile {
			return &f, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *tx) CreateFarmer(ctx context.Context, farmer *models.Farmer) error {
	if err := t.fault("CreateFarmer"); err != nil {
		return err
	}
	if farmer.Mobile != "" {
		if _, err := t.FindFarmerByMobile(ctx, farmer.Mobile); err == nil {
			return fmt.Errorf("%w: farmer mobile %s", repository.ErrDuplicateKey, farmer.Mobile)
		}
	}
	newIDIfZero(&farmer.ID)
	farmer.CreatedAt = t.stamp()
	farmer.UpdatedAt = farmer.CreatedAt
	t.farmers.create(farmer.ID, farmer)
	return nil
}

func (t *tx) SaveFarmer(_ context.Context, farmer *models.Farmer) error {
	if err := t.fault("SaveFarmer"); err != nil {
		return err
	}
	v, err := current(t, t.farmers, t.store.farmers, farmer.ID, farmerVersion)
	if err != nil {
		return err
	}
	if v != farmer.Version {
		return fmt.Errorf("%w: farmer %s", repository.ErrConflict, farmer.ID.Hex())
	}
	farmer.UpdatedAt = t.stamp()
	t.farmers.save(farmer.ID, farmer, &farmer.Version)
	return nil
}

func (t *tx) DeleteFarmer(_ context.Context, id primitive.ObjectID) error {
	if err := t.fault("DeleteFarmer"); err != nil {
		return err
	}
	f, err := find(t, t.farmers, t.store.farmers, id)
	if err != nil {
		return err
	}
	t.farmers.remove(id, f.Version)
	return nil
}

func (t *tx) CreatePurchase(_ context.Context, purchase *models.FarmerPurchase) error {
	if err := t.fault("CreatePurchase"); err != nil {
		return err
	}
	newIDIfZero(&purchase.ID)
	purchase.CreatedAt = t.stamp()
	t.purchases = append(t.purchases, *purchase)
	return nil
}

func (t *tx) CreateFarmerPayment(_ context.Context, payment *models.FarmerPayment) error {
	if err := t.fault("CreateFarmerPayment"); err != nil {
		return err
	}
	newIDIfZero(&payment.ID)
	payment.CreatedAt = t.stamp()
	t.payments = append(t.payments, *payment)
	return nil
}

func (t *tx) CreateBatch(_ context.Context, batch *models.Batch) error {
	if err := t.fault("CreateBatch"); err != nil {
		return err
	}
	t.store.mu.RLock()
	taken := t.store.batchIDs[batch.BatchID]
	t.store.mu.RUnlock()
	for _, b := range t.batches {
		taken = taken || b.BatchID == batch.BatchID
	}
	if taken {
		return fmt.Errorf("%w: batch id %s", repository.ErrDuplicateKey, batch.BatchID)
	}
	newIDIfZero(&batch.ID)
	batch.CreatedAt = t.stamp()
	t.batches = append(t.batches, *batch)
	return nil
}

func (t *tx) FindVarietyStock(_ context.Context, variety string) (*models.VarietyStock, error) {
	if err := t.fault("FindVarietyStock"); err != nil {
		return nil, err
	}
	return find(t, t.stocks, t.store.stocks, variety)
}

func (t *tx) CreateVarietyStock(_ context.Context, stock *models.VarietyStock) error {
	if err := t.fault("CreateVarietyStock"); err != nil {
		return err
	}
	if _, err := find(t, t.stocks, t.store.stocks, stock.Variety); err == nil {
		return fmt.Errorf("%w: variety %s", repository.ErrDuplicateKey, stock.Variety)
	}
	newIDIfZero(&stock.ID)
	stock.CreatedAt = t.stamp()
	stock.UpdatedAt = stock.CreatedAt
	t.stocks.create(stock.Variety, stock)
	return nil
}

func (t *tx) SaveVarietyStock(_ context.Context, stock *models.VarietyStock) error {
	if err := t.fault("SaveVarietyStock"); err != nil {
		return err
	}
	v, err := current(t, t.stocks, t.store.stocks, stock.Variety, stockVersion)
	if err != nil {
		return err
	}
	if v != stock.Version {
		return fmt.Errorf("%w: variety %s", repository.ErrConflict, stock.Variety)
	}
	stock.UpdatedAt = t.stamp()
	t.stocks.save(stock.Variety, stock, &stock.Version)
	return nil
}

func (t *tx) FindCustomer(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	if err := t.fault("FindCustomer"); err != nil {
		return nil, err
	}
	return find(t, t.customers, t.store.customers, id)
}

func (t *tx) FindCustomerByMobile(_ context.Context, mobile string) (*models.Customer, error) {
	if err := t.fault("FindCustomerByMobile"); err != nil {
		return nil, err
	}
	for _, c := range t.customers.rows {
		if c != nil && c.Mobile == mobile {
			cp := *c
			return &cp, nil
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for id, c := range t.store.customers {
		if _, touched := t.customers.rows[id]; touched {
			continue
		}
		if c.Mobile == mobile {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *tx) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := t.fault("CreateCustomer"); err != nil {
		return err
	}
	if _, err := t.FindCustomerByMobile(ctx, customer.Mobile); err == nil {
		return fmt.Errorf("%w: customer mobile %s", repository.ErrDuplicateKey, customer.Mobile)
	}
	newIDIfZero(&customer.ID)
	customer.CreatedAt = t.stamp()
	customer.UpdatedAt = customer.CreatedAt
	t.customers.create(customer.ID, customer)
	return nil
}

func (t *tx) SaveCustomer(_ context.Context, customer *models.Customer) error {
	if err := t.fault("SaveCustomer"); err != nil {
		return err
	}
	v, err := current(t, t.customers, t.store.customers, customer.ID, customerVersion)
	if err != nil {
		return err
	}
	if v != customer.Version {
		return fmt.Errorf("%w: customer %s", repository.ErrConflict, customer.ID.Hex())
	}
	customer.UpdatedAt = t.stamp()
	t.customers.save(customer.ID, customer, &customer.Version)
	return nil
}

func (t *tx) DeleteCustomer(_ context.Context, id primitive.ObjectID) error {
	if err := t.fault("DeleteCustomer"); err != nil {
		return err
	}
	c, err := find(t, t.customers, t.store.customers, id)
	if err != nil {
		return err
	}
	t.customers.remove(id, c.Version)
	return nil
}

func (t *tx) CreateCustomerTransaction(_ context.Context, entry *models.CustomerTransaction) error {
	if err := t.fault("CreateCustomerTransaction"); err != nil {
		return err
	}
	newIDIfZero(&entry.ID)
	entry.CreatedAt = t.stamp()
	t.customerTxs = append(t.customerTxs, *entry)
	return nil
}

func (t *tx) FindLabour(_ context.Context, id primitive.ObjectID) (*models.Labour, error) {
	if err := t.fault("FindLabour"); err != nil {
		return nil, err
	}
	return find(t, t.labour, t.store.labour, id)
}

func (t *tx) CreateLabour(_ context.Context, labour *models.Labour) error {
	if err := t.fault("CreateLabour"); err != nil {
		return err
	}
	newIDIfZero(&labour.ID)
	labour.CreatedAt = t.stamp()
	labour.UpdatedAt = labour.CreatedAt
	t.labour.create(labour.ID, labour)
	return nil
}

func (t *tx) SaveLabour(_ context.Context, labour *models.Labour) error {
	if err := t.fault("SaveLabour"); err != nil {
		return err
	}
	v, err := current(t, t.labour, t.store.labour, labour.ID, labourVersion)
	if err != nil {
		return err
	}
	if v != labour.Version {
		return fmt.Errorf("%w: labour %s", repository.ErrConflict, labour.ID.Hex())
	}
	labour.UpdatedAt = t.stamp()
	t.labour.save(labour.ID, labour, &labour.Version)
	return nil
}

func (t *tx) DeleteLabour(_ context.Context, id primitive.ObjectID) error {
	if err := t.fault("DeleteLabour"); err != nil {
		return err
	}
	l, err := find(t, t.labour, t.store.labour, id)
	if err != nil {
		return err
	}
	t.labour.remove(id, l.Version)
	return nil
}

func (t *tx) CreateExpense(_ context.Context, expense *models.Expense) error {
	if err := t.fault("CreateExpense"); err != nil {
		return err
	}
	newIDIfZero(&expense.ID)
	expense.CreatedAt = t.stamp()
	t.expenses = append(t.expenses, *expense)
	return nil
}

func (t *tx) NextInvoiceSequence(_ context.Context, year int) (int, error) {
	if err := t.fault("NextInvoiceSequence"); err != nil {
		return 0, err
	}
	counter, err := find(t, t.invoices, t.store.invoices, year)
	if errors.Is(err, repository.ErrNotFound) {
		counter = &models.InvoiceCounter{Year: year, Seq: 1}
		t.invoices.create(year, counter)
		return counter.Seq, nil
	}
	if err != nil {
		return 0, err
	}
	counter.Seq++
	t.invoices.save(year, counter, &counter.Version)
	return counter.Seq, nil
}

func (t *tx) FindOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	if err := t.fault("FindOrder"); err != nil {
		return nil, err
	}
	return find(t, t.orders, t.store.orders, id)
}

func (t *tx) CreateOrder(_ context.Context, order *models.Order) error {
	if err := t.fault("CreateOrder"); err != nil {
		return err
	}
	if t.invoiceTaken(order.InvoiceNumber, primitive.NilObjectID) {
		return fmt.Errorf("%w: invoice %s", repository.ErrDuplicateKey, order.InvoiceNumber)
	}
	newIDIfZero(&order.ID)
	order.CreatedAt = t.stamp()
	order.UpdatedAt = order.CreatedAt
	t.orders.create(order.ID, order)
	return nil
}

func (t *tx) SaveOrder(_ context.Context, order *models.Order) error {
	if err := t.fault("SaveOrder"); err != nil {
		return err
	}
	v, err := current(t, t.orders, t.store.orders, order.ID, orderVersion)
	if err != nil {
		return err
	}
	if v != order.Version {
		return fmt.Errorf("%w: order %s", repository.ErrConflict, order.ID.Hex())
	}
	order.UpdatedAt = t.stamp()
	t.orders.save(order.ID, order, &order.Version)
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id primitive.ObjectID) error {
	if err := t.fault("DeleteOrder"); err != nil {
		return err
	}
	o, err := find(t, t.orders, t.store.orders, id)
	if err != nil {
		return err
	}
	t.orders.remove(id, o.Version)
	return nil
}

func (t *tx) invoiceTaken(invoice string, self primitive.ObjectID) bool {
	for id, o := range t.orders.rows {
		if o != nil && id != self && o.InvoiceNumber == invoice {
			return true
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for id, o := range t.store.orders {
		if _, touched := t.orders.rows[id]; touched || id == self {
			continue
		}
		if o.InvoiceNumber == invoice {
			return true
		}
	}
	return false
}

func (t *tx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.validate(); err != nil {
		return err
	}
	if err := s.fault(CommitFault); err != nil {
		return err
	}

	t.farmers.apply(s.farmers)
	t.stocks.apply(s.stocks)
	t.customers.apply(s.customers)
	t.labour.apply(s.labour)
	t.orders.apply(s.orders)
	t.invoices.apply(s.invoices)

	s.purchases = append(s.purchases, t.purchases...)
	s.payments = append(s.payments, t.payments...)
	for _, b := range t.batches {
		s.batchIDs[b.BatchID] = true
	}
	s.batches = append(s.batches, t.batches...)
	s.customerTxs = append(s.customerTxs, t.customerTxs...)
	s.expenses = append(s.expenses, t.expenses...)
	return nil
}

// validate runs with the store lock held.
func (t *tx) validate() error {
	s := t.store
	if err := t.farmers.validate(s.farmers, farmerVersion); err != nil {
		return err
	}
	if err := t.stocks.validate(s.stocks, stockVersion); err != nil {
		return err
	}
	if err := t.customers.validate(s.customers, customerVersion); err != nil {
		return err
	}
	if err := t.labour.validate(s.labour, labourVersion); err != nil {
		return err
	}
	if err := t.orders.validate(s.orders, orderVersion); err != nil {
		return err
	}
	if err := t.invoices.validate(s.invoices, invoiceVersion); err != nil {
		return err
	}

	for id, f := range t.farmers.rows {
		if f == nil || f.Mobile == "" {
			continue
		}
		for otherID, other := range s.farmers {
			if otherID != id && other.Mobile == f.Mobile {
				if _, touched := t.farmers.rows[otherID]; !touched {
					return fmt.Errorf("%w: farmer mobile %s taken concurrently", repository.ErrConflict, f.Mobile)
				}
			}
		}
	}
	for id, c := range t.customers.rows {
		if c == nil {
			continue
		}
		for otherID, other := range s.customers {
			if otherID != id && other.Mobile == c.Mobile {
				if _, touched := t.customers.rows[otherID]; !touched {
					return fmt.Errorf("%w: customer mobile %s taken concurrently", repository.ErrConflict, c.Mobile)
				}
			}
		}
	}
	for id, o := range t.orders.rows {
		if o == nil {
			continue
		}
		for otherID, other := range s.orders {
			if otherID != id && other.InvoiceNumber == o.InvoiceNumber {
				if _, touched := t.orders.rows[otherID]; !touched {
					return fmt.Errorf("%w: invoice %s taken concurrently", repository.ErrConflict, o.InvoiceNumber)
				}
			}
		}
	}
	for _, b := range t.batches {
		if s.batchIDs[b.BatchID] {
			return fmt.Errorf("%w: batch id %s taken concurrently", repository.ErrConflict, b.BatchID)
		}
	}
	return nil
}
