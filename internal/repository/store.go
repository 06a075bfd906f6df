// Package repository defines the persistence contracts shared by the MongoDB
// and in-memory ledger stores.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
)

var (
	// ErrNotFound is returned when a looked-up document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a concurrent writer won: a version check
	// failed or the store reported a write conflict. The whole unit of work is
	// safe to retry.
	ErrConflict = errors.New("write conflict")

	// ErrDuplicateKey is returned when an insert violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store runs units of work atomically.
type Store interface {
	// WithTransaction executes fn inside one transaction. Every read and
	// write made through tx commits together when fn returns nil; any error
	// aborts the transaction and discards the writes.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view handed to a unit of work. Save methods use the
// document's Version for optimistic concurrency and bump it on success.
type Tx interface {
	FindFarmer(ctx context.Context, id primitive.ObjectID) (*models.Farmer, error)
	FindFarmerByMobile(ctx context.Context, mobile string) (*models.Farmer, error)
	CreateFarmer(ctx context.Context, farmer *models.Farmer) error
	SaveFarmer(ctx context.Context, farmer *models.Farmer) error
	DeleteFarmer(ctx context.Context, id primitive.ObjectID) error

	CreatePurchase(ctx context.Context, purchase *models.FarmerPurchase) error
	CreateFarmerPayment(ctx context.Context, payment *models.FarmerPayment) error
	CreateBatch(ctx context.Context, batch *models.Batch) error

	FindVarietyStock(ctx context.Context, variety string) (*models.VarietyStock, error)
	CreateVarietyStock(ctx context.Context, stock *models.VarietyStock) error
	SaveVarietyStock(ctx context.Context, stock *models.VarietyStock) error

	FindCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	FindCustomerByMobile(ctx context.Context, mobile string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id primitive.ObjectID) error
	CreateCustomerTransaction(ctx context.Context, entry *models.CustomerTransaction) error

	FindLabour(ctx context.Context, id primitive.ObjectID) (*models.Labour, error)
	CreateLabour(ctx context.Context, labour *models.Labour) error
	SaveLabour(ctx context.Context, labour *models.Labour) error
	DeleteLabour(ctx context.Context, id primitive.ObjectID) error

	CreateExpense(ctx context.Context, expense *models.Expense) error

	// NextInvoiceSequence reserves the next invoice number for year, starting at 1.
	NextInvoiceSequence(ctx context.Context, year int) (int, error)
	FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	SaveOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
}

// LabourFilter narrows labour listings. Zero values mean "any".
type LabourFilter struct {
	IsPaid     *bool
	WorkerName string
	From       *time.Time
	To         *time.Time
}

// ExpenseFilter narrows expense listings. Zero values mean "any".
type ExpenseFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
}

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	// Search matches customer name, mobile or invoice number case-insensitively.
	Search        string
	PaymentStatus models.PaymentStatus
	From          *time.Time
	To            *time.Time
}

// Reader serves read-only queries outside of a unit of work. Results are
// ordered as documented per method.
type Reader interface {
	// ListFarmers returns farmers sorted by name; search matches name, mobile
	// or village case-insensitively.
	ListFarmers(ctx context.Context, search string) ([]models.Farmer, error)
	GetFarmer(ctx context.Context, id primitive.ObjectID) (*models.Farmer, error)
	// ListPurchases returns purchases newest first; a zero farmerID lists all.
	ListPurchases(ctx context.Context, farmerID primitive.ObjectID) ([]models.FarmerPurchase, error)
	// ListFarmerPayments returns payments newest first; a zero farmerID lists all.
	ListFarmerPayments(ctx context.Context, farmerID primitive.ObjectID) ([]models.FarmerPayment, error)
	// ListBatches returns batches newest arrival first; a zero farmerID lists all.
	ListBatches(ctx context.Context, farmerID primitive.ObjectID) ([]models.Batch, error)

	// ListVarietyStocks returns stock sorted by variety.
	ListVarietyStocks(ctx context.Context) ([]models.VarietyStock, error)
	GetVarietyStock(ctx context.Context, variety string) (*models.VarietyStock, error)

	// ListCustomers returns customers sorted by name; search matches name or mobile.
	ListCustomers(ctx context.Context, search string) ([]models.Customer, error)
	// ListCustomersWithBalance returns customers owing money, largest balance first.
	ListCustomersWithBalance(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	GetCustomerByMobile(ctx context.Context, mobile string) (*models.Customer, error)
	// ListCustomerTransactions returns log entries oldest first; a zero customerID lists all.
	ListCustomerTransactions(ctx context.Context, customerID primitive.ObjectID) ([]models.CustomerTransaction, error)

	// ListLabour returns entries newest work date first.
	ListLabour(ctx context.Context, filter LabourFilter) ([]models.Labour, error)
	GetLabour(ctx context.Context, id primitive.ObjectID) (*models.Labour, error)

	// ListExpenses returns expenses newest first.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]models.Expense, error)

	// ListOrders returns orders newest order date first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
}

// ReportRepository stores generated daily reports.
type ReportRepository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// LedgerStore is everything a backing store provides to the services.
type LedgerStore interface {
	Store
	Reader
	ReportRepository
}
