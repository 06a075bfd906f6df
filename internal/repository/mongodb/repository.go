package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

const (
	farmersCollection              = "farmers"
	purchasesCollection            = "farmer_purchases"
	farmerPaymentsCollection       = "farmer_payments"
	batchesCollection              = "batches"
	varietiesCollection            = "varieties"
	customersCollection            = "customers"
	customerTransactionsCollection = "customer_transactions"
	labourCollection               = "labour"
	expensesCollection             = "expenses"
	ordersCollection               = "orders"
	invoiceCountersCollection      = "invoice_counters"
	dailyReportsCollection         = "daily_reports"
)

// Repository implements repository.LedgerStore on MongoDB. Multi-document
// transactions require a replica set or sharded cluster.
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
	now    func() time.Time
}

var _ repository.LedgerStore = (*Repository)(nil)

// NewMongoDBRepository connects, verifies the connection and makes sure the
// unique indexes the ledger depends on exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &Repository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
		now:    time.Now,
	}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongodb ready", zap.String("database", dbName))
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	nonEmptyMobile := bson.M{"mobile": bson.M{"$gt": ""}}

	indexes := map[string][]mongo.IndexModel{
		varietiesCollection: {
			{Keys: bson.D{{Key: "variety", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		customersCollection: {
			{Keys: bson.D{{Key: "mobile", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		farmersCollection: {
			{Keys: bson.D{{Key: "mobile", Value: 1}}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(nonEmptyMobile)},
		},
		batchesCollection: {
			{Keys: bson.D{{Key: "batchId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "arrivalDate", Value: -1}}},
		},
		purchasesCollection: {
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "date", Value: -1}}},
		},
		farmerPaymentsCollection: {
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "date", Value: -1}}},
		},
		customerTransactionsCollection: {
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		labourCollection: {
			{Keys: bson.D{{Key: "isPaid", Value: 1}}},
			{Keys: bson.D{{Key: "workDate", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "invoiceNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "paymentStatus", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: -1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}

	// Collections cannot be created implicitly inside a transaction on older servers.
	for _, name := range []string{expensesCollection, invoiceCountersCollection, dailyReportsCollection} {
		if err := r.db.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

func isNamespaceExists(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(48)
}

// SaveDailyReport saves a daily report to the database.
func (r *Repository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	collection := r.db.Collection(dailyReportsCollection)
	_, err := collection.InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
