package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// WithTransaction runs fn inside a snapshot transaction. The driver's own
// retry loop is not used: write conflicts surface as repository.ErrConflict
// and callers decide whether to replay.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOptions := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(txnOptions); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if err := fn(sc, &ledgerTx{db: r.db, now: r.now}); err != nil {
			if abortErr := session.AbortTransaction(context.WithoutCancel(sc)); abortErr != nil {
				r.logger.Warn("abort transaction failed", zap.Error(abortErr))
			}
			return translate(err)
		}

		if err := session.CommitTransaction(sc); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", translate(err))
		}
		return nil
	})
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrDuplicateKey) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicateKey, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel(driverTransientLabel) {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}

const driverTransientLabel = "TransientTransactionError"

type ledgerTx struct {
	db  *mongo.Database
	now func() time.Time
}

var _ repository.Tx = (*ledgerTx)(nil)

func (t *ledgerTx) coll(name string) *mongo.Collection {
	return t.db.Collection(name)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func insert(ctx context.Context, coll *mongo.Collection, doc any) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", coll.Name(), translate(err))
	}
	return nil
}

// versionFilter matches a document at the expected version. Documents written
// before versioning have no version field and decode as version 0, so the
// first save must match a missing field as well ($in with null does).
func versionFilter(id primitive.ObjectID, expected int64) bson.M {
	if expected == 0 {
		return bson.M{"_id": id, "version": bson.M{"$in": bson.A{int64(0), nil}}}
	}
	return bson.M{"_id": id, "version": expected}
}

// replaceVersioned writes doc only if the stored version still equals the one
// the caller read, bumping version on success.
func replaceVersioned(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, version *int64, doc any) error {
	expected := *version
	*version = expected + 1

	res, err := coll.ReplaceOne(ctx, versionFilter(id, expected), doc)
	if err != nil {
		*version = expected
		return fmt.Errorf("replace in %s: %w", coll.Name(), translate(err))
	}
	if res.MatchedCount == 0 {
		*version = expected
		return fmt.Errorf("%w: %s %s changed since version %d", repository.ErrConflict, coll.Name(), id.Hex(), expected)
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", coll.Name(), translate(err))
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) FindFarmer(ctx context.Context, id primitive.ObjectID) (*models.Farmer, error) {
	return findOne[models.Farmer](ctx, t.coll(farmersCollection), bson.M{"_id": id})
}

func (t *ledgerTx) FindFarmerByMobile(ctx context.Context, mobile string) (*models.Farmer, error) {
	return findOne[models.Farmer](ctx, t.coll(farmersCollection), bson.M{"mobile": mobile})
}

func (t *ledgerTx) CreateFarmer(ctx context.Context, farmer *models.Farmer) error {
	farmer.ID = primitive.NewObjectID()
	farmer.CreatedAt = t.now().UTC()
	farmer.UpdatedAt = farmer.CreatedAt
	return insert(ctx, t.coll(farmersCollection), farmer)
}

func (t *ledgerTx) SaveFarmer(ctx context.Context, farmer *models.Farmer) error {
	farmer.UpdatedAt = t.now().UTC()
	return replaceVersioned(ctx, t.coll(farmersCollection), farmer.ID, &farmer.Version, farmer)
}

func (t *ledgerTx) DeleteFarmer(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, t.coll(farmersCollection), id)
}

func (t *ledgerTx) CreatePurchase(ctx context.Context, purchase *models.FarmerPurchase) error {
	purchase.ID = primitive.NewObjectID()
	purchase.CreatedAt = t.now().UTC()
	return insert(ctx, t.coll(purchasesCollection), purchase)
}

func (t *ledgerTx) CreateFarmerPayment(ctx context.Context, payment *models.FarmerPayment) error {
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = t.now().UTC()
	return insert(ctx, t.coll(farmerPaymentsCollection), payment)
}

func (t *ledgerTx) CreateBatch(ctx context.Context, batch *models.Batch) error {
	batch.ID = primitive.NewObjectID()
	batch.CreatedAt = t.now().UTC()
	return insert(ctx, t.coll(batchesCollection), batch)
}

func (t *ledgerTx) FindVarietyStock(ctx context.Context, variety string) (*models.VarietyStock, error) {
	return findOne[models.VarietyStock](ctx, t.coll(varietiesCollection), bson.M{"variety": variety})
}

func (t *ledgerTx) CreateVarietyStock(ctx context.Context, stock *models.VarietyStock) error {
	stock.ID = primitive.NewObjectID()
	stock.CreatedAt = t.now().UTC()
	stock.UpdatedAt = stock.CreatedAt
	return insert(ctx, t.coll(varietiesCollection), stock)
}

func (t *ledgerTx) SaveVarietyStock(ctx context.Context, stock *models.VarietyStock) error {
	stock.UpdatedAt = t.now().UTC()
	return replaceVersioned(ctx, t.coll(varietiesCollection), stock.ID, &stock.Version, stock)
}

func (t *ledgerTx) FindCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	return findOne[models.Customer](ctx, t.coll(customersCollection), bson.M{"_id": id})
}

func (t *ledgerTx) FindCustomerByMobile(ctx context.Context, mobile string) (*models.Customer, error) {
	return findOne[models.Customer](ctx, t.coll(customersCollection), bson.M{"mobile": mobile})
}

func (t *ledgerTx) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	customer.ID = primitive.NewObjectID()
	customer.CreatedAt = t.now().UTC()
	customer.UpdatedAt = customer.CreatedAt
	return insert(ctx, t.coll(customersCollection), customer)
}

func (t *ledgerTx) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = t.now().UTC()
	return replaceVersioned(ctx, t.coll(customersCollection), customer.ID, &customer.Version, customer)
}

func (t *ledgerTx) DeleteCustomer(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, t.coll(customersCollection), id)
}

func (t *ledgerTx) CreateCustomerTransaction(ctx context.Context, entry *models.CustomerTransaction) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = t.now().UTC()
	return insert(ctx, t.coll(customerTransactionsCollection), entry)
}

func (t *ledgerTx) FindLabour(ctx context.Context, id primitive.ObjectID) (*models.Labour, error) {
	return findOne[models.Labour](ctx, t.coll(labourCollection), bson.M{"_id": id})
}

func (t *ledgerTx) CreateLabour(ctx context.Context, labour *models.Labour) error {
	labour.ID = primitive.NewObjectID()
	labour.CreatedAt = t.now().UTC()
	labour.UpdatedAt = labour.CreatedAt
	return insert(ctx, t.coll(labourCollection), labour)
}

func (t *ledgerTx) SaveLabour(ctx context.Context, labour *models.Labour) error {
	labour.UpdatedAt = t.now().UTC()
	return replaceVersioned(ctx, t.coll(labourCollection), labour.ID, &labour.Version, labour)
}

func (t *ledgerTx) DeleteLabour(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, t.coll(labourCollection), id)
}

func (t *ledgerTx) CreateExpense(ctx context.Context, expense *models.Expense) error {
	expense.ID = primitive.NewObjectID()
	expense.CreatedAt = t.now().UTC()
	return insert(ctx, t.coll(expensesCollection), expense)
}

// NextInvoiceSequence increments the year's counter in place. Two units racing
// on the same year hit a write conflict on the counter document.
func (t *ledgerTx) NextInvoiceSequence(ctx context.Context, year int) (int, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"seq": 1, "version": 1}}

	var counter models.InvoiceCounter
	err := t.coll(invoiceCountersCollection).FindOneAndUpdate(ctx, bson.M{"_id": year}, update, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence for %d: %w", year, translate(err))
	}
	return counter.Seq, nil
}

func (t *ledgerTx) FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, t.coll(ordersCollection), bson.M{"_id": id})
}

func (t *ledgerTx) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = primitive.NewObjectID()
	order.CreatedAt = t.now().UTC()
	order.UpdatedAt = order.CreatedAt
	return insert(ctx, t.coll(ordersCollection), order)
}

func (t *ledgerTx) SaveOrder(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = t.now().UTC()
	return replaceVersioned(ctx, t.coll(ordersCollection), order.ID, &order.Version, order)
}

func (t *ledgerTx) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, t.coll(ordersCollection), id)
}
