package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, sort bson.D) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func containsFold(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

func byOwner(field string, id primitive.ObjectID) bson.M {
	if id.IsZero() {
		return bson.M{}
	}
	return bson.M{field: id}
}

func between(from, to *time.Time) bson.M {
	span := bson.M{}
	if from != nil {
		span["$gte"] = *from
	}
	if to != nil {
		span["$lte"] = *to
	}
	return span
}

func (r *Repository) ListFarmers(ctx context.Context, search string) ([]models.Farmer, error) {
	filter := bson.M{}
	if search = strings.TrimSpace(search); search != "" {
		pattern := containsFold(search)
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"mobile": pattern},
			bson.M{"village": pattern},
		}
	}
	return findAll[models.Farmer](ctx, r.db.Collection(farmersCollection), filter, bson.D{{Key: "name", Value: 1}})
}

func (r *Repository) GetFarmer(ctx context.Context, id primitive.ObjectID) (*models.Farmer, error) {
	return findOne[models.Farmer](ctx, r.db.Collection(farmersCollection), bson.M{"_id": id})
}

func (r *Repository) ListPurchases(ctx context.Context, farmerID primitive.ObjectID) ([]models.FarmerPurchase, error) {
	return findAll[models.FarmerPurchase](ctx, r.db.Collection(purchasesCollection), byOwner("farmerId", farmerID), bson.D{{Key: "date", Value: -1}})
}

func (r *Repository) ListFarmerPayments(ctx context.Context, farmerID primitive.ObjectID) ([]models.FarmerPayment, error) {
	return findAll[models.FarmerPayment](ctx, r.db.Collection(farmerPaymentsCollection), byOwner("farmerId", farmerID), bson.D{{Key: "date", Value: -1}})
}

func (r *Repository) ListBatches(ctx context.Context, farmerID primitive.ObjectID) ([]models.Batch, error) {
	return findAll[models.Batch](ctx, r.db.Collection(batchesCollection), byOwner("farmerId", farmerID), bson.D{{Key: "arrivalDate", Value: -1}})
}

func (r *Repository) ListVarietyStocks(ctx context.Context) ([]models.VarietyStock, error) {
	return findAll[models.VarietyStock](ctx, r.db.Collection(varietiesCollection), bson.M{}, bson.D{{Key: "variety", Value: 1}})
}

func (r *Repository) GetVarietyStock(ctx context.Context, variety string) (*models.VarietyStock, error) {
	return findOne[models.VarietyStock](ctx, r.db.Collection(varietiesCollection), bson.M{"variety": variety})
}

func (r *Repository) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	filter := bson.M{}
	if search = strings.TrimSpace(search); search != "" {
		pattern := containsFold(search)
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"mobile": pattern},
		}
	}
	return findAll[models.Customer](ctx, r.db.Collection(customersCollection), filter, bson.D{{Key: "name", Value: 1}})
}

func (r *Repository) ListCustomersWithBalance(ctx context.Context) ([]models.Customer, error) {
	return findAll[models.Customer](ctx, r.db.Collection(customersCollection), bson.M{"balance": bson.M{"$gt": 0}}, bson.D{{Key: "balance", Value: -1}})
}

func (r *Repository) GetCustomer(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	return findOne[models.Customer](ctx, r.db.Collection(customersCollection), bson.M{"_id": id})
}

func (r *Repository) GetCustomerByMobile(ctx context.Context, mobile string) (*models.Customer, error) {
	return findOne[models.Customer](ctx, r.db.Collection(customersCollection), bson.M{"mobile": mobile})
}

func (r *Repository) ListCustomerTransactions(ctx context.Context, customerID primitive.ObjectID) ([]models.CustomerTransaction, error) {
	return findAll[models.CustomerTransaction](ctx, r.db.Collection(customerTransactionsCollection), byOwner("customerId", customerID), bson.D{{Key: "createdAt", Value: 1}})
}

func (r *Repository) ListLabour(ctx context.Context, filter repository.LabourFilter) ([]models.Labour, error) {
	query := bson.M{}
	if filter.IsPaid != nil {
		query["isPaid"] = *filter.IsPaid
	}
	if name := strings.TrimSpace(filter.WorkerName); name != "" {
		query["workerName"] = containsFold(name)
	}
	if span := between(filter.From, filter.To); len(span) > 0 {
		query["workDate"] = span
	}
	return findAll[models.Labour](ctx, r.db.Collection(labourCollection), query, bson.D{{Key: "workDate", Value: -1}})
}

func (r *Repository) GetLabour(ctx context.Context, id primitive.ObjectID) (*models.Labour, error) {
	return findOne[models.Labour](ctx, r.db.Collection(labourCollection), bson.M{"_id": id})
}

func (r *Repository) ListExpenses(ctx context.Context, filter repository.ExpenseFilter) ([]models.Expense, error) {
	query := bson.M{}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(category) + "$", Options: "i"}
	}
	if span := between(filter.From, filter.To); len(span) > 0 {
		query["date"] = span
	}
	return findAll[models.Expense](ctx, r.db.Collection(expensesCollection), query, bson.D{{Key: "date", Value: -1}})
}

func (r *Repository) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	query := bson.M{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsFold(search)
		query["$or"] = bson.A{
			bson.M{"customerName": pattern},
			bson.M{"customerMobile": pattern},
			bson.M{"invoiceNumber": pattern},
		}
	}
	if filter.PaymentStatus != "" {
		query["paymentStatus"] = filter.PaymentStatus
	}
	if span := between(filter.From, filter.To); len(span) > 0 {
		query["date"] = span
	}
	sort := bson.D{{Key: "date", Value: -1}, {Key: "invoiceNumber", Value: -1}}
	return findAll[models.Order](ctx, r.db.Collection(ordersCollection), query, sort)
}

func (r *Repository) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, r.db.Collection(ordersCollection), bson.M{"_id": id})
}
