package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DailyReport represents the aggregated daily data to be stored in MongoDB.
type DailyReport struct {
	Date                  time.Time `bson:"date" json:"date"`
	PurchasesCount        int       `bson:"purchases_count" json:"purchases_count"`
	PurchaseAmount        float64   `bson:"purchase_amount" json:"purchase_amount"`
	OrdersCount           int       `bson:"orders_count" json:"orders_count"`
	SalesAmount           float64   `bson:"sales_amount" json:"sales_amount"`
	FarmerPaymentsAmount  float64   `bson:"farmer_payments_amount" json:"farmer_payments_amount"`
	CustomerCreditAmount  float64   `bson:"customer_credit_amount" json:"customer_credit_amount"`
	CustomerPaymentAmount float64   `bson:"customer_payment_amount" json:"customer_payment_amount"`
	Expenses              float64   `bson:"expenses" json:"expenses"`
	PendingFarmerPayments float64   `bson:"pending_farmer_payments" json:"pending_farmer_payments"`
	CreditOutstanding     float64   `bson:"credit_outstanding" json:"credit_outstanding"`
	LabourPending         float64   `bson:"labour_pending" json:"labour_pending"`
	CreatedAt             time.Time `bson:"created_at" json:"created_at"`
}

// BusinessSummary is the all-time snapshot served to the dashboard. The
// Today fields cover the current calendar day in the reporting time zone.
type BusinessSummary struct {
	TotalRevenue            float64 `json:"totalRevenue"`
	TotalSales              float64 `json:"totalSales"` // paid orders only
	PendingOrderAmount      float64 `json:"pendingOrderAmount"`
	OrderCount              int     `json:"orderCount"`
	TodaySales              float64 `json:"todaySales"`
	TodayExpenses           float64 `json:"todayExpenses"`
	TodayProfit             float64 `json:"todayProfit"`
	NetProfit               float64 `json:"netProfit"` // revenue - expenses - purchase cost
	TotalPurchaseCost       float64 `json:"totalPurchaseCost"`
	TotalPaidToFarmers      float64 `json:"totalPaidToFarmers"`
	PendingFarmerPayments   float64 `json:"pendingFarmerPayments"`
	PendingCustomerPayments float64 `json:"pendingCustomerPayments"`
	TotalCustomerPaid       float64 `json:"totalCustomerPaid"`
	TotalExpenses           float64 `json:"totalExpenses"`
	TotalLabourPending      float64 `json:"totalLabourPending"`
	TotalLabourPaid         float64 `json:"totalLabourPaid"`
	TotalBoxesAvailable     int     `json:"totalBoxesAvailable"`
	VarietyCount            int     `json:"varietyCount"`
}

// MonthlyTrend is one calendar month of sales against expenses.
type MonthlyTrend struct {
	Month    int     `json:"month"`
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Orders   int     `json:"orders"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// TopCustomer is one buyer in the spend ranking. CustomerID is nil for order
// buyers who are not registered customers.
type TopCustomer struct {
	CustomerID      *primitive.ObjectID `json:"customerId,omitempty"`
	Name            string              `json:"name"`
	Mobile          string              `json:"mobile"`
	CreditPurchases float64             `json:"creditPurchases"`
	OrderRevenue    float64             `json:"orderRevenue"`
	OrderCount      int                 `json:"orderCount"`
	TotalSpend      float64             `json:"totalSpend"`
}

// InvariantViolation describes an aggregate whose stored totals disagree with its rules or history.
type InvariantViolation struct {
	Entity   string  `json:"entity"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Rule     string  `json:"rule"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

// ReconciliationReport lists every violation found in one pass.
type ReconciliationReport struct {
	CheckedAt        time.Time            `json:"checkedAt"`
	FarmersChecked   int                  `json:"farmersChecked"`
	CustomersChecked int                  `json:"customersChecked"`
	Violations       []InvariantViolation `json:"violations"`
}

// Consistent reports whether no violations were found.
func (r ReconciliationReport) Consistent() bool {
	return len(r.Violations) == 0
}
