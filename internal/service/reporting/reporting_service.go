// Package reporting produces read-only views over the ledger: the business
// summary, the invariant reconciliation and the daily report.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

const (
	dateLayout = "2006-01-02"

	// DefaultTopCustomers is the ranking length when none is requested.
	DefaultTopCustomers = 10
)

// Service exposes aggregate views. It never writes.
type Service struct {
	store  repository.Reader
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store repository.Reader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// snapshot is every collection the reports need, loaded concurrently.
type snapshot struct {
	farmers   []models.Farmer
	purchases []models.FarmerPurchase
	payments  []models.FarmerPayment
	batches   []models.Batch
	stocks    []models.VarietyStock
	customers []models.Customer
	entries   []models.CustomerTransaction
	labour    []models.Labour
	expenses  []models.Expense
	orders    []models.Order
}

func (s *Service) load(ctx context.Context, op string) (*snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.farmers, err = s.store.ListFarmers(ctx, "")
		return wrap("farmers", err)
	})
	g.Go(func() (err error) {
		snap.purchases, err = s.store.ListPurchases(ctx, primitive.NilObjectID)
		return wrap("purchases", err)
	})
	g.Go(func() (err error) {
		snap.payments, err = s.store.ListFarmerPayments(ctx, primitive.NilObjectID)
		return wrap("farmer payments", err)
	})
	g.Go(func() (err error) {
		snap.batches, err = s.store.ListBatches(ctx, primitive.NilObjectID)
		return wrap("batches", err)
	})
	g.Go(func() (err error) {
		snap.stocks, err = s.store.ListVarietyStocks(ctx)
		return wrap("variety stock", err)
	})
	g.Go(func() (err error) {
		snap.customers, err = s.store.ListCustomers(ctx, "")
		return wrap("customers", err)
	})
	g.Go(func() (err error) {
		snap.entries, err = s.store.ListCustomerTransactions(ctx, primitive.NilObjectID)
		return wrap("customer transactions", err)
	})
	g.Go(func() (err error) {
		snap.labour, err = s.store.ListLabour(ctx, repository.LabourFilter{})
		return wrap("labour", err)
	})
	g.Go(func() (err error) {
		snap.expenses, err = s.store.ListExpenses(ctx, repository.ExpenseFilter{})
		return wrap("expenses", err)
	})
	g.Go(func() (err error) {
		snap.orders, err = s.store.ListOrders(ctx, repository.OrderFilter{})
		return wrap("orders", err)
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load report data", zap.String("op", op), zap.Error(err))
		return nil, apperr.Storage(op, err)
	}
	return &snap, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// dayBounds returns the calendar day containing t in loc as [start, end).
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Summary aggregates all-time totals across the ledger. Today's figures use
// the calendar day in loc.
func (s *Service) Summary(ctx context.Context, loc *time.Location) (*models.BusinessSummary, error) {
	if loc == nil {
		loc = time.UTC
	}
	snap, err := s.load(ctx, "reporting.Summary")
	if err != nil {
		return nil, err
	}

	start, end := dayBounds(s.now(), loc)
	today := func(t time.Time) bool { return !t.Before(start) && t.Before(end) }

	var revenue, sales, unpaid, soldToday, spentToday []float64
	for _, o := range snap.orders {
		revenue = append(revenue, o.TotalAmount)
		if o.PaymentStatus == models.OrderPaid {
			sales = append(sales, o.TotalAmount)
		} else {
			unpaid = append(unpaid, o.TotalAmount)
		}
		if today(o.Date) {
			soldToday = append(soldToday, o.TotalAmount)
		}
	}
	for _, e := range snap.expenses {
		if today(e.Date) {
			spentToday = append(spentToday, e.Amount)
		}
	}

	var purchased, paid, pending, owed, received, spent, labourDue, labourPaid []float64
	for _, f := range snap.farmers {
		purchased = append(purchased, f.TotalPurchaseAmount)
		paid = append(paid, f.TotalPaymentGiven)
		pending = append(pending, f.PendingPayment)
	}
	for _, c := range snap.customers {
		owed = append(owed, c.Balance)
		received = append(received, c.TotalPaid)
	}
	for _, e := range snap.expenses {
		spent = append(spent, e.Amount)
	}
	for _, l := range snap.labour {
		if l.IsPaid {
			labourPaid = append(labourPaid, l.Wage)
		} else {
			labourDue = append(labourDue, l.Wage)
		}
	}

	boxes := 0
	for _, st := range snap.stocks {
		boxes += st.Box5Remaining() + st.Box10Remaining()
	}

	summary := &models.BusinessSummary{
		TotalRevenue:            money.Sum(revenue...),
		TotalSales:              money.Sum(sales...),
		PendingOrderAmount:      money.Sum(unpaid...),
		OrderCount:              len(snap.orders),
		TodaySales:              money.Sum(soldToday...),
		TodayExpenses:           money.Sum(spentToday...),
		TotalPurchaseCost:       money.Sum(purchased...),
		TotalPaidToFarmers:      money.Sum(paid...),
		PendingFarmerPayments:   money.Sum(pending...),
		PendingCustomerPayments: money.Sum(owed...),
		TotalCustomerPaid:       money.Sum(received...),
		TotalExpenses:           money.Sum(spent...),
		TotalLabourPending:      money.Sum(labourDue...),
		TotalLabourPaid:         money.Sum(labourPaid...),
		TotalBoxesAvailable:     boxes,
		VarietyCount:            len(snap.stocks),
	}
	summary.TodayProfit = money.Sub(summary.TodaySales, summary.TodayExpenses)
	summary.NetProfit = money.Sub(money.Sub(summary.TotalRevenue, summary.TotalExpenses), summary.TotalPurchaseCost)
	return summary, nil
}

// MonthlyTrend returns twelve entries for year in loc: order revenue and
// count, expenses and their difference. Months without activity are zero.
func (s *Service) MonthlyTrend(ctx context.Context, year int, loc *time.Location) ([]models.MonthlyTrend, error) {
	if loc == nil {
		loc = time.UTC
	}
	snap, err := s.load(ctx, "reporting.MonthlyTrend")
	if err != nil {
		return nil, err
	}

	revenue := make([][]float64, 12)
	spent := make([][]float64, 12)
	trend := make([]models.MonthlyTrend, 12)
	for i := range trend {
		trend[i] = models.MonthlyTrend{Month: i + 1, Name: time.Month(i + 1).String()[:3]}
	}
	for _, o := range snap.orders {
		if d := o.Date.In(loc); d.Year() == year {
			m := int(d.Month()) - 1
			revenue[m] = append(revenue[m], o.TotalAmount)
			trend[m].Orders++
		}
	}
	for _, e := range snap.expenses {
		if d := e.Date.In(loc); d.Year() == year {
			m := int(d.Month()) - 1
			spent[m] = append(spent[m], e.Amount)
		}
	}
	for i := range trend {
		trend[i].Revenue = money.Sum(revenue[i]...)
		trend[i].Expenses = money.Sum(spent[i]...)
		trend[i].Profit = money.Sub(trend[i].Revenue, trend[i].Expenses)
	}
	return trend, nil
}

// TopCustomers ranks buyers by total spend: credit purchases of registered
// customers plus orders, matched on mobile number. Order buyers who never
// registered are ranked too. limit <= 0 means DefaultTopCustomers.
func (s *Service) TopCustomers(ctx context.Context, limit int) ([]models.TopCustomer, error) {
	if limit <= 0 {
		limit = DefaultTopCustomers
	}
	snap, err := s.load(ctx, "reporting.TopCustomers")
	if err != nil {
		return nil, err
	}

	byMobile := make(map[string]*models.TopCustomer, len(snap.customers))
	ranked := make([]*models.TopCustomer, 0, len(snap.customers))
	for _, c := range snap.customers {
		id := c.ID
		entry := &models.TopCustomer{CustomerID: &id, Name: c.Name, Mobile: c.Mobile, CreditPurchases: c.TotalPurchase}
		byMobile[c.Mobile] = entry
		ranked = append(ranked, entry)
	}
	for _, o := range snap.orders {
		entry, ok := byMobile[o.CustomerMobile]
		if !ok {
			entry = &models.TopCustomer{Name: o.CustomerName, Mobile: o.CustomerMobile}
			byMobile[o.CustomerMobile] = entry
			ranked = append(ranked, entry)
		}
		entry.OrderRevenue = money.Add(entry.OrderRevenue, o.TotalAmount)
		entry.OrderCount++
	}

	for _, e := range ranked {
		e.TotalSpend = money.Add(e.CreditPurchases, e.OrderRevenue)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := money.Cmp(ranked[i].TotalSpend, ranked[j].TotalSpend); c != 0 {
			return c > 0
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]models.TopCustomer, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, *e)
	}
	return out, nil
}

// BuildDailyReport summarises the ledger activity of the calendar day
// containing day, in loc, plus the outstanding balances at build time.
func (s *Service) BuildDailyReport(ctx context.Context, day time.Time, loc *time.Location) (*models.DailyReport, error) {
	if loc == nil {
		loc = time.UTC
	}
	snap, err := s.load(ctx, "reporting.BuildDailyReport")
	if err != nil {
		return nil, err
	}

	start, end := dayBounds(day, loc)
	within := func(t time.Time) bool { return !t.Before(start) && t.Before(end) }

	report := &models.DailyReport{Date: start, CreatedAt: s.now().UTC()}

	var purchased, sold, paidOut, credit, received, spent, pending, outstanding, labourDue []float64
	for _, p := range snap.purchases {
		if within(p.Date) {
			report.PurchasesCount++
			purchased = append(purchased, p.TotalCost)
			paidOut = append(paidOut, p.PaymentGiven)
		}
	}
	for _, b := range snap.batches {
		if within(b.ArrivalDate) {
			report.PurchasesCount++
			purchased = append(purchased, b.TotalCost)
		}
	}
	for _, o := range snap.orders {
		if within(o.Date) {
			report.OrdersCount++
			sold = append(sold, o.TotalAmount)
		}
	}
	for _, p := range snap.payments {
		if within(p.Date) {
			paidOut = append(paidOut, p.Amount)
		}
	}
	for _, e := range snap.entries {
		if !within(e.CreatedAt) {
			continue
		}
		if e.Kind == models.CustomerPayment {
			received = append(received, e.Amount)
		} else {
			credit = append(credit, e.Amount)
		}
	}
	for _, e := range snap.expenses {
		if within(e.Date) {
			spent = append(spent, e.Amount)
		}
	}
	for _, f := range snap.farmers {
		pending = append(pending, f.PendingPayment)
	}
	for _, c := range snap.customers {
		outstanding = append(outstanding, c.Balance)
	}
	for _, l := range snap.labour {
		if !l.IsPaid {
			labourDue = append(labourDue, l.Wage)
		}
	}

	report.PurchaseAmount = money.Sum(purchased...)
	report.SalesAmount = money.Sum(sold...)
	report.FarmerPaymentsAmount = money.Sum(paidOut...)
	report.CustomerCreditAmount = money.Sum(credit...)
	report.CustomerPaymentAmount = money.Sum(received...)
	report.Expenses = money.Sum(spent...)
	report.PendingFarmerPayments = money.Sum(pending...)
	report.CreditOutstanding = money.Sum(outstanding...)
	report.LabourPending = money.Sum(labourDue...)
	return report, nil
}

// FormatDailyReport renders a report as a WhatsApp text message.
func FormatDailyReport(r models.DailyReport) string {
	return fmt.Sprintf(
		"Daily report %s\n"+
			"Purchases: %d worth %.2f\n"+
			"Orders: %d worth %.2f\n"+
			"Paid to farmers: %.2f\n"+
			"Customer credit: %.2f\n"+
			"Customer payments: %.2f\n"+
			"Expenses: %.2f\n"+
			"Pending to farmers: %.2f\n"+
			"Credit outstanding: %.2f\n"+
			"Labour unpaid: %.2f",
		r.Date.Format(dateLayout),
		r.PurchasesCount, r.PurchaseAmount,
		r.OrdersCount, r.SalesAmount,
		r.FarmerPaymentsAmount,
		r.CustomerCreditAmount,
		r.CustomerPaymentAmount,
		r.Expenses,
		r.PendingFarmerPayments,
		r.CreditOutstanding,
		r.LabourPending,
	)
}

// DailyReportRow is the spreadsheet row mirrored for a report.
func DailyReportRow(r models.DailyReport) []interface{} {
	return []interface{}{
		r.Date.Format(dateLayout),
		r.PurchasesCount,
		r.PurchaseAmount,
		r.OrdersCount,
		r.SalesAmount,
		r.FarmerPaymentsAmount,
		r.CustomerCreditAmount,
		r.CustomerPaymentAmount,
		r.Expenses,
		r.PendingFarmerPayments,
		r.CreditOutstanding,
		r.LabourPending,
	}
}
