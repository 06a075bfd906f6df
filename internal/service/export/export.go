// Package export renders ledger listings as Excel workbooks.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

const (
	FarmersSheet   = "Farmers"
	CustomersSheet = "Customers"
	OrdersSheet    = "Orders"
	dateLayout     = "2006-01-02"
)

var (
	farmerHeader = []interface{}{
		"Name", "Mobile", "Village", "5kg Boxes", "10kg Boxes",
		"Total Purchase", "Total Paid", "Pending Payment", "Registered",
	}
	customerHeader = []interface{}{
		"Name", "Mobile", "Address", "City", "State", "Pincode",
		"Total Purchase", "Total Credit", "Total Paid", "Balance", "Registered",
	}
	orderHeader = []interface{}{
		"Invoice", "Customer Name", "Mobile", "Address", "Box Size",
		"Quantity", "Price", "Total", "Payment Status", "Order Date",
	}
)

// Service builds workbooks from the current ledger state.
type Service struct {
	store  repository.Reader
	logger *zap.Logger
}

// NewService creates an export service.
func NewService(store repository.Reader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ExportFarmers writes every farmer with their totals to w as an .xlsx workbook.
func (s *Service) ExportFarmers(ctx context.Context, w io.Writer) error {
	const op = "export.ExportFarmers"
	farmers, err := s.store.ListFarmers(ctx, "")
	if err != nil {
		return apperr.Storage(op, err)
	}

	rows := make([][]interface{}, 0, len(farmers))
	for _, f := range farmers {
		rows = append(rows, []interface{}{
			f.Name, f.Mobile, f.Village, f.TotalBoxes5, f.TotalBoxes10,
			f.TotalPurchaseAmount, f.TotalPaymentGiven, f.PendingPayment,
			f.CreatedAt.Format(dateLayout),
		})
	}
	return s.write(op, w, FarmersSheet, farmerHeader, rows)
}

// ExportCustomers writes every customer with their balances to w as an .xlsx workbook.
func (s *Service) ExportCustomers(ctx context.Context, w io.Writer) error {
	const op = "export.ExportCustomers"
	customers, err := s.store.ListCustomers(ctx, "")
	if err != nil {
		return apperr.Storage(op, err)
	}

	rows := make([][]interface{}, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []interface{}{
			c.Name, c.Mobile, c.Address, c.City, c.State, c.Pincode,
			c.TotalPurchase, c.TotalCredit, c.TotalPaid, c.Balance,
			c.CreatedAt.Format(dateLayout),
		})
	}
	return s.write(op, w, CustomersSheet, customerHeader, rows)
}

// ExportOrders writes the orders matching filter to w as an .xlsx workbook.
func (s *Service) ExportOrders(ctx context.Context, filter repository.OrderFilter, w io.Writer) error {
	const op = "export.ExportOrders"
	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return apperr.Storage(op, err)
	}

	rows := make([][]interface{}, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []interface{}{
			o.InvoiceNumber, o.CustomerName, o.CustomerMobile, o.Address,
			fmt.Sprintf("%dkg", o.BoxType.Kg()), o.BoxQuantity, o.BoxPrice, o.TotalAmount,
			string(o.PaymentStatus), o.Date.Format(dateLayout),
		})
	}
	return s.write(op, w, OrdersSheet, orderHeader, rows)
}

func (s *Service) write(op string, w io.Writer, sheet string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return apperr.Storage(op, fmt.Errorf("rename sheet: %w", err))
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperr.Storage(op, fmt.Errorf("create header style: %w", err))
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperr.Storage(op, fmt.Errorf("write header: %w", err))
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return apperr.Storage(op, fmt.Errorf("style header: %w", err))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperr.Storage(op, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return apperr.Storage(op, fmt.Errorf("write row %d: %w", i+2, err))
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return apperr.Storage(op, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return apperr.Storage(op, fmt.Errorf("set column width: %w", err))
	}

	if err := f.Write(w); err != nil {
		return apperr.Storage(op, fmt.Errorf("write workbook: %w", err))
	}

	s.logger.Debug("workbook exported", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	return nil
}
