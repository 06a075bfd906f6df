package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/domain/money"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

// OrderInput describes a new sale. PaymentStatus defaults to Pending and Date
// to now; the invoice year follows Date.
type OrderInput struct {
	CustomerName   string
	CustomerMobile string
	Address        string
	BoxType        int
	BoxPrice       float64
	BoxQuantity    int
	PaymentStatus  string
	Date           time.Time
}

// OrderUpdate carries the fields an edit may change. Nil means unchanged.
type OrderUpdate struct {
	CustomerMobile *string
	Address        *string
	BoxType        *int
	BoxPrice       *float64
	BoxQuantity    *int
	PaymentStatus  *string
}

func validBoxPrice(price float64) bool {
	return money.Finite(price) && money.Cmp(price, 0) > 0
}

// CreateOrder records a sale and assigns it the next INV-YYYY-NNNN invoice
// number in the same unit of work.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error) {
	const op = "registry.CreateOrder"
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerMobile = strings.TrimSpace(in.CustomerMobile)
	in.Address = strings.TrimSpace(in.Address)
	switch {
	case in.CustomerName == "":
		return nil, apperr.Validation(op, "customerName is required")
	case in.CustomerMobile == "":
		return nil, apperr.Validation(op, "customerMobile is required")
	case in.Address == "":
		return nil, apperr.Validation(op, "address is required")
	case !validBoxPrice(in.BoxPrice):
		return nil, apperr.Validation(op, "boxPrice must be greater than 0")
	case in.BoxQuantity < 1:
		return nil, apperr.Validation(op, "boxQuantity must be at least 1")
	}
	boxType, err := models.ParseBoxType(in.BoxType)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	status := models.OrderPending
	if in.PaymentStatus != "" {
		if status, err = models.ParsePaymentStatus(in.PaymentStatus); err != nil {
			return nil, apperr.Validation(op, "%v", err)
		}
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	price := money.Round(in.BoxPrice)
	order := &models.Order{
		CustomerName:   in.CustomerName,
		CustomerMobile: in.CustomerMobile,
		Address:        in.Address,
		BoxType:        boxType,
		BoxPrice:       price,
		BoxQuantity:    in.BoxQuantity,
		TotalAmount:    money.Mul(float64(in.BoxQuantity), price),
		PaymentStatus:  status,
		Date:           in.Date,
	}
	err = s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		year := order.Date.Year()
		seq, err := tx.NextInvoiceSequence(ctx, year)
		if err != nil {
			return fmt.Errorf("reserve invoice number: %w", err)
		}
		order.InvoiceNumber = models.InvoiceNumber(year, seq)
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("invoice", order.InvoiceNumber),
		zap.Float64("total", order.TotalAmount),
	)
	return order, nil
}

// UpdateOrder applies the given changes and recomputes TotalAmount.
func (s *Service) UpdateOrder(ctx context.Context, id primitive.ObjectID, in OrderUpdate) (*models.Order, error) {
	const op = "registry.UpdateOrder"
	if in.BoxPrice != nil && !validBoxPrice(*in.BoxPrice) {
		return nil, apperr.Validation(op, "boxPrice must be greater than 0")
	}
	if in.BoxQuantity != nil && *in.BoxQuantity < 1 {
		return nil, apperr.Validation(op, "boxQuantity must be at least 1")
	}
	var boxType models.BoxType
	if in.BoxType != nil {
		bt, err := models.ParseBoxType(*in.BoxType)
		if err != nil {
			return nil, apperr.Validation(op, "%v", err)
		}
		boxType = bt
	}
	var status models.PaymentStatus
	if in.PaymentStatus != nil {
		ps, err := models.ParsePaymentStatus(*in.PaymentStatus)
		if err != nil {
			return nil, apperr.Validation(op, "%v", err)
		}
		status = ps
	}

	var out *models.Order
	err := s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		order, err := tx.FindOrder(ctx, id)
		if err != nil {
			return notFound(op, "order", id.Hex(), err)
		}
		if in.CustomerMobile != nil {
			order.CustomerMobile = strings.TrimSpace(*in.CustomerMobile)
		}
		if in.Address != nil {
			order.Address = strings.TrimSpace(*in.Address)
		}
		if boxType != 0 {
			order.BoxType = boxType
		}
		if in.BoxPrice != nil {
			order.BoxPrice = money.Round(*in.BoxPrice)
		}
		if in.BoxQuantity != nil {
			order.BoxQuantity = *in.BoxQuantity
		}
		if status != "" {
			order.PaymentStatus = status
		}
		order.TotalAmount = money.Mul(float64(order.BoxQuantity), order.BoxPrice)

		if err := tx.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetOrderPaymentStatus marks an order Paid or Pending.
func (s *Service) SetOrderPaymentStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error) {
	if _, err := models.ParsePaymentStatus(status); err != nil {
		return nil, apperr.Validation("registry.SetOrderPaymentStatus", "%v", err)
	}
	return s.UpdateOrder(ctx, id, OrderUpdate{PaymentStatus: &status})
}

func (s *Service) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	const op = "registry.GetOrder"
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, s.fail(op, notFound(op, "order", id.Hex(), err))
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, filter)
	return orders, s.fail("registry.ListOrders", err)
}

// DeleteOrder removes an order. Its invoice number is not reissued.
func (s *Service) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	const op = "registry.DeleteOrder"
	return s.write(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.DeleteOrder(ctx, id); err != nil {
			return notFound(op, "order", id.Hex(), err)
		}
		return nil
	})
}
