package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus tracks whether an order has been settled.
type PaymentStatus string

const (
	OrderPaid    PaymentStatus = "Paid"
	OrderPending PaymentStatus = "Pending"
)

// ParsePaymentStatus accepts "Paid" or "Pending" in any case.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch {
	case strings.EqualFold(raw, string(OrderPaid)):
		return OrderPaid, nil
	case strings.EqualFold(raw, string(OrderPending)):
		return OrderPending, nil
	default:
		return "", fmt.Errorf("payment status must be Paid or Pending, got %q", raw)
	}
}

// Order is a sale of boxes to a walk-in or delivery customer. TotalAmount is
// always BoxQuantity × BoxPrice, computed by the server.
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InvoiceNumber  string             `bson:"invoiceNumber" json:"invoiceNumber"`
	CustomerName   string             `bson:"customerName" json:"customerName"`
	CustomerMobile string             `bson:"customerMobile" json:"customerMobile"`
	Address        string             `bson:"address" json:"address"`
	BoxType        BoxType            `bson:"boxType" json:"boxType"`
	BoxPrice       float64            `bson:"boxPrice" json:"boxPrice"`
	BoxQuantity    int                `bson:"boxQuantity" json:"boxQuantity"`
	TotalAmount    float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentStatus  PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	Date           time.Time          `bson:"date" json:"date"`
	Version        int64              `bson:"version" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// InvoiceCounter holds the last invoice sequence issued in a calendar year.
type InvoiceCounter struct {
	Year    int   `bson:"_id"`
	Seq     int   `bson:"seq"`
	Version int64 `bson:"version"`
}

// InvoiceNumber formats a sequence as INV-YYYY-NNNN.
func InvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%04d-%04d", year, seq)
}
