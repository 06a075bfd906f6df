package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is a buyer who may take goods on credit.
type Customer struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Mobile  string             `bson:"mobile" json:"mobile"`
	Address string             `bson:"address,omitempty" json:"address"`
	City    string             `bson:"city,omitempty" json:"city"`
	State   string             `bson:"state,omitempty" json:"state"`
	Pincode string             `bson:"pincode,omitempty" json:"pincode"`

	TotalPurchase float64 `bson:"totalPurchase" json:"totalPurchase"`
	TotalCredit   float64 `bson:"totalCredit" json:"totalCredit"`
	TotalPaid     float64 `bson:"totalPaid" json:"totalPaid"`
	Balance       float64 `bson:"balance" json:"balance"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CustomerTransactionKind distinguishes entries in the customer credit log.
type CustomerTransactionKind string

const (
	CustomerCredit  CustomerTransactionKind = "credit"
	CustomerPayment CustomerTransactionKind = "payment"
)

// CustomerTransaction is an append-only entry explaining one change to a customer's balance.
type CustomerTransaction struct {
	ID           primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	CustomerID   primitive.ObjectID      `bson:"customerId" json:"customerId"`
	Kind         CustomerTransactionKind `bson:"kind" json:"kind"`
	Amount       float64                 `bson:"amount" json:"amount"`
	Description  string                  `bson:"description,omitempty" json:"description,omitempty"`
	BalanceAfter float64                 `bson:"balanceAfter" json:"balanceAfter"`
	CreatedAt    time.Time               `bson:"createdAt" json:"createdAt"`
}

// SignedAmount is the entry's effect on the balance.
func (t CustomerTransaction) SignedAmount() float64 {
	if t.Kind == CustomerPayment {
		return -t.Amount
	}
	return t.Amount
}
