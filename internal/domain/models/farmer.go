package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Farmer is a produce supplier together with the running totals the ledger keeps for them.
type Farmer struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Mobile  string             `bson:"mobile,omitempty" json:"mobile"`
	Village string             `bson:"village,omitempty" json:"village"`

	TotalBoxes5         int     `bson:"totalBoxes5" json:"totalBoxes5"`
	TotalBoxes10        int     `bson:"totalBoxes10" json:"totalBoxes10"`
	TotalPurchaseAmount float64 `bson:"totalPurchaseAmount" json:"totalPurchaseAmount"`
	TotalPaymentGiven   float64 `bson:"totalPaymentGiven" json:"totalPaymentGiven"`
	PendingPayment      float64 `bson:"pendingPayment" json:"pendingPayment"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FarmerPurchase is the immutable record of one purchase of boxes from a farmer.
// FarmerID is a plain reference: the record outlives the farmer.
type FarmerPurchase struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID      primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Variety       string             `bson:"variety" json:"variety"`
	BoxType       BoxType            `bson:"boxType" json:"boxType"`
	BoxQuantity   int                `bson:"boxQuantity" json:"boxQuantity"`
	RatePerBox    float64            `bson:"ratePerBox" json:"ratePerBox"`
	TotalKg       int                `bson:"totalKg" json:"totalKg"`
	TotalCost     float64            `bson:"totalCost" json:"totalCost"`
	PaymentGiven  float64            `bson:"paymentGiven" json:"paymentGiven"`
	PendingAmount float64            `bson:"pendingAmount" json:"pendingAmount"`
	Date          time.Time          `bson:"date" json:"date"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// FarmerPayment records money handed to a farmer against their pending balance.
type FarmerPayment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID     primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Amount       float64            `bson:"amount" json:"amount"`
	PendingAfter float64            `bson:"pendingAfter" json:"pendingAfter"`
	Date         time.Time          `bson:"date" json:"date"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Batch is a combined 5kg and 10kg arrival from a farmer, billed in full to the farmer's pending payment.
type Batch struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BatchID      string             `bson:"batchId" json:"batchId"`
	FarmerID     primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Variety      string             `bson:"variety" json:"variety"`
	Box5         int                `bson:"box5" json:"box5"`
	Box10        int                `bson:"box10" json:"box10"`
	CostPerBox5  float64            `bson:"costPerBox5" json:"costPerBox5"`
	CostPerBox10 float64            `bson:"costPerBox10" json:"costPerBox10"`
	TotalCost    float64            `bson:"totalCost" json:"totalCost"`
	ArrivalDate  time.Time          `bson:"arrivalDate" json:"arrivalDate"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
