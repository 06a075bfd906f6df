package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Labour captures one wage entry for a worker.
type Labour struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkerName  string             `bson:"workerName" json:"workerName"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber"`
	HoursWorked float64            `bson:"hoursWorked" json:"hoursWorked"`
	RatePerHour float64            `bson:"ratePerHour" json:"ratePerHour"`
	Wage        float64            `bson:"wage" json:"wage"` // HoursWorked * RatePerHour
	WorkDate    time.Time          `bson:"workDate" json:"workDate"`
	IsPaid      bool               `bson:"isPaid" json:"isPaid"`
	PaidDate    *time.Time         `bson:"paidDate,omitempty" json:"paidDate,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes"`
	Version     int64              `bson:"version" json:"-"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Expense captures operating expenses.
type Expense struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Amount    float64            `bson:"amount" json:"amount"`
	Category  string             `bson:"category" json:"category"`
	Date      time.Time          `bson:"date" json:"date"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// DefaultExpenseCategory is used when an expense arrives without a category.
const DefaultExpenseCategory = "General"
