package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BoxType is the package size in kilograms. Only Box5 and Box10 exist.
type BoxType int

const (
	Box5  BoxType = 5
	Box10 BoxType = 10
)

// ParseBoxType converts a raw kilogram value into a BoxType.
func ParseBoxType(kg int) (BoxType, error) {
	switch BoxType(kg) {
	case Box5, Box10:
		return BoxType(kg), nil
	default:
		return 0, fmt.Errorf("box type must be 5 or 10, got %d", kg)
	}
}

// Valid reports whether b is one of the two known sizes.
func (b BoxType) Valid() bool {
	return b == Box5 || b == Box10
}

// Kg returns the weight of one box.
func (b BoxType) Kg() int {
	return int(b)
}

// VarietyStock aggregates box counts for a single mango variety. Variety is unique.
type VarietyStock struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Variety    string             `bson:"variety" json:"variety"`
	Box5Total  int                `bson:"box5Total" json:"box5Total"`
	Box10Total int                `bson:"box10Total" json:"box10Total"`
	Box5Sold   int                `bson:"box5Sold" json:"box5Sold"`
	Box10Sold  int                `bson:"box10Sold" json:"box10Sold"`
	Version    int64              `bson:"version" json:"-"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Box5Remaining is the number of 5kg boxes still unsold.
func (s VarietyStock) Box5Remaining() int { return s.Box5Total - s.Box5Sold }

// Box10Remaining is the number of 10kg boxes still unsold.
func (s VarietyStock) Box10Remaining() int { return s.Box10Total - s.Box10Sold }

// MarshalJSON adds the derived remaining counts.
func (s VarietyStock) MarshalJSON() ([]byte, error) {
	type plain VarietyStock
	return json.Marshal(struct {
		plain
		Box5Remaining  int `json:"box5Remaining"`
		Box10Remaining int `json:"box10Remaining"`
	}{plain(s), s.Box5Remaining(), s.Box10Remaining()})
}
