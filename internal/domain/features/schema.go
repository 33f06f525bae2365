// Package features turns purchase events into fixed-schema behavioral vectors.
package features

import (
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	"github.com/okian/spendlens/internal/domain/model"
)

// SchemaVersion changes whenever keys are added, removed or reordered.
// Persisted models carry it and are rejected on mismatch.
const SchemaVersion = 1

// TypicalIntervalHours is the neutral value of interval features.
const TypicalIntervalHours = 24.0

// Key indexes a Vector.
type Key int

const (
	TotalSpent Key = iota
	TotalPurchases
	AvgAmount
	HourVariance
	WeekdayVariance
	AvgInterval
	MinInterval
	PriceVariance
	PriceRange
	ImpulseScore
	UniqueProducts
	UniqueCategories
	CategoryEntropy
	DiversityScore
	MorningShare
	AfternoonShare
	EveningShare
	FoodRatio
	SnackRatio
	EntertainmentRatio
	ToyRatio
	EducationRatio
	OtherRatio

	NumKeys
)

var keyNames = [NumKeys]string{
	"total_spent",
	"total_purchases",
	"avg_amount",
	"hour_variance",
	"weekday_variance",
	"avg_interval",
	"min_interval",
	"price_variance",
	"price_range",
	"impulse_score",
	"unique_products",
	"unique_categories",
	"category_entropy",
	"diversity_score",
	"morning_share",
	"afternoon_share",
	"evening_share",
	"food_ratio",
	"snack_ratio",
	"entertainment_ratio",
	"toy_ratio",
	"education_ratio",
	"other_ratio",
}

func (k Key) String() string {
	if k < 0 || k >= NumKeys {
		return fmt.Sprintf("key(%d)", int(k))
	}
	return keyNames[k]
}

// ParseKey returns the key named name.
func ParseKey(name string) (Key, bool) {
	for i, n := range keyNames {
		if n == name {
			return Key(i), true
		}
	}
	return 0, false
}

// Keys returns every key in schema order.
func Keys() []Key {
	out := make([]Key, NumKeys)
	for i := range out {
		out[i] = Key(i)
	}
	return out
}

// RatioKey returns the spend ratio key of a category.
func RatioKey(c model.Category) Key {
	return FoodRatio + Key(c.Index())
}

// IsPercent reports keys expressed in [0,100].
func (k Key) IsPercent() bool {
	return (k >= MorningShare && k <= EveningShare) || (k >= FoodRatio && k <= OtherRatio)
}

// IsFraction reports keys expressed in [0,1].
func (k Key) IsFraction() bool {
	return k == ImpulseScore || k == DiversityScore
}

// Vector holds one value per key. The zero value is not neutral; use Neutral.
type Vector [NumKeys]float64

// Neutral is the vector of an empty window.
func Neutral() Vector {
	var v Vector
	v[AvgInterval] = TypicalIntervalHours
	v[MinInterval] = TypicalIntervalHours
	return v
}

// Get returns the value at k.
func (v Vector) Get(k Key) float64 { return v[k] }

// Ratio returns the spend share of c in percent.
func (v Vector) Ratio(c model.Category) float64 { return v[RatioKey(c)] }

// Slice copies the vector into a new slice for the numeric learners.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumKeys)
	copy(out, v[:])
	return out
}

// Map returns name -> value.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, NumKeys)
	for i, x := range v {
		m[keyNames[i]] = x
	}
	return m
}

// MarshalJSON encodes the vector as an object keyed by feature name.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON requires every schema key to be present.
func (v *Vector) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Vector
	for i, name := range keyNames {
		x, ok := m[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingKey, name)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s", ErrNonFinite, name)
		}
		out[i] = x
	}
	*v = out
	return nil
}
