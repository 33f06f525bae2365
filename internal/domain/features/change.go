package features

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/okian/spendlens/internal/domain/model"
)

// Comparable lists the keys that get a percent change between windows.
var Comparable = []Key{
	TotalSpent,
	TotalPurchases,
	AvgAmount,
	HourVariance,
	AvgInterval,
	PriceVariance,
	ImpulseScore,
}

// Change compares a recent window against the historical baseline.
// Totals and counts use percent change; category shares use a
// percentage-point delta.
type Change struct {
	Percent map[Key]float64
	Shift   map[model.Category]float64
}

// PercentChange is (r-h)/h*100, with h == 0 mapping to 100 when r > 0 and 0 otherwise.
func PercentChange(recent, historical float64) float64 {
	if historical == 0 {
		if recent > 0 {
			return 100
		}
		return 0
	}
	return (recent - historical) / historical * 100
}

// Compare builds the change between two non-empty windows.
func Compare(recent, historical Vector) *Change {
	c := &Change{
		Percent: make(map[Key]float64, len(Comparable)),
		Shift:   make(map[model.Category]float64, len(model.Categories)),
	}
	for _, k := range Comparable {
		c.Percent[k] = PercentChange(recent[k], historical[k])
	}
	for _, cat := range model.Categories {
		c.Shift[cat] = recent.Ratio(cat) - historical.Ratio(cat)
	}
	return c
}

// Pct returns the percent change of k, 0 when not comparable.
func (c *Change) Pct(k Key) float64 {
	if c == nil {
		return 0
	}
	return c.Percent[k]
}

// ShiftOf returns the percentage-point shift of cat.
func (c *Change) ShiftOf(cat model.Category) float64 {
	if c == nil {
		return 0
	}
	return c.Shift[cat]
}

type changeJSON struct {
	Percent map[string]float64 `json:"percent"`
	Shift   map[string]float64 `json:"category_shift"`
}

// MarshalJSON keys percent changes by feature name and shifts by category.
func (c Change) MarshalJSON() ([]byte, error) {
	out := changeJSON{
		Percent: make(map[string]float64, len(c.Percent)),
		Shift:   make(map[string]float64, len(c.Shift)),
	}
	for k, v := range c.Percent {
		out.Percent[k.String()] = v
	}
	for cat, v := range c.Shift {
		out.Shift[string(cat)] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON rejects names outside the schema and the category list.
func (c *Change) UnmarshalJSON(b []byte) error {
	var in changeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := Change{
		Percent: make(map[Key]float64, len(in.Percent)),
		Shift:   make(map[model.Category]float64, len(in.Shift)),
	}
	for name, v := range in.Percent {
		k, ok := ParseKey(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, name)
		}
		out.Percent[k] = v
	}
	for name, v := range in.Shift {
		cat := model.Category(name)
		if !knownCategory(cat) {
			return fmt.Errorf("%w: category %s", ErrUnknownKey, name)
		}
		out.Shift[cat] = v
	}
	*c = out
	return nil
}

func knownCategory(c model.Category) bool {
	for _, known := range model.Categories {
		if c == known {
			return true
		}
	}
	return false
}
