package features

import (
	"math"
	"sort"
	"time"

	"github.com/okian/spendlens/internal/domain/model"
)

const (
	defaultWindowDays = 7
	day               = 24 * time.Hour
	impulseGap        = time.Hour
)

// Windows is the output of one extraction.
type Windows struct {
	AsOf       time.Time `json:"as_of"`
	WindowDays int       `json:"window_days"`

	Recent     Vector  `json:"recent"`
	Historical Vector  `json:"historical"`
	All        Vector  `json:"all"`
	Change     *Change `json:"change,omitempty"`

	RecentCount     int `json:"recent_count"`
	HistoricalCount int `json:"historical_count"`
	Excluded        int `json:"excluded"`

	// PreviousSpent is the spend of the window right before Recent.
	PreviousSpent float64 `json:"previous_spent"`

	InsufficientData bool `json:"insufficient_data"`
}

// Profile returns the vector personality typing runs on: the recent window,
// or the whole history when the recent window is empty.
func (w Windows) Profile() Vector {
	if w.RecentCount > 0 {
		return w.Recent
	}
	return w.All
}

// Extractor splits events into windows and computes their vectors.
type Extractor struct {
	now        func() time.Time
	windowDays int
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{now: time.Now, windowDays: defaultWindowDays}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract splits a subject's events at now-windowDays. Invalid events are
// dropped and counted in Excluded. Change is set only when both windows
// hold events.
func (x *Extractor) Extract(events []model.PurchaseEvent, windowDays int) Windows {
	if windowDays <= 0 {
		windowDays = x.windowDays
	}
	now := x.now()
	valid, excluded := Valid(events)

	w := Windows{
		AsOf:       now,
		WindowDays: windowDays,
		Recent:     Neutral(),
		Historical: Neutral(),
		All:        Neutral(),
		Excluded:   excluded,
	}
	if len(valid) == 0 {
		w.InsufficientData = true
		return w
	}

	span := time.Duration(windowDays) * day
	cutoff := now.Add(-span)
	prevCutoff := cutoff.Add(-span)

	var recent, historical []model.PurchaseEvent
	for _, e := range valid {
		if e.OccurredAt.Before(cutoff) {
			historical = append(historical, e)
			if !e.OccurredAt.Before(prevCutoff) {
				w.PreviousSpent += e.Amount()
			}
			continue
		}
		recent = append(recent, e)
	}

	w.RecentCount = len(recent)
	w.HistoricalCount = len(historical)
	w.Recent = Compute(recent)
	w.Historical = Compute(historical)
	w.All = Compute(valid)
	if w.RecentCount > 0 && w.HistoricalCount > 0 {
		w.Change = Compare(w.Recent, w.Historical)
	}
	return w
}

// Valid filters out events that fail validation.
func Valid(events []model.PurchaseEvent) ([]model.PurchaseEvent, int) {
	out := make([]model.PurchaseEvent, 0, len(events))
	for _, e := range events {
		if !e.Valid() {
			continue
		}
		e.Category = model.ParseCategory(string(e.Category))
		out = append(out, e)
	}
	return out, len(events) - len(out)
}

// Tumbling cuts a subject's history into consecutive windows of windowDays
// ending at its latest event, newest first, and returns the vectors of the
// non-empty ones.
func Tumbling(events []model.PurchaseEvent, windowDays int) []Vector {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	valid, _ := Valid(events)
	if len(valid) == 0 {
		return nil
	}
	sortByTime(valid)
	span := time.Duration(windowDays) * day
	end := valid[len(valid)-1].OccurredAt

	var out []Vector
	hi := len(valid)
	for hi > 0 {
		start := end.Add(-span)
		lo := hi
		for lo > 0 && valid[lo-1].OccurredAt.After(start) {
			lo--
		}
		if lo < hi {
			out = append(out, Compute(valid[lo:hi]))
		}
		hi = lo
		end = start
	}
	return out
}

// Compute builds the vector of one window. Events must be valid.
func Compute(events []model.PurchaseEvent) Vector {
	v := Neutral()
	n := len(events)
	if n == 0 {
		return v
	}
	sorted := make([]model.PurchaseEvent, n)
	copy(sorted, events)
	sortByTime(sorted)

	var (
		spent      float64
		catSpend   [len(model.Categories)]float64
		hours      = make([]float64, n)
		weekdays   = make([]float64, n)
		prices     = make([]float64, n)
		products   = make(map[string]struct{})
		categories = make(map[model.Category]struct{})
		morning    int
		afternoon  int
		evening    int
	)
	for i, e := range sorted {
		amount := e.Amount()
		spent += amount
		cat := model.ParseCategory(string(e.Category))
		catSpend[cat.Index()] += amount
		categories[cat] = struct{}{}
		products[e.ProductName] = struct{}{}

		h := e.OccurredAt.Hour()
		hours[i] = float64(h)
		// Monday is 0.
		weekdays[i] = float64((int(e.OccurredAt.Weekday()) + 6) % 7)
		prices[i] = e.UnitPrice
		switch {
		case h >= 6 && h <= 11:
			morning++
		case h >= 12 && h <= 17:
			afternoon++
		case h >= 18:
			evening++
		}
	}

	v[TotalSpent] = spent
	v[TotalPurchases] = float64(n)
	v[AvgAmount] = spent / float64(n)
	v[HourVariance] = sampleVariance(hours)
	v[WeekdayVariance] = sampleVariance(weekdays)
	v[PriceVariance] = sampleVariance(prices)
	if n > 1 {
		lo, hi := prices[0], prices[0]
		for _, p := range prices[1:] {
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		v[PriceRange] = hi - lo
	}

	if n > 1 {
		var sum float64
		minGap := math.Inf(1)
		impulses := 0
		for i := 1; i < n; i++ {
			gap := sorted[i].OccurredAt.Sub(sorted[i-1].OccurredAt)
			hrs := gap.Hours()
			sum += hrs
			minGap = math.Min(minGap, hrs)
			if gap < impulseGap {
				impulses++
			}
		}
		v[AvgInterval] = sum / float64(n-1)
		v[MinInterval] = minGap
		v[ImpulseScore] = float64(impulses) / float64(n)
	}

	v[UniqueProducts] = float64(len(products))
	v[UniqueCategories] = float64(len(categories))
	v[DiversityScore] = float64(len(products)) / float64(n)

	v[MorningShare] = percent(morning, n)
	v[AfternoonShare] = percent(afternoon, n)
	v[EveningShare] = percent(evening, n)

	if spent > 0 {
		var entropy float64
		for i, s := range catSpend {
			share := s / spent
			v[FoodRatio+Key(i)] = clamp(share*100, 0, 100)
			if share > 0 {
				entropy -= share * math.Log2(share)
			}
		}
		v[CategoryEntropy] = entropy
	}
	return v
}

func sortByTime(events []model.PurchaseEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
}

// sampleVariance uses n-1; fewer than two values give 0.
func sampleVariance(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(n-1)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
