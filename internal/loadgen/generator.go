package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// persona weights categories in the order of categories.
type persona struct {
	name    string
	weights []float64
	price   float64
}

var categories = []string{"food", "snack", "entertainment", "toy", "education", "other"}

var personas = []persona{
	{name: "learner", weights: []float64{2, 1, 1, 1, 6, 1}, price: 12},
	{name: "snacker", weights: []float64{2, 6, 1, 1, 1, 1}, price: 3},
	{name: "player", weights: []float64{1, 1, 4, 4, 1, 1}, price: 15},
	{name: "saver", weights: []float64{4, 1, 1, 1, 1, 2}, price: 5},
}

// Generate builds histories ending at now for cfg.Subjects subjects. The
// result is ordered by subject, then time, and depends only on cfg.Seed.
func Generate(cfg Config, now time.Time) []Event {
	cfg.withDefaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	start := now.Add(-time.Duration(cfg.Days) * 24 * time.Hour)

	events := make([]Event, 0, cfg.Subjects*cfg.Days*cfg.EventsPerDay)
	for s := 0; s < cfg.Subjects; s++ {
		p := personas[s%len(personas)]
		subject := fmt.Sprintf("sub-%04d", s)
		for d := 0; d < cfg.Days; d++ {
			for j := 0; j < cfg.EventsPerDay; j++ {
				at := start.Add(time.Duration(d)*24*time.Hour + time.Duration(8+rng.IntN(12))*time.Hour +
					time.Duration(rng.IntN(60))*time.Minute)
				if at.After(now) {
					at = now
				}
				cat := pick(rng, p.weights)
				events = append(events, Event{
					EventID:     fmt.Sprintf("%s-%03d-%d", subject, d, j),
					SubjectID:   subject,
					Category:    categories[cat],
					ProductName: fmt.Sprintf("%s-%d", categories[cat], rng.IntN(10)),
					UnitPrice:   round2(p.price * (0.5 + rng.Float64())),
					Quantity:    1 + rng.IntN(3),
					Timestamp:   at.UTC().Format(time.RFC3339),
				})
			}
		}
	}
	return events
}

// withDuplicates appends a resend of every n-th event.
func withDuplicates(events []Event, n int) []Event {
	if n <= 0 {
		return events
	}
	out := events
	for i := n - 1; i < len(events); i += n {
		out = append(out, events[i])
	}
	return out
}

func pick(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
