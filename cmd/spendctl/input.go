package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/loadgen"
)

// population is the parsed input file.
type population struct {
	events   []model.PurchaseEvent
	subjects []string
	skipped  int
}

// readEvents parses a JSON array of POST /events bodies. Events without an
// id get one; events without a subject or with a bad timestamp are skipped
// and counted.
func readEvents(path string) (*population, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var raw []loadgen.Event
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse events %s: %w", path, err)
	}

	pop := &population{events: make([]model.PurchaseEvent, 0, len(raw))}
	seen := make(map[string]bool)
	for _, r := range raw {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if r.SubjectID == "" || err != nil {
			pop.skipped++
			continue
		}
		e := model.PurchaseEvent{
			ID:          r.EventID,
			SubjectID:   r.SubjectID,
			Category:    model.ParseCategory(r.Category),
			ProductName: r.ProductName,
			UnitPrice:   r.UnitPrice,
			Quantity:    r.Quantity,
			OccurredAt:  ts.UTC(),
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		pop.events = append(pop.events, e)
		if !seen[e.SubjectID] {
			seen[e.SubjectID] = true
			pop.subjects = append(pop.subjects, e.SubjectID)
		}
	}
	sort.Strings(pop.subjects)
	return pop, nil
}
