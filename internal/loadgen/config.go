// Package loadgen drives a running server over HTTP: it generates purchase
// histories, submits them concurrently, and checks every subject can be
// analyzed afterwards.
package loadgen

import (
	"errors"
	"time"
)

// Defaults.
const (
	DefaultSubjects     = 50
	DefaultDays         = 28
	DefaultEventsPerDay = 3
	DefaultTimeout      = 10 * time.Second
	DefaultSettle       = 30 * time.Second
)

var (
	// ErrUnhealthy is returned when /healthz does not answer 200.
	ErrUnhealthy = errors.New("loadgen: service unhealthy")
	// ErrNotSettled is returned when stored events never reach the accepted count.
	ErrNotSettled = errors.New("loadgen: events not stored in time")
	// ErrAnalysisFailed is returned when some subjects cannot be analyzed.
	ErrAnalysisFailed = errors.New("loadgen: analysis failed")
)

// Config controls one run.
type Config struct {
	BaseURL      string
	Subjects     int
	Days         int
	EventsPerDay int
	// DuplicateEvery resends every n-th event; zero disables duplicates.
	DuplicateEvery int
	Workers        int
	Timeout        time.Duration
	// Settle bounds the wait for ingestion to catch up.
	Settle time.Duration
	Train  bool
	// Seed makes generation reproducible.
	Seed       uint64
	OutputFile string
}

func (c *Config) withDefaults() {
	if c.Subjects <= 0 {
		c.Subjects = DefaultSubjects
	}
	if c.Days <= 0 {
		c.Days = DefaultDays
	}
	if c.EventsPerDay <= 0 {
		c.EventsPerDay = DefaultEventsPerDay
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
}

// Event is the POST /events body.
type Event struct {
	EventID     string  `json:"event_id"`
	SubjectID   string  `json:"subject_id"`
	Category    string  `json:"category"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Timestamp   string  `json:"timestamp"`
}

// Stats summarizes a run.
type Stats struct {
	Generated  int           `json:"generated"`
	Submitted  int           `json:"submitted"`
	Accepted   int           `json:"accepted"`
	Duplicates int           `json:"duplicates"`
	Rejected   int           `json:"rejected"`
	Failed     int           `json:"failed"`
	Analyzed   int           `json:"analyzed"`
	Alerts     int           `json:"alerts"`
	Trained    bool          `json:"trained"`
	Duration   time.Duration `json:"duration"`
}
