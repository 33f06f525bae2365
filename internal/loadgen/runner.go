package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/okian/spendlens/pkg/logger"
)

const (
	settlePoll   = 100 * time.Millisecond
	filePerm     = 0o600
	dirPerm      = 0o750
	analyzeRoute = "/subjects/%s/analysis"
)

// Run performs a full load cycle against cfg.BaseURL and returns its
// statistics. The returned error reports the first stage that failed.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Stats, error) {
	cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	began := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)
	stats := &Stats{}

	if status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil || status != http.StatusOK {
		return stats, fmt.Errorf("%w: status %d: %v", ErrUnhealthy, status, err)
	}

	events := Generate(cfg, time.Now())
	stats.Generated = len(events)
	if cfg.OutputFile != "" {
		if err := save(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events", logger.String("file", cfg.OutputFile), logger.Error(err))
		}
	}

	submit(ctx, c, withDuplicates(events, cfg.DuplicateEvery), cfg.Workers, stats)
	log.Info(ctx, "events submitted",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed))

	if err := settle(ctx, c, stats.Accepted, cfg.Settle); err != nil {
		return stats, err
	}

	if cfg.Train {
		var res struct {
			Trained bool `json:"trained"`
		}
		status, err := c.do(ctx, http.MethodPost, "/models/train", nil, &res)
		if err != nil {
			return stats, fmt.Errorf("train: %w", err)
		}
		stats.Trained = status == http.StatusOK && res.Trained
		log.Info(ctx, "training requested", logger.Int("status", status), logger.Bool("trained", stats.Trained))
	}

	if err := analyze(ctx, c, cfg, stats); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(began)
	log.Info(ctx, "load run finished",
		logger.Int("analyzed", stats.Analyzed),
		logger.Int("alerts", stats.Alerts),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// submit fans events out to workers.
func submit(ctx context.Context, c *client, events []Event, workers int, stats *Stats) {
	var counts [4]atomic.Int64
	ch := make(chan Event, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range ch {
				counts[c.post(ctx, e)].Add(1)
			}
		}()
	}
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}
		ch <- e
	}
	close(ch)
	wg.Wait()

	stats.Accepted = int(counts[outcomeAccepted].Load())
	stats.Duplicates = int(counts[outcomeDuplicate].Load())
	stats.Rejected = int(counts[outcomeRejected].Load())
	stats.Failed = int(counts[outcomeFailed].Load())
	stats.Submitted = stats.Accepted + stats.Duplicates + stats.Rejected + stats.Failed
}

// settle waits until the server reports at least want stored events.
func settle(ctx context.Context, c *client, want int, limit time.Duration) error {
	deadline := time.Now().Add(limit)
	for {
		var st struct {
			Stored int `json:"events_stored"`
		}
		if _, err := c.do(ctx, http.MethodGet, "/stats", nil, &st); err == nil && st.Stored >= want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: want %d", ErrNotSettled, want)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}

// analyze fetches every subject's analysis.
func analyze(ctx context.Context, c *client, cfg Config, stats *Stats) error {
	var list struct {
		Subjects []struct {
			SubjectID string `json:"subject_id"`
		} `json:"subjects"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/subjects", nil, &list); err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}

	var analyzed, alerts, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, s := range list.Subjects {
		g.Go(func() error {
			var a struct {
				Alerts []json.RawMessage `json:"alerts"`
			}
			status, err := c.do(gctx, http.MethodGet, fmt.Sprintf(analyzeRoute, s.SubjectID), nil, &a)
			if err != nil || status != http.StatusOK {
				failed.Add(1)
				return nil
			}
			analyzed.Add(1)
			alerts.Add(int64(len(a.Alerts)))
			return nil
		})
	}
	_ = g.Wait()

	stats.Analyzed = int(analyzed.Load())
	stats.Alerts = int(alerts.Load())
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d subjects", ErrAnalysisFailed, n, len(list.Subjects))
	}
	return nil
}

func save(path string, events []Event) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, filePerm)
}
