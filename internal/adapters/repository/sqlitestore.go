package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

// SQLiteStore persists events in a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create event store directory: %w", err)
		}
	}

	// WAL lets readers run next to the single writer.
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: path, opts: defaultOptions(), stopChan: make(chan struct{})}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event store schema: %w", err)
	}
	s.startMetricsUpdater(ctx)

	s.opts.log.Info(ctx, "event store opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS purchases (
			id           TEXT PRIMARY KEY,
			subject_id   TEXT NOT NULL,
			category     TEXT NOT NULL,
			product_name TEXT NOT NULL,
			unit_price   REAL NOT NULL,
			quantity     INTEGER NOT NULL,
			occurred_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_purchases_subject
		ON purchases(subject_id, occurred_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append inserts e, ignoring ids that already exist.
func (s *SQLiteStore) Append(ctx context.Context, e model.PurchaseEvent) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO purchases
			(id, subject_id, category, product_name, unit_price, quantity, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubjectID, string(e.Category), e.ProductName, e.UnitPrice, e.Quantity, e.OccurredAt.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("append event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append event %s: %w", e.ID, err)
	}
	return n > 0, nil
}

// Events returns a subject's events ordered by time.
func (s *SQLiteStore) Events(ctx context.Context, subjectID string) ([]model.PurchaseEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, category, product_name, unit_price, quantity, occurred_at
		FROM purchases
		WHERE subject_id = ?
		ORDER BY occurred_at, id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.PurchaseEvent
	for rows.Next() {
		var (
			e   model.PurchaseEvent
			cat string
			at  int64
		)
		if err := rows.Scan(&e.ID, &e.SubjectID, &cat, &e.ProductName, &e.UnitPrice, &e.Quantity, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Category = model.Category(cat)
		e.OccurredAt = time.Unix(0, at).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Subjects lists subjects with their event counts.
func (s *SQLiteStore) Subjects(ctx context.Context) ([]types.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_id, COUNT(*)
		FROM purchases
		GROUP BY subject_id
		ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	out := []types.Subject{}
	for rows.Next() {
		var sub types.Subject
		if err := rows.Scan(&sub.SubjectID, &sub.Events); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Count returns the number of stored events, or 0 when the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&n); err != nil {
		if !errors.Is(err, sql.ErrConnDone) {
			s.opts.log.Warn(ctx, "count events failed", logger.Error(err))
		}
		return 0
	}
	return n
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				var n int
				if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT subject_id) FROM purchases`).Scan(&n); err == nil {
					metrics.UpdateSubjectsTotal(n)
				}
			}
		}
	}()
}
