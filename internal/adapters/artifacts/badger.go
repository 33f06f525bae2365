package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/spendlens/pkg/metrics"
)

const badgerKeyPrefix = "artifact:"

// BadgerStore keeps sets in a Badger database, one key per blob. A save
// replaces the set inside a single transaction.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens a Badger database at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for models: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreFromDB wraps an already open database.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func setPrefix(set string) []byte {
	return []byte(badgerKeyPrefix + set + ":")
}

func (s *BadgerStore) Load(_ context.Context, set string) (map[string][]byte, error) {
	if err := validName(set); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordArtifactIO("load", float64(time.Since(start).Milliseconds())) }()

	out := make(map[string][]byte)
	prefix := setPrefix(set)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			role := strings.TrimPrefix(string(item.Key()), string(prefix))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s/%s: %w", set, role, err)
			}
			out[role] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *BadgerStore) Save(_ context.Context, set string, blobs map[string][]byte) error {
	if err := validSet(set, blobs); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordArtifactIO("save", float64(time.Since(start).Milliseconds())) }()

	prefix := setPrefix(set)
	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s: %w", k, err)
			}
		}
		for role, b := range blobs {
			if err := txn.Set(append(append([]byte(nil), prefix...), role...), b); err != nil {
				return fmt.Errorf("set %s/%s: %w", set, role, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", set, err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
