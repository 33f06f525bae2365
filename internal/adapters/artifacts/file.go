package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/okian/spendlens/pkg/metrics"
)

const (
	currentFile = "CURRENT"
	blobExt     = ".json"

	// A generation can vanish between reading CURRENT and its files when
	// another process saves; Load rereads the pointer this many times.
	loadAttempts = 3
)

// FileStore writes each save into a fresh generation directory and then
// swaps the set's CURRENT pointer with a rename:
//
//	<dir>/<set>/CURRENT         -> generation id
//	<dir>/<set>/<gen>/<role>.json
//
// Loads share a read lock so a save in the same process cannot remove the
// generation they are reading.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty model directory", ErrInvalidName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(_ context.Context, set string) (map[string][]byte, error) {
	if err := validName(set); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordArtifactIO("load", float64(time.Since(start).Milliseconds())) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	for attempt := 0; attempt < loadAttempts; attempt++ {
		var out map[string][]byte
		out, err = s.loadCurrent(set)
		if !errors.Is(err, errGenerationGone) {
			return out, err
		}
	}
	return nil, fmt.Errorf("read %s generation: %w", set, err)
}

var errGenerationGone = errors.New("generation removed")

func (s *FileStore) loadCurrent(set string) (map[string][]byte, error) {
	setDir := filepath.Join(s.dir, set)
	gen, err := os.ReadFile(filepath.Join(setDir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s pointer: %w", set, err)
	}
	genDir := filepath.Join(setDir, strings.TrimSpace(string(gen)))

	entries, err := os.ReadDir(genDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errGenerationGone
	}
	if err != nil {
		return nil, fmt.Errorf("read %s generation: %w", set, err)
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != blobExt {
			continue
		}
		b, err := os.ReadFile(filepath.Join(genDir, e.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errGenerationGone
		}
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", set, e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), blobExt)] = b
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *FileStore) Save(_ context.Context, set string, blobs map[string][]byte) error {
	if err := validSet(set, blobs); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordArtifactIO("save", float64(time.Since(start).Milliseconds())) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	setDir := filepath.Join(s.dir, set)
	gen := ulid.Make().String()
	genDir := filepath.Join(setDir, gen)
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return fmt.Errorf("create %s generation: %w", set, err)
	}
	for role, b := range blobs {
		if err := writeFile(filepath.Join(genDir, role+blobExt), b); err != nil {
			_ = os.RemoveAll(genDir)
			return fmt.Errorf("write %s/%s: %w", set, role, err)
		}
	}

	prev, _ := os.ReadFile(filepath.Join(setDir, currentFile))
	if err := writeFile(filepath.Join(setDir, currentFile), []byte(gen)); err != nil {
		_ = os.RemoveAll(genDir)
		return fmt.Errorf("publish %s: %w", set, err)
	}
	if old := strings.TrimSpace(string(prev)); old != "" && old != gen {
		_ = os.RemoveAll(filepath.Join(setDir, old))
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// writeFile writes to a temp file in the same directory, syncs it and
// renames it over path.
func writeFile(path string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
