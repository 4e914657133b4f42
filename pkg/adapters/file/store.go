package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/gofrs/flock"
)

var _ ports.LedgerStore = (*Store)(nil)

// DefaultPath is used when New is given an empty path.
var DefaultPath = filepath.Join(".furrow", "ledger.json")

// lockRetryDelay is how often a blocked opener polls for the ledger lock.
const lockRetryDelay = 10 * time.Millisecond

// document is the on-disk layout. Values are base64 encoded by encoding/json.
type document struct {
	Version int               `json:"version"`
	Records map[string][]byte `json:"records"`
}

// Store implements ports.LedgerStore on top of a single JSON file.
// Every transaction takes an advisory lock on "<path>.lock" and reloads the
// file under it, so several processes can share one ledger file: Update holds
// the exclusive lock across read, fn and the atomic rewrite.
type Store struct {
	Path string

	mu   sync.Mutex
	lock *flock.Flock
	data map[string][]byte
}

// New opens (or lazily creates) the ledger file at path.
// If path is empty, it defaults to ".furrow/ledger.json".
func New(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{Path: path, lock: flock.New(path + ".lock"), data: make(map[string][]byte)}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// reload replaces the in-memory copy with the file contents.
// Callers hold s.mu and the file lock.
func (s *Store) reload() error {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = make(map[string][]byte)
			return nil
		}
		return fmt.Errorf("failed to read ledger file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal ledger file: %w", err)
	}
	if doc.Records == nil {
		doc.Records = make(map[string][]byte)
	}
	s.data = doc.Records
	return nil
}

// acquire takes s.mu plus the file lock and refreshes the in-memory copy.
// The returned release must be called once the transaction is over.
func (s *Store) acquire(ctx context.Context, exclusive bool) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger directory: %w", err)
	}

	s.mu.Lock()
	var locked bool
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err == nil && !locked {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to lock ledger file: %w", err)
	}

	release = func() {
		_ = s.lock.Unlock()
		s.mu.Unlock()
	}
	if err := s.reload(); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// Update runs fn against the current file contents and, if it succeeds,
// persists the merged state before releasing the lock.
func (s *Store) Update(ctx context.Context, fn ports.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	release, err := s.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer release()

	tx := &txn{data: s.data, writes: make(map[string][]byte)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}

	next := make(map[string][]byte, len(s.data)+len(tx.writes))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range tx.writes {
		next[k] = v
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// View runs fn under the shared file lock.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	release, err := s.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, &txn{data: s.data})
}

// Keys lists the keys of a namespace.
func (s *Store) Keys(ctx context.Context, ns domain.Namespace) ([]string, error) {
	release, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	prefix := string(ns) + "/"
	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the lock file handle; every commit is already on disk.
func (s *Store) Close() error { return s.lock.Close() }

// persist writes the ledger atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) persist(records map[string][]byte) error {
	dir := filepath.Dir(s.Path)
	data, err := json.MarshalIndent(document{Version: 1, Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename ledger file: %w", err)
	}
	return nil
}

type txn struct {
	data   map[string][]byte
	writes map[string][]byte
}

func (t *txn) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := t.writes[key]
	if !ok {
		v, ok = t.data[key]
	}
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *txn) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	t.writes[key] = v
	return nil
}
