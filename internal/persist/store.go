package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"pkt.systems/gitconsole/schema"
	"pkt.systems/pslog"
)

const lockRetry = 50 * time.Millisecond

// HistorySnapshot is the on-disk history document.
type HistorySnapshot struct {
	Entries []string  `json:"entries"`
	Updated time.Time `json:"updated,omitempty"`
}

// HistoryStore persists submitted commands to a JSON file. Concurrent
// consoles (local and SSH sessions) serialize through a sidecar flock.
type HistoryStore struct {
	path        string
	max         int
	lockTimeout time.Duration
	log         pslog.Logger
}

// NewHistoryStore constructs a history store at path.
func NewHistoryStore(path string, max int) (*HistoryStore, error) {
	return NewHistoryStoreWithLogger(path, max, nil)
}

// NewHistoryStoreWithLogger constructs a history store with logging.
func NewHistoryStoreWithLogger(path string, max int, logger pslog.Logger) (*HistoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history file is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if max <= 0 {
		max = schema.DefaultHistoryMax
	}
	if logger != nil {
		logger = logger.With("history_file", path)
	}
	return &HistoryStore{path: path, max: max, lockTimeout: 2 * time.Second, log: logger}, nil
}

// Path returns the history file location.
func (s *HistoryStore) Path() string {
	return s.path
}

// Load returns the persisted entries, oldest first. A missing file is empty history.
func (s *HistoryStore) Load() ([]string, error) {
	lock, err := s.lock(context.Background(), false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	snapshot, err := s.read()
	if err != nil {
		if s.log != nil {
			s.log.Warn("history load failed", "err", err)
		}
		return nil, err
	}
	if s.log != nil {
		s.log.Debug("history load ok", "entries", len(snapshot.Entries))
	}
	return snapshot.Entries, nil
}

// Append adds entry unless it repeats the last persisted entry, trimming to max.
func (s *HistoryStore) Append(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	lock, err := s.lock(context.Background(), true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	snapshot, err := s.read()
	if err != nil {
		if s.log != nil {
			s.log.Warn("history save failed", "err", err)
		}
		return err
	}
	if n := len(snapshot.Entries); n > 0 && snapshot.Entries[n-1] == entry {
		return nil
	}
	snapshot.Entries = append(snapshot.Entries, entry)
	if len(snapshot.Entries) > s.max {
		snapshot.Entries = snapshot.Entries[len(snapshot.Entries)-s.max:]
	}
	snapshot.Updated = time.Now().UTC()
	if err := s.write(snapshot); err != nil {
		if s.log != nil {
			s.log.Warn("history save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("history save ok", "entries", len(snapshot.Entries))
	}
	return nil
}

// Clear removes every persisted entry.
func (s *HistoryStore) Clear() error {
	lock, err := s.lock(context.Background(), true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()
	return s.write(HistorySnapshot{Updated: time.Now().UTC()})
}

func (s *HistoryStore) lock(ctx context.Context, exclusive bool) (*flock.Flock, error) {
	lock := flock.New(s.path + ".lock")
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lock.TryLockContext(ctx, lockRetry)
	} else {
		locked, err = lock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("history lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", schema.ErrHistoryLocked, s.path)
	}
	return lock, nil
}

func (s *HistoryStore) read() (HistorySnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return HistorySnapshot{}, nil
		}
		return HistorySnapshot{}, err
	}
	var snapshot HistorySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return HistorySnapshot{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return snapshot, nil
}

func (s *HistoryStore) write(snapshot HistorySnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "history-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
