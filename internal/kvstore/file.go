package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// DefaultPollInterval is how often a FileStore checks the backing file for
// external writes when no explicit interval is configured.
const DefaultPollInterval = time.Second

// FileStore is a Store backed by a single JSON document on disk, one entry
// per key. Writes replace the whole document atomically (temp file + rename),
// so the last writer wins in full, matching the snapshot semantics the cart
// engine is built around.
//
// External changes are detected by polling: the platform offers no portable
// change event for a shared file, and the polling interval only bounds
// cross-process staleness, not correctness.
type FileStore struct {
	path string
	poll time.Duration

	mu       sync.Mutex
	data     map[string]json.RawMessage // in-memory mirror of the file
	watchers map[string][]*fileWatcher
	closed   bool

	pollOnce sync.Once
	stopPoll context.CancelFunc
}

type fileWatcher struct {
	ch   chan []byte
	done <-chan struct{}
}

// OpenFile opens (or creates) a FileStore at path. A zero pollInterval uses
// DefaultPollInterval.
func OpenFile(path string, pollInterval time.Duration) (*FileStore, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	s := &FileStore{
		path:     path,
		poll:     pollInterval,
		watchers: make(map[string][]*fileWatcher),
	}

	data, err := readStoreFile(path)
	if err != nil {
		return nil, err
	}
	s.data = data
	return s, nil
}

func readStoreFile(path string) (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return map[string]json.RawMessage{}, nil
	case err != nil:
		return nil, errors.Wrap(err, "read store file")
	}
	data := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "parse store file")
	}
	return data, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(raw), true, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data[key] = bytes.Clone(value)
	return s.flushLocked()
}

// Remove implements Store.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

// flushLocked writes the whole document atomically. Callers hold s.mu, so the
// in-memory mirror and the file move together; the poller consequently never
// reports our own writes as external changes.
func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode store file")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return errors.Wrap(err, "create temp store file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp store file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp store file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace store file")
	}
	return nil
}

// Watch implements Store. The first Watch call starts the shared poller.
func (s *FileStore) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	w := &fileWatcher{
		ch:   make(chan []byte, 1),
		done: ctx.Done(),
	}
	s.watchers[key] = append(s.watchers[key], w)
	s.mu.Unlock()

	s.pollOnce.Do(func() {
		pollCtx, cancel := context.WithCancel(context.Background())
		s.stopPoll = cancel
		go s.pollLoop(pollCtx)
	})

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer s.dropWatcher(key, w)
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-w.ch:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *FileStore) dropWatcher(key string, w *fileWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.watchers[key]
	for i, cur := range ws {
		if cur == w {
			s.watchers[key] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
}

// pollLoop re-reads the file and diffs it against the in-memory mirror.
// Any difference was made by another process.
func (s *FileStore) pollLoop(ctx context.Context) {
	t := time.NewTicker(s.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.pollTick()
		}
	}
}

func (s *FileStore) pollTick() {
	fresh, err := readStoreFile(s.path)
	if err != nil {
		// A torn read loses one tick, never data. The next tick retries.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for key, newVal := range fresh {
		old, had := s.data[key]
		// The file is written indented while Set mirrors the caller's
		// compact bytes, so the comparison must be on JSON content, not
		// representation — otherwise every own write would echo back as a
		// phantom external change one tick later.
		changed := !had || !equalJSON(old, newVal)
		s.data[key] = newVal
		if changed {
			s.notifyLocked(key, bytes.Clone(newVal))
		}
	}
	for key := range s.data {
		if _, still := fresh[key]; !still {
			delete(s.data, key)
			s.notifyLocked(key, nil)
		}
	}
}

// equalJSON reports whether two raw values carry the same JSON content,
// ignoring whitespace differences between representations.
func equalJSON(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func (s *FileStore) notifyLocked(key string, value []byte) {
	for _, w := range s.watchers[key] {
		// Buffer of one, newest value wins: a watcher that lags only ever
		// misses intermediate snapshots, matching last-write-wins semantics.
		select {
		case w.ch <- value:
		default:
			select {
			case <-w.ch:
			default:
			}
			w.ch <- value
		}
	}
}

// Close stops the poller. Subsequent operations return ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stopPoll != nil {
		s.stopPoll()
	}
	return nil
}
