package kvstore

import (
	"bytes"
	"context"
	"sync"
)

// MemStore is an in-memory Store for tests. Inject simulates a write made by
// another execution context: it updates the stored value and is delivered to
// watchers, while Set and Remove through this instance are not.
type MemStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string][]*memWatcher
}

type memWatcher struct {
	ch chan []byte
}

// NewMem returns an empty MemStore.
func NewMem() *MemStore {
	return &MemStore{
		data:     make(map[string][]byte),
		watchers: make(map[string][]*memWatcher),
	}
}

// Get implements Store.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(raw), true, nil
}

// Set implements Store.
func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = bytes.Clone(value)
	return nil
}

// Remove implements Store.
func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Watch implements Store. Only Inject deliveries reach the channel.
func (s *MemStore) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	s.mu.Lock()
	w := &memWatcher{ch: make(chan []byte, 1)}
	s.watchers[key] = append(s.watchers[key], w)
	s.mu.Unlock()

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			ws := s.watchers[key]
			for i, cur := range ws {
				if cur == w {
					s.watchers[key] = append(ws[:i], ws[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		}()
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

// Inject stores value under key as if another process wrote it, delivering
// the change to watchers. A nil value removes the key.
func (s *MemStore) Inject(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.data, key)
	} else {
		s.data[key] = bytes.Clone(value)
	}
	for _, w := range s.watchers[key] {
		select {
		case w.ch <- bytes.Clone(value):
		default:
			select {
			case <-w.ch:
			default:
			}
			w.ch <- bytes.Clone(value)
		}
	}
}
