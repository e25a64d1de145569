// Package kvstore provides a durable key-value store for small per-device
// state: the cart snapshot, the device identifier, and the auth token.
//
// The byte-oriented Store interface keeps implementations trivial; typed
// access goes through the GetJSON/SetJSON helpers. Watch exposes external
// changes to a key (another process writing the same store), which the cart
// engine uses for cross-tab style consistency.
package kvstore

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("kvstore: store closed")

// Store is a durable key-value store for JSON-encoded values.
type Store interface {
	// Get returns the raw value for key. The second return is false when the
	// key is absent.
	Get(key string) ([]byte, bool, error)
	// Set durably stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Watch delivers the new raw value of key whenever an external writer
	// changes it. Writes made through this Store instance are not delivered.
	// The channel is closed when ctx is done. A removed key is delivered as
	// a nil value.
	Watch(ctx context.Context, key string) (<-chan []byte, error)
}

// GetJSON reads key and unmarshals it into a T. The second return is false
// when the key is absent.
func GetJSON[T any](s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, errors.Wrapf(err, "decode %q", key)
	}
	return v, true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON[T any](s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}
	return s.Set(key, raw)
}
