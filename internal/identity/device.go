// Package identity manages the locally persisted identity of an anonymous
// customer: a stable device identifier for "my orders" lookups, and the
// staff auth token for admin endpoints.
package identity

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/lacomanda/storefront/internal/kvstore"
)

// DeviceKey is the persistence key for the device identifier.
const DeviceKey = "device_id"

// Devices hands out the per-device identifier. The id is generated once and
// persisted; the backend may also assign one on first order, which replaces
// the local value.
type Devices struct {
	store kvstore.Store

	mu sync.Mutex
	id string
}

// NewDevices restores any persisted device id.
func NewDevices(store kvstore.Store) (*Devices, error) {
	d := &Devices{store: store}
	id, _, err := kvstore.GetJSON[string](store, DeviceKey)
	if err != nil {
		return nil, errors.Wrap(err, "restore device id")
	}
	d.id = id
	return d, nil
}

// Current returns the device id, or an empty string when the device has no
// identity yet.
func (d *Devices) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// Ensure returns the device id, generating and persisting one if absent.
func (d *Devices) Ensure() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id != "" {
		return d.id, nil
	}
	id := "device_" + uuid.NewString()
	if err := kvstore.SetJSON(d.store, DeviceKey, id); err != nil {
		return "", errors.Wrap(err, "persist device id")
	}
	d.id = id
	return id, nil
}

// Assign replaces the device id with one issued by the backend. An empty id
// is ignored.
func (d *Devices) Assign(id string) error {
	if id == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := kvstore.SetJSON(d.store, DeviceKey, id); err != nil {
		return errors.Wrap(err, "persist device id")
	}
	d.id = id
	return nil
}

// Clear forgets the device identity.
func (d *Devices) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = ""
	return d.store.Remove(DeviceKey)
}
