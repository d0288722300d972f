package storage

import (
	"context"
	"sync"

	"github.com/maauso/audiobook-skill/internal/session"
)

// Compile-time check that MemoryStorage implements AttributeStore.
var _ AttributeStore = (*MemoryStorage)(nil)

// MemoryStorage keeps attributes in a map guarded by a RWMutex.
// Contents are lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	devices map[string]session.Attributes
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		devices: make(map[string]session.Attributes),
	}
}

// Load returns a copy of the stored attributes.
func (m *MemoryStorage) Load(_ context.Context, deviceID string) (session.Attributes, error) {
	if deviceID == "" {
		return session.Attributes{}, ErrDeviceIDRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[deviceID].Clone(), nil
}

// Save stores a copy of attrs.
func (m *MemoryStorage) Save(_ context.Context, deviceID string, attrs session.Attributes) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[deviceID] = attrs.Clone()
	return nil
}

// Len returns the number of stored devices.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}
