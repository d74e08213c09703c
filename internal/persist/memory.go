package persist

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps encoded slots in a map. Slots are still encoded so the
// memory store exercises the same codec as the durable ones.
type MemoryStore struct {
	statsRecorder
	level int

	mu     sync.RWMutex
	slots  map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(config PersistenceConfig) *MemoryStore {
	return &MemoryStore{level: config.CompressionLevel, slots: make(map[string][]byte)}
}

// Save implements Store
func (m *MemoryStore) Save(ctx context.Context, name string, slot Slot) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	data, err := Marshal(slot, m.level)
	if err != nil {
		m.recordWrite(0, err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.slots[name] = data
	m.recordWrite(len(data), nil)
	return nil
}

// Load implements Store
func (m *MemoryStore) Load(ctx context.Context, name string) (Slot, error) {
	m.mu.RLock()
	data, ok := m.slots[name]
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return Slot{}, ErrStoreClosed
	}
	if !ok {
		return Slot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	slot, err := Unmarshal(data)
	m.recordRead(len(data), err)
	return slot, err
}

// Delete implements Store
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[name]; !ok {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	delete(m.slots, name)
	m.recordDelete()
	return nil
}

// List implements Store
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.slots))
	for name := range m.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
