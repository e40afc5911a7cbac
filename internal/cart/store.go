package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store is the cart slot: one serialized Cart per session key.
//
// Load returns nil, nil when the slot is absent. Save replaces the whole value
// and only succeeds when c.Version matches the stored version (zero for an
// absent slot); on success c.Version is advanced to the new stored version.
type Store interface {
	Load(ctx context.Context, key string) (*Cart, error)
	Save(ctx context.Context, key string, c *Cart) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps serialized carts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*Cart, error) {
	m.mu.Lock()
	data, ok := m.slots[key]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeCart(data)
}

func (m *MemoryStore) Save(_ context.Context, key string, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	if data, ok := m.slots[key]; ok {
		prev, err := decodeCart(data)
		if err != nil {
			return err
		}
		stored = prev.Version
	}
	if stored != c.Version {
		return ErrVersionConflict
	}

	data, err := encodeCart(c, c.Version+1)
	if err != nil {
		return err
	}
	m.slots[key] = data
	c.Version++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
	return nil
}

func encodeCart(c *Cart, version int64) ([]byte, error) {
	out := c.clone()
	out.Version = version
	if out.Lines == nil {
		out.Lines = []Line{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func decodeCart(data []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	c.normalize()
	return &c, nil
}
