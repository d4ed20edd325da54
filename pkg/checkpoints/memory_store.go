package checkpoints

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore keeps checkpoints in memory. It is safe for concurrent use
// and intended for tests and single-process callers.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string][]byte),
	}
}

func (m *MemoryStore) Save(_ context.Context, cp *Checkpoint) error {
	data, err := Encode(cp)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.FlowID] = data
	return nil
}

func (m *MemoryStore) Load(_ context.Context, flowID string) (*Checkpoint, error) {
	m.mu.RLock()
	data, exists := m.checkpoints[flowID]
	m.mu.RUnlock()

	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	return Decode(data)
}

func (m *MemoryStore) Delete(_ context.Context, flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, flowID)
	return nil
}
