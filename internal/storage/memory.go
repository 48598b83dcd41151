package storage

import (
	"context"
	"sync"
)

type memoryScope struct{}

// MemoryManager is a TxManager for tests backed by a single mutex: scopes are
// fully serialized, mirroring the row-lock serialization the database gives
// concurrent flows touching the same wallet.
type MemoryManager struct {
	mu sync.Mutex
}

// NewMemoryManager constructs an in-memory transaction manager for tests.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{}
}

func (m *MemoryManager) InTx(ctx context.Context, fn func(ctx context.Context, scope Scope) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, memoryScope{})
}
