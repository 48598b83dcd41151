package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/kobo-pay/kobo_pay/internal/storage"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byOwner map[string]*Wallet
}

// NewMemoryRepository constructs an in-memory wallet repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{byOwner: make(map[string]*Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, w Wallet) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOwner[w.OwnerID]; exists {
		return Wallet{}, ErrExists
	}

	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	stored := w
	r.byOwner[w.OwnerID] = &stored
	return w, nil
}

func (r *memoryRepository) FindByOwner(_ context.Context, _ storage.Scope, ownerID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.byOwner[ownerID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return *w, nil
}

func (r *memoryRepository) AdjustBalance(_ context.Context, _ storage.Scope, walletID, ownerID string, delta int64) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.byOwner[ownerID]
	if !ok || w.ID != walletID {
		return Wallet{}, ErrNotFound
	}
	if w.Balance+delta < 0 {
		return Wallet{}, ErrInsufficientFunds
	}

	w.Balance += delta
	w.UpdatedAt = time.Now().UTC()
	return *w, nil
}
