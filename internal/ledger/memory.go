package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kobo-pay/kobo_pay/internal/storage"
)

type memoryRepository struct {
	mu          sync.RWMutex
	byReference map[string]*Transaction
	ordered     []*Transaction
}

// NewMemoryRepository constructs an in-memory ledger repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{byReference: make(map[string]*Transaction)}
}

func (r *memoryRepository) Create(_ context.Context, _ storage.Scope, trx Transaction) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byReference[trx.Reference]; exists {
		return Transaction{}, ErrDuplicateReference
	}

	if trx.ID == "" {
		trx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	trx.CreatedAt = now
	trx.UpdatedAt = now

	stored := trx
	r.byReference[trx.Reference] = &stored
	r.ordered = append(r.ordered, &stored)

	return trx, nil
}

func (r *memoryRepository) FindByOwner(_ context.Context, ownerID string, filter Filter) (Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]Transaction, 0)
	for _, trx := range r.ordered {
		if trx.OwnerID != ownerID {
			continue
		}
		if filter.Type != "" && trx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && trx.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && trx.Channel != filter.Channel {
			continue
		}
		if filter.Start != nil && trx.CreatedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && trx.CreatedAt.After(*filter.End) {
			continue
		}
		matched = append(matched, *trx)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := filter.Offset
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return Page{Data: matched[offset:end], Total: total}, nil
}

func (r *memoryRepository) FindByReference(_ context.Context, _ storage.Scope, reference string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trx, ok := r.byReference[reference]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return *trx, nil
}

func (r *memoryRepository) AdvanceStatus(_ context.Context, _ storage.Scope, reference string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trx, ok := r.byReference[reference]
	if !ok {
		return ErrNotFound
	}
	if trx.Status.Terminal() {
		return ErrAlreadySettled
	}

	trx.Status = status
	trx.UpdatedAt = time.Now().UTC()
	return nil
}
