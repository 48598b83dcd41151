package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/payout"
)

// Service exposes wallet lifecycle and read operations.
type Service struct {
	repo    Repository
	trxRepo ledger.Repository
	gateway payout.Gateway
}

// NewService builds a wallet service instance.
func NewService(repo Repository, trxRepo ledger.Repository, gateway payout.Gateway) *Service {
	return &Service{repo: repo, trxRepo: trxRepo, gateway: gateway}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID  string
	Pin      string
	Currency Currency
}

// Create provisions a wallet for the owner. Creation is idempotent per owner:
// repeated calls (including racing ones) converge on the single existing
// wallet and never mint a second record.
func (s *Service) Create(ctx context.Context, input CreateInput) (View, error) {
	if len(input.Pin) < 4 {
		return View{}, fmt.Errorf("transaction pin must be at least 4 digits")
	}
	currency := input.Currency
	if currency == "" {
		currency = CurrencyNGN
	}
	if !currency.Valid() {
		return View{}, fmt.Errorf("unsupported currency %q", currency)
	}

	if existing, err := s.repo.FindByOwner(ctx, nil, input.OwnerID); err == nil {
		return existing.View(), nil
	} else if !errors.Is(err, ErrNotFound) {
		return View{}, err
	}

	pinHash, err := HashPin(input.Pin)
	if err != nil {
		return View{}, err
	}

	created, err := s.repo.Create(ctx, Wallet{
		ID:       uuid.NewString(),
		OwnerID:  input.OwnerID,
		Currency: currency,
		PinHash:  pinHash,
	})
	if errors.Is(err, ErrExists) {
		// Lost a create/create race; the winner's wallet is the wallet.
		existing, findErr := s.repo.FindByOwner(ctx, nil, input.OwnerID)
		if findErr != nil {
			return View{}, findErr
		}
		return existing.View(), nil
	}
	if err != nil {
		return View{}, err
	}

	return created.View(), nil
}

// Get returns the owner's wallet in its public shape.
func (s *Service) Get(ctx context.Context, ownerID string) (View, error) {
	w, err := s.repo.FindByOwner(ctx, nil, ownerID)
	if err != nil {
		return View{}, err
	}
	return w.View(), nil
}

// Balance returns the owner's current balance in minor units.
func (s *Service) Balance(ctx context.Context, ownerID string) (int64, error) {
	w, err := s.repo.FindByOwner(ctx, nil, ownerID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Transactions returns the owner's filtered transaction history.
func (s *Service) Transactions(ctx context.Context, ownerID string, filter ledger.Filter) (ledger.Page, error) {
	return s.trxRepo.FindByOwner(ctx, ownerID, filter)
}

// Banks lists the payout provider's bank catalog.
func (s *Service) Banks(ctx context.Context) ([]payout.Bank, error) {
	return s.gateway.ListBanks(ctx)
}
