package wallet

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no wallet matches the owner (or the owner does
	// not hold the referenced wallet).
	ErrNotFound = errors.New("wallet not found")

	// ErrExists indicates the owner already holds a wallet.
	ErrExists = errors.New("wallet already exists for user")

	// ErrInsufficientFunds indicates a debit would drive the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidPin indicates a transaction PIN mismatch.
	ErrInvalidPin = errors.New("invalid transaction pin")
)

// Currency is a supported ISO currency code.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
	CurrencyJPY Currency = "JPY"
	CurrencyCNY Currency = "CNY"
	CurrencyINR Currency = "INR"
	CurrencyZAR Currency = "ZAR"
)

// Valid reports whether the currency code is supported.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyNGN, CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyCAD,
		CurrencyAUD, CurrencyJPY, CurrencyCNY, CurrencyINR, CurrencyZAR:
		return true
	default:
		return false
	}
}

// Wallet is a balance-bearing account, one per owner. Balance is in minor
// currency units and is only ever mutated through Repository.AdjustBalance.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	Currency  Currency
	PinHash   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// View is the outward projection of a wallet. It structurally omits the PIN
// hash so the secret can never leak into a response payload.
type View struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Balance   int64     `json:"balance"`
	Currency  Currency  `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View projects the wallet into its public shape.
func (w Wallet) View() View {
	return View{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Balance:   w.Balance,
		Currency:  w.Currency,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
