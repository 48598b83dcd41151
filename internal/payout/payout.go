package payout

import (
	"context"
	"errors"
)

// ErrAccountVerification indicates the provider rejected the destination
// account details.
var ErrAccountVerification = errors.New("invalid account credentials")

// BankAccount is a verified destination account.
type BankAccount struct {
	AccountName   string
	AccountNumber string
}

// Bank is an entry of the provider's bank catalog.
type Bank struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
}

// RecipientInput carries the details needed to register a transfer recipient.
type RecipientInput struct {
	Name          string
	BankCode      string
	AccountNumber string
	Currency      string
}

// Recipient is a provider-side transfer recipient.
type Recipient struct {
	Code string
	Raw  map[string]any
}

// Transfer is an accepted payout. Reference is the provider-issued identifier
// later echoed by settlement webhooks.
type Transfer struct {
	Reference string
	Status    string
	Raw       map[string]any
}

// Gateway is the contract a payout provider must satisfy. Implementations are
// expected to bound every call with a timeout; a timeout is a failed call.
type Gateway interface {
	VerifyAccount(ctx context.Context, accountNumber, bankCode string) (BankAccount, error)
	CreateRecipient(ctx context.Context, input RecipientInput) (Recipient, error)
	InitiateTransfer(ctx context.Context, amount int64, recipientCode, reason string) (Transfer, error)
	ListBanks(ctx context.Context) ([]Bank, error)
}
