package payout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Static simulates a payout provider that accepts everything. Used for local
// development when no provider credentials are configured.
type Static struct{}

// VerifyAccount approves the destination account as-is.
func (Static) VerifyAccount(_ context.Context, accountNumber, _ string) (BankAccount, error) {
	return BankAccount{AccountName: "Static Account Holder", AccountNumber: accountNumber}, nil
}

// CreateRecipient registers a synthetic recipient code.
func (Static) CreateRecipient(_ context.Context, input RecipientInput) (Recipient, error) {
	return Recipient{Code: fmt.Sprintf("RCP_%s", uuid.NewString())}, nil
}

// InitiateTransfer accepts the payout with a synthetic pending reference.
func (Static) InitiateTransfer(_ context.Context, amount int64, recipientCode, _ string) (Transfer, error) {
	return Transfer{Reference: fmt.Sprintf("STATIC_%s", uuid.NewString()), Status: "pending"}, nil
}

// ListBanks returns a minimal fixed catalog.
func (Static) ListBanks(_ context.Context) ([]Bank, error) {
	return []Bank{
		{Name: "Static Test Bank", Code: "001", Currency: "NGN", Country: "Nigeria"},
	}, nil
}
