package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kobo-pay/kobo_pay/internal/charges"
	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/notification"
	"github.com/kobo-pay/kobo_pay/internal/payout"
	"github.com/kobo-pay/kobo_pay/internal/storage"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

var (
	// ErrNonPositiveAmount rejects zero or negative transfer amounts.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrSelfTransfer rejects transfers where sender and recipient match.
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrMissingReference rejects webhook events without a transfer reference.
	ErrMissingReference = errors.New("missing reference")
)

// Webhook event names emitted by the payout provider.
const (
	EventTransferSuccess = "transfer.success"
	EventTransferFailed  = "transfer.failed"
)

// Service is the transfer orchestrator. It holds no state of its own: every
// flow composes the wallet store, the transaction ledger, the charge policy
// and the payout gateway inside one atomic scope.
type Service struct {
	tx       storage.TxManager
	wallets  wallet.Repository
	trxRepo  ledger.Repository
	gateway  payout.Gateway
	notifier notification.Notifier
}

// NewService builds the transfer orchestrator.
func NewService(tx storage.TxManager, wallets wallet.Repository, trxRepo ledger.Repository, gateway payout.Gateway, notifier notification.Notifier) *Service {
	return &Service{tx: tx, wallets: wallets, trxRepo: trxRepo, gateway: gateway, notifier: notifier}
}

// Fund credits the owner's wallet and records a settled CREDIT transaction in
// the same scope.
func (s *Service) Fund(ctx context.Context, walletID, ownerID string, amount int64) (wallet.View, error) {
	if amount <= 0 {
		return wallet.View{}, ErrNonPositiveAmount
	}

	var updated wallet.Wallet
	err := s.tx.InTx(ctx, func(ctx context.Context, scope storage.Scope) error {
		var err error
		if updated, err = s.wallets.AdjustBalance(ctx, scope, walletID, ownerID, amount); err != nil {
			return err
		}

		_, err = s.trxRepo.Create(ctx, scope, ledger.Transaction{
			Reference: ledger.NewReference(),
			Amount:    amount,
			Type:      ledger.TypeCredit,
			Status:    ledger.StatusSuccessful,
			Channel:   ledger.ChannelInternal,
			OwnerID:   ownerID,
			WalletID:  walletID,
			Metadata:  map[string]any{"toUserId": ownerID},
		})
		return err
	})
	if err != nil {
		return wallet.View{}, err
	}

	return updated.View(), nil
}

// InternalInput carries a wallet-to-wallet transfer request.
type InternalInput struct {
	FromOwnerID string
	ToOwnerID   string
	Amount      int64
	TrxPin      string
	Note        string
}

// InternalResult returns both updated wallets after an internal transfer.
type InternalResult struct {
	From wallet.View `json:"from"`
	To   wallet.View `json:"to"`
}

// Internal moves funds between two wallets. The sender is debited amount plus
// the internal charges; the recipient is credited the amount only — the fee
// is retained, not forwarded.
func (s *Service) Internal(ctx context.Context, input InternalInput) (InternalResult, error) {
	if input.Amount <= 0 {
		return InternalResult{}, ErrNonPositiveAmount
	}
	if input.FromOwnerID == input.ToOwnerID {
		return InternalResult{}, ErrSelfTransfer
	}

	var result InternalResult
	err := s.tx.InTx(ctx, func(ctx context.Context, scope storage.Scope) error {
		sender, err := s.wallets.FindByOwner(ctx, scope, input.FromOwnerID)
		if err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				return fmt.Errorf("sender %w", wallet.ErrNotFound)
			}
			return err
		}
		recipient, err := s.wallets.FindByOwner(ctx, scope, input.ToOwnerID)
		if err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				return fmt.Errorf("recipient %w", wallet.ErrNotFound)
			}
			return err
		}

		trxCharges := charges.ForChannel(string(ledger.ChannelInternal))
		totalDebit := input.Amount + trxCharges.Total()
		if sender.Balance < totalDebit {
			return wallet.ErrInsufficientFunds
		}

		if !wallet.VerifyPin(input.TrxPin, sender.PinHash) {
			return wallet.ErrInvalidPin
		}

		updatedSender, err := s.wallets.AdjustBalance(ctx, scope, sender.ID, sender.OwnerID, -totalDebit)
		if err != nil {
			return err
		}
		updatedRecipient, err := s.wallets.AdjustBalance(ctx, scope, recipient.ID, recipient.OwnerID, input.Amount)
		if err != nil {
			return err
		}

		if _, err := s.trxRepo.Create(ctx, scope, ledger.Transaction{
			Reference: ledger.NewReference(),
			Amount:    input.Amount,
			Type:      ledger.TypeDebit,
			Status:    ledger.StatusSuccessful,
			Channel:   ledger.ChannelInternal,
			Charges:   &trxCharges,
			Note:      input.Note,
			OwnerID:   sender.OwnerID,
			WalletID:  sender.ID,
			Metadata:  map[string]any{"toUserId": recipient.OwnerID},
		}); err != nil {
			return err
		}

		if _, err := s.trxRepo.Create(ctx, scope, ledger.Transaction{
			Reference: ledger.NewReference(),
			Amount:    input.Amount,
			Type:      ledger.TypeCredit,
			Status:    ledger.StatusSuccessful,
			Channel:   ledger.ChannelInternal,
			Note:      input.Note,
			OwnerID:   recipient.OwnerID,
			WalletID:  recipient.ID,
			Metadata:  map[string]any{"fromUserId": sender.OwnerID},
		}); err != nil {
			return err
		}

		result = InternalResult{From: updatedSender.View(), To: updatedRecipient.View()}
		return nil
	})
	if err != nil {
		return InternalResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWalletCredit,
			Destination: input.ToOwnerID,
			Body:        fmt.Sprintf("You received %d from user %s", input.Amount, input.FromOwnerID),
		})
	}

	return result, nil
}

// ExternalInput carries a payout request to an external bank account.
type ExternalInput struct {
	OwnerID       string
	Amount        int64
	TrxPin        string
	BankCode      string
	AccountNumber string
	RecipientName string
	Note          string
}

// External pushes funds to an external bank account through the payout
// gateway. All gateway calls happen inside the atomic scope: if the provider
// rejects any step, nothing is debited and no record is written. On success
// the debit commits with a PENDING record carrying the provider's reference;
// settlement arrives later via Reconcile.
func (s *Service) External(ctx context.Context, input ExternalInput) (ledger.Transaction, error) {
	if input.Amount <= 0 {
		return ledger.Transaction{}, ErrNonPositiveAmount
	}

	var created ledger.Transaction
	err := s.tx.InTx(ctx, func(ctx context.Context, scope storage.Scope) error {
		sender, err := s.wallets.FindByOwner(ctx, scope, input.OwnerID)
		if err != nil {
			return err
		}

		if !wallet.VerifyPin(input.TrxPin, sender.PinHash) {
			return wallet.ErrInvalidPin
		}

		trxCharges := charges.ForChannel(string(ledger.ChannelExternal))
		totalDebit := input.Amount + trxCharges.Total()
		if sender.Balance < totalDebit {
			return wallet.ErrInsufficientFunds
		}

		if _, err := s.gateway.VerifyAccount(ctx, input.AccountNumber, input.BankCode); err != nil {
			return err
		}

		recipient, err := s.gateway.CreateRecipient(ctx, payout.RecipientInput{
			Name:          input.RecipientName,
			BankCode:      input.BankCode,
			AccountNumber: input.AccountNumber,
			Currency:      string(sender.Currency),
		})
		if err != nil {
			return err
		}

		accepted, err := s.gateway.InitiateTransfer(ctx, input.Amount, recipient.Code, input.Note)
		if err != nil {
			return err
		}

		if _, err := s.wallets.AdjustBalance(ctx, scope, sender.ID, sender.OwnerID, -totalDebit); err != nil {
			return err
		}

		created, err = s.trxRepo.Create(ctx, scope, ledger.Transaction{
			Reference: accepted.Reference,
			Amount:    input.Amount,
			Type:      ledger.TypeDebit,
			Status:    ledger.StatusPending,
			Channel:   ledger.ChannelExternal,
			Charges:   &trxCharges,
			Note:      input.Note,
			OwnerID:   sender.OwnerID,
			WalletID:  sender.ID,
			Metadata: map[string]any{
				"bankCode":      input.BankCode,
				"accountNumber": input.AccountNumber,
				"recipient":     recipient.Raw,
				"transfer":      accepted.Raw,
			},
		})
		return err
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	return created, nil
}

// Reconcile applies a provider settlement event to a pending external
// transfer. A success event only advances the status; a failure event
// advances the status, refunds amount plus charges and appends a REFUND
// record linking back to the original reference. Unknown events commit as
// no-ops.
func (s *Service) Reconcile(ctx context.Context, event, reference string) error {
	if reference == "" {
		return ErrMissingReference
	}

	var refunded ledger.Transaction
	var refundAmount int64
	err := s.tx.InTx(ctx, func(ctx context.Context, scope storage.Scope) error {
		trx, err := s.trxRepo.FindByReference(ctx, scope, reference)
		if err != nil {
			return err
		}

		switch event {
		case EventTransferSuccess:
			return s.trxRepo.AdvanceStatus(ctx, scope, reference, ledger.StatusSuccessful)

		case EventTransferFailed:
			if err := s.trxRepo.AdvanceStatus(ctx, scope, reference, ledger.StatusFailed); err != nil {
				return err
			}

			refundAmount = trx.Amount + trx.ChargesTotal()
			if _, err := s.wallets.AdjustBalance(ctx, scope, trx.WalletID, trx.OwnerID, refundAmount); err != nil {
				return err
			}

			refunded, err = s.trxRepo.Create(ctx, scope, ledger.Transaction{
				Reference: ledger.NewReference(),
				Amount:    trx.Amount,
				Type:      ledger.TypeRefund,
				Status:    ledger.StatusSuccessful,
				Channel:   ledger.ChannelInternal,
				OwnerID:   trx.OwnerID,
				WalletID:  trx.WalletID,
				Metadata: map[string]any{
					"reason":      "Auto-refund for failed transfer",
					"originalRef": reference,
				},
			})
			return err

		default:
			// Unrelated provider event; acknowledge without touching state.
			return nil
		}
	})
	if err != nil {
		return err
	}

	if refunded.ID != "" && s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferRefund,
			Destination: refunded.OwnerID,
			Body:        fmt.Sprintf("Your transfer %s failed and %d was refunded", reference, refundAmount),
		})
	}

	return nil
}
