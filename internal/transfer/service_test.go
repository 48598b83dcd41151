package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/notification"
	"github.com/kobo-pay/kobo_pay/internal/payout"
	"github.com/kobo-pay/kobo_pay/internal/storage"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

type fakeGateway struct {
	mu             sync.Mutex
	verifyErr      error
	recipientErr   error
	transferErr    error
	reference      string
	verifyCalls    int
	recipientCalls int
	transferCalls  int
}

func (g *fakeGateway) VerifyAccount(_ context.Context, accountNumber, _ string) (payout.BankAccount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return payout.BankAccount{}, g.verifyErr
	}
	return payout.BankAccount{AccountName: "Ada Obi", AccountNumber: accountNumber}, nil
}

func (g *fakeGateway) CreateRecipient(_ context.Context, _ payout.RecipientInput) (payout.Recipient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recipientCalls++
	if g.recipientErr != nil {
		return payout.Recipient{}, g.recipientErr
	}
	return payout.Recipient{Code: "RCP_test", Raw: map[string]any{"recipient_code": "RCP_test"}}, nil
}

func (g *fakeGateway) InitiateTransfer(_ context.Context, amount int64, _, _ string) (payout.Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transferCalls++
	if g.transferErr != nil {
		return payout.Transfer{}, g.transferErr
	}
	ref := g.reference
	if ref == "" {
		ref = "ps_ref_" + uuid.NewString()
	}
	return payout.Transfer{Reference: ref, Status: "pending", Raw: map[string]any{"amount": amount}}, nil
}

func (g *fakeGateway) ListBanks(_ context.Context) ([]payout.Bank, error) {
	return nil, nil
}

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	return nil
}

type fixture struct {
	svc      *Service
	wallets  wallet.Repository
	trxRepo  ledger.Repository
	gateway  *fakeGateway
	notifier *testNotifier
}

func newFixture() *fixture {
	f := &fixture{
		wallets:  wallet.NewMemoryRepository(),
		trxRepo:  ledger.NewMemoryRepository(),
		gateway:  &fakeGateway{},
		notifier: &testNotifier{},
	}
	f.svc = NewService(storage.NewMemoryManager(), f.wallets, f.trxRepo, f.gateway, f.notifier)
	return f
}

func (f *fixture) seedWallet(t *testing.T, balance int64, pin string) wallet.Wallet {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	w, err := f.wallets.Create(context.Background(), wallet.Wallet{
		ID:       uuid.NewString(),
		OwnerID:  uuid.NewString(),
		Currency: wallet.CurrencyNGN,
		PinHash:  hash,
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balance > 0 {
		if _, err := f.wallets.AdjustBalance(context.Background(), nil, w.ID, w.OwnerID, balance); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
		w.Balance = balance
	}
	return w
}

func (f *fixture) balance(t *testing.T, ownerID string) int64 {
	t.Helper()
	w, err := f.wallets.FindByOwner(context.Background(), nil, ownerID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	return w.Balance
}

func (f *fixture) history(t *testing.T, ownerID string) []ledger.Transaction {
	t.Helper()
	page, err := f.trxRepo.FindByOwner(context.Background(), ownerID, ledger.Filter{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	return page.Data
}

func TestFundWallet(t *testing.T) {
	f := newFixture()
	w := f.seedWallet(t, 0, "1234")

	view, err := f.svc.Fund(context.Background(), w.ID, w.OwnerID, 500)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if view.Balance != 500 {
		t.Fatalf("expected balance 500, got %d", view.Balance)
	}

	history := f.history(t, w.OwnerID)
	if len(history) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(history))
	}
	trx := history[0]
	if trx.Type != ledger.TypeCredit || trx.Channel != ledger.ChannelInternal || trx.Status != ledger.StatusSuccessful {
		t.Fatalf("unexpected funding record: %+v", trx)
	}
	if trx.Charges != nil {
		t.Fatalf("funding must carry no charges, got %+v", trx.Charges)
	}
	if !strings.HasPrefix(trx.Reference, "TRX_") {
		t.Fatalf("expected local reference, got %q", trx.Reference)
	}
}

func TestFundRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()
	w := f.seedWallet(t, 100, "1234")

	for _, amount := range []int64{0, -50} {
		if _, err := f.svc.Fund(context.Background(), w.ID, w.OwnerID, amount); !errors.Is(err, ErrNonPositiveAmount) {
			t.Fatalf("amount %d: expected ErrNonPositiveAmount, got %v", amount, err)
		}
	}

	if got := f.balance(t, w.OwnerID); got != 100 {
		t.Fatalf("balance must be untouched, got %d", got)
	}
	if history := f.history(t, w.OwnerID); len(history) != 0 {
		t.Fatalf("no transaction may be written, got %d", len(history))
	}
}

func TestFundUnknownWallet(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Fund(context.Background(), uuid.NewString(), uuid.NewString(), 100); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestInternalTransfer(t *testing.T) {
	f := newFixture()
	sender := f.seedWallet(t, 2000, "1234")
	recipient := f.seedWallet(t, 500, "5678")

	result, err := f.svc.Internal(context.Background(), InternalInput{
		FromOwnerID: sender.OwnerID,
		ToOwnerID:   recipient.OwnerID,
		Amount:      100,
		TrxPin:      "1234",
		Note:        "lunch",
	})
	if err != nil {
		t.Fatalf("internal transfer: %v", err)
	}

	if result.From.Balance != 1850 {
		t.Fatalf("expected sender balance 1850, got %d", result.From.Balance)
	}
	if result.To.Balance != 600 {
		t.Fatalf("expected recipient balance 600, got %d", result.To.Balance)
	}

	senderHistory := f.history(t, sender.OwnerID)
	if len(senderHistory) != 1 {
		t.Fatalf("expected 1 sender record, got %d", len(senderHistory))
	}
	debit := senderHistory[0]
	if debit.Type != ledger.TypeDebit || debit.Channel != ledger.ChannelInternal || debit.Status != ledger.StatusSuccessful {
		t.Fatalf("unexpected debit record: %+v", debit)
	}
	if debit.Charges == nil || debit.Charges.VAT != 5 || debit.Charges.Fee != 5 || debit.Charges.StampDuty != 40 {
		t.Fatalf("unexpected debit charges: %+v", debit.Charges)
	}
	if debit.Metadata["toUserId"] != recipient.OwnerID {
		t.Fatalf("debit must reference recipient, got %v", debit.Metadata)
	}

	recipientHistory := f.history(t, recipient.OwnerID)
	if len(recipientHistory) != 1 {
		t.Fatalf("expected 1 recipient record, got %d", len(recipientHistory))
	}
	credit := recipientHistory[0]
	if credit.Type != ledger.TypeCredit || credit.Charges != nil {
		t.Fatalf("unexpected credit record: %+v", credit)
	}
	if credit.Metadata["fromUserId"] != sender.OwnerID {
		t.Fatalf("credit must reference sender, got %v", credit.Metadata)
	}

	if f.notifier.last.Kind != notification.KindWalletCredit {
		t.Fatalf("expected credit notification, got %+v", f.notifier.last)
	}
}

func TestInternalTransferWrongPin(t *testing.T) {
	f := newFixture()
	sender := f.seedWallet(t, 2000, "1234")
	recipient := f.seedWallet(t, 500, "5678")

	_, err := f.svc.Internal(context.Background(), InternalInput{
		FromOwnerID: sender.OwnerID,
		ToOwnerID:   recipient.OwnerID,
		Amount:      100,
		TrxPin:      "0000",
	})
	if !errors.Is(err, wallet.ErrInvalidPin) {
		t.Fatalf("expected invalid pin, got %v", err)
	}

	if got := f.balance(t, sender.OwnerID); got != 2000 {
		t.Fatalf("sender balance must be untouched, got %d", got)
	}
	if got := f.balance(t, recipient.OwnerID); got != 500 {
		t.Fatalf("recipient balance must be untouched, got %d", got)
	}
	if history := f.history(t, sender.OwnerID); len(history) != 0 {
		t.Fatalf("no record may be written, got %d", len(history))
	}
}

func TestInternalTransferToSelf(t *testing.T) {
	f := newFixture()
	sender := f.seedWallet(t, 2000, "1234")

	_, err := f.svc.Internal(context.Background(), InternalInput{
		FromOwnerID: sender.OwnerID,
		ToOwnerID:   sender.OwnerID,
		Amount:      100,
		TrxPin:      "1234",
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self-transfer rejection, got %v", err)
	}
}

func TestInternalTransferMissingWallets(t *testing.T) {
	f := newFixture()
	sender := f.seedWallet(t, 2000, "1234")

	_, err := f.svc.Internal(context.Background(), InternalInput{
		FromOwnerID: uuid.NewString(),
		ToOwnerID:   sender.OwnerID,
		Amount:      100,
		TrxPin:      "1234",
	})
	if !errors.Is(err, wallet.ErrNotFound) || !strings.Contains(err.Error(), "sender") {
		t.Fatalf("expected sender not found, got %v", err)
	}

	_, err = f.svc.Internal(context.Background(), InternalInput{
		FromOwnerID: sender.OwnerID,
		ToOwnerID:   uuid.NewString(),
		Amount:      100,
		TrxPin:      "1234",
	})
	if !errors.Is(err, wallet.ErrNotFound) || !strings.Contains(err.Error(), "recipient") {
		t.Fatalf("expected recipient not found, got %v", err)
	}
}

func TestInternalTransferInsufficientFunds(t *testing.T) {
	f := newFixture()
	sender := f.seedWallet(t, 140, "1234")
	recipient := f.seedWallet(t, 0, "5678")

	// 100 + 50 charges > 140.
	_, err := f.svc.Internal(context.Background(), InternalInput{
		FromOwnerID: sender.OwnerID,
		ToOwnerID:   recipient.OwnerID,
		Amount:      100,
		TrxPin:      "1234",
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := f.balance(t, sender.OwnerID); got != 140 {
		t.Fatalf("sender balance must be untouched, got %d", got)
	}
}

func TestExternalTransfer(t *testing.T) {
	f := newFixture()
	f.gateway.reference = "ps_ref_1"
	sender := f.seedWallet(t, 10_000, "1234")

	trx, err := f.svc.External(context.Background(), ExternalInput{
		OwnerID:       sender.OwnerID,
		Amount:        1000,
		TrxPin:        "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
		RecipientName: "Ada Obi",
		Note:          "rent",
	})
	if err != nil {
		t.Fatalf("external transfer: %v", err)
	}

	if got := f.balance(t, sender.OwnerID); got != 8930 {
		t.Fatalf("expected balance 8930, got %d", got)
	}
	if trx.Reference != "ps_ref_1" {
		t.Fatalf("expected gateway reference, got %q", trx.Reference)
	}
	if trx.Type != ledger.TypeDebit || trx.Channel != ledger.ChannelExternal || trx.Status != ledger.StatusPending {
		t.Fatalf("unexpected external record: %+v", trx)
	}
	if trx.Charges == nil || trx.Charges.Total() != 70 {
		t.Fatalf("unexpected external charges: %+v", trx.Charges)
	}
	if trx.Metadata["bankCode"] != "058" || trx.Metadata["accountNumber"] != "0123456789" {
		t.Fatalf("metadata must capture destination, got %v", trx.Metadata)
	}
	if f.gateway.verifyCalls != 1 || f.gateway.recipientCalls != 1 || f.gateway.transferCalls != 1 {
		t.Fatalf("expected one call per gateway step, got %+v", f.gateway)
	}
}

func TestExternalTransferInvalidAccount(t *testing.T) {
	f := newFixture()
	f.gateway.verifyErr = payout.ErrAccountVerification
	sender := f.seedWallet(t, 10_000, "1234")

	_, err := f.svc.External(context.Background(), ExternalInput{
		OwnerID:       sender.OwnerID,
		Amount:        1000,
		TrxPin:        "1234",
		BankCode:      "058",
		AccountNumber: "0000000000",
		RecipientName: "Ada Obi",
	})
	if !errors.Is(err, payout.ErrAccountVerification) {
		t.Fatalf("expected account verification error, got %v", err)
	}

	if got := f.balance(t, sender.OwnerID); got != 10_000 {
		t.Fatalf("no debit may happen for a rejected account, got %d", got)
	}
	if history := f.history(t, sender.OwnerID); len(history) != 0 {
		t.Fatalf("no record may be written, got %d", len(history))
	}
}

func TestExternalTransferGatewayFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.gateway.transferErr = fmt.Errorf("provider timeout")
	sender := f.seedWallet(t, 10_000, "1234")

	_, err := f.svc.External(context.Background(), ExternalInput{
		OwnerID:       sender.OwnerID,
		Amount:        1000,
		TrxPin:        "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
		RecipientName: "Ada Obi",
	})
	if err == nil {
		t.Fatal("expected gateway failure to surface")
	}

	if got := f.balance(t, sender.OwnerID); got != 10_000 {
		t.Fatalf("no debit without provider acceptance, got %d", got)
	}
	if history := f.history(t, sender.OwnerID); len(history) != 0 {
		t.Fatalf("no record may be written, got %d", len(history))
	}
}

func TestExternalTransferWrongPinSkipsGateway(t *testing.T) {
	f := newFixture()
	sender := f.seedWallet(t, 10_000, "1234")

	_, err := f.svc.External(context.Background(), ExternalInput{
		OwnerID:       sender.OwnerID,
		Amount:        1000,
		TrxPin:        "0000",
		BankCode:      "058",
		AccountNumber: "0123456789",
		RecipientName: "Ada Obi",
	})
	if !errors.Is(err, wallet.ErrInvalidPin) {
		t.Fatalf("expected invalid pin, got %v", err)
	}
	if f.gateway.verifyCalls != 0 {
		t.Fatalf("gateway must not be called before the pin passes, got %d calls", f.gateway.verifyCalls)
	}
}

func seedPendingExternal(t *testing.T, f *fixture) (wallet.Wallet, ledger.Transaction) {
	t.Helper()
	f.gateway.reference = "ps_ref_settle"
	sender := f.seedWallet(t, 10_000, "1234")
	trx, err := f.svc.External(context.Background(), ExternalInput{
		OwnerID:       sender.OwnerID,
		Amount:        1000,
		TrxPin:        "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
		RecipientName: "Ada Obi",
	})
	if err != nil {
		t.Fatalf("seed external transfer: %v", err)
	}
	return sender, trx
}

func TestReconcileSuccess(t *testing.T) {
	f := newFixture()
	sender, trx := seedPendingExternal(t, f)

	if err := f.svc.Reconcile(context.Background(), EventTransferSuccess, trx.Reference); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	settled, err := f.trxRepo.FindByReference(context.Background(), nil, trx.Reference)
	if err != nil {
		t.Fatalf("find settled: %v", err)
	}
	if settled.Status != ledger.StatusSuccessful {
		t.Fatalf("expected SUCCESSFUL, got %s", settled.Status)
	}
	if got := f.balance(t, sender.OwnerID); got != 8930 {
		t.Fatalf("success settlement must not move funds, got %d", got)
	}
	if history := f.history(t, sender.OwnerID); len(history) != 1 {
		t.Fatalf("no extra record on success, got %d", len(history))
	}
}

func TestReconcileFailedRefunds(t *testing.T) {
	f := newFixture()
	sender, trx := seedPendingExternal(t, f)

	if err := f.svc.Reconcile(context.Background(), EventTransferFailed, trx.Reference); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	failed, err := f.trxRepo.FindByReference(context.Background(), nil, trx.Reference)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if failed.Status != ledger.StatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
	if got := f.balance(t, sender.OwnerID); got != 10_000 {
		t.Fatalf("expected full refund to 10000, got %d", got)
	}

	history := f.history(t, sender.OwnerID)
	if len(history) != 2 {
		t.Fatalf("expected original plus refund record, got %d", len(history))
	}
	var refund *ledger.Transaction
	for i := range history {
		if history[i].Type == ledger.TypeRefund {
			refund = &history[i]
		}
	}
	if refund == nil {
		t.Fatal("expected a refund record")
	}
	if refund.Status != ledger.StatusSuccessful || refund.Channel != ledger.ChannelInternal {
		t.Fatalf("unexpected refund record: %+v", refund)
	}
	if refund.Metadata["originalRef"] != trx.Reference {
		t.Fatalf("refund must link the original reference, got %v", refund.Metadata)
	}
	if f.notifier.last.Kind != notification.KindTransferRefund {
		t.Fatalf("expected refund notification, got %+v", f.notifier.last)
	}
}

func TestReconcileReplayAfterSettlement(t *testing.T) {
	f := newFixture()
	sender, trx := seedPendingExternal(t, f)

	if err := f.svc.Reconcile(context.Background(), EventTransferFailed, trx.Reference); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if err := f.svc.Reconcile(context.Background(), EventTransferFailed, trx.Reference); !errors.Is(err, ledger.ErrAlreadySettled) {
		t.Fatalf("expected already settled, got %v", err)
	}

	// The replay must not double the refund.
	if got := f.balance(t, sender.OwnerID); got != 10_000 {
		t.Fatalf("expected balance 10000 after replay, got %d", got)
	}
	if history := f.history(t, sender.OwnerID); len(history) != 2 {
		t.Fatalf("replay must not append records, got %d", len(history))
	}
}

func TestReconcileUnknownEventIsNoOp(t *testing.T) {
	f := newFixture()
	sender, trx := seedPendingExternal(t, f)

	if err := f.svc.Reconcile(context.Background(), "transfer.reversed.pending", trx.Reference); err != nil {
		t.Fatalf("unknown event must commit as no-op, got %v", err)
	}

	unchanged, err := f.trxRepo.FindByReference(context.Background(), nil, trx.Reference)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if unchanged.Status != ledger.StatusPending {
		t.Fatalf("status must stay PENDING, got %s", unchanged.Status)
	}
	if got := f.balance(t, sender.OwnerID); got != 8930 {
		t.Fatalf("balance must stay debited, got %d", got)
	}
}

func TestReconcileValidation(t *testing.T) {
	f := newFixture()

	if err := f.svc.Reconcile(context.Background(), EventTransferSuccess, ""); !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected missing reference, got %v", err)
	}
	if err := f.svc.Reconcile(context.Background(), EventTransferSuccess, "ps_unknown"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected transaction not found, got %v", err)
	}
}

func TestConcurrentInternalTransfersOnlyOneDebits(t *testing.T) {
	f := newFixture()
	// 200 covers a single 100+50 debit, never two.
	sender := f.seedWallet(t, 200, "1234")
	first := f.seedWallet(t, 0, "1111")
	second := f.seedWallet(t, 0, "2222")

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, to := range []string{first.OwnerID, second.OwnerID} {
		wg.Add(1)
		go func(toOwnerID string) {
			defer wg.Done()
			_, err := f.svc.Internal(context.Background(), InternalInput{
				FromOwnerID: sender.OwnerID,
				ToOwnerID:   toOwnerID,
				Amount:      100,
				TrxPin:      "1234",
			})
			errs <- err
		}(to)
	}
	wg.Wait()
	close(errs)

	var failures, successes int
	for err := range errs {
		if err == nil {
			successes++
		} else if errors.Is(err, wallet.ErrInsufficientFunds) {
			failures++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || failures != 1 {
		t.Fatalf("expected exactly one success and one insufficient-funds failure, got %d/%d", successes, failures)
	}
	if got := f.balance(t, sender.OwnerID); got != 50 {
		t.Fatalf("expected final sender balance 50, got %d", got)
	}
}

func TestBalanceMatchesTransactionHistory(t *testing.T) {
	f := newFixture()
	f.gateway.reference = "ps_ref_inv"
	w := f.seedWallet(t, 0, "1234")
	peer := f.seedWallet(t, 0, "5678")

	ctx := context.Background()
	if _, err := f.svc.Fund(ctx, w.ID, w.OwnerID, 20_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := f.svc.Internal(ctx, InternalInput{
		FromOwnerID: w.OwnerID, ToOwnerID: peer.OwnerID, Amount: 300, TrxPin: "1234",
	}); err != nil {
		t.Fatalf("internal: %v", err)
	}
	trx, err := f.svc.External(ctx, ExternalInput{
		OwnerID: w.OwnerID, Amount: 1000, TrxPin: "1234",
		BankCode: "058", AccountNumber: "0123456789", RecipientName: "Ada Obi",
	})
	if err != nil {
		t.Fatalf("external: %v", err)
	}
	if err := f.svc.Reconcile(ctx, EventTransferFailed, trx.Reference); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// Replay the history: every committed delta must be derivable from the
	// records themselves (refunds repay the original's charges too).
	page, err := f.trxRepo.FindByOwner(ctx, w.OwnerID, ledger.Filter{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var derived int64
	for _, rec := range page.Data {
		switch rec.Type {
		case ledger.TypeCredit:
			derived += rec.Amount
		case ledger.TypeDebit:
			// Both SUCCESSFUL and PENDING debits have already left the wallet.
			derived -= rec.Amount + rec.ChargesTotal()
		case ledger.TypeRefund:
			originalRef, _ := rec.Metadata["originalRef"].(string)
			original, err := f.trxRepo.FindByReference(ctx, nil, originalRef)
			if err != nil {
				t.Fatalf("find refund original: %v", err)
			}
			derived += original.Amount + original.ChargesTotal()
		}
	}

	if got := f.balance(t, w.OwnerID); got != derived {
		t.Fatalf("balance %d does not match derived history %d", got, derived)
	}
	if got := f.balance(t, w.OwnerID); got != 20_000-300-50 {
		t.Fatalf("expected 19650 after fund, internal transfer and refunded external, got %d", got)
	}
}
