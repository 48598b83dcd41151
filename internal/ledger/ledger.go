package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/kobo-pay/kobo_pay/internal/charges"
	"github.com/kobo-pay/kobo_pay/internal/storage"
)

var (
	// ErrNotFound indicates no transaction matches the given reference.
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicateReference indicates the reference uniqueness constraint was
	// violated on insert.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrAlreadySettled indicates the transaction already reached a terminal
	// status and cannot transition again.
	ErrAlreadySettled = errors.New("transaction already settled")
)

// Type classifies the direction or nature of a ledger entry.
type Type string

const (
	TypeDebit   Type = "DEBIT"
	TypeCredit  Type = "CREDIT"
	TypeRefund  Type = "REFUND"
	TypeCharges Type = "CHARGES"
)

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSuccessful || s == StatusFailed
}

// Channel identifies where a transfer settles.
type Channel string

const (
	ChannelInternal      Channel = "INTERNAL"
	ChannelExternal      Channel = "EXTERNAL"
	ChannelInternational Channel = "INTERNATIONAL"
)

// Transaction is an append-only ledger record. Type, Amount, Channel and
// Reference are immutable after creation; only Status may advance, and only
// forward out of PENDING.
type Transaction struct {
	ID        string
	Reference string
	Amount    int64
	Type      Type
	Status    Status
	Channel   Channel
	Charges   *charges.Breakdown
	Note      string
	OwnerID   string
	WalletID  string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChargesTotal returns the summed fee breakdown, zero when none was recorded.
func (t Transaction) ChargesTotal() int64 {
	if t.Charges == nil {
		return 0
	}
	return t.Charges.Total()
}

// Filter narrows a transaction history query. Zero values mean "no filter";
// Start and End bound created_at inclusively.
type Filter struct {
	Type    Type
	Status  Status
	Channel Channel
	Limit   int
	Offset  int
	Start   *time.Time
	End     *time.Time
}

// DefaultLimit applies when a query does not specify a page size.
const DefaultLimit = 50

// Page is one page of a transaction history query, newest first.
type Page struct {
	Data  []Transaction
	Total int
}

// Repository persists the transaction ledger.
type Repository interface {
	Create(ctx context.Context, scope storage.Scope, trx Transaction) (Transaction, error)
	FindByOwner(ctx context.Context, ownerID string, filter Filter) (Page, error)
	FindByReference(ctx context.Context, scope storage.Scope, reference string) (Transaction, error)
	AdvanceStatus(ctx context.Context, scope storage.Scope, reference string, status Status) error
}
