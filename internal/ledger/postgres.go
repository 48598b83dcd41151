package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kobo-pay/kobo_pay/internal/charges"
	"github.com/kobo-pay/kobo_pay/internal/storage"
)

const uniqueViolation = "23505"

// PostgresRepository stores transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a ledger repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const transactionColumns = `id, reference, amount, type, status, channel,
        vat, fee, stamp_duty, note, owner_id, wallet_id, metadata, created_at, updated_at`

// Create appends a transaction record inside the caller's scope.
func (r *PostgresRepository) Create(ctx context.Context, scope storage.Scope, trx Transaction) (Transaction, error) {
	if trx.ID == "" {
		trx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	trx.CreatedAt = now
	trx.UpdatedAt = now

	var metadata []byte
	if trx.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(trx.Metadata); err != nil {
			return Transaction{}, fmt.Errorf("encode metadata: %w", err)
		}
	}

	var vat, fee, stampDuty *int64
	if trx.Charges != nil {
		vat, fee, stampDuty = &trx.Charges.VAT, &trx.Charges.Fee, &trx.Charges.StampDuty
	}

	q := storage.QuerierFor(scope, r.db)
	_, err := q.Exec(ctx, `INSERT INTO transactions
        (id, reference, amount, type, status, channel, vat, fee, stamp_duty, note, owner_id, wallet_id, metadata, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		trx.ID, trx.Reference, trx.Amount, trx.Type, trx.Status, trx.Channel,
		vat, fee, stampDuty, nullable(trx.Note), trx.OwnerID, trx.WalletID, metadata, trx.CreatedAt, trx.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, err
	}

	return trx, nil
}

// FindByOwner returns the owner's transaction history, newest first.
func (r *PostgresRepository) FindByOwner(ctx context.Context, ownerID string, filter Filter) (Page, error) {
	where := []string{"owner_id = $1"}
	args := []any{ownerID}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Channel != "" {
		add("channel = $%d", filter.Channel)
	}
	if filter.Start != nil {
		add("created_at >= $%d", filter.Start.UTC())
	}
	if filter.End != nil {
		add("created_at <= $%d", filter.End.UTC())
	}

	condition := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE "+condition, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s
        ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, transactionColumns, condition, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	data := make([]Transaction, 0, limit)
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			return Page{}, err
		}
		data = append(data, trx)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	return Page{Data: data, Total: total}, nil
}

// FindByReference fetches a transaction by its unique reference, locking the
// row when called inside a transaction scope.
func (r *PostgresRepository) FindByReference(ctx context.Context, scope storage.Scope, reference string) (Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE reference = $1", transactionColumns)
	if storage.InTx(scope) {
		query += " FOR UPDATE"
	}

	q := storage.QuerierFor(scope, r.db)
	trx, err := scanTransaction(q.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	return trx, nil
}

// AdvanceStatus moves a transaction forward out of PENDING. Terminal records
// refuse further transitions.
func (r *PostgresRepository) AdvanceStatus(ctx context.Context, scope storage.Scope, reference string, status Status) error {
	q := storage.QuerierFor(scope, r.db)

	query := "SELECT status FROM transactions WHERE reference = $1"
	if storage.InTx(scope) {
		query += " FOR UPDATE"
	}

	var current Status
	if err := q.QueryRow(ctx, query, reference).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if current.Terminal() {
		return ErrAlreadySettled
	}

	_, err := q.Exec(ctx, `UPDATE transactions SET status = $2, updated_at = $3 WHERE reference = $1`,
		reference, status, time.Now().UTC())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		trx                 Transaction
		vat, fee, stampDuty *int64
		note                *string
		metadata            []byte
	)
	if err := row.Scan(&trx.ID, &trx.Reference, &trx.Amount, &trx.Type, &trx.Status, &trx.Channel,
		&vat, &fee, &stampDuty, &note, &trx.OwnerID, &trx.WalletID, &metadata, &trx.CreatedAt, &trx.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if vat != nil || fee != nil || stampDuty != nil {
		trx.Charges = &charges.Breakdown{}
		if vat != nil {
			trx.Charges.VAT = *vat
		}
		if fee != nil {
			trx.Charges.Fee = *fee
		}
		if stampDuty != nil {
			trx.Charges.StampDuty = *stampDuty
		}
	}
	if note != nil {
		trx.Note = *note
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &trx.Metadata); err != nil {
			return Transaction{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	trx.CreatedAt = trx.CreatedAt.UTC()
	trx.UpdatedAt = trx.UpdatedAt.UTC()

	return trx, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
