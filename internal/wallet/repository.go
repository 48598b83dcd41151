package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kobo-pay/kobo_pay/internal/storage"
)

const uniqueViolation = "23505"

// Repository persists wallets. AdjustBalance is the single balance mutation
// path; its floor check guarantees no committed operation leaves a negative
// balance.
type Repository interface {
	Create(ctx context.Context, w Wallet) (Wallet, error)
	FindByOwner(ctx context.Context, scope storage.Scope, ownerID string) (Wallet, error)
	AdjustBalance(ctx context.Context, scope storage.Scope, walletID, ownerID string, delta int64) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a wallet repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = "id, owner_id, balance, currency, pin_hash, created_at, updated_at"

// Create inserts a wallet. The unique constraint on owner_id turns a
// create/create race into ErrExists.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) (Wallet, error) {
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, currency, pin_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.OwnerID, w.Balance, w.Currency, w.PinHash, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Wallet{}, ErrExists
		}
		return Wallet{}, err
	}

	return w, nil
}

// FindByOwner fetches the owner's wallet, locking the row when called inside
// a transaction scope so concurrent flows on the same wallet serialize.
func (r *PostgresRepository) FindByOwner(ctx context.Context, scope storage.Scope, ownerID string) (Wallet, error) {
	query := "SELECT " + walletColumns + " FROM wallets WHERE owner_id = $1"
	if storage.InTx(scope) {
		query += " FOR UPDATE"
	}

	q := storage.QuerierFor(scope, r.db)
	w, err := scanWallet(q.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}

	return w, nil
}

// AdjustBalance applies balance += delta scoped to (walletID, ownerID) as one
// conditional update: the floor check is part of the statement itself, so a
// racing debit cannot drive the balance negative regardless of isolation.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, scope storage.Scope, walletID, ownerID string, delta int64) (Wallet, error) {
	q := storage.QuerierFor(scope, r.db)

	w, err := scanWallet(q.QueryRow(ctx, `UPDATE wallets
        SET balance = balance + $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2 AND balance + $3 >= 0
        RETURNING `+walletColumns,
		walletID, ownerID, delta, time.Now().UTC()))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, err
	}

	// No row updated: distinguish a missing/foreign wallet from a floor breach.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1 AND owner_id = $2)`,
		walletID, ownerID).Scan(&exists); err != nil {
		return Wallet{}, err
	}
	if !exists {
		return Wallet{}, ErrNotFound
	}
	return Wallet{}, ErrInsufficientFunds
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Currency, &w.PinHash, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Wallet{}, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
