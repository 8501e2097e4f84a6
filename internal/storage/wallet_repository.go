package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/sui-wrapped/internal/errors"
	"github.com/sui-wrapped/internal/models"
)

// WalletRepository persists wallet rows and their indexing state
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Get returns the wallet row for an address, or nil when unknown
func (r *WalletRepository) Get(ctx context.Context, address string) (*models.Wallet, error) {
	query := `
		SELECT address, is_indexed, last_indexed_at, created_at, updated_at
		FROM wallets
		WHERE address = $1`

	var w models.Wallet
	err := r.db.Pool.QueryRow(ctx, query, address).Scan(
		&w.Address, &w.IsIndexed, &w.LastIndexedAt, &w.CreatedAt, &w.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("wallet get", err)
	}
	return &w, nil
}

// Upsert inserts the wallet row or resets it to un-indexed. Used at the
// start of a pipeline run so a crash never leaves a stale completion.
func (r *WalletRepository) Upsert(ctx context.Context, address string) error {
	query := `
		INSERT INTO wallets (address, is_indexed, created_at, updated_at)
		VALUES ($1, FALSE, NOW(), NOW())
		ON CONFLICT (address) DO UPDATE SET
			is_indexed = FALSE,
			updated_at = NOW()`

	if _, err := r.db.Pool.Exec(ctx, query, address); err != nil {
		return apperrors.NewStorageError("wallet upsert", err)
	}
	return nil
}

// MarkIndexed flags the wallet as fully indexed at the given time
func (r *WalletRepository) MarkIndexed(ctx context.Context, address string, at time.Time) error {
	query := `
		UPDATE wallets
		SET is_indexed = TRUE, last_indexed_at = $2, updated_at = NOW()
		WHERE address = $1`

	if _, err := r.db.Pool.Exec(ctx, query, address, at); err != nil {
		return apperrors.NewStorageError("wallet mark indexed", err)
	}
	return nil
}
