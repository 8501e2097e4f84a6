package storage

import (
	"context"

	"github.com/goccy/go-json"

	apperrors "github.com/sui-wrapped/internal/errors"
	"github.com/sui-wrapped/internal/models"
)

// TransactionRepository persists normalized transaction records
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// InsertBatch stores records, silently skipping digests already indexed
// for the wallet. Re-running a pipeline is therefore idempotent.
func (r *TransactionRepository) InsertBatch(ctx context.Context, records []models.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO transactions (digest, user_address, sender, timestamp, interacted_with, balance_changes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_address, digest) DO NOTHING`

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStorageError("transaction batch begin", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		changes, err := json.Marshal(rec.BalanceChanges)
		if err != nil {
			return apperrors.NewStorageError("transaction batch encode", err)
		}
		if _, err := tx.Exec(ctx, query,
			rec.Digest, rec.UserAddress, rec.Sender, rec.Timestamp,
			rec.InteractedWith, changes); err != nil {
			return apperrors.NewStorageError("transaction batch insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError("transaction batch commit", err)
	}
	return nil
}

// ListByAddress returns all records for a wallet, newest first
func (r *TransactionRepository) ListByAddress(ctx context.Context, address string) ([]models.TransactionRecord, error) {
	query := `
		SELECT digest, user_address, sender, timestamp, interacted_with, balance_changes
		FROM transactions
		WHERE user_address = $1
		ORDER BY timestamp DESC`

	rows, err := r.db.Pool.Query(ctx, query, address)
	if err != nil {
		return nil, apperrors.NewStorageError("transaction list", err)
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		var changes []byte
		if err := rows.Scan(&rec.Digest, &rec.UserAddress, &rec.Sender,
			&rec.Timestamp, &rec.InteractedWith, &changes); err != nil {
			return nil, apperrors.NewStorageError("transaction scan", err)
		}
		if err := json.Unmarshal(changes, &rec.BalanceChanges); err != nil {
			return nil, apperrors.NewStorageError("transaction decode", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("transaction rows", err)
	}
	return records, nil
}

// CountByAddress returns how many records are stored for a wallet
func (r *TransactionRepository) CountByAddress(ctx context.Context, address string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_address = $1`, address).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("transaction count", err)
	}
	return count, nil
}
