package storage

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/sui-wrapped/internal/errors"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/types"
)

// StatsRepository persists derived stats snapshots, one per wallet
type StatsRepository struct {
	db *PostgresDB
}

// NewStatsRepository creates a stats repository
func NewStatsRepository(db *PostgresDB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Upsert replaces the wallet's snapshot wholesale. Snapshots are always
// recomputed from scratch, so every column is overwritten.
func (r *StatsRepository) Upsert(ctx context.Context, snapshot *models.StatsSnapshot) error {
	topAssets, err := json.Marshal(snapshot.TopAssets)
	if err != nil {
		return apperrors.NewStorageError("stats encode", err)
	}
	topInteractors, err := json.Marshal(snapshot.TopInteractors)
	if err != nil {
		return apperrors.NewStorageError("stats encode", err)
	}
	monthly, err := json.Marshal(snapshot.MonthlyActivity)
	if err != nil {
		return apperrors.NewStorageError("stats encode", err)
	}
	recent, err := json.Marshal(snapshot.RecentTransactions)
	if err != nil {
		return apperrors.NewStorageError("stats encode", err)
	}

	query := `
		INSERT INTO wallet_stats (
			user_address, tx_count, total_volume, total_inflow, total_outflow,
			peak_day, peak_day_count, biggest_tx_hash, biggest_tx_amount,
			top_assets, top_interactors, monthly_activity, archetype,
			rank_percentile, recent_transactions, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_address) DO UPDATE SET
			tx_count = EXCLUDED.tx_count,
			total_volume = EXCLUDED.total_volume,
			total_inflow = EXCLUDED.total_inflow,
			total_outflow = EXCLUDED.total_outflow,
			peak_day = EXCLUDED.peak_day,
			peak_day_count = EXCLUDED.peak_day_count,
			biggest_tx_hash = EXCLUDED.biggest_tx_hash,
			biggest_tx_amount = EXCLUDED.biggest_tx_amount,
			top_assets = EXCLUDED.top_assets,
			top_interactors = EXCLUDED.top_interactors,
			monthly_activity = EXCLUDED.monthly_activity,
			archetype = EXCLUDED.archetype,
			rank_percentile = EXCLUDED.rank_percentile,
			recent_transactions = EXCLUDED.recent_transactions,
			computed_at = EXCLUDED.computed_at`

	_, err = r.db.Pool.Exec(ctx, query,
		snapshot.UserAddress, snapshot.TxCount, snapshot.TotalVolume,
		snapshot.TotalInflow, snapshot.TotalOutflow, snapshot.PeakDay,
		snapshot.PeakDayCount, snapshot.BiggestTxHash, snapshot.BiggestTxAmount,
		topAssets, topInteractors, monthly, string(snapshot.Archetype),
		snapshot.RankPercentile, recent, snapshot.ComputedAt)
	if err != nil {
		return apperrors.NewStorageError("stats upsert", err)
	}
	return nil
}

// Get returns the wallet's snapshot, or nil when none has been computed
func (r *StatsRepository) Get(ctx context.Context, address string) (*models.StatsSnapshot, error) {
	query := `
		SELECT user_address, tx_count, total_volume, total_inflow, total_outflow,
			peak_day, peak_day_count, biggest_tx_hash, biggest_tx_amount,
			top_assets, top_interactors, monthly_activity, archetype,
			rank_percentile, recent_transactions, computed_at
		FROM wallet_stats
		WHERE user_address = $1`

	var s models.StatsSnapshot
	var topAssets, topInteractors, monthly, recent []byte
	var archetype string
	err := r.db.Pool.QueryRow(ctx, query, address).Scan(
		&s.UserAddress, &s.TxCount, &s.TotalVolume, &s.TotalInflow,
		&s.TotalOutflow, &s.PeakDay, &s.PeakDayCount, &s.BiggestTxHash,
		&s.BiggestTxAmount, &topAssets, &topInteractors, &monthly,
		&archetype, &s.RankPercentile, &recent, &s.ComputedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("stats get", err)
	}

	s.Archetype = types.Archetype(archetype)
	if err := json.Unmarshal(topAssets, &s.TopAssets); err != nil {
		return nil, apperrors.NewStorageError("stats decode", err)
	}
	if err := json.Unmarshal(topInteractors, &s.TopInteractors); err != nil {
		return nil, apperrors.NewStorageError("stats decode", err)
	}
	if err := json.Unmarshal(monthly, &s.MonthlyActivity); err != nil {
		return nil, apperrors.NewStorageError("stats decode", err)
	}
	if err := json.Unmarshal(recent, &s.RecentTransactions); err != nil {
		return nil, apperrors.NewStorageError("stats decode", err)
	}
	return &s, nil
}
