// Package stats computes the derived year-in-review snapshot for a
// wallet from its indexed transaction records.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sui-wrapped/internal/errors"
	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/types"
)

// RecordLister reads a wallet's indexed records, newest first
type RecordLister interface {
	ListByAddress(ctx context.Context, address string) ([]models.TransactionRecord, error)
}

// SnapshotStore persists computed snapshots
type SnapshotStore interface {
	Upsert(ctx context.Context, snapshot *models.StatsSnapshot) error
}

// Engine recomputes stats snapshots from persisted records
type Engine struct {
	records   RecordLister
	snapshots SnapshotStore
	logger    *logging.Logger
}

// NewEngine creates a stats engine
func NewEngine(records RecordLister, snapshots SnapshotStore, logger *logging.Logger) *Engine {
	return &Engine{records: records, snapshots: snapshots, logger: logger}
}

// Recompute reads all of the wallet's records and replaces its snapshot.
// There is no incremental path: a recompute after a partial or repeated
// indexing run always converges on the same result.
func (e *Engine) Recompute(ctx context.Context, address string) (*models.StatsSnapshot, error) {
	records, err := e.records.ListByAddress(ctx, address)
	if err != nil {
		return nil, errors.NewAggregationError(address, err)
	}

	snapshot := Compute(address, records)
	snapshot.ComputedAt = time.Now().UTC()

	if err := e.snapshots.Upsert(ctx, snapshot); err != nil {
		return nil, errors.NewAggregationError(address, err)
	}

	e.logger.WithFields(map[string]interface{}{
		"address":   address,
		"txCount":   snapshot.TxCount,
		"volume":    snapshot.TotalVolume,
		"archetype": string(snapshot.Archetype),
	}).Info("recomputed wallet stats")

	return snapshot, nil
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Compute derives the full snapshot from a wallet's records. Records
// are expected newest first; ties for the biggest transaction go to the
// earlier position in that order. Compute has no side effects and does
// not consult the clock.
func Compute(address string, records []models.TransactionRecord) *models.StatsSnapshot {
	var (
		totalVolume  float64
		totalInflow  float64
		totalOutflow float64

		biggestHash   string
		biggestAmount float64

		dayCounts   = make(map[string]int)
		assetTotals = make(map[string]*models.AssetStat)
		interactors = make(map[string]int)
	)

	monthly := make([]models.MonthBucket, 12)
	for i, name := range monthNames {
		monthly[i] = models.MonthBucket{Month: name}
	}

	for _, rec := range records {
		day := rec.Timestamp.UTC().Format("2006-01-02")
		dayCounts[day]++
		monthly[rec.Timestamp.UTC().Month()-1].Count++

		for _, addr := range rec.InteractedWith {
			interactors[addr]++
		}

		// volume and flows cover every balance change in the
		// transaction, both legs of a transfer included
		var txVolume float64
		for _, bc := range rec.BalanceChanges {
			if bc.CoinType == "" {
				continue
			}
			amount, err := decimal.NewFromString(bc.Amount)
			if err != nil {
				continue
			}
			whole, _ := amount.Div(decimal.NewFromInt(types.BaseUnitScale)).Float64()
			abs := math.Abs(whole)

			symbol := types.CoinSymbol(bc.CoinType)
			stat, ok := assetTotals[symbol]
			if !ok {
				stat = &models.AssetStat{
					Symbol:   symbol,
					CoinType: bc.CoinType,
				}
				assetTotals[symbol] = stat
			}
			stat.Amount += abs
			stat.Count++

			if types.IsNativeCoinType(bc.CoinType) {
				txVolume += abs
				if whole > 0 {
					totalInflow += abs
				} else {
					totalOutflow += abs
				}
			}
		}

		totalVolume += txVolume
		if txVolume > biggestAmount {
			biggestAmount = txVolume
			biggestHash = rec.Digest
		}
	}

	peakDay, peakCount := peak(dayCounts)

	return &models.StatsSnapshot{
		UserAddress:        address,
		TxCount:            len(records),
		TotalVolume:        totalVolume,
		TotalInflow:        totalInflow,
		TotalOutflow:       totalOutflow,
		PeakDay:            peakDay,
		PeakDayCount:       peakCount,
		BiggestTxHash:      biggestHash,
		BiggestTxAmount:    biggestAmount,
		TopAssets:          topAssets(assetTotals, 5),
		TopInteractors:     topInteractors(interactors, 5),
		MonthlyActivity:    monthly,
		Archetype:          Classify(len(records), totalVolume, totalInflow, totalOutflow),
		RankPercentile:     RankPercentile(totalVolume),
		RecentTransactions: recentTransactions(address, records, 10),
	}
}

// firstNativeChange returns the transaction's first SUI balance change
// in whole tokens, signed, regardless of owner
func firstNativeChange(rec models.TransactionRecord) (float64, bool) {
	for _, bc := range rec.BalanceChanges {
		if !types.IsNativeCoinType(bc.CoinType) {
			continue
		}
		amount, err := decimal.NewFromString(bc.Amount)
		if err != nil {
			continue
		}
		whole, _ := amount.Div(decimal.NewFromInt(types.BaseUnitScale)).Float64()
		return whole, true
	}
	return 0, false
}

func peak(dayCounts map[string]int) (string, int) {
	var bestDay string
	var bestCount int
	days := make([]string, 0, len(dayCounts))
	for day := range dayCounts {
		days = append(days, day)
	}
	// deterministic tie-break on the date itself
	sort.Strings(days)
	for _, day := range days {
		if dayCounts[day] > bestCount {
			bestDay = day
			bestCount = dayCounts[day]
		}
	}
	return bestDay, bestCount
}

func topAssets(totals map[string]*models.AssetStat, n int) []models.AssetStat {
	assets := make([]models.AssetStat, 0, len(totals))
	for _, stat := range totals {
		assets = append(assets, *stat)
	}
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Amount != assets[j].Amount {
			return assets[i].Amount > assets[j].Amount
		}
		return assets[i].Symbol < assets[j].Symbol
	})
	if len(assets) > n {
		assets = assets[:n]
	}
	return assets
}

func topInteractors(counts map[string]int, n int) []models.InteractorStat {
	stats := make([]models.InteractorStat, 0, len(counts))
	for addr, count := range counts {
		stats = append(stats, models.InteractorStat{Address: addr, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Address < stats[j].Address
	})
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

func recentTransactions(address string, records []models.TransactionRecord, n int) []models.ReducedTransaction {
	if len(records) > n {
		records = records[:n]
	}
	out := make([]models.ReducedTransaction, 0, len(records))
	for _, rec := range records {
		direction := types.DirectionSend
		var amount float64
		if whole, ok := firstNativeChange(rec); ok {
			amount = math.Abs(whole)
			if whole >= 0 {
				direction = types.DirectionReceive
			}
		}

		counterparty := rec.Sender
		if rec.Sender == address {
			counterparty = "Unknown"
			if len(rec.InteractedWith) > 0 {
				counterparty = rec.InteractedWith[0]
			}
		}

		out = append(out, models.ReducedTransaction{
			Hash:         rec.Digest,
			Direction:    direction,
			Amount:       amount,
			Timestamp:    rec.Timestamp,
			Counterparty: counterparty,
		})
	}
	return out
}

// Classify assigns the wallet archetype. Rules apply in priority order;
// the first match wins.
func Classify(txCount int, volume, inflow, outflow float64) types.Archetype {
	switch {
	case volume > 100000:
		return types.ArchetypeWhale
	case txCount > 50 && volume < 1000:
		return types.ArchetypeDegen
	case inflow > outflow*1.5:
		return types.ArchetypeBanker
	case txCount < 5:
		return types.ArchetypeGhost
	default:
		return types.ArchetypeNormie
	}
}

// RankPercentile maps total volume to a 1..100 percentile claim. Higher
// volume produces a smaller (better) number, floored at 1.
func RankPercentile(volume float64) int {
	rank := math.Floor(100 - math.Log(volume+1)*5)
	if rank < 1 {
		return 1
	}
	return int(rank)
}
