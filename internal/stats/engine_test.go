package stats

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/storage"
	"github.com/sui-wrapped/internal/types"
)

var (
	wallet = types.NormalizeAddress("0xaaa")
	alice  = types.NormalizeAddress("0xa11ce")
	bob    = types.NormalizeAddress("0xb0b")
)

const usdcType = "0xdead::usdc::USDC"

// sampleRecords is a small history, newest first:
//   - d1: received 5 SUI from alice
//   - d2: sent 2 SUI to bob
//   - d3: received 1 USDC from alice, no SUI movement
func sampleRecords() []models.TransactionRecord {
	return []models.TransactionRecord{
		{
			Digest:         "d1",
			UserAddress:    wallet,
			Sender:         alice,
			Timestamp:      time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
			InteractedWith: []string{alice},
			BalanceChanges: []models.BalanceChange{
				{Amount: "5000000000", CoinType: types.NativeCoinType, Owner: wallet},
				{Amount: "-5000000000", CoinType: types.NativeCoinType, Owner: alice},
			},
		},
		{
			Digest:         "d2",
			UserAddress:    wallet,
			Sender:         wallet,
			Timestamp:      time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			InteractedWith: []string{bob},
			BalanceChanges: []models.BalanceChange{
				{Amount: "-2000000000", CoinType: types.NativeCoinType, Owner: wallet},
				{Amount: "2000000000", CoinType: types.NativeCoinType, Owner: bob},
			},
		},
		{
			Digest:         "d3",
			UserAddress:    wallet,
			Sender:         alice,
			Timestamp:      time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
			InteractedWith: []string{alice},
			BalanceChanges: []models.BalanceChange{
				{Amount: "1000000000", CoinType: usdcType, Owner: wallet},
			},
		},
	}
}

func TestComputeAggregates(t *testing.T) {
	s := Compute(wallet, sampleRecords())

	assert.Equal(t, 3, s.TxCount)
	// both legs of each transfer count: d1 is |+5|+|-5|, d2 is |-2|+|+2|
	assert.InDelta(t, 14.0, s.TotalVolume, 1e-9)
	assert.InDelta(t, 7.0, s.TotalInflow, 1e-9)
	assert.InDelta(t, 7.0, s.TotalOutflow, 1e-9)

	assert.Equal(t, "d1", s.BiggestTxHash)
	assert.InDelta(t, 10.0, s.BiggestTxAmount, 1e-9)

	assert.Equal(t, "2024-03-10", s.PeakDay)
	assert.Equal(t, 2, s.PeakDayCount)

	require.Len(t, s.TopAssets, 2)
	assert.Equal(t, "SUI", s.TopAssets[0].Symbol)
	assert.InDelta(t, 14.0, s.TopAssets[0].Amount, 1e-9)
	assert.Equal(t, 4, s.TopAssets[0].Count)
	assert.Equal(t, "USDC", s.TopAssets[1].Symbol)

	require.Len(t, s.TopInteractors, 2)
	assert.Equal(t, models.InteractorStat{Address: alice, Count: 2}, s.TopInteractors[0])
	assert.Equal(t, models.InteractorStat{Address: bob, Count: 1}, s.TopInteractors[1])

	require.Len(t, s.MonthlyActivity, 12)
	assert.Equal(t, 1, s.MonthlyActivity[0].Count) // Jan
	assert.Equal(t, 2, s.MonthlyActivity[2].Count) // Mar
	assert.Equal(t, "Jan", s.MonthlyActivity[0].Month)
	assert.Equal(t, "Dec", s.MonthlyActivity[11].Month)

	// balanced flows and 3 transactions
	assert.Equal(t, types.ArchetypeGhost, s.Archetype)

	require.Len(t, s.RecentTransactions, 3)
	assert.Equal(t, types.DirectionReceive, s.RecentTransactions[0].Direction)
	assert.InDelta(t, 5.0, s.RecentTransactions[0].Amount, 1e-9)
	assert.Equal(t, alice, s.RecentTransactions[0].Counterparty)
	assert.Equal(t, types.DirectionSend, s.RecentTransactions[1].Direction)
	assert.Equal(t, bob, s.RecentTransactions[1].Counterparty)
}

func TestComputeCountsBothTransferLegs(t *testing.T) {
	// a send is never a wash: the debit and the credit both count,
	// and gas makes the legs unequal
	records := []models.TransactionRecord{
		{
			Digest:         "d1",
			UserAddress:    wallet,
			Sender:         wallet,
			Timestamp:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			InteractedWith: []string{alice},
			BalanceChanges: []models.BalanceChange{
				{Amount: "-5000000000", CoinType: types.NativeCoinType, Owner: wallet},
				{Amount: "4900000000", CoinType: types.NativeCoinType, Owner: alice},
			},
		},
	}

	s := Compute(wallet, records)

	assert.InDelta(t, 9.9, s.TotalVolume, 1e-9)
	assert.InDelta(t, 4.9, s.TotalInflow, 1e-9)
	assert.InDelta(t, 5.0, s.TotalOutflow, 1e-9)
	assert.Equal(t, "d1", s.BiggestTxHash)
	assert.InDelta(t, 9.9, s.BiggestTxAmount, 1e-9)

	require.Len(t, s.TopAssets, 1)
	assert.Equal(t, "SUI", s.TopAssets[0].Symbol)
	assert.InDelta(t, 9.9, s.TopAssets[0].Amount, 1e-9)
	assert.Equal(t, 2, s.TopAssets[0].Count)
}

func TestRecentTransactionsUnknownCounterparty(t *testing.T) {
	// a self-send with no interactors has nobody to name
	records := []models.TransactionRecord{
		{
			Digest:      "d1",
			UserAddress: wallet,
			Sender:      wallet,
			Timestamp:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			BalanceChanges: []models.BalanceChange{
				{Amount: "-1000000000", CoinType: types.NativeCoinType, Owner: wallet},
			},
		},
	}

	s := Compute(wallet, records)

	require.Len(t, s.RecentTransactions, 1)
	assert.Equal(t, "Unknown", s.RecentTransactions[0].Counterparty)
	assert.Equal(t, types.DirectionSend, s.RecentTransactions[0].Direction)
	assert.InDelta(t, 1.0, s.RecentTransactions[0].Amount, 1e-9)
}

func TestComputeIsPure(t *testing.T) {
	records := sampleRecords()
	before := sampleRecords()

	first := Compute(wallet, records)
	second := Compute(wallet, records)

	assert.Equal(t, first, second, "same input must give the same snapshot")
	if !reflect.DeepEqual(records, before) {
		t.Error("Compute() mutated its input records")
	}
}

func TestComputeEmptyWallet(t *testing.T) {
	s := Compute(wallet, nil)

	assert.Equal(t, 0, s.TxCount)
	assert.Zero(t, s.TotalVolume)
	assert.Zero(t, s.TotalInflow)
	assert.Zero(t, s.TotalOutflow)
	assert.Empty(t, s.TopAssets)
	assert.Empty(t, s.TopInteractors)
	assert.Empty(t, s.RecentTransactions)
	assert.Equal(t, "", s.PeakDay)
	assert.Equal(t, types.ArchetypeGhost, s.Archetype)
	assert.Equal(t, 100, s.RankPercentile)

	require.Len(t, s.MonthlyActivity, 12)
	for _, bucket := range s.MonthlyActivity {
		assert.Zero(t, bucket.Count)
	}
}

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name    string
		txCount int
		volume  float64
		inflow  float64
		outflow float64
		want    types.Archetype
	}{
		{"whale wins over ghost at low tx count", 3, 150000, 0, 150000, types.ArchetypeWhale},
		{"whale wins over degen", 60, 200000, 100000, 100000, types.ArchetypeWhale},
		{"degen needs high count and low volume", 51, 999, 500, 499, types.ArchetypeDegen},
		{"banker on strong net inflow", 10, 5000, 4000, 1000, types.ArchetypeBanker},
		{"banker wins over ghost", 2, 100, 90, 10, types.ArchetypeBanker},
		{"ghost on few transactions", 4, 10, 5, 5, types.ArchetypeGhost},
		{"normie otherwise", 20, 5000, 2000, 3000, types.ArchetypeNormie},
		{"empty wallet is a ghost", 0, 0, 0, 0, types.ArchetypeGhost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.txCount, tt.volume, tt.inflow, tt.outflow)
			if got != tt.want {
				t.Errorf("Classify(%d, %v, %v, %v) = %q, want %q",
					tt.txCount, tt.volume, tt.inflow, tt.outflow, got, tt.want)
			}
		})
	}
}

func TestRankPercentile(t *testing.T) {
	if got := RankPercentile(0); got != 100 {
		t.Errorf("RankPercentile(0) = %d, want 100", got)
	}

	// strictly better rank for strictly more volume, floored at 1
	prev := 101
	for _, volume := range []float64{0, 10, 1000, 100000, 1e9, 1e12} {
		got := RankPercentile(volume)
		if got > prev {
			t.Errorf("RankPercentile(%v) = %d, not monotonically improving (prev %d)", volume, got, prev)
		}
		if got < 1 {
			t.Errorf("RankPercentile(%v) = %d, below floor of 1", volume, got)
		}
		prev = got
	}

	// enormous volume pins to the floor
	if got := RankPercentile(1e30); got != 1 {
		t.Errorf("RankPercentile(1e30) = %d, want 1", got)
	}
}

func TestRecomputePersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	txRepo := storage.NewMemoryTransactionRepository()
	statsRepo := storage.NewMemoryStatsRepository()

	require.NoError(t, txRepo.InsertBatch(ctx, sampleRecords()))

	engine := NewEngine(txRepo, statsRepo, logging.NewLogger(logging.LevelError, logging.FormatText))
	snapshot, err := engine.Recompute(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.TxCount)
	assert.False(t, snapshot.ComputedAt.IsZero())

	stored, err := statsRepo.Get(ctx, wallet)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snapshot.TxCount, stored.TxCount)
	assert.Equal(t, snapshot.Archetype, stored.Archetype)
}
