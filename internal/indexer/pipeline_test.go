package indexer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sui-wrapped/internal/fetcher"
	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/stats"
	"github.com/sui-wrapped/internal/storage"
	"github.com/sui-wrapped/internal/types"
)

var testWallet = types.NormalizeAddress("0xfeed")

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

// scriptedFetcher serves predefined pages keyed by cursor ("" for nil)
type scriptedFetcher struct {
	pages map[string]*fetcher.Page
	err   error
	calls int
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, address string, cursor *string) (*fetcher.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key := ""
	if cursor != nil {
		key = *cursor
	}
	page, ok := f.pages[key]
	if !ok {
		return &fetcher.Page{}, nil
	}
	return page, nil
}

func makeRecords(prefix string, n int, ts time.Time) []models.TransactionRecord {
	records := make([]models.TransactionRecord, n)
	for i := range records {
		records[i] = models.TransactionRecord{
			Digest:      fmt.Sprintf("%s-%d", prefix, i),
			UserAddress: testWallet,
			Sender:      testWallet,
			Timestamp:   ts.Add(-time.Duration(i) * time.Minute),
			BalanceChanges: []models.BalanceChange{
				{Amount: "-1000000000", CoinType: types.NativeCoinType, Owner: testWallet},
			},
		}
	}
	return records
}

type testEnv struct {
	wallets  *storage.MemoryWalletRepository
	records  *storage.MemoryTransactionRepository
	statsRep *storage.MemoryStatsRepository
	pipeline *Pipeline
}

func newTestEnv(f PageFetcher, maxRecords int) *testEnv {
	wallets := storage.NewMemoryWalletRepository()
	records := storage.NewMemoryTransactionRepository()
	statsRepo := storage.NewMemoryStatsRepository()
	engine := stats.NewEngine(records, statsRepo, testLogger())
	return &testEnv{
		wallets:  wallets,
		records:  records,
		statsRep: statsRepo,
		pipeline: NewPipeline(wallets, records, f, engine, nil, maxRecords, testLogger()),
	}
}

func TestRunEmptyWallet(t *testing.T) {
	env := newTestEnv(&scriptedFetcher{}, 200)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx, testWallet); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	w, err := env.wallets.Get(ctx, testWallet)
	if err != nil || w == nil {
		t.Fatalf("wallet row missing after run: %v", err)
	}
	if !w.IsIndexed || w.LastIndexedAt == nil {
		t.Errorf("wallet not marked indexed: %+v", w)
	}

	snapshot, err := env.statsRep.Get(ctx, testWallet)
	if err != nil || snapshot == nil {
		t.Fatalf("snapshot missing after run: %v", err)
	}
	if snapshot.TxCount != 0 {
		t.Errorf("TxCount = %d, want 0", snapshot.TxCount)
	}
	if snapshot.TotalVolume != 0 {
		t.Errorf("TotalVolume = %v, want 0", snapshot.TotalVolume)
	}
	if snapshot.Archetype != types.ArchetypeGhost {
		t.Errorf("Archetype = %q, want ghost", snapshot.Archetype)
	}
	if len(snapshot.TopAssets) != 0 {
		t.Errorf("TopAssets = %v, want empty", snapshot.TopAssets)
	}
}

func TestRunPaginatesUntilCap(t *testing.T) {
	now := time.Now().UTC()
	c1, c2 := "cursor-1", "cursor-2"
	f := &scriptedFetcher{pages: map[string]*fetcher.Page{
		"": {Records: makeRecords("p0", 2, now), NextCursor: &c1, HasMore: true},
		c1: {Records: makeRecords("p1", 2, now.Add(-time.Hour)), NextCursor: &c2, HasMore: true},
		c2: {Records: makeRecords("p2", 2, now.Add(-2*time.Hour)), NextCursor: nil, HasMore: false},
	}}

	env := newTestEnv(f, 5)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx, testWallet); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	count, _ := env.records.CountByAddress(ctx, testWallet)
	if count != 5 {
		t.Errorf("stored records = %d, want safety cap 5", count)
	}
	// 3 pages requested: the cap trims the last one
	if f.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", f.calls)
	}

	w, _ := env.wallets.Get(ctx, testWallet)
	if w == nil || !w.IsIndexed {
		t.Error("wallet not marked indexed after capped run")
	}
}

func TestRunStopsWhenNoMorePages(t *testing.T) {
	now := time.Now().UTC()
	f := &scriptedFetcher{pages: map[string]*fetcher.Page{
		"": {Records: makeRecords("p0", 3, now), HasMore: false},
	}}

	env := newTestEnv(f, 200)
	if err := env.pipeline.Run(context.Background(), testWallet); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}
}

func TestRunIdempotentAcrossRuns(t *testing.T) {
	now := time.Now().UTC()
	f := &scriptedFetcher{pages: map[string]*fetcher.Page{
		"": {Records: makeRecords("p0", 3, now), HasMore: false},
	}}

	env := newTestEnv(f, 200)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := env.pipeline.Run(ctx, testWallet); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}

	count, _ := env.records.CountByAddress(ctx, testWallet)
	if count != 3 {
		t.Errorf("stored records after 3 runs = %d, want 3 (dedup on digest)", count)
	}

	snapshot, _ := env.statsRep.Get(ctx, testWallet)
	if snapshot == nil || snapshot.TxCount != 3 {
		t.Errorf("snapshot TxCount = %v, want 3", snapshot)
	}
}

func TestRunFetchErrorLeavesWalletUnindexed(t *testing.T) {
	f := &scriptedFetcher{err: fmt.Errorf("node unreachable")}
	env := newTestEnv(f, 200)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx, testWallet); err == nil {
		t.Fatal("Run() expected error")
	}

	w, _ := env.wallets.Get(ctx, testWallet)
	if w == nil {
		t.Fatal("wallet row should exist after aborted run")
	}
	if w.IsIndexed {
		t.Error("aborted run must not mark the wallet indexed")
	}
}

func TestRunGuardPreventsDuplicates(t *testing.T) {
	f := &scriptedFetcher{}
	env := newTestEnv(f, 200)

	// simulate a live run holding the guard
	if !env.pipeline.tryAcquire(testWallet) {
		t.Fatal("tryAcquire() on idle address = false")
	}
	if env.pipeline.tryAcquire(testWallet) {
		t.Fatal("tryAcquire() on live address = true, want false")
	}

	if err := env.pipeline.Run(context.Background(), testWallet); err != nil {
		t.Fatalf("Run() with live guard error = %v", err)
	}
	if f.calls != 0 {
		t.Errorf("guarded Run() fetched %d pages, want 0", f.calls)
	}

	env.pipeline.release(testWallet)
	if !env.pipeline.tryAcquire(testWallet) {
		t.Error("tryAcquire() after release = false")
	}
}

func TestRunNormalizesAddress(t *testing.T) {
	f := &scriptedFetcher{}
	env := newTestEnv(f, 200)
	ctx := context.Background()

	if err := env.pipeline.Run(ctx, "0xFEED"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	w, _ := env.wallets.Get(ctx, testWallet)
	if w == nil {
		t.Error("wallet stored under non-normalized address")
	}
}
