package indexer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/types"
)

func newStatusEnv(f PageFetcher) (*StatusService, *testEnv) {
	env := newTestEnv(f, 200)
	svc := NewStatusService(env.wallets, env.statsRep, nil, env.pipeline, testLogger())
	return svc, env
}

func waitForIndexed(t *testing.T, env *testEnv, address string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w, _ := env.wallets.Get(context.Background(), address)
		if w != nil && w.IsIndexed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("wallet never became indexed")
}

func TestCheckStatusUnknownWalletStartsIndexing(t *testing.T) {
	svc, env := newStatusEnv(&scriptedFetcher{})
	ctx := context.Background()

	result, err := svc.CheckStatus(ctx, testWallet)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if result.Status != types.StatusIndexing {
		t.Fatalf("Status = %q, want INDEXING", result.Status)
	}
	if result.Snapshot != nil {
		t.Error("INDEXING result must carry no snapshot")
	}

	// fire-and-forget pipeline completes in the background
	waitForIndexed(t, env, testWallet)

	result, err = svc.CheckStatus(ctx, testWallet)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if result.Status != types.StatusCompleted {
		t.Errorf("Status after indexing = %q, want COMPLETED", result.Status)
	}
	if result.Snapshot == nil || result.Snapshot.Archetype != types.ArchetypeGhost {
		t.Errorf("Snapshot = %+v, want empty-wallet snapshot", result.Snapshot)
	}
}

func TestCheckStatusCompletedWallet(t *testing.T) {
	svc, env := newStatusEnv(&scriptedFetcher{})
	ctx := context.Background()

	env.wallets.Upsert(ctx, testWallet)
	env.wallets.MarkIndexed(ctx, testWallet, time.Now().UTC())
	env.statsRep.Upsert(ctx, &models.StatsSnapshot{
		UserAddress: testWallet,
		TxCount:     12,
		Archetype:   types.ArchetypeNormie,
	})

	result, err := svc.CheckStatus(ctx, testWallet)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if result.Status != types.StatusCompleted {
		t.Errorf("Status = %q, want COMPLETED", result.Status)
	}
	if result.Snapshot == nil || result.Snapshot.TxCount != 12 {
		t.Errorf("Snapshot = %+v, want stored snapshot", result.Snapshot)
	}
}

func TestCheckStatusInvalidAddress(t *testing.T) {
	svc, _ := newStatusEnv(&scriptedFetcher{})

	for _, addr := range []string{"", "0xZZZ", "not-an-address"} {
		if _, err := svc.CheckStatus(context.Background(), addr); err == nil {
			t.Errorf("CheckStatus(%q) expected error", addr)
		}
	}
}

type failingWalletStore struct{}

func (failingWalletStore) Get(ctx context.Context, address string) (*models.Wallet, error) {
	return nil, fmt.Errorf("connection lost")
}
func (failingWalletStore) Upsert(ctx context.Context, address string) error {
	return fmt.Errorf("connection lost")
}
func (failingWalletStore) MarkIndexed(ctx context.Context, address string, at time.Time) error {
	return fmt.Errorf("connection lost")
}

func TestCheckStatusStorageFailure(t *testing.T) {
	env := newTestEnv(&scriptedFetcher{}, 200)
	svc := NewStatusService(failingWalletStore{}, env.statsRep, nil, env.pipeline, testLogger())

	result, err := svc.CheckStatus(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v, storage faults map to status", err)
	}
	if result.Status != types.StatusError {
		t.Errorf("Status = %q, want ERROR", result.Status)
	}
}

func TestCheckStatusReindexesWhenSnapshotMissing(t *testing.T) {
	svc, env := newStatusEnv(&scriptedFetcher{})
	ctx := context.Background()

	// indexed flag without a snapshot (e.g. a manual cleanup)
	env.wallets.Upsert(ctx, testWallet)
	env.wallets.MarkIndexed(ctx, testWallet, time.Now().UTC())

	result, err := svc.CheckStatus(ctx, testWallet)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if result.Status != types.StatusIndexing {
		t.Errorf("Status = %q, want INDEXING re-trigger", result.Status)
	}

	// the wallet was already flagged indexed, so wait on the snapshot
	// the background run produces, not on the flag
	deadline := time.Now().Add(2 * time.Second)
	for {
		snapshot, _ := env.statsRep.Get(ctx, testWallet)
		if snapshot != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("re-triggered run produced no snapshot")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCheckStatusUsesCache(t *testing.T) {
	env := newTestEnv(&scriptedFetcher{}, 200)
	cache := &countingCache{data: make(map[string]*models.StatsSnapshot)}
	svc := NewStatusService(env.wallets, env.statsRep, cache, env.pipeline, testLogger())
	ctx := context.Background()

	env.wallets.Upsert(ctx, testWallet)
	env.wallets.MarkIndexed(ctx, testWallet, time.Now().UTC())
	env.statsRep.Upsert(ctx, &models.StatsSnapshot{UserAddress: testWallet, TxCount: 4})

	// first poll misses the cache and fills it
	result, err := svc.CheckStatus(ctx, testWallet)
	if err != nil || result.Status != types.StatusCompleted {
		t.Fatalf("CheckStatus() = (%+v, %v)", result, err)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}

	// second poll is served from the cache
	if _, err := svc.CheckStatus(ctx, testWallet); err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
}

type countingCache struct {
	data map[string]*models.StatsSnapshot
	hits int
	sets int
}

func (c *countingCache) Get(ctx context.Context, address string) (*models.StatsSnapshot, error) {
	if s, ok := c.data[address]; ok {
		c.hits++
		return s, nil
	}
	return nil, nil
}

func (c *countingCache) Set(ctx context.Context, snapshot *models.StatsSnapshot) error {
	c.sets++
	c.data[snapshot.UserAddress] = snapshot
	return nil
}

func (c *countingCache) Invalidate(ctx context.Context, address string) error {
	delete(c.data, address)
	return nil
}
