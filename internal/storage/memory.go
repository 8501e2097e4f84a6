package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sui-wrapped/internal/models"
)

// MemoryWalletRepository is an in-memory wallet store for tests
type MemoryWalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*models.Wallet
}

// NewMemoryWalletRepository creates an empty in-memory wallet store
func NewMemoryWalletRepository() *MemoryWalletRepository {
	return &MemoryWalletRepository{wallets: make(map[string]*models.Wallet)}
}

// Get returns the wallet for an address, or nil when unknown
func (r *MemoryWalletRepository) Get(ctx context.Context, address string) (*models.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[address]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// Upsert inserts or resets the wallet to un-indexed
func (r *MemoryWalletRepository) Upsert(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if w, ok := r.wallets[address]; ok {
		w.IsIndexed = false
		w.UpdatedAt = now
		return nil
	}
	r.wallets[address] = &models.Wallet{
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// MarkIndexed flags the wallet as indexed at the given time
func (r *MemoryWalletRepository) MarkIndexed(ctx context.Context, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[address]
	if !ok {
		w = &models.Wallet{Address: address, CreatedAt: at}
		r.wallets[address] = w
	}
	w.IsIndexed = true
	w.LastIndexedAt = &at
	w.UpdatedAt = at
	return nil
}

// MemoryTransactionRepository is an in-memory record store for tests
type MemoryTransactionRepository struct {
	mu      sync.RWMutex
	records map[string]map[string]models.TransactionRecord // address -> digest -> record
}

// NewMemoryTransactionRepository creates an empty in-memory record store
func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{records: make(map[string]map[string]models.TransactionRecord)}
}

// InsertBatch stores records, skipping digests already present for the wallet
func (r *MemoryTransactionRepository) InsertBatch(ctx context.Context, records []models.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		byDigest, ok := r.records[rec.UserAddress]
		if !ok {
			byDigest = make(map[string]models.TransactionRecord)
			r.records[rec.UserAddress] = byDigest
		}
		if _, exists := byDigest[rec.Digest]; exists {
			continue
		}
		byDigest[rec.Digest] = rec
	}
	return nil
}

// ListByAddress returns all records for a wallet, newest first
func (r *MemoryTransactionRepository) ListByAddress(ctx context.Context, address string) ([]models.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.TransactionRecord
	for _, rec := range r.records[address] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// CountByAddress returns how many records are stored for a wallet
func (r *MemoryTransactionRepository) CountByAddress(ctx context.Context, address string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records[address]), nil
}

// MemoryStatsRepository is an in-memory snapshot store for tests
type MemoryStatsRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*models.StatsSnapshot
}

// NewMemoryStatsRepository creates an empty in-memory snapshot store
func NewMemoryStatsRepository() *MemoryStatsRepository {
	return &MemoryStatsRepository{snapshots: make(map[string]*models.StatsSnapshot)}
}

// Upsert replaces the wallet's snapshot
func (r *MemoryStatsRepository) Upsert(ctx context.Context, snapshot *models.StatsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *snapshot
	r.snapshots[snapshot.UserAddress] = &cp
	return nil
}

// Get returns the wallet's snapshot, or nil when none exists
func (r *MemoryStatsRepository) Get(ctx context.Context, address string) (*models.StatsSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[address]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}
