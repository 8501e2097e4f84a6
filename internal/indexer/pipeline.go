// Package indexer drives the per-wallet indexing pipeline and answers
// the polling status query.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/sui-wrapped/internal/fetcher"
	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/types"
)

// WalletStore is the wallet state the pipeline needs
type WalletStore interface {
	Get(ctx context.Context, address string) (*models.Wallet, error)
	Upsert(ctx context.Context, address string) error
	MarkIndexed(ctx context.Context, address string, at time.Time) error
}

// RecordStore persists fetched records
type RecordStore interface {
	InsertBatch(ctx context.Context, records []models.TransactionRecord) error
}

// PageFetcher pages through a wallet's history
type PageFetcher interface {
	FetchPage(ctx context.Context, address string, cursor *string) (*fetcher.Page, error)
}

// Recomputer rebuilds the wallet's stats snapshot from stored records
type Recomputer interface {
	Recompute(ctx context.Context, address string) (*models.StatsSnapshot, error)
}

// SnapshotCache is the optional read-through cache in front of snapshots
type SnapshotCache interface {
	Get(ctx context.Context, address string) (*models.StatsSnapshot, error)
	Set(ctx context.Context, snapshot *models.StatsSnapshot) error
	Invalidate(ctx context.Context, address string) error
}

// Pipeline indexes one wallet at a time per address: fetch pages
// sequentially, persist them, then recompute stats and mark the wallet
// indexed. Every step is idempotent, so an aborted run is simply rerun.
type Pipeline struct {
	wallets    WalletStore
	records    RecordStore
	fetcher    PageFetcher
	stats      Recomputer
	cache      SnapshotCache // may be nil
	maxRecords int
	logger     *logging.Logger

	mu   sync.Mutex
	live map[string]bool
}

// NewPipeline creates an indexing pipeline
func NewPipeline(wallets WalletStore, records RecordStore, pageFetcher PageFetcher,
	stats Recomputer, cache SnapshotCache, maxRecords int, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		wallets:    wallets,
		records:    records,
		fetcher:    pageFetcher,
		stats:      stats,
		cache:      cache,
		maxRecords: maxRecords,
		logger:     logger,
		live:       make(map[string]bool),
	}
}

// tryAcquire marks the address as having a live run. Returns false when
// one is already running, so concurrent status queries cannot spawn
// duplicate pipelines.
func (p *Pipeline) tryAcquire(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live[address] {
		return false
	}
	p.live[address] = true
	return true
}

func (p *Pipeline) release(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, address)
}

// IsRunning reports whether the address has a live pipeline run
func (p *Pipeline) IsRunning(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live[types.NormalizeAddress(address)]
}

// Run indexes the wallet's full history. On any error the run logs and
// aborts without marking completion; the wallet stays un-indexed and a
// later status query triggers a fresh run.
func (p *Pipeline) Run(ctx context.Context, address string) error {
	addr := types.NormalizeAddress(address)
	if !p.tryAcquire(addr) {
		p.logger.WithField("address", addr).Debug("pipeline already running, skipping")
		return nil
	}
	defer p.release(addr)

	log := p.logger.WithField("address", addr)
	log.Info("indexing started")

	if err := p.wallets.Upsert(ctx, addr); err != nil {
		log.WithError(err).Error("indexing aborted: wallet upsert failed")
		return err
	}

	total := 0
	var cursor *string
	for {
		page, err := p.fetcher.FetchPage(ctx, addr, cursor)
		if err != nil {
			log.WithError(err).Error("indexing aborted: page fetch failed")
			return err
		}
		if len(page.Records) == 0 {
			break
		}

		records := page.Records
		if total+len(records) > p.maxRecords {
			records = records[:p.maxRecords-total]
		}
		if err := p.records.InsertBatch(ctx, records); err != nil {
			log.WithError(err).Error("indexing aborted: record insert failed")
			return err
		}
		total += len(records)

		if total >= p.maxRecords || !page.HasMore || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	snapshot, err := p.stats.Recompute(ctx, addr)
	if err != nil {
		log.WithError(err).Error("indexing aborted: stats recompute failed")
		return err
	}
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, addr); err != nil {
			log.WithError(err).Warn("snapshot cache invalidation failed")
		}
	}

	if err := p.wallets.MarkIndexed(ctx, addr, time.Now().UTC()); err != nil {
		log.WithError(err).Error("indexing aborted: wallet completion failed")
		return err
	}

	log.WithFields(map[string]interface{}{
		"records":   total,
		"archetype": string(snapshot.Archetype),
	}).Info("indexing completed")
	return nil
}
