package indexer

import (
	"context"

	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/types"
)

// SnapshotReader reads persisted stats snapshots
type SnapshotReader interface {
	Get(ctx context.Context, address string) (*models.StatsSnapshot, error)
}

// StatusResult is the answer to one status poll
type StatusResult struct {
	Status   types.IndexingStatus  `json:"status"`
	Snapshot *models.StatsSnapshot `json:"data,omitempty"`
}

// StatusService answers the polling status query and kicks off indexing
// for wallets that need it
type StatusService struct {
	wallets   WalletStore
	snapshots SnapshotReader
	cache     SnapshotCache // may be nil
	pipeline  *Pipeline
	logger    *logging.Logger
}

// NewStatusService creates a status service bound to a pipeline
func NewStatusService(wallets WalletStore, snapshots SnapshotReader,
	cache SnapshotCache, pipeline *Pipeline, logger *logging.Logger) *StatusService {
	return &StatusService{
		wallets:   wallets,
		snapshots: snapshots,
		cache:     cache,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// CheckStatus reports where the wallet is in its indexing lifecycle.
// Unknown and un-indexed wallets get a pipeline started in the
// background and report INDEXING; the client polls until COMPLETED.
// A wallet stuck un-indexed with no live run (the process restarted
// mid-pipeline) is re-triggered the same way.
func (s *StatusService) CheckStatus(ctx context.Context, address string) (*StatusResult, error) {
	if err := types.ValidateAddress(address); err != nil {
		return nil, err
	}
	addr := types.NormalizeAddress(address)

	wallet, err := s.wallets.Get(ctx, addr)
	if err != nil {
		s.logger.WithError(err).Error("status query failed reading wallet")
		return &StatusResult{Status: types.StatusError}, nil
	}

	if wallet == nil || !wallet.IsIndexed {
		s.startIndexing(addr)
		return &StatusResult{Status: types.StatusIndexing}, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, addr); err == nil && cached != nil {
			return &StatusResult{Status: types.StatusCompleted, Snapshot: cached}, nil
		}
	}

	snapshot, err := s.snapshots.Get(ctx, addr)
	if err != nil {
		s.logger.WithError(err).Error("status query failed reading snapshot")
		return &StatusResult{Status: types.StatusError}, nil
	}
	if snapshot == nil {
		// indexed flag without a snapshot should not happen; reindex
		s.startIndexing(addr)
		return &StatusResult{Status: types.StatusIndexing}, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshot); err != nil {
			s.logger.WithError(err).Warn("snapshot cache write failed")
		}
	}
	return &StatusResult{Status: types.StatusCompleted, Snapshot: snapshot}, nil
}

// startIndexing fires the pipeline in the background. The pipeline's
// own per-address guard collapses concurrent triggers into one run.
func (s *StatusService) startIndexing(address string) {
	go func() {
		// detached from the request: the run outlives the poll
		if err := s.pipeline.Run(context.Background(), address); err != nil {
			s.logger.WithError(err).WithField("address", address).Error("background indexing failed")
		}
	}()
}
