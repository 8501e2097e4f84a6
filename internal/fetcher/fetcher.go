// Package fetcher turns raw chain transactions into normalized records.
package fetcher

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/models"
	"github.com/sui-wrapped/internal/rpc"
	"github.com/sui-wrapped/internal/types"
)

// HistoryClient is the slice of the RPC client the fetcher needs
type HistoryClient interface {
	QueryTransactionPage(ctx context.Context, address string, cursor *string, limit int) (*rpc.TransactionPage, error)
}

// Page is one fetched and normalized slice of a wallet's history
type Page struct {
	Records    []models.TransactionRecord
	NextCursor *string
	HasMore    bool
}

// Fetcher pages through a wallet's transaction history
type Fetcher struct {
	client   HistoryClient
	pageSize int
	logger   *logging.Logger
}

// NewFetcher creates a fetcher with the given page size
func NewFetcher(client HistoryClient, pageSize int, logger *logging.Logger) *Fetcher {
	return &Fetcher{client: client, pageSize: pageSize, logger: logger}
}

// FetchPage fetches one page of history starting at cursor (nil for the
// newest transactions) and normalizes every transaction in it
func (f *Fetcher) FetchPage(ctx context.Context, address string, cursor *string) (*Page, error) {
	userAddr := types.NormalizeAddress(address)

	raw, err := f.client.QueryTransactionPage(ctx, userAddr, cursor, f.pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]models.TransactionRecord, 0, len(raw.Data))
	for _, block := range raw.Data {
		records = append(records, normalizeBlock(userAddr, block))
	}

	f.logger.WithFields(map[string]interface{}{
		"address": userAddr,
		"records": len(records),
		"hasMore": raw.HasNextPage,
	}).Debug("fetched history page")

	return &Page{
		Records:    records,
		NextCursor: raw.NextCursor,
		HasMore:    raw.HasNextPage,
	}, nil
}

func normalizeBlock(userAddr string, block rpc.TransactionBlock) models.TransactionRecord {
	sender := types.NormalizeAddress(block.Sender())

	changes := make([]models.BalanceChange, 0, len(block.BalanceChanges))
	for _, bc := range block.BalanceChanges {
		changes = append(changes, models.BalanceChange{
			Amount:   bc.Amount,
			CoinType: bc.CoinType,
			Owner:    types.NormalizeAddress(bc.Owner.AddressOwner),
		})
	}

	return models.TransactionRecord{
		Digest:         block.Digest,
		UserAddress:    userAddr,
		Sender:         sender,
		Timestamp:      parseTimestamp(block.TimestampMs),
		InteractedWith: extractInteractors(userAddr, sender, changes),
		BalanceChanges: changes,
	}
}

// parseTimestamp converts a millisecond string to a time, falling back
// to now for transactions the node reports without a checkpoint time
func parseTimestamp(ms string) time.Time {
	if ms == "" {
		return time.Now().UTC()
	}
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.UnixMilli(v).UTC()
}

// extractInteractors derives the counterparty set for one transaction.
// When the wallet received, the counterparty is whoever sent. When the
// wallet sent, the counterparties are the distinct recipients, meaning
// owners of strictly positive balance changes other than the wallet.
// A transaction without a sender yields no counterparties at all.
func extractInteractors(userAddr, sender string, changes []models.BalanceChange) []string {
	if sender == "" {
		return nil
	}
	if sender != userAddr {
		return []string{sender}
	}

	seen := make(map[string]bool)
	var interactors []string
	for _, bc := range changes {
		if bc.Owner == "" || bc.Owner == userAddr || seen[bc.Owner] {
			continue
		}
		amount, err := decimal.NewFromString(bc.Amount)
		if err != nil || !amount.IsPositive() {
			continue
		}
		seen[bc.Owner] = true
		interactors = append(interactors, bc.Owner)
	}
	return interactors
}
