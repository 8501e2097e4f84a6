package models

import (
	"time"

	"github.com/sui-wrapped/internal/types"
)

// AssetStat represents one asset's aggregate movement through the wallet
type AssetStat struct {
	Symbol   string  `json:"symbol"`
	CoinType string  `json:"coinType"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// InteractorStat represents how often a counterparty appeared
type InteractorStat struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

// MonthBucket represents transaction counts for one calendar month
type MonthBucket struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ReducedTransaction is the compact per-transaction view kept on a snapshot
type ReducedTransaction struct {
	Hash         string                     `json:"hash"`
	Direction    types.TransactionDirection `json:"direction"`
	Amount       float64                    `json:"amount"`
	Timestamp    time.Time                  `json:"timestamp"`
	Counterparty string                     `json:"counterparty"`
}

// StatsSnapshot is the derived year-in-review aggregate for one wallet.
// It is recomputed in full from the wallet's records; there is no
// incremental update path.
type StatsSnapshot struct {
	UserAddress        string               `json:"userAddress"`
	TxCount            int                  `json:"txCount"`
	TotalVolume        float64              `json:"totalVolume"`
	TotalInflow        float64              `json:"totalInflow"`
	TotalOutflow       float64              `json:"totalOutflow"`
	PeakDay            string               `json:"peakDay"`
	PeakDayCount       int                  `json:"peakDayCount"`
	BiggestTxHash      string               `json:"biggestTxHash"`
	BiggestTxAmount    float64              `json:"biggestTxAmount"`
	TopAssets          []AssetStat          `json:"topAssets"`
	TopInteractors     []InteractorStat     `json:"topInteractors"`
	MonthlyActivity    []MonthBucket        `json:"monthlyActivity"`
	Archetype          types.Archetype      `json:"archetype"`
	RankPercentile     int                  `json:"rankPercentile"`
	RecentTransactions []ReducedTransaction `json:"recentTransactions"`
	ComputedAt         time.Time            `json:"computedAt"`
}
