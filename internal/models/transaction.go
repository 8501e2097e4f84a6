package models

import "time"

// BalanceChange represents a single asset movement inside a transaction.
// Amount is a signed base-unit integer kept as a decimal string; values
// routinely exceed int64 range.
type BalanceChange struct {
	Amount   string `json:"amount"`
	CoinType string `json:"coinType"`
	Owner    string `json:"owner"`
}

// TransactionRecord represents one indexed transaction from the wallet's
// point of view. Digest is globally unique and is the dedup key.
type TransactionRecord struct {
	Digest         string          `json:"digest"`
	UserAddress    string          `json:"userAddress"`
	Sender         string          `json:"sender"`
	Timestamp      time.Time       `json:"timestamp"`
	InteractedWith []string        `json:"interactedWith"`
	BalanceChanges []BalanceChange `json:"balanceChanges"`
}
