// Package types provides common type definitions for the wallet wrapped service.
package types

import (
	"fmt"
	"strings"
)

// AddressLength is the hex length of a normalized Sui address (32 bytes).
const AddressLength = 64

// IndexingStatus represents the lifecycle state of a wallet's index
type IndexingStatus string

const (
	// StatusIdle represents a wallet that has never been indexed
	StatusIdle IndexingStatus = "IDLE"
	// StatusIndexing represents a wallet whose pipeline is (or should be) running
	StatusIndexing IndexingStatus = "INDEXING"
	// StatusCompleted represents a wallet with a computed stats snapshot
	StatusCompleted IndexingStatus = "COMPLETED"
	// StatusError represents a failure answering the status query itself
	StatusError IndexingStatus = "ERROR"
)

// TransactionDirection represents whether value moved into or out of the wallet
type TransactionDirection string

const (
	// DirectionSend represents an outgoing native-asset movement
	DirectionSend TransactionDirection = "SEND"
	// DirectionReceive represents an incoming native-asset movement
	DirectionReceive TransactionDirection = "RECEIVE"
)

// Archetype represents the behavioral classification of a wallet
type Archetype string

const (
	// ArchetypeWhale is assigned to wallets whose total volume moves markets
	ArchetypeWhale Archetype = "Sui Whale 🐋"
	// ArchetypeDegen is assigned to high-frequency, low-volume wallets
	ArchetypeDegen Archetype = "Sui Degen 🎰"
	// ArchetypeBanker is assigned to wallets with strategic net inflows
	ArchetypeBanker Archetype = "Sui Banker 🏦"
	// ArchetypeGhost is assigned to wallets with almost no activity
	ArchetypeGhost Archetype = "Ghost Chain 👻"
	// ArchetypeNormie is the default classification
	ArchetypeNormie Archetype = "Sui Normie 🙂"
)

// NativeCoinType is the canonical type string of the chain's base asset.
const NativeCoinType = "0x2::sui::SUI"

// NativeSymbol is the display symbol of the chain's base asset.
const NativeSymbol = "SUI"

// BaseUnitScale is the number of base units per whole native token (MIST per SUI).
const BaseUnitScale = 1e9

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NormalizeAddress canonicalizes a Sui address to 0x + 64 lowercase hex chars.
// Short addresses are left-padded with zeros. Normalization is idempotent:
// normalizing an already-normalized address returns it unchanged.
func NormalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}
	clean := strings.TrimPrefix(addr, "0x")
	clean = strings.TrimPrefix(clean, "0X")
	clean = strings.ToLower(clean)
	if len(clean) < AddressLength {
		clean = strings.Repeat("0", AddressLength-len(clean)) + clean
	}
	return "0x" + clean
}

// IsValidAddress reports whether addr normalizes to a well-formed Sui address
func IsValidAddress(addr string) bool {
	if addr == "" {
		return false
	}
	clean := strings.TrimPrefix(addr, "0x")
	clean = strings.TrimPrefix(clean, "0X")
	if len(clean) == 0 || len(clean) > AddressLength {
		return false
	}
	for _, c := range clean {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// ValidateAddress returns a descriptive error for malformed addresses
func ValidateAddress(addr string) error {
	if !IsValidAddress(addr) {
		return fmt.Errorf("invalid address format: %q", addr)
	}
	return nil
}

// IsNativeCoinType reports whether a coin type string denotes the native asset.
// Matches the canonical short form and any fully-qualified package alias.
func IsNativeCoinType(coinType string) bool {
	return coinType == NativeCoinType || strings.HasSuffix(coinType, "::sui::SUI")
}

// CoinSymbol derives a display symbol from a coin type string.
// The native asset maps to SUI; other types use their trailing segment.
func CoinSymbol(coinType string) string {
	if IsNativeCoinType(coinType) {
		return NativeSymbol
	}
	if coinType == "" {
		return "Unknown"
	}
	parts := strings.Split(coinType, "::")
	last := parts[len(parts)-1]
	if last == "" {
		return "Unknown"
	}
	return last
}
