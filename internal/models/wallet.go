// Package models defines the persisted entities of the wrapped service.
package models

import "time"

// Wallet represents a tracked wallet and its indexing state
type Wallet struct {
	Address       string     `json:"address"`
	IsIndexed     bool       `json:"isIndexed"`
	LastIndexedAt *time.Time `json:"lastIndexedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
