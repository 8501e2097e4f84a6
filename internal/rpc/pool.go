// Package rpc provides a resilient JSON-RPC client over a pool of
// public fullnode endpoints with rotation and backoff.
package rpc

import (
	"strings"
	"sync"

	"github.com/sui-wrapped/internal/errors"
)

// EndpointPool holds an ordered list of RPC endpoint URLs and a cursor
// into it. The cursor is a load-balancing hint shared by all callers;
// it is not correctness critical.
type EndpointPool struct {
	mu        sync.RWMutex
	endpoints []string
	current   int
}

// NewEndpointPool builds a pool from the given URLs. Blank entries are
// dropped and duplicates removed while preserving order. An empty list
// after filtering is a configuration error.
func NewEndpointPool(urls []string) (*EndpointPool, error) {
	seen := make(map[string]bool)
	var endpoints []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		endpoints = append(endpoints, u)
	}

	if len(endpoints) == 0 {
		return nil, errors.NewConfigError("endpoint pool requires at least one RPC URL")
	}

	return &EndpointPool{endpoints: endpoints}, nil
}

// Current returns the endpoint the cursor points at
func (p *EndpointPool) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.endpoints[p.current]
}

// CurrentIndex returns the cursor position
func (p *EndpointPool) CurrentIndex() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Advance moves the cursor to the next endpoint, wrapping around, and
// returns the new endpoint
func (p *EndpointPool) Advance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = (p.current + 1) % len(p.endpoints)
	return p.endpoints[p.current]
}

// Reset moves the cursor back to the given index
func (p *EndpointPool) Reset(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.endpoints) {
		p.current = index
	}
}

// Size returns the number of endpoints in the pool
func (p *EndpointPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}

// Endpoints returns a copy of the endpoint list
func (p *EndpointPool) Endpoints() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}
