package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"

	"github.com/sui-wrapped/internal/config"
	"github.com/sui-wrapped/internal/errors"
	"github.com/sui-wrapped/internal/logging"
)

// Operation is a single RPC attempt against one endpoint. The client
// re-invokes it with a different endpoint when the previous one looks
// rate limited.
type Operation func(ctx context.Context, endpoint string) error

// Client executes operations against an endpoint pool with a shared
// concurrency limit, round-robin rotation on throttling and exponential
// backoff once a full pass has failed.
type Client struct {
	pool       *EndpointPool
	limiter    *semaphore.Weighted
	httpClient *http.Client
	logger     *logging.Logger

	backoffInitial time.Duration
	backoffMax     time.Duration
	backoffRounds  int

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error

	mu             sync.Mutex
	totalRequests  int64
	totalRotations int64
	lastReport     time.Time
}

// NewClient creates a client over the given pool using the RPC config
func NewClient(pool *EndpointPool, cfg config.RPCConfig, logger *logging.Logger) *Client {
	return &Client{
		pool:           pool,
		limiter:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		logger:         logger,
		backoffInitial: cfg.BackoffInitial,
		backoffMax:     cfg.BackoffMax,
		backoffRounds:  cfg.BackoffRounds,
		sleep:          sleepContext,
		lastReport:     time.Now(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs op against the pool. A rate-limit-class failure rotates
// to the next endpoint; any other failure propagates immediately. After
// one full failed pass the cursor is reset to where the pass started and
// the operation is retried with exponentially growing waits. When the
// backoff rounds run out the last error is wrapped as an exhaustion.
func (c *Client) Execute(ctx context.Context, op Operation) error {
	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.limiter.Release(1)

	startIndex := c.pool.CurrentIndex()

	var lastErr error
	for i := 0; i < c.pool.Size(); i++ {
		endpoint := c.pool.Current()
		err := c.attempt(ctx, op, endpoint)
		if err == nil {
			return nil
		}
		if !errors.IsRateLimit(err) {
			return err
		}
		lastErr = err
		c.rotate(endpoint)
	}

	wait := c.backoffInitial
	for round := 0; round < c.backoffRounds; round++ {
		c.pool.Reset(startIndex)
		c.logger.WithFields(map[string]interface{}{
			"round":    round + 1,
			"wait":     wait.String(),
			"endpoint": c.pool.Current(),
		}).Warn("all endpoints throttled, backing off")

		if err := c.sleep(ctx, wait); err != nil {
			return err
		}

		err := c.attempt(ctx, op, c.pool.Current())
		if err == nil {
			return nil
		}
		if !errors.IsRateLimit(err) {
			return err
		}
		lastErr = err

		wait *= 2
		if wait > c.backoffMax {
			wait = c.backoffMax
		}
	}

	return errors.NewExhaustedError(lastErr)
}

func (c *Client) attempt(ctx context.Context, op Operation, endpoint string) error {
	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()
	c.maybeReport()
	return op(ctx, endpoint)
}

func (c *Client) rotate(from string) {
	next := c.pool.Advance()
	c.mu.Lock()
	c.totalRotations++
	c.mu.Unlock()
	c.logger.WithFields(map[string]interface{}{
		"from": from,
		"to":   next,
	}).Debug("rotated RPC endpoint")
}

// maybeReport emits request and rotation counters at most every 10s
func (c *Client) maybeReport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastReport) < 10*time.Second {
		return
	}
	c.lastReport = time.Now()
	c.logger.WithFields(map[string]interface{}{
		"totalRequests":  c.totalRequests,
		"totalRotations": c.totalRotations,
		"endpoint":       c.pool.Current(),
	}).Info("rpc client stats")
}

// Stats returns the lifetime request and rotation counters
func (c *Client) Stats() (requests, rotations int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRequests, c.totalRotations
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// OwnerRef is the owner field of a balance change. Only address-owned
// balances carry a usable counterparty.
type OwnerRef struct {
	AddressOwner string `json:"AddressOwner"`
}

// UnmarshalJSON tolerates the non-object owner variants ("Immutable",
// shared-object markers) by leaving the address empty
func (o *OwnerRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '{' {
		return nil
	}
	type alias OwnerRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = OwnerRef(a)
	return nil
}

// RawBalanceChange is one asset movement as reported by the node
type RawBalanceChange struct {
	Owner    OwnerRef `json:"owner"`
	CoinType string   `json:"coinType"`
	Amount   string   `json:"amount"`
}

// TxData is the input payload of a transaction block
type TxData struct {
	Sender string `json:"sender"`
}

// TxEnvelope wraps the transaction input as the node returns it
type TxEnvelope struct {
	Data TxData `json:"data"`
}

// TransactionBlock is one raw transaction from the history query
type TransactionBlock struct {
	Digest         string             `json:"digest"`
	TimestampMs    string             `json:"timestampMs"`
	Transaction    *TxEnvelope        `json:"transaction"`
	BalanceChanges []RawBalanceChange `json:"balanceChanges"`
}

// Sender returns the transaction sender address, or empty when the node
// omitted the input envelope
func (t *TransactionBlock) Sender() string {
	if t.Transaction == nil {
		return ""
	}
	return t.Transaction.Data.Sender
}

// TransactionPage is one page of history for an address
type TransactionPage struct {
	Data        []TransactionBlock `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}

// QueryTransactionPage fetches one descending page of transactions that
// the address sent or received, via suix_queryTransactionBlocks. The
// call goes through Execute, so it inherits rotation and backoff.
func (c *Client) QueryTransactionPage(ctx context.Context, address string, cursor *string, limit int) (*TransactionPage, error) {
	query := map[string]interface{}{
		"filter": map[string]interface{}{
			"FromOrToAddress": map[string]interface{}{"addr": address},
		},
		"options": map[string]interface{}{
			"showInput":          true,
			"showBalanceChanges": true,
		},
	}
	params := []interface{}{query, cursor, limit, true}

	var page TransactionPage
	err := c.Execute(ctx, func(ctx context.Context, endpoint string) error {
		return c.call(ctx, endpoint, "suix_queryTransactionBlocks", params, &page)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// call performs one JSON-RPC round trip against a single endpoint
func (c *Client) call(ctx context.Context, endpoint, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.NewRemoteError(method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.NewRemoteError(method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// transport failures are indistinguishable from throttling
		// from this side, treat them as rate limiting
		return errors.NewRateLimitedError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewRateLimitedError(endpoint, fmt.Errorf("HTTP 429 from %s", endpoint))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewRemoteError(method, fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewRateLimitedError(endpoint, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return errors.NewRemoteError(method, err)
	}
	if rpcResp.Error != nil {
		rpcErr := fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
		if errors.IsRateLimit(rpcErr) {
			return errors.NewRateLimitedError(endpoint, rpcErr)
		}
		return errors.NewRemoteError(method, rpcErr)
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return errors.NewRemoteError(method, err)
		}
	}
	return nil
}
