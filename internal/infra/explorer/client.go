// Package explorer talks to an Etherscan-compatible block explorer API.
//
// One Client serves three roles: chain tip provider, paged transaction fetcher and
// contract creation locator. Every request passes through the same Gate, so calls are
// strictly spaced regardless of which role issued them.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/metrics"
)

// NoTransactionsMessage is the explorer's status "0" message for an empty range.
const NoTransactionsMessage = "No transactions found"

// Sort is the order of a txlist page.
type Sort string

const (
	SortAsc  Sort = "asc"
	SortDesc Sort = "desc"
)

// Query selects one page of an address's normal transactions.
type Query struct {
	Address    string
	StartBlock uint64
	EndBlock   uint64
	Sort       Sort
}

// Config holds client settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MinInterval time.Duration
	MaxAttempts int
	PageSize    int
}

// Client implements the explorer calls the ingestion engine needs.
type Client struct {
	baseURL     string
	apiKey      string
	pageSize    int
	maxAttempts int
	httpClient  *http.Client
	gate        *Gate
	log         *slog.Logger
}

// NewClient creates a new explorer client.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		pageSize:    cfg.PageSize,
		maxAttempts: cfg.MaxAttempts,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		gate: NewGate(cfg.MinInterval),
		log:  log.With("component", "explorer"),
	}
}

// envelope covers both the module/action shape and the proxy JSON-RPC shape.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Transactions fetches one page of at most PageSize records.
// An explicit "no data" answer returns an empty page without consuming a retry;
// a page that could not be fetched within the retry budget returns ErrTransient.
func (c *Client) Transactions(ctx context.Context, q Query) ([]domain.RawTransaction, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", q.Address)
	params.Set("startblock", strconv.FormatUint(q.StartBlock, 10))
	params.Set("endblock", strconv.FormatUint(q.EndBlock, 10))
	params.Set("sort", string(q.Sort))
	params.Set("offset", strconv.Itoa(c.pageSize))

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		batch, err := c.transactionsOnce(ctx, params)
		if err == nil {
			return batch, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		c.log.Warn("txlist attempt failed",
			"address", q.Address,
			"start", q.StartBlock,
			"end", q.EndBlock,
			"sort", q.Sort,
			"attempt", attempt,
			"kind", ClassifyError(err),
			"error", err,
		)
	}

	return nil, fmt.Errorf("%w: txlist %s [%d,%d] failed after %d attempts: %v",
		ErrTransient, q.Address, q.StartBlock, q.EndBlock, c.maxAttempts, lastErr)
}

func (c *Client) transactionsOnce(ctx context.Context, params url.Values) ([]domain.RawTransaction, error) {
	env, err := c.call(ctx, "txlist", params)
	if err != nil {
		return nil, err
	}

	switch {
	case env.Status == "1":
		var batch []domain.RawTransaction
		if err := json.Unmarshal(env.Result, &batch); err != nil {
			return nil, &callError{kind: KindMalformed, msg: "decode txlist result", err: err}
		}
		return batch, nil
	case env.Message == NoTransactionsMessage:
		return []domain.RawTransaction{}, nil
	case isThrottleMessage(env.Message) || isThrottleMessage(string(env.Result)):
		return nil, &callError{kind: KindThrottled, msg: snippet(env.Message, env.Result)}
	default:
		return nil, &callError{kind: KindAPI, msg: snippet(env.Message, env.Result)}
	}
}

// ChainTip returns the latest block height.
func (c *Client) ChainTip(ctx context.Context) (uint64, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_blockNumber")

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		tip, err := c.chainTipOnce(ctx, params)
		if err == nil {
			return tip, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		lastErr = err
		c.log.Warn("chain tip attempt failed", "attempt", attempt, "error", err)
	}
	return 0, fmt.Errorf("%w: chain tip: %v", ErrTransient, lastErr)
}

func (c *Client) chainTipOnce(ctx context.Context, params url.Values) (uint64, error) {
	env, err := c.call(ctx, "eth_blockNumber", params)
	if err != nil {
		return 0, err
	}
	if env.Error != nil {
		return 0, &callError{kind: KindAPI, msg: env.Error.Message}
	}
	var hex string
	if err := json.Unmarshal(env.Result, &hex); err != nil {
		return 0, &callError{kind: KindMalformed, msg: "decode block number", err: err}
	}
	tip, err := ParseHexUint(hex)
	if err != nil {
		return 0, &callError{kind: KindMalformed, msg: "parse block number", err: err}
	}
	if tip == 0 {
		return 0, &callError{kind: KindMalformed, msg: "chain tip is zero"}
	}
	return tip, nil
}

// CreationBlock resolves the block a contract was created in. It returns 0 on any
// failure; 0 means unknown and is never cached by callers.
func (c *Client) CreationBlock(ctx context.Context, address string) uint64 {
	block, err := c.creationBlock(ctx, address)
	if err != nil {
		c.log.Warn("could not resolve creation block", "address", address, "error", err)
		return 0
	}
	return block
}

func (c *Client) creationBlock(ctx context.Context, address string) (uint64, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getcontractcreation")
	params.Set("contractaddresses", address)

	env, err := c.call(ctx, "getcontractcreation", params)
	if err != nil {
		return 0, err
	}
	if env.Status == "0" {
		return 0, fmt.Errorf("%w: creation tx: %s", ErrNotFound, env.Message)
	}
	var creations []struct {
		ContractAddress string `json:"contractAddress"`
		TxHash          string `json:"txHash"`
	}
	if err := json.Unmarshal(env.Result, &creations); err != nil {
		return 0, &callError{kind: KindMalformed, msg: "decode creation result", err: err}
	}
	if len(creations) == 0 || creations[0].TxHash == "" {
		return 0, fmt.Errorf("%w: creation tx", ErrNotFound)
	}

	params = url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getTransactionByHash")
	params.Set("txhash", creations[0].TxHash)

	env, err = c.call(ctx, "eth_getTransactionByHash", params)
	if err != nil {
		return 0, err
	}
	if env.Error != nil {
		return 0, &callError{kind: KindAPI, msg: env.Error.Message}
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return 0, fmt.Errorf("%w: transaction %s", ErrNotFound, creations[0].TxHash)
	}
	var tx struct {
		BlockNumber string `json:"blockNumber"`
	}
	if err := json.Unmarshal(env.Result, &tx); err != nil {
		return 0, &callError{kind: KindMalformed, msg: "decode transaction", err: err}
	}
	block, err := ParseHexUint(tx.BlockNumber)
	if err != nil {
		return 0, &callError{kind: KindMalformed, msg: "parse creation block", err: err}
	}
	return block, nil
}

// call performs one gated GET and decodes the envelope.
func (c *Client) call(ctx context.Context, action string, params url.Values) (*envelope, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	start := time.Now()
	env, err := c.do(ctx, params)
	metrics.ExplorerLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = string(ClassifyError(err))
	}
	metrics.ExplorerCallsTotal.WithLabelValues(action, outcome).Inc()
	return env, err
}

func (c *Client) do(ctx context.Context, params url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &callError{kind: KindTransport, msg: "request", err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &callError{kind: KindTransport, msg: "read response", err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &callError{kind: KindThrottled, msg: fmt.Sprintf("http 429, retry after %q", resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &callError{kind: KindTransport, msg: fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(string(body), 120))}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &callError{kind: KindMalformed, msg: "parse response", err: err}
	}
	return &env, nil
}

// ParseHexUint parses a 0x-prefixed base-16 quantity.
func ParseHexUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" || trimmed == s {
		return 0, errors.New("not a hex quantity: " + strconv.Quote(s))
	}
	return strconv.ParseUint(trimmed, 16, 64)
}

func snippet(message string, result json.RawMessage) string {
	return message + " - " + truncate(string(result), 40)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
