// Package rpcclient is a JSON-RPC 2.0 client for the CKB node and its
// built-in indexer.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	// DefaultTimeout is the per request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is how many times a request is retried after a
	// transport error.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the base delay between retries. The n-th
	// retry waits n times this long.
	DefaultRetryBackoff = 500 * time.Millisecond
)

var (
	// ErrNotFound is returned when the node returns a null result for a
	// lookup.
	ErrNotFound = errors.New("not found")

	// ErrTxRejected is returned when a transaction was rejected by the
	// node.
	ErrTxRejected = errors.New("transaction rejected")
)

// Config holds the client options.
type Config struct {
	// URL is the node RPC endpoint, e.g. http://127.0.0.1:8114.
	URL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxRetries is the number of retries after transport errors. RPC
	// errors returned by the node are never retried.
	MaxRetries int

	// RetryBackoff is the base delay of the linear backoff.
	RetryBackoff time.Duration

	// HTTPClient overrides the HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message,
			e.Data)
	}

	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Client talks to one node.
type Client struct {
	cfg        Config
	httpClient *http.Client
	nextID     atomic.Uint64
}

// New creates a client, filling in defaults for unset options.
func New(cfg *Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url must be set")
	}

	c := &Client{cfg: *cfg}
	if c.cfg.Timeout == 0 {
		c.cfg.Timeout = DefaultTimeout
	}
	if c.cfg.MaxRetries < 0 {
		c.cfg.MaxRetries = 0
	}
	if c.cfg.RetryBackoff == 0 {
		c.cfg.RetryBackoff = DefaultRetryBackoff
	}

	c.httpClient = cfg.HTTPClient
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.cfg.Timeout}
	}

	return c, nil
}

// Call invokes a method and decodes its result into result. A null result
// yields ErrNotFound.
func (c *Client) Call(ctx context.Context, method string, result interface{},
	params ...interface{}) error {

	if params == nil {
		params = []interface{}{}
	}

	req := request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("unable to encode %s request: %w", method, err)
	}

	var resp *response
	for attempt := 0; ; attempt++ {
		resp, err = c.post(ctx, body)
		if err == nil {
			break
		}
		if attempt >= c.cfg.MaxRetries || ctx.Err() != nil {
			return fmt.Errorf("%s: %w", method, err)
		}

		delay := c.cfg.RetryBackoff * time.Duration(attempt+1)
		log.Debugf("Request %s failed (attempt %d), retrying in %v: %v",
			method, attempt+1, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", method, ctx.Err())
		}
	}

	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return fmt.Errorf("%s: %w", method, ErrNotFound)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("unable to decode %s result: %w", method, err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (*response, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s",
			httpResp.StatusCode, bytes.TrimSpace(respBody))
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid json-rpc response: %w", err)
	}

	return &resp, nil
}
