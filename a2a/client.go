package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hupe1980/medflow/logging"
	"golang.org/x/time/rate"
)

// ClientOptions configure NewClient.
type ClientOptions struct {
	// HTTPClient issues the requests. Defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds each individual HTTP request. LLM-backed agents can be
	// slow, so the default is generous.
	Timeout time.Duration
	// MaxRetries caps transport-level retry attempts after the initial call.
	MaxRetries uint64
	// RateLimit throttles outgoing requests when positive.
	RateLimit rate.Limit
	// BreakerThreshold opens the circuit after this many consecutive
	// failures. Zero disables the breaker.
	BreakerThreshold int
	// BreakerCooldown is how long an open circuit waits before probing.
	BreakerCooldown time.Duration
	// Logger for call-level diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Client talks JSON-RPC to a single remote agent. Transport failures and 5xx
// responses are retried with exponential backoff; protocol-level errors are
// returned as *RPCError without retrying.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	logger     logging.Logger
}

// NewClient creates a client for the agent at baseURL.
func NewClient(baseURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		Timeout:         120 * time.Second,
		MaxRetries:      2,
		BreakerCooldown: 30 * time.Second,
		Logger:          logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(opts.RateLimit, 1)
	}
	if opts.BreakerThreshold > 0 {
		c.breaker = NewCircuitBreaker(opts.BreakerThreshold, opts.BreakerCooldown)
	}

	return c
}

// URL returns the agent base URL the client is bound to.
func (c *Client) URL() string { return c.baseURL }

// FetchCard retrieves the agent's discovery card.
func (c *Client) FetchCard(ctx context.Context) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+AgentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build card request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch agent card: unexpected status %d", resp.StatusCode)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}

	return &card, nil
}

// SendText sends a user message carrying one TextPart.
func (c *Client) SendText(ctx context.Context, text string) (*Reply, error) {
	return c.Send(ctx, NewUserTextMessage(text))
}

// SendData sends a user message carrying one DataPart.
func (c *Client) SendData(ctx context.Context, data map[string]any) (*Reply, error) {
	return c.Send(ctx, NewUserDataMessage(data))
}

// Send issues a message/send call and normalizes the raw reply.
func (c *Client) Send(ctx context.Context, msg Message) (*Reply, error) {
	raw, err := c.call(ctx, MethodMessageSend, MessageSendParams{Message: msg})
	if err != nil {
		return nil, err
	}
	return NewReply(raw), nil
}

// GetTask issues a tasks/get call.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	raw, err := c.call(ctx, MethodTasksGet, TaskIDParams{ID: taskID})
	if err != nil {
		return nil, err
	}
	return decodeTaskResult(raw)
}

// CancelTask issues a tasks/cancel call.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*Task, error) {
	raw, err := c.call(ctx, MethodTasksCancel, TaskIDParams{ID: taskID})
	if err != nil {
		return nil, err
	}
	return decodeTaskResult(raw)
}

// call runs one JSON-RPC method with rate limiting, circuit breaking and
// backoff retry, returning the full response body on success.
func (c *Client) call(ctx context.Context, method string, params any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.baseURL)
	}

	rpcReq, err := NewRPCRequest(uuid.NewString(), method, params)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var body []byte
	operation := func() error {
		var opErr error
		body, opErr = c.post(ctx, payload)
		return opErr
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	err = backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.logger.Warn("agent call retrying", "url", c.baseURL, "method", method, "wait", wait, "error", err)
	})
	if c.breaker != nil {
		c.breaker.Record(err)
	}
	if err != nil {
		return nil, &AgentError{Agent: c.baseURL, Err: err}
	}

	if rpcErr := gjsonRPCError(body); rpcErr != nil {
		return nil, &AgentError{Agent: c.baseURL, Err: rpcErr}
	}

	return body, nil
}

// post performs one HTTP exchange. Non-retryable outcomes are wrapped in
// backoff.Permanent so the retry loop gives up immediately.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("client error %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	return body, nil
}

// gjsonRPCError extracts a JSON-RPC error object from a response body.
func gjsonRPCError(body []byte) *RPCError {
	var resp RPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}
	return resp.Error
}

// decodeTaskResult parses a Task out of a JSON-RPC response body.
func decodeTaskResult(body []byte) (*Task, error) {
	var resp RPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var task Task
	if err := json.Unmarshal(resp.Result, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}

	return &task, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the cut never produces invalid UTF-8.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
