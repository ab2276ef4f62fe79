package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/logging"
	"github.com/hupe1980/medflow/registry"
)

// Caller sends a payload to a named agent and returns its normalized reply.
// Orchestrators depend on this interface rather than on the HTTP client
// directly.
type Caller interface {
	// CallText sends a plain text message to the named agent.
	CallText(ctx context.Context, agent, text string) (*a2a.Reply, error)

	// CallData sends a structured payload to the named agent.
	CallData(ctx context.Context, agent string, data map[string]any) (*a2a.Reply, error)
}

// AgentCallerOptions configure NewAgentCaller.
type AgentCallerOptions struct {
	// Timeout bounds each remote call. Zero keeps the client default.
	Timeout time.Duration

	// ClientOptions are applied to every agent client the caller creates.
	ClientOptions []func(o *a2a.ClientOptions)

	Logger logging.Logger
}

// AgentCaller resolves agent names through the registry and dispatches over
// the A2A client, caching one client per resolved URL.
type AgentCaller struct {
	registry  *registry.Registry
	timeout   time.Duration
	clientFns []func(o *a2a.ClientOptions)
	logger    logging.Logger

	mu      sync.Mutex
	clients map[string]*a2a.Client
}

// NewAgentCaller creates a Caller backed by the given registry.
func NewAgentCaller(reg *registry.Registry, optFns ...func(o *AgentCallerOptions)) *AgentCaller {
	opts := AgentCallerOptions{
		Logger: logging.NewNoOpLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &AgentCaller{
		registry:  reg,
		timeout:   opts.Timeout,
		clientFns: opts.ClientOptions,
		logger:    opts.Logger,
		clients:   make(map[string]*a2a.Client),
	}
}

// CallText implements Caller.
func (c *AgentCaller) CallText(ctx context.Context, agent, text string) (*a2a.Reply, error) {
	client, err := c.client(agent)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := client.SendText(ctx, text)
	c.observe(agent, start, err)

	return reply, err
}

// CallData implements Caller.
func (c *AgentCaller) CallData(ctx context.Context, agent string, data map[string]any) (*a2a.Reply, error) {
	client, err := c.client(agent)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := client.SendData(ctx, data)
	c.observe(agent, start, err)

	return reply, err
}

func (c *AgentCaller) client(agent string) (*a2a.Client, error) {
	url, err := c.registry.Resolve(agent)
	if err != nil {
		return nil, fmt.Errorf("resolving agent %q: %w", agent, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[url]; ok {
		return client, nil
	}

	optFns := c.clientFns
	if c.timeout > 0 {
		optFns = append(optFns, func(o *a2a.ClientOptions) { o.Timeout = c.timeout })
	}

	client := a2a.NewClient(url, optFns...)
	c.clients[url] = client

	return client, nil
}

func (c *AgentCaller) observe(agent string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("agent call failed", "agent", agent, "duration", elapsed.String(), "error", err)
		return
	}

	c.logger.Debug("agent call completed", "agent", agent, "duration", elapsed.String())
}
