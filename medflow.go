// Package medflow provides a high-level façade for hosting a fleet of A2A
// agent services. Most applications interact with this package by:
//  1. Building a name→handler map (agent.Catalog plus any orchestrators)
//  2. Creating a Fleet via NewFleet with the name→port assignment
//  3. Starting the fleet and waiting for readiness
//
// The façade delegates protocol handling to the a2a package while keeping
// setup ergonomics concise. Defaults are safe for local development; hosted
// deployments typically supply their own registry file and logger.
package medflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/agent"
	"github.com/hupe1980/medflow/logging"
	"github.com/hupe1980/medflow/registry"
)

// FleetOptions configure NewFleet.
type FleetOptions struct {
	// Host is the interface the agents bind and advertise.
	Host string

	// Logger receives server and lifecycle logs.
	Logger logging.Logger
}

// Fleet hosts a set of agents, one HTTP server per agent, in a single
// process.
type Fleet struct {
	host    string
	ports   map[string]int
	servers map[string]*a2a.Server
	logger  logging.Logger
}

// NewFleet builds a server per handler. Every handler name must have a port
// assigned.
func NewFleet(handlers map[string]agent.Handler, ports map[string]int, optFns ...func(o *FleetOptions)) (*Fleet, error) {
	opts := FleetOptions{
		Host:   "localhost",
		Logger: logging.NewNoOpLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	f := &Fleet{
		host:    opts.Host,
		ports:   make(map[string]int, len(handlers)),
		servers: make(map[string]*a2a.Server, len(handlers)),
		logger:  opts.Logger,
	}

	for name, handler := range handlers {
		port, ok := ports[name]
		if !ok {
			return nil, fmt.Errorf("no port assigned for agent %q", name)
		}

		f.ports[name] = port
		a := agent.New(handler, func(o *agent.Options) { o.Logger = opts.Logger })
		f.servers[name] = a.NewServer(f.URL(name))
	}

	return f, nil
}

// Names lists the fleet's agent names in sorted order.
func (f *Fleet) Names() []string {
	names := make([]string, 0, len(f.servers))
	for name := range f.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// URL returns the address an agent is served on.
func (f *Fleet) URL(name string) string {
	return fmt.Sprintf("http://%s:%d", f.host, f.ports[name])
}

// Registry maps every fleet agent to its URL.
func (f *Fleet) Registry() *registry.Registry {
	entries := make(map[string]registry.Entry, len(f.servers))
	for name, srv := range f.servers {
		entries[name] = registry.Entry{
			URL:         f.URL(name),
			Description: srv.Card().Description,
		}
	}
	return registry.New(entries)
}

// Start launches every agent server in its own goroutine and returns
// immediately. Use WaitReady to block until the fleet answers.
func (f *Fleet) Start() {
	for name, srv := range f.servers {
		addr := fmt.Sprintf("%s:%d", f.host, f.ports[name])

		go func(name, addr string, srv *a2a.Server) {
			f.logger.Info("starting agent server", "agent", name, "addr", addr)
			if err := srv.Start(addr); err != nil {
				f.logger.Error("agent server stopped", "agent", name, "error", err)
			}
		}(name, addr, srv)
	}
}

// WaitReady polls every agent's card endpoint until it answers or the
// timeout elapses.
func (f *Fleet) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for _, name := range f.Names() {
		client := a2a.NewClient(f.URL(name), func(o *a2a.ClientOptions) {
			o.Timeout = 2 * time.Second
			o.MaxRetries = 0
		})

		for {
			if _, err := client.FetchCard(ctx); err == nil {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("agent %q did not become ready within %s", name, timeout)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
	}

	return nil
}

// Shutdown gracefully stops every agent server.
func (f *Fleet) Shutdown(ctx context.Context) error {
	var firstErr error
	for name, srv := range f.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown %s: %w", name, err)
		}
	}
	return firstErr
}
