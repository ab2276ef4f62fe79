// Package agent implements the analysis agents of the document pipeline:
// deterministic text tools (grep, chunk) and LLM-backed extractors (keyword,
// summarize and the oncology prompt agents). Each agent is a Handler exposed
// over the wire through an a2a.Server.
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/logging"
)

// Request is the normalized input of one agent invocation: the flattened
// message text plus any structured payload the caller attached.
type Request struct {
	Text      string
	Data      map[string]any
	TaskID    string
	ContextID string
}

// String returns the string value of a data field, or "" when absent.
func (r *Request) String(key string) string {
	if s, ok := r.Data[key].(string); ok {
		return s
	}
	return ""
}

// StringSlice returns a data field as a string slice, tolerating []any
// payloads produced by JSON decoding.
func (r *Request) StringSlice(key string) []string {
	switch v := r.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Int returns an integer data field, tolerating JSON float64 values.
// Returns fallback when the field is absent or not numeric.
func (r *Request) Int(key string, fallback int) int {
	switch v := r.Data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// Bool returns a boolean data field, or fallback when absent.
func (r *Request) Bool(key string, fallback bool) bool {
	if b, ok := r.Data[key].(bool); ok {
		return b
	}
	return fallback
}

// Response is the output of one agent invocation. Text carries prose for
// humans and downstream prompts; Data carries the structured payload.
type Response struct {
	Text string
	Data map[string]any
}

// Handler is the behavior of a single analysis agent.
type Handler interface {
	Name() string
	Description() string
	Skills() []a2a.AgentSkill
	Process(ctx context.Context, req *Request) (*Response, error)
}

// Options configure New.
type Options struct {
	Logger logging.Logger
}

// Agent adapts a Handler to the a2a.Executor interface and builds the
// discovery card the server advertises.
type Agent struct {
	handler Handler
	logger  logging.Logger
}

// New wraps a handler for serving.
func New(handler Handler, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger: logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{handler: handler, logger: opts.Logger}
}

// Handler returns the wrapped handler.
func (a *Agent) Handler() Handler { return a.handler }

// Execute implements a2a.Executor.
func (a *Agent) Execute(ctx context.Context, rc *a2a.RequestContext) (*a2a.Message, error) {
	req := &Request{
		Text:      rc.Text,
		Data:      dataFromMessage(rc.Message),
		TaskID:    rc.TaskID,
		ContextID: rc.ContextID,
	}

	logger := a.logger.With("agent", a.handler.Name(), "task_id", rc.TaskID)
	logger.Debug("processing request", "text_len", len(req.Text), "has_data", req.Data != nil)

	resp, err := a.handler.Process(ctx, req)
	if err != nil {
		return nil, err
	}

	var parts []a2a.Part
	if resp.Data != nil {
		parts = append(parts, a2a.DataPart{Data: resp.Data})
	}
	if resp.Text != "" {
		parts = append(parts, a2a.TextPart{Text: resp.Text})
	}
	if parts == nil {
		parts = append(parts, a2a.TextPart{Text: ""})
	}

	msg := a2a.NewAgentMessage(parts...)

	return &msg, nil
}

// Cancel implements a2a.Executor. Agent work is request-scoped, so there is
// nothing to tear down beyond the context cancellation the server performs.
func (a *Agent) Cancel(ctx context.Context, taskID string) error { return nil }

// Card builds the agent card advertised at the given base URL.
func (a *Agent) Card(url string) a2a.AgentCard {
	return a2a.NewAgentCard(a.handler.Name(), a.handler.Description(), func(o *a2a.CardOptions) {
		o.URL = url
		o.Skills = a.handler.Skills()
	})
}

// NewServer builds an a2a.Server hosting this agent.
func (a *Agent) NewServer(url string, optFns ...func(o *a2a.ServerOptions)) *a2a.Server {
	withLogger := append([]func(o *a2a.ServerOptions){func(o *a2a.ServerOptions) {
		o.Logger = a.logger
	}}, optFns...)
	return a2a.NewServer(a.Card(url), a, withLogger...)
}

// dataFromMessage merges the DataParts of a message into one map. When no
// DataPart is present but the text payload is a JSON object — orchestrators
// historically serialized parameters into plain text — that object is used
// instead.
func dataFromMessage(msg a2a.Message) map[string]any {
	var merged map[string]any
	for _, p := range msg.Parts {
		dp, ok := p.(a2a.DataPart)
		if !ok {
			continue
		}
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range dp.Data {
			merged[k] = v
		}
	}
	if merged != nil {
		return merged
	}

	text := strings.TrimSpace(msg.Text())
	if strings.HasPrefix(text, "{") {
		var data map[string]any
		if err := json.Unmarshal([]byte(text), &data); err == nil {
			return data
		}
	}

	return nil
}
