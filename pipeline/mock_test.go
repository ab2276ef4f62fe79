package pipeline

import (
	"context"
	"sync"

	"github.com/hupe1980/medflow/a2a"
)

// recordedCall captures one Caller invocation for assertions.
type recordedCall struct {
	agent string
	text  string
	data  map[string]any
}

type scripted struct {
	reply *a2a.Reply
	err   error
}

// mockCaller scripts per-agent reply queues. Agents without a script echo a
// canned acknowledgement so pipelines can run end to end.
type mockCaller struct {
	mu      sync.Mutex
	calls   []recordedCall
	scripts map[string][]scripted
}

func newMockCaller() *mockCaller {
	return &mockCaller{scripts: map[string][]scripted{}}
}

func (m *mockCaller) on(agent string, replies ...scripted) {
	m.scripts[agent] = append(m.scripts[agent], replies...)
}

func (m *mockCaller) onText(agent, text string) {
	m.on(agent, scripted{reply: &a2a.Reply{Text: text}})
}

func (m *mockCaller) onData(agent string, data map[string]any) {
	m.on(agent, scripted{reply: &a2a.Reply{Data: data}})
}

func (m *mockCaller) onErr(agent string, err error) {
	m.on(agent, scripted{err: err})
}

func (m *mockCaller) CallText(ctx context.Context, agent, text string) (*a2a.Reply, error) {
	return m.dispatch(recordedCall{agent: agent, text: text})
}

func (m *mockCaller) CallData(ctx context.Context, agent string, data map[string]any) (*a2a.Reply, error) {
	return m.dispatch(recordedCall{agent: agent, data: data})
}

func (m *mockCaller) dispatch(call recordedCall) (*a2a.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call)

	queue := m.scripts[call.agent]
	if len(queue) == 0 {
		return &a2a.Reply{Text: call.agent + " output"}, nil
	}

	next := queue[0]
	m.scripts[call.agent] = queue[1:]

	if next.err != nil {
		return nil, next.err
	}
	return next.reply, nil
}

// agentSequence lists the agents called, in order.
func (m *mockCaller) agentSequence() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		names = append(names, c.agent)
	}
	return names
}

// callsTo returns the recorded calls addressed to one agent.
func (m *mockCaller) callsTo(agent string) []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []recordedCall
	for _, c := range m.calls {
		if c.agent == agent {
			out = append(out, c)
		}
	}
	return out
}
