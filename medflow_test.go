package medflow

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestFleet(t *testing.T) {
	handlers := map[string]agent.Handler{
		"grep":  agent.NewGrep(),
		"chunk": agent.NewChunk(),
	}
	ports := map[string]int{
		"grep":  freePort(t),
		"chunk": freePort(t),
	}

	fleet, err := NewFleet(handlers, ports)
	require.NoError(t, err)

	assert.Equal(t, []string{"chunk", "grep"}, fleet.Names())

	reg := fleet.Registry()
	url, err := reg.Resolve("grep")
	require.NoError(t, err)
	assert.Equal(t, fleet.URL("grep"), url)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fleet.Start()
	require.NoError(t, fleet.WaitReady(ctx, 10*time.Second))

	reply, err := a2a.NewClient(fleet.URL("grep")).SendData(ctx, map[string]any{
		"patterns":         []any{"carcinoma"},
		"document_content": "Diagnosis: invasive ductal carcinoma",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, reply.Data["total_matches"])

	require.NoError(t, fleet.Shutdown(context.Background()))
}

func TestFleetMissingPort(t *testing.T) {
	_, err := NewFleet(map[string]agent.Handler{"grep": agent.NewGrep()}, map[string]int{})
	assert.ErrorContains(t, err, `no port assigned for agent "grep"`)
}
