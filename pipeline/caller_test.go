package pipeline

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/medflow/agent"
	"github.com/hupe1980/medflow/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentCaller(t *testing.T) {
	grep := agent.New(agent.NewGrep())
	ts := httptest.NewServer(grep.NewServer("http://localhost:0").Handler())
	defer ts.Close()

	reg := registry.New(map[string]registry.Entry{
		"grep": {URL: ts.URL},
	})

	caller := NewAgentCaller(reg)

	t.Run("resolves name and round trips", func(t *testing.T) {
		reply, err := caller.CallData(context.Background(), "grep", map[string]any{
			"patterns":         []any{"carcinoma"},
			"document_content": "Diagnosis: invasive ductal carcinoma",
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, reply.Data["total_matches"])
	})

	t.Run("direct url bypasses registry", func(t *testing.T) {
		reply, err := caller.CallText(context.Background(), ts.URL, "find carcinoma")
		require.NoError(t, err)
		assert.NotNil(t, reply)
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, err := caller.CallData(context.Background(), "nope", map[string]any{})
		assert.ErrorContains(t, err, `resolving agent "nope"`)
	})
}
