package agent

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/medflow/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestAccessors(t *testing.T) {
	req := &Request{Data: map[string]any{
		"name":     "grep",
		"patterns": []any{"a", "b", 3},
		"count":    float64(7),
		"flag":     true,
	}}

	assert.Equal(t, "grep", req.String("name"))
	assert.Equal(t, "", req.String("missing"))
	assert.Equal(t, []string{"a", "b"}, req.StringSlice("patterns"))
	assert.Equal(t, 7, req.Int("count", 0))
	assert.Equal(t, 9, req.Int("missing", 9))
	assert.True(t, req.Bool("flag", false))
	assert.False(t, req.Bool("missing", false))
}

func TestDataFromMessage(t *testing.T) {
	t.Run("merges data parts", func(t *testing.T) {
		msg := a2a.NewUserMessage(
			a2a.DataPart{Data: map[string]any{"a": 1}},
			a2a.DataPart{Data: map[string]any{"b": 2}},
		)

		data := dataFromMessage(msg)
		require.NotNil(t, data)
		assert.Equal(t, 1, data["a"])
		assert.Equal(t, 2, data["b"])
	})

	t.Run("recovers json from text", func(t *testing.T) {
		msg := a2a.NewUserTextMessage(`{"patterns": ["x"]}`)

		data := dataFromMessage(msg)
		require.NotNil(t, data)
		assert.Equal(t, []any{"x"}, data["patterns"])
	})

	t.Run("plain prose yields nil", func(t *testing.T) {
		msg := a2a.NewUserTextMessage("analyze this document")
		assert.Nil(t, dataFromMessage(msg))
	})
}

func TestAgentExecute(t *testing.T) {
	a := New(NewGrep())

	msg := a2a.NewUserDataMessage(map[string]any{
		"patterns":         []any{"diabetes"},
		"document_content": "Patient has diabetes.\nFollow-up in 3 months.",
	})

	reply, err := a.Execute(context.Background(), &a2a.RequestContext{
		TaskID:  "t1",
		Message: msg,
		Text:    msg.Text(),
	})
	require.NoError(t, err)
	require.Equal(t, "agent", reply.Role)

	var data map[string]any
	for _, p := range reply.Parts {
		if dp, ok := p.(a2a.DataPart); ok {
			data = dp.Data
		}
	}
	require.NotNil(t, data)
	assert.Equal(t, 1, data["total_matches"])
}

func TestAgentServedOverA2A(t *testing.T) {
	a := New(NewGrep())
	srv := a.NewServer("http://localhost:0")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := a2a.NewClient(ts.URL)

	card, err := client.FetchCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pattern Search Agent", card.Name)

	reply, err := client.SendData(context.Background(), map[string]any{
		"patterns":         []any{"Metformin"},
		"document_content": "- Metformin 1000mg PO BID",
	})
	require.NoError(t, err)

	require.NotNil(t, reply.Data)
	assert.EqualValues(t, 1, reply.Data["total_matches"])
	matches, ok := reply.Data["matches"].([]any)
	require.True(t, ok)
	require.Len(t, matches, 1)
}
