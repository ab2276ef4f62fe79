package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	t.Run("round trip against a live server", func(t *testing.T) {
		ts := newTestServer(t, &echoExecutor{})
		client := NewClient(ts.URL)

		reply, err := client.SendText(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "echo: hello", reply.Text)
	})

	t.Run("data message", func(t *testing.T) {
		var captured RPCRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			resp := RPCResponse{
				JSONRPC: "2.0",
				ID:      captured.ID,
				Result:  json.RawMessage(`{"kind":"message","role":"agent","parts":[{"kind":"data","data":{"ok":true}}]}`),
			}
			_ = json.NewEncoder(w).Encode(resp)
		}))
		defer ts.Close()

		client := NewClient(ts.URL)
		reply, err := client.SendData(context.Background(), map[string]any{"document": "x"})
		require.NoError(t, err)

		assert.Equal(t, MethodMessageSend, captured.Method)
		require.NotNil(t, reply.Data)
		assert.Equal(t, true, reply.Data["ok"])
	})

	t.Run("rpc error surfaces as AgentError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(NewRPCError("1", CodeTaskNotFound, "task not found"))
		}))
		defer ts.Close()

		client := NewClient(ts.URL)
		_, err := client.SendText(context.Background(), "hello")

		var agentErr *AgentError
		require.ErrorAs(t, err, &agentErr)
		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, CodeTaskNotFound, rpcErr.Code)
	})
}

func TestClientRetries(t *testing.T) {
	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			resp := RPCResponse{JSONRPC: "2.0", Result: json.RawMessage(`{"kind":"message","role":"agent","parts":[{"kind":"text","text":"ok"}]}`)}
			_ = json.NewEncoder(w).Encode(resp)
		}))
		defer ts.Close()

		client := NewClient(ts.URL)
		reply, err := client.SendText(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "ok", reply.Text)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		client := NewClient(ts.URL)
		_, err := client.SendText(context.Background(), "hello")
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestClientCircuitBreaker(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, func(o *ClientOptions) {
		o.MaxRetries = 0
		o.BreakerThreshold = 1
		o.BreakerCooldown = time.Minute
	})

	_, err := client.SendText(context.Background(), "hello")
	require.Error(t, err)

	_, err = client.SendText(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestClientFetchCard(t *testing.T) {
	ts := newTestServer(t, &echoExecutor{})
	client := NewClient(ts.URL)

	card, err := client.FetchCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo-agent", card.Name)
}

func TestClientGetAndCancelTask(t *testing.T) {
	exec := &echoExecutor{}
	ts := newTestServer(t, exec)
	client := NewClient(ts.URL)

	reply, err := client.SendText(context.Background(), "hello")
	require.NoError(t, err)

	var task Task
	var resp RPCResponse
	require.NoError(t, json.Unmarshal(reply.Raw, &resp))
	require.NoError(t, json.Unmarshal(resp.Result, &task))

	fetched, err := client.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, fetched.Status.State)

	// Completed tasks cannot be canceled.
	_, err = client.CancelTask(context.Background(), task.ID)
	require.Error(t, err)
	assert.Contains(t, exec.canceled, task.ID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	// Byte 100 is the middle of a two-byte rune; the cut backs up to 99.
	got := truncate("x"+strings.Repeat("é", 200), 100)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "x"+strings.Repeat("é", 49)+"...", got)
}
