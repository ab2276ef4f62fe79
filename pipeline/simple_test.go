package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hupe1980/medflow/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRun(t *testing.T) {
	document := "Patient: Eleanor Richardson\nDiabetes follow-up.\n- Metformin 1000mg PO BID\nHbA1c: 7.2%"

	t.Run("full pipeline", func(t *testing.T) {
		caller := newMockCaller()
		caller.onData(agent.NameKeyword, map[string]any{
			"patterns": []any{"diabetes", "metformin"},
		})
		caller.onData(agent.NameGrep, map[string]any{"matches": []any{
			map[string]any{"line_number": float64(2), "match_text": "Diabetes"},
			map[string]any{"line_number": float64(2), "match_text": "diabetes"},
			map[string]any{"line_number": float64(3), "match_text": "Metformin"},
		}})
		caller.onText(agent.NameChunk, "CHUNK A")
		caller.onText(agent.NameChunk, "CHUNK B")
		caller.onText(agent.NameSummarize, "Controlled diabetes on Metformin.")

		p := NewSimple(caller)
		result, err := p.Run(context.Background(), document)
		require.NoError(t, err)

		assert.Equal(t, "Controlled diabetes on Metformin.", result.Summary)
		assert.Equal(t, 2, result.Patterns)
		assert.Equal(t, 3, result.Matches)
		assert.Equal(t, 2, result.Chunks)

		chunkCalls := caller.callsTo(agent.NameChunk)
		require.Len(t, chunkCalls, 2)
		assert.Equal(t, 2, chunkCalls[0].data["context_size"])
		assert.Equal(t, document, chunkCalls[0].data["document_content"])

		sumCalls := caller.callsTo(agent.NameSummarize)
		require.Len(t, sumCalls, 1)
		assert.Equal(t, []string{"CHUNK A", "CHUNK B"}, sumCalls[0].data["chunks"])

		md := result.Markdown()
		assert.Contains(t, md, "Patterns generated: 2")
		assert.Contains(t, md, "Matches found: 3")
		assert.Contains(t, md, "Controlled diabetes on Metformin.")
	})

	t.Run("keyword failure falls back to default patterns", func(t *testing.T) {
		caller := newMockCaller()
		caller.onErr(agent.NameKeyword, errors.New("timeout"))
		caller.onData(agent.NameGrep, map[string]any{"matches": []any{}})

		p := NewSimple(caller)
		result, err := p.Run(context.Background(), document)
		require.NoError(t, err)

		grepCalls := caller.callsTo(agent.NameGrep)
		require.Len(t, grepCalls, 1)
		assert.Equal(t, defaultMedicalPatterns, grepCalls[0].data["patterns"])
		assert.Equal(t, "No matches found in the document.", result.Summary)
	})

	t.Run("no matches skips summarization", func(t *testing.T) {
		caller := newMockCaller()
		caller.onData(agent.NameKeyword, map[string]any{"patterns": []any{"xyz"}})
		caller.onData(agent.NameGrep, map[string]any{"matches": []any{}})

		p := NewSimple(caller)
		result, err := p.Run(context.Background(), document)
		require.NoError(t, err)

		assert.Equal(t, "No matches found in the document.", result.Summary)
		assert.Empty(t, caller.callsTo(agent.NameSummarize))
	})

	t.Run("single line document chunked once", func(t *testing.T) {
		caller := newMockCaller()
		caller.onData(agent.NameKeyword, map[string]any{"patterns": []any{"mg"}})
		caller.onData(agent.NameGrep, map[string]any{"matches": []any{
			map[string]any{"line_number": float64(1), "match_text": "10mg"},
			map[string]any{"line_number": float64(1), "match_text": "20mg"},
			map[string]any{"line_number": float64(1), "match_text": "30mg"},
		}})
		caller.onText(agent.NameChunk, "CHUNK")
		caller.onText(agent.NameSummarize, "Summary.")

		p := NewSimple(caller)
		result, err := p.Run(context.Background(), "Takes 10mg then 20mg then 30mg daily.")
		require.NoError(t, err)

		assert.Len(t, caller.callsTo(agent.NameChunk), 1)
		assert.Equal(t, 1, result.Chunks)
	})

	t.Run("summarize failure returns raw context", func(t *testing.T) {
		caller := newMockCaller()
		caller.onData(agent.NameKeyword, map[string]any{"patterns": []any{"diabetes"}})
		caller.onData(agent.NameGrep, map[string]any{"matches": []any{
			map[string]any{"line_number": float64(2), "match_text": "Diabetes"},
		}})
		caller.onText(agent.NameChunk, "CHUNK A")
		caller.onErr(agent.NameSummarize, errors.New("model overloaded"))

		p := NewSimple(caller)
		result, err := p.Run(context.Background(), document)
		require.NoError(t, err)

		assert.Contains(t, result.Summary, "Summarization unavailable")
		assert.Contains(t, result.Summary, "CHUNK A")
	})

	t.Run("chunk cap respected", func(t *testing.T) {
		matches := make([]any, 0, 8)
		for i := 1; i <= 8; i++ {
			matches = append(matches, map[string]any{"line_number": float64(i), "match_text": "m"})
		}

		caller := newMockCaller()
		caller.onData(agent.NameKeyword, map[string]any{"patterns": []any{"m"}})
		caller.onData(agent.NameGrep, map[string]any{"matches": matches})

		p := NewSimple(caller)
		_, err := p.Run(context.Background(), document)
		require.NoError(t, err)

		assert.Len(t, caller.callsTo(agent.NameChunk), defaultMaxChunks)
	})

	t.Run("empty document rejected", func(t *testing.T) {
		p := NewSimple(newMockCaller())
		_, err := p.Run(context.Background(), "   ")
		assert.Error(t, err)
	})
}

func TestHead(t *testing.T) {
	t.Run("short input unchanged", func(t *testing.T) {
		assert.Equal(t, "note", head("note", 10))
	})

	t.Run("cut stays on a rune boundary", func(t *testing.T) {
		s := "x" + strings.Repeat("é", 800)

		got := head(s, 1000)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, len(got), 1000)
	})
}
