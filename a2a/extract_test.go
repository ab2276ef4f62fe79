package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	t.Run("task with artifact", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","id":"1","result":{"kind":"task","id":"t1","status":{"state":"completed"},"artifacts":[{"artifactId":"a1","parts":[{"kind":"text","text":"final summary"}]}]}}`
		assert.Equal(t, "final summary", ExtractText([]byte(raw)))
	})

	t.Run("task with status message only", func(t *testing.T) {
		raw := `{"result":{"kind":"task","status":{"state":"completed","message":{"kind":"message","role":"agent","parts":[{"kind":"text","text":"from status"}]}}}}`
		assert.Equal(t, "from status", ExtractText([]byte(raw)))
	})

	t.Run("last agent message in history wins", func(t *testing.T) {
		raw := `{"result":{"kind":"task","status":{"state":"completed"},"history":[
			{"kind":"message","role":"user","parts":[{"kind":"text","text":"question"}]},
			{"kind":"message","role":"agent","parts":[{"kind":"text","text":"draft"}]},
			{"kind":"message","role":"agent","parts":[{"kind":"text","text":"answer"}]}]}}`
		assert.Equal(t, "answer", ExtractText([]byte(raw)))
	})

	t.Run("bare message result", func(t *testing.T) {
		raw := `{"result":{"kind":"message","role":"agent","parts":[{"kind":"text","text":"direct"}]}}`
		assert.Equal(t, "direct", ExtractText([]byte(raw)))
	})

	t.Run("plain string result", func(t *testing.T) {
		raw := `{"result":"just text"}`
		assert.Equal(t, "just text", ExtractText([]byte(raw)))
	})

	t.Run("legacy text field", func(t *testing.T) {
		raw := `{"result":{"text":"old shape"}}`
		assert.Equal(t, "old shape", ExtractText([]byte(raw)))
	})

	t.Run("no envelope", func(t *testing.T) {
		raw := `{"kind":"message","role":"agent","parts":[{"kind":"text","text":"unwrapped"}]}`
		assert.Equal(t, "unwrapped", ExtractText([]byte(raw)))
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Equal(t, "", ExtractText([]byte(`{}`)))
	})
}

func TestExtractData(t *testing.T) {
	t.Run("single data part", func(t *testing.T) {
		raw := `{"result":{"kind":"message","role":"agent","parts":[{"kind":"data","data":{"patterns":["tnm","her2"]}}]}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		assert.Equal(t, []any{"tnm", "her2"}, data["patterns"])
	})

	t.Run("matches merged across parts", func(t *testing.T) {
		raw := `{"result":{"kind":"task","status":{"state":"completed","message":{"kind":"message","role":"agent","parts":[
			{"kind":"data","data":{"matches":[{"line_number":1}],"total_matches":1}},
			{"kind":"data","data":{"matches":[{"line_number":7}],"total_matches":1}}]}}}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		matches, ok := data["matches"].([]any)
		require.True(t, ok)
		assert.Len(t, matches, 2)
		assert.Equal(t, 2, data["total_matches"])
	})

	t.Run("json recovered from text part", func(t *testing.T) {
		raw := `{"result":{"kind":"message","role":"agent","parts":[{"kind":"text","text":"{\"summary\":\"stage II\",\"confidence\":0.9}"}]}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		assert.Equal(t, "stage II", data["summary"])
	})

	t.Run("non-json text yields nil", func(t *testing.T) {
		raw := `{"result":{"kind":"message","role":"agent","parts":[{"kind":"text","text":"prose only"}]}}`
		assert.Nil(t, ExtractData([]byte(raw)))
	})

	t.Run("bare object result", func(t *testing.T) {
		raw := `{"result":{"keywords":["metastasis"]}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		assert.Equal(t, []any{"metastasis"}, data["keywords"])
	})

	t.Run("full task reply absorbed once", func(t *testing.T) {
		// A completed Task carries the same agent reply three times: as the
		// status message, in history and as an artifact. The matches must be
		// counted once, and the echoed request must stay out of the data.
		raw := `{"jsonrpc":"2.0","id":"1","result":{"kind":"task","id":"t1","contextId":"c1",
			"status":{"state":"completed","message":{"kind":"message","role":"agent","parts":[
				{"kind":"data","data":{"matches":[{"line_number":3}],"total_matches":1}}]}},
			"history":[
				{"kind":"message","role":"user","parts":[{"kind":"data","data":{"patterns":["tnm"],"document_content":"full note text"}}]},
				{"kind":"message","role":"agent","parts":[{"kind":"data","data":{"matches":[{"line_number":3}],"total_matches":1}}]}],
			"artifacts":[{"artifactId":"a1","parts":[
				{"kind":"data","data":{"matches":[{"line_number":3}],"total_matches":1}}]}]}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		matches, ok := data["matches"].([]any)
		require.True(t, ok)
		assert.Len(t, matches, 1)
		assert.Equal(t, 1, data["total_matches"])
		assert.NotContains(t, data, "document_content")
		assert.NotContains(t, data, "patterns")
	})

	t.Run("user message data never leaks", func(t *testing.T) {
		raw := `{"result":{"kind":"task","status":{"state":"completed"},"history":[
			{"kind":"message","role":"user","parts":[{"kind":"data","data":{"document_content":"note"}}]},
			{"kind":"message","role":"agent","parts":[{"kind":"data","data":{"summary":"stable disease"}}]}]}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		assert.Equal(t, "stable disease", data["summary"])
		assert.NotContains(t, data, "document_content")
	})

	t.Run("artifact data parts included", func(t *testing.T) {
		raw := `{"result":{"kind":"task","status":{"state":"completed"},"artifacts":[{"artifactId":"a1","parts":[{"kind":"data","data":{"chunks":["..."]}}]}]}}`

		data := ExtractData([]byte(raw))
		require.NotNil(t, data)
		assert.Contains(t, data, "chunks")
	})
}

func TestNewReply(t *testing.T) {
	raw := []byte(`{"result":{"kind":"message","role":"agent","parts":[{"kind":"text","text":"hi"},{"kind":"data","data":{"ok":true}}]}}`)

	reply := NewReply(raw)

	assert.Equal(t, raw, reply.Raw)
	assert.Contains(t, reply.Text, "hi")
	require.NotNil(t, reply.Data)
	assert.Equal(t, true, reply.Data["ok"])
}
