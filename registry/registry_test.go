package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeRegistryFile(t, `{"agents":{
			"keyword":{"url":"http://localhost:8001","description":"Keyword extraction"},
			"grep_patterns":{"url":"http://localhost:8002"}
		}}`)

		reg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"grep_patterns", "keyword"}, reg.Names())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("entry without url", func(t *testing.T) {
		path := writeRegistryFile(t, `{"agents":{"keyword":{"description":"no url"}}}`)

		_, err := Load(path)
		assert.ErrorContains(t, err, "has no url")
	})

	t.Run("env override", func(t *testing.T) {
		path := writeRegistryFile(t, `{"agents":{"chunk":{"url":"http://localhost:8003"}}}`)
		t.Setenv("MEDFLOW_AGENTS_FILE", path)

		reg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, []string{"chunk"}, reg.Names())
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "agents.json")

	reg := New(map[string]Entry{
		"keyword": {URL: "http://localhost:8002", Description: "Keyword patterns"},
		"grep":    {URL: "http://localhost:8003"},
	})
	require.NoError(t, reg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"grep", "keyword"}, loaded.Names())

	entry, ok := loaded.Lookup("keyword")
	require.True(t, ok)
	assert.Equal(t, "Keyword patterns", entry.Description)
}

func TestResolve(t *testing.T) {
	reg := New(map[string]Entry{
		"keyword": {URL: "http://localhost:8001"},
	})

	t.Run("by name", func(t *testing.T) {
		url, err := reg.Resolve("keyword")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8001", url)
	})

	t.Run("url passthrough", func(t *testing.T) {
		url, err := reg.Resolve("https://agents.example.com/keyword")
		require.NoError(t, err)
		assert.Equal(t, "https://agents.example.com/keyword", url)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := reg.Resolve("summarizer")
		assert.ErrorContains(t, err, `unknown agent "summarizer"`)
	})
}

func TestLookup(t *testing.T) {
	reg := New(map[string]Entry{
		"keyword": {URL: "http://localhost:8001", Description: "Keyword extraction"},
	})

	entry, ok := reg.Lookup("keyword")
	require.True(t, ok)
	assert.Equal(t, "Keyword extraction", entry.Description)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}
