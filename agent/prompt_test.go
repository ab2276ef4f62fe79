package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/medflow/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptHandler(t *testing.T) {
	t.Run("passes text through the model", func(t *testing.T) {
		m := model.NewMockModel()
		m.AddResponse("Tag dates in this text", "11/20/2024: follow-up visit")

		h := NewTemporalTagging(m)
		resp, err := h.Process(context.Background(), &Request{Text: "Tag dates in this text"})
		require.NoError(t, err)

		assert.Equal(t, "11/20/2024: follow-up visit", resp.Text)

		reqs := m.Requests()
		require.Len(t, reqs, 1)
		assert.Contains(t, reqs[0].System, "temporal")
	})

	t.Run("empty input rejected", func(t *testing.T) {
		h := NewChecker(model.NewMockModel())
		_, err := h.Process(context.Background(), &Request{Text: "  "})
		assert.Error(t, err)
	})

	t.Run("model failure surfaces", func(t *testing.T) {
		m := model.NewMockModel()
		m.FailWith(errors.New("quota"))

		h := NewNarrativeSynthesis(m)
		_, err := h.Process(context.Background(), &Request{Text: "data"})
		assert.ErrorContains(t, err, "quota")
	})
}

func TestCatalog(t *testing.T) {
	catalog := Catalog(model.NewMockModel())

	assert.Len(t, catalog, 13)
	for _, name := range []string{
		NameKeyword, NameGrep, NameChunk, NameSummarize,
		NameTemporalTagging, NameEncounterGrouping, NameReconciliation,
		NameSummaryExtractor, NameTimelineBuilder, NameChecker,
		NameUnifiedExtractor, NameUnifiedVerifier, NameNarrativeSynthesis,
	} {
		require.Contains(t, catalog, name)
		assert.NotEmpty(t, catalog[name].Name())
		assert.NotEmpty(t, catalog[name].Skills())
	}
}

func TestLookup(t *testing.T) {
	m := model.NewMockModel()

	h, err := Lookup(m, NameGrep)
	require.NoError(t, err)
	assert.Equal(t, "Pattern Search Agent", h.Name())

	_, err = Lookup(m, "nope")
	assert.ErrorContains(t, err, `unknown agent "nope"`)
}
