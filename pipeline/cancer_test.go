package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/medflow/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const oncologyDoc = `Patient: Margaret Chen
Diagnosis: Invasive ductal carcinoma, left breast, stage IIB (T2N1M0)
11/2023: Started neoadjuvant chemotherapy (AC-T protocol)
03/2024: Partial mastectomy, sentinel node biopsy
Current status: No evidence of disease`

const checkerApproval = "APPROVED. No concerns found."

// happyCaller scripts a clean 12-step run: six patterns, two matches, and an
// approving checker.
func happyCaller() *mockCaller {
	caller := newMockCaller()
	caller.onData(agent.NameKeyword, map[string]any{"patterns": []any{
		"carcinoma", "stage [IVX]+", "chemotherapy", "mastectomy", "metasta", "T[0-4]N[0-3]M[0-1]",
	}})
	caller.onData(agent.NameGrep, map[string]any{"matches": []any{
		map[string]any{"line_number": float64(2), "match_text": "carcinoma"},
		map[string]any{"line_number": float64(3), "match_text": "chemotherapy"},
	}})
	caller.onText(agent.NameChunk, "CHUNK 1")
	caller.onText(agent.NameChunk, "CHUNK 2")
	caller.onText(agent.NameTemporalTagging, "TEMPORAL")
	caller.onText(agent.NameEncounterGrouping, "ENCOUNTERS")
	caller.onText(agent.NameReconciliation, "RECONCILED")
	caller.onText(agent.NameSummaryExtractor, "SUMMARY")
	caller.onText(agent.NameTimelineBuilder, "TIMELINE")
	caller.onText(agent.NameChecker, checkerApproval)
	caller.onText(agent.NameUnifiedExtractor, "UNIFIED")
	caller.onText(agent.NameUnifiedVerifier, "VERIFIED")
	caller.onText(agent.NameNarrativeSynthesis, "THE NARRATIVE")
	return caller
}

func TestCancerRun(t *testing.T) {
	t.Run("twelve steps in order", func(t *testing.T) {
		caller := happyCaller()

		p := NewCancer(caller)
		result, err := p.Run(context.Background(), oncologyDoc)
		require.NoError(t, err)

		assert.Equal(t, "THE NARRATIVE", result.Narrative)
		assert.False(t, result.Partial)
		assert.Equal(t, 1, result.CheckerAttempts)

		assert.Equal(t, []string{
			agent.NameKeyword,
			agent.NameGrep,
			agent.NameChunk, agent.NameChunk,
			agent.NameTemporalTagging,
			agent.NameEncounterGrouping,
			agent.NameReconciliation,
			agent.NameSummaryExtractor,
			agent.NameTimelineBuilder,
			agent.NameChecker,
			agent.NameUnifiedExtractor,
			agent.NameUnifiedVerifier,
			agent.NameNarrativeSynthesis,
		}, caller.agentSequence())

		// Structured stage inputs travel as JSON text.
		checkerCalls := caller.callsTo(agent.NameChecker)
		require.Len(t, checkerCalls, 1)
		payload := checkerCalls[0].text
		assert.Equal(t, "SUMMARY", gjson.Get(payload, "summary").String())
		assert.Equal(t, "TIMELINE", gjson.Get(payload, "timeline").String())
		assert.Equal(t, "RECONCILED", gjson.Get(payload, "original_data").String())

		narrativeCalls := caller.callsTo(agent.NameNarrativeSynthesis)
		require.Len(t, narrativeCalls, 1)
		assert.Equal(t, "VERIFIED", gjson.Get(narrativeCalls[0].text, "verified_data").String())
	})

	t.Run("checker issues trigger summary revision", func(t *testing.T) {
		caller := newMockCaller()
		caller.onText(agent.NameSummaryExtractor, "SUMMARY V1")
		caller.onText(agent.NameSummaryExtractor, "SUMMARY V2")
		caller.onText(agent.NameChecker, "Issue: treatment start date is incorrect.")
		caller.onText(agent.NameChecker, checkerApproval)

		p := NewCancer(caller)
		result, err := p.Run(context.Background(), oncologyDoc)
		require.NoError(t, err)

		assert.Equal(t, 2, result.CheckerAttempts)

		extractorCalls := caller.callsTo(agent.NameSummaryExtractor)
		require.Len(t, extractorCalls, 2)
		fix := extractorCalls[1].text
		assert.Contains(t, gjson.Get(fix, "checker_feedback").String(), "Issue:")
		assert.Equal(t, int64(1), gjson.Get(fix, "attempt").Int())

		// Downstream steps see the revised summary.
		unifiedCalls := caller.callsTo(agent.NameUnifiedExtractor)
		require.Len(t, unifiedCalls, 1)
		assert.Equal(t, "SUMMARY V2", gjson.Get(unifiedCalls[0].text, "summary").String())
	})

	t.Run("checker loop bounded at max attempts", func(t *testing.T) {
		caller := newMockCaller()
		caller.onText(agent.NameChecker, "Issue: missing staging")
		caller.onText(agent.NameChecker, "Issue: still missing staging")
		caller.onText(agent.NameChecker, "Issue: problem persists")

		p := NewCancer(caller)
		result, err := p.Run(context.Background(), oncologyDoc)
		require.NoError(t, err)

		assert.Equal(t, 3, result.CheckerAttempts)
		assert.False(t, result.Partial)
		// Initial extraction plus one revision per non-final failed check.
		assert.Len(t, caller.callsTo(agent.NameSummaryExtractor), 3)
	})

	t.Run("late failure returns verified partial", func(t *testing.T) {
		caller := newMockCaller()
		caller.onText(agent.NameUnifiedVerifier, "VERIFIED DATA")
		caller.onErr(agent.NameNarrativeSynthesis, errors.New("model down"))

		p := NewCancer(caller)
		result, err := p.Run(context.Background(), oncologyDoc)
		require.NoError(t, err)

		assert.True(t, result.Partial)
		assert.Contains(t, result.Narrative, "Partial results (verified data):")
		assert.Contains(t, result.Narrative, "VERIFIED DATA")
	})

	t.Run("mid failure returns summary partial", func(t *testing.T) {
		caller := newMockCaller()
		caller.onText(agent.NameSummaryExtractor, "THE SUMMARY")
		caller.onErr(agent.NameTimelineBuilder, errors.New("unreachable"))

		p := NewCancer(caller)
		result, err := p.Run(context.Background(), oncologyDoc)
		require.NoError(t, err)

		assert.True(t, result.Partial)
		assert.Contains(t, result.Narrative, "Partial results (summary):")
		assert.Contains(t, result.Narrative, "THE SUMMARY")
	})

	t.Run("early failure yields error", func(t *testing.T) {
		caller := newMockCaller()
		caller.onErr(agent.NameGrep, errors.New("connection refused"))

		p := NewCancer(caller)
		_, err := p.Run(context.Background(), oncologyDoc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline failed after steps")
	})

	t.Run("sparse patterns padded with oncology defaults", func(t *testing.T) {
		caller := happyCaller()
		caller.scripts[agent.NameKeyword] = nil
		caller.onData(agent.NameKeyword, map[string]any{"patterns": []any{"her2", "brca"}})

		p := NewCancer(caller)
		_, err := p.Run(context.Background(), oncologyDoc)
		require.NoError(t, err)

		grepCalls := caller.callsTo(agent.NameGrep)
		require.Len(t, grepCalls, 1)
		patterns, ok := grepCalls[0].data["patterns"].([]string)
		require.True(t, ok)
		assert.Len(t, patterns, 2+len(defaultCancerPatterns))
		assert.Equal(t, "her2", patterns[0])
	})

	t.Run("keyword preview truncated", func(t *testing.T) {
		long := oncologyDoc
		for len(long) < 4000 {
			long += "\nAdditional follow-up note entry for padding purposes."
		}

		caller := happyCaller()
		p := NewCancer(caller)
		_, err := p.Run(context.Background(), long)
		require.NoError(t, err)

		kwCalls := caller.callsTo(agent.NameKeyword)
		require.Len(t, kwCalls, 1)
		assert.Less(t, len(kwCalls[0].text), 2000)
	})

	t.Run("empty document rejected", func(t *testing.T) {
		p := NewCancer(newMockCaller())
		_, err := p.Run(context.Background(), " ")
		assert.Error(t, err)
	})
}
