package agent

import (
	"fmt"
	"sort"

	"github.com/hupe1980/medflow/model"
)

// Canonical short names the registry and orchestrators address agents by.
const (
	NameKeyword            = "keyword"
	NameGrep               = "grep"
	NameChunk              = "chunk"
	NameSummarize          = "summarize"
	NameTemporalTagging    = "temporal_tagging"
	NameEncounterGrouping  = "encounter_grouping"
	NameReconciliation     = "reconciliation"
	NameSummaryExtractor   = "summary_extractor"
	NameTimelineBuilder    = "timeline_builder"
	NameChecker            = "checker"
	NameUnifiedExtractor   = "unified_extractor"
	NameUnifiedVerifier    = "unified_verifier"
	NameNarrativeSynthesis = "narrative_synthesis"
)

// Catalog maps every agent short name to its handler constructor. LLM-free
// agents (grep, chunk) ignore the model.
func Catalog(m model.Model) map[string]Handler {
	return map[string]Handler{
		NameKeyword:            NewKeyword(m),
		NameGrep:               NewGrep(),
		NameChunk:              NewChunk(),
		NameSummarize:          NewSummarize(m),
		NameTemporalTagging:    NewTemporalTagging(m),
		NameEncounterGrouping:  NewEncounterGrouping(m),
		NameReconciliation:     NewReconciliation(m),
		NameSummaryExtractor:   NewSummaryExtractor(m),
		NameTimelineBuilder:    NewTimelineBuilder(m),
		NameChecker:            NewChecker(m),
		NameUnifiedExtractor:   NewUnifiedExtractor(m),
		NameUnifiedVerifier:    NewUnifiedVerifier(m),
		NameNarrativeSynthesis: NewNarrativeSynthesis(m),
	}
}

// Lookup returns the handler for a short name.
func Lookup(m model.Model, name string) (Handler, error) {
	catalog := Catalog(m)
	h, ok := catalog[name]
	if !ok {
		names := make([]string, 0, len(catalog))
		for n := range catalog {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown agent %q (known: %v)", name, names)
	}
	return h, nil
}
