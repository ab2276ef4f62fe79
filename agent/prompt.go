package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/model"
)

// PromptHandler is a prompt-configured LLM agent: the oncology pipeline
// stages differ only in their system instruction, so they share one handler
// type instead of nine near-identical ones.
type PromptHandler struct {
	model       model.Model
	name        string
	description string
	system      string
	skill       a2a.AgentSkill
}

// NewPromptHandler creates an LLM agent from a system instruction.
func NewPromptHandler(m model.Model, name, description, system string, skill a2a.AgentSkill) *PromptHandler {
	return &PromptHandler{
		model:       m,
		name:        name,
		description: description,
		system:      system,
		skill:       skill,
	}
}

// Name implements Handler.
func (h *PromptHandler) Name() string { return h.name }

// Description implements Handler.
func (h *PromptHandler) Description() string { return h.description }

// Skills implements Handler.
func (h *PromptHandler) Skills() []a2a.AgentSkill { return []a2a.AgentSkill{h.skill} }

// Process implements Handler. The incoming payload — text or a structured
// object rendered as JSON by the message flattening — becomes the prompt.
func (h *PromptHandler) Process(ctx context.Context, req *Request) (*Response, error) {
	prompt := strings.TrimSpace(req.Text)
	if prompt == "" {
		return nil, fmt.Errorf("%s needs input text", h.name)
	}

	resp, err := h.model.Generate(ctx, model.Request{System: h.system, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", h.name, err)
	}

	return &Response{Text: resp.Text}, nil
}

// The oncology pipeline stages. Each constructor fixes the stage's system
// instruction; the orchestrator supplies the stage payload as the prompt.

// NewTemporalTagging extracts dates and temporal references.
func NewTemporalTagging(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Temporal Tagging Agent",
		"Extracts and tags dates, times and temporal references related to medical events.",
		`You are a medical temporal extraction specialist. Identify every date, time and
temporal reference in the input and tag it with the medical event it belongs to:
diagnosis dates, treatment start and end dates, follow-up appointments, progression
timelines and remission periods. Preserve the original date formats. Output the tagged
events as a list, most recent last.`,
		a2a.AgentSkill{
			ID:          "temporal_tagging",
			Name:        "Temporal Tagging",
			Description: "Tag temporal information in medical text.",
			Tags:        []string{"temporal", "dates", "medical"},
		})
}

// NewEncounterGrouping groups events into clinical encounters.
func NewEncounterGrouping(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Encounter Grouping Agent",
		"Groups temporally tagged medical events into logical clinical encounters.",
		`You are a clinical encounter analyst. Group the supplied medical events into
logical encounters: visits, admissions, procedures and treatment sessions. Each group
gets a heading with the encounter date and type, followed by the events that belong to
it. Events without a clear encounter go into an "Unassigned" group at the end.`,
		a2a.AgentSkill{
			ID:          "encounter_grouping",
			Name:        "Encounter Grouping",
			Description: "Group medical events by clinical encounter.",
			Tags:        []string{"encounters", "grouping", "medical"},
		})
}

// NewReconciliation resolves conflicting information.
func NewReconciliation(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Reconciliation Agent",
		"Reconciles conflicting or duplicated medical information across encounters.",
		`You are a medical data reconciliation specialist. Merge duplicate facts and
resolve conflicts in the supplied encounter data. When two statements conflict, prefer
the more recent and more specific one, and note the discarded value in parentheses.
Output the reconciled data grouped the same way it arrived.`,
		a2a.AgentSkill{
			ID:          "reconciliation",
			Name:        "Data Reconciliation",
			Description: "Resolve conflicts and deduplicate medical data.",
			Tags:        []string{"reconciliation", "dedup", "medical"},
		})
}

// NewSummaryExtractor produces a structured summary. It is also the
// recipient of checker feedback during the verification loop.
func NewSummaryExtractor(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Summary Extractor Agent",
		"Extracts a structured medical summary covering diagnoses, treatments and outcomes.",
		`You are a medical summary extractor. Produce a structured summary of the supplied
data with these sections: Diagnoses, Staging/Grading, Treatments, Medications, Test
Results, Outcomes. Every statement must be traceable to the input. If the input carries
checker_feedback, revise the summary to address each point of the feedback.`,
		a2a.AgentSkill{
			ID:          "summary_extraction",
			Name:        "Summary Extraction",
			Description: "Extract a structured medical summary.",
			Tags:        []string{"summary", "extraction", "medical"},
		})
}

// NewTimelineBuilder builds a chronological timeline.
func NewTimelineBuilder(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Timeline Builder Agent",
		"Builds a chronological timeline of the patient's medical journey.",
		`You are a medical timeline builder. Arrange the supplied events into a single
chronological timeline from earliest to latest. Each entry: date, event, clinical
significance in one line. Flag entries whose date is ambiguous.`,
		a2a.AgentSkill{
			ID:          "timeline_building",
			Name:        "Timeline Building",
			Description: "Build a chronological medical timeline.",
			Tags:        []string{"timeline", "chronology", "medical"},
		})
}

// NewChecker verifies summary quality. Its reply drives the orchestrator's
// retry loop: the loop scans for issue keywords, so the instruction pins the
// exact approval phrase.
func NewChecker(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Quality Checker Agent",
		"Verifies accuracy, completeness and consistency of extracted summaries.",
		`You are a medical quality checker. Compare the supplied summary and timeline
against the original data and verify accuracy, completeness and consistency.

If everything is correct, reply with exactly: "APPROVED. No concerns found."
Otherwise list each finding on its own line, prefixed with "Issue:", and state what is
incorrect or missing and how to fix it.`,
		a2a.AgentSkill{
			ID:          "quality_check",
			Name:        "Quality Check",
			Description: "Verify summary accuracy and completeness.",
			Tags:        []string{"verification", "quality", "medical"},
		})
}

// NewUnifiedExtractor extracts all medical entities.
func NewUnifiedExtractor(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Unified Extractor Agent",
		"Extracts all medical entities: medications, procedures, diagnoses, labs and imaging.",
		`You are a medical entity extractor. Extract every medication (with dose, route,
frequency), procedure (with date), diagnosis (with staging or severity), laboratory
result (with value and reference range) and imaging finding from the supplied data.
Group entities by type.`,
		a2a.AgentSkill{
			ID:          "unified_extraction",
			Name:        "Unified Entity Extraction",
			Description: "Extract all medical entities from pipeline data.",
			Tags:        []string{"entities", "extraction", "medical"},
		})
}

// NewUnifiedVerifier performs the final verification pass.
func NewUnifiedVerifier(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Unified Verifier Agent",
		"Performs final verification of extracted data for completeness and medical validity.",
		`You are a medical data verifier performing the final pass before synthesis. Check
the extracted entities against the summary and timeline for completeness, internal
consistency and medical plausibility. Output the verified data, annotating anything
that could not be verified.`,
		a2a.AgentSkill{
			ID:          "unified_verification",
			Name:        "Unified Verification",
			Description: "Final verification of extracted medical data.",
			Tags:        []string{"verification", "validation", "medical"},
		})
}

// NewNarrativeSynthesis creates the final narrative.
func NewNarrativeSynthesis(m model.Model) *PromptHandler {
	return NewPromptHandler(m,
		"Narrative Synthesis Agent",
		"Synthesizes verified pipeline data into a coherent clinical narrative.",
		`You are a medical narrative writer. Synthesize the supplied verified data,
summary and timeline into a coherent clinical narrative of the patient's journey from
presentation to current status. Flowing prose, chronological order, clinically precise
wording. Do not introduce facts absent from the input.`,
		a2a.AgentSkill{
			ID:          "narrative_synthesis",
			Name:        "Narrative Synthesis",
			Description: "Create a clinical narrative from verified data.",
			Tags:        []string{"narrative", "synthesis", "medical"},
		})
}
