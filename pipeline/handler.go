package pipeline

import (
	"context"
	"fmt"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/agent"
)

// SimpleHandler exposes the simple pipeline as an A2A agent, so the
// orchestrator itself can be addressed like any other agent in the fleet.
type SimpleHandler struct {
	pipeline *Simple
}

// NewSimpleHandler wraps a simple pipeline in an agent handler.
func NewSimpleHandler(p *Simple) *SimpleHandler {
	return &SimpleHandler{pipeline: p}
}

// Name implements agent.Handler.
func (h *SimpleHandler) Name() string { return "Simple Pipeline Orchestrator" }

// Description implements agent.Handler.
func (h *SimpleHandler) Description() string {
	return "Runs a fixed document-analysis pipeline (keyword, grep, chunk, summarize). " +
		"No branching or tool-selection logic, purely sequential for traceability."
}

// Skills implements agent.Handler.
func (h *SimpleHandler) Skills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "simple_pipeline",
			Name:        "Simple Pipeline Execution",
			Description: "Execute keyword, grep, chunk and summarize in order.",
			Tags:        []string{"pipeline", "sequential", "orchestrator"},
			InputModes:  []string{"text/plain"},
			OutputModes: []string{"text/markdown"},
		},
	}
}

// Process implements agent.Handler.
func (h *SimpleHandler) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	document := pipelineDocument(req)
	if document == "" {
		return nil, fmt.Errorf("simple pipeline needs a document to analyze")
	}

	result, err := h.pipeline.Run(ctx, document)
	if err != nil {
		return nil, err
	}

	return &agent.Response{
		Text: result.Markdown(),
		Data: map[string]any{
			"patterns": result.Patterns,
			"matches":  result.Matches,
			"chunks":   result.Chunks,
			"summary":  result.Summary,
		},
	}, nil
}

// CancerHandler exposes the oncology pipeline as an A2A agent.
type CancerHandler struct {
	pipeline *Cancer
}

// NewCancerHandler wraps a cancer pipeline in an agent handler.
func NewCancerHandler(p *Cancer) *CancerHandler {
	return &CancerHandler{pipeline: p}
}

// Name implements agent.Handler.
func (h *CancerHandler) Name() string { return "Cancer Summarization Pipeline" }

// Description implements agent.Handler.
func (h *CancerHandler) Description() string {
	return "Fixed-sequence orchestrator for cancer document analysis. Executes keyword, " +
		"grep, chunk, temporal tagging, encounter grouping, reconciliation, summary " +
		"extraction, timeline building, quality checking with retry, unified extraction, " +
		"verification and narrative synthesis."
}

// Skills implements agent.Handler.
func (h *CancerHandler) Skills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "cancer_analysis",
			Name:        "Cancer Document Analysis",
			Description: "Comprehensive analysis of cancer-related medical documents.",
			Tags:        []string{"cancer", "oncology", "medical", "pipeline"},
			Examples: []string{
				"Analyze this oncology report",
				"Summarize cancer patient history",
				"Extract cancer staging and treatment information",
			},
		},
	}
}

// Process implements agent.Handler.
func (h *CancerHandler) Process(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	document := pipelineDocument(req)
	if document == "" {
		return nil, fmt.Errorf("cancer pipeline needs a document to analyze")
	}

	result, err := h.pipeline.Run(ctx, document)
	if err != nil {
		return nil, err
	}

	return &agent.Response{
		Text: result.Narrative,
		Data: map[string]any{
			"partial":          result.Partial,
			"checker_attempts": result.CheckerAttempts,
			"steps":            result.Steps,
		},
	}, nil
}

func pipelineDocument(req *agent.Request) string {
	if doc := req.String("document_content"); doc != "" {
		return doc
	}
	if doc := req.String("document"); doc != "" {
		return doc
	}
	return req.Text
}
