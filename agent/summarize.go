package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/model"
)

// SummarizeHandler produces a clinical summary of extracted chunks using an
// LLM. Style is caller-selectable: concise, detailed or clinical.
type SummarizeHandler struct {
	model model.Model
	style string
}

// SummarizeOptions configure NewSummarize.
type SummarizeOptions struct {
	Style string
}

// NewSummarize creates the summarize agent handler.
func NewSummarize(m model.Model, optFns ...func(o *SummarizeOptions)) *SummarizeHandler {
	opts := SummarizeOptions{Style: "concise"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SummarizeHandler{model: m, style: opts.Style}
}

// Name implements Handler.
func (h *SummarizeHandler) Name() string { return "Medical Summarization Agent" }

// Description implements Handler.
func (h *SummarizeHandler) Description() string {
	return "Summarizes extracted medical text chunks into a clinical summary " +
		"with key findings, medications and test results."
}

// Skills implements Handler.
func (h *SummarizeHandler) Skills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "summarize_chunks",
			Name:        "Summarize Medical Chunks",
			Description: "Generate a clinical summary from extracted document chunks.",
			Tags:        []string{"summarization", "clinical", "llm"},
			Examples: []string{
				"Summarize these lab results",
				"Create a clinical overview of these findings",
			},
		},
	}
}

// Process implements Handler. Accepts chunks under "chunks" (list) or the
// whole text payload; optional "style" overrides the configured style.
func (h *SummarizeHandler) Process(ctx context.Context, req *Request) (*Response, error) {
	content := strings.Join(req.StringSlice("chunks"), "\n\n")
	if content == "" {
		content = req.String("content")
	}
	if content == "" {
		content = req.Text
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("summarize agent needs text to summarize")
	}

	style := req.String("style")
	if style == "" {
		style = h.style
	}

	resp, err := h.model.Generate(ctx, model.Request{
		System: summarizeSystem,
		Prompt: summarizePrompt(content, style),
	})
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}

	info := h.model.Info()

	return &Response{
		Text: resp.Text,
		Data: map[string]any{
			"summary":  resp.Text,
			"style":    style,
			"provider": info.Provider,
			"model":    info.Name,
		},
	}, nil
}

const summarizeSystem = `You are a clinical documentation specialist. ` +
	`You summarize medical text accurately, never inventing findings that are ` +
	`not present in the source.`

func summarizePrompt(content, style string) string {
	styleLine := map[string]string{
		"concise":  "2-3 sentences capturing the key medical information.",
		"detailed": "A detailed paragraph with all relevant medical details.",
		"clinical": "A clinical-style summary focusing on diagnoses and treatments.",
	}[style]
	if styleLine == "" {
		styleLine = "A concise summary of the key medical information."
	}

	return fmt.Sprintf(`Summarize the following medical text.

Summary style: %s

Include, where present:
- Primary diagnoses with current status
- Active treatments and medications with dosages
- Significant test results
- Follow-up plans

Medical text:
%s`, styleLine, content)
}
