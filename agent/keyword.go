package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/model"
)

const (
	defaultMaxPatterns = 30
	previewLines       = 30
	previewMaxChars    = 1500
)

// Pattern categories the keyword agent asks the model to fill. The flat
// "patterns" list downstream consumers use is the concatenation of all of
// them.
var patternCategories = []string{
	"section_patterns",
	"clinical_patterns",
	"medication_patterns",
	"date_patterns",
}

// KeywordHandler generates regex search patterns from a document preview
// using an LLM. When the model call fails the agent reports the failure in
// its payload and returns an empty pattern list rather than inventing
// generic patterns.
type KeywordHandler struct {
	model       model.Model
	maxPatterns int
}

// KeywordOptions configure NewKeyword.
type KeywordOptions struct {
	MaxPatterns int
}

// NewKeyword creates the keyword agent handler.
func NewKeyword(m model.Model, optFns ...func(o *KeywordOptions)) *KeywordHandler {
	opts := KeywordOptions{MaxPatterns: defaultMaxPatterns}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &KeywordHandler{model: m, maxPatterns: opts.MaxPatterns}
}

// Name implements Handler.
func (h *KeywordHandler) Name() string { return "Keyword Pattern Agent" }

// Description implements Handler.
func (h *KeywordHandler) Description() string {
	return "Generates regex search patterns from a medical document preview, " +
		"categorized into sections, clinical terms, medications and dates."
}

// Skills implements Handler.
func (h *KeywordHandler) Skills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "generate_patterns",
			Name:        "Generate Keyword Patterns",
			Description: "Generate document-specific regex patterns for downstream search.",
			Tags:        []string{"keywords", "regex", "patterns", "llm"},
			Examples: []string{
				"Generate patterns for this discharge summary",
				"Find patterns for cancer staging information",
			},
		},
	}
}

// Process implements Handler. The document arrives as text or under
// "document_content"; an optional "focus" string steers pattern generation.
func (h *KeywordHandler) Process(ctx context.Context, req *Request) (*Response, error) {
	document := req.String("document_content")
	if document == "" {
		document = req.Text
	}
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("keyword agent needs document text")
	}

	focus := req.String("focus")
	info := h.model.Info()

	data, err := model.GenerateJSON(ctx, h.model, model.Request{
		System: keywordSystem,
		Prompt: keywordPrompt(preview(document), focus, h.maxPatterns),
	})
	if err != nil {
		// No fallback patterns: downstream agents handle empty lists, and
		// invented generics would poison the search.
		return &Response{
			Text: fmt.Sprintf("Pattern generation failed: %v", err),
			Data: map[string]any{
				"patterns":       []any{},
				"total_patterns": 0,
				"error":          err.Error(),
				"provider":       info.Provider,
				"model":          info.Name,
			},
		}, nil
	}

	flat := flattenPatterns(data, h.maxPatterns)

	out := map[string]any{
		"patterns":       toAnySlice(flat),
		"total_patterns": len(flat),
		"provider":       info.Provider,
		"model":          info.Name,
	}
	for _, cat := range patternCategories {
		if v, ok := data[cat]; ok {
			out[cat] = v
		}
	}

	return &Response{
		Text: fmt.Sprintf("Generated %d search patterns.", len(flat)),
		Data: out,
	}, nil
}

// preview truncates the document to its first lines for the prompt.
func preview(document string) string {
	lines := strings.Split(document, "\n")
	if len(lines) > previewLines {
		lines = lines[:previewLines]
	}
	p := strings.Join(lines, "\n")
	if len(p) > previewMaxChars {
		cut := previewMaxChars
		for cut > 0 && !utf8.RuneStart(p[cut]) {
			cut--
		}
		p = p[:cut]
	}
	return p
}

// flattenPatterns concatenates the categorized lists, falling back to a flat
// "patterns" key, deduplicating while preserving order.
func flattenPatterns(data map[string]any, limit int) []string {
	var raw []any
	for _, cat := range patternCategories {
		if list, ok := data[cat].([]any); ok {
			raw = append(raw, list...)
		}
	}
	if raw == nil {
		if list, ok := data["patterns"].([]any); ok {
			raw = list
		}
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	return out
}

const keywordSystem = `You are a medical information retrieval specialist. ` +
	`You generate precise regex patterns for searching medical documents. ` +
	`You reply with a single JSON object and nothing else.`

func keywordPrompt(preview, focus string, maxPatterns int) string {
	var b strings.Builder
	b.WriteString("Analyze this medical document preview and generate regex patterns for finding the document's medical information.\n\n")
	b.WriteString("Document preview:\n")
	b.WriteString(preview)
	b.WriteString("\n\n")
	if focus != "" {
		b.WriteString("Focus: " + focus + "\n\n")
	}
	fmt.Fprintf(&b, `Reply with a JSON object of this exact shape:
{
  "section_patterns": ["..."],
  "clinical_patterns": ["..."],
  "medication_patterns": ["..."],
  "date_patterns": ["..."]
}

Requirements:
- Go (RE2) compatible regex syntax, no backreferences or lookaheads
- Use (?i) where case-insensitive matching is appropriate
- Generate REAL patterns based on the actual document content, no placeholders
- At most %d patterns in total`, maxPatterns)
	return b.String()
}
