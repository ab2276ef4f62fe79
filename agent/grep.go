package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/medflow/a2a"
)

// Search limits. Per-pattern and global caps keep pathological patterns from
// flooding downstream LLM steps.
const (
	defaultMaxMatchesPerPattern = 100
	defaultContextLines         = 3
	maxTotalMatches             = 1000
	singleLineThreshold         = 1000
)

// Match is one pattern hit in a document.
type Match struct {
	Pattern       string   `json:"pattern"`
	LineNumber    int      `json:"line_number"`
	LineContent   string   `json:"line_content"`
	MatchText     string   `json:"match_text"`
	MatchStart    int      `json:"match_start"`
	MatchEnd      int      `json:"match_end"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

// PatternError reports a pattern that could not be compiled, with a fix
// suggestion when a common mistake is recognizable.
type PatternError struct {
	Pattern      string `json:"pattern"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// GrepHandler performs deterministic multi-pattern regex search over a
// document. No LLM involved: given the same document and patterns it always
// returns the same matches.
type GrepHandler struct {
	maxMatchesPerPattern int
	contextLines         int
}

// GrepOptions configure NewGrep.
type GrepOptions struct {
	MaxMatchesPerPattern int
	ContextLines         int
}

// NewGrep creates the grep agent handler.
func NewGrep(optFns ...func(o *GrepOptions)) *GrepHandler {
	opts := GrepOptions{
		MaxMatchesPerPattern: defaultMaxMatchesPerPattern,
		ContextLines:         defaultContextLines,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &GrepHandler{
		maxMatchesPerPattern: opts.MaxMatchesPerPattern,
		contextLines:         opts.ContextLines,
	}
}

// Name implements Handler.
func (h *GrepHandler) Name() string { return "Pattern Search Agent" }

// Description implements Handler.
func (h *GrepHandler) Description() string {
	return "Searches medical documents for regex patterns with error recovery, " +
		"returning matched lines with surrounding context."
}

// Skills implements Handler.
func (h *GrepHandler) Skills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "search_patterns",
			Name:        "Search Medical Patterns",
			Description: "Search a document for multiple regex patterns and return matches with context.",
			Tags:        []string{"search", "regex", "grep", "medical"},
			Examples: []string{
				"Search for medication dosages",
				"Find all TNM staging mentions",
			},
		},
	}
}

// Process implements Handler. Expects a data payload with "patterns" and
// "document_content"; optional "case_sensitive", "max_matches" and
// "context_lines" tune the search.
func (h *GrepHandler) Process(ctx context.Context, req *Request) (*Response, error) {
	patterns := req.StringSlice("patterns")
	document := req.String("document_content")
	if document == "" {
		document = req.String("document")
	}
	if document == "" && req.Data == nil {
		// Plain-text invocation: nothing structured to search with.
		return nil, fmt.Errorf("grep agent needs a data payload with patterns and document_content")
	}

	caseSensitive := req.Bool("case_sensitive", false)
	maxMatches := req.Int("max_matches", h.maxMatchesPerPattern)
	contextLines := req.Int("context_lines", h.contextLines)

	result := h.Search(document, patterns, caseSensitive, maxMatches, contextLines)

	matches := make([]any, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, matchMap(m))
	}
	errs := make([]any, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, map[string]any{
			"pattern":       e.Pattern,
			"message":       e.Message,
			"suggested_fix": e.SuggestedFix,
		})
	}

	data := map[string]any{
		"matches":              matches,
		"total_matches":        len(matches),
		"patterns_searched":    len(patterns),
		"successful_patterns":  result.SuccessfulPatterns,
		"errors":               errs,
		"single_line_document": result.SingleLine,
	}

	text := fmt.Sprintf("Found %d matches across %d patterns (%d pattern errors).",
		len(matches), len(patterns), len(errs))

	return &Response{Text: text, Data: data}, nil
}

// SearchResult is the outcome of one multi-pattern search.
type SearchResult struct {
	Matches            []Match
	Errors             []PatternError
	SuccessfulPatterns int
	SingleLine         bool
}

// Search runs every pattern over the document. Matches are globally capped
// and sorted by line number. Invalid patterns are reported, not fatal.
func (h *GrepHandler) Search(document string, patterns []string, caseSensitive bool, maxMatches, contextLines int) *SearchResult {
	lines, singleLine := documentLines(document)

	result := &SearchResult{SingleLine: singleLine}

	for _, pattern := range patterns {
		re, perr := compilePattern(pattern, caseSensitive)
		if perr != nil {
			result.Errors = append(result.Errors, *perr)
			continue
		}
		result.SuccessfulPatterns++

		count := 0
		for i, line := range lines {
			if count >= maxMatches || len(result.Matches) >= maxTotalMatches {
				break
			}
			for _, loc := range re.FindAllStringIndex(line, -1) {
				if count >= maxMatches || len(result.Matches) >= maxTotalMatches {
					break
				}
				result.Matches = append(result.Matches, Match{
					Pattern:       pattern,
					LineNumber:    i + 1,
					LineContent:   strings.TrimSpace(line),
					MatchText:     line[loc[0]:loc[1]],
					MatchStart:    loc[0],
					MatchEnd:      loc[1],
					ContextBefore: contextSlice(lines, i-contextLines, i),
					ContextAfter:  contextSlice(lines, i+1, i+1+contextLines),
				})
				count++
			}
		}
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].LineNumber < result.Matches[j].LineNumber
	})

	return result
}

// documentLines splits a document for searching. Documents that arrive as
// one huge line (EHR exports frequently strip newlines) are re-split on
// sentence boundaries so line numbers stay meaningful.
func documentLines(document string) ([]string, bool) {
	lines := strings.Split(document, "\n")

	long := false
	for _, line := range lines {
		if len(line) > singleLineThreshold {
			long = true
			break
		}
	}
	if len(lines) > 3 || !long {
		return lines, false
	}

	return splitSentences(document), true
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// splitSentences breaks text after sentence-ending punctuation.
func splitSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\n")
	parts := strings.Split(marked, "\n")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// compilePattern compiles a pattern honoring a leading (?i) flag and the
// case-sensitivity default. Compile failures come back with a suggested fix
// for the common mistakes LLM-generated patterns make.
func compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, *PatternError) {
	clean := pattern
	insensitive := !caseSensitive

	if strings.HasPrefix(clean, "(?i)") {
		clean = strings.TrimPrefix(clean, "(?i)")
		insensitive = true
	}
	if insensitive {
		clean = "(?i)" + clean
	}

	re, err := regexp.Compile(clean)
	if err == nil {
		return re, nil
	}

	return nil, &PatternError{
		Pattern:      pattern,
		Message:      fmt.Sprintf("invalid regex pattern: %v", err),
		SuggestedFix: suggestFix(pattern, err),
	}
}

// suggestFix proposes a corrected pattern for recognizable regex errors,
// returning "" when no safe fix exists.
func suggestFix(pattern string, err error) string {
	msg := err.Error()

	var fix string
	switch {
	case strings.Contains(msg, "unexpected )") || strings.Contains(msg, "missing closing )"):
		fix = strings.NewReplacer("(", `\(`, ")", `\)`).Replace(pattern)
	case strings.Contains(msg, "invalid escape"):
		fix = strings.ReplaceAll(pattern, `\`, `\\`)
	case strings.Contains(msg, "missing argument to repetition"):
		fix = regexp.QuoteMeta(pattern)
	default:
		return ""
	}

	if _, err := regexp.Compile(fix); err != nil {
		return ""
	}
	return fix
}

func contextSlice(lines []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return nil
	}
	out := make([]string, 0, to-from)
	for _, line := range lines[from:to] {
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

func matchMap(m Match) map[string]any {
	out := map[string]any{
		"pattern":      m.Pattern,
		"line_number":  m.LineNumber,
		"line_content": m.LineContent,
		"match_text":   m.MatchText,
		"match_start":  m.MatchStart,
		"match_end":    m.MatchEnd,
	}
	if m.ContextBefore != nil {
		out["context_before"] = toAnySlice(m.ContextBefore)
	}
	if m.ContextAfter != nil {
		out["context_after"] = toAnySlice(m.ContextAfter)
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
