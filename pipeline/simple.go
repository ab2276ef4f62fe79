package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/medflow/agent"
	"github.com/hupe1980/medflow/logging"
)

const (
	simplePreviewChars = 1000

	defaultMaxPatterns  = 20
	defaultMaxChunks    = 5
	defaultContextLines = 2
)

// defaultMedicalPatterns keep the pipeline moving when the keyword agent
// produces nothing usable.
var defaultMedicalPatterns = []string{
	`diabetes`,
	`hypertension`,
	`diagnosis`,
	`treatment`,
	`\b\d+\s*(mg|ml|mcg)\b`,
	`blood\s+pressure`,
	`heart\s+rate`,
	`temperature`,
	`medication`,
}

// SimpleOptions configure NewSimple.
type SimpleOptions struct {
	KeywordAgent   string
	GrepAgent      string
	ChunkAgent     string
	SummarizeAgent string

	MaxPatterns  int
	MaxChunks    int
	ContextLines int
	SummaryStyle string

	Logger logging.Logger
}

// Simple runs the fixed keyword → grep → chunk → summarize sequence. No
// branching or tool-selection logic, purely sequential for traceability.
type Simple struct {
	caller Caller
	opts   SimpleOptions
}

// NewSimple creates the simple pipeline orchestrator.
func NewSimple(caller Caller, optFns ...func(o *SimpleOptions)) *Simple {
	opts := SimpleOptions{
		KeywordAgent:   agent.NameKeyword,
		GrepAgent:      agent.NameGrep,
		ChunkAgent:     agent.NameChunk,
		SummarizeAgent: agent.NameSummarize,
		MaxPatterns:    defaultMaxPatterns,
		MaxChunks:      defaultMaxChunks,
		ContextLines:   defaultContextLines,
		SummaryStyle:   "clinical",
		Logger:         logging.NewNoOpLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Simple{caller: caller, opts: opts}
}

// SimpleResult captures the pipeline outcome and its step statistics.
type SimpleResult struct {
	Summary  string
	Patterns int
	Matches  int
	Chunks   int
	Elapsed  time.Duration
}

// Markdown renders the analysis report.
func (r *SimpleResult) Markdown() string {
	return fmt.Sprintf(`## Medical Document Analysis Complete

**Execution Time:** %.2f seconds

**Pipeline Statistics:**
- Patterns generated: %d
- Matches found: %d
- Chunks extracted: %d

**Summary:**
%s

---
*Analysis performed by Simple Pipeline Orchestrator*`,
		r.Elapsed.Seconds(), r.Patterns, r.Matches, r.Chunks, r.Summary)
}

// Run executes the pipeline on a document. Step failures are logged and the
// pipeline continues with whatever it has, so a partial result is still a
// result; only an unusable document yields an error.
func (p *Simple) Run(ctx context.Context, document string) (*SimpleResult, error) {
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("empty document")
	}

	start := time.Now()
	log := p.opts.Logger

	// Step 1: keyword patterns from a document preview.
	patterns := defaultMedicalPatterns
	keywordReply, err := p.caller.CallText(ctx, p.opts.KeywordAgent, simpleKeywordPrompt(document))
	if err != nil {
		log.Warn("keyword agent failed, using default patterns", "error", err)
	} else if extracted := ExtractPatterns(keywordReply, p.opts.MaxPatterns); len(extracted) > 0 {
		patterns = extracted
	}
	log.Info("patterns ready", "count", len(patterns))

	// Step 2: grep for matches.
	var matches []map[string]any
	grepReply, err := p.caller.CallData(ctx, p.opts.GrepAgent, map[string]any{
		"patterns":         patterns,
		"document_content": document,
		"case_sensitive":   false,
	})
	if err != nil {
		log.Warn("grep agent failed", "error", err)
	} else {
		matches = parseMatches(grepReply)
	}
	log.Info("grep complete", "matches", len(matches))

	// Single-line documents produce one line number with many matches;
	// chunking each would extract the same context repeatedly.
	unique := dedupeByLine(matches)
	if len(unique) == 1 && len(matches) > 1 {
		unique = matches[:1]
	}
	if len(unique) > p.opts.MaxChunks {
		unique = unique[:p.opts.MaxChunks]
	}

	// Step 3: context chunk per unique match.
	var chunks []string
	for i, m := range unique {
		chunkReply, err := p.caller.CallData(ctx, p.opts.ChunkAgent, map[string]any{
			"match_info":       m,
			"document_content": document,
			"context_size":     p.opts.ContextLines,
		})
		if err != nil {
			log.Warn("chunk extraction failed", "index", i, "error", err)
			continue
		}
		if chunkReply.Text != "" {
			chunks = append(chunks, chunkReply.Text)
		}
	}
	log.Info("chunks extracted", "count", len(chunks))

	result := &SimpleResult{
		Patterns: len(patterns),
		Matches:  len(matches),
		Chunks:   len(chunks),
	}

	// Step 4: summarize the combined chunks.
	switch {
	case len(chunks) == 0:
		result.Summary = "No matches found in the document."
	default:
		sumReply, err := p.caller.CallData(ctx, p.opts.SummarizeAgent, map[string]any{
			"chunks": chunks,
			"style":  p.opts.SummaryStyle,
		})
		if err != nil {
			log.Warn("summarize agent failed, returning raw context", "error", err)
			result.Summary = "Summarization unavailable. Extracted context:\n\n" + strings.Join(chunks, "\n\n")
		} else {
			result.Summary = sumReply.Text
		}
	}

	result.Elapsed = time.Since(start)
	log.Info("pipeline complete", "duration", result.Elapsed.String())

	return result, nil
}

func simpleKeywordPrompt(document string) string {
	return fmt.Sprintf(`Generate regex patterns for finding medical information in this document:

%s

Generate comprehensive patterns for all medical information. Return each pattern between backticks, no prose.`,
		head(document, simplePreviewChars))
}

// head truncates s to at most n bytes without splitting a UTF-8 rune.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
