package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/medflow/a2a"
)

const (
	defaultChunkContext = 5
	charsPerLine        = 80
)

// ChunkHandler extracts a context window around a single match. Multi-line
// documents get a line window expanded to section boundaries; single-line
// documents get a character window snapped to sentence boundaries.
type ChunkHandler struct {
	contextSize int
}

// ChunkOptions configure NewChunk.
type ChunkOptions struct {
	ContextSize int
}

// NewChunk creates the chunk agent handler.
func NewChunk(optFns ...func(o *ChunkOptions)) *ChunkHandler {
	opts := ChunkOptions{ContextSize: defaultChunkContext}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ChunkHandler{contextSize: opts.ContextSize}
}

// Name implements Handler.
func (h *ChunkHandler) Name() string { return "Chunk Extraction Agent" }

// Description implements Handler.
func (h *ChunkHandler) Description() string {
	return "Extracts context windows around pattern matches, aligning chunk " +
		"boundaries with document sections and sentences."
}

// Skills implements Handler.
func (h *ChunkHandler) Skills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "extract_chunk",
			Name:        "Extract Document Chunk",
			Description: "Extract a context window around a match with semantic boundary detection.",
			Tags:        []string{"chunking", "context", "extraction"},
			Examples: []string{
				"Extract context around a staging mention",
				"Get the section containing this medication",
			},
		},
	}
}

// Process implements Handler. Expects a data payload with "match_info"
// (line_number, match_text) and "document_content"; optional "context_size"
// and "boundary_detection".
func (h *ChunkHandler) Process(ctx context.Context, req *Request) (*Response, error) {
	document := req.String("document_content")
	if document == "" {
		document = req.String("document")
	}
	if document == "" {
		// Fall back to treating the whole text payload as the document.
		document = req.Text
	}
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("chunk agent needs document content")
	}

	matchInfo, _ := req.Data["match_info"].(map[string]any)
	lineNumber := 1
	matchText := ""
	if matchInfo != nil {
		if n, ok := matchInfo["line_number"].(float64); ok {
			lineNumber = int(n)
		}
		if s, ok := matchInfo["match_text"].(string); ok {
			matchText = s
		}
	}

	contextSize := req.Int("context_size", h.contextSize)
	boundaries := req.Bool("boundary_detection", true)

	chunk := h.Extract(document, lineNumber, matchText, contextSize, boundaries)

	data := map[string]any{
		"chunk":       chunk.Content,
		"method":      chunk.Method,
		"match_line":  lineNumber,
		"start_line":  chunk.StartLine,
		"end_line":    chunk.EndLine,
		"line_count":  chunk.EndLine - chunk.StartLine + 1,
		"headers":     toAnySlice(chunk.Headers),
	}
	if chunk.Method == "character" {
		data["start_pos"] = chunk.StartPos
		data["end_pos"] = chunk.EndPos
		delete(data, "start_line")
		delete(data, "end_line")
		delete(data, "line_count")
	}

	return &Response{Text: chunk.Content, Data: data}, nil
}

// Chunk is one extracted context window.
type Chunk struct {
	Content   string
	Method    string // "line" or "character"
	StartLine int
	EndLine   int
	StartPos  int
	EndPos    int
	Headers   []string
}

// Extract builds the context window around a match.
func (h *ChunkHandler) Extract(document string, lineNumber int, matchText string, contextSize int, boundaries bool) *Chunk {
	lines := strings.Split(document, "\n")

	if isSingleLineDocument(lines) {
		return characterChunk(document, matchText, contextSize*charsPerLine)
	}

	if lineNumber < 1 {
		lineNumber = 1
	}
	if lineNumber > len(lines) {
		lineNumber = len(lines)
	}
	idx := lineNumber - 1

	start := idx - contextSize
	if start < 0 {
		start = 0
	}
	end := idx + contextSize + 1
	if end > len(lines) {
		end = len(lines)
	}

	if boundaries {
		start, end = snapToBoundaries(lines, idx, start, end)
	}

	window := lines[start:end]
	var headers []string
	for _, line := range window {
		if isSectionHeader(strings.TrimSpace(line)) {
			headers = append(headers, strings.TrimSpace(line))
		}
	}

	return &Chunk{
		Content:   strings.Join(window, "\n"),
		Method:    "line",
		StartLine: start + 1,
		EndLine:   end,
		Headers:   headers,
	}
}

func isSingleLineDocument(lines []string) bool {
	if len(lines) > 3 {
		return false
	}
	for _, line := range lines {
		if len(line) > singleLineThreshold {
			return true
		}
	}
	return false
}

// characterChunk extracts a window of characters centered on the match,
// snapping both edges outward to sentence boundaries.
func characterChunk(document, matchText string, contextChars int) *Chunk {
	center := len(document) / 2
	if matchText != "" {
		if pos := strings.Index(document, matchText); pos >= 0 {
			center = pos
		}
	}

	start := center - contextChars
	if start < 0 {
		start = 0
	}
	end := center + len(matchText) + contextChars
	if end > len(document) {
		end = len(document)
	}

	// Snap to the nearest sentence start before the window.
	if idx := strings.LastIndex(document[:start], ". "); idx >= 0 {
		start = idx + 2
	} else {
		start = 0
	}
	// Snap to the sentence end after the window.
	if idx := strings.Index(document[end:], ". "); idx >= 0 {
		end += idx + 1
	} else {
		end = len(document)
	}

	return &Chunk{
		Content:  strings.TrimSpace(document[start:end]),
		Method:   "character",
		StartPos: start,
		EndPos:   end,
	}
}

// snapToBoundaries widens or narrows a line window to natural document
// boundaries: a section header or paragraph break before the match, and the
// next section header or paragraph break after it.
func snapToBoundaries(lines []string, target, start, end int) (int, int) {
	lower := start - 10
	if lower < 0 {
		lower = 0
	}
	for i := target; i >= lower; i-- {
		line := strings.TrimSpace(lines[i])
		if isSectionHeader(line) {
			start = i
			break
		}
		if i < target-2 && line == "" {
			start = i + 1
			break
		}
	}

	upper := end + 10
	if upper > len(lines) {
		upper = len(lines)
	}
	for i := target + 1; i < upper; i++ {
		line := strings.TrimSpace(lines[i])
		if isSectionHeader(line) {
			end = i
			break
		}
		if i > target+2 && line == "" && i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
			end = i
			break
		}
	}

	if end <= start {
		end = start + 1
	}
	return start, end
}

var (
	medicalHeader   = regexp.MustCompile(`(?i)^(CHIEF COMPLAINT|HISTORY|ASSESSMENT|PLAN|DIAGNOSIS|MEDICATIONS|Physical Exam|Review of Systems|Laboratory|Imaging)`)
	numberedSection = regexp.MustCompile(`^\d+\.\s+[A-Z]`)
)

// isSectionHeader reports whether a line looks like a document section
// header: all caps, a short line ending with a colon, a known medical
// heading or a numbered section.
func isSectionHeader(line string) bool {
	if line == "" {
		return false
	}
	if len(line) > 3 && line == strings.ToUpper(line) && strings.ContainsAny(line, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return true
	}
	if strings.HasSuffix(line, ":") && len(line) < 50 {
		return true
	}
	return medicalHeader.MatchString(line) || numberedSection.MatchString(line)
}
