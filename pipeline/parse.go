package pipeline

import (
	"regexp"
	"strings"

	"github.com/hupe1980/medflow/a2a"
)

var (
	backtickRe = regexp.MustCompile("`([^`]+)`")
	quotedRe   = regexp.MustCompile(`"([^"]*)"`)
)

// ExtractPatterns recovers regex patterns from a keyword agent reply. The
// structured "patterns" list is preferred; free text falls back to patterns
// quoted in backticks or double quotes, then to "label: pattern" lines.
// Order is preserved, duplicates removed, and the result capped at max.
func ExtractPatterns(reply *a2a.Reply, max int) []string {
	var patterns []string

	if reply.Data != nil {
		if list, ok := reply.Data["patterns"].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					patterns = append(patterns, s)
				}
			}
		}
	}

	if len(patterns) == 0 {
		patterns = patternsFromText(reply.Text)
	}

	seen := make(map[string]struct{}, len(patterns))
	deduped := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		deduped = append(deduped, p)
	}

	if max > 0 && len(deduped) > max {
		deduped = deduped[:max]
	}

	return deduped
}

func patternsFromText(text string) []string {
	var patterns []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		switch {
		case strings.Contains(line, "`"):
			for _, m := range backtickRe.FindAllStringSubmatch(line, -1) {
				patterns = append(patterns, m[1])
			}
		case strings.Contains(line, `"`):
			for _, m := range quotedRe.FindAllStringSubmatch(line, -1) {
				patterns = append(patterns, m[1])
			}
		case strings.Contains(line, ":") && !strings.HasSuffix(trimmed, ":"):
			_, after, _ := strings.Cut(line, ":")
			if p := strings.TrimSpace(after); len(p) > 2 {
				patterns = append(patterns, p)
			}
		}
	}

	return patterns
}

// parseMatches recovers grep matches from a reply. Structured "matches" are
// used when present; otherwise each non-empty line of the reply text is
// synthesized into a minimal match so the pipeline can continue.
func parseMatches(reply *a2a.Reply) []map[string]any {
	if reply.Data != nil {
		if list, ok := reply.Data["matches"].([]any); ok {
			matches := make([]map[string]any, 0, len(list))
			for _, v := range list {
				if m, ok := v.(map[string]any); ok {
					matches = append(matches, m)
				}
			}
			return matches
		}
	}

	var matches []map[string]any

	for i, line := range strings.Split(reply.Text, "\n") {
		if len(matches) >= 100 {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		text := head(trimmed, 200)

		matches = append(matches, map[string]any{
			"pattern":      "text",
			"line_number":  i + 1,
			"match_text":   text,
			"line_content": trimmed,
		})
	}

	return matches
}

// dedupeByLine keeps the first match per line number, preserving order.
func dedupeByLine(matches []map[string]any) []map[string]any {
	seen := make(map[int]struct{}, len(matches))
	deduped := make([]map[string]any, 0, len(matches))

	for _, m := range matches {
		line := matchLine(m)
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		deduped = append(deduped, m)
	}

	return deduped
}

func matchLine(m map[string]any) int {
	switch v := m["line_number"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 1
	}
}
