package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// StripFences removes a surrounding markdown code fence from model output.
// Models frequently wrap requested JSON in ```json blocks despite
// instructions not to; the payload inside is returned unchanged.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the info string ("json", "JSON", ...) on the fence line.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

// GenerateJSON runs a generation request and decodes the reply as a JSON
// object, tolerating code fences and prose around the payload. Keys listed
// in required must be present in the decoded object.
func GenerateJSON(ctx context.Context, m Model, req Request, required ...string) (map[string]any, error) {
	resp, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	text := StripFences(resp.Text)

	// Models sometimes preface the object with prose; recover the first
	// balanced JSON object in that case.
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("model reply contains no JSON object: %s", truncate(resp.Text, 120))
		}
		text = text[start : end+1]
	}

	if !gjson.Valid(text) {
		return nil, fmt.Errorf("model reply is not valid JSON: %s", truncate(text, 120))
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}

	for _, key := range required {
		if _, ok := data[key]; !ok {
			return nil, fmt.Errorf("model reply missing %q field", key)
		}
	}

	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
