package a2a

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Reply is the normalized view of a raw agent response. Raw retains the full
// JSON-RPC reply bytes; Text and Data hold whatever text and structured
// payloads could be recovered from it regardless of the response shape.
type Reply struct {
	Raw  []byte
	Text string
	Data map[string]any
}

// NewReply parses raw reply bytes into a Reply.
func NewReply(raw []byte) *Reply {
	return &Reply{Raw: raw, Text: ExtractText(raw), Data: ExtractData(raw)}
}

// ExtractText recovers the primary textual payload from a raw JSON-RPC reply.
//
// Shapes handled, in priority order:
//  1. artifact parts on a Task result
//  2. the Task status message
//  3. the last agent-authored message in Task history
//  4. a bare Message result
//  5. legacy results carrying a top-level "text" field
//  6. a plain string result
func ExtractText(raw []byte) string {
	result := resultNode(raw)
	if !result.Exists() {
		return ""
	}
	if result.Type == gjson.String {
		return result.String()
	}

	for _, art := range collectArtifacts(result) {
		if text := textFromParts(art.Get("parts")); text != "" {
			return text
		}
	}

	if msg := result.Get("status.message"); msg.IsObject() {
		if text := textFromParts(msg.Get("parts")); text != "" {
			return text
		}
	}

	messages := collectMessages(result)
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Get("role").String() == "user" {
			continue
		}
		if text := textFromParts(m.Get("parts")); text != "" {
			return text
		}
	}

	if t := result.Get("text"); t.Type == gjson.String {
		return t.String()
	}
	return ""
}

// ExtractData recovers structured data from a raw JSON-RPC reply. Exactly one
// part set is taken, mirroring ExtractText's priority: artifact parts first,
// then the Task status message, then the last agent-authored history message.
// User-role messages are never absorbed, so request payloads echoed back in
// Task history do not leak into the reply. TextParts whose content looks like
// a JSON object are parsed as a recovery path for agents that serialize data
// into text. Nil is returned when no structured payload exists.
//
// Merge semantics within the chosen part set follow the orchestrators'
// expectations: "matches" lists are concatenated across parts (with a
// recomputed total_matches); for every other key the last value wins.
func ExtractData(raw []byte) map[string]any {
	result := resultNode(raw)
	if !result.Exists() {
		return nil
	}

	merged := map[string]any{}
	var matches []any

	absorb := func(data gjson.Result) {
		obj := objectValue(data)
		if obj == nil {
			return
		}
		for key, value := range obj {
			if key == "matches" {
				if list, ok := value.([]any); ok {
					matches = append(matches, list...)
					continue
				}
			}
			merged[key] = value
		}
	}

	absorbParts := func(parts gjson.Result) {
		parts.ForEach(func(_, part gjson.Result) bool {
			switch part.Get("kind").String() {
			case "data":
				absorb(part.Get("data"))
			case "text":
				text := strings.TrimSpace(part.Get("text").String())
				if strings.HasPrefix(text, "{") {
					if parsed := gjson.Parse(text); parsed.IsObject() {
						absorb(parsed)
					}
				}
			default:
				// Legacy part without a discriminator.
				if d := part.Get("data"); d.IsObject() {
					absorb(d)
				}
			}
			return true
		})
	}

	absorbed := func() bool { return len(merged) > 0 || matches != nil }

	for _, art := range collectArtifacts(result) {
		absorbParts(art.Get("parts"))
	}
	if !absorbed() {
		if msg := result.Get("status.message"); msg.IsObject() && msg.Get("role").String() != "user" {
			absorbParts(msg.Get("parts"))
		}
	}
	if !absorbed() {
		messages := collectMessages(result)
		for i := len(messages) - 1; i >= 0 && !absorbed(); i-- {
			if messages[i].Get("role").String() == "user" {
				continue
			}
			absorbParts(messages[i].Get("parts"))
		}
	}

	// Bare data results: some legacy agents return the payload object directly.
	if len(merged) == 0 && matches == nil && result.IsObject() && !result.Get("kind").Exists() && !result.Get("parts").Exists() {
		absorb(result)
	}

	if matches != nil {
		merged["matches"] = matches
		merged["total_matches"] = len(matches)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// resultNode returns the JSON-RPC result if present, or the document root for
// bodies that are not wrapped in an envelope.
func resultNode(raw []byte) gjson.Result {
	root := gjson.ParseBytes(raw)
	if result := root.Get("result"); result.Exists() {
		return result
	}
	return root
}

// collectMessages gathers every message object reachable from a result node:
// a bare Message, the Task status message and all Messages in Task history.
// Objects carrying a parts array but no kind are treated as messages.
func collectMessages(result gjson.Result) []gjson.Result {
	var messages []gjson.Result

	switch result.Get("kind").String() {
	case "message":
		return []gjson.Result{result}
	case "task":
	default:
		if result.Get("parts").IsArray() && !result.Get("artifactId").Exists() {
			return []gjson.Result{result}
		}
	}

	if msg := result.Get("status.message"); msg.IsObject() {
		messages = append(messages, msg)
	}
	result.Get("history").ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("kind").String() == "message" || entry.Get("parts").IsArray() {
			messages = append(messages, entry)
		}
		return true
	})
	return messages
}

// collectArtifacts gathers artifacts from a Task result, also accepting an
// artifact-shaped object as the result itself.
func collectArtifacts(result gjson.Result) []gjson.Result {
	var artifacts []gjson.Result
	result.Get("artifacts").ForEach(func(_, art gjson.Result) bool {
		artifacts = append(artifacts, art)
		return true
	})
	if len(artifacts) == 0 && result.Get("artifactId").Exists() && result.Get("parts").IsArray() {
		artifacts = append(artifacts, result)
	}
	return artifacts
}

// textFromParts flattens a parts array into a newline-joined string, taking
// TextParts verbatim and re-serializing DataParts as their raw JSON.
func textFromParts(parts gjson.Result) string {
	var chunks []string
	parts.ForEach(func(_, part gjson.Result) bool {
		switch part.Get("kind").String() {
		case "text":
			if t := part.Get("text").String(); t != "" {
				chunks = append(chunks, t)
			}
		case "data":
			if d := part.Get("data"); d.Exists() {
				chunks = append(chunks, d.Raw)
			}
		default:
			if t := part.Get("text"); t.Type == gjson.String {
				chunks = append(chunks, t.String())
			} else if d := part.Get("data"); d.Exists() {
				chunks = append(chunks, d.Raw)
			}
		}
		return true
	})
	return strings.Join(chunks, "\n")
}
