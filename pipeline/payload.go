package pipeline

import "github.com/tidwall/sjson"

// payload builds a JSON object string one field at a time. The oncology
// stages are prompt agents, so structured step inputs travel as JSON text
// rather than DataParts.
type payload string

func newPayload() payload {
	return "{}"
}

func (p payload) set(key string, value any) payload {
	out, err := sjson.Set(string(p), key, value)
	if err != nil {
		return p
	}
	return payload(out)
}

func (p payload) String() string {
	return string(p)
}
