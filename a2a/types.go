package a2a

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ProtocolVersion is the A2A specification version this package implements.
const ProtocolVersion = "0.3.0"

// TaskState enumerates the lifecycle states of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been received but not started.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking indicates the task is being processed.
	TaskStateWorking TaskState = "working"
	// TaskStateInputRequired indicates the task is paused waiting for input.
	TaskStateInputRequired TaskState = "input-required"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateCanceled indicates the task was canceled before completion.
	TaskStateCanceled TaskState = "canceled"
	// TaskStateFailed indicates the task terminated with an error.
	TaskStateFailed TaskState = "failed"
	// TaskStateRejected indicates the task was refused by the agent.
	TaskStateRejected TaskState = "rejected"
)

// IsTerminal reports whether the state permits no further transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	}
	return false
}

// Part represents a polymorphic segment of message content, discriminated on
// the wire by a 'kind' field. Concrete part types implement the unexported
// isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment (kind "text").
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// MarshalJSON emits the spec shape {"kind":"text","text":...}.
func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     string         `json:"kind"`
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{Kind: "text", Text: p.Text, Metadata: p.Metadata})
}

// DataPart is a structured data segment (kind "data").
type DataPart struct {
	Data     map[string]any // Structured key/value payload
	Metadata map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// MarshalJSON emits the spec shape {"kind":"data","data":{...}}.
func (p DataPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     string         `json:"kind"`
		Data     map[string]any `json:"data"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{Kind: "data", Data: p.Data, Metadata: p.Metadata})
}

// FileRef describes a file attachment either inlined as base64 bytes or
// referenced by URI.
type FileRef struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// FilePart is a file attachment segment (kind "file").
type FilePart struct {
	File     FileRef
	Metadata map[string]any
}

// isPart implements the Part interface for FilePart.
func (FilePart) isPart() {}

// MarshalJSON emits the spec shape {"kind":"file","file":{...}}.
func (p FilePart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     string         `json:"kind"`
		File     FileRef        `json:"file"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{Kind: "file", File: p.File, Metadata: p.Metadata})
}

// decodePart converts a single raw part into a concrete Part. Unknown kinds
// and legacy shapes without a 'kind' discriminator degrade to best-effort
// TextPart/DataPart values rather than failing the whole message.
func decodePart(raw json.RawMessage) (Part, error) {
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return TextPart{Text: res.String()}, nil
	}

	kind := res.Get("kind").String()
	switch kind {
	case "text":
		return TextPart{Text: res.Get("text").String(), Metadata: objectValue(res.Get("metadata"))}, nil
	case "data":
		return DataPart{Data: objectValue(res.Get("data")), Metadata: objectValue(res.Get("metadata"))}, nil
	case "file":
		var fp struct {
			File     FileRef        `json:"file"`
			Metadata map[string]any `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &fp); err != nil {
			return nil, fmt.Errorf("decode file part: %w", err)
		}
		return FilePart{File: fp.File, Metadata: fp.Metadata}, nil
	}

	// Legacy parts predate the 'kind' discriminator: bare {"text": ...} or
	// {"data": ...}, sometimes nested under a "root" wrapper.
	for _, candidate := range []gjson.Result{res, res.Get("root")} {
		if !candidate.IsObject() {
			continue
		}
		if t := candidate.Get("text"); t.Exists() {
			return TextPart{Text: t.String()}, nil
		}
		if d := candidate.Get("data"); d.Exists() {
			return DataPart{Data: objectValue(d)}, nil
		}
	}

	// Unknown part shape: preserve the raw JSON as text so nothing is lost.
	return TextPart{Text: res.Raw}, nil
}

func decodeParts(raws []json.RawMessage) ([]Part, error) {
	parts := make([]Part, 0, len(raws))
	for _, raw := range raws {
		p, err := decodePart(raw)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// objectValue returns the gjson result as a map, or nil if it is not an object.
func objectValue(res gjson.Result) map[string]any {
	if !res.IsObject() {
		return nil
	}
	if m, ok := res.Value().(map[string]any); ok {
		return m
	}
	return nil
}

// Message is a single conversational turn exchanged between agents.
type Message struct {
	Kind      string         `json:"kind"` // always "message"
	MessageID string         `json:"messageId"`
	Role      string         `json:"role"` // "user" or "agent"
	Parts     []Part         `json:"parts"`
	TaskID    string         `json:"taskId,omitempty"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes a message tolerating legacy part shapes.
func (m *Message) UnmarshalJSON(raw []byte) error {
	var aux struct {
		Kind      string            `json:"kind"`
		MessageID string            `json:"messageId"`
		Role      string            `json:"role"`
		Parts     []json.RawMessage `json:"parts"`
		TaskID    string            `json:"taskId"`
		ContextID string            `json:"contextId"`
		Metadata  map[string]any    `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	parts, err := decodeParts(aux.Parts)
	if err != nil {
		return err
	}
	m.Kind = aux.Kind
	m.MessageID = aux.MessageID
	m.Role = aux.Role
	m.Parts = parts
	m.TaskID = aux.TaskID
	m.ContextID = aux.ContextID
	m.Metadata = aux.Metadata
	return nil
}

// NewUserMessage builds a user-role message from parts.
func NewUserMessage(parts ...Part) Message {
	return Message{Kind: "message", MessageID: uuid.NewString(), Role: "user", Parts: parts}
}

// NewUserTextMessage builds a user-role message carrying one TextPart.
func NewUserTextMessage(text string) Message {
	return NewUserMessage(TextPart{Text: text})
}

// NewUserDataMessage builds a user-role message carrying one DataPart.
func NewUserDataMessage(data map[string]any) Message {
	return NewUserMessage(DataPart{Data: data})
}

// NewAgentMessage builds an agent-role message from parts.
func NewAgentMessage(parts ...Part) Message {
	return Message{Kind: "message", MessageID: uuid.NewString(), Role: "agent", Parts: parts}
}

// NewAgentTextMessage builds an agent-role message carrying one TextPart.
func NewAgentTextMessage(text string) Message {
	return Message{Kind: "message", MessageID: uuid.NewString(), Role: "agent", Parts: []Part{TextPart{Text: text}}}
}

// NewAgentDataMessage builds an agent-role message carrying one DataPart.
func NewAgentDataMessage(data map[string]any) Message {
	return Message{Kind: "message", MessageID: uuid.NewString(), Role: "agent", Parts: []Part{DataPart{Data: data}}}
}

// Text concatenates all text content in the message: TextParts verbatim and
// DataParts re-serialized as JSON. Mirrors how agents flatten incoming
// messages into a single prompt string.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		switch part := p.(type) {
		case TextPart:
			if out != "" {
				out += "\n"
			}
			out += part.Text
		case DataPart:
			b, err := json.Marshal(part.Data)
			if err != nil {
				continue
			}
			if out != "" {
				out += "\n"
			}
			out += string(b)
		}
	}
	return out
}

// Artifact is a named output produced by a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes an artifact tolerating legacy part shapes.
func (a *Artifact) UnmarshalJSON(raw []byte) error {
	var aux struct {
		ArtifactID  string            `json:"artifactId"`
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Parts       []json.RawMessage `json:"parts"`
		Metadata    map[string]any    `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	parts, err := decodeParts(aux.Parts)
	if err != nil {
		return err
	}
	a.ArtifactID = aux.ArtifactID
	a.Name = aux.Name
	a.Description = aux.Description
	a.Parts = parts
	a.Metadata = aux.Metadata
	return nil
}

// NewArtifact builds an artifact from parts with a generated identifier.
func NewArtifact(name string, parts ...Part) Artifact {
	return Artifact{ArtifactID: uuid.NewString(), Name: name, Parts: parts}
}

// TaskStatus captures the current state of a task plus an optional status
// message for clients.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// Task is the unit of work tracked by an agent server.
type Task struct {
	Kind      string         `json:"kind"` // always "task"
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	History   []Message      `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTask creates a submitted task bound to the triggering message. A fresh
// context ID is minted when the message does not carry one.
func NewTask(msg Message) *Task {
	contextID := msg.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}
	taskID := msg.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	return &Task{
		Kind:      "task",
		ID:        taskID,
		ContextID: contextID,
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: time.Now().UTC().Format(time.RFC3339)},
		History:   []Message{msg},
	}
}
