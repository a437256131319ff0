package stream

import "errors"

// EventType tags a streaming event.
type EventType string

const (
	EventTextDelta      EventType = "text-delta"
	EventReasoningDelta EventType = "reasoning-delta"
	EventRefusalDelta   EventType = "refusal-delta"
	EventToolCallStart  EventType = "tool-call-start"
	EventToolCallDelta  EventType = "tool-call-delta"
	EventToolCall       EventType = "tool-call"
	EventToolResult     EventType = "tool-result"
	EventError          EventType = "error"
	EventFinish         EventType = "finish"
)

// ErrToolCallUnresolved is stored on tool calls that were still open when the
// stream finished.
var ErrToolCallUnresolved = errors.New("tool call did not complete before the stream ended")

// Usage reports token counts for one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Event is one low-level generation event. Which fields are meaningful
// depends on Type:
//
//	text-delta, reasoning-delta, refusal-delta: Text
//	tool-call-start:  ToolCallID (or Index), ToolName
//	tool-call-delta:  ToolCallID (or Index), ArgsTextDelta
//	tool-call:        ToolCallID (or Index), ToolName, Args
//	tool-result:      ToolCallID (or Index), Result or Error
//	error:            Error
//	finish:           FinishReason, Usage
type Event struct {
	Type          EventType
	Text          string
	ToolCallID    string
	ToolName      string
	Index         *int
	ArgsTextDelta string
	Args          string
	Result        any
	Error         error
	FinishReason  string
	Usage         *Usage
}

func TextDelta(text string) Event {
	return Event{Type: EventTextDelta, Text: text}
}

func ReasoningDelta(text string) Event {
	return Event{Type: EventReasoningDelta, Text: text}
}

func RefusalDelta(text string) Event {
	return Event{Type: EventRefusalDelta, Text: text}
}

func ToolCallStart(id, name string) Event {
	return Event{Type: EventToolCallStart, ToolCallID: id, ToolName: name}
}

func ToolCallDelta(id, argsDelta string) Event {
	return Event{Type: EventToolCallDelta, ToolCallID: id, ArgsTextDelta: argsDelta}
}

func ToolCall(id, name, args string) Event {
	return Event{Type: EventToolCall, ToolCallID: id, ToolName: name, Args: args}
}

func ToolResult(id string, result any) Event {
	return Event{Type: EventToolResult, ToolCallID: id, Result: result}
}

func ToolError(id string, err error) Event {
	return Event{Type: EventToolResult, ToolCallID: id, Error: err}
}

func ErrorEvent(err error) Event {
	return Event{Type: EventError, Error: err}
}

func Finish(reason string, usage *Usage) Event {
	return Event{Type: EventFinish, FinishReason: reason, Usage: usage}
}

// IsDelta reports whether the event carries incremental content.
func (e Event) IsDelta() bool {
	switch e.Type {
	case EventTextDelta, EventReasoningDelta, EventRefusalDelta:
		return true
	}
	return false
}
