package chat

import "strings"

// PartType tags a Part variant.
type PartType string

const (
	PartTypeText      PartType = "text"
	PartTypeReasoning PartType = "reasoning"
	PartTypeRefusal   PartType = "refusal"
	PartTypeToolCall  PartType = "tool-call"
)

// Part is one displayable piece of a message. The set of variants is closed:
// TextPart, ReasoningPart, RefusalPart and ToolCallPart.
//
// Parts are values. Code that updates a message replaces the part in
// Message.Parts rather than mutating it in place.
type Part interface {
	Type() PartType
	isPart()
}

type TextPart struct {
	Text string
}

func (TextPart) Type() PartType { return PartTypeText }
func (TextPart) isPart()        {}

// ReasoningPart holds model reasoning ("thinking") output.
type ReasoningPart struct {
	Reasoning string
}

func (ReasoningPart) Type() PartType { return PartTypeReasoning }
func (ReasoningPart) isPart()        {}

type RefusalPart struct {
	Refusal string
}

func (RefusalPart) Type() PartType { return PartTypeRefusal }
func (RefusalPart) isPart()        {}

// ToolCallStatus is the lifecycle state of a tool call.
type ToolCallStatus string

const (
	ToolCallPartial  ToolCallStatus = "partial"  // started, arguments not yet streaming
	ToolCallLoading  ToolCallStatus = "loading"  // arguments streaming
	ToolCallComplete ToolCallStatus = "complete" // arguments final or result received
	ToolCallError    ToolCallStatus = "error"
)

// Terminal reports whether s is final. Terminal statuses never change.
func (s ToolCallStatus) Terminal() bool {
	return s == ToolCallComplete || s == ToolCallError
}

func (s ToolCallStatus) rank() int {
	switch s {
	case ToolCallPartial:
		return 0
	case ToolCallLoading:
		return 1
	default:
		return 2
	}
}

// CanTransition reports whether a call in status s may move to next:
// partial → loading → complete, or → error from partial/loading. Terminal
// statuses never move.
func (s ToolCallStatus) CanTransition(next ToolCallStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// FunctionCall is the function a tool call invokes. Arguments is raw text that
// accumulates while the call streams; it is usually, but not necessarily, JSON.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallRef identifies a tool call. Index is the positional index some
// providers send before the call id is known.
type ToolCallRef struct {
	ID       string       `json:"id"`
	Index    *int         `json:"index,omitempty"`
	Function FunctionCall `json:"function"`
}

// ToolCallPart tracks one tool invocation and its outcome. Result and Error
// are opaque to this package.
type ToolCallPart struct {
	ToolCall ToolCallRef
	Status   ToolCallStatus
	Result   any
	Error    error
}

func (ToolCallPart) Type() PartType { return PartTypeToolCall }
func (ToolCallPart) isPart()        {}

// TextOf concatenates the text of every TextPart in parts.
func TextOf(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}
