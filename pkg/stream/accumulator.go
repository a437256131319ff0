package stream

import (
	"github.com/killallgit/usechat/pkg/chat"
)

const noRun = -1

// Accumulator folds streaming events into an assistant message.
//
// The accumulator owns the message it was given and mutates it on every
// Apply. Callers that hand the message to other goroutines must copy it with
// chat.Clone first. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	msg *chat.Message

	// openRun is the index in msg.Parts of the text, reasoning or refusal
	// part that the next delta of the same kind extends, or noRun.
	openRun  int
	openKind chat.PartType

	finishReason string
	err          error
}

// NewAccumulator returns an accumulator that builds on msg. A nil msg starts
// an empty assistant message.
func NewAccumulator(msg *chat.Message) *Accumulator {
	if msg == nil {
		msg = &chat.Message{Role: chat.RoleAssistant}
	}
	if msg.Parts == nil {
		msg.Parts = []chat.Part{}
	}
	return &Accumulator{msg: msg, openRun: noRun}
}

// Message returns the message being built. The returned pointer is the
// accumulator's working buffer.
func (a *Accumulator) Message() *chat.Message {
	return a.msg
}

// FinishReason returns the reason reported by the last finish event.
func (a *Accumulator) FinishReason() string {
	return a.finishReason
}

// Err returns the error carried by the last error event, if any.
func (a *Accumulator) Err() error {
	return a.err
}

// Apply folds one event into the message.
func (a *Accumulator) Apply(ev Event) {
	switch ev.Type {
	case EventTextDelta:
		if ev.Text == "" {
			return
		}
		a.appendRun(chat.PartTypeText, ev.Text)
		a.msg.Content += ev.Text
		return
	case EventReasoningDelta:
		if ev.Text != "" {
			a.appendRun(chat.PartTypeReasoning, ev.Text)
		}
		return
	case EventRefusalDelta:
		if ev.Text != "" {
			a.appendRun(chat.PartTypeRefusal, ev.Text)
		}
		return
	}

	a.closeRuns()

	switch ev.Type {
	case EventToolCallStart:
		a.startToolCall(ev)
	case EventToolCallDelta:
		a.updateToolCall(ev, func(tc *chat.ToolCallPart) {
			if !tc.Status.CanTransition(chat.ToolCallLoading) {
				return
			}
			tc.ToolCall.Function.Arguments += ev.ArgsTextDelta
			if tc.ToolCall.Function.Name == "" {
				tc.ToolCall.Function.Name = ev.ToolName
			}
			tc.Status = chat.ToolCallLoading
		})
	case EventToolCall:
		a.completeToolCall(ev)
	case EventToolResult:
		a.updateToolCall(ev, func(tc *chat.ToolCallPart) {
			settleToolCall(tc, ev.Result, ev.Error)
		})
	case EventError:
		if ev.Error != nil {
			a.err = ev.Error
		}
	case EventFinish:
		a.finishReason = ev.FinishReason
		a.resolveOpenCalls()
	}
}

// Finalize marks the end of the stream. Tool calls that never reached a
// terminal status are failed with ErrToolCallUnresolved.
func (a *Accumulator) Finalize() {
	a.closeRuns()
	a.resolveOpenCalls()
}

func (a *Accumulator) appendRun(kind chat.PartType, text string) {
	if a.openRun != noRun && a.openKind == kind {
		a.msg.Parts[a.openRun] = extend(a.msg.Parts[a.openRun], text)
		return
	}

	var p chat.Part
	switch kind {
	case chat.PartTypeReasoning:
		p = chat.ReasoningPart{Reasoning: text}
	case chat.PartTypeRefusal:
		p = chat.RefusalPart{Refusal: text}
	default:
		p = chat.TextPart{Text: text}
	}
	a.msg.Parts = append(a.msg.Parts, p)
	a.openRun = len(a.msg.Parts) - 1
	a.openKind = kind
}

func extend(p chat.Part, text string) chat.Part {
	switch v := p.(type) {
	case chat.TextPart:
		v.Text += text
		return v
	case chat.ReasoningPart:
		v.Reasoning += text
		return v
	case chat.RefusalPart:
		v.Refusal += text
		return v
	}
	return p
}

func (a *Accumulator) closeRuns() {
	a.openRun = noRun
	a.openKind = ""
}

// findToolCall returns the index of the tool-call part matching ev. Parts
// are matched by id first; the positional index is used while either side has
// no id yet.
func (a *Accumulator) findToolCall(ev Event) int {
	if ev.ToolCallID != "" {
		for i, p := range a.msg.Parts {
			if tc, ok := p.(chat.ToolCallPart); ok && tc.ToolCall.ID == ev.ToolCallID {
				return i
			}
		}
	}
	if ev.Index == nil {
		return -1
	}
	for i, p := range a.msg.Parts {
		tc, ok := p.(chat.ToolCallPart)
		if !ok || tc.ToolCall.Index == nil || *tc.ToolCall.Index != *ev.Index {
			continue
		}
		if ev.ToolCallID == "" || tc.ToolCall.ID == "" {
			return i
		}
	}
	return -1
}

func (a *Accumulator) startToolCall(ev Event) {
	if ev.ToolCallID == "" && ev.Index == nil {
		return
	}
	if a.findToolCall(ev) >= 0 {
		return
	}
	a.msg.Parts = append(a.msg.Parts, newToolCallPart(ev, chat.ToolCallPartial))
}

func (a *Accumulator) completeToolCall(ev Event) {
	i := a.findToolCall(ev)
	if i < 0 {
		// A complete call may arrive without a preceding start.
		if ev.ToolName == "" || (ev.ToolCallID == "" && ev.Index == nil) {
			return
		}
		tc := newToolCallPart(ev, chat.ToolCallComplete)
		tc.ToolCall.Function.Arguments = ev.Args
		a.msg.Parts = append(a.msg.Parts, tc)
		return
	}

	tc := a.msg.Parts[i].(chat.ToolCallPart)
	if !tc.Status.CanTransition(chat.ToolCallComplete) {
		return
	}
	tc.ToolCall.Function.Arguments = ev.Args
	if ev.ToolName != "" {
		tc.ToolCall.Function.Name = ev.ToolName
	}
	if ev.ToolCallID != "" {
		tc.ToolCall.ID = ev.ToolCallID
	}
	tc.Status = chat.ToolCallComplete
	a.msg.Parts[i] = tc
}

func (a *Accumulator) updateToolCall(ev Event, fn func(*chat.ToolCallPart)) {
	i := a.findToolCall(ev)
	if i < 0 {
		return
	}
	tc := a.msg.Parts[i].(chat.ToolCallPart)
	fn(&tc)
	if tc.ToolCall.ID == "" {
		tc.ToolCall.ID = ev.ToolCallID
	}
	a.msg.Parts[i] = tc
}

// settleToolCall records a tool outcome. An open call moves to error or
// complete. A call completed by its tool-call event keeps its status and
// gains the first outcome reported for it. Failed calls are final.
func settleToolCall(tc *chat.ToolCallPart, result any, err error) {
	next := chat.ToolCallComplete
	if err != nil {
		next = chat.ToolCallError
	} else if result == nil {
		return
	}

	switch {
	case tc.Status.CanTransition(next):
		tc.Status = next
	case tc.Status == chat.ToolCallComplete && tc.Result == nil && tc.Error == nil:
	default:
		return
	}
	if err != nil {
		tc.Error = err
	} else {
		tc.Result = result
	}
}

func (a *Accumulator) resolveOpenCalls() {
	for i, p := range a.msg.Parts {
		tc, ok := p.(chat.ToolCallPart)
		if !ok || !tc.Status.CanTransition(chat.ToolCallError) {
			continue
		}
		tc.Status = chat.ToolCallError
		tc.Error = ErrToolCallUnresolved
		a.msg.Parts[i] = tc
	}
}

func newToolCallPart(ev Event, status chat.ToolCallStatus) chat.ToolCallPart {
	ref := chat.ToolCallRef{
		ID:       ev.ToolCallID,
		Function: chat.FunctionCall{Name: ev.ToolName},
	}
	if ev.Index != nil {
		idx := *ev.Index
		ref.Index = &idx
	}
	return chat.ToolCallPart{ToolCall: ref, Status: status}
}
