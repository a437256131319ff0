package controllers

import (
	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/stream"
)

// Status is the request state of a conversation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

func (s Status) String() string {
	return string(s)
}

// State is a snapshot of a conversation. Snapshots are never modified after
// they are published; Messages must be treated as read-only.
//
// Usage holds the token usage of the last ended request, when the transport
// reported or estimated it.
type State struct {
	Messages []chat.Message
	Status   Status
	Err      error
	Input    string
	Usage    *stream.Usage
}

// InputMessage is content a user submits: plain text or structured items.
// When Items is non-empty it takes precedence over Content.
type InputMessage struct {
	Content string
	Items   []chat.ContentItem
}

// TextInput returns plain-text input.
func TextInput(text string) InputMessage {
	return InputMessage{Content: text}
}

// SubmitEvent is the part of a UI submit event the controller uses.
type SubmitEvent interface {
	PreventDefault()
}

// ChangeEvent is the part of a UI input change event the controller uses.
type ChangeEvent interface {
	Value() string
}

// ChangeValue is a ChangeEvent carrying a plain string.
type ChangeValue string

func (v ChangeValue) Value() string { return string(v) }
