package stream

import (
	"context"

	"github.com/killallgit/usechat/pkg/chat"
)

// ToolDefinition describes a tool the model may call. Parameters is a JSON
// schema; it is passed through untouched.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Request is everything a transport needs to run one generation.
type Request struct {
	Messages []chat.Message
	Tools    []ToolDefinition
}

// Transport runs a generation and reports its progress through emit, in
// order, from the calling goroutine or any single goroutine. Stream returns
// once generation has ended. Implementations must stop emitting promptly
// after ctx is cancelled.
type Transport interface {
	Stream(ctx context.Context, req Request, emit func(Event)) error
}

// TransportFunc adapts an ordinary function to a Transport.
type TransportFunc func(ctx context.Context, req Request, emit func(Event)) error

func (f TransportFunc) Stream(ctx context.Context, req Request, emit func(Event)) error {
	return f(ctx, req, emit)
}
