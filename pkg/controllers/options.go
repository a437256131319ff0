package controllers

import (
	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/ids"
	"github.com/killallgit/usechat/pkg/stream"
)

// Option configures a ChatController.
type Option func(*ChatController)

// WithID sets the chat id. By default one is generated.
func WithID(id string) Option {
	return func(c *ChatController) {
		c.id = id
	}
}

// WithIDGenerator sets the generator for chat and message ids.
func WithIDGenerator(gen ids.Generator) Option {
	return func(c *ChatController) {
		if gen != nil {
			c.genID = gen
		}
	}
}

// WithInitialMessages seeds the conversation. The messages get fresh ids and
// their parts are extracted from their content. Reset restores them.
func WithInitialMessages(msgs []chat.Message) Option {
	return func(c *ChatController) {
		c.initial = chat.CloneAll(msgs)
	}
}

// WithTools sets the tool definitions sent with every request.
func WithTools(tools []stream.ToolDefinition) Option {
	return func(c *ChatController) {
		c.tools = append([]stream.ToolDefinition(nil), tools...)
	}
}

// WithOnFinish registers a callback that receives the assistant message of
// every request that completes normally. A failing callback does not change
// the conversation state; its error goes to the OnError callback.
func WithOnFinish(fn func(chat.Message) error) Option {
	return func(c *ChatController) {
		c.onFinish = fn
	}
}

// WithOnError registers a callback for request failures and OnFinish
// failures.
func WithOnError(fn func(error)) Option {
	return func(c *ChatController) {
		c.onError = fn
	}
}

// WithPreventDefault makes HandleSubmit call PreventDefault on its event.
func WithPreventDefault(enabled bool) Option {
	return func(c *ChatController) {
		c.preventDefault = enabled
	}
}
