package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/logger"
	"github.com/killallgit/usechat/pkg/stream"
	"github.com/killallgit/usechat/pkg/tokens"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ErrNoChoices is returned when the model answers without any choice.
var ErrNoChoices = errors.New("model returned no choices")

// LangChain is a stream.Transport backed by a langchaingo model. Streamed
// text is split into answer and reasoning deltas; tool calls are reported
// from the final response.
type LangChain struct {
	model       llms.Model
	markers     stream.ThinkingMarkers
	callOptions []llms.CallOption
	timeout     time.Duration
	counter     *tokens.Counter
}

type Option func(*LangChain)

// WithThinkingMarkers sets the tags that delimit reasoning in streamed text.
func WithThinkingMarkers(markers stream.ThinkingMarkers) Option {
	return func(l *LangChain) {
		l.markers = markers
	}
}

// WithCallOptions adds options passed to every GenerateContent call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(l *LangChain) {
		l.callOptions = append(l.callOptions, opts...)
	}
}

// WithTimeout bounds each generation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(l *LangChain) {
		l.timeout = d
	}
}

// WithTokenCounter estimates usage with c when the model reports none.
func WithTokenCounter(c *tokens.Counter) Option {
	return func(l *LangChain) {
		l.counter = c
	}
}

func NewLangChain(model llms.Model, opts ...Option) *LangChain {
	l := &LangChain{
		model:   model,
		markers: stream.DefaultThinkingMarkers,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewOllama creates a transport for an Ollama server.
func NewOllama(baseURL, model string, opts ...Option) (*LangChain, error) {
	var ollamaOpts []ollama.Option
	if baseURL != "" {
		ollamaOpts = append(ollamaOpts, ollama.WithServerURL(baseURL))
	}
	if model != "" {
		ollamaOpts = append(ollamaOpts, ollama.WithModel(model))
	}

	llm, err := ollama.New(ollamaOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangChain(llm, opts...), nil
}

func (l *LangChain) Stream(ctx context.Context, req stream.Request, emit func(stream.Event)) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	splitter := stream.NewThinkSplitter(l.markers)
	var streamed strings.Builder

	opts := make([]llms.CallOption, 0, len(l.callOptions)+2)
	opts = append(opts, l.callOptions...)
	opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		streamed.Write(chunk)
		for _, seg := range splitter.Write(string(chunk)) {
			emit(seg.Event())
		}
		return nil
	}))
	if tools := ConvertTools(req.Tools); len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	logger.Debug("langchain: generating with %d messages and %d tools", len(req.Messages), len(req.Tools))
	resp, err := l.model.GenerateContent(ctx, ConvertMessages(req.Messages), opts...)
	if err != nil {
		return fmt.Errorf("content generation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return ErrNoChoices
	}

	choice := resp.Choices[0]
	completion := streamed.String()
	if completion == "" && choice.Content != "" {
		completion = choice.Content
		for _, seg := range splitter.Write(choice.Content) {
			emit(seg.Event())
		}
	}
	for _, seg := range splitter.Flush() {
		emit(seg.Event())
	}

	for i, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		idx := i
		emit(stream.Event{
			Type:       stream.EventToolCallStart,
			ToolCallID: tc.ID,
			Index:      &idx,
			ToolName:   tc.FunctionCall.Name,
		})
		emit(stream.Event{
			Type:       stream.EventToolCall,
			ToolCallID: tc.ID,
			Index:      &idx,
			ToolName:   tc.FunctionCall.Name,
			Args:       tc.FunctionCall.Arguments,
		})
	}

	usage := usageFrom(choice.GenerationInfo)
	if usage == nil && l.counter != nil {
		usage = l.counter.Usage(req.Messages, completion)
	}
	emit(stream.Finish(choice.StopReason, usage))
	return nil
}

// ConvertMessages maps a conversation to langchaingo message content. Only
// text is forwarded; assistant messages contribute their text parts.
func ConvertMessages(msgs []chat.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, msg := range msgs {
		messageType := llms.ChatMessageTypeHuman
		text := msg.Text()
		switch msg.Role {
		case chat.RoleSystem:
			messageType = llms.ChatMessageTypeSystem
		case chat.RoleAssistant:
			messageType = llms.ChatMessageTypeAI
			if len(msg.Parts) > 0 {
				text = chat.TextOf(msg.Parts)
			}
		}
		out = append(out, llms.TextParts(messageType, text))
	}
	return out
}

// ConvertTools maps tool definitions to langchaingo function tools.
func ConvertTools(defs []stream.ToolDefinition) []llms.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]llms.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return tools
}

func usageFrom(info map[string]any) *stream.Usage {
	if len(info) == 0 {
		return nil
	}
	prompt, okPrompt := intValue(info["PromptTokens"])
	completion, okCompletion := intValue(info["CompletionTokens"])
	total, okTotal := intValue(info["TotalTokens"])
	if !okPrompt && !okCompletion && !okTotal {
		return nil
	}
	if !okTotal {
		total = prompt + completion
	}
	return &stream.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

var _ stream.Transport = (*LangChain)(nil)
