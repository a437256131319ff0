package controllers

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/logger"
	"github.com/killallgit/usechat/pkg/stream"
	"github.com/killallgit/usechat/pkg/telemetry"
)

// session is one in-flight request. The controller's active field points to
// the current session; a session that is no longer active has been stopped
// and its remaining events are dropped.
type session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	span    trace.Span
	history []chat.Message
	acc     *stream.Accumulator

	// published is set once the assistant message has been placed in the
	// history, so later snapshots replace it instead of appending.
	published bool
}

// begin starts a request on history. The caller holds c.mu.
func (c *ChatController) begin(ctx context.Context, history []chat.Message) *session {
	requestID := c.genID()
	ctx, span := telemetry.StartSpan(ctx, "usechat.request", trace.WithAttributes(
		telemetry.StringAttr("chat.id", c.id),
		telemetry.StringAttr("request.id", requestID),
		telemetry.IntAttr("chat.messages", len(history)),
	))
	ctx, cancel := context.WithCancel(ctx)

	s := &session{
		id:      requestID,
		ctx:     ctx,
		cancel:  cancel,
		span:    span,
		history: history,
		acc:     stream.NewAccumulator(&chat.Message{ID: c.genID(), Role: chat.RoleAssistant}),
	}

	c.tracker.Cleanup(0)
	c.tracker.Start(s.id)
	c.lastRequest = s.id

	c.active = s
	c.messages = history
	c.status = StatusLoading
	c.err = nil
	c.usage = nil
	c.publishLocked()

	logger.Debug("chat %s: request %s started with %d messages", c.id, s.id, len(history))
	return s
}

// run drives the transport for s and settles the request.
func (c *ChatController) run(s *session) error {
	req := stream.Request{
		Messages: chat.CloneAll(s.history),
		Tools:    c.tools,
	}
	return c.settle(s, c.stream(s, req))
}

func (c *ChatController) stream(s *session, req stream.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return c.transport.Stream(s.ctx, req, func(ev stream.Event) {
		c.handleEvent(s, ev)
	})
}

func (c *ChatController) handleEvent(s *session, ev stream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s {
		return
	}
	c.tracker.Observe(s.id, ev)
	s.acc.Apply(ev)
	c.placeAssistantLocked(s)
	c.publishLocked()
}

// placeAssistantLocked writes a copy of the working assistant message to the
// end of the history.
func (c *ChatController) placeAssistantLocked(s *session) {
	msg := chat.Clone(*s.acc.Message())
	c.messages = chat.UpsertTrailing(c.messages, msg, s.published)
	s.published = true
}

// settle moves the conversation out of loading once the transport returned.
func (c *ChatController) settle(s *session, err error) error {
	defer s.span.End()

	c.mu.Lock()
	if c.active != s {
		toolCalls := len(s.acc.Message().ToolCalls())
		c.mu.Unlock()
		s.span.SetAttributes(attribute.Bool("request.stopped", true))
		if info, ok := c.tracker.Get(s.id); ok {
			recordRequest(s.span, info, toolCalls)
		}
		logger.Debug("chat %s: request %s stopped", c.id, s.id)
		return nil
	}
	c.active = nil
	cancelled := s.ctx.Err() != nil
	s.cancel()

	s.acc.Finalize()
	if s.published {
		c.placeAssistantLocked(s)
	}
	if err == nil {
		err = s.acc.Err()
	}

	// The caller's context was cancelled: settle like Stop.
	toolCalls := len(s.acc.Message().ToolCalls())
	if err != nil && errors.Is(err, context.Canceled) && cancelled {
		info := c.endLocked(s, stream.RequestCancelled, nil)
		c.status = StatusIdle
		c.publishLocked()
		c.mu.Unlock()
		s.span.SetAttributes(attribute.Bool("request.stopped", true))
		recordRequest(s.span, info, toolCalls)
		logger.Debug("chat %s: request %s cancelled", c.id, s.id)
		return nil
	}

	if err != nil {
		info := c.endLocked(s, stream.RequestError, err)
		c.status = StatusError
		c.err = err
		c.publishLocked()
		c.mu.Unlock()

		recordRequest(s.span, info, toolCalls)
		telemetry.RecordError(s.span, err)
		logger.Warn("chat %s: request %s failed: %v", c.id, s.id, err)
		c.reportError(err)
		return err
	}

	info := c.endLocked(s, stream.RequestComplete, nil)
	c.status = StatusIdle
	c.publishLocked()
	final, ok := chat.Last(c.messages)
	finished := ok && s.published
	c.mu.Unlock()

	recordRequest(s.span, info, toolCalls)
	telemetry.SetOK(s.span)
	logger.Debug("chat %s: request %s finished (%s, %d events, %s)",
		c.id, s.id, s.acc.FinishReason(), info.Events, usageText(info.Usage))
	if finished {
		c.notifyFinish(final)
	}
	return nil
}

// stopLocked cancels the active session, if any, keeping its partial output.
// The caller holds c.mu.
func (c *ChatController) stopLocked() bool {
	s := c.active
	if s == nil {
		return false
	}
	c.active = nil
	s.cancel()
	s.acc.Finalize()
	if s.published {
		c.placeAssistantLocked(s)
	}
	c.endLocked(s, stream.RequestCancelled, nil)
	c.status = StatusIdle
	return true
}

// endLocked records the outcome of s and keeps its usage for the next
// snapshot. The caller holds c.mu.
func (c *ChatController) endLocked(s *session, state stream.RequestState, err error) stream.RequestInfo {
	c.tracker.Finish(s.id, state, err)
	info, _ := c.tracker.Get(s.id)
	c.usage = info.Usage
	return info
}

func recordRequest(span trace.Span, info stream.RequestInfo, toolCalls int) {
	attrs := []attribute.KeyValue{
		telemetry.StringAttr("request.state", info.State.String()),
		telemetry.IntAttr("request.events", info.Events),
		telemetry.IntAttr("request.tool_calls", toolCalls),
		attribute.Int64("request.duration_ms", info.Duration().Milliseconds()),
	}
	if info.FinishReason != "" {
		attrs = append(attrs, telemetry.StringAttr("request.finish_reason", info.FinishReason))
	}
	if u := info.Usage; u != nil {
		attrs = append(attrs,
			telemetry.IntAttr("usage.prompt_tokens", u.PromptTokens),
			telemetry.IntAttr("usage.completion_tokens", u.CompletionTokens),
			telemetry.IntAttr("usage.total_tokens", u.TotalTokens),
		)
	}
	span.SetAttributes(attrs...)
}

func usageText(u *stream.Usage) string {
	if u == nil {
		return "usage unknown"
	}
	return fmt.Sprintf("%d prompt + %d completion = %d tokens", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

func (c *ChatController) notifyFinish(msg chat.Message) {
	if c.onFinish == nil {
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("on finish panicked: %v", r)
			}
		}()
		return c.onFinish(msg)
	}()
	if err != nil {
		logger.Error("chat %s: finish callback failed: %v", c.id, err)
		c.reportError(err)
	}
}

func (c *ChatController) reportError(err error) {
	if c.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("chat %s: error callback panicked: %v", c.id, r)
		}
	}()
	c.onError(err)
}
