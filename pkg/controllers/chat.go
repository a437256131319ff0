package controllers

import (
	"context"
	"strings"
	"sync"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/ids"
	"github.com/killallgit/usechat/pkg/observable"
	"github.com/killallgit/usechat/pkg/stream"
)

// ChatController owns one conversation: its history, draft input and the
// single in-flight request. It is safe for concurrent use.
//
// Subscribers are notified synchronously, in publish order, while the
// controller's lock is held. They must not call back into the controller
// from the notification.
type ChatController struct {
	transport stream.Transport

	id             string
	genID          ids.Generator
	initial        []chat.Message
	tools          []stream.ToolDefinition
	onFinish       func(chat.Message) error
	onError        func(error)
	preventDefault bool

	mu       sync.Mutex
	messages []chat.Message
	status   Status
	err      error
	input    string
	usage    *stream.Usage
	active   *session
	store    *observable.Store[State]

	tracker     *stream.Tracker
	lastRequest string
}

func NewChatController(transport stream.Transport, opts ...Option) *ChatController {
	c := &ChatController{
		transport: transport,
		genID:     ids.UUID(),
		status:    StatusIdle,
		tracker:   stream.NewTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = c.genID()
	}

	for i, msg := range c.initial {
		msg.ID = c.genID()
		c.initial[i] = chat.WithParts(msg)
	}
	c.messages = chat.CloneAll(c.initial)
	c.store = observable.New(c.snapshotLocked())
	return c
}

func (c *ChatController) ID() string {
	return c.id
}

// Messages returns the current history. The messages must not be modified.
func (c *ChatController) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return chat.Truncate(c.messages, len(c.messages))
}

func (c *ChatController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the error of the last failed request, or nil.
func (c *ChatController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *ChatController) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *ChatController) SetInput(input string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = input
	c.publishLocked()
}

// State returns the most recently published snapshot of the conversation.
func (c *ChatController) State() State {
	return c.store.Get()
}

// LastRequest returns the lifecycle of the most recent request, if one was
// started.
func (c *ChatController) LastRequest() (stream.RequestInfo, bool) {
	c.mu.Lock()
	id := c.lastRequest
	c.mu.Unlock()
	if id == "" {
		return stream.RequestInfo{}, false
	}
	return c.tracker.Get(id)
}

// Subscribe registers fn to receive every new state and returns a function
// that removes it.
func (c *ChatController) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

// SubmitMessage appends a user message and streams the assistant's answer.
// It returns when the request has ended. Empty input, or input submitted
// while a request is running, is ignored. The returned error is the one
// stored in Err.
func (c *ChatController) SubmitMessage(ctx context.Context, in InputMessage) error {
	user := chat.Message{Role: chat.RoleUser, Content: in.Content}
	if len(in.Items) > 0 {
		user.Items = append([]chat.ContentItem(nil), in.Items...)
	}
	if user.IsEmpty() {
		return nil
	}

	c.mu.Lock()
	if c.status == StatusLoading {
		c.mu.Unlock()
		return nil
	}
	user.ID = c.genID()
	s := c.begin(ctx, chat.Append(c.messages, chat.WithParts(user)))
	c.mu.Unlock()

	return c.run(s)
}

// HandleSubmit submits the draft input as a single text item and clears the
// draft afterwards. ev may be nil. While a request is running the draft is
// left untouched.
func (c *ChatController) HandleSubmit(ctx context.Context, ev SubmitEvent) error {
	if ev != nil && c.preventDefault {
		ev.PreventDefault()
	}

	c.mu.Lock()
	input, loading := c.input, c.status == StatusLoading
	c.mu.Unlock()
	if loading || strings.TrimSpace(input) == "" {
		return nil
	}

	err := c.SubmitMessage(ctx, InputMessage{Items: []chat.ContentItem{chat.TextItem(input)}})
	c.SetInput("")
	return err
}

// HandleInputChange copies the event's value into the draft input.
func (c *ChatController) HandleInputChange(ev ChangeEvent) {
	if ev == nil {
		return
	}
	c.SetInput(ev.Value())
}

// Stop cancels the running request. The conversation becomes idle at once and
// keeps the output streamed so far.
func (c *ChatController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopLocked() {
		c.publishLocked()
	}
}

// Reload discards everything after the most recent user message with the
// given id (or the most recent user message, when id is empty or unknown)
// and requests a new answer. It does nothing while loading.
func (c *ChatController) Reload(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.status == StatusLoading || len(c.messages) == 0 {
		c.mu.Unlock()
		return nil
	}
	i := chat.LastUserIndex(c.messages, id)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	s := c.begin(ctx, chat.Truncate(c.messages, i+1))
	c.mu.Unlock()

	return c.run(s)
}

// Reset stops the running request and restores the initial messages.
func (c *ChatController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.messages = chat.CloneAll(c.initial)
	c.input = ""
	c.err = nil
	c.usage = nil
	c.status = StatusIdle
	c.publishLocked()
}

// SetMessages replaces the history. It does nothing while loading. Messages
// without an id get one, and messages without parts get them extracted.
func (c *ChatController) SetMessages(msgs []chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusLoading {
		return
	}
	next := make([]chat.Message, len(msgs))
	for i, msg := range msgs {
		msg = chat.Clone(msg)
		if msg.ID == "" {
			msg.ID = c.genID()
		}
		if len(msg.Parts) == 0 {
			msg.Parts = chat.ExtractParts(msg)
		}
		next[i] = msg
	}
	c.messages = next
	c.publishLocked()
}

func (c *ChatController) snapshotLocked() State {
	return State{
		Messages: c.messages,
		Status:   c.status,
		Err:      c.err,
		Input:    c.input,
		Usage:    c.usage,
	}
}

func (c *ChatController) publishLocked() {
	c.store.Publish(c.snapshotLocked())
}
