package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(ctx context.Context, f *FakeTransport, req stream.Request) ([]stream.Event, error) {
	var events []stream.Event
	err := f.Stream(ctx, req, func(ev stream.Event) {
		events = append(events, ev)
	})
	return events, err
}

func TestFakeTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("should stream text deltas and finish", func(t *testing.T) {
		f := NewFakeTransport("hello world")
		f.SetChunkSize(6)

		events, err := collect(ctx, f, stream.Request{})
		require.NoError(t, err)
		assert.Equal(t, []stream.Event{
			stream.TextDelta("hello "),
			stream.TextDelta("world"),
			stream.Finish("stop", nil),
		}, events)
	})

	t.Run("should report configured usage on finish", func(t *testing.T) {
		f := NewFakeTransport("hi")
		f.SetUsage(stream.Usage{PromptTokens: 4, CompletionTokens: 1, TotalTokens: 5})

		events, err := collect(ctx, f, stream.Request{})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, stream.Finish("stop", &stream.Usage{PromptTokens: 4, CompletionTokens: 1, TotalTokens: 5}), events[1])
	})

	t.Run("should record requests", func(t *testing.T) {
		f := NewFakeTransport("a", "b")
		req := stream.Request{Messages: []chat.Message{chat.NewUserMessage("hi")}}

		_, err := collect(ctx, f, req)
		require.NoError(t, err)
		events, err := collect(ctx, f, req)
		require.NoError(t, err)

		assert.Equal(t, stream.TextDelta("b"), events[0])
		assert.Equal(t, 2, f.CallCount())
		assert.Equal(t, "hi", f.Requests()[0].Messages[0].Content)
	})

	t.Run("should fail after configured chunks", func(t *testing.T) {
		f := NewFakeTransport("abcdef")
		f.SetChunkSize(2)
		f.SetFailAfter(2, "connection lost")

		events, err := collect(ctx, f, stream.Request{})
		require.Error(t, err)
		assert.Equal(t, "connection lost", err.Error())
		assert.Len(t, events, 2)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		f := NewFakeTransport("abcdef")
		f.SetChunkSize(1)
		f.SetChunkDelay(time.Hour)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		events, err := collect(cctx, f, stream.Request{})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Empty(t, events)
	})
}
