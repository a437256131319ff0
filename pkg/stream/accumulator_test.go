package stream_test

import (
	"errors"
	"strings"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/stream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func applyAll(events ...stream.Event) *stream.Accumulator {
	acc := stream.NewAccumulator(nil)
	for _, ev := range events {
		acc.Apply(ev)
	}
	return acc
}

func intPtr(i int) *int { return &i }

var _ = Describe("Accumulator", func() {
	Describe("text runs", func() {
		It("should merge contiguous text deltas into one part", func() {
			acc := applyAll(
				stream.TextDelta("Hi"),
				stream.TextDelta(" "),
				stream.TextDelta("there"),
			)

			Expect(acc.Message().Parts).To(Equal([]chat.Part{chat.TextPart{Text: "Hi there"}}))
			Expect(acc.Message().Content).To(Equal("Hi there"))
		})

		It("should not merge text across a reasoning run", func() {
			acc := applyAll(
				stream.TextDelta("a"),
				stream.ReasoningDelta("r1"),
				stream.ReasoningDelta("r2"),
				stream.TextDelta("b"),
			)

			Expect(acc.Message().Parts).To(Equal([]chat.Part{
				chat.TextPart{Text: "a"},
				chat.ReasoningPart{Reasoning: "r1r2"},
				chat.TextPart{Text: "b"},
			}))
			Expect(acc.Message().Content).To(Equal("ab"))
		})

		It("should keep refusals in their own run", func() {
			acc := applyAll(
				stream.RefusalDelta("I can"),
				stream.RefusalDelta("not"),
				stream.TextDelta("sorry"),
			)

			Expect(acc.Message().Parts).To(Equal([]chat.Part{
				chat.RefusalPart{Refusal: "I cannot"},
				chat.TextPart{Text: "sorry"},
			}))
		})

		It("should ignore empty deltas", func() {
			acc := applyAll(
				stream.TextDelta("a"),
				stream.ReasoningDelta(""),
				stream.TextDelta("b"),
			)

			Expect(acc.Message().Parts).To(Equal([]chat.Part{chat.TextPart{Text: "ab"}}))
		})

		It("should close runs on any non-delta event", func() {
			acc := applyAll(
				stream.TextDelta("a"),
				stream.ToolCallStart("c1", "lookup"),
				stream.TextDelta("b"),
			)

			Expect(acc.Message().Parts).To(HaveLen(3))
			Expect(acc.Message().Parts[2]).To(Equal(chat.TextPart{Text: "b"}))
		})

		It("should not depend on chunk granularity", func() {
			text := "The quick brown fox jumps over the lazy dog."

			whole := applyAll(stream.ReasoningDelta("hmm"), stream.TextDelta(text))

			var events []stream.Event
			events = append(events, stream.ReasoningDelta("h"), stream.ReasoningDelta("mm"))
			for _, r := range text {
				events = append(events, stream.TextDelta(string(r)))
			}
			split := applyAll(events...)

			Expect(split.Message().Parts).To(Equal(whole.Message().Parts))
			Expect(split.Message().Content).To(Equal(whole.Message().Content))
		})
	})

	Describe("tool calls", func() {
		It("should complete a call that receives a result", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "weather"),
				stream.ToolCallDelta("c1", `{"city":`),
				stream.ToolCallDelta("c1", `"Paris"}`),
				stream.ToolResult("c1", "sunny"),
			)

			calls := acc.Message().ToolCalls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Status).To(Equal(chat.ToolCallComplete))
			Expect(calls[0].Result).To(Equal("sunny"))
			Expect(calls[0].ToolCall.Function.Name).To(Equal("weather"))
			Expect(calls[0].ToolCall.Function.Arguments).To(Equal(`{"city":"Paris"}`))
		})

		It("should fail a call that receives an error", func() {
			boom := errors.New("boom")
			acc := applyAll(
				stream.ToolCallStart("c1", "weather"),
				stream.ToolCallDelta("c1", "{}"),
				stream.ToolError("c1", boom),
			)

			calls := acc.Message().ToolCalls()
			Expect(calls[0].Status).To(Equal(chat.ToolCallError))
			Expect(calls[0].Error).To(MatchError(boom))
		})

		It("should move from partial to loading on the first delta", func() {
			acc := applyAll(stream.ToolCallStart("c1", "f"))
			Expect(acc.Message().ToolCalls()[0].Status).To(Equal(chat.ToolCallPartial))

			acc.Apply(stream.ToolCallDelta("c1", "{"))
			Expect(acc.Message().ToolCalls()[0].Status).To(Equal(chat.ToolCallLoading))
		})

		It("should replace arguments on tool-call", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolCallDelta("c1", `{"a":`),
				stream.ToolCall("c1", "f", `{"a":1}`),
			)

			call := acc.Message().ToolCalls()[0]
			Expect(call.Status).To(Equal(chat.ToolCallComplete))
			Expect(call.ToolCall.Function.Arguments).To(Equal(`{"a":1}`))
		})

		It("should attach a late result to a completed call", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolCall("c1", "f", "{}"),
				stream.ToolResult("c1", 42),
				stream.ToolResult("c1", 43),
			)

			call := acc.Message().ToolCalls()[0]
			Expect(call.Status).To(Equal(chat.ToolCallComplete))
			Expect(call.Result).To(Equal(42))
			Expect(call.Error).To(BeNil())
		})

		It("should keep a tool error reported after the call completed", func() {
			crash := errors.New("tool crashed")
			acc := applyAll(
				stream.TextDelta("checking"),
				stream.ToolCallStart("c1", "f"),
				stream.ToolCallDelta("c1", "{}"),
				stream.ToolCall("c1", "f", "{}"),
				stream.ToolError("c1", crash),
				stream.ToolResult("c1", "ignored"),
				stream.Finish("tool_calls", nil),
			)

			call := acc.Message().ToolCalls()[0]
			Expect(call.Status).To(Equal(chat.ToolCallComplete))
			Expect(call.Error).To(MatchError(crash))
			Expect(call.Result).To(BeNil())
		})

		It("should create a call from a tool-call without a start", func() {
			acc := applyAll(stream.ToolCall("c9", "search", `{"q":"go"}`))

			calls := acc.Message().ToolCalls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Status).To(Equal(chat.ToolCallComplete))
			Expect(calls[0].ToolCall.ID).To(Equal("c9"))
		})

		It("should keep error terminal", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolError("c1", errors.New("bad")),
				stream.ToolResult("c1", "ok"),
				stream.ToolCallDelta("c1", "more"),
				stream.ToolCall("c1", "f", "{}"),
			)

			call := acc.Message().ToolCalls()[0]
			Expect(call.Status).To(Equal(chat.ToolCallError))
			Expect(call.Result).To(BeNil())
			Expect(call.ToolCall.Function.Arguments).To(BeEmpty())
		})

		It("should ignore a result with neither payload nor error", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolCallDelta("c1", "{}"),
				stream.Event{Type: stream.EventToolResult, ToolCallID: "c1"},
			)

			Expect(acc.Message().ToolCalls()[0].Status).To(Equal(chat.ToolCallLoading))
		})

		It("should ignore events for unknown calls", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolCallDelta("nope", "x"),
				stream.ToolResult("nope", "x"),
				stream.ToolError("nope", errors.New("x")),
			)

			calls := acc.Message().ToolCalls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Status).To(Equal(chat.ToolCallPartial))
		})

		It("should not duplicate a call started twice", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolCallStart("c1", "f"),
			)

			Expect(acc.Message().ToolCalls()).To(HaveLen(1))
		})

		It("should match by index until the id is known", func() {
			acc := applyAll(
				stream.Event{Type: stream.EventToolCallStart, Index: intPtr(0), ToolName: "f"},
				stream.Event{Type: stream.EventToolCallDelta, Index: intPtr(0), ArgsTextDelta: "{"},
				stream.Event{Type: stream.EventToolCallDelta, Index: intPtr(0), ToolCallID: "c1", ArgsTextDelta: "}"},
				stream.ToolResult("c1", "done"),
			)

			calls := acc.Message().ToolCalls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].ToolCall.ID).To(Equal("c1"))
			Expect(calls[0].ToolCall.Function.Arguments).To(Equal("{}"))
			Expect(calls[0].Status).To(Equal(chat.ToolCallComplete))
		})
	})

	Describe("finish", func() {
		It("should fail open calls", func() {
			acc := applyAll(
				stream.ToolCallStart("c1", "f"),
				stream.ToolCallStart("c2", "g"),
				stream.ToolCallDelta("c2", "{"),
				stream.ToolCallStart("c3", "h"),
				stream.ToolResult("c3", "ok"),
				stream.Finish("tool_calls", &stream.Usage{TotalTokens: 9}),
			)

			calls := acc.Message().ToolCalls()
			Expect(calls[0].Status).To(Equal(chat.ToolCallError))
			Expect(calls[0].Error).To(MatchError(stream.ErrToolCallUnresolved))
			Expect(calls[1].Status).To(Equal(chat.ToolCallError))
			Expect(calls[2].Status).To(Equal(chat.ToolCallComplete))
			Expect(acc.FinishReason()).To(Equal("tool_calls"))
		})

		It("should fail open calls on Finalize", func() {
			acc := applyAll(stream.ToolCallStart("c1", "f"))
			acc.Finalize()

			Expect(acc.Message().ToolCalls()[0].Status).To(Equal(chat.ToolCallError))
		})
	})

	Describe("errors", func() {
		It("should record error events without touching parts", func() {
			boom := errors.New("upstream")
			acc := applyAll(stream.TextDelta("partial"), stream.ErrorEvent(boom))

			Expect(acc.Err()).To(MatchError(boom))
			Expect(acc.Message().Parts).To(Equal([]chat.Part{chat.TextPart{Text: "partial"}}))
		})
	})

	It("should build on an existing message", func() {
		msg := &chat.Message{ID: "a1", Role: chat.RoleAssistant}
		acc := stream.NewAccumulator(msg)
		acc.Apply(stream.TextDelta("x"))

		Expect(acc.Message()).To(BeIdenticalTo(msg))
		Expect(msg.Parts).To(HaveLen(1))
		Expect(strings.TrimSpace(msg.Content)).To(Equal("x"))
	})
})
