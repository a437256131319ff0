package chat_test

import (
	"github.com/killallgit/usechat/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Messages", func() {
	Describe("constructors", func() {
		It("should create a user message", func() {
			msg := chat.NewUserMessage("hello")

			Expect(msg.Role).To(Equal(chat.RoleUser))
			Expect(msg.Content).To(Equal("hello"))
			Expect(msg.IsUser()).To(BeTrue())
			Expect(msg.IsAssistant()).To(BeFalse())
		})

		It("should create a system message", func() {
			msg := chat.NewSystemMessage("you are a helpful assistant.")

			Expect(msg.IsSystem()).To(BeTrue())
			Expect(msg.Content).To(Equal("you are a helpful assistant."))
		})
	})

	Describe("IsEmpty", func() {
		It("should treat whitespace-only content as empty", func() {
			Expect(chat.NewUserMessage("  \n\t").IsEmpty()).To(BeTrue())
		})

		It("should treat an empty item list as empty", func() {
			msg := chat.Message{Role: chat.RoleUser, Items: []chat.ContentItem{}}
			Expect(msg.IsEmpty()).To(BeTrue())
		})

		It("should not treat structured content as empty", func() {
			msg := chat.Message{Items: []chat.ContentItem{chat.TextItem(" ")}}
			Expect(msg.IsEmpty()).To(BeFalse())
		})
	})

	Describe("Text", func() {
		It("should join text items", func() {
			msg := chat.Message{Items: []chat.ContentItem{
				chat.TextItem("a"),
				{Type: chat.ContentTypeRefusal, Refusal: "no"},
				chat.TextItem("b"),
			}}
			Expect(msg.Text()).To(Equal("ab"))
		})

		It("should fall back to Content", func() {
			Expect(chat.NewUserMessage("plain").Text()).To(Equal("plain"))
		})
	})

	Describe("ToolCalls", func() {
		It("should list tool-call parts in order", func() {
			msg := chat.Message{Parts: []chat.Part{
				chat.TextPart{Text: "x"},
				chat.ToolCallPart{ToolCall: chat.ToolCallRef{ID: "a"}},
				chat.ToolCallPart{ToolCall: chat.ToolCallRef{ID: "b"}},
			}}

			calls := msg.ToolCalls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].ToolCall.ID).To(Equal("a"))
			Expect(calls[1].ToolCall.ID).To(Equal("b"))
		})
	})

	Describe("Clone", func() {
		It("should not share parts or items with the original", func() {
			idx := 0
			orig := chat.Message{
				ID:    "m1",
				Role:  chat.RoleAssistant,
				Items: []chat.ContentItem{{Type: chat.ContentTypeImageURL, ImageURL: &chat.ImageURL{URL: "http://x"}}},
				Parts: []chat.Part{
					chat.TextPart{Text: "hi"},
					chat.ToolCallPart{ToolCall: chat.ToolCallRef{ID: "c1", Index: &idx}, Status: chat.ToolCallLoading},
				},
			}

			cp := chat.Clone(orig)
			cp.Parts[0] = chat.TextPart{Text: "changed"}
			cp.Items[0].ImageURL.URL = "http://y"
			*cp.Parts[1].(chat.ToolCallPart).ToolCall.Index = 7

			Expect(orig.Parts[0]).To(Equal(chat.TextPart{Text: "hi"}))
			Expect(orig.Items[0].ImageURL.URL).To(Equal("http://x"))
			Expect(*orig.Parts[1].(chat.ToolCallPart).ToolCall.Index).To(Equal(0))
		})

		It("should keep nil slices nil", func() {
			cp := chat.Clone(chat.NewUserMessage("x"))
			Expect(cp.Items).To(BeNil())
			Expect(cp.Parts).To(BeNil())
		})
	})
})

var _ = Describe("ToolCallStatus", func() {
	DescribeTable("CanTransition",
		func(from, to chat.ToolCallStatus, ok bool) {
			Expect(from.CanTransition(to)).To(Equal(ok))
		},
		Entry("partial to loading", chat.ToolCallPartial, chat.ToolCallLoading, true),
		Entry("partial to error", chat.ToolCallPartial, chat.ToolCallError, true),
		Entry("loading to complete", chat.ToolCallLoading, chat.ToolCallComplete, true),
		Entry("loading to partial", chat.ToolCallLoading, chat.ToolCallPartial, false),
		Entry("complete to error", chat.ToolCallComplete, chat.ToolCallError, false),
		Entry("error to complete", chat.ToolCallError, chat.ToolCallComplete, false),
		Entry("complete to complete", chat.ToolCallComplete, chat.ToolCallComplete, false),
		Entry("error to error", chat.ToolCallError, chat.ToolCallError, false),
		Entry("partial to partial", chat.ToolCallPartial, chat.ToolCallPartial, true),
	)
})
