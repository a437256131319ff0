package chat_test

import (
	"github.com/killallgit/usechat/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractParts", func() {
	It("should map string content to a single text part", func() {
		parts := chat.ExtractParts(chat.NewUserMessage("hello"))
		Expect(parts).To(Equal([]chat.Part{chat.TextPart{Text: "hello"}}))
	})

	It("should return no parts for absent content", func() {
		parts := chat.ExtractParts(chat.Message{Role: chat.RoleUser})
		Expect(parts).NotTo(BeNil())
		Expect(parts).To(BeEmpty())
	})

	It("should map structured items in order", func() {
		msg := chat.Message{Items: []chat.ContentItem{
			chat.TextItem("look"),
			{Type: chat.ContentTypeImageURL, ImageURL: &chat.ImageURL{URL: "http://img"}},
			{Type: chat.ContentTypeRefusal, Refusal: "cannot"},
			{Type: chat.ContentTypeInputAudio, InputAudio: &chat.InputAudio{Data: "AAA", Format: "wav"}},
			{Type: chat.ContentType("video")},
		}}

		Expect(chat.ExtractParts(msg)).To(Equal([]chat.Part{
			chat.TextPart{Text: "look"},
			chat.TextPart{Text: chat.UnsupportedContentText},
			chat.RefusalPart{Refusal: "cannot"},
			chat.TextPart{Text: chat.UnsupportedContentText},
		}))
	})

	It("should prefer items over Content", func() {
		msg := chat.Message{Content: "ignored", Items: []chat.ContentItem{chat.TextItem("used")}}
		Expect(chat.ExtractParts(msg)).To(Equal([]chat.Part{chat.TextPart{Text: "used"}}))
	})

	It("should be idempotent", func() {
		msg := chat.Message{Items: []chat.ContentItem{
			chat.TextItem("a"),
			{Type: chat.ContentTypeRefusal, Refusal: "r"},
			{Type: chat.ContentTypeImageURL},
		}}

		once := chat.WithParts(msg)
		twice := chat.WithParts(once)

		Expect(twice.Parts).To(Equal(once.Parts))
		Expect(chat.ExtractParts(twice)).To(Equal(chat.ExtractParts(msg)))
	})

	It("should not modify its input in WithParts", func() {
		msg := chat.NewUserMessage("x")
		out := chat.WithParts(msg)

		Expect(msg.Parts).To(BeNil())
		Expect(out.Parts).To(HaveLen(1))
	})
})
