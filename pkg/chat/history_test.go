package chat_test

import (
	"github.com/killallgit/usechat/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newMsg(id string, role chat.Role, content string) chat.Message {
	return chat.Message{ID: id, Role: role, Content: content}
}

var _ = Describe("History helpers", func() {
	var history []chat.Message

	BeforeEach(func() {
		history = []chat.Message{
			newMsg("s", chat.RoleSystem, "sys"),
			newMsg("u1", chat.RoleUser, "a"),
			newMsg("a1", chat.RoleAssistant, "A"),
			newMsg("u2", chat.RoleUser, "b"),
			newMsg("a2", chat.RoleAssistant, "B"),
		}
	})

	Describe("Append", func() {
		It("should not alias the input backing array", func() {
			base := history[:2]
			out := chat.Append(base, newMsg("x", chat.RoleUser, "x"))

			Expect(out).To(HaveLen(3))
			Expect(history[2].ID).To(Equal("a1"))
		})
	})

	Describe("Truncate", func() {
		It("should clamp out of range lengths", func() {
			Expect(chat.Truncate(history, 99)).To(HaveLen(5))
			Expect(chat.Truncate(history, -1)).To(BeEmpty())
		})
	})

	Describe("UpsertTrailing", func() {
		It("should replace the last message when asked", func() {
			out := chat.UpsertTrailing(history, newMsg("a2", chat.RoleAssistant, "B2"), true)

			Expect(out).To(HaveLen(5))
			Expect(out[4].Content).To(Equal("B2"))
			Expect(history[4].Content).To(Equal("B"))
		})

		It("should append otherwise", func() {
			out := chat.UpsertTrailing(history, newMsg("a3", chat.RoleAssistant, "C"), false)
			Expect(out).To(HaveLen(6))
		})

		It("should append to an empty history even when replacing", func() {
			out := chat.UpsertTrailing(nil, newMsg("a", chat.RoleAssistant, ""), true)
			Expect(out).To(HaveLen(1))
		})
	})

	Describe("LastUserIndex", func() {
		It("should find the most recent user message", func() {
			Expect(chat.LastUserIndex(history, "")).To(Equal(3))
		})

		It("should find a user message by id", func() {
			Expect(chat.LastUserIndex(history, "u1")).To(Equal(1))
		})

		It("should fall back to the most recent user message for unknown ids", func() {
			Expect(chat.LastUserIndex(history, "nope")).To(Equal(3))
		})

		It("should ignore non-user messages with a matching id", func() {
			Expect(chat.LastUserIndex(history, "a1")).To(Equal(3))
		})

		It("should return -1 without user messages", func() {
			Expect(chat.LastUserIndex(history[:1], "")).To(Equal(-1))
		})
	})

	Describe("Last", func() {
		It("should report the last message", func() {
			last, ok := chat.Last(history)
			Expect(ok).To(BeTrue())
			Expect(last.ID).To(Equal("a2"))

			_, ok = chat.Last(nil)
			Expect(ok).To(BeFalse())
		})
	})
})
