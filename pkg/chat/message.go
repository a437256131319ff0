package chat

import "strings"

// ContentType tags a structured content item.
type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeRefusal    ContentType = "refusal"
	ContentTypeImageURL   ContentType = "image_url"
	ContentTypeInputAudio ContentType = "input_audio"
)

// ImageURL is the payload of an image_url content item.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// InputAudio is the payload of an input_audio content item.
type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// ContentItem is one element of structured message content.
type ContentItem struct {
	Type       ContentType `json:"type"`
	Text       string      `json:"text,omitempty"`
	Refusal    string      `json:"refusal,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

// TextItem returns a text content item.
func TextItem(text string) ContentItem {
	return ContentItem{Type: ContentTypeText, Text: text}
}

// Message is one entry of a conversation.
//
// Content and Items are the input representation: Content holds plain text and
// Items holds structured content. When Items is non-empty it takes precedence.
// Parts is the display representation derived from the input (for user and
// system messages) or accumulated from stream events (for assistant messages).
// While an assistant message streams, every text delta is also appended to
// Content so consumers that only read plain text keep working.
type Message struct {
	ID      string        `json:"id"`
	Role    Role          `json:"role"`
	Content string        `json:"content,omitempty"`
	Items   []ContentItem `json:"items,omitempty"`
	Parts   []Part        `json:"-"`
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// IsEmpty reports whether the message carries no submittable content: no
// structured items and no non-whitespace text.
func (m Message) IsEmpty() bool {
	return len(m.Items) == 0 && strings.TrimSpace(m.Content) == ""
}

// ToolCalls returns the tool-call parts of m in order.
func (m Message) ToolCalls() []ToolCallPart {
	var out []ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Text returns the plain text of m. Text items are joined when m carries
// structured content; otherwise Content is returned as is.
func (m Message) Text() string {
	if len(m.Items) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, item := range m.Items {
		if item.Type == ContentTypeText {
			b.WriteString(item.Text)
		}
	}
	return b.String()
}
