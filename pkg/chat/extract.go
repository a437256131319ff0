package chat

// UnsupportedContentText replaces content items the core cannot display.
const UnsupportedContentText = "Unsupported message type"

// ExtractParts converts the input representation of m into display parts.
//
// Structured items take precedence over Content. Text and refusal items map to
// their part variants, image and audio items map to a TextPart holding
// UnsupportedContentText, and unknown item types are dropped. Plain Content
// yields a single TextPart. A message with neither yields no parts.
func ExtractParts(m Message) []Part {
	if len(m.Items) > 0 {
		parts := make([]Part, 0, len(m.Items))
		for _, item := range m.Items {
			switch item.Type {
			case ContentTypeText:
				parts = append(parts, TextPart{Text: item.Text})
			case ContentTypeRefusal:
				parts = append(parts, RefusalPart{Refusal: item.Refusal})
			case ContentTypeImageURL, ContentTypeInputAudio:
				parts = append(parts, TextPart{Text: UnsupportedContentText})
			}
		}
		return parts
	}

	if m.Content == "" {
		return []Part{}
	}
	return []Part{TextPart{Text: m.Content}}
}

// WithParts returns a copy of m whose Parts are extracted from its content.
func WithParts(m Message) Message {
	out := Clone(m)
	out.Parts = ExtractParts(m)
	return out
}
