package chat

// Clone returns a deep copy of m. Tool-call results are opaque and are
// shared, not copied.
func Clone(m Message) Message {
	out := m
	if m.Items != nil {
		out.Items = make([]ContentItem, len(m.Items))
		for i, item := range m.Items {
			out.Items[i] = cloneItem(item)
		}
	}
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = clonePart(p)
		}
	}
	return out
}

// CloneAll deep-copies every message in msgs.
func CloneAll(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Clone(m)
	}
	return out
}

func cloneItem(item ContentItem) ContentItem {
	if item.ImageURL != nil {
		img := *item.ImageURL
		item.ImageURL = &img
	}
	if item.InputAudio != nil {
		audio := *item.InputAudio
		item.InputAudio = &audio
	}
	return item
}

func clonePart(p Part) Part {
	tc, ok := p.(ToolCallPart)
	if !ok {
		return p
	}
	if tc.ToolCall.Index != nil {
		idx := *tc.ToolCall.Index
		tc.ToolCall.Index = &idx
	}
	return tc
}
