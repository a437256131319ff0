package stream

import "strings"

// ThinkingMarker is a pair of tags that delimit a reasoning block inside a
// plain-text stream.
type ThinkingMarker struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// ThinkingMarkers is the set of marker pairs a splitter recognises.
type ThinkingMarkers []ThinkingMarker

// DefaultThinkingMarkers covers the tags emitted by the common local
// reasoning models.
var DefaultThinkingMarkers = ThinkingMarkers{
	{Start: "<think>", End: "</think>"},
	{Start: "<thinking>", End: "</thinking>"},
}

// Segment is a piece of text classified as reasoning or answer text.
type Segment struct {
	Reasoning bool
	Text      string
}

// Event converts the segment to a text or reasoning delta.
func (s Segment) Event() Event {
	if s.Reasoning {
		return ReasoningDelta(s.Text)
	}
	return TextDelta(s.Text)
}

// ThinkSplitter separates reasoning blocks from answer text in a stream of
// chunks. Markers may be split across chunk boundaries; text that could be
// the beginning of a marker is held back until the next Write or Flush.
type ThinkSplitter struct {
	markers ThinkingMarkers
	pending string
	active  *ThinkingMarker
}

// NewThinkSplitter returns a splitter for markers. Marker pairs with an empty
// start or end are ignored; with no usable pairs every chunk is answer text.
func NewThinkSplitter(markers ThinkingMarkers) *ThinkSplitter {
	usable := make(ThinkingMarkers, 0, len(markers))
	for _, m := range markers {
		if m.Start != "" && m.End != "" {
			usable = append(usable, m)
		}
	}
	return &ThinkSplitter{markers: usable}
}

// InReasoning reports whether the splitter is inside a reasoning block.
func (s *ThinkSplitter) InReasoning() bool {
	return s.active != nil
}

// Write classifies chunk and returns the segments that are now certain.
func (s *ThinkSplitter) Write(chunk string) []Segment {
	buf := s.pending + chunk
	s.pending = ""

	var out []Segment
	for buf != "" {
		if s.active == nil {
			idx, m := s.markers.firstStart(buf)
			if idx >= 0 {
				out = appendSegment(out, false, buf[:idx])
				s.active = &m
				buf = buf[idx+len(m.Start):]
				continue
			}
			keep := 0
			for _, m := range s.markers {
				keep = max(keep, partialSuffix(buf, m.Start))
			}
			out = appendSegment(out, false, buf[:len(buf)-keep])
			s.pending = buf[len(buf)-keep:]
			return out
		}

		if idx := strings.Index(buf, s.active.End); idx >= 0 {
			out = appendSegment(out, true, buf[:idx])
			buf = buf[idx+len(s.active.End):]
			s.active = nil
			continue
		}
		keep := partialSuffix(buf, s.active.End)
		out = appendSegment(out, true, buf[:len(buf)-keep])
		s.pending = buf[len(buf)-keep:]
		return out
	}
	return out
}

// Flush returns any held-back text and resets the splitter. An unterminated
// reasoning block stays reasoning.
func (s *ThinkSplitter) Flush() []Segment {
	out := appendSegment(nil, s.active != nil, s.pending)
	s.pending = ""
	s.active = nil
	return out
}

// firstStart returns the position of the earliest start marker in text and
// the pair it belongs to. When two markers start at the same position the
// longer one wins.
func (ms ThinkingMarkers) firstStart(text string) (int, ThinkingMarker) {
	best := -1
	var found ThinkingMarker
	for _, m := range ms {
		idx := strings.Index(text, m.Start)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best || (idx == best && len(m.Start) > len(found.Start)) {
			best = idx
			found = m
		}
	}
	return best, found
}

// partialSuffix returns the length of the longest suffix of text that is a
// proper prefix of marker.
func partialSuffix(text, marker string) int {
	for k := min(len(text), len(marker)-1); k > 0; k-- {
		if strings.HasSuffix(text, marker[:k]) {
			return k
		}
	}
	return 0
}

func appendSegment(out []Segment, reasoning bool, text string) []Segment {
	if text == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Reasoning == reasoning {
		out[n-1].Text += text
		return out
	}
	return append(out, Segment{Reasoning: reasoning, Text: text})
}
