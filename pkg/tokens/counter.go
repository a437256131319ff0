package tokens

import (
	"strings"
	"sync"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/logger"
	"github.com/killallgit/usechat/pkg/stream"
	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for usage estimates. The tiktoken encoding is loaded
// on first use; when it cannot be loaded the counter falls back to a
// word/character estimate.
type Counter struct {
	encoding string
	load     func(string) (*tiktoken.Tiktoken, error)

	once    sync.Once
	encoder *tiktoken.Tiktoken
}

// NewCounter returns a counter using the encoding that best fits model.
func NewCounter(model string) *Counter {
	return &Counter{
		encoding: encodingForModel(model),
		load:     tiktoken.GetEncoding,
	}
}

// NewEstimator returns a counter that never loads an encoding.
func NewEstimator() *Counter {
	return &Counter{}
}

func (c *Counter) encoderOrNil() *tiktoken.Tiktoken {
	c.once.Do(func() {
		if c.load == nil {
			return
		}
		enc, err := c.load(c.encoding)
		if err != nil {
			logger.Debug("tokens: encoding %s unavailable, estimating: %v", c.encoding, err)
			return
		}
		c.encoder = enc
	})
	return c.encoder
}

// Count counts the tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoderOrNil(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// CountMessages counts the tokens of a conversation, including the
// per-message framing most chat templates add.
func (c *Counter) CountMessages(msgs []chat.Message) int {
	total := 0
	for _, msg := range msgs {
		total += c.Count(string(msg.Role)) + c.Count(msg.Text()) + 4
	}
	// Every reply is primed with the assistant role.
	return total + 3
}

// Usage estimates the usage of a generation.
func (c *Counter) Usage(prompt []chat.Message, completion string) *stream.Usage {
	p := c.CountMessages(prompt)
	n := c.Count(completion)
	return &stream.Usage{
		PromptTokens:     p,
		CompletionTokens: n,
		TotalTokens:      p + n,
	}
}

func encodingForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt-4o"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		return "o200k_base"
	case strings.Contains(m, "davinci"), strings.Contains(m, "curie"):
		return "p50k_base"
	default:
		return "cl100k_base"
	}
}

// estimateTokens takes the larger of the word count and a quarter of the
// byte count.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	chars := len(text) / 4
	return max(words, chars)
}
