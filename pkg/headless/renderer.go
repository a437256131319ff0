package headless

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/controllers"
	"github.com/killallgit/usechat/pkg/logger"
)

// RendererOptions configures a Renderer.
type RendererOptions struct {
	ShowReasoning bool
	// ShowUsage prints token usage after each answer that reports it.
	ShowUsage bool
}

// Renderer prints conversation states to a terminal as they stream in. It
// remembers how much of the assistant message it has already written and
// prints only what is new.
type Renderer struct {
	out           io.Writer
	showReasoning bool
	showUsage     bool

	reasoningStyle lipgloss.Style
	refusalStyle   lipgloss.Style
	toolStyle      lipgloss.Style
	resultStyle    lipgloss.Style
	errorStyle     lipgloss.Style
	formatter      chroma.Formatter

	mu          sync.Mutex
	loading     bool
	msgID       string
	printed     map[int]int
	toolShown   map[int]bool
	toolSettled map[int]bool
	lastPart    int
}

func NewRenderer(out io.Writer, opts RendererOptions) *Renderer {
	lg := lipgloss.NewRenderer(out)

	formatter := formatters.NoOp
	if lg.ColorProfile() != termenv.Ascii {
		if f := formatters.Get("terminal16m"); f != nil {
			formatter = f
		}
	}

	r := &Renderer{
		out:           out,
		showReasoning: opts.ShowReasoning,
		showUsage:     opts.ShowUsage,
		formatter:     formatter,

		reasoningStyle: lg.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true),
		refusalStyle: lg.NewStyle().
			Foreground(lipgloss.Color("#f5b761")),
		toolStyle: lg.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#6b93b5")),
		resultStyle: lg.NewStyle().
			Foreground(lipgloss.Color("#93b56b")),
		errorStyle: lg.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#d95f5f")),
	}
	r.resetMessage("")
	return r
}

// Render writes whatever st adds to the output. It is meant to be used as a
// ChatController subscriber.
func (r *Renderer) Render(st controllers.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loading := st.Status == controllers.StatusLoading
	if !loading && !r.loading {
		return
	}
	if loading && !r.loading {
		r.loading = true
		r.resetMessage("")
	}

	if msg, ok := chat.Last(st.Messages); ok && msg.IsAssistant() {
		r.renderMessage(msg)
	}

	if !loading {
		r.loading = false
		if r.lastPart >= 0 {
			fmt.Fprintln(r.out)
		}
		if st.Status == controllers.StatusError && st.Err != nil {
			r.writeError(st.Err)
		}
		if r.showUsage && st.Usage != nil {
			fmt.Fprintln(r.out, paint(&r.reasoningStyle, fmt.Sprintf("tokens: %d prompt, %d completion, %d total",
				st.Usage.PromptTokens, st.Usage.CompletionTokens, st.Usage.TotalTokens)))
		}
		r.resetMessage("")
	}
}

// Error prints err in the error style.
func (r *Renderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeError(err)
}

// Info prints a status line.
func (r *Renderer) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, paint(&r.reasoningStyle, msg))
}

func (r *Renderer) writeError(err error) {
	fmt.Fprintln(r.out, paint(&r.errorStyle, "error: "+err.Error()))
}

func (r *Renderer) resetMessage(id string) {
	r.msgID = id
	r.printed = make(map[int]int)
	r.toolShown = make(map[int]bool)
	r.toolSettled = make(map[int]bool)
	r.lastPart = -1
}

func (r *Renderer) renderMessage(msg chat.Message) {
	if msg.ID != r.msgID {
		r.resetMessage(msg.ID)
	}

	for i, p := range msg.Parts {
		switch v := p.(type) {
		case chat.TextPart:
			r.writeRun(i, v.Text, nil, "")
		case chat.ReasoningPart:
			if r.showReasoning {
				r.writeRun(i, v.Reasoning, &r.reasoningStyle, "thinking: ")
			}
		case chat.RefusalPart:
			r.writeRun(i, v.Refusal, &r.refusalStyle, "refusal: ")
		case chat.ToolCallPart:
			if v.Status.Terminal() {
				r.writeToolCall(i, v)
			}
		}
	}
}

func (r *Renderer) writeRun(i int, text string, style *lipgloss.Style, label string) {
	n := r.printed[i]
	if len(text) <= n {
		return
	}
	if r.lastPart != i {
		r.beginPart(i)
		if label != "" {
			io.WriteString(r.out, paint(style, label))
		}
	}

	io.WriteString(r.out, paint(style, text[n:]))
	r.printed[i] = len(text)
}

// paint styles s line by line. Rendering multi-line text in one call pads
// every line to the widest one.
func paint(style *lipgloss.Style, s string) string {
	if style == nil {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) beginPart(i int) {
	if r.lastPart >= 0 && r.lastPart != i {
		fmt.Fprintln(r.out)
	}
	r.lastPart = i
}

// writeToolCall prints a finished call once and its outcome once. An outcome
// that arrives after other output repeats the tool name.
func (r *Renderer) writeToolCall(i int, tc chat.ToolCallPart) {
	name := r.toolStyle.Render("tool " + tc.ToolCall.Function.Name)
	if !r.toolShown[i] {
		r.beginPart(i)
		io.WriteString(r.out, name)
		if args := strings.TrimSpace(tc.ToolCall.Function.Arguments); args != "" {
			io.WriteString(r.out, " "+r.highlight(args, "json"))
		}
		r.toolShown[i] = true
	}
	if r.toolSettled[i] {
		return
	}

	outcome := r.formatOutcome(tc)
	if outcome == "" {
		return
	}
	if r.lastPart != i {
		r.beginPart(i)
		io.WriteString(r.out, name)
	}
	io.WriteString(r.out, "\n  "+outcome)
	r.toolSettled[i] = true
}

func (r *Renderer) formatOutcome(tc chat.ToolCallPart) string {
	switch {
	case tc.Error != nil:
		return paint(&r.errorStyle, "failed: "+tc.Error.Error())
	case tc.Result != nil:
		return paint(&r.resultStyle, fmt.Sprintf("-> %v", tc.Result))
	}
	return ""
}

// highlight applies syntax highlighting to code, falling back to the plain
// text on any error.
func (r *Renderer) highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		logger.Debug("headless: tokenise failed: %v", err)
		return code
	}

	var buf strings.Builder
	if err := r.formatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		logger.Debug("headless: format failed: %v", err)
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
