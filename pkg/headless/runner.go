package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/killallgit/usechat/pkg/controllers"
	"github.com/killallgit/usechat/pkg/logger"
)

const prompt = "> "

// Runner drives a ChatController from a line-oriented console.
type Runner struct {
	controller *controllers.ChatController
	renderer   *Renderer
	in         io.Reader
	out        io.Writer
}

func NewRunner(c *controllers.ChatController, r *Renderer, in io.Reader, out io.Writer) *Runner {
	return &Runner{
		controller: c,
		renderer:   r,
		in:         in,
		out:        out,
	}
}

// lineSubmit is the submit event for one console line.
type lineSubmit struct {
	prevented bool
}

func (e *lineSubmit) PreventDefault() { e.prevented = true }

// RunPrompt submits a single prompt, renders the reply and returns the
// request error, if any.
func (r *Runner) RunPrompt(ctx context.Context, text string) error {
	unsubscribe := r.controller.Subscribe(r.renderer.Render)
	defer unsubscribe()

	return r.submit(ctx, text)
}

// RunREPL reads prompts from the input until it is exhausted, /quit is
// entered or ctx is cancelled. Request failures are rendered and do not end
// the loop.
func (r *Runner) RunREPL(ctx context.Context) error {
	unsubscribe := r.controller.Subscribe(r.renderer.Render)
	defer unsubscribe()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		quit, err := r.handleLine(ctx, line)
		if err != nil {
			logger.Debug("headless: request failed: %v", err)
		}
		if quit {
			return nil
		}
	}
}

func (r *Runner) handleLine(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case "/quit", "/exit":
		return true, nil
	case "/reset":
		r.controller.Reset()
		r.renderer.Info("conversation reset")
		return false, nil
	case "/reload":
		return false, r.controller.Reload(ctx, "")
	case "/help":
		r.renderer.Info("commands: /reset /reload /quit")
		return false, nil
	}

	if strings.HasPrefix(line, "/") {
		r.renderer.Info(fmt.Sprintf("unknown command %s", line))
		return false, nil
	}
	return false, r.submit(ctx, line)
}

func (r *Runner) submit(ctx context.Context, text string) error {
	r.controller.HandleInputChange(controllers.ChangeValue(text))
	return r.controller.HandleSubmit(ctx, &lineSubmit{})
}
