package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/config"
	"github.com/killallgit/usechat/pkg/controllers"
	"github.com/killallgit/usechat/pkg/headless"
	"github.com/killallgit/usechat/pkg/ids"
	"github.com/killallgit/usechat/pkg/logger"
	"github.com/killallgit/usechat/pkg/stream"
	"github.com/killallgit/usechat/pkg/stream/providers"
	"github.com/killallgit/usechat/pkg/telemetry"
	"github.com/killallgit/usechat/pkg/tokens"
)

// AppConfig contains all configuration needed to run the application
type AppConfig struct {
	Config *config.Config
	Prompt string // one-shot mode when set

	// Transport overrides the Ollama transport built from Config.
	Transport stream.Transport

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// RunApplication is the main entry point for the application logic
func RunApplication(ctx context.Context, appCfg *AppConfig) error {
	cfg := appCfg.Config

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	if used := config.GetConfigFileUsed(); used != "" {
		logger.Info("Using config file: %s", used)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Tracing, appCfg.ErrOut)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed: %v", err)
		}
	}()

	transport := appCfg.Transport
	if transport == nil {
		transport, err = newTransport(cfg)
		if err != nil {
			return err
		}
	}

	controller, err := newController(cfg, transport)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopSignals := watchInterrupts(cancel, controller)
	defer stopSignals()

	renderer := headless.NewRenderer(appCfg.Out, headless.RendererOptions{
		ShowReasoning: cfg.Chat.ShowReasoning,
		ShowUsage:     cfg.Chat.ShowUsage,
	})
	runner := headless.NewRunner(controller, renderer, appCfg.In, appCfg.Out)

	logger.Info("chat %s started with model %s", controller.ID(), cfg.Ollama.Model)
	if appCfg.Prompt != "" {
		return runner.RunPrompt(ctx, appCfg.Prompt)
	}
	return runner.RunREPL(ctx)
}

// newTransport builds the Ollama transport, wrapped in a circuit breaker
// when enabled.
func newTransport(cfg *config.Config) (stream.Transport, error) {
	ollama, err := providers.NewOllama(cfg.Ollama.URL, cfg.Ollama.Model,
		providers.WithThinkingMarkers(thinkingMarkers(cfg.Chat.ReasoningMarkers)),
		providers.WithTimeout(cfg.Ollama.Timeout),
		providers.WithTokenCounter(tokens.NewCounter(cfg.Ollama.Model)),
	)
	if err != nil {
		return nil, err
	}

	if !cfg.Breaker.Enabled {
		return ollama, nil
	}
	return stream.NewCircuitBreaker(ollama, stream.BreakerSettings{
		Name:        "ollama",
		MaxFailures: cfg.Breaker.MaxFailures,
		Timeout:     cfg.Breaker.Timeout,
		Interval:    cfg.Breaker.Interval,
	}), nil
}

func newController(cfg *config.Config, transport stream.Transport) (*controllers.ChatController, error) {
	gen, err := ids.FromConfig(cfg.Chat.IDGenerator)
	if err != nil {
		return nil, err
	}

	var initial []chat.Message
	if cfg.Chat.SystemPrompt != "" {
		initial = append(initial, chat.NewSystemMessage(cfg.Chat.SystemPrompt))
	}

	return controllers.NewChatController(transport,
		controllers.WithIDGenerator(gen),
		controllers.WithInitialMessages(initial),
		controllers.WithPreventDefault(cfg.Chat.PreventDefault),
		controllers.WithOnFinish(func(msg chat.Message) error {
			logger.Debug("assistant message %s finished with %d parts", msg.ID, len(msg.Parts))
			return nil
		}),
		controllers.WithOnError(func(err error) {
			logger.Error("request failed: %v", err)
		}),
	), nil
}

func thinkingMarkers(cfgMarkers []config.MarkerConfig) stream.ThinkingMarkers {
	if len(cfgMarkers) == 0 {
		return stream.DefaultThinkingMarkers
	}
	markers := make(stream.ThinkingMarkers, 0, len(cfgMarkers))
	for _, m := range cfgMarkers {
		if m.Start == "" || m.End == "" {
			continue
		}
		markers = append(markers, stream.ThinkingMarker{Start: m.Start, End: m.End})
	}
	return markers
}

// watchInterrupts stops a running request on SIGINT, or cancels the session
// when nothing is running. The returned function stops watching.
func watchInterrupts(cancel context.CancelFunc, c *controllers.ChatController) func() {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-sigs:
				if c.Status() == controllers.StatusLoading {
					logger.Info("interrupt: stopping request")
					c.Stop()
					continue
				}
				cancel()
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
