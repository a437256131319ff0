package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrUnknownIDGenerator is returned when chat.id_generator names no known
// generator.
var ErrUnknownIDGenerator = errors.New("unknown id generator")

// Config represents the application configuration
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// OllamaConfig holds Ollama-specific configuration
type OllamaConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig controls the conversation controller and the console.
type ChatConfig struct {
	SystemPrompt     string         `mapstructure:"system_prompt"`
	IDGenerator      string         `mapstructure:"id_generator"`
	PreventDefault   bool           `mapstructure:"prevent_default"`
	ShowReasoning    bool           `mapstructure:"show_reasoning"`
	ShowUsage        bool           `mapstructure:"show_usage"`
	ReasoningMarkers []MarkerConfig `mapstructure:"reasoning_markers"`
}

// MarkerConfig is a start/end tag pair delimiting reasoning in model output.
type MarkerConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// BreakerConfig configures the circuit breaker around the model transport.
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Interval    time.Duration `mapstructure:"interval"`
}

// TracingConfig selects the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// ID generators accepted by chat.id_generator.
const (
	IDGeneratorUUID     = "uuid"
	IDGeneratorULID     = "ulid"
	IDGeneratorSequence = "sequence"
)

const (
	settingsDir  = ".usechat"
	settingsName = "settings"
	envPrefix    = "USECHAT"
)

var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment. With an empty cfgFile
// the settings file is searched in ./.usechat and then in
// $XDG_CONFIG_HOME/usechat; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./" + settingsDir)
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "usechat"))
		viper.SetConfigType("yaml")
		viper.SetConfigName(settingsName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := loaded.validate(); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

func setDefaults() {
	viper.SetDefault("logging.log_file", "./"+settingsDir+"/usechat.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("ollama.url", "http://localhost:11434")
	viper.SetDefault("ollama.model", "qwen3:latest")
	viper.SetDefault("ollama.timeout", "90s")

	viper.SetDefault("chat.system_prompt", "")
	viper.SetDefault("chat.id_generator", IDGeneratorUUID)
	viper.SetDefault("chat.prevent_default", false)
	viper.SetDefault("chat.show_reasoning", true)
	viper.SetDefault("chat.show_usage", false)
	viper.SetDefault("chat.reasoning_markers", []map[string]string{
		{"start": "<think>", "end": "</think>"},
		{"start": "<thinking>", "end": "</thinking>"},
	})

	viper.SetDefault("breaker.enabled", true)
	viper.SetDefault("breaker.max_failures", 5)
	viper.SetDefault("breaker.timeout", "30s")
	viper.SetDefault("breaker.interval", "60s")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.exporter", "stdout")
}

func (c *Config) validate() error {
	switch c.Chat.IDGenerator {
	case IDGeneratorUUID, IDGeneratorULID, IDGeneratorSequence:
	default:
		return fmt.Errorf("invalid chat.id_generator %q: %w", c.Chat.IDGenerator, ErrUnknownIDGenerator)
	}
	switch c.Tracing.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("invalid tracing.exporter %q", c.Tracing.Exporter)
	}
	return nil
}
