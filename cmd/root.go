package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/killallgit/usechat/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "usechat",
	Short: "Chat with a local model from the terminal",
	Long: `usechat streams answers from an Ollama model into the terminal.

Pass --prompt to ask a single question, or start without it for an
interactive session (/reset, /reload and /quit are available).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		return RunApplication(cmd.Context(), &AppConfig{
			Config: cfg,
			Prompt: viper.GetString("prompt"),
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
			ErrOut: cmd.ErrOrStderr(),
		})
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is .usechat/settings.yaml)")

	flags.StringP("prompt", "p", "", "ask a single question and exit")
	viper.BindPFlag("prompt", flags.Lookup("prompt"))

	flags.StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", flags.Lookup("log-level"))

	flags.StringP("model", "m", "", "Ollama model to use")
	viper.BindPFlag("ollama.model", flags.Lookup("model"))

	flags.String("url", "", "Ollama server URL")
	viper.BindPFlag("ollama.url", flags.Lookup("url"))

	flags.String("system", "", "system prompt for new conversations")
	viper.BindPFlag("chat.system_prompt", flags.Lookup("system"))

	flags.Bool("usage", false, "print token usage after each answer")
	viper.BindPFlag("chat.show_usage", flags.Lookup("usage"))
}
