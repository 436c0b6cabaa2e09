// Package cli defines the cobra commands for the dreamd binary.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhiarc/Dream-interpreter/internal/adapters/llm/openai"
	"github.com/abhiarc/Dream-interpreter/internal/config"
	"github.com/abhiarc/Dream-interpreter/internal/logging"
	"github.com/abhiarc/Dream-interpreter/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "dreamd",
	Short: "Dream interpretation service",
	Long: `dreamd interprets dreams through one of eleven schools of thought
by asking an OpenAI-compatible model. Run without a subcommand to serve HTTP.`,
	Version:       version.Get().String(),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(libraryCmd)
}

func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(w, cfg.Level(), cfg.LogFormat)
	return cfg, logger, nil
}

func newInterpreter(cfg *config.Config, logger *slog.Logger) *openai.Client {
	return openai.NewClient(
		&http.Client{Timeout: cfg.LLMTimeout},
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
		openai.Options{
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		},
		logger,
	)
}
