package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://127.0.0.1:8080"

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quran-ai",
		Short: "Streaming AI relay for a Quran reading app",
		Long: `quran-ai relays prompts to Together, Groq or OpenRouter and streams the
answer back as plain text.

Examples:
  quran-ai serve --config config.yaml
  quran-ai ask "Apa itu zakat?"
  quran-ai ask --surah 2 "Apa pesan utama surah ini?"
  quran-ai models --provider groq`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.AddCommand(newServeCmd(), newAskCmd(), newModelsCmd())
	return root
}

// setupLogging installs the default slog handler.
func setupLogging(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
