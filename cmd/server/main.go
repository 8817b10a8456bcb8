// coachd serves the AI executive coaching chat.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/coachlab/internal/config"
	"github.com/ashureev/coachlab/internal/llm"
)

// newCompleter is replaced in tests.
var newCompleter = llm.New

var rootCmd = &cobra.Command{
	Use:           "coachd",
	Short:         "AI executive coaching chat server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, scenariosCmd, askCmd)
}

func main() {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(config.NewLogger(os.Stdout, os.Getenv("LOG_LEVEL")))
	if envErr != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs a logger writing to w at
// the configured level.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(config.NewLogger(w, cfg.LogLevel))
	return cfg, nil
}
