// Command sdvmigrate converts a legacy school SQL dump into import workbooks.
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

	"github.com/JonMunkholm/sdvmigrate/internal/config"
	"github.com/JonMunkholm/sdvmigrate/internal/logging"
	"github.com/JonMunkholm/sdvmigrate/internal/migration"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(2)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "dotenv", envLoaded, "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err, "code", migration.MapError(err).Code)
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes the coded user message followed by the underlying error.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, migration.FormatUserError(err))
	fmt.Fprintln(w, err)
}
