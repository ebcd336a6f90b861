package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	_ "github.com/tigerroll/weatherpipe/internal/adapter/database/mysql"
	_ "github.com/tigerroll/weatherpipe/internal/adapter/database/postgres"
	_ "github.com/tigerroll/weatherpipe/internal/adapter/database/sqlite"

	"github.com/tigerroll/weatherpipe/internal/app"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// embeddedConfig embeds the application's YAML configuration file so the binary
// carries its defaults.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS bundles the per-dialect schema migration scripts into the binary.
//
//go:embed all:resources/migrations
var migrationsFS embed.FS

const usage = `Usage:
  weatherpipe ingest <batch_id>    fetch raw observations for one batch
  weatherpipe process <batch_id>   flatten raw observations to Parquet
  weatherpipe dq <batch_id>        apply quality rules and stage the verdict
  weatherpipe load <batch_id>      promote staged rows to the public table
  weatherpipe run [batch_id]       execute all four stages in order
  weatherpipe schedule             run full batches on the configured cron

Batch ids use the layout YYYYMMDD_HHMMSS, e.g. 20260831_060000.`

// main parses the command line, installs signal handling, and hands off to the
// application container.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	var batchID string
	switch command {
	case app.CommandIngest, app.CommandProcess, app.CommandDQ, app.CommandLoad:
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Command '%s' requires a batch id.\n\n%s\n", command, usage)
			os.Exit(2)
		}
		batchID = os.Args[2]
	case app.CommandRun:
		if len(os.Args) > 2 {
			batchID = os.Args[2]
		}
	case app.CommandSchedule:
	default:
		fmt.Fprintf(os.Stderr, "Unknown command '%s'.\n\n%s\n", command, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the pipeline...", sig)
		cancel()
	}()

	// Get the path to the .env file from environment variables. Use ".env" as default if not set.
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	if err := app.RunApplication(ctx, command, batchID, envFilePath, embeddedConfig, migrationsFS); err != nil {
		logger.Errorf("Command '%s' failed: %v", command, err)
		os.Exit(1)
	}
	os.Exit(0)
}
