package main

import (
	"context"
	"os"

	"github.com/desertthunder/soundsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		loaded, err := shared.LoadConfig("config.toml")
		if err != nil {
			logger.Fatalf("invalid config.toml: %v", err)
		}
		config = loaded
	}

	if err := shared.ApplyEnv(config, ".env"); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}
	shared.SetLogLevelString(logger, config.Log.Level)

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "soundsync",
		Usage:    "Keep per-user music libraries in sync with their source URLs",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "error", cerr)
	}
	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
