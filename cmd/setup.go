package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/soundsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file from the template when absent, then initializes the
// database it points at and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := shared.ApplyEnv(config); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	for _, dir := range []string{config.Library.Root, config.Library.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	r.writePlain("Library root: %s\n", config.Library.Root)
	r.writePlain("Job logs: %s\n", config.Library.LogsDir)
	return nil
}
