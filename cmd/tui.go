package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/soundsync/internal/shared"
	"github.com/desertthunder/soundsync/internal/tasks"
	"github.com/desertthunder/soundsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for running syncs.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.dispatcher != nil {
		return fmt.Errorf("%w: sync pipeline already started without progress reporting", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger(filepath.Join(r.config.Library.LogsDir, "tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	r.progress = make(chan tasks.ProgressUpdate, 64)
	d, err := r.pipeline()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.users, d, r.progress)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
