package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/soundsync/internal/server"
	"github.com/desertthunder/soundsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// shutdownTimeout bounds how long running jobs may drain after a stop signal.
const shutdownTimeout = 30 * time.Second

// Serve starts the sync workers, the daily schedule and the HTTP trigger surface, and runs
// until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := r.pipeline()
	if err != nil {
		return err
	}

	var sched *tasks.Scheduler
	if !cmd.Bool("no-schedule") {
		sched, err = tasks.NewScheduler(d, r.config.Sync.Schedule, r.config.Sync.Timezone, r.logger)
		if err != nil {
			return err
		}
	}

	// running jobs outlive the signal until the shutdown timeout
	d.Start(context.WithoutCancel(ctx))
	if sched != nil {
		sched.Start()
	}

	syncHandler := server.NewSyncHandler(context.WithoutCancel(ctx), r.users, d, r.logger)
	router := server.Routes(r.logger, r.registry, server.NewHealthHandler(d), syncHandler)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	serveErr := server.New(addr, router, r.logger).ListenAndServe(ctx)
	stop()

	r.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	syncHandler.Wait(shutdownCtx)
	if err := d.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("sync workers did not drain", "error", err)
	}

	return serveErr
}
