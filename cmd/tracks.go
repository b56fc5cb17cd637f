package main

import (
	"context"

	"github.com/desertthunder/soundsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

// TracksList prints or exports a user's recorded tracks.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.open(); err != nil {
		return err
	}

	user, err := r.users.GetByUsername(ctx, cmd.String("username"))
	if err != nil {
		return err
	}

	tracks, err := r.tracks.ListByUser(ctx, user.ID())
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(format, user.Username(), tracks, path)
		if err != nil {
			return err
		}
		r.logger.Info("tracks exported", "username", user.Username(), "tracks", len(tracks), "path", written)
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), written)
		return nil
	}

	data, err := formatter.Export(format, user.Username(), tracks)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}
