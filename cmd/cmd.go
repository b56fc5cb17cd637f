// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func usernameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "username",
		Aliases:  []string{"u"},
		Usage:    "Username of the library owner",
		Required: true,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create config.toml if missing, initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// userCommand manages accounts and their source URLs
func userCommand(r *Runner) *cli.Command {
	syncFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:  "sync",
			Usage: "Run a sync for the user right away",
		}
	}

	return &cli.Command{
		Name:  "user",
		Usage: "Manage library owners",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a user",
				Flags: []cli.Flag{
					usernameFlag(),
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Password for the new user",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source-url",
						Usage: "External library location to sync from",
					},
					syncFlag(),
				},
				Action: r.UserAdd,
			},
			{
				Name:  "set-source",
				Usage: "Set or clear the source URL of a user",
				Flags: []cli.Flag{
					usernameFlag(),
					&cli.StringFlag{
						Name:  "url",
						Usage: "New source URL (empty clears it)",
					},
					syncFlag(),
				},
				Action: r.UserSetSource,
			},
			{
				Name:  "reset-password",
				Usage: "Replace the password of a user",
				Flags: []cli.Flag{
					usernameFlag(),
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "New password",
						Required: true,
					},
				},
				Action: r.UserResetPassword,
			},
			{
				Name:   "list",
				Usage:  "List users with their source URL and last sync time",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.UserList,
			},
		},
	}
}

// syncCommand runs sync jobs in the foreground
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch and scan libraries",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Sync one user: fetch, scan, then record the sync time",
				Flags:  []cli.Flag{usernameFlag()},
				Action: r.SyncRun,
			},
			{
				Name:   "all",
				Usage:  "Sync every user with a source URL (the scheduled batch)",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.SyncAll,
			},
		},
	}
}

// scanCommand records files already on disk without fetching
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "scan",
		Usage:  "Scan a user's library directory and record new tracks",
		Flags:  []cli.Flag{usernameFlag()},
		Action: r.Scan,
	}
}

// tracksCommand lists and exports recorded tracks
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Recorded tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List or export a user's tracks",
				Flags: []cli.Flag{
					usernameFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, csv, json or md",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to this file instead of stdout",
					},
				},
				Action: r.TracksList,
			},
		},
	}
}

// serveCommand runs the HTTP trigger surface and the daily schedule
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve sync triggers and metrics, and run the scheduled batch",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
			&cli.BoolFlag{
				Name:  "no-schedule",
				Usage: "Do not run the scheduled batch",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive sync monitor.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Pick users and watch their syncs in an interactive terminal UI",
		Action:  r.TUI,
	}
}
