// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// mergeFlags override the [merge] and [page_numbers] config sections.
func mergeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Merge service base URL",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory the merged document is saved in",
		},
		&cli.BoolFlag{
			Name:  "page-numbers",
			Usage: "Ask the service to stamp page numbers",
		},
		&cli.IntFlag{
			Name:  "start",
			Usage: "First page number (implies --page-numbers)",
		},
		&cli.StringFlag{
			Name:  "position",
			Usage: "Page number position: top_left, top_center, top_right, bottom_left, bottom_center, bottom_right",
		},
		&cli.BoolFlag{
			Name:  "accept-non-pdf",
			Usage: "Add files even when they do not look like PDFs",
		},
		&cli.BoolFlag{
			Name:  "open",
			Usage: "Open the merged document with the system viewer",
		},
	}
}

// mergeCommand merges files given on the command line.
func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge PDF files (or directories of PDFs) in the given order",
		ArgsUsage: "<file|dir>...",
		Flags: append(mergeFlags(),
			&cli.BoolFlag{
				Name:  "batch",
				Usage: "Treat each argument as a directory and produce one merged document per directory",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent uploads in batch mode",
				Value: 3,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Uploads started per second in batch mode",
				Value: 2,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output result as JSON",
			},
		),
		Action: r.Merge,
	}
}

// uiCommand returns the top-level TUI command for interactive merging.
func uiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "ui",
		Aliases:   []string{"tui", "interactive"},
		Usage:     "Launch interactive TUI to select, order and merge files",
		ArgsUsage: "[file|dir]...",
		Flags:     mergeFlags(),
		Action:    r.TUI,
	}
}

// serveCommand runs the local merge service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local merge service (POST /pdf/merge)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from server.port)",
			},
		},
		Action: r.Serve,
	}
}

// historyCommand handles merge history operations.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded merges",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded merges, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown, json",
						Value:   "text",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of records",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show succeeded or failed merges",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:      "delete",
				Usage:     "Delete a recorded merge by sequence number or ID",
				ArgsUsage: "<sequence|id>",
				Action:    r.HistoryDelete,
			},
		},
	}
}

// setupCommand writes the config file and initializes the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the history database",
		Action: r.Setup,
	}
}

// healthCommand checks that the configured merge service is reachable.
func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the configured merge service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Merge service base URL",
			},
		},
		Action: r.Health,
	}
}
