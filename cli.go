package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/erik777/runkod-cli/app"
	"github.com/erik777/runkod-cli/config"
	"github.com/erik777/runkod-cli/history"
)

// Applicator defines the interface for the core application logic.
// This allows the CLI to be tested independently of the main app implementation.
type Applicator interface {
	Deploy(ctx context.Context, cfgPath string, opts app.DeployOptions) error
	Projects(ctx context.Context, cfgPath string) error
	History(ctx context.Context, cfgPath, projectID string, limit int) error
}

// BuildCLI creates the full CLI command structure for the application.
// It injects the core application logic (the Applicator) into the command actions.
func BuildCLI(a Applicator) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   config.DefaultFile,
		Usage:   "path to the configuration file",
	}

	projectFlag := &cli.StringFlag{
		Name:    "project",
		Aliases: []string{"p"},
		Usage:   "project id or name",
	}

	deployCmd := &cli.Command{
		Name:  "deploy",
		Usage: "Bundle a folder and upload it as a new deployment",
		Flags: []cli.Flag{
			configFlag,
			projectFlag,
			&cli.StringFlag{Name: "path", Usage: "folder to deploy"},
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "named folder from the configuration"},
			&cli.BoolFlag{Name: "activate", Aliases: []string{"a"}, Usage: "activate the deployment without asking"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print the bundle contents and stop before uploading"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "answer yes to every confirmation"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.String("path") != "" && c.String("folder") != "" {
				return errors.New("--path and --folder cannot be used together")
			}
			return a.Deploy(ctx, c.String("config"), app.DeployOptions{
				Project:   c.String("project"),
				Path:      c.String("path"),
				Folder:    c.String("folder"),
				Activate:  c.Bool("activate"),
				DryRun:    c.Bool("dry-run"),
				AssumeYes: c.Bool("yes"),
				LogLevel:  c.String("log-level"),
			})
		},
	}

	projectsCmd := &cli.Command{
		Name:    "projects",
		Usage:   "List the projects in the account",
		Aliases: []string{"ls"},
		Flags:   []cli.Flag{configFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			return a.Projects(ctx, c.String("config"))
		},
	}

	historyCmd := &cli.Command{
		Name:  "history",
		Usage: "Show deployments recorded on this machine",
		Flags: []cli.Flag{
			configFlag,
			projectFlag,
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: history.DefaultLimit, Usage: "number of entries to show"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Int("limit") < 1 {
				return errors.New("--limit must be at least 1")
			}
			return a.History(ctx, c.String("config"), c.String("project"), c.Int("limit"))
		},
	}

	rootCmd := &cli.Command{
		Name:     "runkod",
		Usage:    "Deploy static sites to runkod",
		Commands: []*cli.Command{deployCmd, projectsCmd, historyCmd},
	}

	return rootCmd
}
