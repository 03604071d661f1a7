package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/erik777/runkod-cli/apiclients/runkod"
	"github.com/erik777/runkod-cli/config"
	"github.com/erik777/runkod-cli/deploy"
	"github.com/erik777/runkod-cli/history"
	"github.com/erik777/runkod-cli/internal/ui"
)

// App is the central orchestrator for the application's business logic.
// It coordinates interactions between configuration, the runkod API client, the
// deploy pipeline and the local history database.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// terminal reports whether prompts can be answered by a person.
	terminal func() bool
}

// New creates an App attached to the process's standard streams.
func New() *App {
	return &App{
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
		terminal: func() bool { return ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stderr) },
	}
}

// DeployOptions are the deploy command's flags.
type DeployOptions struct {
	Project   string
	Path      string
	Folder    string // configured folder name
	Activate  bool
	DryRun    bool
	AssumeYes bool
	LogLevel  string // overrides log_level when set
}

// Deploy runs one interactive deployment.
func (a *App) Deploy(ctx context.Context, cfgPath string, opts DeployOptions) error {
	cfg, logger, err := a.load(cfgPath, opts.LogLevel)
	if err != nil {
		return err
	}

	client, err := runkod.NewClient(ctx, cfg, slog.New(logger))
	if err != nil {
		return err
	}

	assumeYes := opts.AssumeYes || cfg.AssumeYes
	interactive := a.terminal() && !assumeYes
	logger.Debug("prompts", "interactive", interactive, "assume_yes", assumeYes)

	p := &deploy.Pipeline{
		API: client,
		UI:  ui.NewPrompter(a.In, a.Out, interactive, assumeYes),
		Out: a.Out,
		Log: logger,
		NewProgress: func(text string) deploy.Progress {
			return ui.NewSpinner(a.Err, text, interactive)
		},
		Excludes: cfg.Excludes,
		Rules:    deploy.DefaultRules(cfg.MarkupExtension, cfg.ServerScriptExtensions),
	}

	if !opts.DryRun {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			logger.Warn(ui.T("deploy.history-failed"), "err", err)
		} else {
			defer store.Close()
			p.Recorder = store
		}
	}

	dopts := deploy.Options{
		ProjectID: opts.Project,
		Activate:  opts.Activate,
		DryRun:    opts.DryRun,
	}
	switch {
	case opts.Path != "":
		dopts.Folder = opts.Path
	case opts.Folder != "":
		dopts.Folder = cfg.FolderPath(opts.Folder)
		dopts.FolderLabel = opts.Folder
	}

	outcome, err := p.Run(ctx, dopts)
	if err != nil {
		return err
	}
	logger.Debug("deploy finished", "outcome", outcome)
	return nil
}

// Projects prints the account's projects as a table.
func (a *App) Projects(ctx context.Context, cfgPath string) error {
	cfg, logger, err := a.load(cfgPath, "")
	if err != nil {
		return err
	}
	client, err := runkod.NewClient(ctx, cfg, slog.New(logger))
	if err != nil {
		return err
	}

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("could not list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Fprintln(a.Out, ui.T("projects.none"))
		return nil
	}
	fmt.Fprintln(a.Out, ui.ProjectTable(projects))
	return nil
}

// History prints the most recent recorded uploads, optionally for one project.
func (a *App) History(ctx context.Context, cfgPath, projectID string, limit int) error {
	cfg, logger, err := a.load(cfgPath, "")
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, projectID, limit)
	if err != nil {
		return err
	}
	logger.Debug("history", "project", projectID, "entries", len(entries))

	if len(entries) == 0 {
		which := projectID
		if which == "" {
			which = ui.T("history.all-projects")
		}
		fmt.Fprintln(a.Out, ui.T("history.none", which))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := e.ProjectName
		if name == "" {
			name = e.ProjectID
		}
		active := "no"
		if e.Activated {
			active = "yes"
		}
		rows = append(rows, []string{
			ui.Ago(e.CreatedAt),
			name,
			e.DeploymentID,
			strconv.Itoa(e.Files),
			ui.Bytes(e.Size),
			active,
			e.Folder,
		})
	}
	fmt.Fprintln(a.Out, ui.Table(
		[]string{"WHEN", "PROJECT", "DEPLOYMENT", "FILES", "SIZE", "ACTIVE", "FOLDER"},
		rows,
	))
	return nil
}

// load reads the configuration and makes the logger for one command. A non-empty
// level overrides the configured log level.
func (a *App) load(cfgPath, level string) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if level == "" {
		level = cfg.LogLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := log.NewWithOptions(a.Err, log.Options{
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
	})
	return cfg, logger, nil
}
