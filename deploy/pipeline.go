package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/erik777/runkod-cli/apiclients/runkod"
	"github.com/erik777/runkod-cli/history"
	"github.com/erik777/runkod-cli/internal/archivefs"
	"github.com/erik777/runkod-cli/internal/ui"
)

// maxFolderPrompts bounds how often an invalid folder leads back to the prompt.
const maxFolderPrompts = 10

// State is a step of the pipeline.
type State int

// Pipeline states in the order a successful run visits them, followed by the
// terminal states.
const (
	StateResolveProject State = iota
	StateResolveFolder
	StateValidateFolder
	StateCollectFiles
	StateInspect
	StateEnsureProject
	StateBundle
	StatePreview
	StateUpload
	StateActivate
	StateDone
	StateCancelled
	StateNothingToDeploy
)

var stateNames = map[State]string{
	StateResolveProject:  "resolve-project",
	StateResolveFolder:   "resolve-folder",
	StateValidateFolder:  "validate-folder",
	StateCollectFiles:    "collect-files",
	StateInspect:         "inspect",
	StateEnsureProject:   "ensure-project",
	StateBundle:          "bundle",
	StatePreview:         "preview",
	StateUpload:          "upload",
	StateActivate:        "activate",
	StateDone:            "done",
	StateCancelled:       "cancelled",
	StateNothingToDeploy: "nothing-to-deploy",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type stepFunc func(ctx context.Context, run *Run, opts Options) (State, error)

// Pipeline runs deployments. API and UI are required; the remaining fields have
// usable zero values.
type Pipeline struct {
	API API
	UI  UI

	// Out receives the run's printed output, such as the project summary.
	Out io.Writer
	// Log receives status messages.
	Log *log.Logger
	// NewProgress makes the upload progress indicator.
	NewProgress func(text string) Progress
	// Recorder, when set, is told about each completed upload.
	Recorder Recorder

	Excludes []string
	Rules    []Rule

	// Getwd gives the folder suggested by the folder prompt.
	Getwd func() (string, error)
}

// Run takes a deployment from project selection to activation. A run halted by the
// user or by an empty folder returns the matching Outcome and a nil error; a step
// error is returned with Failed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Outcome, error) {
	p.defaults()

	steps := map[State]stepFunc{
		StateResolveProject: p.resolveProject,
		StateResolveFolder:  p.resolveFolder,
		StateValidateFolder: p.validateFolder,
		StateCollectFiles:   p.collectFiles,
		StateInspect:        p.inspect,
		StateEnsureProject:  p.ensureProject,
		StateBundle:         p.bundle,
		StatePreview:        p.preview,
		StateUpload:         p.upload,
		StateActivate:       p.activate,
	}

	run := &Run{}
	state := StateResolveProject
	for {
		switch state {
		case StateDone:
			return Done, nil
		case StateCancelled:
			p.Log.Info(ui.T("deploy.cancelled"))
			return Cancelled, nil
		case StateNothingToDeploy:
			return NothingToDeploy, nil
		}

		step, ok := steps[state]
		if !ok {
			return Failed, fmt.Errorf("no step for state %s", state)
		}
		p.Log.Debug("pipeline", "state", state)

		next, err := step(ctx, run, opts)
		if err != nil {
			if run.Bundle != nil {
				_ = run.Bundle.Remove()
			}
			return Failed, err
		}
		state = next
	}
}

func (p *Pipeline) defaults() {
	if p.Out == nil {
		p.Out = io.Discard
	}
	if p.Log == nil {
		p.Log = log.New(io.Discard)
	}
	if p.NewProgress == nil {
		p.NewProgress = func(text string) Progress { return ui.NewSpinner(io.Discard, text, false) }
	}
	if p.Getwd == nil {
		p.Getwd = os.Getwd
	}
}

func (p *Pipeline) resolveProject(ctx context.Context, run *Run, opts Options) (State, error) {

	projects, err := p.API.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not list projects: %w", err)
	}

	if opts.ProjectID != "" {
		project, ok := findProject(projects, opts.ProjectID)
		if !ok {
			return 0, fmt.Errorf("%w %q", ErrNoSuchProject, opts.ProjectID)
		}
		run.Project = project
		fmt.Fprintln(p.Out, ui.Bold(ui.T("deploy.selected-project")), ui.ProjectName(project))
		return StateResolveFolder, nil
	}

	switch len(projects) {
	case 0:
		// created once the files have been approved
		run.createProject = true
	case 1:
		run.Project = projects[0]
	default:
		items := make([]string, len(projects))
		for i, pr := range projects {
			items[i] = ui.ProjectName(pr)
			if pr.Domain != "" {
				items[i] += " (" + pr.Domain + ")"
			}
		}
		idx, ok, err := p.UI.Select(ctx, ui.T("deploy.select-project"), items)
		if err != nil {
			return 0, err
		}
		if !ok {
			return StateCancelled, nil
		}
		run.Project = projects[idx]
	}
	return StateResolveFolder, nil
}

// findProject matches by id first, then by name.
func findProject(projects []runkod.Project, idOrName string) (runkod.Project, bool) {
	for _, pr := range projects {
		if pr.ID == idOrName {
			return pr, true
		}
	}
	for _, pr := range projects {
		if pr.Name == idOrName {
			return pr, true
		}
	}
	return runkod.Project{}, false
}

func (p *Pipeline) resolveFolder(ctx context.Context, run *Run, opts Options) (State, error) {

	if opts.Folder != "" {
		run.folderInput = opts.Folder
		run.retry = false
		return StateValidateFolder, nil
	}

	cwd, err := p.Getwd()
	if err != nil {
		cwd = ""
	}
	input, ok, err := p.UI.TextInput(ctx, ui.T("deploy.select-folder"), cwd)
	if err != nil {
		return 0, err
	}
	if !ok {
		return StateCancelled, nil
	}
	run.folderInput = input
	run.retry = true
	run.prompts++
	return StateValidateFolder, nil
}

func (p *Pipeline) validateFolder(ctx context.Context, run *Run, opts Options) (State, error) {

	folder, err := existingDir(run.folderInput)
	if err != nil {
		p.Log.Error(ui.T("deploy.invalid-folder"), "folder", run.folderInput)
		if run.retry && run.prompts < maxFolderPrompts {
			return StateResolveFolder, nil
		}
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidFolder, run.folderInput, err)
	}
	run.Folder = folder

	if opts.Folder != "" {
		label := opts.FolderLabel
		if label == "" {
			label = opts.Folder
		}
		fmt.Fprintln(p.Out, ui.Bold(ui.T("deploy.selected-folder")), label)
	}
	return StateCollectFiles, nil
}

// existingDir returns the absolute form of path if it is a directory.
func existingDir(path string) (string, error) {
	if path == "" {
		return "", errors.New("no folder given")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errors.New("not a directory")
	}
	return abs, nil
}

func (p *Pipeline) collectFiles(ctx context.Context, run *Run, opts Options) (State, error) {
	files, err := SelectFiles(run.Folder, p.Excludes)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		fmt.Fprintln(p.Out, ui.T("deploy.no-files"))
		return StateNothingToDeploy, nil
	}
	run.Files = files
	p.Log.Debug("selected files", "count", len(files), "folder", run.Folder)
	return StateInspect, nil
}

func (p *Pipeline) inspect(ctx context.Context, run *Run, opts Options) (State, error) {
	ok, err := Inspect(ctx, run.Files, p.Rules, p.UI)
	if err != nil {
		return 0, err
	}
	if !ok {
		return StateCancelled, nil
	}
	return StateEnsureProject, nil
}

func (p *Pipeline) ensureProject(ctx context.Context, run *Run, opts Options) (State, error) {
	if !run.createProject || opts.DryRun {
		return StateBundle, nil
	}
	project, err := p.API.CreateProject(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not create project: %w", err)
	}
	run.Project = project
	run.createProject = false
	p.Log.Info("Created project", "name", ui.ProjectName(project), "id", project.ID)
	return StateBundle, nil
}

func (p *Pipeline) bundle(ctx context.Context, run *Run, opts Options) (State, error) {
	b, err := BuildBundle(run.Folder, run.Files)
	if err != nil {
		return 0, err
	}
	run.Bundle = b
	p.Log.Info(ui.T("deploy.bundle", b.Files, ui.Bytes(b.Size)))
	if opts.DryRun {
		return StatePreview, nil
	}
	return StateUpload, nil
}

func (p *Pipeline) preview(ctx context.Context, run *Run, opts Options) (State, error) {
	archive, err := archivefs.Open(run.Bundle.Path)
	if err != nil {
		return 0, err
	}
	tree, err := archivefs.PrintFS(archive)
	_ = archive.Close()
	if err != nil {
		return 0, fmt.Errorf("could not list bundle: %w", err)
	}
	fmt.Fprint(p.Out, tree)
	if err := run.Bundle.Remove(); err != nil {
		return 0, fmt.Errorf("could not remove bundle %s: %w", run.Bundle.Path, err)
	}
	fmt.Fprintln(p.Out, ui.T("deploy.dry-run"))
	return StateDone, nil
}

func (p *Pipeline) upload(ctx context.Context, run *Run, opts Options) (State, error) {
	progress := p.NewProgress(ui.T("deploy.uploading", 0))
	progress.Start()
	d, err := Upload(ctx, p.API, run.Project.ID, run.Bundle, func(percent int) {
		progress.SetText(ui.T("deploy.uploading", percent))
	})
	progress.Stop()
	if err != nil {
		return 0, err
	}
	run.Deployment = d
	p.Log.Info(ui.T("deploy.uploaded"))
	return StateActivate, nil
}

func (p *Pipeline) activate(ctx context.Context, run *Run, opts Options) (State, error) {

	active, err := Activate(ctx, p.API, p.UI, run.Project.ID, run.Deployment, opts.Activate)
	if err != nil {
		// the upload exists remotely either way
		p.record(ctx, run)
		return 0, fmt.Errorf("could not activate deployment %s: %w", run.Deployment.ID, err)
	}
	run.Activated = active
	if active {
		p.Log.Info(ui.T("deploy.activated"))
	}

	p.record(ctx, run)

	project, err := p.API.GetProject(ctx, run.Project.ID)
	if err != nil {
		p.Log.Warn(ui.T("deploy.refetch-failed"), "err", err)
		return StateDone, nil
	}
	run.Project = project
	fmt.Fprintln(p.Out, ui.ProjectSummary(project))
	fmt.Fprintln(p.Out, ui.Separator)
	return StateDone, nil
}

func (p *Pipeline) record(ctx context.Context, run *Run) {
	if p.Recorder == nil {
		return
	}
	err := p.Recorder.Record(ctx, history.Entry{
		ProjectID:    run.Project.ID,
		ProjectName:  run.Project.Name,
		DeploymentID: run.Deployment.ID,
		Folder:       run.Folder,
		Files:        len(run.Files),
		Size:         run.Bundle.Size,
		Activated:    run.Activated,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		p.Log.Warn(ui.T("deploy.history-failed"), "err", err)
	}
}
