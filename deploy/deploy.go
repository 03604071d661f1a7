// Package deploy is the deployment pipeline of the runkod client. A run resolves a
// project and a local folder, selects and inspects the folder's files, packs them
// into a temporary zip bundle, uploads the bundle and finally activates the new
// deployment.
//
// The pipeline is an explicit state machine (see Pipeline.Run). Each state works on
// a *Run holding what has been resolved so far and names the state that follows.
// Declined prompts end the run with the Cancelled outcome rather than an error.
package deploy

import (
	"context"
	"errors"
	"io"

	"github.com/erik777/runkod-cli/apiclients/runkod"
	"github.com/erik777/runkod-cli/history"
)

var (
	// ErrNoSuchProject reports an explicit project that is not among the listed
	// projects.
	ErrNoSuchProject = errors.New("no such project")
	// ErrInvalidFolder reports a folder that is not an existing directory.
	ErrInvalidFolder = errors.New("invalid folder")
)

// API is the remote project and deployment service.
type API interface {
	ListProjects(ctx context.Context) ([]runkod.Project, error)
	CreateProject(ctx context.Context) (runkod.Project, error)
	GetProject(ctx context.Context, projectID string) (runkod.Project, error)
	Deploy(ctx context.Context, projectID string, r io.Reader, size int64) (runkod.Deployment, error)
	ActivateDeployment(ctx context.Context, projectID, deploymentID string) error
}

// Confirmer asks yes/no questions.
type Confirmer interface {
	Confirm(ctx context.Context, msg string) (bool, error)
}

// UI asks the questions of an interactive run. A false ok from Select or TextInput
// means the user cancelled.
type UI interface {
	Confirmer
	Select(ctx context.Context, msg string, items []string) (int, bool, error)
	TextInput(ctx context.Context, msg, def string) (string, bool, error)
}

// Progress is an indicator shown while the bundle uploads.
type Progress interface {
	Start()
	SetText(text string)
	Stop()
}

// Recorder keeps a record of completed uploads.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Outcome is how a run ended.
type Outcome int

const (
	// Done means the run went through to the end, or to the end of a dry run.
	Done Outcome = iota
	// Cancelled means the user declined a prompt or cancelled a selection.
	Cancelled
	// NothingToDeploy means the folder held no eligible files.
	NothingToDeploy
	// Failed means a step returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	case NothingToDeploy:
		return "nothing to deploy"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Options are the choices made on the command line.
type Options struct {
	// ProjectID selects a project by id or name without prompting.
	ProjectID string
	// Folder is a path used verbatim without prompting; an invalid Folder is an
	// error rather than a reason to ask again.
	Folder string
	// FolderLabel is how Folder is reported, such as a configured folder name.
	// Folder is reported when empty.
	FolderLabel string
	// Activate activates the new deployment without asking.
	Activate bool
	// DryRun stops after printing the bundle contents.
	DryRun bool
}

// Run holds what one invocation has resolved. It is built up state by state and is
// not shared between invocations.
type Run struct {
	Project    runkod.Project
	Folder     string
	Files      []string
	Bundle     *Bundle
	Deployment runkod.Deployment
	Activated  bool

	createProject bool   // no projects exist; create one before upload
	folderInput   string // folder as given, before validation
	retry         bool   // an invalid folder leads back to the folder prompt
	prompts       int    // folder prompts so far
}
