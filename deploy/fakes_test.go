package deploy

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erik777/runkod-cli/apiclients/runkod"
	"github.com/erik777/runkod-cli/history"
)

// fakeAPI is an in-memory API counting calls by method name.
type fakeAPI struct {
	projects     []runkod.Project
	deployActive bool

	listErr     error
	deployErr   error
	activateErr error
	getErr      error

	calls     map[string]int
	deployed  string // project id of the last upload
	uploaded  []byte
	activated []string
}

func newFakeAPI(projects ...runkod.Project) *fakeAPI {
	return &fakeAPI{projects: projects, calls: map[string]int{}}
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]runkod.Project, error) {
	f.calls["list"]++
	return f.projects, f.listErr
}

func (f *fakeAPI) CreateProject(ctx context.Context) (runkod.Project, error) {
	f.calls["create"]++
	p := runkod.Project{ID: "p-new", Name: "fresh-project"}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeAPI) GetProject(ctx context.Context, projectID string) (runkod.Project, error) {
	f.calls["get"]++
	if f.getErr != nil {
		return runkod.Project{}, f.getErr
	}
	for _, p := range f.projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return runkod.Project{}, runkod.ErrNotFound
}

func (f *fakeAPI) Deploy(ctx context.Context, projectID string, r io.Reader, size int64) (runkod.Deployment, error) {
	f.calls["deploy"]++
	f.deployed = projectID
	b, err := io.ReadAll(r)
	if err != nil {
		return runkod.Deployment{}, err
	}
	f.uploaded = b
	if f.deployErr != nil {
		return runkod.Deployment{}, f.deployErr
	}
	return runkod.Deployment{ID: "d-1", ProjectID: projectID, Active: f.deployActive, Size: size}, nil
}

func (f *fakeAPI) ActivateDeployment(ctx context.Context, projectID, deploymentID string) error {
	f.calls["activate"]++
	if f.activateErr != nil {
		return f.activateErr
	}
	f.activated = append(f.activated, projectID+"/"+deploymentID)
	return nil
}

// mutatingCalls counts the calls other than project listing.
func (f *fakeAPI) mutatingCalls() int {
	return f.calls["create"] + f.calls["get"] + f.calls["deploy"] + f.calls["activate"]
}

// fakeUI answers prompts from scripted values and records what was asked.
type fakeUI struct {
	confirm  func(msg string) bool
	selectFn func(items []string) (int, bool)
	inputs   []string // consumed in order; "" once exhausted cancels

	confirms []string
	selects  [][]string
	prompts  []string
}

func (u *fakeUI) Confirm(ctx context.Context, msg string) (bool, error) {
	u.confirms = append(u.confirms, msg)
	if u.confirm == nil {
		return false, nil
	}
	return u.confirm(msg), nil
}

func (u *fakeUI) Select(ctx context.Context, msg string, items []string) (int, bool, error) {
	u.selects = append(u.selects, items)
	if u.selectFn == nil {
		return -1, false, nil
	}
	i, ok := u.selectFn(items)
	return i, ok, nil
}

func (u *fakeUI) TextInput(ctx context.Context, msg, def string) (string, bool, error) {
	u.prompts = append(u.prompts, msg)
	if len(u.inputs) == 0 {
		return "", false, nil
	}
	in := u.inputs[0]
	u.inputs = u.inputs[1:]
	return in, true, nil
}

func yes(string) bool { return true }

func no(string) bool { return false }

// declineContaining declines confirmations whose message contains s.
func declineContaining(s string) func(string) bool {
	return func(msg string) bool { return !strings.Contains(msg, s) }
}

// fakeRecorder collects history entries.
type fakeRecorder struct {
	entries []history.Entry
	err     error
}

func (r *fakeRecorder) Record(ctx context.Context, e history.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

// fakeProgress records the texts shown.
type fakeProgress struct {
	texts            []string
	started, stopped int
}

func (p *fakeProgress) Start()              { p.started++ }
func (p *fakeProgress) SetText(text string) { p.texts = append(p.texts, text) }
func (p *fakeProgress) Stop()               { p.stopped++ }

var errBoom = errors.New("boom")

// writeTree creates files with the given contents below root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// isolateTemp points the temporary directory at a fresh directory and returns it,
// so tests can check that no bundle is left behind.
func isolateTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	return dir
}

// bundlesIn lists the bundle files left in dir.
func bundlesIn(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "runkod-bundle-*"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}
