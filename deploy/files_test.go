package deploy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/go-cmp/cmp"
)

var testExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	".DS_Store",
	"*.swp",
}

func TestSelectFiles(t *testing.T) {

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":                  "<h1>hi</h1>",
		"css/site.css":                "body{}",
		"deep/a/b/c/d.txt":            "deep",
		".git/config":                 "[core]",
		".git/objects/ab/cdef":        "blob",
		"node_modules/lib/index.js":   "module.exports={}",
		"assets/node_modules/x.js":    "x",
		"assets/.DS_Store":            "meta",
		".DS_Store":                   "meta",
		"notes.txt.swp":               "swap",
		".well-known/security.txt":    "contact",
		"assets/images/logo.svg":      "<svg/>",
		"assets/images/git-thing.txt": "not vcs",
	})
	if err := os.MkdirAll(filepath.Join(root, "empty", "dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := SelectFiles(root, testExcludes)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(root, ".well-known", "security.txt"),
		filepath.Join(root, "assets", "images", "git-thing.txt"),
		filepath.Join(root, "assets", "images", "logo.svg"),
		filepath.Join(root, "css", "site.css"),
		filepath.Join(root, "deep", "a", "b", "c", "d.txt"),
		filepath.Join(root, "index.html"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	// every file is a regular file under root matching no exclusion pattern
	for _, f := range got {
		if !strings.HasPrefix(f, root+string(filepath.Separator)) {
			t.Errorf("%s is not under %s", f, root)
		}
		info, err := os.Stat(f)
		if err != nil || !info.Mode().IsRegular() {
			t.Errorf("%s is not a regular file", f)
		}
		rel, _ := filepath.Rel(root, f)
		for _, p := range testExcludes {
			if ok, _ := doublestar.Match(p, filepath.ToSlash(rel)); ok {
				t.Errorf("%s matches exclusion %q", rel, p)
			}
		}
	}
}

func TestSelectFilesAbsolutePattern(t *testing.T) {

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":        "x",
		"private/key.pem":   "secret",
		"public/robots.txt": "allow",
	})

	exclude := filepath.ToSlash(root) + "/private/**"
	got, err := SelectFiles(root, []string{exclude})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "index.html"),
		filepath.Join(root, "public", "robots.txt"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectFilesEmpty(t *testing.T) {

	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		root string
	}{
		{"missing root", filepath.Join(t.TempDir(), "absent")},
		{"root is a file", file},
		{"empty dir", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectFiles(tt.root, testExcludes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no files, got %v", got)
			}
		})
	}
}

func TestSelectFilesAllExcluded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{".git/HEAD": "ref", ".DS_Store": "x"})

	got, err := SelectFiles(root, testExcludes)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}
}

func TestSelectFilesSymlinks(t *testing.T) {

	root := t.TempDir()
	writeTree(t, root, map[string]string{"real/page.html": "x"})

	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "linkdir")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "real", "page.html"), filepath.Join(root, "link.html")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := SelectFiles(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range got {
		if f == filepath.Join(root, "linkdir") {
			t.Errorf("link to a directory was selected")
		}
	}
	want := []string{
		filepath.Join(root, "link.html"),
		filepath.Join(root, "real", "page.html"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("linked directory contents selected (-want +got):\n%s", diff)
	}
}

func TestSelectFilesSymlinkLoop(t *testing.T) {

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html": "x",
		"a/f.txt":    "y",
	})
	if err := os.Symlink("..", filepath.Join(root, "a", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := SelectFiles(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "a", "f.txt"),
		filepath.Join(root, "index.html"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectFilesLinkOutsideRoot(t *testing.T) {

	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, root, map[string]string{"index.html": "x"})
	writeTree(t, outside, map[string]string{"secret/key.pem": "k"})
	if err := os.Symlink(outside, filepath.Join(root, "elsewhere")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := SelectFiles(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range got {
		if rel, err := filepath.Rel(root, f); err != nil || strings.HasPrefix(rel, "elsewhere") {
			t.Errorf("file reached through a directory link: %s", f)
		}
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "index.html")}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
