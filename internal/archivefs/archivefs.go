// Package archivefs exposes deployment bundles as fs.FS filesystems. A bundle zip can
// be opened read-only, printed as an indented tree or written back out to a
// directory on disk.
package archivefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Archive is an opened zip bundle usable as an fs.FS.
type Archive struct {
	Name string
	fs.FS
	rc *zip.ReadCloser
}

// String describes an Archive as a list of files and directories indented by the file
// or directory level.
func (a *Archive) String() string {
	o := fmt.Sprintf("archive %q:\n", a.Name)
	s, _ := PrintFS(a.FS)
	return o + s
}

// Close releases the underlying zip file.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Open opens the zip file at path.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("no archive path provided")
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("could not open archive %q: %w", path, err)
	}
	return &Archive{
		Name: filepath.Base(path),
		FS:   rc,
		rc:   rc,
	}, nil
}

// ErrExists reports a materialization target that is already present.
type ErrExists struct {
	path string
}

// Error fulfills the Error interface requirement for ErrExists.
func (e ErrExists) Error() string {
	return fmt.Sprintf("materialization path %q already exists", e.path)
}

// Materialize writes the contents of fsys recursively to dest, which must not exist.
// The parent of dest must be a directory.
func Materialize(fsys fs.FS, dest string) error {

	parent := filepath.Dir(dest)
	s, err := os.Stat(parent)
	if err != nil {
		return fmt.Errorf("materialize parent %q invalid: %w", parent, err)
	}
	if !s.IsDir() {
		return fmt.Errorf("materialize parent %q is not a directory", parent)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		return ErrExists{dest}
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("could not create %q: %w", dest, err)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		fullPath := filepath.Join(dest, filepath.FromSlash(path))

		if d.IsDir() {
			if err := os.MkdirAll(fullPath, 0o755); err != nil {
				return fmt.Errorf("could not make dir %q: %w", fullPath, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("could not read %q: %w", path, err)
		}
		// zip entries may arrive without their parent directory entry
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return fmt.Errorf("could not make dir for %q: %w", fullPath, err)
		}
		if err := os.WriteFile(fullPath, data, 0o644); err != nil {
			return fmt.Errorf("could not write %q at %q: %w", path, fullPath, err)
		}
		return nil
	})
}

// PrintFS makes structured print output from an fs.FS.
func PrintFS(fsys fs.FS) (string, error) {
	var printOutput strings.Builder
	var topSeen bool
	tpl := "%s[%s] %s%s (%s)\n"

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !topSeen { // root as "[d] ./ (.)"
			fmt.Fprintf(&printOutput, tpl, "", "d", ".", "/", ".")
			topSeen = true
			return nil
		}
		depth := strings.Count(path, "/") + 1
		indent := strings.Repeat("  ", depth)
		typer := "f"
		slash := ""
		if d.IsDir() {
			slash = "/"
			typer = "d"
		}
		fmt.Fprintf(&printOutput, tpl, indent, typer, d.Name(), slash, path)
		return nil
	})
	return printOutput.String(), err
}

// Files returns the paths of all regular files in fsys in lexical order.
func Files(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
