package deploy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// SelectFiles returns the absolute paths of the regular files below root, at any
// depth, in lexical order. Directories, including links to directories, are never
// returned. A file is left out when an exclusion pattern matches its slash
// separated path relative to root, its absolute path or its base name. Links to
// directories are not followed, so every file returned lies under root. A missing
// root gives no files and no error.
func SelectFiles(root string, excludes []string) ([]string, error) {

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %q: %w", root, err)
	}
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []string
	err = doublestar.GlobWalk(os.DirFS(root), "**", func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(abs)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if excluded(rel, filepath.ToSlash(abs), excludes) {
			return nil
		}
		files = append(files, abs)
		return nil
	}, doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("could not list files in %q: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// excluded reports whether any pattern matches the relative path, the absolute path
// or the base name of a file.
func excluded(rel, abs string, patterns []string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		for _, candidate := range []string{rel, abs, base} {
			if ok, _ := doublestar.Match(p, candidate); ok {
				return true
			}
		}
	}
	return false
}
