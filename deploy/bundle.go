package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
)

// Bundle is a zip archive of a file set in a temporary file.
type Bundle struct {
	Path  string
	Size  int64
	Files int

	remove  func(string) error
	once    sync.Once
	removed bool
	err     error
}

// Remove deletes the bundle file. Only the first call deletes; later calls return
// the first call's result.
func (b *Bundle) Remove() error {
	b.once.Do(func() {
		remove := b.remove
		if remove == nil {
			remove = os.Remove
		}
		b.err = remove(b.Path)
		b.removed = true
	})
	return b.err
}

// Removed reports whether Remove has been called.
func (b *Bundle) Removed() bool {
	return b.removed
}

// BuildBundle writes the files under root to a new temporary zip archive, deflate
// compressed. Entries are named by their path relative to root with forward
// slashes and keep their modification times. Each file is read whole, one at a
// time, and the archive streams to disk. On error no archive is left behind.
func BuildBundle(root string, files []string) (b *Bundle, err error) {

	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	f, err := os.CreateTemp("", "runkod-bundle-*.zip")
	if err != nil {
		return nil, fmt.Errorf("could not create bundle file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	zw := zip.NewWriter(f)
	for _, file := range files {
		if !strings.HasPrefix(file, prefix) {
			return nil, fmt.Errorf("file %q is not inside %q", file, root)
		}
		info, err := os.Stat(file)
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", file, err)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", file, err)
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return nil, fmt.Errorf("could not make header for %q: %w", file, err)
		}
		hdr.Name = filepath.ToSlash(strings.TrimPrefix(file, prefix))
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("could not add %q to bundle: %w", hdr.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("could not write %q to bundle: %w", hdr.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("could not finish bundle: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("could not close bundle: %w", err)
	}

	return &Bundle{
		Path:  f.Name(),
		Size:  info.Size(),
		Files: len(files),
	}, nil
}
