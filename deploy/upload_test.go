package deploy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/erik777/runkod-cli/apiclients/runkod"
)

func TestPercent(t *testing.T) {

	tests := []struct {
		sent, total int64
		want        int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{1, 1000, 1},
		{999, 1000, 100},
		{500, 1000, 50},
		{501, 1000, 51},
		{1000, 1000, 100},
		{0, 0, 100},
		{10, 3, 100},
	}

	for _, tt := range tests {
		if got := Percent(tt.sent, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) got %d want %d", tt.sent, tt.total, got, tt.want)
		}
	}
}

// countingBundle writes data to a bundle file whose removals are counted.
func countingBundle(t *testing.T, data []byte) (*Bundle, *int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runkod-bundle-test.zip")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	var calls int
	b := &Bundle{
		Path: path,
		Size: int64(len(data)),
		remove: func(p string) error {
			calls++
			return os.Remove(p)
		},
	}
	return b, &calls
}

// chunkedAPI reads the upload in small chunks and can fail part way through.
type chunkedAPI struct {
	chunk     int
	failAfter int // bytes; 0 never fails
	got       []byte
}

func (c *chunkedAPI) Deploy(ctx context.Context, projectID string, r io.Reader, size int64) (runkod.Deployment, error) {
	buf := make([]byte, c.chunk)
	for {
		n, err := r.Read(buf)
		c.got = append(c.got, buf[:n]...)
		if c.failAfter > 0 && len(c.got) >= c.failAfter {
			return runkod.Deployment{}, errBoom
		}
		if err == io.EOF {
			return runkod.Deployment{ID: "d-1", ProjectID: projectID, Size: size}, nil
		}
		if err != nil {
			return runkod.Deployment{}, err
		}
	}
}

func TestUploadProgress(t *testing.T) {

	data := make([]byte, 200_000)
	rand.New(rand.NewSource(1)).Read(data)
	b, removals := countingBundle(t, data)

	api := &chunkedAPI{chunk: 4096}
	var reports []int
	d, err := Upload(context.Background(), api, "p-1", b, func(p int) {
		reports = append(reports, p)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := d.ID, "d-1"; got != want {
		t.Errorf("deployment got %q want %q", got, want)
	}
	if !bytes.Equal(api.got, data) {
		t.Errorf("uploaded %d bytes differ from bundle of %d", len(api.got), len(data))
	}

	if len(reports) < 2 {
		t.Fatalf("expected progress per chunk, got %v", reports)
	}
	for i, p := range reports {
		if p < 0 || p > 100 {
			t.Errorf("report %d out of range: %d", i, p)
		}
		if i > 0 && p < reports[i-1] {
			t.Errorf("progress went backwards at %d: %d after %d", i, p, reports[i-1])
		}
		if p == 100 && i != len(reports)-1 {
			t.Errorf("100%% reported before the final chunk at %d of %d", i, len(reports))
		}
	}
	if got, want := reports[len(reports)-1], 100; got != want {
		t.Errorf("final progress got %d want %d", got, want)
	}

	if got, want := *removals, 1; got != want {
		t.Errorf("bundle removed %d times, want %d", got, want)
	}
	if _, err := os.Stat(b.Path); !os.IsNotExist(err) {
		t.Errorf("bundle still present after upload: %v", err)
	}
}

func TestUploadFailureRemovesBundle(t *testing.T) {

	data := bytes.Repeat([]byte("x"), 50_000)
	b, removals := countingBundle(t, data)

	api := &chunkedAPI{chunk: 1024, failAfter: 10_000}
	_, err := Upload(context.Background(), api, "p-1", b, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if got, want := *removals, 1; got != want {
		t.Errorf("bundle removed %d times, want %d", got, want)
	}
	if _, err := os.Stat(b.Path); !os.IsNotExist(err) {
		t.Errorf("bundle still present after failed upload: %v", err)
	}

	// a later cleanup attempt does not delete again
	_ = b.Remove()
	if got, want := *removals, 1; got != want {
		t.Errorf("bundle removed %d times after second Remove, want %d", got, want)
	}
}

func TestUploadMissingBundle(t *testing.T) {

	b, removals := countingBundle(t, []byte("x"))
	if err := os.Remove(b.Path); err != nil {
		t.Fatal(err)
	}

	api := &chunkedAPI{chunk: 1}
	if _, err := Upload(context.Background(), api, "p-1", b, nil); err == nil {
		t.Fatal("expected an error for a missing bundle")
	}
	if got, want := *removals, 1; got != want {
		t.Errorf("bundle removal attempted %d times, want %d", got, want)
	}
}

func TestUploadEmptyBundle(t *testing.T) {

	b, _ := countingBundle(t, nil)
	var reports []int
	if _, err := Upload(context.Background(), &chunkedAPI{chunk: 16}, "p-1", b, func(p int) {
		reports = append(reports, p)
	}); err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0] != 100 {
		t.Errorf("empty bundle progress got %v want [100]", reports)
	}
}
