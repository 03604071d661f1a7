package deploy

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/erik777/runkod-cli/apiclients/runkod"
)

// Uploader sends a bundle as a new deployment.
type Uploader interface {
	Deploy(ctx context.Context, projectID string, r io.Reader, size int64) (runkod.Deployment, error)
}

// Upload streams the bundle to the project, calling progress with the percentage
// sent after every chunk read. The bundle is removed before Upload returns, whether
// or not the upload succeeded.
func Upload(ctx context.Context, api Uploader, projectID string, b *Bundle, progress func(percent int)) (d runkod.Deployment, err error) {

	defer func() {
		if rerr := b.Remove(); rerr != nil && err == nil {
			err = fmt.Errorf("could not remove bundle %s: %w", b.Path, rerr)
		}
	}()

	f, err := os.Open(b.Path)
	if err != nil {
		return runkod.Deployment{}, fmt.Errorf("could not open bundle: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return runkod.Deployment{}, fmt.Errorf("could not stat bundle: %w", err)
	}
	total := info.Size()

	if progress == nil {
		progress = func(int) {}
	}
	if total == 0 {
		progress(100)
	}
	r := &progressReader{r: f, total: total, report: progress}

	d, err = api.Deploy(ctx, projectID, r, total)
	if err != nil {
		return runkod.Deployment{}, err
	}
	return d, nil
}

// progressReader reports the share of total read so far after every read.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(Percent(p.sent, p.total))
	}
	return n, err
}

// Percent is ceil(sent / total * 100) capped at 100. An empty total counts as
// complete.
func Percent(sent, total int64) int {
	if total <= 0 || sent >= total {
		return 100
	}
	if sent <= 0 {
		return 0
	}
	return int((sent*100 + total - 1) / total)
}
