// Package token caches OAuth2 client-credential tokens on disk so that consecutive
// runs of the command line client reuse a still valid access token instead of
// requesting a new one each time.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// expiryMargin is subtracted from a cached token's expiry when deciding whether it
// can be reused.
const expiryMargin = 30 * time.Second

// ErrCorrupt reports a token file that could not be decoded.
var ErrCorrupt = errors.New("corrupt token file")

// FileSource is an oauth2.TokenSource that persists every newly issued token to a
// file with user-only permissions.
type FileSource struct {
	path string
	src  oauth2.TokenSource

	mu   sync.Mutex
	last string // access token last written to path
}

// NewFileSource returns a FileSource for the client credentials config. A valid token
// found at path is reused until it expires. A corrupt token file is removed and a
// new token requested.
func NewFileSource(ctx context.Context, cfg *clientcredentials.Config, path string) (*FileSource, error) {
	if cfg == nil {
		return nil, errors.New("nil client credentials config provided to NewFileSource")
	}
	if path == "" {
		return nil, errors.New("empty token file path provided to NewFileSource")
	}

	fs := &FileSource{path: path}

	cached, err := Load(path)
	switch {
	case err == nil && IsValid(cached):
		fs.last = cached.AccessToken
		fs.src = oauth2.ReuseTokenSource(cached, cfg.TokenSource(ctx))
	case err == nil, errors.Is(err, os.ErrNotExist):
		fs.src = cfg.TokenSource(ctx)
	case errors.Is(err, ErrCorrupt):
		if err := Delete(path); err != nil {
			return nil, fmt.Errorf("could not remove token file %s: %w", path, err)
		}
		fs.src = cfg.TokenSource(ctx)
	default:
		return nil, fmt.Errorf("could not read token file %s: %w", path, err)
	}
	return fs, nil
}

// Token returns a valid token, saving it to disk when it differs from the one last
// saved.
func (fs *FileSource) Token() (*oauth2.Token, error) {
	tok, err := fs.src.Token()
	if err != nil {
		return nil, fmt.Errorf("could not obtain token: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if tok.AccessToken == fs.last {
		return tok, nil
	}
	if err := Save(tok, fs.path); err != nil {
		return nil, err
	}
	fs.last = tok.AccessToken
	return tok, nil
}

// IsValid reports whether tok can be used without contacting the token endpoint.
// Tokens without an expiry are not trusted.
func IsValid(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return false
	}
	return tok.Expiry.After(time.Now().Add(expiryMargin))
}

// Load reads an OAuth2 token from a JSON file.
func Load(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorrupt, path, err)
	}
	return tok, nil
}

// Save writes an OAuth2 token to a JSON file with secure permissions.
func Save(tok *oauth2.Token, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// Delete removes the token file from disk.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
