package runkod

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erik777/runkod-cli/config"
	"github.com/erik777/runkod-cli/internal/token"

	"golang.org/x/oauth2"
)

// NewClient returns an APIClient whose requests carry the configured credentials:
// either the static api_token or a client credentials token cached on disk.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*APIClient, error) {
	var src oauth2.TokenSource
	if cfg.OAuth2 != nil {
		fs, err := token.NewFileSource(ctx, cfg.OAuth2, cfg.TokenFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to set up token source: %w", err)
		}
		src = fs
	} else {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken, TokenType: "Bearer"})
	}

	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = cfg.HTTPTimeout

	return NewAPIClient(cfg.APIURL, httpClient, cfg.PerPage, logger), nil
}
