package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/oauth2/clientcredentials"
	"gopkg.in/yaml.v2"
)

// DefaultFile is the configuration file looked for when none is given.
const DefaultFile = "runkod.yaml"

// DefaultExcludes are the exclusion globs applied when the configuration does not
// provide its own list. Patterns without a slash match against file basenames.
var DefaultExcludes = []string{
	"**/.git/**",
	"**/.svn/**",
	"**/.hg/**",
	"**/node_modules/**",
	"**/.idea/**",
	"**/.vscode/**",
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"*.swp",
	"*~",
	"npm-debug.log*",
	"runkod.yaml",
}

// Config represents the entire application configuration.
type Config struct {
	APIURL                 string            `yaml:"api_url"`
	APIToken               string            `yaml:"api_token"`
	ClientID               string            `yaml:"client_id"`
	ClientSecret           string            `yaml:"client_secret"`
	TokenURL               string            `yaml:"token_url"`
	TokenFilePath          string            `yaml:"token_file_path"`
	HistoryPath            string            `yaml:"history_path"`
	LogLevel               string            `yaml:"log_level"`
	AssumeYes              bool              `yaml:"assume_yes"`
	Excludes               []string          `yaml:"excludes"`
	MarkupExtension        string            `yaml:"markup_extension"`
	ServerScriptExtensions []string          `yaml:"server_script_extensions"`
	Folders                map[string]string `yaml:"folders"`
	PerPage                int               `yaml:"per_page"`
	HTTPTimeoutStr         string            `yaml:"http_timeout"`

	HTTPTimeout time.Duration                // Parsed from HTTPTimeoutStr
	OAuth2      *clientcredentials.Config // nil when a static api_token is used
}

// Load loads and validates the configuration from the given file path.
func Load(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", filePath)
	}

	configFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(configFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse YAML config file: %w", err)
	}

	if err := validateAndPrepare(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateAndPrepare checks for required fields and sets up derived values.
func validateAndPrepare(c *Config) error {
	// API
	if c.APIURL == "" {
		return errors.New("api_url is missing")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q is not a valid http(s) url", c.APIURL)
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	// Authentication: either a static token or a client credentials triple.
	switch {
	case c.APIToken != "" && c.ClientID != "":
		return errors.New("api_token and client_id are mutually exclusive")
	case c.APIToken != "":
	case c.ClientID != "":
		if c.ClientSecret == "" {
			return errors.New("client_secret is missing")
		}
		if c.TokenURL == "" {
			c.TokenURL = c.APIURL + "/oauth/token"
		}
		if c.TokenFilePath == "" {
			return errors.New("token_file_path is missing")
		}
		c.OAuth2 = &clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
			Scopes:       []string{"projects", "deployments"},
		}
	default:
		return errors.New("one of api_token or client_id is required")
	}

	// Logging
	switch strings.ToLower(c.LogLevel) {
	case "":
		c.LogLevel = "info"
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	// File selection
	if len(c.Excludes) == 0 {
		c.Excludes = append([]string(nil), DefaultExcludes...)
	}
	for _, p := range c.Excludes {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	if c.MarkupExtension == "" {
		c.MarkupExtension = ".html"
	}
	c.MarkupExtension = dotted(c.MarkupExtension)
	if len(c.ServerScriptExtensions) == 0 {
		c.ServerScriptExtensions = []string{".php"}
	}
	for i, ext := range c.ServerScriptExtensions {
		c.ServerScriptExtensions[i] = dotted(ext)
	}
	for name, path := range c.Folders {
		if path == "" {
			return fmt.Errorf("folders.%s has no path", name)
		}
	}

	// Transport
	if c.PerPage <= 0 {
		c.PerPage = 50
	}
	c.HTTPTimeout = 5 * time.Minute
	if c.HTTPTimeoutStr != "" {
		c.HTTPTimeout, err = time.ParseDuration(c.HTTPTimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid http_timeout format: %w", err)
		}
	}

	// Local history
	if c.HistoryPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("history_path is missing and no user config dir: %w", err)
		}
		c.HistoryPath = filepath.Join(dir, "runkod", "history.db")
	}

	return nil
}

// FolderPath resolves a named folder from the configuration. Names without an entry
// are returned verbatim so that a path can also be given as a folder identifier.
func (c *Config) FolderPath(name string) string {
	if p, ok := c.Folders[name]; ok {
		return p
	}
	return name
}

// dotted prepends "." to an extension when missing.
func dotted(ext string) string {
	if ext != "" && ext[0] != '.' {
		return "." + ext
	}
	return ext
}
