// Package history keeps a local ledger of deployments made from this machine in a
// sqlite database, so that earlier uploads can be listed without asking the API.
//
// The queries are held as sql files in the `sql` directory, which can be run on the
// sqlite command line.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx" // helper library
	_ "modernc.org/sqlite"    // pure go sqlite driver
)

//go:embed sql
var sqlFS embed.FS

// DefaultLimit is the number of entries Recent returns for a zero limit.
const DefaultLimit = 20

// Entry is one recorded upload.
type Entry struct {
	ID           int64     `db:"id"`
	ProjectID    string    `db:"project_id"`
	ProjectName  string    `db:"project_name"`
	DeploymentID string    `db:"deployment_id"`
	Folder       string    `db:"folder"`
	Files        int       `db:"files"`
	Size         int64     `db:"size"`
	Activated    bool      `db:"activated"`
	CreatedAt    time.Time `db:"created_at"`
}

// Store wraps the sqlite connection.
type Store struct {
	*sqlx.DB
	recordSQL string
	recentSQL string
}

// Open opens, and if needed creates, the history database at path and makes sure
// its schema exists. In-memory databases must use a shared cache, for example
// "file::memory:?cache=shared".
func Open(path string) (*Store, error) {

	if path == "" {
		return nil, errors.New("no history database path provided")
	}

	// dataSource is the default setting for file-based databases.
	dataSource := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	// for in-memory test databases, check the necessary cached setting is used.
	if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
		if !strings.Contains(path, "cache=shared") {
			return nil, fmt.Errorf("in-memory connection %q should contain 'cache=shared'", path)
		}
		dataSource = path
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("could not create history directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dataSource)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("could not open history database %q: %w", path, err)
	}

	s := &Store{DB: sqlx.NewDb(sqlDB, "sqlite")}
	if err := s.load(); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.InitSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// load reads the query files.
func (s *Store) load() error {
	record, err := sqlFS.ReadFile("sql/record.sql")
	if err != nil {
		return fmt.Errorf("could not read record query: %w", err)
	}
	recent, err := sqlFS.ReadFile("sql/recent.sql")
	if err != nil {
		return fmt.Errorf("could not read recent query: %w", err)
	}
	s.recordSQL, s.recentSQL = string(record), string(recent)
	return nil
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	schema, err := sqlFS.ReadFile("sql/schema.sql")
	if err != nil {
		return fmt.Errorf("could not read schema: %w", err)
	}
	if _, err := s.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}
	return nil
}

// Record stores an upload. A zero CreatedAt is set to the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ProjectID == "" || e.DeploymentID == "" {
		return errors.New("history entry needs a project and a deployment id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.NamedExecContext(ctx, s.recordSQL, e); err != nil {
		return fmt.Errorf("could not record deployment %s: %w", e.DeploymentID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty projectID returns
// entries for all projects.
func (s *Store) Recent(ctx context.Context, projectID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query, args, err := sqlx.Named(s.recentSQL, map[string]any{
		"project_id": projectID,
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("could not bind recent query: %w", err)
	}
	entries := []Entry{}
	if err := s.SelectContext(ctx, &entries, s.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("could not read history: %w", err)
	}
	return entries, nil
}
