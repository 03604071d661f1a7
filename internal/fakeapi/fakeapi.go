// Package fakeapi provides an in-process stand-in for the runkod hosting API. It
// keeps projects and deployments in memory, records uploaded bundles and counts
// calls per route so that tests can exercise the real HTTP client end to end.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Route names used for call counting and failure injection.
const (
	RouteListProjects = "list-projects"
	RouteCreate       = "create-project"
	RouteGetProject   = "get-project"
	RouteDeploy       = "deploy"
	RouteActivate     = "activate"
)

// Project is the wire form of a project.
type Project struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Domain             string    `json:"domain"`
	ActiveDeploymentID string    `json:"active_deployment_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// Deployment is the wire form of a deployment.
type Deployment struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Active    bool      `json:"active"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Server is a fake runkod API.
type Server struct {
	*httptest.Server

	// Token, when set, is the bearer token every request must carry.
	Token string
	// AutoActivate makes new deployments active on upload.
	AutoActivate bool

	mu          sync.Mutex
	projects    []*Project
	deployments map[string]*Deployment
	uploads     map[string][]byte // deployment id -> bundle bytes
	calls       map[string]int
	failures    map[string]int // route -> status to return
}

// New starts a fake API holding the given projects. The caller must Close it.
func New(projects ...Project) *Server {
	s := &Server{
		deployments: map[string]*Deployment{},
		uploads:     map[string][]byte{},
		calls:       map[string]int{},
		failures:    map[string]int{},
	}
	for i := range projects {
		p := projects[i]
		s.projects = append(s.projects, &p)
	}
	s.Server = httptest.NewServer(handlers.RecoveryHandler()(s.routes()))
	return s
}

// routes connects the API endpoints.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.authenticate)

	r.Handle("/projects", s.count(RouteListProjects, s.handleListProjects())).Methods(http.MethodGet)
	r.Handle("/projects", s.count(RouteCreate, s.handleCreateProject())).Methods(http.MethodPost)
	r.Handle("/projects/{id}", s.count(RouteGetProject, s.handleGetProject())).Methods(http.MethodGet)
	r.Handle("/projects/{id}/deployments", s.count(RouteDeploy, s.handleDeploy())).Methods(http.MethodPost)
	r.Handle("/projects/{id}/deployments/{did}/activate", s.count(RouteActivate, s.handleActivate())).Methods(http.MethodPost)
	return r
}

// Fail makes the named route answer with status until Fail is called with 0.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Calls returns how many requests reached the named route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests to all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Upload returns the bundle bytes received for a deployment.
func (s *Server) Upload(deploymentID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.uploads[deploymentID]
	return b, ok
}

// Projects returns a copy of the current projects.
func (s *Server) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out
}

// Deployment returns a copy of a stored deployment.
func (s *Server) Deployment(id string) (Deployment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok {
		return Deployment{}, false
	}
	return *d, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// count records the call and applies any injected failure.
func (s *Server) count(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		status := s.failures[route]
		s.mu.Unlock()
		if status != 0 {
			// Drain the body so that streaming clients see the response.
			_, _ = io.Copy(io.Discard, r.Body)
			writeError(w, status, fmt.Sprintf("%s failed", route))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := atoiDefault(r.URL.Query().Get("page"), 1)
		perPage := atoiDefault(r.URL.Query().Get("per_page"), 50)

		s.mu.Lock()
		defer s.mu.Unlock()
		out := []Project{}
		start := (page - 1) * perPage
		for i := start; i >= 0 && i < len(s.projects) && i < start+perPage; i++ {
			out = append(out, *s.projects[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := uuid.NewString()
		p := &Project{
			ID:        id,
			Name:      fmt.Sprintf("project-%d", len(s.projects)+1),
			Domain:    id[:8] + ".runkod.test",
			CreatedAt: time.Now().UTC(),
		}
		s.projects = append(s.projects, p)
		writeJSON(w, http.StatusCreated, p)
	}
}

func (s *Server) handleGetProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.project(mux.Vars(r)["id"])
		if p == nil {
			writeError(w, http.StatusNotFound, "no such project")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleDeploy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := mux.Vars(r)["id"]

		file, _, err := r.FormFile("bundle")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("missing bundle: %v", err))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("could not read bundle: %v", err))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.project(projectID)
		if p == nil {
			writeError(w, http.StatusNotFound, "no such project")
			return
		}
		d := &Deployment{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Active:    s.AutoActivate,
			Size:      int64(len(data)),
			CreatedAt: time.Now().UTC(),
		}
		s.deployments[d.ID] = d
		s.uploads[d.ID] = data
		if d.Active {
			p.ActiveDeploymentID = d.ID
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func (s *Server) handleActivate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.project(vars["id"])
		d, ok := s.deployments[vars["did"]]
		if p == nil || !ok || d.ProjectID != p.ID {
			writeError(w, http.StatusNotFound, "no such deployment")
			return
		}
		for _, other := range s.deployments {
			if other.ProjectID == p.ID {
				other.Active = false
			}
		}
		d.Active = true
		p.ActiveDeploymentID = d.ID
		w.WriteHeader(http.StatusNoContent)
	}
}

// project must be called with s.mu held.
func (s *Server) project(id string) *Project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
