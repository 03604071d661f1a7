package runkod

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a 404 from the API.
var ErrNotFound = errors.New("not found")

// Project is the remote grouping under which deployments are created.
type Project struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Domain             string    `json:"domain"`
	ActiveDeploymentID string    `json:"active_deployment_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// Deployment is the remote record of one uploaded bundle.
type Deployment struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Active    bool      `json:"active"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions sets the pagination for list endpoints.
type ListOptions struct {
	Page    int `url:"page,omitempty"`
	PerPage int `url:"per_page,omitempty"`
}

// APIError represents a non-2xx response from the API.
type APIError struct {
	Status int
	Body   string
}

func (e APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error (status %d)", e.Status)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

// Is allows errors.Is(err, ErrNotFound) for 404 responses.
func (e APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}
