// Package runkod is a client for the runkod hosting API: projects, deployment uploads
// and deployment activation.
package runkod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/go-querystring/query"
	"golang.org/x/sync/errgroup"
)

// bundleField is the multipart form field carrying the deployment archive.
const bundleField = "bundle"

// APIClient is a wrapper for making authenticated calls to the runkod API.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	perPage    int
	log        *slog.Logger
}

// NewAPIClient creates a new runkod API client. If no httpClient is provided
// http.DefaultClient is used; authentication is expected to be carried by the
// provided client's transport.
func NewAPIClient(
	baseURL string,
	httpClient *http.Client,
	perPage int,
	logger *slog.Logger,
) *APIClient {

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if perPage <= 0 {
		perPage = 50
	}

	return &APIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		perPage:    perPage,
		log:        logger,
	}
}

// ListProjects fetches all projects visible to the caller, following pagination
// until a short or empty page is returned.
func (c *APIClient) ListProjects(ctx context.Context) ([]Project, error) {

	var allProjects []Project
	opts := ListOptions{Page: 1, PerPage: c.perPage}

	for {
		params, err := query.Values(opts)
		if err != nil {
			return nil, fmt.Errorf("could not encode list options: %w", err)
		}
		requestURL := fmt.Sprintf("%s/projects?%s", c.baseURL, params.Encode())
		c.log.Debug(fmt.Sprintf("ListProjects request %v", requestURL))

		req, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}

		var page []Project
		if _, err := do(c, req, &page); err != nil {
			c.log.Error(fmt.Sprintf("ListProjects: failed to execute request for page %d: %v", opts.Page, err))
			return nil, fmt.Errorf("failed to list projects page %d: %w", opts.Page, err)
		}

		allProjects = append(allProjects, page...)
		if len(page) < opts.PerPage {
			break
		}
		opts.Page++
	}

	c.log.Debug(fmt.Sprintf("ListProjects: retrieved %d projects", len(allProjects)))
	return allProjects, nil
}

// CreateProject creates a new project with a server-assigned name.
func (c *APIClient) CreateProject(ctx context.Context) (Project, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.baseURL+"/projects", struct{}{})
	if err != nil {
		return Project{}, err
	}

	var project Project
	if _, err := do(c, req, &project); err != nil {
		c.log.Error(fmt.Sprintf("CreateProject: request error: %v", err))
		return Project{}, fmt.Errorf("failed to create project: %w", err)
	}
	c.log.Debug(fmt.Sprintf("CreateProject: created %s", project.ID))
	return project, nil
}

// GetProject fetches a single project. A missing project reports ErrNotFound.
func (c *APIClient) GetProject(ctx context.Context, projectID string) (Project, error) {
	requestURL := fmt.Sprintf("%s/projects/%s", c.baseURL, url.PathEscape(projectID))
	req, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Project{}, err
	}

	var project Project
	if _, err := do(c, req, &project); err != nil {
		return Project{}, fmt.Errorf("failed to get project %s: %w", projectID, err)
	}
	return project, nil
}

// Deploy uploads a bundle of size bytes read from r as a new deployment of the
// project. The body is streamed as multipart form data: a goroutine copies r into
// the request through a pipe, so r is read incrementally as the request is sent.
func (c *APIClient) Deploy(ctx context.Context, projectID string, r io.Reader, size int64) (Deployment, error) {
	requestURL := fmt.Sprintf("%s/projects/%s/deployments", c.baseURL, url.PathEscape(projectID))

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	g, gctx := errgroup.WithContext(ctx)

	// Producer: write the multipart body into the pipe.
	g.Go(func() error {
		part, err := mw.CreateFormFile(bundleField, "bundle.zip")
		if err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("could not create form file: %w", err)
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("could not stream bundle: %w", err)
		}
		if err := mw.Close(); err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("could not finish multipart body: %w", err)
		}
		return pw.Close()
	})

	// Consumer: send the request reading from the pipe.
	var deployment Deployment
	g.Go(func() error {
		req, err := c.newRequest(gctx, http.MethodPost, requestURL, pr)
		if err != nil {
			pr.CloseWithError(err)
			return err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-Bundle-Size", strconv.FormatInt(size, 10))

		if _, err := do(c, req, &deployment); err != nil {
			// Unblock the producer if the server gave up before reading the body.
			pr.CloseWithError(err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		c.log.Error(fmt.Sprintf("Deploy: upload to project %s failed: %v", projectID, err))
		return Deployment{}, fmt.Errorf("failed to upload bundle: %w", err)
	}
	c.log.Debug(fmt.Sprintf("Deploy: created deployment %s (active=%t)", deployment.ID, deployment.Active))
	return deployment, nil
}

// ActivateDeployment marks the deployment as the live version of its project.
func (c *APIClient) ActivateDeployment(ctx context.Context, projectID, deploymentID string) error {
	requestURL := fmt.Sprintf(
		"%s/projects/%s/deployments/%s/activate",
		c.baseURL,
		url.PathEscape(projectID),
		url.PathEscape(deploymentID),
	)
	req, err := c.newRequest(ctx, http.MethodPost, requestURL, nil)
	if err != nil {
		return err
	}
	if _, err := do[struct{}](c, req, nil); err != nil {
		c.log.Error(fmt.Sprintf("ActivateDeployment: request error: %v", err))
		return fmt.Errorf("failed to activate deployment %s: %w", deploymentID, err)
	}
	return nil
}

// newRequest is a helper to create a new HTTP request with common headers.
func (c *APIClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// newJSONRequest encodes v as the JSON body of a new request.
func (c *APIClient) newJSONRequest(ctx context.Context, method, url string, v any) (*http.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := c.newRequest(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do is a helper to execute an HTTP request and decode the JSON
// response. A nil `v` is supported for API calls not providing a
// response body.
func do[T any](c *APIClient, req *http.Request, v *T) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp, nil
}
