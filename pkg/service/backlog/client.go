package backlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/domain/model"
	"github.com/secmon-lab/kakehashi/pkg/utils/safe"
)

// Client creates issues in a Backlog space. Authentication uses the apiKey
// query parameter, not a bearer token.
type Client struct {
	baseURL     string
	apiKey      string
	projectID   string
	issueTypeID string
	priorityID  string
	httpClient  *http.Client
}

// Option is a functional option for Client
type Option func(*Client)

// WithBaseURL overrides the space base URL (default https://{space}.backlog.jp)
func WithBaseURL(baseURL string) Option {
	return func(x *Client) {
		x.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(x *Client) {
		x.httpClient = client
	}
}

// New creates a Backlog client. All identifiers are required; issue creation
// is refused up front when the configuration is incomplete.
func New(spaceID, apiKey, projectID, issueTypeID, priorityID string, opts ...Option) (*Client, error) {
	if spaceID == "" || apiKey == "" || projectID == "" || issueTypeID == "" || priorityID == "" {
		return nil, goerr.New("backlog settings are missing",
			goerr.V("space_id", spaceID),
			goerr.V("project_id", projectID),
			goerr.V("issue_type_id", issueTypeID),
			goerr.V("priority_id", priorityID),
		)
	}

	x := &Client{
		baseURL:     fmt.Sprintf("https://%s.backlog.jp", spaceID),
		apiKey:      apiKey,
		projectID:   projectID,
		issueTypeID: issueTypeID,
		priorityID:  priorityID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(x)
	}

	return x, nil
}

type issueRequest struct {
	ProjectID   string `json:"projectId"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IssueTypeID string `json:"issueTypeId"`
	PriorityID  string `json:"priorityId"`
}

// CreateIssue posts a new issue and returns its key
func (x *Client) CreateIssue(ctx context.Context, issue *model.Issue) (string, error) {
	payload, err := json.Marshal(issueRequest{
		ProjectID:   x.projectID,
		Summary:     issue.Summary,
		Description: issue.Description,
		IssueTypeID: x.issueTypeID,
		PriorityID:  x.priorityID,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal issue request")
	}

	endpoint := x.baseURL + "/api/v2/issues?apiKey=" + url.QueryEscape(x.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", goerr.Wrap(err, "failed to create issue request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to request issue creation")
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read issue creation response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", goerr.New("issue endpoint returned an error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	var created struct {
		IssueKey string `json:"issueKey"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", goerr.Wrap(err, "failed to parse issue creation response")
	}

	return created.IssueKey, nil
}
