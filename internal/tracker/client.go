package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/torosent/issuecrank/internal/httpclient"
	"github.com/torosent/issuecrank/internal/runner"
)

// DefaultPerPage is the page size used for typed issue snapshots.
const DefaultPerPage = 50

const (
	issueListInclude   = "createdBy,assignee,developmentUpdates,isFollower,subtasksCount,meta"
	typedIssueInclude  = "createdBy,assignee,developmentUpdates,isFollower,subtasksCount"
	issueDetailInclude = "isCreator,isAssignee,isFollower,initiative,epic,parent,commitment,subtasksCount"
	projectListInclude = "meta,activeSprint,members,organisation"

	maxBodyBytes = 8 << 20
)

// Client calls the issue tracker REST API. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	builder *httpclient.RequestBuilder
}

func NewClient(httpClient *http.Client, builder *httpclient.RequestBuilder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, builder: builder}
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, "fetch current user", http.MethodGet, "/user", nil, nil, &user)
	return user, err
}

// Project returns one project with its preferences.
func (c *Client) Project(ctx context.Context, projectID string) (Project, error) {
	query := url.Values{"include": {"organisation"}}
	var project Project
	err := c.do(ctx, "fetch project "+projectID, http.MethodGet, "/projects/"+projectID, query, nil, &project)
	return project, err
}

// Labels returns the labels defined in a project.
func (c *Client) Labels(ctx context.Context, projectID string) ([]Label, error) {
	var labels []Label
	err := c.do(ctx, "fetch project labels "+projectID, http.MethodGet, "/projects/"+projectID+"/labels", nil, nil, &labels)
	return labels, err
}

// Statuses returns the project workflow columns in board order.
func (c *Client) Statuses(ctx context.Context, projectID string) ([]IssueStatus, error) {
	var statuses []IssueStatus
	err := c.do(ctx, "fetch project issue statuses "+projectID, http.MethodGet, "/projects/"+projectID+"/issueStatuses", nil, nil, &statuses)
	return statuses, err
}

// Initiatives returns the first page of active initiatives.
func (c *Client) Initiatives(ctx context.Context, projectID string) ([]Issue, error) {
	return c.issuesOfType(ctx, projectID, "initiative")
}

// Epics returns the first page of active epics.
func (c *Client) Epics(ctx context.Context, projectID string) ([]Issue, error) {
	return c.issuesOfType(ctx, projectID, "epic")
}

// issuesOfType fetches without the meta include, so the API answers with a
// bare array instead of a pagination envelope.
func (c *Client) issuesOfType(ctx context.Context, projectID, issueType string) ([]Issue, error) {
	query := url.Values{
		"type":     {issueType},
		"state":    {"active"},
		"page":     {"1"},
		"per_page": {strconv.Itoa(DefaultPerPage)},
		"sort":     {"-createdAt"},
		"include":  {typedIssueInclude},
	}
	var issues []Issue
	err := c.do(ctx, "fetch "+issueType+"s", http.MethodGet, "/projects/"+projectID+"/issues", query, nil, &issues)
	return issues, err
}

// Members returns the active members of a project.
func (c *Client) Members(ctx context.Context, projectID string) ([]ProjectMember, error) {
	query := url.Values{"status": {"active"}}
	var members []ProjectMember
	err := c.do(ctx, "fetch project members", http.MethodGet, "/iam/projects/"+projectID+"/members/", query, nil, &members)
	return members, err
}

// Issues returns one page of active issues, newest first.
func (c *Client) Issues(ctx context.Context, projectID string, page, perPage int) (runner.Page[Issue], error) {
	query := url.Values{
		"state":    {"active"},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
		"sort":     {"-createdAt"},
		"include":  {issueListInclude},
	}
	var result runner.Page[Issue]
	err := c.do(ctx, fmt.Sprintf("fetch issues page %d", page), http.MethodGet, "/projects/"+projectID+"/issues", query, nil, &result)
	return result, err
}

// Issue returns the full detail of one issue.
func (c *Client) Issue(ctx context.Context, projectID, issueID string) (Issue, error) {
	query := url.Values{"include": {issueDetailInclude}}
	var issue Issue
	err := c.do(ctx, "fetch issue "+issueID, http.MethodGet, "/projects/"+projectID+"/issues/"+issueID, query, nil, &issue)
	return issue, err
}

// CreateIssue creates an issue and returns it as stored by the server.
func (c *Client) CreateIssue(ctx context.Context, projectID string, body CreateIssueRequest) (Issue, error) {
	var issue Issue
	err := c.do(ctx, "create issue", http.MethodPost, "/projects/"+projectID+"/issues", nil, body, &issue)
	return issue, err
}

// Projects returns one page of active projects, most recently active first.
func (c *Client) Projects(ctx context.Context, page, perPage int) (runner.Page[Project], error) {
	query := url.Values{
		"status":   {"active"},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
		"sort":     {"-lastActivityDate"},
		"include":  {projectListInclude},
	}
	var result runner.Page[Project]
	err := c.do(ctx, fmt.Sprintf("fetch projects page %d", page), http.MethodGet, "/projects", query, nil, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	req, err := c.builder.Build(ctx, method, path, query, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPStatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
