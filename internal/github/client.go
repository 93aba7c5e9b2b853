// Package github provides the GitHub REST operations used to map commits to pull requests.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// PullRequest is the subset of the GitHub pull request payload we rely on.
type PullRequest struct {
	Number         int     `json:"number"`
	Title          string  `json:"title"`
	Body           *string `json:"body"`
	HTMLURL        string  `json:"html_url"`
	Head           Ref     `json:"head"`
	MergeCommitSHA *string `json:"merge_commit_sha"`
}

// Ref is a branch tip reference.
type Ref struct {
	SHA string `json:"sha"`
}

// BodyText returns the description, treating an absent body as empty.
func (pr PullRequest) BodyText() string {
	if pr.Body == nil {
		return ""
	}
	return *pr.Body
}

// MergeSHA returns the merge commit SHA or "" when GitHub has none.
func (pr PullRequest) MergeSHA() string {
	if pr.MergeCommitSHA == nil {
		return ""
	}
	return *pr.MergeCommitSHA
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %s %s: %d - %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access or workflow token.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client talks to the pulls endpoints of one repository.
type Client struct {
	baseURL    string
	owner      string
	repo       string
	tokens     TokenSource
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (default http.DefaultClient).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for owner/repo against baseURL (e.g. https://api.github.com).
func NewClient(baseURL, owner, repo string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		owner:      owner,
		repo:       repo,
		tokens:     tokens,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repository returns "owner/repo".
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// ListPullRequestsAssociatedWithCommit lists the pull requests that contain sha.
// List payloads may omit the body; use GetPullRequest for full detail.
func (c *Client) ListPullRequestsAssociatedWithCommit(ctx context.Context, sha string) ([]PullRequest, error) {
	var prs []PullRequest
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/pulls", c.owner, c.repo, url.PathEscape(sha))
	if err := c.get(ctx, path, nil, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

// GetPullRequest fetches one pull request with its description.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	var pr PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.owner, c.repo, number)
	if err := c.get(ctx, path, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListOptions controls a pull request listing page.
type ListOptions struct {
	State     string // open, closed, all
	Sort      string // created, updated, popularity, long-running
	Direction string // asc, desc
	PerPage   int
	Page      int
}

// ListPullRequests returns one page of the repository's pull requests.
func (c *Client) ListPullRequests(ctx context.Context, opts ListOptions) ([]PullRequest, error) {
	q := url.Values{}
	if opts.State != "" {
		q.Set("state", opts.State)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Direction != "" {
		q.Set("direction", opts.Direction)
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}

	var prs []PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", c.owner, c.repo)
	if err := c.get(ctx, path, q, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GitHub token: %w", err)
	}
	setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
