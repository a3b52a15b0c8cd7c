// Package instantly provides a client for the Instantly.ai v2 REST API.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// DefaultBaseURL is the Instantly v2 API root.
const DefaultBaseURL = "https://api.instantly.ai/api/v2"

// Client defines the Instantly operations used by the outreach uploader.
type Client interface {
	// CurrentWorkspace returns the workspace the API key belongs to.
	CurrentWorkspace(ctx context.Context) (*Workspace, error)
	// CreateLead creates a single lead.
	CreateLead(ctx context.Context, lead Lead) (*CreatedLead, error)
	// ListLeads returns up to limit leads of the workspace.
	ListLeads(ctx context.Context, workspaceID string, limit int) ([]Lead, error)
}

// Workspace is the subset of workspace fields we read.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lead is the v2 lead payload. Optional fields are omitted when empty.
type Lead struct {
	Email           string            `json:"email"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	LinkedInURL     string            `json:"linkedin_url,omitempty"`
	JobTitle        string            `json:"job_title,omitempty"`
	Location        string            `json:"location,omitempty"`
	CompanyName     string            `json:"company_name,omitempty"`
	CustomVariables map[string]string `json:"custom_variables,omitempty"`
}

// CreatedLead is the response to CreateLead.
type CreatedLead struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type listLeadsResponse struct {
	Leads []Lead `json:"leads"`
	Items []Lead `json:"items"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instantly: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy for throttled and 5xx responses.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates an Instantly client authenticated with a bearer key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CurrentWorkspace(ctx context.Context) (*Workspace, error) {
	var ws Workspace
	if err := c.do(ctx, http.MethodGet, "/workspaces/current", nil, nil, &ws); err != nil {
		return nil, eris.Wrap(err, "instantly: current workspace")
	}
	return &ws, nil
}

func (c *httpClient) CreateLead(ctx context.Context, lead Lead) (*CreatedLead, error) {
	var out CreatedLead
	if err := c.do(ctx, http.MethodPost, "/leads", nil, lead, &out); err != nil {
		return nil, eris.Wrapf(err, "instantly: create lead %s", lead.Email)
	}
	return &out, nil
}

func (c *httpClient) ListLeads(ctx context.Context, workspaceID string, limit int) ([]Lead, error) {
	q := url.Values{}
	if workspaceID != "" {
		q.Set("workspace_id", workspaceID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp listLeadsResponse
	if err := c.do(ctx, http.MethodGet, "/leads", q, nil, &resp); err != nil {
		return nil, eris.Wrap(err, "instantly: list leads")
	}
	if len(resp.Leads) > 0 {
		return resp.Leads, nil
	}
	return resp.Items, nil
}

// do sends one request, retrying transient statuses, and decodes a 2xx
// body into out.
func (c *httpClient) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return eris.Wrap(err, "marshal request")
		}
	}

	data, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limit")
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "execute request")
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "read response body")
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := string(data)
			if len(msg) > 300 {
				msg = msg[:300]
			}
			return nil, resilience.MarkStatus(&APIError{StatusCode: resp.StatusCode, Body: msg}, resp.StatusCode)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return eris.Wrap(json.Unmarshal(data, out), "decode response")
}
