// Package postgrest is a minimal client for the PostgREST API that Supabase
// exposes under /rest/v1.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the PostgREST operations used by the record store.
type Client interface {
	// Select runs GET /{table} and decodes the JSON array into out.
	Select(ctx context.Context, table string, q Query, out any) error
	// Upsert POSTs rows with on_conflict and merge-duplicates resolution.
	Upsert(ctx context.Context, table string, onConflict []string, rows any) error
	// Update PATCHes every row matching q.
	Update(ctx context.Context, table string, q Query, patch any) error
	// Count returns the exact number of rows matching q.
	Count(ctx context.Context, table string, q Query) (int, error)
}

// APIError is returned when PostgREST responds with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postgrest: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	serviceKey string
	restURL    string
	http       *http.Client
}

// NewClient creates a client for the project at projectURL
// (e.g. https://xyz.supabase.co) authenticated with a service-role key.
func NewClient(projectURL, serviceKey string, opts ...Option) Client {
	c := &httpClient{
		serviceKey: serviceKey,
		restURL:    strings.TrimRight(projectURL, "/") + "/rest/v1",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Select(ctx context.Context, table string, q Query, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, table, q, nil)
	if err != nil {
		return err
	}
	data, _, err := c.do(req, http.StatusOK)
	if err != nil {
		return eris.Wrapf(err, "postgrest: select %s", table)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "postgrest: decode %s rows", table)
	}
	return nil
}

func (c *httpClient) Upsert(ctx context.Context, table string, onConflict []string, rows any) error {
	q := NewQuery()
	if len(onConflict) > 0 {
		q.Set("on_conflict", strings.Join(onConflict, ","))
	}
	req, err := c.newRequest(ctx, http.MethodPost, table, q, rows)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	if _, _, err := c.do(req, http.StatusOK, http.StatusCreated); err != nil {
		return eris.Wrapf(err, "postgrest: upsert %s", table)
	}
	return nil
}

func (c *httpClient) Update(ctx context.Context, table string, q Query, patch any) error {
	req, err := c.newRequest(ctx, http.MethodPatch, table, q, patch)
	if err != nil {
		return err
	}
	if _, _, err := c.do(req, http.StatusOK, http.StatusNoContent); err != nil {
		return eris.Wrapf(err, "postgrest: update %s", table)
	}
	return nil
}

func (c *httpClient) Count(ctx context.Context, table string, q Query) (int, error) {
	q = q.clone()
	if !q.Has("select") {
		q.Set("select", "*")
	}
	q.Set("limit", "1")
	req, err := c.newRequest(ctx, http.MethodGet, table, q, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")
	_, hdr, err := c.do(req, http.StatusOK, http.StatusPartialContent)
	if err != nil {
		return 0, eris.Wrapf(err, "postgrest: count %s", table)
	}
	return parseContentRange(hdr.Get("Content-Range"))
}

// parseContentRange reads the total from "0-24/3573" or "*/0".
func parseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, eris.Errorf("postgrest: malformed Content-Range %q", v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, eris.Wrapf(err, "postgrest: malformed Content-Range %q", v)
	}
	return n, nil
}

func (c *httpClient) newRequest(ctx context.Context, method, table string, q Query, body any) (*http.Request, error) {
	u := c.restURL + "/" + table
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "postgrest: marshal request")
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, eris.Wrap(err, "postgrest: create request")
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *httpClient) do(req *http.Request, accept ...int) ([]byte, http.Header, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, eris.Wrap(err, "read response body")
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			return data, resp.Header, nil
		}
	}
	body := string(data)
	if len(body) > 300 {
		body = body[:300]
	}
	return nil, nil, &APIError{StatusCode: resp.StatusCode, Body: body}
}
