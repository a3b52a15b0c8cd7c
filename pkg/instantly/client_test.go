package instantly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

var fastRetry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

func TestCurrentWorkspace(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/workspaces/current", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"ws-1","name":"Growth"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	ws, err := NewClient("test-key", WithBaseURL(srv.URL)).CurrentWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ws-1", ws.ID)
	assert.Equal(t, "Growth", ws.Name)
}

func TestCreateLead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/leads", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jane@bean.com", body["email"])
		assert.Equal(t, "Jane", body["first_name"])
		assert.NotContains(t, body, "company_name")
		assert.Equal(t, map[string]any{"search_keyword": "cafe"}, body["custom_variables"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"lead-1","email":"jane@bean.com"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := NewClient("k", WithBaseURL(srv.URL)).CreateLead(context.Background(), Lead{
		Email:           "jane@bean.com",
		FirstName:       "Jane",
		LastName:        "Doe",
		CustomVariables: map[string]string{"search_keyword": "cafe"},
	})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", got.ID)
}

func TestCreateLead_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid email"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL), WithRetry(fastRetry)).
		CreateLead(context.Background(), Lead{Email: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid email")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateLead_RetriesThrottling(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id":"lead-2"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := NewClient("k", WithBaseURL(srv.URL), WithRetry(fastRetry)).
		CreateLead(context.Background(), Lead{Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "lead-2", got.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestListLeads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"leads key", `{"leads":[{"email":"a@b.com"},{"email":"c@d.com"}]}`},
		{"items key", `{"items":[{"email":"a@b.com"},{"email":"c@d.com"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "ws-1", r.URL.Query().Get("workspace_id"))
				assert.Equal(t, "25", r.URL.Query().Get("limit"))
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			leads, err := NewClient("k", WithBaseURL(srv.URL)).ListLeads(context.Background(), "ws-1", 25)
			require.NoError(t, err)
			require.Len(t, leads, 2)
			assert.Equal(t, "c@d.com", leads[1].Email)
		})
	}
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	c := NewClient("k", WithRateLimit(5)).(*httpClient)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 5, c.limiter.Burst())

	c = NewClient("k", WithRateLimit(5), WithRateLimit(0)).(*httpClient)
	assert.Nil(t, c.limiter)
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()
	err := &APIError{StatusCode: 401, Body: "unauthorized"}
	assert.Equal(t, "instantly: HTTP 401: unauthorized", err.Error())
}
