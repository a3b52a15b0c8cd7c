package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/postgrest"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Prefer string
	Body   []byte
}

type restRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *restRecorder) record(req *http.Request) recordedRequest {
	body, _ := io.ReadAll(req.Body)
	rec := recordedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Prefer: req.Header.Get("Prefer"),
		Body:   body,
	}
	r.mu.Lock()
	r.requests = append(r.requests, rec)
	r.mu.Unlock()
	return rec
}

func (r *restRecorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newTestRESTStore(t *testing.T, chunkSize int, handler func(w http.ResponseWriter, req recordedRequest)) (*PostgRESTStore, *restRecorder) {
	t.Helper()
	rec := &restRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, rec.record(r))
	}))
	t.Cleanup(srv.Close)

	s := NewPostgREST(postgrest.NewClient(srv.URL, "service-key"), chunkSize)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, rec
}

func TestPostgREST_UpsertProfiles_SkipsExisting(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Method {
		case http.MethodGet:
			w.Write([]byte(`[{"linkedin_url":"https://www.linkedin.com/in/a"}]`)) //nolint:errcheck
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		}
	})

	n, err := s.UpsertProfiles(context.Background(), []model.Profile{testProfile("a"), testProfile("b")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reqs := rec.all()
	require.Len(t, reqs, 2)

	assert.Equal(t, "/rest/v1/profiles", reqs[0].Path)
	assert.Equal(t, "linkedin_url", reqs[0].Query["select"][0])
	assert.Equal(t,
		`(linkedin_url.eq."https://www.linkedin.com/in/a",linkedin_url.eq."https://www.linkedin.com/in/b")`,
		reqs[0].Query["or"][0])

	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Equal(t, "linkedin_url", reqs[1].Query["on_conflict"][0])
	assert.Equal(t, "resolution=merge-duplicates", reqs[1].Prefer)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(reqs[1].Body, &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "https://www.linkedin.com/in/b", sent[0]["linkedin_url"])
	assert.Equal(t, "user-1", sent[0]["user_id"])
	assert.NotContains(t, sent[0], "is_enriched")
	assert.NotContains(t, sent[0], "created_at")
}

func TestPostgREST_UpsertProfiles_UniformKeys(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`)) //nolint:errcheck
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		}
	})

	full := testProfile("full")
	full.AvatarURL = "https://media.licdn.com/full.jpg"
	full.ConnectionDegree = "2nd"
	full.DetailURL = "https://app.finalscout.com/contacts/1"
	bare := testProfile("bare")
	bare.OwnerID = ""
	bare.CampaignID = ""
	bare.Source = ""

	n, err := s.UpsertProfiles(context.Background(), []model.Profile{full, bare})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reqs := rec.all()
	require.Len(t, reqs, 2)
	require.Equal(t, http.MethodPost, reqs[1].Method)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(reqs[1].Body, &sent))
	require.Len(t, sent, 2)

	keys := func(m map[string]any) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		return out
	}
	assert.ElementsMatch(t, keys(sent[0]), keys(sent[1]))
	assert.ElementsMatch(t, []string{
		"full_name", "linkedin_url", "headline", "location", "image_url",
		"connection_degree", "search_keyword", "search_location", "search_industry",
		"source", "user_id", "campaign_id", "finalscout_contact_url",
	}, keys(sent[1]))

	assert.Equal(t, "", sent[1]["image_url"])
	assert.Equal(t, "", sent[1]["user_id"])
	assert.Equal(t, model.SourceLinkedIn, sent[1]["source"])
	assert.Equal(t, "2nd", sent[0]["connection_degree"])
}

func TestPostgREST_UpsertProfiles_ChunkFailureStops(t *testing.T) {
	var posts atomic.Int32
	s, _ := newTestRESTStore(t, 1, func(w http.ResponseWriter, req recordedRequest) {
		switch req.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`)) //nolint:errcheck
		case http.MethodPost:
			if posts.Add(1) == 2 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message":"bad row"}`)) //nolint:errcheck
				return
			}
			w.WriteHeader(http.StatusCreated)
		}
	})

	n, err := s.UpsertProfiles(context.Background(), []model.Profile{testProfile("a"), testProfile("b"), testProfile("c")})
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(2), posts.Load())

	var apiErr *postgrest.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestPostgREST_FetchUnenriched(t *testing.T) {
	const body = `[{
			"linkedin_url":"https://www.linkedin.com/in/a","full_name":"A","headline":"CEO",
			"location":"Perth","search_keyword":"ceo","search_location":"Perth","search_industry":"",
			"source":"LinkedIn","user_id":"user-1","campaign_id":"camp-1",
			"finalscout_contact_url":"https://finalscout.com/app/contacts/?contact=1",
			"is_enriched":false,"enriched_at":null,"created_at":"2025-05-01T09:00:00Z"
		}]`
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, _ recordedRequest) {
		w.Write([]byte(body)) //nolint:errcheck
	})

	got, err := s.FetchUnenriched(context.Background(), UnenrichedFilter{Limit: 10, CampaignID: "camp-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.linkedin.com/in/a", got[0].ProfileURL)
	assert.Equal(t, "camp-1", got[0].CampaignID)
	assert.Equal(t, "https://finalscout.com/app/contacts/?contact=1", got[0].DetailURL)
	assert.False(t, got[0].Enrichment.Enriched)
	assert.Nil(t, got[0].Enrichment.EnrichedAt)
	assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), got[0].CreatedAt)

	q := rec.all()[0].Query
	assert.Equal(t, "eq.false", q["is_enriched"][0])
	assert.Equal(t, "eq.camp-1", q["campaign_id"][0])
	assert.Equal(t, "created_at.desc", q["order"][0])
	assert.Equal(t, "10", q["limit"][0])
}

func TestPostgREST_MarkEnriched_SinglePatch(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, _ recordedRequest) {
		w.WriteHeader(http.StatusNoContent)
	})

	n, err := s.MarkEnriched(context.Background(), []string{
		"https://www.linkedin.com/in/a", "https://www.linkedin.com/in/a?trk=1", "https://www.linkedin.com/in/b",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPatch, reqs[0].Method)
	assert.Equal(t,
		`(linkedin_url.eq."https://www.linkedin.com/in/a",linkedin_url.eq."https://www.linkedin.com/in/b")`,
		reqs[0].Query["or"][0])

	var patch map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &patch))
	assert.Equal(t, true, patch["is_enriched"])
	assert.Equal(t, "2025-06-01T12:00:00Z", patch["enriched_at"])
}

func TestPostgREST_MarkEnriched_NothingToSend(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, _ recordedRequest) {
		w.WriteHeader(http.StatusNoContent)
	})

	n, err := s.MarkEnriched(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.all())
}

func TestPostgREST_UpsertContacts_NullTimestamps(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, _ recordedRequest) {
		w.WriteHeader(http.StatusCreated)
	})

	dated := testContact("b@x.com")
	dated.ContactCreatedAt = "2024-01-02"
	n, err := s.UpsertContacts(context.Background(), []model.EnrichedContact{
		testContact("a@x.com"), testContact("Not found"), dated,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/rest/v1/contacts", reqs[0].Path)
	assert.Equal(t, "user_id,campaign_id,email", reqs[0].Query["on_conflict"][0])

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	require.Len(t, sent, 2)
	assert.Nil(t, sent[0]["contact_created_at_ts"])
	assert.Contains(t, sent[0], "contact_created_at_ts")
	assert.Equal(t, "2024-01-02", sent[1]["contact_created_at_ts"])
	assert.Equal(t, "Valid", sent[0]["email_status"])
}

func TestPostgREST_CountUnenriched(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, _ recordedRequest) {
		w.Header().Set("Content-Range", "0-0/12")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(`[]`)) //nolint:errcheck
	})

	n, err := s.CountUnenriched(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	req := rec.all()[0]
	assert.Equal(t, "count=exact", req.Prefer)
	assert.NotContains(t, req.Query, "campaign_id")
}

func TestPostgREST_ListContacts(t *testing.T) {
	s, rec := newTestRESTStore(t, 500, func(w http.ResponseWriter, _ recordedRequest) {
		w.Write([]byte(`[{"user_id":"user-1","campaign_id":"camp-1","email":"a@x.com","contact_created_at_ts":null}]`)) //nolint:errcheck
	})

	got, err := s.ListContacts(context.Background(), ContactFilter{OwnerID: "user-1", CampaignID: "camp-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a@x.com", got[0].Email)
	assert.Empty(t, got[0].ContactCreatedAt)

	q := rec.all()[0].Query
	assert.Equal(t, "eq.user-1", q["user_id"][0])
	assert.Equal(t, "created_at.asc", q["order"][0])
}

func TestPostgREST_MigrateUnsupported(t *testing.T) {
	s := NewPostgREST(postgrest.NewClient("http://unused", "key"), 0)
	assert.Error(t, s.Migrate(context.Background()))
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
}
