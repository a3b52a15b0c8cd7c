package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/linkedin"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeSearcher struct {
	people []model.CandidatePerson
	err    error
	query  linkedin.Query
}

func (f *fakeSearcher) Search(_ context.Context, q linkedin.Query) ([]model.CandidatePerson, error) {
	f.query = q
	return f.people, f.err
}

// fakeEnricher finds <slug>@example.com for every profile except those
// whose slug starts with "miss".
type fakeEnricher struct {
	starts int
	closes int
}

func (f *fakeEnricher) Start(context.Context) error {
	f.starts++
	return nil
}

func (f *fakeEnricher) Close() error {
	f.closes++
	return nil
}

func (f *fakeEnricher) ResolveEmail(_ context.Context, profileURL string) (model.EmailResolution, error) {
	slug := profileURL[strings.LastIndex(profileURL, "/")+1:]
	if strings.HasPrefix(slug, "miss") {
		return model.Unresolved(model.OutcomeNotFound), nil
	}
	return model.Resolved(slug+"@example.com", model.ConfidenceHigh), nil
}

func (f *fakeEnricher) ResolveDetails(context.Context, model.DetailRef) model.DetailBundle {
	return model.DetailBundle{}
}

func person(slug string) model.CandidatePerson {
	return model.CandidatePerson{
		FullName:      strings.ToUpper(slug[:1]) + slug[1:] + " Doe",
		ProfileURL:    "https://www.linkedin.com/in/" + slug,
		Headline:      "Owner at Acme",
		SearchKeyword: "owner",
		Source:        "LinkedIn",
	}
}

func newTestTasks(t *testing.T, s *fakeSearcher, e *fakeEnricher) (*leadTasks, store.Gateway) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leads.db"), 0)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	c := &config.Config{Enrich: config.EnrichConfig{BatchSize: 2, UserID: "user-1", FetchDetails: true}}
	tasks := newTasks(c, st)
	tasks.openSearch = func(context.Context) (searcher, func(), error) {
		return s, func() {}, nil
	}
	tasks.newEnricher = func() (enrich.Enricher, error) { return e, nil }
	return tasks, st
}

func TestParseQuery(t *testing.T) {
	q, err := parseQuery([]string{"cafe owner, barista", "Sydney", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe owner", "barista"}, q.Keywords)
	assert.Equal(t, []string{"Sydney"}, q.Locations)
	assert.Empty(t, q.Industries)
	assert.Equal(t, 1, q.MaxPages)

	q, err = parseQuery([]string{"cafe owner", "", "", "3"})
	require.NoError(t, err)
	assert.Equal(t, 3, q.MaxPages)

	_, err = parseQuery([]string{"cafe owner", "", "", "0"})
	assert.Error(t, err)
	_, err = parseQuery([]string{" , ", "", ""})
	assert.Error(t, err)
}

func TestLinkedInConfig(t *testing.T) {
	c := &config.Config{LinkedIn: config.LinkedInConfig{
		Email:        "me@example.com",
		Interactive:  true,
		PageAttempts: 5,
		PageDelay:    config.DelayRange{MinMs: 100, MaxMs: 200},
	}}
	lc := linkedinConfig(c)
	assert.Equal(t, "me@example.com", lc.Email)
	assert.Equal(t, linkedin.Interactive, lc.Policy)
	assert.Equal(t, 5, lc.PageRetry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, lc.PageDelay.Min)
	assert.Equal(t, linkedin.DefaultConfig().RenderDelay, lc.RenderDelay)
}

func TestFinalScoutAndOutreachConfig(t *testing.T) {
	c := &config.Config{
		FinalScout: config.FinalScoutConfig{LookupDelayMs: 1500, ModalWaitSecs: 3},
		Instantly:  config.InstantlyConfig{WorkspaceID: "ws-1", BatchSize: 25, LeadDelayMs: 10},
	}
	fc := finalscoutConfig(c)
	assert.Equal(t, 1500*time.Millisecond, fc.LookupSpacing)
	assert.Equal(t, 3*time.Second, fc.ModalWait)
	assert.Equal(t, "https://finalscout.com", fc.BaseURL)

	oc := outreachConfig(c)
	assert.Equal(t, "ws-1", oc.WorkspaceID)
	assert.Equal(t, 25, oc.BatchSize)
	assert.Equal(t, 10*time.Millisecond, oc.LeadDelay)
	assert.Zero(t, oc.BatchDelay)
}

func TestLeadTasks_SearchThenEnrichAll(t *testing.T) {
	s := &fakeSearcher{people: []model.CandidatePerson{person("ann"), person("miss-bob"), person("cy")}}
	e := &fakeEnricher{}
	tasks, st := newTestTasks(t, s, e)
	ctx := context.Background()

	saved, err := tasks.SearchProfiles(ctx, "camp-1", jobs.Request{Keyword: "owner", Location: "Sydney,Perth", Pages: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, saved)
	assert.Equal(t, []string{"Sydney", "Perth"}, s.query.Locations)
	assert.Equal(t, 2, s.query.MaxPages)

	pending, err := tasks.CountUnenriched(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	res, err := tasks.enrichAll(ctx, tasks.enrichOptions("camp-1", "", 0))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 3, res.Flagged)
	assert.Equal(t, 2, res.Enriched)
	assert.Equal(t, 1, res.NotFound)
	assert.Equal(t, 1, e.starts, "batches share one signed-in engine")
	assert.Equal(t, 1, e.closes)

	contacts, err := st.ListContacts(ctx, store.ContactFilter{OwnerID: "user-1", CampaignID: "camp-1"})
	require.NoError(t, err)
	assert.Len(t, contacts, 2)

	pending, err = tasks.CountUnenriched(ctx, "camp-1")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestLeadTasks_SearchKeepsPartialResults(t *testing.T) {
	s := &fakeSearcher{people: []model.CandidatePerson{person("ann")}, err: context.Canceled}
	tasks, st := newTestTasks(t, s, &fakeEnricher{})

	saved, err := tasks.search(context.Background(), linkedin.Query{Keywords: []string{"owner"}}, "user-1", "camp-1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, saved)

	n, err := st.CountUnenriched(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLeadTasks_SearchRequiresKeyword(t *testing.T) {
	tasks, _ := newTestTasks(t, &fakeSearcher{}, &fakeEnricher{})
	_, err := tasks.SearchProfiles(context.Background(), "camp-1", jobs.Request{})
	assert.Error(t, err)
}

func TestLeadTasks_EnrichAllBuildsEngineOnce(t *testing.T) {
	s := &fakeSearcher{people: []model.CandidatePerson{person("ann"), person("bo"), person("cy"), person("di"), person("ed")}}
	e := &fakeEnricher{}
	tasks, _ := newTestTasks(t, s, e)
	builds := 0
	tasks.newEnricher = func() (enrich.Enricher, error) {
		builds++
		return e, nil
	}
	ctx := context.Background()

	_, err := tasks.SearchProfiles(ctx, "camp-1", jobs.Request{Keyword: "owner"})
	require.NoError(t, err)

	res, err := tasks.enrichAll(ctx, tasks.enrichOptions("camp-1", "", 0))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Enriched)
	assert.Equal(t, 5, res.Flagged)
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, e.starts)
	assert.Equal(t, 1, e.closes)
}

func TestLeadTasks_EnrichAllCountsDropped(t *testing.T) {
	s := &fakeSearcher{people: []model.CandidatePerson{person("ann")}}
	e := &fakeEnricher{}
	tasks, _ := newTestTasks(t, s, e)
	ctx := context.Background()

	_, err := tasks.search(ctx, linkedin.Query{Keywords: []string{"owner"}}, "", "camp-1")
	require.NoError(t, err)

	res, err := tasks.enrichAll(ctx, enrich.Options{BatchSize: 2, CampaignID: "camp-1"})
	require.NoError(t, err)
	assert.Zero(t, res.Enriched)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, res.Flagged)
}

func TestLeadTasks_EnricherUnavailable(t *testing.T) {
	tasks, _ := newTestTasks(t, &fakeSearcher{}, &fakeEnricher{})
	tasks.newEnricher = func() (enrich.Enricher, error) { return nil, errors.New("SCOUT_EMAIL and SCOUT_PASSWORD are required") }

	_, err := tasks.Enrich(context.Background(), "camp-1", jobs.Request{})
	assert.ErrorContains(t, err, "SCOUT_EMAIL")
}
