package linkedin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/browser/browsertest"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const testBase = "https://www.linkedin.com"

func testConfig() Config {
	return Config{
		BaseURL:      testBase,
		Email:        "me@example.com",
		Password:     "hunter2",
		Policy:       Unattended,
		LoginWait:    5 * time.Millisecond,
		ExtendedWait: time.Millisecond,
		PollInterval: time.Millisecond,
		PageRetry:    resilience.FixedRetryConfig(3, 0),
	}
}

func newTestScraper(t *testing.T, fake *browsertest.Fake, opts ...Option) *Scraper {
	t.Helper()
	facets, err := LoadFacets("")
	require.NoError(t, err)
	return New(fake, facets, testConfig(), opts...)
}

func pageOf(n int, prefix string) string {
	var cards []string
	for i := range n {
		name := fmt.Sprintf("%s Person%d", prefix, i)
		cards = append(cards, card(name, fmt.Sprintf("%s/in/%s-%d?trk=x", testBase, prefix, i), "Owner", "Sydney"))
	}
	return resultsPage(cards...)
}

func TestSearch_StopsAtFirstEmptyPage(t *testing.T) {
	fake := browsertest.New(map[string]string{
		BuildSearchURL(testBase, testCombo, 1): pageOf(2, "p1"),
		BuildSearchURL(testBase, testCombo, 2): pageOf(2, "p2"),
		BuildSearchURL(testBase, testCombo, 3): resultsPage(),
		BuildSearchURL(testBase, testCombo, 4): pageOf(2, "p4"),
	})
	s := newTestScraper(t, fake)

	people, err := s.Search(context.Background(), Query{
		Keywords:   []string{"cafe owner"},
		Locations:  []string{"Sydney"},
		Industries: []string{"Hospitality"},
		MaxPages:   5,
	})
	require.NoError(t, err)

	assert.Len(t, people, 4)
	assert.Len(t, fake.VisitedWith("/search/results/people/"), 3)
	for _, p := range people {
		assert.NotContains(t, p.ProfileURL, "?")
		assert.Equal(t, "Sydney", p.SearchLocation)
	}
}

func TestSearch_RespectsMaxPages(t *testing.T) {
	fake := browsertest.New(map[string]string{
		BuildSearchURL(testBase, testCombo, 1): pageOf(1, "p1"),
		BuildSearchURL(testBase, testCombo, 2): pageOf(1, "p2"),
	})
	s := newTestScraper(t, fake)

	people, err := s.Search(context.Background(), Query{
		Keywords: []string{"cafe owner"}, Locations: []string{"Sydney"}, Industries: []string{"Hospitality"}, MaxPages: 1,
	})
	require.NoError(t, err)
	assert.Len(t, people, 1)
	assert.Len(t, fake.VisitedWith("/search/results/people/"), 1)
}

func TestSearch_RetriesPageLoad(t *testing.T) {
	page1 := BuildSearchURL(testBase, testCombo, 1)
	fake := browsertest.New(map[string]string{page1: pageOf(2, "p1")})
	fake.NavigateFailures[page1] = 2
	s := newTestScraper(t, fake)

	people, err := s.Search(context.Background(), Query{
		Keywords: []string{"cafe owner"}, Locations: []string{"Sydney"}, Industries: []string{"Hospitality"}, MaxPages: 1,
	})
	require.NoError(t, err)
	assert.Len(t, people, 2)
	assert.Len(t, fake.VisitedWith(page1), 3)
}

func TestSearch_AbandonsPageAndContinues(t *testing.T) {
	other := testCombo
	other.Keyword = "barista"
	page1 := BuildSearchURL(testBase, testCombo, 1)

	fake := browsertest.New(map[string]string{
		page1:                              pageOf(2, "p1"),
		BuildSearchURL(testBase, other, 1): pageOf(1, "b1"),
	})
	fake.NavigateFailures[page1] = 3
	s := newTestScraper(t, fake)

	people, err := s.Search(context.Background(), Query{
		Keywords: []string{"cafe owner", "barista"}, Locations: []string{"Sydney"}, Industries: []string{"Hospitality"}, MaxPages: 3,
	})
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "barista", people[0].SearchKeyword)
	assert.Len(t, fake.VisitedWith(page1), 3)
}

func TestSearch_Cancelled(t *testing.T) {
	fake := browsertest.New(nil)
	s := newTestScraper(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, Query{Keywords: []string{"x"}, Locations: []string{"Sydney"}, MaxPages: 2})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCombinations_SkipsUnknownFacets(t *testing.T) {
	s := newTestScraper(t, browsertest.New(nil))

	combos := s.Combinations(Query{
		Keywords:   []string{"a", "b"},
		Locations:  []string{"Atlantis", "Sydney", "London"},
		Industries: []string{"Retail", "Underwater Basketry"},
	})

	require.Len(t, combos, 4)
	for _, c := range combos {
		assert.NotEqual(t, "Atlantis", c.Location)
		assert.Equal(t, "27", c.IndustryID)
	}
	assert.Equal(t, "90009496", combos[1].LocationID)
}

func TestCombinations_Unfiltered(t *testing.T) {
	s := newTestScraper(t, browsertest.New(nil))
	combos := s.Combinations(Query{Keywords: []string{"florist"}})
	require.Len(t, combos, 1)
	assert.Empty(t, combos[0].LocationID)
	assert.Empty(t, combos[0].IndustryID)
}

const loginPage = `<html><body><form>
<input id="username" name="session_key"><input id="password" type="password">
<button type="submit">Sign in</button></form></body></html>`

func TestLogin_DetectsSignature(t *testing.T) {
	fake := browsertest.New(map[string]string{testBase + "/login": loginPage})
	fake.OnClick[submitSelector] = func(f *browsertest.Fake, _ int) error {
		f.Show(testBase+"/feed/", "<html><body>feed</body></html>")
		return nil
	}
	s := newTestScraper(t, fake)

	require.NoError(t, s.Login(context.Background()))
	assert.Equal(t, "me@example.com", fake.Filled[usernameSelector])
	assert.Equal(t, "hunter2", fake.Filled[passwordSelector])
	assert.Equal(t, testBase+"/feed/", fake.Current())
}

func TestLogin_MissingFormIsAuthFailure(t *testing.T) {
	s := newTestScraper(t, browsertest.New(nil))

	err := s.Login(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, browser.ErrAuthFailed))
}

func TestLogin_UnattendedProceedsAfterExtendedWait(t *testing.T) {
	fake := browsertest.New(map[string]string{testBase + "/login": loginPage})
	prompter := &recordingPrompter{}
	s := newTestScraper(t, fake, WithPrompter(prompter))

	require.NoError(t, s.Login(context.Background()))
	assert.Zero(t, prompter.calls)
}

func TestLogin_InteractiveWaitsForOperator(t *testing.T) {
	fake := browsertest.New(map[string]string{testBase + "/login": loginPage})
	prompter := &recordingPrompter{}
	s := newTestScraper(t, fake, WithPrompter(prompter))
	s.cfg.Policy = Interactive

	require.NoError(t, s.Login(context.Background()))
	assert.Equal(t, 1, prompter.calls)
}

func TestLoggedIn(t *testing.T) {
	assert.True(t, loggedIn("https://www.linkedin.com/feed/"))
	assert.True(t, loggedIn("https://www.linkedin.com/search/results/all/"))
	assert.True(t, loggedIn("https://www.linkedin.com/in/me/"))
	assert.False(t, loggedIn("https://www.linkedin.com/login"))
	assert.False(t, loggedIn("https://www.linkedin.com/checkpoint/challenge/abc"))
}

type recordingPrompter struct {
	calls int
}

func (p *recordingPrompter) WaitForOperator(context.Context, string) error {
	p.calls++
	return nil
}
