// Package linkedin scrapes LinkedIn people-search results into candidate
// people.
package linkedin

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Config controls login and pacing.
type Config struct {
	BaseURL  string
	Email    string
	Password string

	Policy       LoginPolicy
	LoginWait    time.Duration
	ExtendedWait time.Duration
	PollInterval time.Duration

	PageRetry   resilience.RetryConfig
	PageDelay   browser.Jitter
	RenderDelay browser.Jitter
	ScrollDelay browser.Jitter
}

// DefaultConfig returns the production pacing.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://www.linkedin.com",
		Policy:       Unattended,
		LoginWait:    30 * time.Second,
		ExtendedWait: 15 * time.Second,
		PollInterval: time.Second,
		PageRetry:    resilience.FixedRetryConfig(3, 5*time.Second),
		PageDelay:    browser.Between(5000, 10000),
		RenderDelay:  browser.Between(4000, 6000),
		ScrollDelay:  browser.Between(3000, 5000),
	}
}

// Query describes a search: every keyword is combined with every location
// and industry.
type Query struct {
	Keywords   []string
	Locations  []string
	Industries []string
	MaxPages   int
}

// Scraper drives one browser session through people search.
type Scraper struct {
	session  browser.Session
	facets   *Facets
	cfg      Config
	prompter Prompter
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithPrompter sets the operator prompt used by the Interactive policy.
func WithPrompter(p Prompter) Option {
	return func(s *Scraper) {
		s.prompter = p
	}
}

// New creates a Scraper over an existing session.
func New(session browser.Session, facets *Facets, cfg Config, opts ...Option) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	s := &Scraper{
		session:  session,
		facets:   facets,
		cfg:      cfg,
		prompter: LinePrompter{In: os.Stdin, Out: os.Stdout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Combinations resolves the query's facet names. Unknown locations or
// industries are skipped with a warning; an empty list means unfiltered.
func (s *Scraper) Combinations(q Query) []Combination {
	locations := orUnfiltered(q.Locations)
	industries := orUnfiltered(q.Industries)

	var out []Combination
	for _, kw := range q.Keywords {
		for _, loc := range locations {
			var locID string
			if loc != "" {
				id, ok := s.facets.Location(loc)
				if !ok {
					zap.L().Warn("linkedin: unknown location, skipping", zap.String("location", loc))
					continue
				}
				locID = id
			}
			for _, ind := range industries {
				var indID string
				if ind != "" {
					id, ok := s.facets.Industry(ind)
					if !ok {
						zap.L().Warn("linkedin: unknown industry, skipping", zap.String("industry", ind))
						continue
					}
					indID = id
				}
				out = append(out, Combination{
					Keyword:    kw,
					Location:   loc,
					LocationID: locID,
					Industry:   ind,
					IndustryID: indID,
				})
			}
		}
	}
	return out
}

func orUnfiltered(names []string) []string {
	if len(names) == 0 {
		return []string{""}
	}
	return names
}

// Search runs every combination and returns all extracted people. Page
// failures are logged and end that combination; only cancellation stops
// the search, returning what was gathered so far.
func (s *Scraper) Search(ctx context.Context, q Query) ([]model.CandidatePerson, error) {
	maxPages := max(q.MaxPages, 1)

	var all []model.CandidatePerson
	for _, c := range s.Combinations(q) {
		people, err := s.searchCombination(ctx, c, maxPages)
		all = append(all, people...)
		if err != nil {
			return all, err
		}
	}

	zap.L().Info("linkedin: search complete", zap.Int("profiles", len(all)))
	return all, nil
}

func (s *Scraper) searchCombination(ctx context.Context, c Combination, maxPages int) ([]model.CandidatePerson, error) {
	log := zap.L().With(zap.String("combination", c.String()))

	var out []model.CandidatePerson
	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := s.cfg.PageDelay.Wait(ctx); err != nil {
				return out, err
			}
		}

		people, err := s.scrapePage(ctx, c, page)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn("linkedin: abandoning page", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(people) == 0 {
			log.Info("linkedin: no more results", zap.Int("page", page))
			break
		}
		log.Info("linkedin: page extracted", zap.Int("page", page), zap.Int("profiles", len(people)))
		out = append(out, people...)
	}
	return out, nil
}

// scrapePage loads one results page, retrying the navigation, and extracts
// its cards.
func (s *Scraper) scrapePage(ctx context.Context, c Combination, page int) ([]model.CandidatePerson, error) {
	pageURL := BuildSearchURL(s.cfg.BaseURL, c, page)

	retry := s.cfg.PageRetry
	retry.OnRetry = resilience.RetryLogger("linkedin", "load_page", zap.Int("page", page))
	err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		return s.session.Navigate(ctx, pageURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "linkedin: load page %d", page)
	}

	if err := s.cfg.RenderDelay.Wait(ctx); err != nil {
		return nil, err
	}
	if err := s.session.ScrollToBottom(ctx); err != nil {
		zap.L().Debug("linkedin: scroll failed", zap.Error(err))
	}
	if err := s.cfg.ScrollDelay.Wait(ctx); err != nil {
		return nil, err
	}

	html, err := s.session.HTML(ctx, "body")
	if err != nil {
		return nil, eris.Wrapf(err, "linkedin: read page %d", page)
	}
	return ParseResults(html, s.cfg.BaseURL, c)
}
