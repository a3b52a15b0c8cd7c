package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/linkedin"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// searcher is the part of *linkedin.Scraper the tasks use.
type searcher interface {
	Search(ctx context.Context, q linkedin.Query) ([]model.CandidatePerson, error)
}

// leadTasks performs search and enrichment for both the CLI and the job
// server.
type leadTasks struct {
	cfg   *config.Config
	store store.Gateway

	openSearch  func(ctx context.Context) (searcher, func(), error)
	newEnricher func() (enrich.Enricher, error)
}

var _ jobs.Tasks = (*leadTasks)(nil)

func newTasks(c *config.Config, st store.Gateway) *leadTasks {
	return &leadTasks{
		cfg:   c,
		store: st,
		openSearch: func(ctx context.Context) (searcher, func(), error) {
			return openScraper(ctx, c)
		},
		newEnricher: func() (enrich.Enricher, error) {
			return newEngine(c)
		},
	}
}

// splitList splits a comma-separated argument into trimmed, non-empty names.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// search scrapes q and persists the results. Profiles gathered before a
// failure or interruption are still saved.
func (t *leadTasks) search(ctx context.Context, q linkedin.Query, ownerID, campaignID string) (int, error) {
	scraper, release, err := t.openSearch(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	people, searchErr := scraper.Search(ctx, q)
	if len(people) == 0 {
		return 0, searchErr
	}

	saveCtx := ctx
	if searchErr != nil {
		saveCtx = context.WithoutCancel(ctx)
	}
	saved, err := t.store.UpsertProfiles(saveCtx, model.Stamp(people, ownerID, campaignID))
	if err != nil {
		return saved, eris.Wrap(err, "save profiles")
	}
	zap.L().Info("profiles saved",
		zap.Int("found", len(people)),
		zap.Int("saved", saved),
		zap.String("campaign_id", campaignID),
	)
	return saved, searchErr
}

// enrichOnce runs one orchestrator batch.
func (t *leadTasks) enrichOnce(ctx context.Context, opts enrich.Options) (*enrich.RunResult, error) {
	enricher, err := t.newEnricher()
	if err != nil {
		return nil, err
	}
	return enrich.New(t.store, enricher, opts).Run(ctx)
}

// keptEnricher lets consecutive orchestrator runs share one signed-in
// engine. Start only reaches the engine until it succeeds and Close is
// deferred to release.
type keptEnricher struct {
	enrich.Enricher
	started bool
}

func (k *keptEnricher) Start(ctx context.Context) error {
	if k.started {
		return nil
	}
	if err := k.Enricher.Start(ctx); err != nil {
		return err
	}
	k.started = true
	return nil
}

func (k *keptEnricher) Close() error {
	return nil
}

func (k *keptEnricher) release() {
	if err := k.Enricher.Close(); err != nil {
		zap.L().Warn("close enrichment browser", zap.Error(err))
	}
}

// enrichAll repeats batches on one engine until the backlog is drained or
// a batch makes no progress.
func (t *leadTasks) enrichAll(ctx context.Context, opts enrich.Options) (*enrich.RunResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = enrich.DefaultBatchSize
	}
	engine, err := t.newEnricher()
	if err != nil {
		return nil, err
	}
	kept := &keptEnricher{Enricher: engine}
	defer kept.release()

	total := &enrich.RunResult{}
	for {
		res, err := enrich.New(t.store, kept, opts).Run(ctx)
		if res != nil {
			total.Fetched += res.Fetched
			total.Attempted += res.Attempted
			total.Enriched += res.Enriched
			total.NotFound += res.NotFound
			total.Failed += res.Failed
			total.Dropped += res.Dropped
			total.Flagged += res.Flagged
		}
		if err != nil {
			return total, err
		}
		if res.Fetched < opts.BatchSize || res.Flagged == 0 {
			return total, nil
		}
	}
}

func (t *leadTasks) enrichOptions(campaignID, ownerID string, batch int) enrich.Options {
	if batch <= 0 {
		batch = t.cfg.Enrich.BatchSize
	}
	return enrich.Options{
		BatchSize:    batch,
		OwnerID:      ownerID,
		CampaignID:   campaignID,
		FetchDetails: t.cfg.Enrich.FetchDetails,
	}
}

// SearchProfiles implements jobs.Tasks.
func (t *leadTasks) SearchProfiles(ctx context.Context, campaignID string, req jobs.Request) (int, error) {
	q := linkedin.Query{
		Keywords:   splitList(req.Keyword),
		Locations:  splitList(req.Location),
		Industries: splitList(req.Industry),
		MaxPages:   req.Pages,
	}
	if len(q.Keywords) == 0 {
		return 0, eris.New("keyword is required")
	}
	return t.search(ctx, q, orDefault(req.OwnerID, t.cfg.Enrich.UserID), campaignID)
}

// Enrich implements jobs.Tasks.
func (t *leadTasks) Enrich(ctx context.Context, campaignID string, req jobs.Request) (*enrich.RunResult, error) {
	return t.enrichOnce(ctx, t.enrichOptions(campaignID, req.OwnerID, req.Batch))
}

// CountUnenriched implements jobs.Tasks.
func (t *leadTasks) CountUnenriched(ctx context.Context, campaignID string) (int, error) {
	return t.store.CountUnenriched(ctx, campaignID)
}
