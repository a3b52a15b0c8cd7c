// Package enrich drains unenriched profiles through the e-mail and detail
// engine and persists the merged contacts.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 50

// flagTimeout bounds the final MarkEnriched call.
const flagTimeout = 30 * time.Second

// Enricher resolves e-mails and contact details for profile identities.
// *finalscout.Engine satisfies it.
type Enricher interface {
	Start(ctx context.Context) error
	ResolveEmail(ctx context.Context, profileURL string) (model.EmailResolution, error)
	ResolveDetails(ctx context.Context, ref model.DetailRef) model.DetailBundle
	Close() error
}

// Store is the subset of store.Gateway the orchestrator needs.
type Store interface {
	FetchUnenriched(ctx context.Context, f store.UnenrichedFilter) ([]model.Profile, error)
	MarkEnriched(ctx context.Context, profileURLs []string) (int, error)
	UpsertContacts(ctx context.Context, contacts []model.EnrichedContact) (int, error)
}

// Options control one orchestration run.
type Options struct {
	BatchSize int
	// OwnerID and CampaignID override the stamps stored on each profile.
	OwnerID    string
	CampaignID string
	// FetchDetails enables the contact-detail fallback chain.
	FetchDetails bool
}

// RunResult summarizes one run. Dropped counts resolved contacts the store
// refused to write, such as those missing an owner or campaign stamp.
type RunResult struct {
	Fetched   int `json:"fetched"`
	Attempted int `json:"attempted"`
	Enriched  int `json:"enriched"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
	Flagged   int `json:"flagged"`
}

// Orchestrator sequences fetch, enrich, persist and flag.
type Orchestrator struct {
	store    Store
	enricher Enricher
	opts     Options
}

// New creates an Orchestrator.
func New(st Store, enricher Enricher, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Orchestrator{store: st, enricher: enricher, opts: opts}
}

// Run enriches one batch. Every profile the loop reaches is flagged as
// attempted in a final step, including when the run is cancelled or a store
// write fails.
func (o *Orchestrator) Run(ctx context.Context) (res *RunResult, err error) {
	res = &RunResult{}
	log := zap.L().With(zap.String("stage", "enrich"), zap.String("campaign_id", o.opts.CampaignID))

	profiles, err := o.store.FetchUnenriched(ctx, store.UnenrichedFilter{
		Limit:      o.opts.BatchSize,
		CampaignID: o.opts.CampaignID,
	})
	if err != nil {
		return res, eris.Wrap(err, "enrich: fetch unenriched profiles")
	}
	res.Fetched = len(profiles)
	if len(profiles) == 0 {
		log.Info("enrich: nothing to enrich")
		return res, nil
	}

	if err := o.enricher.Start(ctx); err != nil {
		if cerr := o.enricher.Close(); cerr != nil {
			log.Warn("enrich: close after failed start", zap.Error(cerr))
		}
		return res, eris.Wrap(err, "enrich: start enricher")
	}

	attempted := make([]string, 0, len(profiles))
	defer func() {
		res.Flagged = o.flag(ctx, attempted, log)
		if cerr := o.enricher.Close(); cerr != nil {
			log.Warn("enrich: close enricher", zap.Error(cerr))
		}
		log.Info("enrich: run complete",
			zap.Int("fetched", res.Fetched),
			zap.Int("attempted", res.Attempted),
			zap.Int("enriched", res.Enriched),
			zap.Int("not_found", res.NotFound),
			zap.Int("failed", res.Failed),
			zap.Int("dropped", res.Dropped),
			zap.Int("flagged", res.Flagged),
		)
	}()

	for i, p := range profiles {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "enrich: interrupted")
		}
		attempted = append(attempted, p.ProfileURL)
		res.Attempted++

		plog := log.With(zap.String("profile_url", p.ProfileURL), zap.Int("index", i+1), zap.Int("total", len(profiles)))
		contact, ok := o.enrichOne(ctx, p, plog)
		switch {
		case contact == nil && ok:
			res.NotFound++
			continue
		case contact == nil:
			res.Failed++
			continue
		}

		saved, err := o.store.UpsertContacts(ctx, []model.EnrichedContact{*contact})
		if err != nil {
			return res, eris.Wrapf(err, "enrich: persist contact for %s", p.ProfileURL)
		}
		if saved == 0 {
			res.Dropped++
			plog.Warn("enrich: contact not saved",
				zap.String("email", contact.Email),
				zap.String("user_id", contact.OwnerID),
				zap.String("campaign_id", contact.CampaignID),
			)
			continue
		}
		res.Enriched++
		plog.Info("enrich: contact saved", zap.String("email", contact.Email))
	}
	return res, nil
}

// enrichOne resolves a single profile. It returns the merged contact when an
// e-mail was found; ok is false when the lookup itself failed.
func (o *Orchestrator) enrichOne(ctx context.Context, p model.Profile, log *zap.Logger) (*model.EnrichedContact, bool) {
	email, err := o.enricher.ResolveEmail(ctx, p.ProfileURL)
	if err != nil {
		log.Warn("enrich: email lookup failed", zap.Error(err))
		return nil, false
	}
	if !email.Email.Found() {
		log.Info("enrich: email not found", zap.String("outcome", string(email.Outcome)))
		return nil, true
	}

	var details model.DetailBundle
	if o.opts.FetchDetails {
		details = o.enricher.ResolveDetails(ctx, model.DetailRef{
			ProfileURL: p.ProfileURL,
			NameHint:   p.FullName,
			DetailURL:  p.DetailURL,
		})
		if details.IsEmpty() {
			log.Info("enrich: no contact detail found")
		}
	}

	c := model.MergeContact(p.CandidatePerson, email, details, o.owner(p), o.campaign(p))
	return &c, true
}

func (o *Orchestrator) owner(p model.Profile) string {
	if o.opts.OwnerID != "" {
		return o.opts.OwnerID
	}
	return p.OwnerID
}

func (o *Orchestrator) campaign(p model.Profile) string {
	if o.opts.CampaignID != "" {
		return o.opts.CampaignID
	}
	return p.CampaignID
}

// flag marks every attempted identity in one call. It runs detached from
// ctx so an interrupted run still records its progress.
func (o *Orchestrator) flag(ctx context.Context, urls []string, log *zap.Logger) int {
	if len(urls) == 0 {
		return 0
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flagTimeout)
	defer cancel()

	n, err := o.store.MarkEnriched(fctx, urls)
	if err != nil {
		log.Error("enrich: flag attempted profiles", zap.Int("count", len(urls)), zap.Error(err))
		return 0
	}
	return n
}
