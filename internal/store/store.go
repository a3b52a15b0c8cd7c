package store

import (
	"context"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Table names and conflict targets shared by every driver.
const (
	ProfilesTable = "profiles"
	ContactsTable = "contacts"

	// DefaultChunkSize is the number of rows per write request.
	DefaultChunkSize = 500
	// existingKeyChunk bounds the pre-query for existing profile URLs.
	existingKeyChunk = 200
)

var (
	profileConflict = []string{"linkedin_url"}
	contactConflict = []string{"user_id", "campaign_id", "email"}
)

// UnenrichedFilter selects profiles still waiting for enrichment.
type UnenrichedFilter struct {
	Limit      int    `json:"limit,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// ContactFilter selects persisted contacts.
type ContactFilter struct {
	OwnerID    string `json:"user_id,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Gateway is the persistence boundary for profiles and contacts. Every write
// declares its conflict target so re-running a stage is idempotent.
type Gateway interface {
	// UpsertProfiles writes new profiles keyed by linkedin_url. Profiles
	// already stored are skipped; the count of profiles sent is returned.
	UpsertProfiles(ctx context.Context, profiles []model.Profile) (int, error)
	// FetchUnenriched returns profiles not yet flagged, newest first.
	FetchUnenriched(ctx context.Context, f UnenrichedFilter) ([]model.Profile, error)
	// MarkEnriched flags the given profile URLs in one batched update.
	MarkEnriched(ctx context.Context, profileURLs []string) (int, error)
	// UpsertContacts writes valid contacts keyed by (user_id, campaign_id,
	// email) after dropping invalid ones and collapsing duplicates.
	UpsertContacts(ctx context.Context, contacts []model.EnrichedContact) (int, error)

	CountUnenriched(ctx context.Context, campaignID string) (int, error)
	ListContacts(ctx context.Context, f ContactFilter) ([]model.EnrichedContact, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// profileWriter is the driver-specific half of UpsertProfiles.
type profileWriter interface {
	existingProfileURLs(ctx context.Context, urls []string) (map[string]bool, error)
	writeProfiles(ctx context.Context, profiles []model.Profile) error
}

// upsertProfiles normalizes, dedupes and pre-filters profiles, then writes
// them in chunks. A failed chunk aborts the remaining ones.
func upsertProfiles(ctx context.Context, w profileWriter, profiles []model.Profile, chunkSize int) (int, error) {
	profiles = prepareProfiles(profiles)
	if len(profiles) == 0 {
		return 0, nil
	}

	urls := make([]string, len(profiles))
	for i, p := range profiles {
		urls[i] = p.ProfileURL
	}
	existing := make(map[string]bool)
	for _, batch := range chunk(urls, existingKeyChunk) {
		found, err := w.existingProfileURLs(ctx, batch)
		if err != nil {
			return 0, err
		}
		for u := range found {
			existing[u] = true
		}
	}

	fresh := profiles[:0]
	for _, p := range profiles {
		if !existing[p.ProfileURL] {
			fresh = append(fresh, p)
		}
	}

	total := 0
	for _, batch := range chunk(fresh, chunkSize) {
		if err := w.writeProfiles(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

// upsertContacts prepares contacts and writes them in chunks.
func upsertContacts(ctx context.Context, write func(context.Context, []model.EnrichedContact) error, contacts []model.EnrichedContact, chunkSize int) (int, error) {
	contacts = model.PrepareContacts(contacts)
	total := 0
	for _, batch := range chunk(contacts, chunkSize) {
		if err := write(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

// prepareProfiles normalizes profile URLs, drops rows without one and keeps
// the first occurrence of each URL.
func prepareProfiles(in []model.Profile) []model.Profile {
	out := make([]model.Profile, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p.ProfileURL = model.NormalizeProfileURL(p.ProfileURL)
		if p.ProfileURL == "" || seen[p.ProfileURL] {
			continue
		}
		seen[p.ProfileURL] = true
		out = append(out, p)
	}
	return out
}

// uniqueURLs normalizes and dedupes identities for MarkEnriched.
func uniqueURLs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, u := range in {
		u = model.NormalizeProfileURL(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}

func chunkSizeOr(n int) int {
	if n > 0 {
		return n
	}
	return DefaultChunkSize
}

// where joins non-empty conditions with AND.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
