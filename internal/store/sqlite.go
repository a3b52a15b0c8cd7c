package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Gateway using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	chunkSize int
}

var _ Gateway = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, chunkSize int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, chunkSize: chunkSizeOr(chunkSize)}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id                     TEXT PRIMARY KEY,
	linkedin_url           TEXT NOT NULL UNIQUE,
	full_name              TEXT NOT NULL DEFAULT '',
	headline               TEXT NOT NULL DEFAULT '',
	location               TEXT NOT NULL DEFAULT '',
	image_url              TEXT NOT NULL DEFAULT '',
	connection_degree      TEXT NOT NULL DEFAULT '',
	search_keyword         TEXT NOT NULL DEFAULT '',
	search_location        TEXT NOT NULL DEFAULT '',
	search_industry        TEXT NOT NULL DEFAULT '',
	source                 TEXT NOT NULL DEFAULT 'LinkedIn',
	user_id                TEXT NOT NULL DEFAULT '',
	campaign_id            TEXT NOT NULL DEFAULT '',
	finalscout_contact_url TEXT NOT NULL DEFAULT '',
	is_enriched            BOOLEAN NOT NULL DEFAULT 0,
	enriched_at            DATETIME,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id                       TEXT PRIMARY KEY,
	user_id                  TEXT NOT NULL,
	campaign_id              TEXT NOT NULL,
	first_name               TEXT NOT NULL DEFAULT '',
	last_name                TEXT NOT NULL DEFAULT '',
	full_name                TEXT NOT NULL DEFAULT '',
	email                    TEXT NOT NULL COLLATE NOCASE,
	email_status             TEXT NOT NULL DEFAULT '',
	email_confidence         TEXT NOT NULL DEFAULT '',
	email_type               TEXT NOT NULL DEFAULT '',
	privacy                  TEXT NOT NULL DEFAULT 'Normal',
	tags                     TEXT NOT NULL DEFAULT '',
	linkedin                 TEXT NOT NULL DEFAULT '',
	headline                 TEXT NOT NULL DEFAULT '',
	title                    TEXT NOT NULL DEFAULT '',
	location                 TEXT NOT NULL DEFAULT '',
	company                  TEXT NOT NULL DEFAULT '',
	industry                 TEXT NOT NULL DEFAULT '',
	website                  TEXT NOT NULL DEFAULT '',
	image_url                TEXT NOT NULL DEFAULT '',
	connection_degree        TEXT NOT NULL DEFAULT '',
	source_detail            TEXT NOT NULL DEFAULT '',
	note                     TEXT NOT NULL DEFAULT '',
	search_keyword           TEXT NOT NULL DEFAULT '',
	search_location          TEXT NOT NULL DEFAULT '',
	search_industry          TEXT NOT NULL DEFAULT '',
	company_city             TEXT NOT NULL DEFAULT '',
	company_state            TEXT NOT NULL DEFAULT '',
	company_country          TEXT NOT NULL DEFAULT '',
	company_postal_code      TEXT NOT NULL DEFAULT '',
	company_raw_address      TEXT NOT NULL DEFAULT '',
	company_phone            TEXT NOT NULL DEFAULT '',
	company_domain           TEXT NOT NULL DEFAULT '',
	company_linkedin         TEXT NOT NULL DEFAULT '',
	company_staff_count      TEXT NOT NULL DEFAULT '',
	contact_created_at_ts    TEXT NOT NULL DEFAULT '',
	contact_latest_update_ts TEXT NOT NULL DEFAULT '',
	created_at               DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at               DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (user_id, campaign_id, email)
);

CREATE INDEX IF NOT EXISTS idx_profiles_unenriched ON profiles(is_enriched, created_at);
CREATE INDEX IF NOT EXISTS idx_profiles_campaign ON profiles(campaign_id);
CREATE INDEX IF NOT EXISTS idx_contacts_campaign ON contacts(user_id, campaign_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProfiles(ctx context.Context, profiles []model.Profile) (int, error) {
	return upsertProfiles(ctx, s, profiles, s.chunkSize)
}

func (s *SQLiteStore) existingProfileURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT linkedin_url FROM profiles WHERE linkedin_url IN (`+db.Question.Marks(1, len(urls))+`)`,
		anySlice(urls)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query existing profiles")
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan existing profile")
		}
		found[u] = true
	}
	return found, eris.Wrap(rows.Err(), "sqlite: iterate existing profiles")
}

func (s *SQLiteStore) writeProfiles(ctx context.Context, profiles []model.Profile) error {
	now := time.Now().UTC()
	rows := make([][]any, len(profiles))
	for i, p := range profiles {
		rows[i] = profileValues(p, now)
	}
	return s.upsert(ctx, db.UpsertConfig{
		Table:        ProfilesTable,
		Columns:      profileColumns,
		ConflictKeys: profileConflict,
		UpdateCols:   profileUpdateColumns,
		Placeholder:  db.Question,
	}, rows)
}

func (s *SQLiteStore) upsert(ctx context.Context, cfg db.UpsertConfig, rows [][]any) error {
	query, args, err := db.BuildUpsert(cfg, rows)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "sqlite: upsert %s", cfg.Table)
	}
	return nil
}

func (s *SQLiteStore) FetchUnenriched(ctx context.Context, f UnenrichedFilter) ([]model.Profile, error) {
	conds := []string{"is_enriched = 0"}
	var args []any
	if f.CampaignID != "" {
		conds = append(conds, "campaign_id = ?")
		args = append(args, f.CampaignID)
	}
	query := "SELECT " + profileSelect + " FROM profiles" + where(conds) + " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch unenriched profiles")
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		var enrichedAt *time.Time
		if err := rows.Scan(profileDest(&p, &enrichedAt)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		p.Enrichment.EnrichedAt = enrichedAt
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate profiles")
}

func (s *SQLiteStore) MarkEnriched(ctx context.Context, profileURLs []string) (int, error) {
	urls := uniqueURLs(profileURLs)
	if len(urls) == 0 {
		return 0, nil
	}
	args := append([]any{time.Now().UTC()}, anySlice(urls)...)
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET is_enriched = 1, enriched_at = ? WHERE linkedin_url IN (`+db.Question.Marks(2, len(urls))+`)`,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: mark profiles enriched")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) UpsertContacts(ctx context.Context, contacts []model.EnrichedContact) (int, error) {
	return upsertContacts(ctx, s.writeContacts, contacts, s.chunkSize)
}

func (s *SQLiteStore) writeContacts(ctx context.Context, contacts []model.EnrichedContact) error {
	now := time.Now().UTC()
	rows := make([][]any, len(contacts))
	for i, c := range contacts {
		rows[i] = contactValues(c, now)
	}
	return s.upsert(ctx, db.UpsertConfig{
		Table:        ContactsTable,
		Columns:      contactColumns,
		ConflictKeys: contactConflict,
		UpdateCols:   contactUpdateColumns,
		Placeholder:  db.Question,
	}, rows)
}

func (s *SQLiteStore) CountUnenriched(ctx context.Context, campaignID string) (int, error) {
	conds := []string{"is_enriched = 0"}
	var args []any
	if campaignID != "" {
		conds = append(conds, "campaign_id = ?")
		args = append(args, campaignID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles"+where(conds), args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count unenriched profiles")
	}
	return n, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, f ContactFilter) ([]model.EnrichedContact, error) {
	var conds []string
	var args []any
	if f.OwnerID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.CampaignID != "" {
		conds = append(conds, "campaign_id = ?")
		args = append(args, f.CampaignID)
	}
	query := "SELECT " + contactSelect + " FROM contacts" + where(conds) + " ORDER BY created_at, rowid"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var out []model.EnrichedContact
	for rows.Next() {
		var c model.EnrichedContact
		if err := rows.Scan(contactDest(&c)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate contacts")
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
