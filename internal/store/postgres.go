package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Gateway using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	chunkSize int
}

var _ Gateway = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, chunkSize int, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, chunkSize: chunkSizeOr(chunkSize)}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS citext;

CREATE TABLE IF NOT EXISTS profiles (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	is_enriched            BOOLEAN NOT NULL DEFAULT false,
	enriched_at            TIMESTAMPTZ,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id                       TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id                  TEXT NOT NULL,
	campaign_id              TEXT NOT NULL,
	first_name               TEXT NOT NULL DEFAULT '',
	last_name                TEXT NOT NULL DEFAULT '',
	full_name                TEXT NOT NULL DEFAULT '',
	email                    CITEXT NOT NULL,
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
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, campaign_id, email)
);

CREATE INDEX IF NOT EXISTS idx_profiles_unenriched ON profiles(is_enriched, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_profiles_campaign ON profiles(campaign_id);
CREATE INDEX IF NOT EXISTS idx_contacts_campaign ON contacts(user_id, campaign_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertProfiles(ctx context.Context, profiles []model.Profile) (int, error) {
	return upsertProfiles(ctx, s, profiles, s.chunkSize)
}

func (s *PostgresStore) existingProfileURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT linkedin_url FROM profiles WHERE linkedin_url = ANY($1)`, urls)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query existing profiles")
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "postgres: scan existing profile")
		}
		found[u] = true
	}
	return found, eris.Wrap(rows.Err(), "postgres: iterate existing profiles")
}

func (s *PostgresStore) writeProfiles(ctx context.Context, profiles []model.Profile) error {
	now := time.Now().UTC()
	rows := make([][]any, len(profiles))
	for i, p := range profiles {
		rows[i] = profileValues(p, now)
	}
	_, err := db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        ProfilesTable,
		Columns:      profileColumns,
		ConflictKeys: profileConflict,
		UpdateCols:   profileUpdateColumns,
	}, rows)
	return eris.Wrap(err, "postgres: upsert profiles")
}

func (s *PostgresStore) FetchUnenriched(ctx context.Context, f UnenrichedFilter) ([]model.Profile, error) {
	conds := []string{"is_enriched = false"}
	var args []any
	if f.CampaignID != "" {
		args = append(args, f.CampaignID)
		conds = append(conds, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	query := "SELECT " + profileSelect + " FROM profiles" + where(conds) + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch unenriched profiles")
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		var enrichedAt *time.Time
		if err := rows.Scan(profileDest(&p, &enrichedAt)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		p.Enrichment.EnrichedAt = enrichedAt
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate profiles")
}

func (s *PostgresStore) MarkEnriched(ctx context.Context, profileURLs []string) (int, error) {
	urls := uniqueURLs(profileURLs)
	if len(urls) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET is_enriched = true, enriched_at = $1 WHERE linkedin_url = ANY($2)`,
		time.Now().UTC(), urls,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: mark profiles enriched")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) UpsertContacts(ctx context.Context, contacts []model.EnrichedContact) (int, error) {
	return upsertContacts(ctx, s.writeContacts, contacts, s.chunkSize)
}

func (s *PostgresStore) writeContacts(ctx context.Context, contacts []model.EnrichedContact) error {
	now := time.Now().UTC()
	rows := make([][]any, len(contacts))
	for i, c := range contacts {
		rows[i] = contactValues(c, now)
	}
	_, err := db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        ContactsTable,
		Columns:      contactColumns,
		ConflictKeys: contactConflict,
		UpdateCols:   contactUpdateColumns,
	}, rows)
	return eris.Wrap(err, "postgres: upsert contacts")
}

func (s *PostgresStore) CountUnenriched(ctx context.Context, campaignID string) (int, error) {
	conds := []string{"is_enriched = false"}
	var args []any
	if campaignID != "" {
		args = append(args, campaignID)
		conds = append(conds, "campaign_id = $1")
	}
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM profiles"+where(conds), args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count unenriched profiles")
	}
	return n, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, f ContactFilter) ([]model.EnrichedContact, error) {
	var conds []string
	var args []any
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.CampaignID != "" {
		args = append(args, f.CampaignID)
		conds = append(conds, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	query := "SELECT " + contactSelect + " FROM contacts" + where(conds) + " ORDER BY created_at"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var out []model.EnrichedContact
	for rows.Next() {
		var c model.EnrichedContact
		if err := rows.Scan(contactDest(&c)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate contacts")
}
