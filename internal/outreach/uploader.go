package outreach

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/instantly"
)

// ErrNoValidLeads is returned when no contact carries a usable e-mail.
var ErrNoValidLeads = eris.New("outreach: no contacts with valid e-mails to upload")

// Config controls batching and pacing of uploads.
type Config struct {
	WorkspaceID string
	BatchSize   int
	LeadDelay   time.Duration
	BatchDelay  time.Duration
	// DashboardBase prefixes the workspace link in Result.
	DashboardBase string
}

// DefaultConfig returns the pacing used against the live API.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		LeadDelay:     500 * time.Millisecond,
		BatchDelay:    2 * time.Second,
		DashboardBase: DefaultDashboardBase,
	}
}

// Result summarizes one upload.
type Result struct {
	Total        int    `json:"total_profiles"`
	Valid        int    `json:"valid_profiles"`
	Uploaded     int    `json:"uploaded"`
	Failed       int    `json:"failed"`
	LastError    string `json:"last_error,omitempty"`
	DashboardURL string `json:"dashboard_url"`
}

// Uploader pushes contacts to Instantly one lead at a time.
type Uploader struct {
	client instantly.Client
	cfg    Config
	now    func() time.Time
}

// NewUploader creates an Uploader.
func NewUploader(client instantly.Client, cfg Config) *Uploader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.DashboardBase == "" {
		cfg.DashboardBase = DefaultDashboardBase
	}
	return &Uploader{client: client, cfg: cfg, now: time.Now}
}

// DefaultDashboardBase is the Instantly web app root.
const DefaultDashboardBase = "https://app.instantly.ai/app"

// DashboardURL links to the workspace's lead list.
func DashboardURL(base, workspaceID string) string {
	return strings.TrimRight(base, "/") + "/" + workspaceID + "/leads"
}

// Upload verifies the connection, then creates every valid contact as a
// lead. Per-lead failures are counted, not returned.
func (u *Uploader) Upload(ctx context.Context, contacts []model.EnrichedContact) (*Result, error) {
	res := &Result{Total: len(contacts), DashboardURL: DashboardURL(u.cfg.DashboardBase, u.cfg.WorkspaceID)}
	log := zap.L().With(zap.String("stage", "upload"))

	ws, err := u.client.CurrentWorkspace(ctx)
	if err != nil {
		return res, eris.Wrap(err, "outreach: connection test")
	}
	log.Info("outreach: connected", zap.String("workspace", ws.Name))
	if u.cfg.WorkspaceID == "" && ws.ID != "" {
		res.DashboardURL = DashboardURL(u.cfg.DashboardBase, ws.ID)
	}

	now := u.now()
	leads := make([]instantly.Lead, 0, len(contacts))
	for _, c := range contacts {
		if lead, ok := FormatLead(c, now); ok {
			leads = append(leads, lead)
		}
	}
	res.Valid = len(leads)
	if len(leads) == 0 {
		return res, ErrNoValidLeads
	}

	batches := (len(leads) + u.cfg.BatchSize - 1) / u.cfg.BatchSize
	for b := 0; b < batches; b++ {
		batch := leads[b*u.cfg.BatchSize : min((b+1)*u.cfg.BatchSize, len(leads))]
		log.Info("outreach: uploading batch", zap.Int("batch", b+1), zap.Int("batches", batches), zap.Int("size", len(batch)))

		for i, lead := range batch {
			if _, err := u.client.CreateLead(ctx, lead); err != nil {
				res.Failed++
				res.LastError = err.Error()
				log.Warn("outreach: lead failed", zap.String("email", lead.Email), zap.Error(err))
			} else {
				res.Uploaded++
			}
			if i < len(batch)-1 {
				if err := pause(ctx, u.cfg.LeadDelay); err != nil {
					return res, err
				}
			}
		}
		if b < batches-1 {
			if err := pause(ctx, u.cfg.BatchDelay); err != nil {
				return res, err
			}
		}
	}

	log.Info("outreach: upload complete",
		zap.Int("uploaded", res.Uploaded),
		zap.Int("failed", res.Failed),
		zap.String("dashboard", res.DashboardURL),
	)
	return res, nil
}

func pause(ctx context.Context, d time.Duration) error {
	return eris.Wrap(resilience.Sleep(ctx, d), "outreach: interrupted")
}
