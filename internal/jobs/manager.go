// Package jobs runs search and enrichment jobs in the background, one at a
// time, and tracks their status per campaign.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/enrich"
)

// Mode selects what a job does.
type Mode string

const (
	ModeProfiles Mode = "profiles"
	ModeEnrich   Mode = "enrich"
	ModeCombined Mode = "combined"
	ModeSmart    Mode = "smart"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeProfiles, ModeEnrich, ModeCombined, ModeSmart:
		return true
	}
	return false
}

// State is the lifecycle of a campaign's latest job.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

var (
	// ErrBusy is returned when a job is already running. The browser is
	// exclusive, so only one job runs at a time.
	ErrBusy = eris.New("jobs: a job is already running")
	// ErrNotRunning is returned by Stop when the campaign has no running job.
	ErrNotRunning = eris.New("jobs: no running job for campaign")
	// ErrInvalidMode is returned for unknown modes.
	ErrInvalidMode = eris.New("jobs: invalid mode")
)

// Request describes a job.
type Request struct {
	Mode     Mode   `json:"mode"`
	OwnerID  string `json:"user_id"`
	Keyword  string `json:"keyword"`
	Location string `json:"location"`
	Industry string `json:"industry"`
	Pages    int    `json:"pages"`
	Batch    int    `json:"batch"`
}

// Status is the externally visible state of a campaign's job.
type Status struct {
	CampaignID string            `json:"campaign_id"`
	JobID      string            `json:"job_id,omitempty"`
	Mode       Mode              `json:"mode,omitempty"`
	State      State             `json:"state"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Saved      int               `json:"profiles_saved"`
	Enrich     *enrich.RunResult `json:"enrich,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Tasks performs the work behind each mode.
type Tasks interface {
	// SearchProfiles scrapes and persists profiles, returning how many were
	// saved.
	SearchProfiles(ctx context.Context, campaignID string, req Request) (int, error)
	// Enrich runs one enrichment batch for the campaign.
	Enrich(ctx context.Context, campaignID string, req Request) (*enrich.RunResult, error)
	// CountUnenriched reports the campaign's pending profiles.
	CountUnenriched(ctx context.Context, campaignID string) (int, error)
}

// Manager starts jobs and tracks their status.
type Manager struct {
	base  context.Context
	tasks Tasks

	mu       sync.Mutex
	statuses map[string]*Status
	running  string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager creates a Manager. Jobs run under base and are cancelled with
// it.
func NewManager(base context.Context, tasks Tasks) *Manager {
	return &Manager{base: base, tasks: tasks, statuses: make(map[string]*Status)}
}

// Start launches a job for campaignID in the background.
func (m *Manager) Start(campaignID string, req Request) (Status, error) {
	if req.Mode == "" {
		req.Mode = ModeEnrich
	}
	if !req.Mode.Valid() {
		return Status{}, eris.Wrapf(ErrInvalidMode, "%q", req.Mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != "" {
		return m.snapshot(m.running), ErrBusy
	}

	now := time.Now().UTC()
	st := &Status{
		CampaignID: campaignID,
		JobID:      uuid.NewString(),
		Mode:       req.Mode,
		State:      StateRunning,
		StartedAt:  &now,
	}
	m.statuses[campaignID] = st
	m.running = campaignID

	ctx, cancel := context.WithCancel(m.base)
	m.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx, cancel, campaignID, req)

	return *st, nil
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, campaignID string, req Request) {
	defer m.wg.Done()
	defer cancel()

	log := zap.L().With(zap.String("campaign_id", campaignID), zap.String("mode", string(req.Mode)))
	log.Info("jobs: started")

	saved, result, err := m.execute(ctx, campaignID, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.statuses[campaignID]
	now := time.Now().UTC()
	st.FinishedAt = &now
	st.Saved = saved
	st.Enrich = result
	switch {
	case err == nil:
		st.State = StateCompleted
	case ctx.Err() != nil:
		st.State = StateCancelled
		st.Error = err.Error()
	default:
		st.State = StateFailed
		st.Error = err.Error()
	}
	m.running = ""
	m.cancel = nil
	log.Info("jobs: finished", zap.String("state", string(st.State)), zap.Error(err))
}

func (m *Manager) execute(ctx context.Context, campaignID string, req Request) (int, *enrich.RunResult, error) {
	search := req.Mode == ModeProfiles || req.Mode == ModeCombined
	enrichToo := req.Mode != ModeProfiles

	if req.Mode == ModeSmart {
		pending, err := m.tasks.CountUnenriched(ctx, campaignID)
		if err != nil {
			return 0, nil, eris.Wrap(err, "jobs: count unenriched")
		}
		search = pending == 0
		zap.L().Info("jobs: smart mode", zap.String("campaign_id", campaignID), zap.Int("pending", pending), zap.Bool("search", search))
	}

	var saved int
	if search {
		n, err := m.tasks.SearchProfiles(ctx, campaignID, req)
		saved = n
		if err != nil {
			return saved, nil, eris.Wrap(err, "jobs: search profiles")
		}
	}
	if !enrichToo {
		return saved, nil, nil
	}
	res, err := m.tasks.Enrich(ctx, campaignID, req)
	if err != nil {
		return saved, res, eris.Wrap(err, "jobs: enrich")
	}
	return saved, res, nil
}

// Status returns the latest job status for campaignID, idle if none.
func (m *Manager) Status(campaignID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(campaignID)
}

func (m *Manager) snapshot(campaignID string) Status {
	st, ok := m.statuses[campaignID]
	if !ok {
		return Status{CampaignID: campaignID, State: StateIdle}
	}
	cp := *st
	if st.Enrich != nil {
		r := *st.Enrich
		cp.Enrich = &r
	}
	return cp
}

// Stop cancels the running job of campaignID.
func (m *Manager) Stop(campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != campaignID || m.cancel == nil {
		return ErrNotRunning
	}
	m.cancel()
	return nil
}

// Running reports the campaign of the running job, if any.
func (m *Manager) Running() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running, m.running != ""
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
