package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/robfig/cron"

	job "github.com/postpilot/postpilot/internal/jobs"
	"github.com/postpilot/postpilot/internal/repository"
)

const (
	dueScanSpec = "@every 1m"
	// Refresh runs once a day, off-peak. Six-field spec, seconds first.
	refreshSpec = "0 0 3 * * *"
)

// Dispatcher receives one due post at a time. In production this is the
// queue client; the publish engine itself satisfies the same shape for
// direct dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, postID int64) error
}

type Stats struct {
	LastDueScanAt     time.Time `json:"last_due_scan_at"`
	LastDispatched    int       `json:"last_dispatched"`
	LastRefreshScanAt time.Time `json:"last_refresh_scan_at"`
	LastRefreshed     int       `json:"last_refreshed"`
	LastRefreshFailed int       `json:"last_refresh_failed"`
}

// Scheduler owns the two periodic triggers: a frequent due-post scan and a
// daily token-refresh scan. The triggers are independent; fires of the same
// trigger are serialized with a try-lock, so a scan that outlives its
// interval causes the next fire to be skipped rather than overlapped.
type Scheduler struct {
	pr         repository.PostRepository
	dispatcher Dispatcher
	refreshJob *job.TokenRefreshJob
	cron       *cron.Cron
	now        func() time.Time

	dueMu     sync.Mutex
	refreshMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

func New(pr repository.PostRepository, dispatcher Dispatcher, refreshJob *job.TokenRefreshJob) *Scheduler {
	return &Scheduler{
		pr:         pr,
		dispatcher: dispatcher,
		refreshJob: refreshJob,
		cron:       cron.New(),
		now:        time.Now,
	}
}

func (s *Scheduler) Start() error {
	if err := s.cron.AddFunc(dueScanSpec, func() {
		s.RunDueScan(context.Background())
	}); err != nil {
		return err
	}

	if err := s.cron.AddFunc(refreshSpec, func() {
		s.RunRefreshScan(context.Background())
	}); err != nil {
		return err
	}

	s.cron.Start()
	slog.Info("scheduler started", "due_scan", dueScanSpec, "refresh_scan", refreshSpec)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("scheduler stopped")
}

// RunDueScan dispatches every post whose scheduled time has arrived.
// Dispatch errors are logged per post and do not stop the scan. Returns the
// number of posts handed to the dispatcher.
func (s *Scheduler) RunDueScan(ctx context.Context) int {
	if !s.dueMu.TryLock() {
		slog.Warn("due-post scan skipped: previous scan still running")
		return 0
	}
	defer s.dueMu.Unlock()

	runID, _ := gonanoid.New()
	now := s.now()

	ids, err := s.pr.ListDueIDs(ctx, now)
	if err != nil {
		slog.Error("due-post scan failed", "run_id", runID, "error", err)
		return 0
	}

	dispatched := 0
	for _, id := range ids {
		if err := s.dispatcher.Dispatch(ctx, id); err != nil {
			slog.Error("failed to dispatch post", "run_id", runID, "post_id", id, "error", err)
			continue
		}
		dispatched++
	}

	if len(ids) > 0 {
		slog.Info("due-post scan finished", "run_id", runID, "due", len(ids), "dispatched", dispatched)
	}

	s.statsMu.Lock()
	s.stats.LastDueScanAt = now
	s.stats.LastDispatched = dispatched
	s.statsMu.Unlock()

	return dispatched
}

// RunRefreshScan runs one token-refresh cycle and logs its aggregated
// outcome. The second return value is false when the fire was skipped
// because the previous cycle is still running.
func (s *Scheduler) RunRefreshScan(ctx context.Context) (job.RefreshReport, bool) {
	if !s.refreshMu.TryLock() {
		slog.Warn("refresh scan skipped: previous scan still running")
		return job.RefreshReport{}, false
	}
	defer s.refreshMu.Unlock()

	runID, _ := gonanoid.New()
	now := s.now()

	report := s.refreshJob.RefreshTokens(ctx)
	slog.Info("token refresh cycle finished",
		"run_id", runID,
		"attempted", report.Attempted,
		"refreshed", report.Refreshed,
		"failed", report.Failed)
	for _, err := range report.Errors {
		slog.Warn("refresh cycle error", "run_id", runID, "error", err)
	}

	s.statsMu.Lock()
	s.stats.LastRefreshScanAt = now
	s.stats.LastRefreshed = report.Refreshed
	s.stats.LastRefreshFailed = report.Failed
	s.statsMu.Unlock()

	return report, true
}

func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}
