package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
)

// RefreshWindow is how far ahead of expiry a credential becomes eligible
// for proactive refresh. Instagram's exchange requires a still-valid token,
// so refreshing must happen before the deadline, never after.
const RefreshWindow = 5 * 24 * time.Hour

// TokenRefresher is the per-platform refresh protocol: decrypt the stored
// credential, exchange it with the platform, persist the re-encrypted
// replacement.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, acc *models.Account) error
}

// RefreshReport aggregates one refresh cycle. One account's failure never
// aborts the batch; it is counted and carried here for the caller to log.
type RefreshReport struct {
	Attempted int
	Refreshed int
	Failed    int
	Errors    []error
}

type TokenRefreshJob struct {
	ar         repository.AccountRepository
	refreshers map[models.Platform]TokenRefresher
	window     time.Duration
	now        func() time.Time
}

func NewTokenRefreshJob(ar repository.AccountRepository, refreshers map[models.Platform]TokenRefresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		ar:         ar,
		refreshers: refreshers,
		window:     RefreshWindow,
		now:        time.Now,
	}
}

func (j *TokenRefreshJob) RefreshTokens(ctx context.Context) RefreshReport {
	var report RefreshReport
	threshold := j.now().Add(j.window)

	// Fixed platform order keeps cycle logs comparable across runs.
	for _, platform := range []models.Platform{models.PlatformInstagram, models.PlatformTiktok} {
		refresher, ok := j.refreshers[platform]
		if !ok {
			continue
		}

		accounts, err := j.ar.ListExpiring(ctx, platform, threshold)
		if err != nil {
			slog.Error("failed to list expiring accounts", "platform", platform, "error", err)
			report.Errors = append(report.Errors, fmt.Errorf("list %s accounts: %w", platform, err))
			continue
		}

		j.refreshAccounts(ctx, refresher, accounts, &report)
	}

	return report
}

func (j *TokenRefreshJob) refreshAccounts(ctx context.Context, refresher TokenRefresher, accounts []*models.Account, report *RefreshReport) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			err := refresher.RefreshToken(ctx, acc)

			mu.Lock()
			defer mu.Unlock()
			report.Attempted++
			if err != nil {
				slog.Warn("unable to refresh tokens", "platform", acc.Platform, "account_id", acc.ID, "error", err)
				report.Failed++
				report.Errors = append(report.Errors, fmt.Errorf("account %d (%s): %w", acc.ID, acc.Platform, err))
				return
			}
			report.Refreshed++
		}(acc)
	}

	wg.Wait()
}
