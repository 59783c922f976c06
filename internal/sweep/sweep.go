// Package sweep periodically expires due services, purges old paid ones and
// reminds owners of ended trials.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
)

// Notifier delivers the trial-ended notice to an owner.
type Notifier interface {
	NotifyTrialExpired(ctx context.Context, svc db.Service) error
}

type Sweeper struct {
	cron     *cron.Cron
	repo     *db.Repository
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
}

// Result counts what one run changed.
type Result struct {
	Expired  int64
	Purged   int64
	Notified int
	Failed   int
}

func New(repo *db.Repository, notifier Notifier, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Sweeper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		repo:     repo,
		notifier: notifier,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep every interval and runs it once right away.
func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick()
	}()

	slog.Info("Expiry sweep started", "interval", s.interval)
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	slog.Info("Expiry sweep stopped")
}

// tick recovers on its own; the first run happens outside the cron chain.
func (s *Sweeper) tick() {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncSweepFailure()
			slog.Error("Panic during expiry sweep", "panic", r)
		}
	}()
	s.Run(context.Background())
}

// Run performs one sweep. Failures are logged and counted, never returned.
func (s *Sweeper) Run(ctx context.Context) Result {
	started := time.Now()
	defer func() { metrics.ObserveSweep(time.Since(started).Seconds()) }()

	now := s.now()
	var res Result

	expired, err := s.repo.ExpireServices(ctx, now)
	if err != nil {
		s.fail(&res, "expire", err)
	} else {
		res.Expired = expired
		metrics.AddSweepRows("expire", expired)
	}

	purged, err := s.repo.PurgeExpired(ctx, now.Add(-domain.PurgeRetention))
	if err != nil {
		s.fail(&res, "purge", err)
	} else {
		res.Purged = purged
		metrics.AddSweepRows("purge", purged)
	}

	trials, err := s.repo.ExpiredTestServices(ctx)
	if err != nil {
		s.fail(&res, "notify", err)
	}
	for _, svc := range trials {
		if err := s.notifier.NotifyTrialExpired(ctx, svc); err != nil {
			slog.Error("Failed to send trial notice", "user_id", svc.OwnerID, "service_id", svc.ServiceID, "error", err)
			continue
		}
		res.Notified++
	}
	metrics.AddSweepRows("notify", int64(res.Notified))

	slog.Info("Expiry sweep completed",
		"expired", res.Expired,
		"purged", res.Purged,
		"notified", res.Notified,
		"failed_steps", res.Failed,
	)
	return res
}

func (s *Sweeper) fail(res *Result, step string, err error) {
	res.Failed++
	metrics.IncSweepFailure()
	slog.Error("Sweep step failed", "step", step, "error", err)
}
