// Package scheduler runs the periodic expiry sweeps.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/config"
)

const (
	defaultOfferSchedule   = "@every 15m"
	defaultListingSchedule = "@daily"
)

// Sweeper expires records that are past their deadline as of now.
type Sweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// Job is one named sweep.
type Job struct {
	Name     string
	Schedule string
	Sweeper  Sweeper
}

// Scheduler runs sweeps on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	now  func() time.Time
}

// Jobs returns the standard offer and listing sweeps.
func Jobs(offers config.OffersConfig, listings config.ListingsConfig, offerSweeper, listingSweeper Sweeper) []Job {
	offerSchedule := offers.SweepSchedule
	if offerSchedule == "" {
		offerSchedule = defaultOfferSchedule
	}
	listingSchedule := listings.SweepSchedule
	if listingSchedule == "" {
		listingSchedule = defaultListingSchedule
	}
	return []Job{
		{Name: "offers", Schedule: offerSchedule, Sweeper: offerSweeper},
		{Name: "listings", Schedule: listingSchedule, Sweeper: listingSweeper},
	}
}

// New registers jobs. It fails if any schedule does not parse.
func New(jobs []Job) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		jobs: jobs,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.Schedule, func() {
			s.run(context.Background(), j)
		}); err != nil {
			return nil, eris.Wrapf(err, "scheduler: add %s job %q", j.Name, j.Schedule)
		}
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	zap.L().Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		zap.L().Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "scheduler: stop")
	}
}

// RunOnce runs every job immediately and returns the number of records each
// one expired.
func (s *Scheduler) RunOnce(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(s.jobs))
	for _, j := range s.jobs {
		n, err := j.Sweeper.ExpireStale(ctx, s.now())
		if err != nil {
			return out, eris.Wrapf(err, "scheduler: run %s", j.Name)
		}
		out[j.Name] = n
	}
	return out, nil
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	start := time.Now()
	n, err := j.Sweeper.ExpireStale(ctx, s.now())
	if err != nil {
		zap.L().Error("scheduled sweep failed", zap.String("job", j.Name), zap.Error(err))
		return
	}
	zap.L().Debug("scheduled sweep complete",
		zap.String("job", j.Name),
		zap.Int("expired", n),
		zap.Duration("duration", time.Since(start)),
	)
}
