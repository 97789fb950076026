package rate

import (
	"context"
	"time"

	"forexrates/internal/adapters"
	"forexrates/internal/platform/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultStatsInterval = 30 * time.Second

// Scheduler periodically counts stored pairs and publishes the number as a
// gauge. It only reads from the store.
type Scheduler struct {
	store   adapters.RateStore
	metrics *metrics.RateMetrics
	// -----
	sched         gocron.Scheduler
	statsInterval time.Duration
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = scheduler

	job := func(jobCtx context.Context) {
		execID := uuid.NewString()
		if statsErr := RefreshStoredPairs(jobCtx, s.store, s.metrics); statsErr != nil {
			logrus.WithError(statsErr).WithField("exec_id", execID).Error("Stored pairs stats job failed")
		}
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.statsInterval),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}

// RefreshStoredPairs sets the stored pairs gauge from a full store listing.
func RefreshStoredPairs(ctx context.Context, store adapters.RateStore, m *metrics.RateMetrics) error {
	rates, err := store.ListAll(ctx)
	if err != nil {
		return err
	}
	m.SetStoredPairs(len(rates))
	logrus.WithField("stored_pairs", len(rates)).Debug("Stored pairs refreshed")
	return nil
}

func NewScheduler(store adapters.RateStore, m *metrics.RateMetrics, statsInterval time.Duration) *Scheduler {
	if statsInterval <= 0 {
		statsInterval = defaultStatsInterval
	}
	return &Scheduler{store: store, metrics: m, statsInterval: statsInterval}
}
