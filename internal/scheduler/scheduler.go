package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/weatherboard/server/internal/weather"
)

// DefaultCronSpec fires at minutes 2, 17, 32 and 47 of every hour:
// every 15 minutes, offset 2 minutes past the quarter-hour boundary so
// the upstream has published a fresh observation by then.
const DefaultCronSpec = "2,17,32,47 * * * *"

// Scheduler drives the recurring refresh job on a fixed cron schedule.
// It is started once, from the session-start path, and keeps running
// for the life of the process unless Stop is called.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	cronSpec  string
	log       *zap.Logger
}

// New creates a Scheduler firing on cronSpec (minute-granularity cron).
func New(cronSpec string, service *weather.Service, log *zap.Logger) *Scheduler {
	if cronSpec == "" {
		cronSpec = DefaultCronSpec
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		cronSpec:  cronSpec,
		log:       log,
	}
}

// Start registers the recurring job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.cronSpec).Do(func() {
		s.log.Info("scheduler: running refresh cycle")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.service.RefreshCycle(ctx); err != nil {
			// Skip this cycle; the next tick is the retry.
			s.log.Warn("scheduler: refresh cycle failed", zap.Error(err))
			return
		}
		s.log.Info("scheduler: completed refresh cycle")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels the recurring job. The request path never calls this;
// shutdown and tests do.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
