package quota

import (
	"context"
	"time"

	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/robfig/cron/v3"
)

const module = "quota"

// Scheduler zeroes the daily counters on a cron schedule. The limiter is
// correct without it; the reset keeps stored rows tidy for the admin API.
type Scheduler struct {
	limiter *Limiter
	cron    *cron.Cron
	log     logger.ILogger
}

func NewScheduler(limiter *Limiter, log logger.ILogger) *Scheduler {
	return &Scheduler{
		limiter: limiter,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		log:     log,
	}
}

// Start registers the reset job. The default runs at UTC midnight.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = "0 0 0 * * *"
	}
	if _, err := s.cron.AddFunc(schedule, s.runReset); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info(module, "Daily quota reset scheduled", map[string]interface{}{"schedule": schedule})
	return nil
}

// Stop waits for a running reset to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info(module, "Daily quota reset stopped", nil)
}

func (s *Scheduler) runReset() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.limiter.Reset(ctx)
	if err != nil {
		s.log.Error(module, "Daily quota reset failed", map[string]interface{}{"error": err})
		return
	}
	s.log.Info(module, "Daily quota reset", map[string]interface{}{"rows": n})
}
