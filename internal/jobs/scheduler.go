package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type DailyResetter interface {
	RunDailyReset(ctx context.Context) (int, error)
}

// Scheduler drives the daily free-question reset. The schedule and its
// timezone come from configuration; the reset itself is idempotent, so an
// overlapping or repeated run is harmless.
type Scheduler struct {
	cron    *cron.Cron
	service DailyResetter
}

func NewScheduler(service DailyResetter, location *time.Location) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(location)),
		service: service,
	}
}

func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		count, err := s.service.RunDailyReset(ctx)
		if err != nil {
			log.Printf("daily reset run failed: %v", err)
			return
		}
		log.Printf("daily reset complete: %d users reset", count)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
