package jobs

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/config"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/serviceiface"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// CronService schedules the nightly re-categorization sweep. Schedule and
// timezone come from services.yaml with config defaults behind them.
type CronService struct {
	config    map[string]interface{}
	processor *Processor
	cron      *cron.Cron
}

func NewCronService(cfg map[string]interface{}, st store.Store, sqlDB *sql.DB) serviceiface.Service {
	return &CronService{
		config:    cfg,
		processor: NewProcessor(st, sqlDB),
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	schedule := config.DefaultRecatSchedule
	tz := config.DefaultTimeZone
	if s.config != nil {
		if v, ok := s.config["recategorize_schedule"].(string); ok && v != "" {
			schedule = v
		}
		if v, ok := s.config["timezone"].(string); ok && v != "" {
			tz = v
		}
		if v, ok := s.config["group_size"].(int); ok && v > 0 {
			s.processor.GroupSize = v
		}
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
		audit(fmt.Sprintf("invalid timezone %q, falling back to UTC: %v", tz, err))
	}

	s.cron = cron.New(cron.WithLocation(loc))
	_, err = s.cron.AddFunc(schedule, func() {
		ctx, cancel := sweepContext()
		defer cancel()
		if err := s.processor.Run(ctx); err != nil {
			audit(fmt.Sprintf("re-categorization sweep failed: %v", err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule re-categorization sweep: %w", err)
	}

	s.cron.Start()
	audit(fmt.Sprintf("re-categorization scheduler started: %s (%s)", schedule, tz))
	log.Printf("cron service started, sweep scheduled %s (%s)", schedule, tz)
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Println("cron service stopped")
	return nil
}
