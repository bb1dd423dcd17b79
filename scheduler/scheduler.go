// Package scheduler fires the daily batch run on a cron expression or a
// fixed interval. The batch date of each triggered run is the wall-clock day
// the trigger fired on.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"carpulse/batch"
	"carpulse/config"
)

type Scheduler struct {
	cfg          *config.Config
	orchestrator *batch.Orchestrator
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}
}

func New(cfg *config.Config, orchestrator *batch.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.run(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.run(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	log.Println("No schedule configured, daemon will only run on manual trigger")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.orchestrator.RunDaily(ctx, time.Now()); err != nil {
		log.Printf("Scheduled run error: %v", err)
	}
}

// TriggerNow runs one batch immediately, outside the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.orchestrator.RunDaily(ctx, time.Now())
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
