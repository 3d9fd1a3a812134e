package ingest

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
)

// Scheduler periodically retries pending documents, picking up work
// interrupted by embedding outages or process restarts.
type Scheduler struct {
	service *Service
	config  *common.ProcessingConfig
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex // one sweep at a time
}

// NewScheduler creates a new ingestion sweep scheduler
func NewScheduler(service *Service, config *common.ProcessingConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		service: service,
		config:  config,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start begins the scheduled sweeps
func (s *Scheduler) Start() error {
	schedule := s.config.Schedule
	if schedule == "" {
		// Default: every 5 minutes
		schedule = "0 */5 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Ingestion sweep scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Ingestion sweep scheduler stopped")
}

func (s *Scheduler) runSweep() {
	if !s.mu.TryLock() {
		s.logger.Debug().Msg("Previous sweep still running, skipping")
		return
	}
	defer s.mu.Unlock()

	processed, err := s.service.ProcessPending(context.Background(), s.config.Limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Ingestion sweep failed")
		return
	}
	if processed > 0 {
		s.logger.Info().Int("processed", processed).Msg("Ingestion sweep completed")
	}
}
