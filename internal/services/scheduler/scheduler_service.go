// Package scheduler runs the background maintenance sweeps: refreshing
// provider tokens before they expire and pruning stale placeholder records.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// jobEntry represents a registered sweep with metadata
type jobEntry struct {
	name      string
	schedule  string
	handler   func() error
	cronID    cron.EntryID
	lastRun   *time.Time
	lastError string
}

// Service owns the cron loop for the maintenance sweeps.
type Service struct {
	tokens  interfaces.TokenService
	records interfaces.RecordStorage
	config  *common.SchedulerConfig
	cron    *cron.Cron
	logger  arbor.ILogger

	jobMu    sync.Mutex // Protects jobs map
	globalMu sync.Mutex // Prevents concurrent sweep execution
	jobs     map[string]*jobEntry
	running  bool
}

// NewService creates a new scheduler service
func NewService(tokens interfaces.TokenService, records interfaces.RecordStorage, config *common.SchedulerConfig, logger arbor.ILogger) *Service {
	return &Service{
		tokens:  tokens,
		records: records,
		config:  config,
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]*jobEntry),
	}
}

// Start registers the maintenance sweeps and begins the cron loop.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}

	if err := s.registerJob("token_sweep", s.config.TokenSweepSchedule, s.runTokenSweep); err != nil {
		return err
	}
	if err := s.registerJob("prune_placeholders", s.config.PruneSchedule, s.runPruneSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("token_sweep", s.config.TokenSweepSchedule).
		Str("prune", s.config.PruneSchedule).
		Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	return s.running
}

// TriggerJob manually runs a registered sweep immediately.
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.logger.Info().Str("job_name", name).Msg("Manually triggering job execution")
	go s.executeJob(name)
	return nil
}

func (s *Service) registerJob(name string, schedule string, handler func() error) error {
	if err := common.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule for %s: %w", name, err)
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")
	return nil
}

// executeJob wraps sweep execution with mutex, panic recovery, and status tracking
func (s *Service) executeJob(name string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in job execution")

			s.jobMu.Lock()
			if entry, exists := s.jobs[name]; exists {
				entry.lastError = fmt.Sprintf("panic: %v", r)
			}
			s.jobMu.Unlock()
		}
	}()

	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return
	}
	handler := entry.handler
	s.jobMu.Unlock()

	started := time.Now()
	s.logger.Info().Str("job_name", name).Msg("Job execution started")

	err := handler()

	completed := time.Now()
	s.jobMu.Lock()
	entry.lastRun = &completed
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Str("duration", time.Since(started).String()).
			Msg("Job execution failed")
	} else {
		s.logger.Info().
			Str("job_name", name).
			Str("duration", time.Since(started).String()).
			Msg("Job execution completed")
	}
}

// runTokenSweep asks the token service for a valid token per provider, which
// refreshes any expired pair as a side effect. A provider with no stored pair
// is not an error.
func (s *Service) runTokenSweep() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	refreshed := 0
	for _, provider := range s.tokens.Providers() {
		token, err := s.tokens.GetValidToken(ctx, provider)
		if err != nil {
			s.logger.Warn().
				Str("provider", provider).
				Err(err).
				Msg("Token sweep failed for provider")
			continue
		}
		if token != "" {
			refreshed++
		}
	}

	s.logger.Info().
		Int("providers", len(s.tokens.Providers())).
		Int("valid", refreshed).
		Msg("Token sweep completed")
	return nil
}

// runPruneSweep deletes placeholder records older than the retention window.
func (s *Service) runPruneSweep() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(s.config.PruneAfterHours) * time.Hour).Unix()
	deleted, err := s.records.PruneSynthetic(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune sweep: %w", err)
	}

	s.logger.Info().
		Int("deleted", deleted).
		Int("retention_hours", s.config.PruneAfterHours).
		Msg("Placeholder prune completed")
	return nil
}
