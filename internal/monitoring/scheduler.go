// Package monitoring runs the application's periodic maintenance jobs.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionPurger deletes sessions that have expired.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs maintenance jobs on cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPurger
	now      func() time.Time
}

// NewScheduler creates a scheduler purging expired sessions on purgeSpec,
// a standard five-field cron expression or descriptor such as "@hourly".
func NewScheduler(sessions SessionPurger, purgeSpec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cronLogger{log.Logger}), cron.WithChain(cron.Recover(cronLogger{log.Logger}))),
		sessions: sessions,
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(purgeSpec, s.purgeSessions); err != nil {
		return nil, fmt.Errorf("invalid session purge schedule %q: %w", purgeSpec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Starting background scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits up to ctx for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("Stopped background scheduler")
	case <-ctx.Done():
		log.Warn().Msg("Scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.PurgeExpired(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to purge expired sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("Scheduler: purged expired sessions")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
