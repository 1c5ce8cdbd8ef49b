// Package scheduler runs the periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sacrifice-website/metrics"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	JobPurgeTransactions = "purge_transactions"
	JobPurgeSessions     = "purge_sessions"

	sessionSpec = "@every 1h"
	jobTimeout  = 5 * time.Minute
)

// TransactionPurger deletes finished reservations
type TransactionPurger interface {
	PurgeTransactions(ctx context.Context, before time.Time) (int64, error)
}

// SessionPurger deletes expired sessions
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron      *cron.Cron
	txs       TransactionPurger
	sessions  SessionPurger
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New registers the jobs. retentionSpec is a standard five field cron
// expression for the transaction purge.
func New(txs TransactionPurger, sessions SessionPurger, retentionSpec string, retention time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		txs:       txs,
		sessions:  sessions,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With("component", "scheduler"),
	}

	if _, err := s.cron.AddFunc(retentionSpec, func() { s.run(JobPurgeTransactions, s.PurgeTransactions) }); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", JobPurgeTransactions, err)
	}
	if _, err := s.cron.AddFunc(sessionSpec, func() { s.run(JobPurgeSessions, s.PurgeSessions) }); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", JobPurgeSessions, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	metrics.RecordJob(name, time.Since(start), err == nil)
	if err != nil {
		s.logger.Error("Job failed", "job", name, "error", err)
		return
	}
	s.logger.Info("Job finished", "job", name, "deleted", n, "duration", time.Since(start))
}

// PurgeTransactions deletes finished reservations older than the retention window
func (s *Scheduler) PurgeTransactions(ctx context.Context) (int64, error) {
	return s.txs.PurgeTransactions(ctx, s.now().Add(-s.retention))
}

func (s *Scheduler) PurgeSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}
