// Package jobs runs the periodic maintenance work: ledger reconciliation
// and closing tasks whose deadline has passed.
package jobs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/config"
	"github.com/deukmosi-create/task-earning-platform/services"
)

type Scheduler struct {
	cron    *cron.Cron
	ledger  *services.Ledger
	catalog *services.Catalog
	log     *zap.Logger
	timeout time.Duration
}

func New(ledger *services.Ledger, catalog *services.Catalog, log *zap.Logger) *Scheduler {
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ledger:  ledger,
		catalog: catalog,
		log:     log,
		timeout: 10 * time.Minute,
	}
}

// Register adds both jobs. An empty spec disables that job.
func (s *Scheduler) Register(cfg config.JobsConfig) error {
	if cfg.ReconcileSpec != "" {
		if _, err := s.cron.AddFunc(cfg.ReconcileSpec, s.run("reconcile", s.Reconcile)); err != nil {
			return errors.Wrapf(err, "schedule reconcile %q", cfg.ReconcileSpec)
		}
	}
	if cfg.ExpireSpec != "" {
		if _, err := s.cron.AddFunc(cfg.ExpireSpec, s.run("expire", s.ExpireOverdue)); err != nil {
			return errors.Wrapf(err, "schedule expire %q", cfg.ExpireSpec)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		started := time.Now()
		n, err := fn(ctx)
		if err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Int("affected", n), zap.Error(err))
			return
		}
		s.log.Info("job finished", zap.String("job", name), zap.Int("affected", n), zap.Duration("took", time.Since(started)))
	}
}

// Reconcile checks every wallet against its transactions and returns how
// many drifted. Drift is reported, never corrected.
func (s *Scheduler) Reconcile(ctx context.Context) (int, error) {
	drifted, err := s.ledger.ReconcileAll(ctx)
	for _, rep := range drifted {
		s.log.Warn("ledger drift",
			zap.Uint("wallet_id", rep.WalletID),
			zap.String("cached", rep.Cached.StringFixed(2)),
			zap.String("computed", rep.Computed.StringFixed(2)))
	}
	return len(drifted), err
}

func (s *Scheduler) ExpireOverdue(ctx context.Context) (int, error) {
	return s.catalog.ExpireOverdue(ctx)
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
