// Package scheduler drives the fine-tune lifecycle from two directions: a
// periodic cron sweep over every company with unfinished training, and
// event triggers fired when a company's description changes. Both funnel
// into the lifecycle manager, whose per-company locking makes overlapping
// invocations safe.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/repo"
	"github.com/cobaltline/assistly-backend/internal/services/finetune"
)

// Runner is the lifecycle manager surface the scheduler drives.
type Runner interface {
	Run(ctx context.Context, companyID string) (finetune.Outcome, error)
	ResetAttempts(companyID string)
}

// Config controls sweep cadence and concurrency.
type Config struct {
	CronSpec    string        // e.g. "0 * * * *" for hourly
	Parallelism int           // concurrent companies per sweep
	RunTimeout  time.Duration // per-company budget, 0 means 5m
}

// Scheduler owns the cron instance and the trigger entry point.
type Scheduler struct {
	db         *gorm.DB
	runner     Runner
	cron       *cron.Cron
	entryID    cron.EntryID
	spec       string
	limit      int
	runTimeout time.Duration
	log        zerolog.Logger
}

// New builds a scheduler. It does not start the cron loop.
func New(db *gorm.DB, runner Runner, cfg Config, log zerolog.Logger) *Scheduler {
	limit := cfg.Parallelism
	if limit < 1 {
		limit = 4
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Scheduler{
		db:         db,
		runner:     runner,
		cron:       cron.New(),
		spec:       cfg.CronSpec,
		limit:      limit,
		runTimeout: runTimeout,
		log:        log,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout*4)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("fine-tune sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("fine-tune scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Sweep advances every company whose model reference is pending or failed
// with a description, with bounded parallelism. Individual failures are
// logged and do not abort the sweep.
func (s *Scheduler) Sweep(ctx context.Context) error {
	companies, err := repo.ListCompaniesNeedingAttention(ctx, s.db)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return nil
	}
	s.log.Info().Int("companies", len(companies)).Msg("fine-tune sweep starting")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, c := range companies {
		companyID := c.ID
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
			defer cancel()
			out, err := s.runner.Run(runCtx, companyID)
			evt := s.log.Info()
			if err != nil {
				evt = s.log.Warn().Err(err)
			}
			evt.Str("company_id", companyID).Stringer("outcome", out).Msg("fine-tune sweep step")
			// Per-company failures never abort the sweep.
			return nil
		})
	}
	return g.Wait()
}

// TriggerCompany runs the lifecycle for one company asynchronously. Used
// after description updates; returns immediately.
func (s *Scheduler) TriggerCompany(companyID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		out, err := s.runner.Run(ctx, companyID)
		if err != nil {
			s.log.Warn().Err(err).Str("company_id", companyID).Stringer("outcome", out).Msg("triggered fine-tune run failed")
			return
		}
		s.log.Info().Str("company_id", companyID).Stringer("outcome", out).Msg("triggered fine-tune run")
	}()
}

// ResetAttempts forwards to the lifecycle manager's retry policy.
func (s *Scheduler) ResetAttempts(companyID string) {
	s.runner.ResetAttempts(companyID)
}
