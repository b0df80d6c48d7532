package scheduler

import (
	"context"
	"fmt"
	"time"

	"StandupPulse/logger"
	"StandupPulse/standup"

	"github.com/inconshreveable/log15/v3"
	"github.com/robfig/cron/v3"
)

const (
	jobTimeout          = 2 * time.Minute
	retentionSchedule   = "30 3 * * *"
	autoEscalationCheck = 10 * time.Minute
)

type Options struct {
	StandupSchedule     string
	HealthCheckSchedule string
	HealthCheckEnabled  bool
	ReminderInterval    time.Duration
	ResponseDeadline    string
	AutoEscalateAfter   time.Duration
	Retention           time.Duration
	Location            *time.Location
}

// Scheduler runs the bot's periodic jobs in the team's timezone.
type Scheduler struct {
	cron   *cron.Cron
	engine *standup.Engine
	opts   Options
	log    log15.Logger
}

func New(engine *standup.Engine, opts Options, log log15.Logger) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	cl := logger.CronLogger{Log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		engine: engine,
		opts:   opts,
		log:    log,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
		on   bool
	}{
		{"standup", opts.StandupSchedule, s.runStandup, true},
		{"health_check", opts.HealthCheckSchedule, s.runHealthCheck, opts.HealthCheckEnabled},
		{"reminders", every(opts.ReminderInterval), s.runReminders, opts.ReminderInterval > 0},
		{"summary", deadlineSpec(opts.ResponseDeadline), s.runSummary, opts.ResponseDeadline != ""},
		{"retention", retentionSchedule, s.runRetention, opts.Retention > 0},
		{"auto_escalation", every(autoEscalationCheck), s.runAutoEscalation, opts.AutoEscalateAfter > 0},
	}
	for _, j := range jobs {
		if !j.on {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.run)); err != nil {
			return nil, fmt.Errorf("New: bad schedule %q for %s: %w", j.spec, j.name, err)
		}
		s.log.Info("Job scheduled", "job", j.name, "spec", j.spec)
	}
	return s, nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// deadlineSpec turns "16:00" into a daily cron spec.
func deadlineSpec(deadline string) string {
	t, err := time.Parse("15:04", deadline)
	if err != nil {
		return deadline
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
}

func (s *Scheduler) wrap(name string, run func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.log.Debug("Job starting", "job", name)
		run(ctx)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", "jobs", len(s.cron.Entries()), "tz", s.opts.Location.String())
}

// Stop prevents new runs and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runStandup(ctx context.Context) {
	if _, err := s.engine.SendStandup(ctx); err != nil {
		s.log.Error("Daily standup failed", "err", err)
	}
}

func (s *Scheduler) runHealthCheck(ctx context.Context) {
	if _, err := s.engine.SendHealthCheck(ctx); err != nil {
		s.log.Error("Health check failed", "err", err)
	}
}

func (s *Scheduler) runReminders(ctx context.Context) {
	s.engine.RemindMissing(ctx)
}

func (s *Scheduler) runSummary(ctx context.Context) {
	if _, err := s.engine.PostSummary(ctx); err != nil {
		s.log.Error("Standup summary failed", "err", err)
	}
}

func (s *Scheduler) runRetention(context.Context) {
	s.engine.Evict(s.opts.Retention)
}

func (s *Scheduler) runAutoEscalation(ctx context.Context) {
	if n := s.engine.AutoEscalate(ctx, s.opts.AutoEscalateAfter); n > 0 {
		s.log.Info("Auto-escalated follow-ups", "count", n)
	}
}
