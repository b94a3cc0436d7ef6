package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"emianalyzer/internal/amqp"
	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
	"emianalyzer/internal/metrics"
	"emianalyzer/internal/ports"
)

// SweepResult summarizes one pass over all users.
type SweepResult struct {
	Assessed    int
	Escalations int
	Failed      int
}

// RiskSweeper recomputes risk for users and stores the history. It runs on
// a cron schedule and on record-change messages.
type RiskSweeper struct {
	analyzer *AnalyzerService
	store    ports.Store
	metrics  *metrics.Metrics

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	sweepMu sync.Mutex
}

func NewRiskSweeper(analyzer *AnalyzerService, store ports.Store, m *metrics.Metrics) *RiskSweeper {
	return &RiskSweeper{analyzer: analyzer, store: store, metrics: m}
}

// AssessUser stores a fresh assessment of one user, recomputed from the
// store. escalated is true when the level is higher than the previous
// stored level.
func (r *RiskSweeper) AssessUser(ctx context.Context, userID int64) (core.RiskAssessment, bool, error) {
	snap, err := r.analyzer.FreshSnapshot(ctx, userID, r.analyzer.Today())
	if err != nil {
		return core.RiskAssessment{}, false, err
	}
	profile := finance.AssessRisk(snap)

	previous, err := r.store.LatestAssessment(ctx, userID)
	hasPrevious := err == nil
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return core.RiskAssessment{}, false, fmt.Errorf("load previous assessment: %w", err)
	}

	saved, err := r.store.RecordAssessment(ctx, profile.Assessment(userID, snap))
	if err != nil {
		return core.RiskAssessment{}, false, fmt.Errorf("record assessment: %w", err)
	}

	escalated := hasPrevious && saved.Level.Rank() > previous.Level.Rank()
	r.metrics.Assessment(string(saved.Level), escalated)
	if escalated {
		slog.WarnContext(ctx, "Risk level escalated",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			"previous_level", previous.Level,
			log.FieldRiskLevel, saved.Level,
			log.FieldOverallRatio, saved.OverallBurdenRatio,
			"reasons", saved.Reasons)
	}
	return saved, escalated, nil
}

// Sweep assesses every non-admin user. Individual failures are counted and
// logged; the sweep continues with the next user.
func (r *RiskSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	start := time.Now()
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list users: %w", err)
	}
	users = slices.DeleteFunc(users, func(u core.User) bool { return u.Admin })

	var res SweepResult
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, escalated, err := r.AssessUser(ctx, u.ID)
		if err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "Failed to assess user", log.FieldUserID, u.ID, log.FieldError, err)
			continue
		}
		res.Assessed++
		if escalated {
			res.Escalations++
		}
	}

	if r.metrics != nil {
		r.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	slog.InfoContext(ctx, "Risk sweep finished",
		log.FieldComponent, log.ComponentWorker,
		"assessed", res.Assessed,
		"escalations", res.Escalations,
		"failed", res.Failed,
		"duration", time.Since(start))
	return res, nil
}

// HandleRecordChange reassesses the user a change belongs to, or everyone
// for global changes. Changes for users that no longer exist are dropped.
func (r *RiskSweeper) HandleRecordChange(ctx context.Context, msg *amqp.RecordChange) error {
	if msg.Global() {
		r.analyzer.InvalidateAll()
		_, err := r.Sweep(ctx)
		return err
	}
	r.analyzer.Invalidate(msg.UserID)
	_, _, err := r.AssessUser(ctx, msg.UserID)
	if errors.Is(err, ports.ErrNotFound) {
		slog.WarnContext(ctx, "Dropping change for unknown user",
			log.FieldMessageID, msg.MessageID,
			log.FieldUserID, msg.UserID)
		return nil
	}
	return err
}

// Start schedules Sweep with a standard cron expression or descriptor
// such as "@daily". Returns an error if already running.
func (r *RiskSweeper) Start(ctx context.Context, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("risk sweeper is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.Sweep(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled risk sweep failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("invalid risk sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	r.running = true

	slog.InfoContext(ctx, "Risk sweeper started", "schedule", schedule)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (r *RiskSweeper) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	running := r.running
	r.running = false
	r.cron = nil
	r.mu.Unlock()
	if !running {
		return nil
	}

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Risk sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Risk sweeper stop timed out")
		return ctx.Err()
	}
}

func (r *RiskSweeper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
