// Package worker runs the background risk assessment loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emianalyzer/internal/amqp"
	"emianalyzer/internal/log"
	"emianalyzer/internal/services"
)

// Consumer is the part of amqp.Client the worker reads from.
type Consumer interface {
	ConsumeRecordChanges(ctx context.Context, handler func(context.Context, *amqp.RecordChange) error) error
}

// Sweeper is the part of services.RiskSweeper the worker drives.
type Sweeper interface {
	Sweep(ctx context.Context) (services.SweepResult, error)
	HandleRecordChange(ctx context.Context, msg *amqp.RecordChange) error
	Start(ctx context.Context, schedule string) error
	Stop(ctx context.Context) error
}

type Config struct {
	// Schedule is a cron spec; empty disables the periodic sweep.
	Schedule string
	// StartupSweep assesses every user once before consuming.
	StartupSweep bool
	StopTimeout  time.Duration
}

// RiskWorker reassesses users when their records change and on a schedule.
type RiskWorker struct {
	sweeper  Sweeper
	consumer Consumer
	config   Config
	logger   *log.Logger
}

// NewRiskWorker accepts a nil consumer, in which case only the schedule
// drives assessments.
func NewRiskWorker(sweeper Sweeper, consumer Consumer, config Config, logger *log.Logger) *RiskWorker {
	if config.StopTimeout <= 0 {
		config.StopTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RiskWorker{
		sweeper:  sweeper,
		consumer: consumer,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx ends or the consumer fails for good.
func (w *RiskWorker) Run(ctx context.Context) error {
	if w.consumer == nil && w.config.Schedule == "" {
		return errors.New("worker has neither a message consumer nor a schedule")
	}

	if w.config.StartupSweep {
		res, err := w.sweeper.Sweep(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Startup sweep failed", log.FieldError, err.Error())
		} else {
			w.logger.InfoContext(ctx, "Startup sweep complete",
				"assessed", res.Assessed, "escalations", res.Escalations, "failed", res.Failed)
		}
	}

	if w.config.Schedule != "" {
		if err := w.sweeper.Start(ctx, w.config.Schedule); err != nil {
			return fmt.Errorf("start risk sweep: %w", err)
		}
		defer w.stopSchedule()
		w.logger.InfoContext(ctx, "Risk sweep scheduled", "schedule", w.config.Schedule)
	}

	if w.consumer == nil {
		w.logger.InfoContext(ctx, "No message consumer configured, running on schedule only")
		<-ctx.Done()
		return nil
	}

	w.logger.InfoContext(ctx, "Consuming record changes")
	err := w.consumer.ConsumeRecordChanges(ctx, w.handle)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("consume record changes: %w", err)
}

func (w *RiskWorker) handle(ctx context.Context, msg *amqp.RecordChange) error {
	w.logger.DebugContext(ctx, "Record change received",
		log.FieldMessageID, msg.MessageID,
		log.FieldUserID, msg.UserID,
		"kind", msg.Kind,
		"action", msg.Action)
	return w.sweeper.HandleRecordChange(ctx, msg)
}

func (w *RiskWorker) stopSchedule() {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.StopTimeout)
	defer cancel()
	if err := w.sweeper.Stop(ctx); err != nil {
		w.logger.Warn("Risk sweep did not stop cleanly", log.FieldError, err.Error())
	}
}
