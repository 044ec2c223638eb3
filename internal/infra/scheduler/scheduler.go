package scheduler

import (
	"context"
	"time"

	"repguard/internal/app"
	"repguard/internal/domain/evidence"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Specs carries the cron expressions for the engine's periodic jobs.
type Specs struct {
	DispatchTick     string // e.g. "*/5 * * * *"
	DailyMaintenance string // e.g. "0 6 * * *"
	EvidencePoll     string // e.g. "*/30 * * * *"
}

// Engine wires the periodic jobs: the dispatcher tick, the daily maintenance
// pass (batch reminder setup plus the expiration sweep) and the evidence
// feed poll. Cron is the only place that reads the wall clock; every service
// call below takes the captured instant explicitly.
type Engine struct {
	cronEngine *cron.Cron
	dispatcher *app.ReminderDispatcher
	scheduler  *app.ReminderScheduler
	contracts  *app.ContractService
	detector   *app.DetectorService
	feed       evidence.Feed // nil disables polling
	log        *logrus.Logger
	specs      Specs
}

func NewEngine(
	dispatcher *app.ReminderDispatcher,
	reminderScheduler *app.ReminderScheduler,
	contracts *app.ContractService,
	detector *app.DetectorService,
	feed evidence.Feed,
	log *logrus.Logger,
	specs Specs,
) *Engine {
	return &Engine{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		dispatcher: dispatcher,
		scheduler:  reminderScheduler,
		contracts:  contracts,
		detector:   detector,
		feed:       feed,
		log:        log,
		specs:      specs,
	}
}

// Start registers the jobs and starts the cron loop.
func (e *Engine) Start() error {
	if _, err := e.cronEngine.AddFunc(e.specs.DispatchTick, e.runDispatchTick); err != nil {
		return err
	}
	if _, err := e.cronEngine.AddFunc(e.specs.DailyMaintenance, e.runDailyMaintenance); err != nil {
		return err
	}
	if e.feed != nil {
		if _, err := e.cronEngine.AddFunc(e.specs.EvidencePoll, e.runEvidencePoll); err != nil {
			return err
		}
	}
	e.cronEngine.Start()
	e.log.Info("Scheduler started")
	return nil
}

func (e *Engine) runDispatchTick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := e.dispatcher.ProcessDue(ctx, time.Now())
	if err != nil {
		e.log.WithError(err).Error("Dispatch tick failed")
		return
	}
	if res.Claimed > 0 {
		e.log.WithFields(logrus.Fields{
			"claimed": res.Claimed,
			"sent":    res.Sent,
			"failed":  res.Failed,
		}).Info("Dispatch tick completed")
	}
}

func (e *Engine) runDailyMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	now := time.Now()

	setup, err := e.scheduler.SetupAllActive(ctx, now)
	if err != nil {
		e.log.WithError(err).Error("Daily reminder setup failed; will retry on next run")
	}
	raised, err := e.contracts.ScanExpirations(ctx, now)
	if err != nil {
		e.log.WithError(err).Error("Expiration sweep reported errors; will retry on next run")
	}
	e.log.WithFields(logrus.Fields{
		"contracts_processed": setup.ContractsProcessed,
		"reminders_created":   setup.RemindersCreated,
		"alerts_raised":       raised,
	}).Info("Daily maintenance completed")
}

func (e *Engine) runEvidencePoll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	records, err := e.feed.Pull(ctx)
	if err != nil {
		e.log.WithError(err).Error("Evidence feed pull failed")
		return
	}
	raised, err := e.detector.IngestBatch(ctx, records, time.Now())
	if err != nil {
		e.log.WithError(err).Error("Evidence ingestion reported errors")
	}
	if len(records) > 0 {
		e.log.WithFields(logrus.Fields{
			"records": len(records),
			"raised":  raised,
		}).Info("Evidence poll completed")
	}
}

// Stop halts the cron loop and waits for running jobs to finish.
func (e *Engine) Stop() {
	ctx := e.cronEngine.Stop()
	<-ctx.Done()
	e.log.Info("Scheduler stopped")
}
