package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"repguard/internal/app"
	"repguard/internal/domain/evidence"
	domainNotify "repguard/internal/domain/notify"
	"repguard/internal/infra/config"
	idb "repguard/internal/infra/database"
	infraEvidence "repguard/internal/infra/evidence"
	"repguard/internal/infra/logger"
	infraNotify "repguard/internal/infra/notify"
	"repguard/internal/infra/scheduler"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	contractRepo := idb.NewPostgresContractRepository(db)
	clientRepo := idb.NewPostgresClientRepository(db)
	alertRepo := idb.NewPostgresAlertRepository(db)
	reminderRepo := idb.NewPostgresReminderRepository(db)

	logSender := infraNotify.NewLogSender(log)
	router := infraNotify.NewRouter(logSender)
	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
		}
		router.Register(domainNotify.MethodInApp, infraNotify.NewTelegramNotifier(bot))
		log.Info("Telegram transport registered for in-app delivery")
	}

	alertService := app.NewAlertService(alertRepo, router, log, cfg.NotifyTimeout)
	detectorService := app.NewDetectorService(contractRepo, alertService, log)
	reminderScheduler := app.NewReminderScheduler(reminderRepo, contractRepo, log)
	dispatcher := app.NewReminderDispatcher(reminderRepo, clientRepo, contractRepo, router, log, app.DispatcherConfig{
		BatchSize:   cfg.DispatchBatchSize,
		Parallelism: cfg.DispatchParallelism,
		RetryLimit:  cfg.DeliveryRetryLimit,
		StaleAfter:  cfg.ClaimStaleAfter,
	})
	contractService := app.NewContractService(contractRepo, reminderRepo, reminderScheduler, alertService, log)

	var feed evidence.Feed
	if cfg.EvidenceFeedURL != "" {
		feed = infraEvidence.NewHTTPFeed(cfg.EvidenceFeedURL, cfg.EvidenceFeedToken)
		log.Info("Evidence feed polling enabled")
	}

	engine := scheduler.NewEngine(dispatcher, reminderScheduler, contractService, detectorService, feed, log, scheduler.Specs{
		DispatchTick:     cfg.CronSpecDispatchTick,
		DailyMaintenance: cfg.CronSpecDailyMaintenance,
		EvidencePoll:     cfg.CronSpecEvidencePoll,
	})
	if err := engine.Start(); err != nil {
		log.Fatalf("FATAL: Could not start scheduler: %v", err)
	}

	log.Info("Application setup complete")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	engine.Stop()
	// Give in-flight alert notifications a moment to finish.
	time.Sleep(time.Second)
	log.Info("Application shut down gracefully")
}
