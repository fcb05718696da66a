package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"challenge_reminder_bot/internal/app"
	"challenge_reminder_bot/internal/domain/reminder"
	"challenge_reminder_bot/internal/infra/config"
	"challenge_reminder_bot/internal/infra/logger"
	"challenge_reminder_bot/internal/infra/scheduler"
	"challenge_reminder_bot/internal/infra/storage"
	"challenge_reminder_bot/internal/infra/telegram"
	"challenge_reminder_bot/internal/infra/telemetry"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.For("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":    cfg.LogLevel,
		"environment":  cfg.Environment,
		"store_driver": cfg.StoreDriver,
	}).Info("Challenge reminder bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry.Init()
	telemetry.Serve(ctx, cfg.MetricsAddr, logger.For("metrics"))

	// Initialize Storage
	docs, err := storage.Open(ctx, storage.Config{
		Driver:     cfg.StoreDriver,
		Dir:        cfg.StoreDir,
		DSN:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}, logger.For("storage"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open record store")
	}
	eventStore := storage.NewRecordStore[reminder.Event](docs, storage.KeyEvents)
	challengeStore := storage.NewRecordStore[reminder.Challenge](docs, storage.KeyChallenges)

	reminderScheduler := scheduler.NewCronScheduler(logger.For("scheduler"))

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.For("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID, "text": c.Text()})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	notifier := telegram.NewNotifier(telegram.NewTelebotAdapter(bot), cfg.NotifyRatePerSec, logger.For("notifier"))

	dispatcher := app.NewDispatcher(eventStore, challengeStore, reminderScheduler, notifier, logger.For("dispatcher"), cfg.NotifyTimeout)
	if err := dispatcher.Rehydrate(ctx); err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			mainLogger.WithError(err).Fatal("Stored records are corrupt; fix or move the file before restarting")
		}
		mainLogger.WithError(err).Fatal("Could not load stored records")
	}

	// Register Handlers
	telegram.RegisterBotCommands(bot, dispatcher, logger.For("telegram"))
	telegram.RegisterReminderHandlers(ctx, bot, dispatcher, logger.For("telegram"))
	if err := bot.SetCommands(telegram.Commands); err != nil {
		mainLogger.WithError(err).Warn("Could not publish command menu")
	}

	reminderScheduler.Start()

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		mainLogger.WithError(err).Warn("systemd readiness notification failed")
	} else if ok {
		mainLogger.Debug("systemd notified")
	}
	mainLogger.WithField("bot", bot.Me.Username).Info("Application setup complete. Bot and Scheduler are running.")

	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	done := make(chan struct{})
	go func() {
		bot.Stop()
		reminderScheduler.Stop() // waits for in-flight fires
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.NotifyTimeout + 5*time.Second):
		mainLogger.Warn("Shutdown timed out")
	}
	if err := docs.Close(); err != nil {
		mainLogger.WithError(err).Warn("Closing record store failed")
	}
	mainLogger.Info("Application shut down gracefully.")
}
