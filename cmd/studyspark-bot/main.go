package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/handlers"
	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/middleware"
	"github.com/studyspark-go/internal/services/backend"
	"github.com/studyspark-go/internal/services/storage"
	"github.com/studyspark-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err == nil {
		err = cfg.ValidateBot()
	}
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := middleware.NewMetrics()
	if cfg.Monitoring.Metrics.Enabled {
		go serveMetrics(cfg.Monitoring.Metrics, log)
	}

	collaborators, closeCollaborators, err := newCollaborators(cfg, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize collaborators")
	}
	defer closeCollaborators()

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	sessions := handlers.NewSessions(handlers.Deps{
		Config:    cfg,
		Bot:       bot,
		Backend:   collaborators,
		Localizer: localizer,
		Limiter:   middleware.NewRateLimiter(cfg, log),
		Metrics:   metrics,
		Logger:    log,
	})
	commands := handlers.NewCommandHandler(sessions)
	messages := handlers.NewMessageHandler(sessions)

	updates := listen(bot, cfg.Bot, log)
	go dispatch(ctx, updates, commands, messages, metrics, log)
	go reportSessions(ctx, sessions, metrics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}
	bot.StopReceivingUpdates()

	// in-flight submissions see their context end
	cancel()
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}

// newCollaborators answers in-process in standalone mode and calls the
// remote API otherwise. The returned func releases storage.
func newCollaborators(cfg *config.Config, metrics *middleware.Metrics, log *logrus.Logger) (handlers.Backend, func(), error) {
	log.WithFields(logrus.Fields{
		"mode":     cfg.Backend.Mode,
		"base_url": cfg.Backend.BaseURL,
	}).Info("Connecting collaborators")

	if cfg.Backend.Mode != "standalone" {
		return backend.NewClient(cfg.Backend, log), func() {}, nil
	}

	store, err := storage.NewManager(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	local, err := backend.NewLocalFromConfig(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return local.WithMetrics(metrics), func() { store.Close() }, nil
}

// listen registers a webhook when configured and falls back to long polling
func listen(bot *tgbotapi.BotAPI, cfg config.BotConfig, log *logrus.Logger) tgbotapi.UpdatesChannel {
	if !cfg.Webhook.Enabled {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.UpdateTimeout
		log.Info("Using long polling")
		return bot.GetUpdatesChan(u)
	}

	webhook, err := tgbotapi.NewWebhook(fmt.Sprintf("%s/%s", cfg.Webhook.URL, bot.Token))
	if err != nil {
		log.WithError(err).Fatal("Failed to create webhook")
	}
	if _, err := bot.Request(webhook); err != nil {
		log.WithError(err).Fatal("Failed to set webhook")
	}

	updates := bot.ListenForWebhook("/" + bot.Token)
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Webhook.Port), nil); err != nil {
			log.WithError(err).Fatal("Webhook server failed")
		}
	}()
	log.WithField("port", cfg.Webhook.Port).Info("Webhook set")
	return updates
}

func dispatch(ctx context.Context, updates tgbotapi.UpdatesChannel, commands *handlers.CommandHandler, messages *handlers.MessageHandler, metrics *middleware.Metrics, log *logrus.Logger) {
	for update := range updates {
		update := update

		switch {
		case update.CallbackQuery != nil:
			if err := commands.HandleCallbackQuery(ctx, &update); err != nil {
				log.WithError(err).Error("Failed to handle callback query")
			}
		case update.Message == nil:
		case update.Message.IsCommand():
			metrics.RecordCommandExecuted(update.Message.Command())
			if err := commands.HandleCommand(ctx, &update); err != nil {
				log.WithError(err).WithField("command", update.Message.Command()).Error("Failed to handle command")
			}
		default:
			if err := messages.HandleMessage(ctx, &update); err != nil {
				log.WithError(err).Error("Failed to handle message")
			}
		}
	}
}

func serveMetrics(cfg config.MetricsConfig, log *logrus.Logger) {
	log.WithFields(logrus.Fields{
		"port": cfg.Port,
		"path": cfg.Path,
	}).Info("Starting metrics server")

	if err := middleware.StartMetricsServer(cfg.Port, cfg.Path); err != nil {
		log.WithError(err).Error("Metrics server failed")
	}
}

// reportSessions keeps the active session gauge current as sessions expire
func reportSessions(ctx context.Context, sessions *handlers.Sessions, metrics *middleware.Metrics) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetActiveSessions(sessions.Count())
		}
	}
}
