package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hazardwatch/alerting/internal/config"
	"github.com/hazardwatch/alerting/internal/events"
	"github.com/hazardwatch/alerting/internal/manager"
	"github.com/hazardwatch/alerting/internal/model"
	"github.com/hazardwatch/alerting/internal/monitor"
	"github.com/hazardwatch/alerting/internal/sender"
)

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return cfg.Build()
}

// buildSenders registers one sender per enabled channel.
func buildSenders(cfg config.SendersConfig, logger *zap.Logger) sender.Registry {
	registry := sender.Registry{}
	for _, name := range cfg.Enabled {
		switch model.Channel(name) {
		case model.ChannelConsole:
			registry[model.ChannelConsole] = sender.NewConsoleSender(os.Stdout)
		case model.ChannelEmail:
			registry[model.ChannelEmail] = sender.NewEmailSender(cfg.Email)
		case model.ChannelSMS:
			registry[model.ChannelSMS] = sender.NewSMSSender(cfg.SMS)
		case model.ChannelPush:
			registry[model.ChannelPush] = sender.NewPushSender(cfg.Push)
		case model.ChannelWebhook:
			registry[model.ChannelWebhook] = sender.NewWebhookSender(cfg.Webhook)
		case model.ChannelSlack:
			registry[model.ChannelSlack] = sender.NewSlackSender(cfg.Slack)
		case model.ChannelDiscord:
			registry[model.ChannelDiscord] = sender.NewDiscordSender(cfg.Discord)
		case model.ChannelTelegram:
			registry[model.ChannelTelegram] = sender.NewTelegramSender(cfg.Telegram)
		case model.ChannelPagerDuty:
			registry[model.ChannelPagerDuty] = sender.NewPagerDutySender(cfg.PagerDuty)
		default:
			logger.Warn("Unknown sender channel in config", zap.String("channel", name))
		}
	}
	return registry
}

// connectNATS connects with retry and reconnect handlers.
func connectNATS(cfg config.NATSConfig, appName string, logger *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(appName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var nc *nats.Conn
	var err error
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		nc, err = nats.Connect(cfg.URLs[0], opts...)
		if err == nil {
			return nc, nil
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return nil, err
}

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to NATS and set up the event publisher. A nil publisher is
	// valid and publishes nothing, so the rest of the wiring is unchanged
	// when NATS is disabled.
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		nc, err := connectNATS(cfg.NATS, cfg.App.Name, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
		}
		defer nc.Close()
		logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))

		js, err := nc.JetStream()
		if err != nil {
			logger.Fatal("Failed to create JetStream context", zap.Error(err))
		}
		publisher, err = events.NewPublisher(logger, js)
		if err != nil {
			logger.Fatal("Failed to create event publisher", zap.Error(err))
		}
	}

	senders := buildSenders(cfg.Senders, logger)
	alerts := manager.New(logger, senders, cfg.Escalation,
		manager.WithEvents(publisher),
		manager.WithQueueSize(cfg.Dispatch.QueueSize))

	for _, rc := range cfg.Recipients {
		recipient, err := rc.Recipient()
		if err != nil {
			logger.Fatal("Invalid recipient configuration", zap.Error(err))
		}
		alerts.AddRecipient(recipient)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := alerts.Start(ctx); err != nil {
		logger.Fatal("Failed to start alert manager", zap.Error(err))
	}

	watchdog := monitor.NewWatchdog(logger, cfg.Watchdog, alerts)
	if err := watchdog.Start(ctx); err != nil {
		logger.Fatal("Failed to start watchdog", zap.Error(err))
	}

	digest := monitor.NewDigest(logger, cfg.Digest, alerts)
	if err := digest.Start(); err != nil {
		logger.Fatal("Failed to start digest", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	digest.Stop()
	watchdog.Stop()
	alerts.Stop()
	cancel()

	logger.Info("Shut down gracefully")
}
