package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/api"
	"github.com/lorekeep/skillforge/internal/config"
	"github.com/lorekeep/skillforge/internal/notify"
	"github.com/lorekeep/skillforge/internal/push"
	"github.com/lorekeep/skillforge/internal/service"
	"github.com/lorekeep/skillforge/internal/signal"
	"github.com/lorekeep/skillforge/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Skillforge...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/skillforge.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize PostgreSQL store
	if cfg.Database.Postgres.DSN == "" {
		logger.Fatal("postgres DSN is required")
	}
	st, err := store.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if mErr := st.Migrate(context.Background(), cfg.MigrationsDir); mErr != nil {
		logger.Fatal("migration failed", zap.Error(mErr))
	}

	// Publishers: websocket hub always; Redis bus and chat notifiers when configured.
	hub := push.NewHub(logger)
	publishers := []service.Publisher{hub}

	var bus *signal.Bus
	if cfg.Database.Redis.URL != "" {
		b, busErr := signal.NewBus(cfg.Database.Redis.URL, signal.Config{
			Channels:  cfg.Signal.Channels,
			MaxStream: cfg.Signal.MaxStream,
		}, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without event bus", zap.Error(busErr))
		} else {
			bus = b
			publishers = append(publishers, bus)
		}
	}

	gw := notify.NewGateway(logger)
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.BotToken != "" {
		gw.Register(notify.NewSlackAdapter(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, logger))
	}
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.BotToken != "" {
		discordAdapter, dErr := notify.NewDiscordAdapter(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.ChannelID, logger)
		if dErr != nil {
			logger.Warn("Discord unavailable, running without Discord notifications", zap.Error(dErr))
		} else {
			gw.Register(discordAdapter)
		}
	}
	if len(gw.Adapters()) > 0 {
		publishers = append(publishers, gw)
	}

	svc := service.New(st, logger, publishers...)
	handler := api.NewHandler(svc, hub, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Skillforge listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Skillforge...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	hub.Close()
	if bus != nil {
		bus.Close()
	}
	gw.Close()
	st.Close()
}
