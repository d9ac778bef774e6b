package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"discord-antinuke-bot/internal/antinuke"
	"discord-antinuke-bot/internal/antinuke/core"
	"discord-antinuke-bot/internal/antinuke/detector"
	"discord-antinuke-bot/internal/antinuke/mitigation"
	"discord-antinuke-bot/internal/bot"
	"discord-antinuke-bot/internal/cache"
	commands "discord-antinuke-bot/internal/commands/antinuke"
	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/database"
	"discord-antinuke-bot/internal/engine/auditor"
	"discord-antinuke-bot/internal/engine/loop"
	"discord-antinuke-bot/internal/metrics"
	"discord-antinuke-bot/internal/redis"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	defaultPath := "bot.yaml"
	if p := os.Getenv("BOT_CONFIG"); p != "" {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "path to the bot configuration file")
	flag.Parse()

	cfg, err := config.LoadBotConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load bot config", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(cfg *config.BotConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Attribution cache: ristretto in front, Redis behind when configured
	var l2 cache.RemoteStore
	if cfg.Redis.Enabled() {
		rdb, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		l2 = rdb
		logger.Info("redis attribution cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	attrCache, err := cache.New(l2, cache.Config{DefaultTTL: cfg.AttributionTTL})
	if err != nil {
		return err
	}
	defer attrCache.Close()

	var store config.Store
	switch cfg.SettingsBackend {
	case config.BackendPostgres:
		db, err := database.NewDatabase(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db.Settings(cfg.GuildID)
		logger.Info("settings stored in postgres", zap.String("host", cfg.Postgres.Host))
	default:
		store = config.NewFileStore(cfg.SettingsPath)
		logger.Info("settings stored in file", zap.String("path", cfg.SettingsPath))
	}

	settings := config.NewManager(store, logger)
	if err := settings.Load(ctx); err != nil {
		logger.Warn("running with unsaved default settings", zap.Error(err))
	}

	session, err := bot.NewSession(cfg.Token)
	if err != nil {
		return err
	}

	eventLoop := loop.New(cfg.EventQueueSize, logger)
	svc := antinuke.New(antinuke.Options{
		GuildID:     cfg.GuildID,
		Settings:    settings,
		Detector:    detector.NewViolationDetector(core.NewActorEventTracker(cfg.MaxTrackedActors)),
		Mitigator:   mitigation.NewAction(session, logger),
		Resolver:    auditor.NewResolver(session, attrCache, cfg.AuditLookupLimit, logger),
		Loop:        eventLoop,
		Logger:      logger,
		Attribution: cfg.Attribution,
	})
	handler := commands.NewHandler(svc, bot.ChannelLookup{Session: session, GuildID: cfg.GuildID}, logger)
	b := bot.New(session, svc, handler, cfg, logger)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		eventLoop.Run(ctx)
	}()

	if cfg.MetricsAddr != "" {
		go metrics.Serve(ctx, cfg.MetricsAddr, logger)
	}
	go svc.RunSweeper(ctx, cfg.SweepInterval)

	if err := b.Start(ctx); err != nil {
		stop()
		<-loopDone
		return err
	}
	logger.Info("anti-nuke running", zap.String("guild", cfg.GuildID))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := b.Close(); err != nil {
		logger.Warn("gateway close failed", zap.Error(err))
	}
	<-loopDone
	return nil
}
