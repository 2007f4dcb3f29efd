package main

import (
	"collegemate/backend/internal/api/handler"
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/config"
	"collegemate/backend/internal/hub"
	"collegemate/backend/internal/localization"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/session"
	"collegemate/backend/internal/storage"
	"collegemate/backend/internal/telegram"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	// Перевірка з'єднання Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to connect Redis", zap.Error(err))
	}

	logger.Info("database and redis connections established")
	return db, rdb
}

// startBot runs the Telegram bot when both tokens are configured.
func startBot(ctx context.Context, cfg *config.Config, reg *session.Registry, h *hub.Manager, s *storage.Service, logger *zap.Logger) {
	if cfg.TelegramBotToken == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
		return
	}
	if cfg.BotUpstreamToken == "" {
		logger.Warn("BOT_UPSTREAM_TOKEN not set, bot disabled")
		return
	}

	loc, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		logger.Fatal("failed to load locales", zap.Error(err))
	}
	sess, err := reg.Get(apiclient.Credentials{Bearer: cfg.BotUpstreamToken}, models.RoleStudent, "")
	if err != nil {
		logger.Fatal("failed to open bot session", zap.Error(err))
	}
	bot, err := telegram.NewBotService(cfg.TelegramBotToken, h, sess, s, loc, logger)
	if err != nil {
		logger.Fatal("failed to start telegram bot", zap.Error(err))
	}
	if err := bot.RestoreWatches(); err != nil {
		logger.Error("failed to restore watches", zap.Error(err))
	}
	go bot.Run(ctx)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("bad configuration", zap.Error(err))
	}
	logger.Info("starting College Mate gateway", zap.String("upstream", cfg.UpstreamBaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Залежності
	db, rdb := setupDependencies(cfg, logger)
	s := storage.NewStorageService(db, rdb, logger)
	if err := s.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// 2. Сесії та хаб
	reg := session.NewRegistry(cfg.UpstreamBaseURL, s,
		session.WithLogger(logger),
		session.WithKeepUnusedFor(cfg.KeepUnusedFor),
		session.WithIdleTTL(cfg.SessionIdleTTL),
	)
	h := hub.NewManager(reg, logger)

	go h.Run(ctx)
	h.StartPubSubListener(ctx, s)

	go func() {
		ticker := time.NewTicker(config.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := reg.Reap(); n > 0 {
					logger.Debug("reaped sessions", zap.Int("count", n))
				}
			}
		}
	}()

	startBot(ctx, cfg, reg, h, s, logger)

	// 3. HTTP
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger.Named("http")))
	r.MaxMultipartMemory = config.MaxUploadBytes

	api := handler.NewHandler(reg, h, s, logger)
	api.AllowedOrigins = cfg.CORSOrigins
	api.Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        c.Handler(r),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	<-h.Done()
	for _, sess := range reg.Sessions() {
		sess.Cache.Wait()
	}
	if err := rdb.Close(); err != nil {
		logger.Warn("redis close failed", zap.Error(err))
	}
}
