package main

import (
	"chatlounge/backend/internal/api/handler"
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/config"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/localization"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/ratelimit"
	"chatlounge/backend/internal/realtime"
	"chatlounge/backend/internal/rooms"
	"chatlounge/backend/internal/storage"
	"chatlounge/backend/internal/telegram"
	"chatlounge/backend/internal/worker"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("Failed to connect PostgreSQL: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(cfg.RedisOptions())
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect Redis: %v", err)
	}

	logrus.Info("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	log := logrus.StandardLogger()
	cfg.ConfigureLogger(log)
	log.Info("Starting ChatLounge backend...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(ctx, cfg)
	defer rdb.Close()
	store := storage.NewStorageService(db)

	loc, err := localization.NewLocalizer()
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	// 2. Сервіси
	hub := chathub.NewManagerService(chathub.NewRelay(rdb, cfg.RedisKeyPrefix+"broadcast"))
	chat := randomchat.NewService(store, randomchat.NewRandomPicker(), cfg.IdleTimeout, time.Now)
	roomSvc := rooms.NewService(store, time.Now)
	posts := realtime.NewBroadcaster(hub, chat, roomSvc)

	if _, err := roomSvc.EnsureDefaultRoom(ctx); err != nil {
		log.Fatalf("Failed to create default room: %v", err)
	}

	guard := ratelimit.NewGuard(
		ratelimit.NewLimiter(rdb, cfg.RedisKeyPrefix, cfg.ThrottleLimit, cfg.ThrottleWindow),
		ratelimit.NewBlocker(rdb, cfg.RedisKeyPrefix),
		chat,
		cfg.AnonBlock,
	)
	auth := identity.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)

	// 3. Фонові goroutines
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Hub relay stopped: %v", err)
		}
	}()

	workerServer := worker.NewWorkerServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, chat.Keeper, cfg.SweepSchedule, log)
	go func() {
		if err := workerServer.Start(); err != nil {
			log.Errorf("Worker server stopped: %v", err)
		}
	}()

	if cfg.TelegramToken != "" {
		botService, err := telegram.NewBotService(cfg.TelegramToken, posts, guard, loc, cfg.Language)
		if err != nil {
			log.Fatalf("Не вдалося запустити Telegram-бота: %v", err)
		}
		go botService.Start(ctx)
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}

	// 4. Налаштування Gin та роутингу
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(log))
	handler.NewHandler(posts, auth, guard, loc, cfg.Language).Register(r)

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}
	workerServer.Shutdown()
	log.Info("Bye.")
}
