package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-service/internal/config"
	"github.com/iliyamo/user-auth-service/internal/database"
	"github.com/iliyamo/user-auth-service/internal/handler"
	"github.com/iliyamo/user-auth-service/internal/logger"
	"github.com/iliyamo/user-auth-service/internal/middleware"
	"github.com/iliyamo/user-auth-service/internal/queue"
	"github.com/iliyamo/user-auth-service/internal/repository"
	"github.com/iliyamo/user-auth-service/internal/router"
	"github.com/iliyamo/user-auth-service/internal/service"

	"github.com/iliyamo/user-auth-service/internal/auth"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		zlog.Fatal("connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	codec := auth.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	events := queue.NewPublisher(zlog)

	authSvc := service.NewAuthService(users, tokens, codec, events, zlog, cfg.BcryptCost)
	userSvc := service.NewUserService(users, tokens, events, zlog, cfg.BcryptCost)

	// Redis only backs the rate limiter; a nil client makes it fail open.
	rdb := config.NewRedisClient()
	if rdb == nil {
		zlog.Warn("redis unavailable, rate limiting disabled")
	}

	go queue.StartAuditConsumer(zlog)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(zlog, cfg.Env)
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Auth:        handler.NewAuthHandler(authSvc, cfg.CookieSecure),
		Users:       handler.NewUserHandler(userSvc),
		AccessGate:  middleware.Authenticate(codec, users),
		RefreshGate: middleware.RequireRefreshToken(),
		RateLimit:   middleware.RateLimit(config.LoadRateLimitConfig(), rdb, zlog),
	})

	addr := ":" + cfg.Port
	zlog.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
