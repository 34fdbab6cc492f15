package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/quanghuy/fieldbook/internal/config"
	"github.com/quanghuy/fieldbook/internal/database"
	"github.com/quanghuy/fieldbook/internal/gateway"
	"github.com/quanghuy/fieldbook/internal/handler"
	"github.com/quanghuy/fieldbook/internal/middleware"
	"github.com/quanghuy/fieldbook/internal/queue"
	"github.com/quanghuy/fieldbook/internal/repository"
	"github.com/quanghuy/fieldbook/internal/router"
	"github.com/quanghuy/fieldbook/internal/service"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpen,
		MaxIdleConns:    cfg.DBMaxIdle,
		ConnMaxLifetime: time.Duration(cfg.DBConnLifeMin) * time.Minute,
	})
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()

	loc, err := time.LoadLocation(cfg.BookingTimezone)
	if err != nil {
		log.WithError(err).WithField("zone", cfg.BookingTimezone).Fatal("invalid booking timezone")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	wallets := repository.NewWalletRepo(db)
	bookingsRepo := repository.NewBookingRepo(db)
	fields := repository.NewFieldRepo(db)
	payments := repository.NewPaymentRepo(db)
	topupsRepo := repository.NewTopupRepo(db)

	// Services.
	ledger := service.NewLedger(wallets, log)
	publisher := queue.NewPublisher(cfg.RabbitURL, log)
	bookings := service.NewBookingService(bookingsRepo, fields, ledger, publisher, service.BookingPolicy{
		MinHours:     cfg.MinBookingHours,
		MaxHours:     cfg.MaxBookingHours,
		OpenTime:     cfg.OpenTime,
		CloseTime:    cfg.CloseTime,
		CancelWindow: time.Duration(cfg.PendingTTLMin) * time.Minute,
		Location:     loc,
	}, nil, log)
	topups := service.NewTopupService(topupsRepo, ledger, log)
	momo := gateway.NewMomoClient(gateway.MomoConfig{
		Endpoint:    cfg.MomoEndpoint,
		PartnerCode: cfg.MomoPartnerCode,
		AccessKey:   cfg.MomoAccessKey,
		SecretKey:   cfg.MomoSecretKey,
		RedirectURL: cfg.MomoRedirectURL,
		IPNURL:      cfg.MomoIPNURL,
	})
	paySvc := service.NewPaymentService(payments, bookings, momo, log)
	sweeper := service.NewSweeper(bookingsRepo, ledger,
		time.Duration(cfg.PendingTTLMin)*time.Minute,
		time.Duration(cfg.SweepIntervalMin)*time.Minute, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Start(ctx)
	go queue.StartBookingConsumer(cfg.RabbitURL, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens, wallets),
		Wallet:  handler.NewWalletHandler(ledger, topups),
		Booking: handler.NewBookingHandler(bookings, bookingsRepo, users),
		Field:   handler.NewFieldHandler(fields),
		Payment: handler.NewPaymentHandler(paySvc),
		Admin:   handler.NewAdminHandler(bookings, bookingsRepo, topups, paySvc, ledger, users),
	}, router.Middleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
		if err := e.Start(addr); err != nil {
			log.WithError(err).Info("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
