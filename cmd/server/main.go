package main // Entry point of the reservation API

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/config"
	"github.com/driesverstreepen/studio-reservations/internal/database"
	"github.com/driesverstreepen/studio-reservations/internal/handler"
	"github.com/driesverstreepen/studio-reservations/internal/logger"
	"github.com/driesverstreepen/studio-reservations/internal/metrics"
	"github.com/driesverstreepen/studio-reservations/internal/middleware"
	"github.com/driesverstreepen/studio-reservations/internal/queue"
	"github.com/driesverstreepen/studio-reservations/internal/repository"
	"github.com/driesverstreepen/studio-reservations/internal/reservation"
	"github.com/driesverstreepen/studio-reservations/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	closeLog, err := logger.Init(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = closeLog() }()
	lg := logger.Log()

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	db, err := database.Open(cfg)
	if err != nil {
		lg.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	rc := cfg.Reservation
	publisher := queue.NewPublisher(cfg.AMQPURL, lg, rc.NotifyTimeout)
	defer publisher.Close()

	ledger := reservation.NewRecorder(repository.NewLedgerRepo(db), lg, rc.LedgerBuffer, rc.LedgerWriteTimeout)

	svc := reservation.NewService(reservation.Stores{
		Pools:      repository.NewCreditPoolRepo(db),
		Bookings:   repository.NewBookingRepo(db),
		Catalog:    repository.NewOfferingRepo(db),
		Dependents: repository.NewDependentRepo(db),
	}, ledger, publisher, reservation.Options{
		MaxAttempts:       rc.MaxAttempts,
		ReadAttempts:      rc.ReadAttempts,
		ReadRetryDelay:    rc.ReadRetryDelay,
		CompensateTimeout: rc.CompensateTimeout,
		NotifyTimeout:     rc.NotifyTimeout,
	})

	limit, err := config.LoadRateLimitConfig()
	if err != nil {
		lg.Fatal("rate limit config", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger())

	router.RegisterRoutes(e, db, cfg.MetricsEnabled)
	router.RegisterReservations(e,
		handler.NewReservationHandler(svc),
		cfg.JWTSecret,
		middleware.NewTokenBucket(limit, rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	lg.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	// In-flight requests are done; flush what they queued for the ledger.
	ledger.Close()
	lg.Info("shutdown complete")
}
