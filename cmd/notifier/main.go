package main // Entry point of the booking notification worker

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/config"
	"github.com/driesverstreepen/studio-reservations/internal/logger"
	"github.com/driesverstreepen/studio-reservations/internal/notifier"
	"github.com/driesverstreepen/studio-reservations/internal/queue"
)

func main() {
	_ = godotenv.Load()

	closeLog, err := logger.Init(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = closeLog() }()
	lg := logger.Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := config.AMQPURL()
	lg.Info("notifier started", zap.String("queue", queue.BookingConfirmedQueue))

	dispatcher := notifier.NewDispatcher(notifier.NewLogNotifier(lg))
	if err := queue.StartBookingConsumer(ctx, url, dispatcher, lg); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("consumer stopped", zap.Error(err))
	}
	lg.Info("notifier stopped")
}
