package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/library-seat-reservation/internal/config"
	"github.com/iliyamo/library-seat-reservation/internal/database"
	"github.com/iliyamo/library-seat-reservation/internal/handler"
	"github.com/iliyamo/library-seat-reservation/internal/job"
	"github.com/iliyamo/library-seat-reservation/internal/lock"
	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/notify"
	"github.com/iliyamo/library-seat-reservation/internal/presence"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/router"
	"github.com/iliyamo/library-seat-reservation/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	seats := repository.NewSeatRepo(db)
	resvs := repository.NewReservationRepo(db)
	occ := repository.NewOccupancyRepo(db)
	appeals := repository.NewAppealRepo(db)
	notifications := repository.NewNotificationRepo(db)
	sysCfg := repository.NewConfigRepo(db)

	// Collaborators.
	seatLock := lock.NewSeatLock(rdb)
	tracker := presence.NewTracker(rdb)
	notifier := notify.New(notifications)
	txr := database.TxRunner{DB: db}
	clock := service.RealClock{}

	// Services.
	resvSvc := service.NewReservationService(txr, seats, resvs, users, occ, sysCfg, seatLock, notifier, clock)
	seatSvc := service.NewSeatService(txr, seats, resvs, occ, notifier, clock)
	appealSvc := service.NewAppealService(appeals, resvs, notifier)
	sweeper := service.NewSweeper(txr, seats, resvs, users, occ, sysCfg, tracker, notifier, clock)

	// Background workers.
	go queue.StartEventConsumer()
	scheduler := job.NewScheduler(sweeper, sysCfg, clock, time.Duration(cfg.SweepInterval)*time.Second)
	go scheduler.Run(ctx)

	e := router.New(cfg.JWTSecret, router.Handlers{
		Health:        handler.NewHealthHandler(db),
		Auth:          handler.NewAuthHandler(cfg, users, tokens),
		Seats:         handler.NewSeatHandler(seatSvc),
		Reservations:  handler.NewReservationHandler(resvSvc, resvs),
		Appeals:       handler.NewAppealHandler(appealSvc),
		Presence:      handler.NewPresenceHandler(tracker),
		Notifications: handler.NewNotificationHandler(notifications),
		Admin:         handler.NewAdminHandler(resvSvc, appealSvc, sweeper, occ),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	addr := ":" + cfg.Port
	logger.Get().Info("server starting", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
