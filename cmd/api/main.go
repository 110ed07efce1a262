package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"hallbooking/internal/events"
	"hallbooking/internal/hall"
	"hallbooking/internal/httpapi"
	"hallbooking/internal/lock"
	"hallbooking/internal/reservation"
	"hallbooking/internal/scheduling"
	"hallbooking/internal/timerange"
	"hallbooking/pkg/config"
	"hallbooking/pkg/db"
	"hallbooking/pkg/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		halls hall.Repository
		store reservation.Store
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		halls = hall.NewMemoryRepository()
		store = reservation.NewMemoryStore()
	case "postgres":
		if cfg.MigrationsPath != "" {
			version, err := db.Migrate(cfg.MigrationsPath, cfg)
			if err != nil {
				log.WithError(err).Fatal("migrate")
			}
			log.WithField("schema_version", version).Info("migrations applied")
		}
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			log.WithError(err).Fatal("db open")
		}
		defer conn.Close()
		halls = hall.NewPGRepository(conn)
		store = reservation.NewPGStore(conn, cfg.LockTimeout)
	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	var locker lock.Locker = lock.NewLocal(cfg.LockTimeout)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis url")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("redis ping")
		}
		locker = lock.NewRedis(client, cfg.LockTimeout, log)
		log.Info("using redis hall lock")
	}

	publishers := events.Multi{events.LogPublisher{Log: log}}
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.WithError(err).Fatal("amqp connect")
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
	}
	dispatcher := events.NewDispatcher(publishers, 0, log)
	// Runs before the AMQP close above so queued events still go out.
	defer dispatcher.Close()

	svc := scheduling.NewService(halls, store, locker, timerange.SystemClock{}, dispatcher, log, scheduling.Options{
		HorizonDays: cfg.HorizonDays,
		Location:    cfg.Location,
		MaxAttempts: cfg.ContentionRetries,
	})

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg: cfg,
		Log: log,
		Svc: svc,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "store": cfg.StoreDriver}).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http serve")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}
