// main wires the workflow service: store selection, queue cache, reporting
// relay and the HTTP server. Business logic lives under internal/workflow.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	jwttoken "losflow/internal/jwt_token"
	"losflow/internal/platform/config"
	"losflow/internal/platform/httpserver"
	"losflow/internal/platform/logger"
	platformmetrics "losflow/internal/platform/metrics"
	"losflow/internal/platform/postgres"
	platformredis "losflow/internal/platform/redis"
	"losflow/internal/reporting"
	"losflow/internal/reporting/outbox"
	"losflow/internal/reporting/publisher"
	"losflow/internal/reporting/worker"
	httptransport "losflow/internal/transport/http"
	"losflow/internal/workflow"
	workflowmetrics "losflow/internal/workflow/metrics"
	"losflow/internal/workflow/queuecache"
	"losflow/internal/workflow/service"
	"losflow/internal/workflow/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		appStore    store.ApplicationStore
		outboxStore reporting.Store
	)
	if db != nil {
		defer db.Close()
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		if err := outbox.EnsureSchema(ctx, db); err != nil {
			log.Error("outbox schema migration failed", "error", err)
			os.Exit(1)
		}
		appStore = store.NewPostgres(db).WithLockTimeout(cfg.Postgres.LockTimeout)
		outboxStore = outbox.NewPostgres(db)
		log.Info("using postgres application store")
	} else {
		appStore = store.NewInMemory().WithLockTimeout(cfg.Postgres.LockTimeout)
		outboxStore = outbox.NewMemory()
		log.Warn("no LOSFLOW_POSTGRES_URL set, using in-memory store")
	}

	engineOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(workflowmetrics.New()),
		service.WithReporting(outboxStore),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache := queuecache.New(redisClient.Client,
			queuecache.WithTTL(cfg.Redis.QueueTTL),
			queuecache.WithLogger(log),
		)
		engineOpts = append(engineOpts, service.WithQueueCache(cache))
		log.Info("queue cache enabled")
	}

	engine := workflow.NewEngine(appStore, engineOpts...)
	handler := workflow.NewHandler(engine, log)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	router := httptransport.NewRouter(handler, jwtService, platformmetrics.New(), log)
	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := publisher.Connect(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer pub.Close()

		relay := worker.NewRelay(outboxStore, pub,
			worker.WithInterval(cfg.Outbox.Interval),
			worker.WithBatchSize(cfg.Outbox.BatchSize),
			worker.WithLogger(log),
		)
		group.Go(func() error {
			if err := relay.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("reporting relay started", "topic", cfg.Kafka.Topic)
	} else {
		log.Warn("no LOSFLOW_KAFKA_BROKERS set, reporting relay disabled")
	}

	group.Go(func() error {
		log.Info("starting losflow server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
