package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/lead-orchestrator/internal/cache"
	"github.com/xavierca1/lead-orchestrator/internal/config"
	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/database"
	"github.com/xavierca1/lead-orchestrator/internal/infra/http/handlers"
	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
	"github.com/xavierca1/lead-orchestrator/internal/infra/mail"
	"github.com/xavierca1/lead-orchestrator/internal/infra/metrics"
	"github.com/xavierca1/lead-orchestrator/internal/infra/queue"
	"github.com/xavierca1/lead-orchestrator/internal/infra/worker"
	"github.com/xavierca1/lead-orchestrator/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logrus.WithField("component", "main")

	// 1. Backend client and cache
	api := leadapi.NewClient(cfg.LeadsAPIURL, cfg.LeadsAPITimeout)
	store := usecase.NewLeadStore(cache.New(cfg.CacheTTL), api, cfg.ListLimit)
	coordinator := usecase.NewCoordinator(store, cfg.SearchGrace)
	defer coordinator.Stop()

	// 2. Settle observers
	observers := []entity.ActionObserver{metrics.ActionObserver{}}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		conn, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := database.EnsureSchema(ctx, conn); err != nil {
			return err
		}
		db = conn
		observers = append(observers, database.NewActionRepository(db))
		log.Info("action journal enabled")
	}

	var rabbit *queue.RabbitMQ
	if cfg.AMQPURL != "" {
		mq, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer mq.Close()
		rabbit = mq
		observers = append(observers, queue.NewProducer(rabbit.Ch))
		log.Info("settle events enabled")
	}

	if cfg.AlertsEnabled() {
		observers = append(observers, mail.NewAlertSender(mail.EmailSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.AlertFrom,
			To:       cfg.OperatorEmail,
		}))
		log.Infof("failure alerts go to %s", cfg.OperatorEmail)
	}

	// 3. Use cases
	dispatcher := usecase.NewDispatcher(api, store, coordinator, cfg.ActionTimeout, observers...)
	defer dispatcher.Wait()
	views := usecase.NewLeadViews(store, dispatcher, cfg.StatsLimit)

	// 4. HTTP
	limiter := handlers.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	var broker handlers.BrokerProbe
	if rabbit != nil {
		broker = rabbit
	}
	router := newRouter(cfg, handlers.Set{
		Leads:     handlers.NewLeadHandler(views, dispatcher),
		Actions:   handlers.NewActionHandler(dispatcher),
		Dashboard: handlers.NewDashboardHandler(views),
		Refresh:   handlers.NewRefreshHandler(coordinator),
		Health:    handlers.NewHealthHandler(api, db, broker),
		Limiter:   limiter,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Workers and server
	g, gctx := errgroup.WithContext(ctx)

	sweeper := worker.NewSweepWorker(store, dispatcher, cfg.SweepInterval, cfg.HandleRetention)
	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})

	if rabbit != nil {
		events := queue.NewWorker(rabbit.Ch, coordinator)
		g.Go(func() error {
			return events.Start(gctx, queue.SearchCompletedQueue)
		})
	}

	g.Go(func() error {
		log.WithField("backend", cfg.LeadsAPIURL).Infof("lead orchestrator listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
