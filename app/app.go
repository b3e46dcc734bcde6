package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Black-And-White-Club/consensus-rank/app/eventbus"
	"github.com/Black-And-White-Club/consensus-rank/app/modules/player"
	"github.com/Black-And-White-Club/consensus-rank/app/modules/ranking"
	rankingarchive "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/archive"
	"github.com/Black-And-White-Club/consensus-rank/app/modules/user"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"github.com/Black-And-White-Club/consensus-rank/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// App holds the process-wide resources and the modules built on them.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	Redis         redis.UniversalClient
	EventBus      eventbus.EventBus
	Router        *message.Router
	HTTPRouter    chi.Router

	PlayerModule  *player.Module
	UserModule    *user.Module
	RankingModule *ranking.Module

	httpServer    *http.Server
	metricsServer *http.Server
	wg            sync.WaitGroup
}

// Initialize connects to the backing services and builds every module.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, obs *observability.Observability) error {
	app.Config = cfg
	app.Observability = obs
	logger := obs.Logger

	// Database
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	app.DB = bun.NewDB(pgdb, pgdialect.New())
	if err := app.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	logger.InfoContext(ctx, "Connected to postgres")

	// Cache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		app.Redis = redis.NewClient(opts)
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			logger.WarnContext(ctx, "Redis unreachable at startup, cache will retry per request", "error", err)
		}
	}

	// Event bus
	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewEventBus(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus
	} else {
		app.EventBus = eventbus.NewInProcessEventBus(logger)
	}

	router, err := NewMessageRouter(logger)
	if err != nil {
		return err
	}
	app.Router = router
	app.HTTPRouter = NewHTTPRouter(obs, cfg.Observability.MetricsAddress == "")

	if err := app.initializeModules(ctx); err != nil {
		return err
	}

	app.HTTPRouter.Get("/healthz", healthHandler(app.healthChecks()))
	return nil
}

func (app *App) initializeModules(ctx context.Context) error {
	obs := app.Observability
	cfg := app.Config

	playerModule, err := player.NewPlayerModule(ctx, obs, app.DB, app.HTTPRouter)
	if err != nil {
		return fmt.Errorf("failed to initialize player module: %w", err)
	}
	app.PlayerModule = playerModule

	userModule, err := user.NewUserModule(ctx, obs, app.DB, app.Router, app.EventBus, app.EventBus, app.HTTPRouter)
	if err != nil {
		return fmt.Errorf("failed to initialize user module: %w", err)
	}
	app.UserModule = userModule

	rankingModule, err := ranking.NewRankingModule(ctx, obs, ranking.Config{
		DSN:                 cfg.Postgres.DSN,
		DefaultType:         cfg.Ranking.DefaultType,
		StorageTimeout:      cfg.Ranking.StorageTimeout,
		RetentionDays:       cfg.Ranking.RetentionDays,
		TruncateToType:      cfg.Ranking.TruncateToTypeEnabled(),
		AggregationInterval: cfg.Ranking.AggregationInterval,
		QueueEnabled:        cfg.Ranking.QueueIsEnabled(),
		CacheTTL:            cfg.Redis.CacheTTL,
		Archive: rankingarchive.Config{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			Endpoint:        cfg.Archive.Endpoint,
			Region:          cfg.Archive.Region,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		},
	}, ranking.Deps{
		DB:         app.DB,
		Router:     app.Router,
		Subscriber: app.EventBus,
		Publisher:  app.EventBus,
		HTTPRouter: app.HTTPRouter,
		Redis:      app.Redis,
		Players:    playerModule.PlayerService,
		Users:      userModule.UserService,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ranking module: %w", err)
	}
	app.RankingModule = rankingModule
	return nil
}

// Run starts the message router, the modules and the HTTP servers, and
// blocks until ctx is cancelled or a server fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	errCh := make(chan error, 3)
	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("message router stopped: %w", err)
		}
	}()
	<-app.Router.Running()

	app.wg.Add(3)
	go app.PlayerModule.Run(ctx, &app.wg)
	go app.UserModule.Run(ctx, &app.wg)
	go app.RankingModule.Run(ctx, &app.wg)

	app.httpServer = newServer(app.Config.HTTP, app.HTTPRouter)
	go func() {
		logger.Info("HTTP server listening", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if addr := app.Config.Observability.MetricsAddress; addr != "" {
		app.metricsServer = newMetricsServer(addr, app.Observability.Registry)
		go func() {
			logger.Info("Metrics server listening", "address", addr)
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops servers, modules and connections in reverse start order.
func (app *App) Close(ctx context.Context) error {
	logger := app.Observability.Logger
	var errs []error

	for _, srv := range []*http.Server{app.httpServer, app.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if app.RankingModule != nil {
		if err := app.RankingModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.UserModule != nil {
		if err := app.UserModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.PlayerModule != nil {
		if err := app.PlayerModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.wg.Wait()

	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("message router close: %w", err))
		}
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus close: %w", err))
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}

	logger.Info("Application shut down")
	return errors.Join(errs...)
}
