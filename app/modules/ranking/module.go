package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rankingservice "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingarchive "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/archive"
	rankingcache "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/cache"
	rankinghandlers "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/handlers"
	rankingqueue "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/queue"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	rankingrouter "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/router"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// Config carries the ranking settings the module needs.
type Config struct {
	DSN                 string
	DefaultType         int
	StorageTimeout      time.Duration
	RetentionDays       int
	TruncateToType      bool
	AggregationInterval time.Duration
	// QueueEnabled starts River workers and periodic jobs. Without it,
	// requested rebuilds run inline.
	QueueEnabled bool
	CacheTTL     time.Duration
	Archive      rankingarchive.Config
}

// Deps are collaborators owned by other modules or the app.
type Deps struct {
	DB         *bun.DB
	Router     *message.Router
	Subscriber message.Subscriber
	Publisher  message.Publisher
	HTTPRouter chi.Router
	Redis      redis.UniversalClient
	Players    rankingservice.PlayerCatalog
	Users      rankinghandlers.UserDirectory
}

// Module represents the ranking module.
type Module struct {
	RankingService rankingservice.Service
	RankingRouter  *rankingrouter.RankingRouter
	QueueService   rankingqueue.QueueService
	logger         *slog.Logger
	cancelFunc     context.CancelFunc
}

// NewRankingModule creates and initializes the ranking module.
func NewRankingModule(ctx context.Context, obs *observability.Observability, cfg Config, deps Deps) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "ranking.NewRankingModule initializing")

	// 1. Repository and metrics
	repo := rankingdb.NewRepository(deps.DB)
	serviceMetrics := metrics.NewPrometheusMetrics(obs.Registry, "consensus", "ranking")

	// 2. Service
	opts := []rankingservice.Option{
		rankingservice.WithStorageTimeout(cfg.StorageTimeout),
		rankingservice.WithRetentionDays(cfg.RetentionDays),
		rankingservice.WithTypeTruncation(cfg.TruncateToType),
	}
	if deps.Players != nil {
		opts = append(opts, rankingservice.WithPlayerCatalog(deps.Players))
	}
	if deps.Redis != nil {
		opts = append(opts, rankingservice.WithCache(rankingcache.NewRedisCache(deps.Redis, "consensus", cfg.CacheTTL)))
	}
	if deps.Publisher != nil {
		opts = append(opts, rankingservice.WithPublisher(deps.Publisher))
	}
	service := rankingservice.NewRankingService(repo, logger, serviceMetrics, tracer, deps.DB, opts...)

	// 3. Queue
	var queueService *rankingqueue.Service
	if cfg.QueueEnabled {
		queueCfg := rankingqueue.Config{AggregationInterval: cfg.AggregationInterval}
		if cfg.Archive.Bucket != "" {
			client, err := rankingarchive.NewS3Client(cfg.Archive)
			if err != nil {
				return nil, fmt.Errorf("failed to create archive client: %w", err)
			}
			queueCfg.Archiver = rankingarchive.NewArchiver(client, service, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		}

		qs, err := rankingqueue.NewService(ctx, deps.DB, logger, cfg.DSN,
			metrics.NewPrometheusMetrics(obs.Registry, "consensus", "ranking_queue"), service, queueCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create ranking queue: %w", err)
		}
		queueService = qs
	}

	// 4. Handlers
	var scheduler rankinghandlers.Scheduler
	if queueService != nil {
		scheduler = queueService
	}
	handlers := rankinghandlers.NewRankingHandlers(service, deps.Users, scheduler, logger, tracer)
	handlers.SetDefaultType(rankingdomain.RankingType(cfg.DefaultType))

	// 5. Event router
	var rankingRouter *rankingrouter.RankingRouter
	if deps.Router != nil {
		rankingRouter = rankingrouter.NewRankingRouter(logger, deps.Router, deps.Subscriber, deps.Publisher, tracer, obs.Registry)
		if err := rankingRouter.Configure(ctx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure ranking router: %w", err)
		}
	}

	// 6. HTTP
	if deps.HTTPRouter != nil {
		deps.HTTPRouter.Route("/api/rankings", func(r chi.Router) { rankinghandlers.Routes(r, handlers) })
	}

	m := &Module{
		RankingService: service,
		RankingRouter:  rankingRouter,
		logger:         logger,
	}
	if queueService != nil {
		m.QueueService = queueService
	}
	return m, nil
}

// Run starts the job queue, if any, and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting ranking module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.QueueService != nil {
		if err := m.QueueService.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start ranking queue", "error", err)
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Ranking module goroutine stopped")
}

// Close stops the job queue. The shared message router is closed by the app.
func (m *Module) Close() error {
	m.logger.Info("Stopping ranking module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.QueueService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.QueueService.Stop(ctx); err != nil {
			m.logger.Error("Error stopping ranking queue", "error", err)
			return fmt.Errorf("error stopping ranking queue: %w", err)
		}
	}

	m.logger.Info("Ranking module stopped")
	return nil
}
