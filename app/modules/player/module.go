package player

import (
	"context"
	"log/slog"
	"sync"

	playerservice "github.com/Black-And-White-Club/consensus-rank/app/modules/player/application"
	playerhandlers "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/handlers"
	playerdb "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the player catalog module.
type Module struct {
	PlayerService playerservice.Service
	logger        *slog.Logger
	cancelFunc    context.CancelFunc
}

// NewPlayerModule creates and initializes the player catalog module. When
// httpRouter is non-nil the catalog is mounted under /api/players.
func NewPlayerModule(
	ctx context.Context,
	obs *observability.Observability,
	db *bun.DB,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "player.NewPlayerModule initializing")

	repo := playerdb.NewRepository(db)
	m := metrics.NewPrometheusMetrics(obs.Registry, "consensus", "player")
	service := playerservice.NewPlayerService(repo, logger, m, obs.Tracer, db)

	if httpRouter != nil {
		handlers := playerhandlers.NewPlayerHandlers(service, logger)
		httpRouter.Route("/api/players", handlers.Routes)
	}

	return &Module{
		PlayerService: service,
		logger:        logger,
	}, nil
}

// Run blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting player module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Player module goroutine stopped")
}

// Close shuts down the player module.
func (m *Module) Close() error {
	m.logger.Info("Stopping player module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
