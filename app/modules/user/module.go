package user

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	userservice "github.com/Black-And-White-Club/consensus-rank/app/modules/user/application"
	userhandlers "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/handlers"
	userdb "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/repositories"
	userrouter "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/router"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the user module.
type Module struct {
	UserService userservice.Service
	UserRouter  *userrouter.UserRouter
	logger      *slog.Logger
	cancelFunc  context.CancelFunc
}

// NewUserModule creates and initializes the user module.
func NewUserModule(
	ctx context.Context,
	obs *observability.Observability,
	db *bun.DB,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "user.NewUserModule initializing")

	repo := userdb.NewRepository(db)
	m := metrics.NewPrometheusMetrics(obs.Registry, "consensus", "user")
	service := userservice.NewUserService(repo, logger, m, obs.Tracer, db)
	handlers := userhandlers.NewUserHandlers(service, logger, obs.Tracer)

	var userRouter *userrouter.UserRouter
	if router != nil {
		userRouter = userrouter.NewUserRouter(logger, router, subscriber, publisher, obs.Tracer)
		if err := userRouter.Configure(ctx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure user router: %w", err)
		}
	}

	if httpRouter != nil {
		httpRouter.Route("/api/users", func(r chi.Router) { userhandlers.Routes(r, handlers) })
	}

	return &Module{
		UserService: service,
		UserRouter:  userRouter,
		logger:      logger,
	}, nil
}

// Run blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting user module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "User module goroutine stopped")
}

// Close shuts down the user module. The shared message router is closed by
// the app.
func (m *Module) Close() error {
	m.logger.Info("Stopping user module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("User module stopped")
	return nil
}
