package userrouter

import (
	"context"
	"log/slog"

	userhandlers "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/handlers"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/trace"
)

// UserRouter registers the user module's event handlers. Router metrics are
// installed once by the ranking router on the shared message router.
type UserRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
}

// NewUserRouter creates a new UserRouter.
func NewUserRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
) *UserRouter {
	return &UserRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		tracer:     tracer,
	}
}

// Configure registers the user handlers.
func (r *UserRouter) Configure(_ context.Context, handlers userhandlers.Handlers) error {
	r.logger.Info("Registering user module handlers",
		slog.String("ranking_submitted_subject", events.RankingSubmittedV1),
	)

	handlerName := "user." + events.RankingSubmittedV1
	h := r.Router.AddNoPublisherHandler(
		handlerName,
		events.RankingSubmittedV1,
		r.subscriber,
		handlerwrapper.WrapTyped(handlerName, r.logger, r.tracer, r.publisher, handlers.HandleRankingSubmitted),
	)
	h.AddMiddleware(middleware.CorrelationID, middleware.Recoverer)
	return nil
}

// Close shuts down the router.
func (r *UserRouter) Close() error {
	return r.Router.Close()
}
