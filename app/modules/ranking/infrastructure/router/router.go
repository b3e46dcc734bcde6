package rankingrouter

import (
	"context"
	"log/slog"
	"os"

	rankinghandlers "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/handlers"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// RankingRouter registers the ranking module's event handlers.
type RankingRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
	metricsEnabled bool
}

// NewRankingRouter creates the router. Router metrics are registered on
// prometheusRegistry unless running under APP_ENV=test.
func NewRankingRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) *RankingRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}

	return &RankingRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
		metricsEnabled: metricsBuilder != nil,
	}
}

// Configure adds middleware and registers the ranking handlers.
func (r *RankingRouter) Configure(_ context.Context, handlers rankinghandlers.Handlers) error {
	if r.metricsEnabled {
		r.logger.Info("Adding Prometheus router metrics middleware for Ranking")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

func (r *RankingRouter) registerHandlers(handlers rankinghandlers.Handlers) {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	r.logger.Info("Registering ranking module handlers",
		slog.String("aggregation_requested_subject", events.AggregationRequestedV1),
	)

	registerHandler(deps, events.AggregationRequestedV1, handlers.HandleAggregationRequested)

	r.logger.Info("Ranking module handlers registered successfully")
}

// registerHandler adds a typed handler for topic with correlation and panic
// recovery middleware.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "ranking." + topic
	h := deps.router.AddNoPublisherHandler(
		handlerName,
		topic,
		deps.subscriber,
		handlerwrapper.WrapTyped(handlerName, deps.logger, deps.tracer, deps.publisher, handler),
	)
	h.AddMiddleware(middleware.CorrelationID, middleware.Recoverer)
}

// Close shuts down the router.
func (r *RankingRouter) Close() error {
	return r.Router.Close()
}
