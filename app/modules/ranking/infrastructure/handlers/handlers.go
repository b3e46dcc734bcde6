package rankinghandlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	rankingservice "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// RankingHandlers implements Handlers.
type RankingHandlers struct {
	service   rankingservice.Service
	users     UserDirectory
	scheduler Scheduler
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	defaultType rankingdomain.RankingType
}

// NewRankingHandlers creates the ranking handlers. scheduler may be nil, in
// which case requested rebuilds run inline.
func NewRankingHandlers(
	service rankingservice.Service,
	users UserDirectory,
	scheduler Scheduler,
	logger *slog.Logger,
	tracer trace.Tracer,
) *RankingHandlers {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("ranking")
	}
	return &RankingHandlers{
		service:   service,
		users:     users,
		scheduler: scheduler,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,

		defaultType: rankingdomain.DefaultRankingType,
	}
}

// SetDefaultType changes the type used by reads that omit one. Invalid types
// are ignored.
func (h *RankingHandlers) SetDefaultType(t rankingdomain.RankingType) {
	if t.Valid() {
		h.defaultType = t
	}
}

// HandleAggregationRequested rebuilds aggregates on request from another
// service. Malformed requests are dropped.
func (h *RankingHandlers) HandleAggregationRequested(ctx context.Context, payload *events.AggregationRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "RankingHandlers.HandleAggregationRequested")
	defer span.End()

	logger := h.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.Int("ranking_type", payload.RankingType),
		attr.String("date", payload.Date),
		attr.String("reason", payload.Reason),
	)
	logger.InfoContext(ctx, "Aggregation requested")

	rankingType := rankingdomain.RankingType(payload.RankingType)
	if rankingType != 0 && !rankingType.Valid() {
		logger.WarnContext(ctx, "Dropping aggregation request with invalid ranking type")
		return nil, nil
	}
	day, err := rankingdomain.ParseDate(payload.Date, h.now())
	if err != nil {
		logger.WarnContext(ctx, "Dropping aggregation request with invalid date", attr.Error(err))
		return nil, nil
	}

	if h.scheduler != nil {
		if rankingType == 0 {
			err = h.scheduler.EnqueueDailyAggregation(ctx, day)
		} else {
			err = h.scheduler.EnqueueRecompute(ctx, rankingType, day)
		}
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Aggregation job enqueued")
		return nil, nil
	}

	if rankingType == 0 {
		_, err = h.service.RunDailyAggregation(ctx, day)
	} else {
		_, err = h.service.RecalculateAggregates(ctx, rankingType, day)
	}
	var ce *rankingservice.ConsistencyError
	if errors.As(err, &ce) {
		logger.ErrorContext(ctx, "Aggregation abandoned", attr.Error(err))
		return nil, nil
	}
	if errors.Is(err, rankingservice.ErrBeyondRetention) {
		logger.WarnContext(ctx, "Dropping aggregation request beyond retention", attr.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Aggregation completed")
	return nil, nil
}
