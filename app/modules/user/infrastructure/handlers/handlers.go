package userhandlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	userservice "github.com/Black-And-White-Club/consensus-rank/app/modules/user/application"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// UserHandlers implements Handlers.
type UserHandlers struct {
	service userservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewUserHandlers creates the user handlers.
func NewUserHandlers(service userservice.Service, logger *slog.Logger, tracer trace.Tracer) *UserHandlers {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("user")
	}
	return &UserHandlers{service: service, logger: logger, tracer: tracer}
}

// HandleRankingSubmitted counts an accepted submission against its user.
// Events for unknown users or with a malformed date are dropped.
func (h *UserHandlers) HandleRankingSubmitted(ctx context.Context, payload *events.RankingSubmittedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "UserHandlers.HandleRankingSubmitted")
	defer span.End()

	logger := h.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.String("user_id", payload.UserID.String()),
		attr.String("submission_id", payload.SubmissionID.String()),
	)

	date, err := time.Parse(time.DateOnly, payload.SubmissionDate)
	if err != nil {
		logger.WarnContext(ctx, "Dropping ranking submitted event with invalid date", attr.Error(err))
		return nil, nil
	}

	if err := h.service.RecordSubmission(ctx, payload.UserID, date); err != nil {
		if errors.Is(err, sharedtypes.ErrUserNotFound) {
			logger.WarnContext(ctx, "Ranking submitted by unknown user")
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	logger.InfoContext(ctx, "Recorded submission for user", attr.Bool("replaced", payload.Replaced))
	return nil, nil
}
