package rankingservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	serviceName = "RankingService"

	defaultStorageTimeout = 5 * time.Second
	defaultRetentionDays  = 90
)

// RankingService implements the Service interface.
type RankingService struct {
	repo      rankingdb.Repository
	logger    *slog.Logger
	metrics   metrics.OperationMetrics
	tracer    trace.Tracer
	db        *bun.DB
	players   PlayerCatalog
	cache     TopRankingsCache
	publisher message.Publisher

	storageTimeout time.Duration
	retentionDays  int
	truncateToType bool
	now            func() time.Time

	flight singleflight.Group
}

// Option configures a RankingService.
type Option func(*RankingService)

// WithPlayerCatalog joins player display attributes into consensus reads.
func WithPlayerCatalog(c PlayerCatalog) Option {
	return func(s *RankingService) { s.players = c }
}

// WithCache enables the consensus read cache.
func WithCache(c TopRankingsCache) Option {
	return func(s *RankingService) { s.cache = c }
}

// WithPublisher enables ranking events.
func WithPublisher(p message.Publisher) Option {
	return func(s *RankingService) { s.publisher = p }
}

// WithStorageTimeout bounds every storage transaction.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *RankingService) {
		if d > 0 {
			s.storageTimeout = d
		}
	}
}

// WithRetentionDays sets how long raw submissions are kept.
func WithRetentionDays(days int) Option {
	return func(s *RankingService) {
		if days > 0 {
			s.retentionDays = days
		}
	}
}

// WithTypeTruncation controls whether a recompute keeps only the top
// ranking-type players.
func WithTypeTruncation(enabled bool) Option {
	return func(s *RankingService) { s.truncateToType = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *RankingService) { s.now = now }
}

// NewRankingService creates a new RankingService.
func NewRankingService(
	repo rankingdb.Repository,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *RankingService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RankingService{
		repo:           repo,
		logger:         logger,
		metrics:        m,
		tracer:         tracer,
		db:             db,
		storageTimeout: defaultStorageTimeout,
		retentionDays:  defaultRetentionDays,
		truncateToType: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Service = (*RankingService)(nil)

// publish sends an event after a commit. Failures are logged only; the
// committed state already stands.
func (s *RankingService) publish(ctx context.Context, topic string, payload any) {
	if s.publisher == nil {
		return
	}
	msg, err := handlerwrapper.NewJSONMessage(ctx, payload)
	if err == nil {
		err = s.publisher.Publish(topic, msg)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ranking event",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *RankingService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx runs fn in a read-write transaction bounded by the storage timeout.
func runInTx[S any, F any](
	s *RankingService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	return runWithOptions(s, ctx, &sql.TxOptions{}, fn)
}

// runInSnapshot runs fn in a REPEATABLE READ transaction. Every read inside
// sees one committed state, and a write that races a concurrent commit on
// the same rows fails instead of overwriting it.
func runInSnapshot[S any, F any](
	s *RankingService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	return runWithOptions(s, ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead}, fn)
}

func runWithOptions[S any, F any](
	s *RankingService,
	ctx context.Context,
	opts *sql.TxOptions,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
