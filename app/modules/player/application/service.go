package playerservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	playerdb "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/gosimple/slug"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "PlayerService"

	defaultSearchLimit = 50
	maxListLimit       = 500
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidPlayer  = errors.New("player id and name are required")
)

// PlayerService implements Service.
type PlayerService struct {
	repo    playerdb.Repository
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	db      *bun.DB
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(repo playerdb.Repository, logger *slog.Logger, m metrics.OperationMetrics, tracer trace.Tracer, db *bun.DB) *PlayerService {
	return &PlayerService{repo: repo, logger: logger, metrics: m, tracer: tracer, db: db}
}

var _ Service = (*PlayerService)(nil)

func (s *PlayerService) GetPlayersByIDs(ctx context.Context, ids []string) ([]sharedtypes.Player, error) {
	result, err := withTelemetry(s, ctx, "GetPlayersByIDs", fmt.Sprintf("%d ids", len(ids)), func(ctx context.Context) (results.OperationResult[[]sharedtypes.Player, error], error) {
		rows, err := s.repo.GetByIDs(ctx, nil, ids)
		if err != nil {
			return results.OperationResult[[]sharedtypes.Player, error]{}, err
		}
		return results.SuccessResult[[]sharedtypes.Player, error](toShared(rows)), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

func (s *PlayerService) GetPlayer(ctx context.Context, idOrSlug string) (*sharedtypes.Player, error) {
	result, err := withTelemetry(s, ctx, "GetPlayer", idOrSlug, func(ctx context.Context) (results.OperationResult[*sharedtypes.Player, error], error) {
		row, err := s.repo.Get(ctx, nil, idOrSlug)
		if errors.Is(err, playerdb.ErrNotFound) {
			return results.FailureResult[*sharedtypes.Player, error](ErrPlayerNotFound), nil
		}
		if err != nil {
			return results.OperationResult[*sharedtypes.Player, error]{}, err
		}
		p := row.ToShared()
		return results.SuccessResult[*sharedtypes.Player, error](&p), nil
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *PlayerService) ListPlayers(ctx context.Context, q ListQuery) ([]sharedtypes.Player, error) {
	filter := playerdb.ListFilter{Limit: q.Limit}
	switch {
	case strings.TrimSpace(q.Query) != "":
		filter.Query = q.Query
		if filter.Limit <= 0 {
			filter.Limit = defaultSearchLimit
		}
	case strings.TrimSpace(q.Position) != "":
		filter.Position = q.Position
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	result, err := withTelemetry(s, ctx, "ListPlayers", q.Query, func(ctx context.Context) (results.OperationResult[[]sharedtypes.Player, error], error) {
		rows, err := s.repo.List(ctx, nil, filter)
		if err != nil {
			return results.OperationResult[[]sharedtypes.Player, error]{}, err
		}
		return results.SuccessResult[[]sharedtypes.Player, error](toShared(rows)), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

func (s *PlayerService) ImportPlayers(ctx context.Context, players []sharedtypes.Player) (int64, error) {
	rows := make([]playerdb.Player, 0, len(players))
	seen := make(map[string]int, len(players))
	for _, p := range players {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return 0, fmt.Errorf("%w: %+v", ErrInvalidPlayer, p)
		}
		if p.Slug == "" {
			p.Slug = slug.Make(p.Name)
		}
		// a repeated id keeps its last version
		if i, dup := seen[p.ID]; dup {
			rows[i] = playerdb.FromShared(p)
			continue
		}
		seen[p.ID] = len(rows)
		rows = append(rows, playerdb.FromShared(p))
	}

	result, err := withTelemetry(s, ctx, "ImportPlayers", fmt.Sprintf("%d players", len(rows)), func(ctx context.Context) (results.OperationResult[int64, error], error) {
		var n int64
		err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
			var err error
			n, err = s.repo.Upsert(ctx, db, rows)
			return err
		})
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](n), nil
	})
	if err != nil {
		return 0, err
	}
	return *result.Success, nil
}

func toShared(rows []playerdb.Player) []sharedtypes.Player {
	out := make([]sharedtypes.Player, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToShared())
	}
	return out
}

func (s *PlayerService) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *PlayerService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (results.OperationResult[S, F], error),
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
		start := time.Now()
		defer func() {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(start))
		}()
	}

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
		err = fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(err)
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}
