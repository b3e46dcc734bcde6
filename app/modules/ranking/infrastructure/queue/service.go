package rankingqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

const (
	queueName   = "ranking"
	serviceName = "river"

	defaultAggregationInterval = 24 * time.Hour
	purgeInterval              = 24 * time.Hour
)

// QueueService defines the contract for ranking job scheduling.
type QueueService interface {
	// EnqueueRecompute schedules an on-demand rebuild of one type and day.
	EnqueueRecompute(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) error
	// EnqueueDailyAggregation schedules an all-types rebuild of one day.
	EnqueueDailyAggregation(ctx context.Context, date time.Time) error
	// ListJobs returns recent ranking jobs (for debugging)
	ListJobs(ctx context.Context, limit int) ([]JobInfo, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service
	Stop(ctx context.Context) error
}

// Ensure Service implements QueueService
var _ QueueService = (*Service)(nil)

// Config tunes the periodic jobs.
type Config struct {
	AggregationInterval time.Duration
	Archiver            DayArchiver
}

// Service schedules and runs ranking jobs using River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics metrics.OperationMetrics
}

// NewService creates a River-based queue service with the ranking workers and
// periodic jobs registered.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, m metrics.OperationMetrics, aggregator Aggregator, cfg Config) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_ranking_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	ctxLogger.Info("Initializing ranking queue service")

	// River requires pgx, not database/sql
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), newRiverConfig(ctxLogger, aggregator, cfg))
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	m.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	m.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))

	ctxLogger.Info("Ranking queue service initialized successfully")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: m,
	}, nil
}

// newRiverConfig registers workers and periodic jobs.
func newRiverConfig(logger *slog.Logger, aggregator Aggregator, cfg Config) *river.Config {
	interval := cfg.AggregationInterval
	if interval <= 0 {
		interval = defaultAggregationInterval
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewDailyAggregationWorker(logger, aggregator, cfg.Archiver))
	river.AddWorker(workers, NewRecomputeWorker(logger, aggregator))
	river.AddWorker(workers, NewPurgeWorker(logger, aggregator))

	return &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			queueName:          {MaxWorkers: 4},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return DailyAggregationJob{}, &river.InsertOpts{Queue: queueName}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(purgeInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return PurgeJob{}, &river.InsertOpts{Queue: queueName}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	}
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", serviceName)

	s.logger.Info("Starting ranking queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", serviceName)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", serviceName)
	s.metrics.RecordOperationDuration(ctx, "start_service", serviceName, time.Since(start))

	s.logger.Info("Ranking queue service started successfully")
	return nil
}

// Stop stops the River queue service and releases its pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", serviceName)

	s.logger.Info("Stopping ranking queue service")

	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", serviceName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", serviceName)
	s.metrics.RecordOperationDuration(ctx, "stop_service", serviceName, time.Since(start))

	s.logger.Info("Ranking queue service stopped successfully")
	return nil
}

// EnqueueRecompute schedules an on-demand rebuild. Identical pending
// requests collapse into one job.
func (s *Service) EnqueueRecompute(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) error {
	return s.insert(ctx, "enqueue_recompute", RecomputeJob{
		RankingType: int(rankingType),
		Date:        rankingdomain.Day(date).Format(time.DateOnly),
	})
}

// EnqueueDailyAggregation schedules an all-types rebuild of one day.
func (s *Service) EnqueueDailyAggregation(ctx context.Context, date time.Time) error {
	return s.insert(ctx, "enqueue_daily_aggregation", DailyAggregationJob{
		Date: rankingdomain.Day(date).Format(time.DateOnly),
	})
}

func (s *Service) insert(ctx context.Context, operation string, args river.JobArgs) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, operation, serviceName)

	res, err := s.client.Insert(ctx, args, &river.InsertOpts{
		Queue: queueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		s.logger.Error("Failed to enqueue ranking job", attr.String("kind", args.Kind()), attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, operation, serviceName)
		return fmt.Errorf("failed to enqueue %s job: %w", args.Kind(), err)
	}

	s.metrics.RecordOperationSuccess(ctx, operation, serviceName)
	s.metrics.RecordOperationDuration(ctx, operation, serviceName, time.Since(start))

	s.logger.Info("Ranking job enqueued",
		attr.String("kind", args.Kind()),
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

// ListJobs returns the most recent ranking jobs (for debugging)
func (s *Service) ListJobs(ctx context.Context, limit int) ([]JobInfo, error) {
	if limit <= 0 {
		limit = 50
	}

	type riverJobRow struct {
		ID          int64      `bun:"id"`
		Kind        string     `bun:"kind"`
		State       string     `bun:"state"`
		ScheduledAt *time.Time `bun:"scheduled_at"`
		Attempt     int16      `bun:"attempt"`
		MaxAttempts int16      `bun:"max_attempts"`
	}

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "scheduled_at", "attempt", "max_attempts").
		Where("kind IN (?)", bun.In([]string{
			DailyAggregationJob{}.Kind(),
			RecomputeJob{}.Kind(),
			PurgeJob{}.Kind(),
		})).
		OrderExpr("id DESC").
		Limit(limit).
		Scan(ctx, &jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking jobs: %w", err)
	}

	out := make([]JobInfo, len(jobs))
	for i, j := range jobs {
		scheduledAt := ""
		if j.ScheduledAt != nil {
			scheduledAt = j.ScheduledAt.Format(time.RFC3339)
		}
		out[i] = JobInfo{
			ID:          j.ID,
			Kind:        j.Kind,
			State:       j.State,
			ScheduledAt: scheduledAt,
			Attempt:     int(j.Attempt),
			MaxAttempts: int(j.MaxAttempts),
		}
	}
	return out, nil
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "health_check", serviceName)

	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", serviceName)
		return fmt.Errorf("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "health_check", serviceName)
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", serviceName)
	s.metrics.RecordOperationDuration(ctx, "health_check", serviceName, time.Since(start))

	s.logger.Debug("Queue service health check passed", attr.Int("total_jobs", count))
	return nil
}
