package rankingqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rankingservice "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/riverqueue/river"
)

// Aggregator is the part of the ranking service the workers drive.
type Aggregator interface {
	RecalculateAggregates(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (*rankingservice.BatchResult, error)
	RunDailyAggregation(ctx context.Context, date time.Time) (*rankingservice.DailyAggregationResult, error)
	PurgeExpiredSubmissions(ctx context.Context) (int64, error)
}

// DayArchiver uploads a finished day's consensus.
type DayArchiver interface {
	ArchiveDay(ctx context.Context, date time.Time) ([]string, error)
}

// jobError cancels the job when retrying cannot help any of its failures.
func jobError(err error) error {
	if err != nil && permanent(err) {
		return river.JobCancel(err)
	}
	return err
}

// permanent reports whether every failure joined into err would fail again
// on retry.
func permanent(err error) bool {
	switch e := err.(type) {
	case *rankingservice.ConsistencyError, *rankingservice.ValidationError:
		return true
	case interface{ Unwrap() []error }:
		found := false
		for _, inner := range e.Unwrap() {
			if inner == rankingservice.ErrPartialAggregation {
				continue
			}
			if !permanent(inner) {
				return false
			}
			found = true
		}
		return found
	case interface{ Unwrap() error }:
		return permanent(e.Unwrap())
	}
	return errors.Is(err, rankingservice.ErrBeyondRetention)
}

// DailyAggregationWorker runs the all-types batch.
type DailyAggregationWorker struct {
	river.WorkerDefaults[DailyAggregationJob]
	aggregator Aggregator
	archiver   DayArchiver
	logger     *slog.Logger
	now        func() time.Time
}

func NewDailyAggregationWorker(logger *slog.Logger, aggregator Aggregator, archiver DayArchiver) *DailyAggregationWorker {
	return &DailyAggregationWorker{aggregator: aggregator, archiver: archiver, logger: logger, now: time.Now}
}

func (w *DailyAggregationWorker) Work(ctx context.Context, job *river.Job[DailyAggregationJob]) error {
	var days []time.Time
	if job.Args.Date != "" {
		d, err := time.Parse(time.DateOnly, job.Args.Date)
		if err != nil {
			return river.JobCancel(fmt.Errorf("invalid date %q: %w", job.Args.Date, err))
		}
		days = []time.Time{d}
	} else {
		today := rankingdomain.Day(w.now())
		days = []time.Time{today.AddDate(0, 0, -1), today}
	}

	var errs []error
	for i, day := range days {
		res, err := w.aggregator.RunDailyAggregation(ctx, day)
		if err != nil {
			errs = append(errs, err)
			w.logger.ErrorContext(ctx, "Daily aggregation incomplete", attr.Date("date", day), attr.Error(err))
			continue
		}
		w.logger.InfoContext(ctx, "Daily aggregation completed",
			attr.Date("date", day),
			attr.Int("types", len(res.Outcomes)),
		)
		// the first day of a scheduled run is final and gets archived
		if w.archiver != nil && job.Args.Date == "" && i == 0 {
			if _, err := w.archiver.ArchiveDay(ctx, day); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return jobError(errors.Join(errs...))
}

// RecomputeWorker rebuilds one type for one day.
type RecomputeWorker struct {
	river.WorkerDefaults[RecomputeJob]
	aggregator Aggregator
	logger     *slog.Logger
}

func NewRecomputeWorker(logger *slog.Logger, aggregator Aggregator) *RecomputeWorker {
	return &RecomputeWorker{aggregator: aggregator, logger: logger}
}

func (w *RecomputeWorker) Work(ctx context.Context, job *river.Job[RecomputeJob]) error {
	day, err := time.Parse(time.DateOnly, job.Args.Date)
	if err != nil {
		return river.JobCancel(fmt.Errorf("invalid date %q: %w", job.Args.Date, err))
	}
	res, err := w.aggregator.RecalculateAggregates(ctx, rankingdomain.RankingType(job.Args.RankingType), day)
	if err != nil {
		return jobError(err)
	}
	w.logger.InfoContext(ctx, "Recompute completed",
		attr.Int("ranking_type", job.Args.RankingType),
		attr.Date("date", day),
		attr.Int("players", res.Players),
	)
	return nil
}

// PurgeWorker applies the retention window.
type PurgeWorker struct {
	river.WorkerDefaults[PurgeJob]
	aggregator Aggregator
	logger     *slog.Logger
}

func NewPurgeWorker(logger *slog.Logger, aggregator Aggregator) *PurgeWorker {
	return &PurgeWorker{aggregator: aggregator, logger: logger}
}

func (w *PurgeWorker) Work(ctx context.Context, _ *river.Job[PurgeJob]) error {
	n, err := w.aggregator.PurgeExpiredSubmissions(ctx)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Expired submissions purged", attr.Int64("deleted", n))
	return nil
}
