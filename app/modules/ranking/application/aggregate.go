package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	"github.com/uptrace/bun"
)

// RecalculateAggregates rebuilds one type's aggregates for a day. Concurrent
// calls for the same type and day share a single run, which outlives any one
// caller giving up. Days before the retention cutoff are refused because
// their submissions may already be purged.
func (s *RankingService) RecalculateAggregates(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (*BatchResult, error) {
	if !rankingType.Valid() {
		return nil, &ValidationError{Reasons: []string{"Invalid ranking type. Must be 10, 25, 50, or 100"}}
	}
	if date.IsZero() {
		date = s.now()
	}
	day := rankingdomain.Day(date)
	if cutoff := s.retentionCutoff(); day.Before(cutoff) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrBeyondRetention, day.Format(time.DateOnly), cutoff.Format(time.DateOnly))
	}
	key := rankingType.String() + ":" + day.Format(time.DateOnly)

	ch := s.flight.DoChan(key, func() (any, error) {
		return s.recalculate(context.WithoutCancel(ctx), rankingType, day)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("RecalculateAggregates: %w", ctx.Err())
	case r := <-ch:
		if r.Shared {
			s.logger.DebugContext(ctx, "Joined in-flight aggregation", attr.String("key", key))
		}
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*BatchResult)
		return &res, nil
	}
}

// retentionCutoff is the first day whose submissions are still kept.
func (s *RankingService) retentionCutoff() time.Time {
	return rankingdomain.Day(s.now()).AddDate(0, 0, -s.retentionDays)
}

func (s *RankingService) recalculate(ctx context.Context, rankingType rankingdomain.RankingType, day time.Time) (*BatchResult, error) {
	identifier := rankingType.String() + ":" + day.Format(time.DateOnly)

	result, err := withTelemetry(s, ctx, "RecalculateAggregates", identifier, func(ctx context.Context) (results.OperationResult[*BatchResult, error], error) {
		return runInSnapshot(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*BatchResult, error], error) {
			return s.recalculateLogic(ctx, db, rankingType, day)
		})
	})
	if err != nil {
		var ce *ConsistencyError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, storageErr("RecalculateAggregates", err)
	}

	out := *result.Success
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, rankingType, day); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate consensus cache", attr.Error(err))
		}
	}
	s.publish(ctx, events.AggregatesRecalculatedV1, events.AggregatesRecalculatedPayloadV1{
		RankingType:     int(rankingType),
		CalculationDate: day.Format(time.DateOnly),
		Players:         out.Players,
		Submissions:     out.Submissions,
	})
	return out, nil
}

// recalculateLogic reads every submission of the day and rewrites the day's
// rows from them inside one snapshot transaction. Every ranked player keeps a
// row so later incremental updates land on complete totals; the cut to the
// type's size happens on read.
func (s *RankingService) recalculateLogic(ctx context.Context, db bun.IDB, rankingType rankingdomain.RankingType, day time.Time) (results.OperationResult[*BatchResult, error], error) {
	subs, err := s.repo.ListSubmissions(ctx, db, int(rankingType), rankingdomain.SingleDay(day))
	if err != nil {
		return results.OperationResult[*BatchResult, error]{}, storageErr("list submissions", err)
	}

	tally := rankingdomain.NewTally(day, rankingType)
	for _, sub := range subs {
		if vr := rankingdomain.ValidateSubmission(rankingType, sub.Entries); !vr.Valid {
			return results.OperationResult[*BatchResult, error]{}, &ConsistencyError{
				RankingType: int(rankingType),
				Date:        day.Format(time.DateOnly),
				Detail:      fmt.Sprintf("stored submission %s is invalid: %s", sub.ID, strings.Join(vr.Reasons, "; ")),
			}
		}
		tally.AddSubmission(sub.Entries)
	}
	if bad := tally.Invalid(); len(bad) > 0 {
		return results.OperationResult[*BatchResult, error]{}, &ConsistencyError{
			RankingType: int(rankingType),
			Date:        day.Format(time.DateOnly),
			Detail:      "impossible totals for players " + strings.Join(bad, ", "),
		}
	}

	rows := tally.Rows()
	models := make([]rankingdb.AggregateRow, 0, len(rows))
	for _, r := range rows {
		models = append(models, rankingdb.AggregateRow{
			PlayerID:    r.PlayerID,
			Points:      r.Points,
			Appearances: r.Appearances,
			RankSum:     r.RankSum,
			AverageRank: r.AverageRank,
		})
	}
	if err := s.repo.ReplaceAggregateRowsForDate(ctx, db, day, int(rankingType), models); err != nil {
		return results.OperationResult[*BatchResult, error]{}, storageErr("replace aggregates", err)
	}

	return results.SuccessResult[*BatchResult, error](&BatchResult{
		RankingType:     rankingType,
		CalculationDate: day,
		Submissions:     len(subs),
		Players:         len(models),
	}), nil
}

// RunDailyAggregation rebuilds every ranking type for a day. Each type runs
// in its own transaction; a failure is recorded in its outcome and the
// remaining types still run. The returned error wraps ErrPartialAggregation
// and every per-type error.
func (s *RankingService) RunDailyAggregation(ctx context.Context, date time.Time) (*DailyAggregationResult, error) {
	if date.IsZero() {
		date = s.now()
	}
	day := rankingdomain.Day(date)
	out := &DailyAggregationResult{CalculationDate: day}

	var failed []string
	var errs []error
	for _, t := range rankingdomain.AllRankingTypes {
		if err := ctx.Err(); err != nil {
			out.Outcomes = append(out.Outcomes, TypeOutcome{RankingType: t, Err: err})
			failed = append(failed, t.String())
			errs = append(errs, err)
			continue
		}
		res, err := s.RecalculateAggregates(ctx, t, day)
		out.Outcomes = append(out.Outcomes, TypeOutcome{RankingType: t, Result: res, Err: err})
		if err != nil {
			failed = append(failed, t.String())
			errs = append(errs, err)
			s.logger.ErrorContext(ctx, "Daily aggregation failed for ranking type",
				attr.ExtractCorrelationID(ctx),
				attr.Int("ranking_type", int(t)),
				attr.Date("date", day),
				attr.Error(err),
			)
		}
	}

	if len(failed) > 0 {
		return out, fmt.Errorf("%w: types %s: %w", ErrPartialAggregation, strings.Join(failed, ", "), errors.Join(errs...))
	}
	return out, nil
}

// TriggerAggregation rebuilds today's aggregates on demand.
func (s *RankingService) TriggerAggregation(ctx context.Context, rankingType rankingdomain.RankingType) (*DailyAggregationResult, error) {
	if rankingType == 0 {
		return s.RunDailyAggregation(ctx, time.Time{})
	}
	day := rankingdomain.Day(s.now())
	res, err := s.RecalculateAggregates(ctx, rankingType, day)
	out := &DailyAggregationResult{
		CalculationDate: day,
		Outcomes:        []TypeOutcome{{RankingType: rankingType, Result: res, Err: err}},
	}
	return out, err
}

// PurgeExpiredSubmissions deletes submissions older than the retention window.
// Aggregate rows are kept.
func (s *RankingService) PurgeExpiredSubmissions(ctx context.Context) (int64, error) {
	cutoff := s.retentionCutoff()

	result, err := withTelemetry(s, ctx, "PurgeExpiredSubmissions", cutoff.Format(time.DateOnly), func(ctx context.Context) (results.OperationResult[int64, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
			n, err := s.repo.PurgeSubmissionsBefore(ctx, db, cutoff)
			if err != nil {
				return results.OperationResult[int64, error]{}, err
			}
			return results.SuccessResult[int64, error](n), nil
		})
	})
	if err != nil {
		return 0, storageErr("PurgeExpiredSubmissions", err)
	}
	return *result.Success, nil
}
