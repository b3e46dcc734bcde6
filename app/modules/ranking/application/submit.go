package rankingservice

import (
	"context"
	"errors"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubmitRanking validates and stores a submission, replacing any earlier one
// for the same user, type and day, and applies the net aggregate change.
func (s *RankingService) SubmitRanking(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	submitTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*SubmitResult, error], error) {
		return s.submitRankingLogic(ctx, db, req)
	}

	result, err := withTelemetry(s, ctx, "SubmitRanking", req.UserID.String(), func(ctx context.Context) (results.OperationResult[*SubmitResult, error], error) {
		entries := rankingdomain.NormalizeEntries(req.Entries)
		if vr := rankingdomain.ValidateSubmission(req.RankingType, entries); !vr.Valid {
			return results.FailureResult[*SubmitResult, error](&ValidationError{Reasons: vr.Reasons}), nil
		}
		req.Entries = entries
		return runInTx(s, ctx, submitTx)
	})
	if err != nil {
		return nil, storageErr("SubmitRanking", err)
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}

	out := *result.Success
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.RankingType, out.SubmissionDate); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate consensus cache", attr.Error(err))
		}
	}
	s.publish(ctx, events.RankingSubmittedV1, events.RankingSubmittedPayloadV1{
		SubmissionID:   out.SubmissionID,
		UserID:         req.UserID,
		RankingType:    int(req.RankingType),
		SubmissionDate: out.SubmissionDate.Format(time.DateOnly),
		Replaced:       out.Replaced,
		SubmittedAt:    s.now().UTC(),
	})
	return out, nil
}

// submitRankingLogic runs inside the submit transaction. Entries are already
// validated and normalized.
func (s *RankingService) submitRankingLogic(ctx context.Context, db bun.IDB, req SubmitRequest) (results.OperationResult[*SubmitResult, error], error) {
	day := rankingdomain.Day(s.now())
	rankingType := int(req.RankingType)

	var priorEntries []rankingdomain.RankedPlayer
	prior, err := s.repo.GetSubmissionForUpdate(ctx, db, req.UserID, rankingType, day)
	switch {
	case errors.Is(err, rankingdb.ErrNotFound):
		prior = nil
	case err != nil:
		return results.OperationResult[*SubmitResult, error]{}, storageErr("load prior submission", err)
	default:
		priorEntries = prior.Entries
		if err := s.repo.DeleteSubmission(ctx, db, req.UserID, rankingType, day); err != nil {
			return results.OperationResult[*SubmitResult, error]{}, storageErr("delete prior submission", err)
		}
	}

	sub := &rankingdb.Submission{
		ID:             uuid.New(),
		UserID:         req.UserID,
		RankingType:    rankingType,
		SubmissionDate: day,
		Entries:        req.Entries,
	}
	if err := s.repo.InsertSubmission(ctx, db, sub); err != nil {
		return results.OperationResult[*SubmitResult, error]{}, storageErr("insert submission", err)
	}

	deltas := rankingdomain.ReplacementDeltas(priorEntries, req.Entries)
	if err := s.repo.ApplyAggregateDeltas(ctx, db, day, rankingType, deltas); err != nil {
		return results.OperationResult[*SubmitResult, error]{}, storageErr("apply aggregate deltas", err)
	}

	awarded := 0
	for _, d := range rankingdomain.Contribution(req.Entries) {
		awarded += d.Points
	}

	return results.SuccessResult[*SubmitResult, error](&SubmitResult{
		SubmissionID:   sub.ID,
		SubmissionDate: day,
		Replaced:       prior != nil,
		PointsAwarded:  awarded,
	}), nil
}
