package rankingservice

import (
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/google/uuid"
)

// SubmitRequest is a candidate submission from an identified user.
type SubmitRequest struct {
	UserID      uuid.UUID
	RankingType rankingdomain.RankingType
	Entries     []rankingdomain.RankedPlayer
}

// SubmitResult describes an accepted submission.
type SubmitResult struct {
	SubmissionID   uuid.UUID
	SubmissionDate time.Time
	Replaced       bool
	PointsAwarded  int
}

// BatchResult describes one committed recompute.
type BatchResult struct {
	RankingType     rankingdomain.RankingType
	CalculationDate time.Time
	Submissions     int
	Players         int
}

// TypeOutcome is the result of one ranking type inside an all-types run.
type TypeOutcome struct {
	RankingType rankingdomain.RankingType
	Result      *BatchResult
	Err         error
}

// DailyAggregationResult reports every type of an all-types run.
type DailyAggregationResult struct {
	CalculationDate time.Time
	Outcomes        []TypeOutcome
}

// Succeeded reports whether every type committed.
func (r *DailyAggregationResult) Succeeded() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return false
		}
	}
	return true
}
