package rankingservice

import (
	"context"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

// Service is the ranking aggregation engine.
type Service interface {
	// SubmitRanking validates and stores a submission and applies it to the
	// day's aggregates in one transaction. A rejected submission returns a
	// *ValidationError carrying every reason.
	SubmitRanking(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// GetTopRankings returns the consensus for a type and day. A zero date
	// means today and limit <= 0 means the type's size. No data yields an
	// empty slice.
	GetTopRankings(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, error)

	// GetUserSubmission returns the user's latest submission for a type or
	// ErrSubmissionNotFound.
	GetUserSubmission(ctx context.Context, userID uuid.UUID, rankingType rankingdomain.RankingType) (*rankingdomain.Submission, error)

	// RecalculateAggregates rebuilds one type's aggregates for a day from the
	// stored submissions.
	RecalculateAggregates(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (*BatchResult, error)

	// RunDailyAggregation rebuilds every type for a day. A failing type does
	// not stop the others; the returned error wraps ErrPartialAggregation.
	RunDailyAggregation(ctx context.Context, date time.Time) (*DailyAggregationResult, error)

	// TriggerAggregation rebuilds today's aggregates for one type, or for every
	// type when rankingType is zero.
	TriggerAggregation(ctx context.Context, rankingType rankingdomain.RankingType) (*DailyAggregationResult, error)

	// PurgeExpiredSubmissions deletes submissions older than the retention window.
	PurgeExpiredSubmissions(ctx context.Context) (int64, error)
}

// PlayerCatalog resolves display attributes for ranked players.
type PlayerCatalog interface {
	GetPlayersByIDs(ctx context.Context, ids []string) ([]sharedtypes.Player, error)
}

// TopRankingsCache caches consensus reads. Implementations must be safe for
// concurrent use.
type TopRankingsCache interface {
	Get(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, bool, error)

	// Generation returns the (type, day) counter that Invalidate bumps.
	Generation(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (int64, error)

	// Set stores entries only while the counter still equals generation, so a
	// read that raced an invalidation never caches what it loaded.
	Set(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int, generation int64, entries []rankingdomain.ConsensusEntry) error

	Invalidate(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) error
}
