package rankinghandlers

import (
	"context"
	"time"

	rankingservice "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingqueue "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/queue"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

// FakeService is a programmable rankingservice.Service.
type FakeService struct {
	SubmitRankingFunc         func(ctx context.Context, req rankingservice.SubmitRequest) (*rankingservice.SubmitResult, error)
	GetTopRankingsFunc        func(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, error)
	GetUserSubmissionFunc     func(ctx context.Context, userID uuid.UUID, rankingType rankingdomain.RankingType) (*rankingdomain.Submission, error)
	RecalculateAggregatesFunc func(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (*rankingservice.BatchResult, error)
	RunDailyAggregationFunc   func(ctx context.Context, date time.Time) (*rankingservice.DailyAggregationResult, error)
	TriggerAggregationFunc    func(ctx context.Context, rankingType rankingdomain.RankingType) (*rankingservice.DailyAggregationResult, error)
	PurgeFunc                 func(ctx context.Context) (int64, error)

	calls []string
}

var _ rankingservice.Service = (*FakeService)(nil)

func (f *FakeService) SubmitRanking(ctx context.Context, req rankingservice.SubmitRequest) (*rankingservice.SubmitResult, error) {
	f.calls = append(f.calls, "SubmitRanking")
	if f.SubmitRankingFunc != nil {
		return f.SubmitRankingFunc(ctx, req)
	}
	return &rankingservice.SubmitResult{SubmissionID: uuid.New()}, nil
}

func (f *FakeService) GetTopRankings(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, error) {
	f.calls = append(f.calls, "GetTopRankings")
	if f.GetTopRankingsFunc != nil {
		return f.GetTopRankingsFunc(ctx, rankingType, date, limit)
	}
	return []rankingdomain.ConsensusEntry{}, nil
}

func (f *FakeService) GetUserSubmission(ctx context.Context, userID uuid.UUID, rankingType rankingdomain.RankingType) (*rankingdomain.Submission, error) {
	f.calls = append(f.calls, "GetUserSubmission")
	if f.GetUserSubmissionFunc != nil {
		return f.GetUserSubmissionFunc(ctx, userID, rankingType)
	}
	return nil, rankingservice.ErrSubmissionNotFound
}

func (f *FakeService) RecalculateAggregates(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (*rankingservice.BatchResult, error) {
	f.calls = append(f.calls, "RecalculateAggregates")
	if f.RecalculateAggregatesFunc != nil {
		return f.RecalculateAggregatesFunc(ctx, rankingType, date)
	}
	return &rankingservice.BatchResult{RankingType: rankingType, CalculationDate: date}, nil
}

func (f *FakeService) RunDailyAggregation(ctx context.Context, date time.Time) (*rankingservice.DailyAggregationResult, error) {
	f.calls = append(f.calls, "RunDailyAggregation")
	if f.RunDailyAggregationFunc != nil {
		return f.RunDailyAggregationFunc(ctx, date)
	}
	return &rankingservice.DailyAggregationResult{CalculationDate: date}, nil
}

func (f *FakeService) TriggerAggregation(ctx context.Context, rankingType rankingdomain.RankingType) (*rankingservice.DailyAggregationResult, error) {
	f.calls = append(f.calls, "TriggerAggregation")
	if f.TriggerAggregationFunc != nil {
		return f.TriggerAggregationFunc(ctx, rankingType)
	}
	return &rankingservice.DailyAggregationResult{}, nil
}

func (f *FakeService) PurgeExpiredSubmissions(ctx context.Context) (int64, error) {
	f.calls = append(f.calls, "PurgeExpiredSubmissions")
	if f.PurgeFunc != nil {
		return f.PurgeFunc(ctx)
	}
	return 0, nil
}

// FakeUsers is an in-memory UserDirectory keyed by email.
type FakeUsers struct {
	IDs       map[string]uuid.UUID
	Err       error
	LastIP    string
	LastName  string
	EnsureHit int
}

func (f *FakeUsers) EnsureUser(_ context.Context, email, name, ip string) (uuid.UUID, error) {
	f.EnsureHit++
	if f.Err != nil {
		return uuid.Nil, f.Err
	}
	if f.IDs == nil {
		f.IDs = map[string]uuid.UUID{}
	}
	f.LastIP, f.LastName = ip, name
	email = sharedtypes.NormalizeEmail(email)
	id, ok := f.IDs[email]
	if !ok {
		id = uuid.New()
		f.IDs[email] = id
	}
	return id, nil
}

func (f *FakeUsers) FindUserID(_ context.Context, email string) (uuid.UUID, error) {
	if f.Err != nil {
		return uuid.Nil, f.Err
	}
	id, ok := f.IDs[sharedtypes.NormalizeEmail(email)]
	if !ok {
		return uuid.Nil, sharedtypes.ErrUserNotFound
	}
	return id, nil
}

type recomputeCall struct {
	RankingType rankingdomain.RankingType
	Date        time.Time
}

// FakeScheduler records enqueued rebuilds.
type FakeScheduler struct {
	Recomputes []recomputeCall
	Dailies    []time.Time
	Jobs       []rankingqueue.JobInfo
	Err        error
}

func (f *FakeScheduler) EnqueueRecompute(_ context.Context, rankingType rankingdomain.RankingType, date time.Time) error {
	f.Recomputes = append(f.Recomputes, recomputeCall{rankingType, date})
	return f.Err
}

func (f *FakeScheduler) EnqueueDailyAggregation(_ context.Context, date time.Time) error {
	f.Dailies = append(f.Dailies, date)
	return f.Err
}

func (f *FakeScheduler) ListJobs(_ context.Context, limit int) ([]rankingqueue.JobInfo, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Jobs) > limit {
		return f.Jobs[:limit], nil
	}
	return f.Jobs, nil
}
