package rankingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var testDay = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func newTestService(repo *FakeRankingRepo, opts ...Option) *RankingService {
	opts = append([]Option{WithClock(func() time.Time { return testDay })}, opts...)
	return NewRankingService(repo, slog.Default(), metrics.NewNoop(), nil, nil, opts...)
}

func ranked(ids ...string) []rankingdomain.RankedPlayer {
	out := make([]rankingdomain.RankedPlayer, len(ids))
	for i, id := range ids {
		out[i] = rankingdomain.RankedPlayer{PlayerID: id, Rank: i + 1}
	}
	return out
}

func playerIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("P%d", i+1)
	}
	return out
}

func rotate(ids []string, k int) []string {
	out := make([]string, len(ids))
	for i := range ids {
		out[i] = ids[(i+k)%len(ids)]
	}
	return out
}

func TestSubmitRanking_Validation(t *testing.T) {
	tests := []struct {
		name        string
		rankingType rankingdomain.RankingType
		entries     []rankingdomain.RankedPlayer
		wantReasons []string
	}{
		{
			name:        "wrong length",
			rankingType: rankingdomain.RankingTop10,
			entries:     ranked(playerIDs(9)...),
			wantReasons: []string{"Rankings must contain exactly 10 players"},
		},
		{
			name:        "duplicate player",
			rankingType: rankingdomain.RankingTop10,
			entries:     ranked(append(playerIDs(9), "P1")...),
			wantReasons: []string{"Rankings contain duplicate players"},
		},
		{
			name:        "invalid type",
			rankingType: rankingdomain.RankingType(15),
			entries:     ranked(playerIDs(15)...),
			wantReasons: []string{"Invalid ranking type. Must be 10, 25, 50, or 100"},
		},
		{
			name:        "rank out of range",
			rankingType: rankingdomain.RankingTop10,
			entries: func() []rankingdomain.RankedPlayer {
				e := ranked(playerIDs(10)...)
				e[9].Rank = 11
				return e
			}(),
			wantReasons: []string{"Invalid rank: 11. Must be between 1 and 10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeRankingRepo()
			svc := newTestService(repo)

			res, err := svc.SubmitRanking(context.Background(), SubmitRequest{
				UserID:      uuid.New(),
				RankingType: tt.rankingType,
				Entries:     tt.entries,
			})

			require.Error(t, err)
			assert.Nil(t, res)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantReasons, ve.Reasons)
			assert.Empty(t, repo.Trace(), "rejected submissions must not touch storage")
		})
	}
}

func TestSubmitRanking_TwoUsersScenario(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	ids := playerIDs(10)
	second := append([]string{"P2", "P1"}, ids[2:]...)

	_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(ids...)})
	require.NoError(t, err)
	_, err = svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(second...)})
	require.NoError(t, err)

	top, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, top, 10)

	assert.Equal(t, "P1", top[0].PlayerID)
	assert.Equal(t, 1, top[0].Position)
	assert.Equal(t, 199, top[0].Points)
	assert.Equal(t, 2, top[0].Appearances)
	assert.InDelta(t, 1.5, top[0].AverageRank, 1e-9)

	assert.Equal(t, "P2", top[1].PlayerID)
	assert.Equal(t, 199, top[1].Points)
	assert.InDelta(t, 1.5, top[1].AverageRank, 1e-9)

	assert.Equal(t, "P3", top[2].PlayerID)
	assert.Equal(t, 196, top[2].Points)
}

func TestSubmitRanking_ReplacementIsIdempotent(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	user := uuid.New()
	req := SubmitRequest{UserID: user, RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)}

	first, err := svc.SubmitRanking(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replaced)
	assert.Equal(t, 955, first.PointsAwarded)
	once := repo.Aggregates(10, testDay)

	second, err := svc.SubmitRanking(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replaced)

	if diff := cmp.Diff(once, repo.Aggregates(10, testDay)); diff != "" {
		t.Errorf("resubmitting the same ranking changed aggregates (-once +twice):\n%s", diff)
	}
}

func TestSubmitRanking_ReplacementReversesPriorContribution(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: user, RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.NoError(t, err)

	replacement := append(playerIDs(9), "P11")
	_, err = svc.SubmitRanking(ctx, SubmitRequest{UserID: user, RankingType: rankingdomain.RankingTop10, Entries: ranked(rotate(replacement, 3)...)})
	require.NoError(t, err)

	fresh := NewFakeRankingRepo()
	_, err = newTestService(fresh).SubmitRanking(ctx, SubmitRequest{UserID: user, RankingType: rankingdomain.RankingTop10, Entries: ranked(rotate(replacement, 3)...)})
	require.NoError(t, err)

	if diff := cmp.Diff(fresh.Aggregates(10, testDay), repo.Aggregates(10, testDay)); diff != "" {
		t.Errorf("replacement differs from a fresh submission (-fresh +replaced):\n%s", diff)
	}
	_, err = repo.GetAggregateRow(ctx, nil, "P10", testDay, 10)
	assert.ErrorIs(t, err, rankingdb.ErrNotFound)
}

func TestIncrementalAndBatchAgree(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	ids := playerIDs(10)
	users := make([]uuid.UUID, 6)
	for i := range users {
		users[i] = uuid.New()
		_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: users[i], RankingType: rankingdomain.RankingTop10, Entries: ranked(rotate(ids, i)...)})
		require.NoError(t, err)
	}
	// two users change their minds
	for _, i := range []int{1, 4} {
		_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: users[i], RankingType: rankingdomain.RankingTop10, Entries: ranked(rotate(ids, 7)...)})
		require.NoError(t, err)
	}

	incremental := repo.Aggregates(10, testDay)

	res, err := svc.RecalculateAggregates(ctx, rankingdomain.RankingTop10, testDay)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Submissions)
	assert.Equal(t, 10, res.Players)

	if diff := cmp.Diff(incremental, repo.Aggregates(10, testDay)); diff != "" {
		t.Errorf("batch recompute disagrees with incremental updates (-incremental +batch):\n%s", diff)
	}

	total := 0
	for _, r := range incremental {
		total += r.Points
	}
	assert.Equal(t, 6*955, total)
}

func TestRecalculateAggregates_KeepsEveryPlayerAndReadsCutToType(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.NoError(t, err)
	_, err = svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(rotate(playerIDs(15), 5)[:10]...)})
	require.NoError(t, err)

	res, err := svc.RecalculateAggregates(ctx, rankingdomain.RankingTop10, testDay)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Players)
	assert.Len(t, repo.Aggregates(10, testDay), 15)

	top, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 0)
	require.NoError(t, err)
	assert.Len(t, top, 10)
	top, err = svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 50)
	require.NoError(t, err)
	assert.Len(t, top, 10, "reads never pass the type's size")

	untruncated := newTestService(repo, WithTypeTruncation(false))
	top, err = untruncated.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 50)
	require.NoError(t, err)
	assert.Len(t, top, 15)
}

func TestRecalculateThenReplacementKeepsRowsDerivable(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	submit := func(user uuid.UUID, ids ...string) {
		t.Helper()
		_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: user, RankingType: rankingdomain.RankingTop10, Entries: ranked(ids...)})
		require.NoError(t, err)
	}

	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	submit(a, playerIDs(10)...)
	submit(b, playerIDs(15)[5:]...)
	_, err := svc.RecalculateAggregates(ctx, rankingdomain.RankingTop10, testDay)
	require.NoError(t, err)

	withP11Last := append(playerIDs(9), "P11")
	submit(c, withP11Last...)
	submit(d, withP11Last...)
	submit(b, "P6", "P7", "P8", "P9", "P10", "P12", "P13", "P14", "P15", "P16")

	p11, err := repo.GetAggregateRow(ctx, nil, "P11", testDay, 10)
	require.NoError(t, err)
	assert.Equal(t, 182, p11.Points)
	assert.Equal(t, 2, p11.Appearances)
	assert.InDelta(t, 10.0, p11.AverageRank, 1e-9)

	incremental := repo.Aggregates(10, testDay)
	_, err = svc.RecalculateAggregates(ctx, rankingdomain.RankingTop10, testDay)
	require.NoError(t, err)
	if diff := cmp.Diff(incremental, repo.Aggregates(10, testDay)); diff != "" {
		t.Errorf("stored rows drifted from the day's submissions (-incremental +batch):\n%s", diff)
	}
}

func TestRecalculateAggregates_RefusesDaysBeyondRetention(t *testing.T) {
	repo := NewFakeRankingRepo()
	old := rankingdomain.Day(testDay).AddDate(0, 0, -31)
	repo.aggregates[aggKey("P1", old, 10)] = rankingdb.AggregateRow{
		PlayerID: "P1", CalculationDate: old, RankingType: 10, Points: 100, Appearances: 1, RankSum: 1, AverageRank: 1,
	}
	svc := newTestService(repo, WithRetentionDays(30))
	ctx := context.Background()

	res, err := svc.RecalculateAggregates(ctx, rankingdomain.RankingTop10, old)
	assert.ErrorIs(t, err, ErrBeyondRetention)
	assert.Nil(t, res)
	assert.Empty(t, repo.Trace())
	assert.Len(t, repo.Aggregates(10, old), 1, "history survives")

	daily, err := svc.RunDailyAggregation(ctx, old)
	assert.ErrorIs(t, err, ErrPartialAggregation)
	assert.ErrorIs(t, err, ErrBeyondRetention)
	assert.False(t, daily.Succeeded())
	assert.Len(t, repo.Aggregates(10, old), 1)

	cutoff := rankingdomain.Day(testDay).AddDate(0, 0, -30)
	_, err = svc.RecalculateAggregates(ctx, rankingdomain.RankingTop10, cutoff)
	assert.NoError(t, err)
}

func TestRecalculateAggregates_EmptyDayClearsRows(t *testing.T) {
	repo := NewFakeRankingRepo()
	repo.aggregates[aggKey("stale", testDay, 25)] = rankingdb.AggregateRow{
		PlayerID: "stale", CalculationDate: rankingdomain.Day(testDay), RankingType: 25, Points: 5, Appearances: 1, RankSum: 96,
	}
	svc := newTestService(repo)

	res, err := svc.RecalculateAggregates(context.Background(), rankingdomain.RankingTop25, testDay)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Submissions)
	assert.Equal(t, 0, res.Players)
	assert.Empty(t, repo.Aggregates(25, testDay))
}

func TestRecalculateAggregates_ConsistencyError(t *testing.T) {
	repo := NewFakeRankingRepo()
	repo.ListSubmissionsFunc = func(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error) {
		return []rankingdb.Submission{{
			ID:             uuid.New(),
			UserID:         uuid.New(),
			RankingType:    rankingType,
			SubmissionDate: rankingdomain.Day(testDay),
			Entries:        ranked("P1", "P1"),
		}}, nil
	}
	svc := newTestService(repo)

	res, err := svc.RecalculateAggregates(context.Background(), rankingdomain.RankingTop10, testDay)
	require.Error(t, err)
	assert.Nil(t, res)

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 10, ce.RankingType)
	assert.Equal(t, "2026-03-14", ce.Date)
	assert.NotContains(t, repo.Trace(), "ReplaceAggregateRowsForDate")
}

func TestRecalculateAggregates_SharesInFlightRun(t *testing.T) {
	repo := NewFakeRankingRepo()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	repo.ListSubmissionsFunc = func(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		return nil, nil
	}
	svc := newTestService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.RecalculateAggregates(ctx, rankingdomain.RankingTop50, testDay)
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = svc.RecalculateAggregates(ctx, rankingdomain.RankingTop50, testDay)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, calls)
}

func TestRecalculateAggregates_JoinedCallerSurvivesLeaderCancel(t *testing.T) {
	repo := NewFakeRankingRepo()
	entered := make(chan struct{})
	release := make(chan struct{})
	var runCtxErr error
	repo.ListSubmissionsFunc = func(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error) {
		close(entered)
		<-release
		runCtxErr = ctx.Err()
		return nil, nil
	}
	svc := newTestService(repo)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.RecalculateAggregates(leaderCtx, rankingdomain.RankingTop25, testDay)
		leaderErr <- err
	}()
	<-entered

	followerRes := make(chan *BatchResult, 1)
	followerErr := make(chan error, 1)
	go func() {
		res, err := svc.RecalculateAggregates(context.Background(), rankingdomain.RankingTop25, testDay)
		followerRes <- res
		followerErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	require.NoError(t, <-followerErr)
	assert.NotNil(t, <-followerRes)
	assert.NoError(t, runCtxErr)
}

func TestRunDailyAggregation_KeepsPerTypeErrors(t *testing.T) {
	repo := NewFakeRankingRepo()
	repo.ListSubmissionsFunc = func(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error) {
		if rankingType != 10 {
			return nil, nil
		}
		return []rankingdb.Submission{{
			ID: uuid.New(), UserID: uuid.New(), RankingType: 10,
			SubmissionDate: rankingdomain.Day(testDay), Entries: ranked("P1", "P1"),
		}}, nil
	}
	svc := newTestService(repo)

	_, err := svc.RunDailyAggregation(context.Background(), testDay)
	require.ErrorIs(t, err, ErrPartialAggregation)
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 10, ce.RankingType)
}

func TestRunDailyAggregation_IsolatesFailures(t *testing.T) {
	repo := NewFakeRankingRepo()
	repo.ListSubmissionsFunc = func(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error) {
		if rankingType == 25 {
			return nil, errors.New("connection reset")
		}
		return nil, nil
	}
	svc := newTestService(repo)

	res, err := svc.RunDailyAggregation(context.Background(), time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialAggregation)
	require.NotNil(t, res)
	assert.False(t, res.Succeeded())
	assert.Equal(t, rankingdomain.Day(testDay), res.CalculationDate)
	require.Len(t, res.Outcomes, 4)

	for _, o := range res.Outcomes {
		if o.RankingType == rankingdomain.RankingTop25 {
			var se *StorageError
			assert.ErrorAs(t, o.Err, &se)
			assert.Nil(t, o.Result)
			continue
		}
		assert.NoError(t, o.Err, "type %d", o.RankingType)
		assert.NotNil(t, o.Result)
	}
}

func TestSubmitRanking_StorageFailureLeavesStateUntouched(t *testing.T) {
	repo := NewFakeRankingRepo()
	repo.GetSubmissionForUpdateFunc = func(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) (*rankingdb.Submission, error) {
		return nil, errors.New("connection refused")
	}
	cache := NewFakeCache()
	svc := newTestService(repo, WithCache(cache))

	res, err := svc.SubmitRanking(context.Background(), SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.Error(t, err)
	assert.Nil(t, res)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"GetSubmissionForUpdate"}, repo.Trace())
	assert.Empty(t, repo.Aggregates(10, testDay))
	assert.Empty(t, cache.Invalidated)
}

func TestSubmitRanking_StorageTimeoutCommitsNothing(t *testing.T) {
	repo := NewFakeRankingRepo()
	repo.ApplyAggregateDeltasFunc = func(ctx context.Context, db bun.IDB, date time.Time, rankingType int, deltas []rankingdomain.AggregateDelta) error {
		<-ctx.Done()
		return ctx.Err()
	}
	cache := NewFakeCache()
	pub := &recordingPublisher{}
	svc := newTestService(repo, WithStorageTimeout(20*time.Millisecond), WithCache(cache), WithPublisher(pub))

	start := time.Now()
	res, err := svc.SubmitRanking(context.Background(), SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Less(t, time.Since(start), time.Second)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, repo.Aggregates(10, testDay))
	assert.Empty(t, cache.Invalidated)
	assert.Zero(t, pub.count())
}

func TestGetTopRankings_ReadRacingSubmitIsNotCached(t *testing.T) {
	repo := NewFakeRankingRepo()
	cache := NewFakeCache()
	svc := newTestService(repo, WithCache(cache))
	ctx := context.Background()

	_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.NoError(t, err)

	raced := false
	repo.ListAggregateRowsFunc = func(ctx context.Context, db bun.IDB, rankingType int, date time.Time, limit int) ([]rankingdb.AggregateRow, error) {
		rows := repo.storedAggregateRows(rankingType, date, limit)
		if !raced {
			raced = true
			_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
			require.NoError(t, err)
		}
		return rows, nil
	}

	stale, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stale[0].Appearances)

	_, ok, _ := cache.Get(ctx, rankingdomain.RankingTop10, testDay, 10)
	assert.False(t, ok, "rows loaded before the submit committed must not be cached")

	fresh, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh[0].Appearances)
	assert.Equal(t, 200, fresh[0].Points)
}

func TestGetTopRankings(t *testing.T) {
	t.Run("no data yields empty slice", func(t *testing.T) {
		svc := newTestService(NewFakeRankingRepo())

		top, err := svc.GetTopRankings(context.Background(), rankingdomain.RankingTop25, time.Time{}, 0)
		require.NoError(t, err)
		assert.NotNil(t, top)
		assert.Empty(t, top)
	})

	t.Run("invalid type", func(t *testing.T) {
		svc := newTestService(NewFakeRankingRepo())

		_, err := svc.GetTopRankings(context.Background(), rankingdomain.RankingType(7), time.Time{}, 0)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("limit and player join", func(t *testing.T) {
		repo := NewFakeRankingRepo()
		catalog := &FakePlayerCatalog{Players: map[string]sharedtypes.Player{
			"P1": {ID: "P1", Name: "Allen", FullName: "Josh Allen", Team: "BUF", Position: "QB"},
		}}
		svc := newTestService(repo, WithPlayerCatalog(catalog))
		ctx := context.Background()
		_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
		require.NoError(t, err)

		top, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, "Allen", top[0].Name)
		assert.Equal(t, "BUF", top[0].Team)
		assert.Equal(t, "QB", top[0].PlayerPos)
		assert.Equal(t, "P2", top[1].Name, "unknown players fall back to their id")
		assert.Equal(t, []int{1, 2, 3}, []int{top[0].Position, top[1].Position, top[2].Position})
	})

	t.Run("catalog failure", func(t *testing.T) {
		repo := NewFakeRankingRepo()
		svc := newTestService(repo, WithPlayerCatalog(&FakePlayerCatalog{Err: errors.New("timeout")}))
		ctx := context.Background()
		_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
		require.NoError(t, err)

		_, err = svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 0)
		var se *StorageError
		assert.ErrorAs(t, err, &se)
	})
}

func TestGetTopRankings_CacheInvalidatedOnSubmit(t *testing.T) {
	repo := NewFakeRankingRepo()
	cache := NewFakeCache()
	svc := newTestService(repo, WithCache(cache))
	ctx := context.Background()

	_, err := svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.NoError(t, err)

	first, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 0)
	require.NoError(t, err)
	cached, ok, _ := cache.Get(ctx, rankingdomain.RankingTop10, testDay, 10)
	require.True(t, ok)
	assert.Equal(t, first, cached)

	_, err = svc.SubmitRanking(ctx, SubmitRequest{UserID: uuid.New(), RankingType: rankingdomain.RankingTop10, Entries: ranked(rotate(playerIDs(10), 1)...)})
	require.NoError(t, err)
	_, ok, _ = cache.Get(ctx, rankingdomain.RankingTop10, testDay, 10)
	assert.False(t, ok)

	second, err := svc.GetTopRankings(ctx, rankingdomain.RankingTop10, testDay, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, second[0].Appearances)
}

func TestGetUserSubmission(t *testing.T) {
	repo := NewFakeRankingRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.GetUserSubmission(ctx, user, rankingdomain.RankingTop10)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = svc.SubmitRanking(ctx, SubmitRequest{UserID: user, RankingType: rankingdomain.RankingTop10, Entries: ranked(playerIDs(10)...)})
	require.NoError(t, err)

	sub, err := svc.GetUserSubmission(ctx, user, rankingdomain.RankingTop10)
	require.NoError(t, err)
	assert.Equal(t, user, sub.UserID)
	assert.Equal(t, rankingdomain.RankingTop10, sub.RankingType)
	assert.Equal(t, rankingdomain.Day(testDay), sub.SubmissionDate)
	assert.Len(t, sub.Entries, 10)

	repo.GetLatestSubmissionFunc = func(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int) (*rankingdb.Submission, error) {
		return nil, errors.New("boom")
	}
	_, err = svc.GetUserSubmission(ctx, user, rankingdomain.RankingTop10)
	var se *StorageError
	assert.ErrorAs(t, err, &se)
}

func TestPurgeExpiredSubmissions(t *testing.T) {
	repo := NewFakeRankingRepo()
	var gotCutoff time.Time
	repo.PurgeSubmissionsBeforeFunc = func(ctx context.Context, db bun.IDB, cutoff time.Time) (int64, error) {
		gotCutoff = cutoff
		return 3, nil
	}
	svc := newTestService(repo, WithRetentionDays(30))

	n, err := svc.PurgeExpiredSubmissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC), gotCutoff)
}

func TestTriggerAggregation(t *testing.T) {
	t.Run("single type", func(t *testing.T) {
		repo := NewFakeRankingRepo()
		svc := newTestService(repo)

		res, err := svc.TriggerAggregation(context.Background(), rankingdomain.RankingTop50)
		require.NoError(t, err)
		require.Len(t, res.Outcomes, 1)
		assert.Equal(t, rankingdomain.RankingTop50, res.Outcomes[0].RankingType)
		assert.True(t, res.Succeeded())
	})

	t.Run("all types", func(t *testing.T) {
		repo := NewFakeRankingRepo()
		svc := newTestService(repo)

		res, err := svc.TriggerAggregation(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, res.Outcomes, len(rankingdomain.AllRankingTypes))
	})

	t.Run("invalid type", func(t *testing.T) {
		svc := newTestService(NewFakeRankingRepo())

		_, err := svc.TriggerAggregation(context.Background(), rankingdomain.RankingType(3))
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}
