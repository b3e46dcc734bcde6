package rankingservice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Ranking Repo
// ------------------------

// FakeRankingRepo records calls and, unless a Func override is set, keeps
// state in memory.
type FakeRankingRepo struct {
	mu    sync.Mutex
	trace []string

	submissions map[string]rankingdb.Submission
	aggregates  map[string]rankingdb.AggregateRow

	InsertSubmissionFunc            func(ctx context.Context, db bun.IDB, s *rankingdb.Submission) error
	DeleteSubmissionFunc            func(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) error
	GetSubmissionForUpdateFunc      func(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) (*rankingdb.Submission, error)
	GetLatestSubmissionFunc         func(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int) (*rankingdb.Submission, error)
	ListSubmissionsFunc             func(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error)
	PurgeSubmissionsBeforeFunc      func(ctx context.Context, db bun.IDB, cutoff time.Time) (int64, error)
	GetAggregateRowFunc             func(ctx context.Context, db bun.IDB, playerID string, date time.Time, rankingType int) (*rankingdb.AggregateRow, error)
	ApplyAggregateDeltasFunc        func(ctx context.Context, db bun.IDB, date time.Time, rankingType int, deltas []rankingdomain.AggregateDelta) error
	ReplaceAggregateRowsForDateFunc func(ctx context.Context, db bun.IDB, date time.Time, rankingType int, rows []rankingdb.AggregateRow) error
	ListAggregateRowsFunc           func(ctx context.Context, db bun.IDB, rankingType int, date time.Time, limit int) ([]rankingdb.AggregateRow, error)
}

func NewFakeRankingRepo() *FakeRankingRepo {
	return &FakeRankingRepo{
		trace:       []string{},
		submissions: map[string]rankingdb.Submission{},
		aggregates:  map[string]rankingdb.AggregateRow{},
	}
}

func (f *FakeRankingRepo) record(step string) {
	f.mu.Lock()
	f.trace = append(f.trace, step)
	f.mu.Unlock()
}

func subKey(userID uuid.UUID, rankingType int, date time.Time) string {
	return fmt.Sprintf("%s|%d|%s", userID, rankingType, rankingdomain.Day(date).Format(time.DateOnly))
}

func aggKey(playerID string, date time.Time, rankingType int) string {
	return fmt.Sprintf("%s|%s|%d", playerID, rankingdomain.Day(date).Format(time.DateOnly), rankingType)
}

// --- Repository Interface Implementation ---

func (f *FakeRankingRepo) InsertSubmission(ctx context.Context, db bun.IDB, s *rankingdb.Submission) error {
	f.record("InsertSubmission")
	if f.InsertSubmissionFunc != nil {
		return f.InsertSubmissionFunc(ctx, db, s)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := subKey(s.UserID, s.RankingType, s.SubmissionDate)
	if _, exists := f.submissions[key]; exists {
		return fmt.Errorf("duplicate submission %s", key)
	}
	cp := *s
	cp.SubmissionDate = rankingdomain.Day(s.SubmissionDate)
	cp.CreatedAt = time.Now()
	f.submissions[key] = cp
	return nil
}

func (f *FakeRankingRepo) DeleteSubmission(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) error {
	f.record("DeleteSubmission")
	if f.DeleteSubmissionFunc != nil {
		return f.DeleteSubmissionFunc(ctx, db, userID, rankingType, date)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.submissions, subKey(userID, rankingType, date))
	return nil
}

func (f *FakeRankingRepo) GetSubmissionForUpdate(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) (*rankingdb.Submission, error) {
	f.record("GetSubmissionForUpdate")
	if f.GetSubmissionForUpdateFunc != nil {
		return f.GetSubmissionForUpdateFunc(ctx, db, userID, rankingType, date)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[subKey(userID, rankingType, date)]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	return &s, nil
}

func (f *FakeRankingRepo) GetLatestSubmission(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int) (*rankingdb.Submission, error) {
	f.record("GetLatestSubmission")
	if f.GetLatestSubmissionFunc != nil {
		return f.GetLatestSubmissionFunc(ctx, db, userID, rankingType)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *rankingdb.Submission
	for _, s := range f.submissions {
		if s.UserID != userID || s.RankingType != rankingType {
			continue
		}
		if latest == nil || s.SubmissionDate.After(latest.SubmissionDate) {
			cp := s
			latest = &cp
		}
	}
	if latest == nil {
		return nil, rankingdb.ErrNotFound
	}
	return latest, nil
}

func (f *FakeRankingRepo) ListSubmissions(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]rankingdb.Submission, error) {
	f.record("ListSubmissions")
	if f.ListSubmissionsFunc != nil {
		return f.ListSubmissionsFunc(ctx, db, rankingType, dates)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rankingdb.Submission
	for _, s := range f.submissions {
		if s.RankingType != rankingType {
			continue
		}
		if !dates.From.IsZero() && s.SubmissionDate.Before(rankingdomain.Day(dates.From)) {
			continue
		}
		if !dates.To.IsZero() && s.SubmissionDate.After(rankingdomain.Day(dates.To)) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}

func (f *FakeRankingRepo) PurgeSubmissionsBefore(ctx context.Context, db bun.IDB, cutoff time.Time) (int64, error) {
	f.record("PurgeSubmissionsBefore")
	if f.PurgeSubmissionsBeforeFunc != nil {
		return f.PurgeSubmissionsBeforeFunc(ctx, db, cutoff)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.submissions {
		if s.SubmissionDate.Before(rankingdomain.Day(cutoff)) {
			delete(f.submissions, k)
			n++
		}
	}
	return n, nil
}

func (f *FakeRankingRepo) GetAggregateRow(ctx context.Context, db bun.IDB, playerID string, date time.Time, rankingType int) (*rankingdb.AggregateRow, error) {
	f.record("GetAggregateRow")
	if f.GetAggregateRowFunc != nil {
		return f.GetAggregateRowFunc(ctx, db, playerID, date, rankingType)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.aggregates[aggKey(playerID, date, rankingType)]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	return &row, nil
}

func (f *FakeRankingRepo) ApplyAggregateDeltas(ctx context.Context, db bun.IDB, date time.Time, rankingType int, deltas []rankingdomain.AggregateDelta) error {
	f.record("ApplyAggregateDeltas")
	if f.ApplyAggregateDeltasFunc != nil {
		return f.ApplyAggregateDeltasFunc(ctx, db, date, rankingType, deltas)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range deltas {
		key := aggKey(d.PlayerID, date, rankingType)
		row, ok := f.aggregates[key]
		if !ok {
			row = rankingdb.AggregateRow{PlayerID: d.PlayerID, CalculationDate: rankingdomain.Day(date), RankingType: rankingType}
		}
		row.Points += d.Points
		row.Appearances += d.Appearances
		row.RankSum += d.RankSum
		row.AverageRank = rankingdomain.AverageRank(row.RankSum, row.Appearances)
		if row.Appearances <= 0 {
			delete(f.aggregates, key)
			continue
		}
		f.aggregates[key] = row
	}
	return nil
}

func (f *FakeRankingRepo) ReplaceAggregateRowsForDate(ctx context.Context, db bun.IDB, date time.Time, rankingType int, rows []rankingdb.AggregateRow) error {
	f.record("ReplaceAggregateRowsForDate")
	if f.ReplaceAggregateRowsForDateFunc != nil {
		return f.ReplaceAggregateRowsForDateFunc(ctx, db, date, rankingType, rows)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	day := rankingdomain.Day(date)
	for k, r := range f.aggregates {
		if r.RankingType == rankingType && r.CalculationDate.Equal(day) {
			delete(f.aggregates, k)
		}
	}
	for _, r := range rows {
		r.CalculationDate = day
		r.RankingType = rankingType
		f.aggregates[aggKey(r.PlayerID, day, rankingType)] = r
	}
	return nil
}

func (f *FakeRankingRepo) ListAggregateRows(ctx context.Context, db bun.IDB, rankingType int, date time.Time, limit int) ([]rankingdb.AggregateRow, error) {
	f.record("ListAggregateRows")
	if f.ListAggregateRowsFunc != nil {
		return f.ListAggregateRowsFunc(ctx, db, rankingType, date, limit)
	}
	return f.storedAggregateRows(rankingType, date, limit), nil
}

// storedAggregateRows is the in-memory listing, usable from Func overrides.
func (f *FakeRankingRepo) storedAggregateRows(rankingType int, date time.Time, limit int) []rankingdb.AggregateRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := rankingdomain.Day(date)
	var out []rankingdb.AggregateRow
	for _, r := range f.aggregates {
		if r.RankingType == rankingType && r.CalculationDate.Equal(day) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return rankingdomain.CompareConsensus(out[i].ToDomain(), out[j].ToDomain()) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// --- Accessors for assertions ---

func (f *FakeRankingRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Aggregates returns the stored rows of one day and type in consensus order.
func (f *FakeRankingRepo) Aggregates(rankingType int, date time.Time) []rankingdomain.AggregateRow {
	rows := f.storedAggregateRows(rankingType, date, 0)
	out := make([]rankingdomain.AggregateRow, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// Ensure the fake actually satisfies the interface
var _ rankingdb.Repository = (*FakeRankingRepo)(nil)

// ------------------------
// Fake Player Catalog
// ------------------------

type FakePlayerCatalog struct {
	Players map[string]sharedtypes.Player
	Err     error
}

func (f *FakePlayerCatalog) GetPlayersByIDs(_ context.Context, ids []string) ([]sharedtypes.Player, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []sharedtypes.Player
	for _, id := range ids {
		if p, ok := f.Players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ PlayerCatalog = (*FakePlayerCatalog)(nil)

// ------------------------
// Fake Cache
// ------------------------

type FakeCache struct {
	mu          sync.Mutex
	entries     map[string][]rankingdomain.ConsensusEntry
	generations map[string]int64
	Invalidated []string
}

func NewFakeCache() *FakeCache {
	return &FakeCache{
		entries:     map[string][]rankingdomain.ConsensusEntry{},
		generations: map[string]int64{},
	}
}

func cacheKey(t rankingdomain.RankingType, date time.Time, limit int) string {
	return fmt.Sprintf("%d|%s|%d", t, rankingdomain.Day(date).Format(time.DateOnly), limit)
}

func dayPrefix(t rankingdomain.RankingType, date time.Time) string {
	return fmt.Sprintf("%d|%s|", t, rankingdomain.Day(date).Format(time.DateOnly))
}

func (c *FakeCache) Get(_ context.Context, t rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(t, date, limit)]
	return e, ok, nil
}

func (c *FakeCache) Generation(_ context.Context, t rankingdomain.RankingType, date time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[dayPrefix(t, date)], nil
}

func (c *FakeCache) Set(_ context.Context, t rankingdomain.RankingType, date time.Time, limit int, generation int64, entries []rankingdomain.ConsensusEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[dayPrefix(t, date)] != generation {
		return nil
	}
	c.entries[cacheKey(t, date, limit)] = entries
	return nil
}

func (c *FakeCache) Invalidate(_ context.Context, t rankingdomain.RankingType, date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := dayPrefix(t, date)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.generations[prefix]++
	c.Invalidated = append(c.Invalidated, prefix)
	return nil
}

var _ TopRankingsCache = (*FakeCache)(nil)

// ------------------------
// Recording Publisher
// ------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for range messages {
		p.topics = append(p.topics, topic)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

var _ message.Publisher = (*recordingPublisher)(nil)
