package rankingdomain

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoints(t *testing.T) {
	tests := []struct {
		rank int
		want int
	}{
		{1, 100},
		{2, 99},
		{50, 51},
		{99, 2},
		{100, 1},
		{101, 1},
		{150, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Points(tt.rank), "rank %d", tt.rank)
	}

	for r := 1; r <= 100; r++ {
		assert.Equal(t, max(101-r, 1), Points(r))
	}
}

func ranked(ids ...string) []RankedPlayer {
	out := make([]RankedPlayer, len(ids))
	for i, id := range ids {
		out[i] = RankedPlayer{PlayerID: id, Rank: i + 1}
	}
	return out
}

func playerIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return ids
}

func TestContribution_SumInvariant(t *testing.T) {
	for _, rt := range AllRankingTypes {
		n := int(rt)
		deltas := Contribution(ranked(playerIDs("p", n)...))
		require.Len(t, deltas, n)

		got := 0
		want := 0
		for r := 1; r <= n; r++ {
			want += max(101-r, 1)
		}
		for _, d := range deltas {
			got += d.Points
			assert.Equal(t, 1, d.Appearances)
		}
		assert.Equal(t, want, got, "type %d", n)
	}
}

func TestTally_TwoUserScenario(t *testing.T) {
	day := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	tally := NewTally(day, RankingType(2))
	tally.AddSubmission([]RankedPlayer{{PlayerID: "P1", Rank: 1}, {PlayerID: "P2", Rank: 2}})
	tally.AddSubmission([]RankedPlayer{{PlayerID: "P2", Rank: 1}, {PlayerID: "P1", Rank: 2}})

	rows := tally.Rows()
	require.Len(t, rows, 2)

	assert.Equal(t, "P1", rows[0].PlayerID)
	assert.Equal(t, "P2", rows[1].PlayerID)
	for _, r := range rows {
		assert.Equal(t, 199, r.Points)
		assert.Equal(t, 2, r.Appearances)
		assert.InDelta(t, 1.5, r.AverageRank, 1e-9)
		assert.Equal(t, Day(day), r.CalculationDate)
	}
	assert.Empty(t, tally.Invalid())
}

func TestApplyDelta_RunningMean(t *testing.T) {
	row := AggregateRow{PlayerID: "P1"}
	row.ApplyDelta(AggregateDelta{PlayerID: "P1", Points: Points(3), Appearances: 1, RankSum: 3})
	assert.InDelta(t, 3.0, row.AverageRank, 1e-9)

	// (3*1 + 6) / 2
	row.ApplyDelta(AggregateDelta{PlayerID: "P1", Points: Points(6), Appearances: 1, RankSum: 6})
	assert.InDelta(t, 4.5, row.AverageRank, 1e-9)
	assert.Equal(t, 98+95, row.Points)

	row.ApplyDelta(Negate([]AggregateDelta{{PlayerID: "P1", Points: Points(6), Appearances: 1, RankSum: 6}})[0])
	assert.Equal(t, 98, row.Points)
	assert.Equal(t, 1, row.Appearances)
	assert.InDelta(t, 3.0, row.AverageRank, 1e-9)
}

func TestReplacementDeltas_EqualsFreshApplication(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := ranked("A", "B", "C")
	second := ranked("C", "D", "A")
	other := ranked("B", "A", "D")

	// other user, then first, then replaced by second
	got := NewTally(day, RankingType(3))
	got.AddSubmission(other)
	got.Add(ReplacementDeltas(nil, first))
	got.Add(ReplacementDeltas(first, second))

	want := NewTally(day, RankingType(3))
	want.AddSubmission(other)
	want.AddSubmission(second)

	if diff := cmp.Diff(want.Rows(), got.Rows()); diff != "" {
		t.Errorf("replacement mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got.Invalid())
}

func TestReplacementDeltas_DropsUnchangedPlayers(t *testing.T) {
	prior := ranked("A", "B", "C")
	next := []RankedPlayer{{PlayerID: "A", Rank: 1}, {PlayerID: "C", Rank: 2}, {PlayerID: "B", Rank: 3}}

	deltas := ReplacementDeltas(prior, next)
	require.Len(t, deltas, 2)
	for _, d := range deltas {
		assert.Zero(t, d.Appearances)
		assert.NotEqual(t, "A", d.PlayerID)
	}
}

func TestTally_OrderIndependent(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ids := playerIDs("p", 10)
	rng := rand.New(rand.NewSource(7))

	subs := make([][]RankedPlayer, 20)
	for i := range subs {
		shuffled := append([]string(nil), ids...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		subs[i] = ranked(shuffled...)
	}

	forward := NewTally(day, RankingTop10)
	for _, s := range subs {
		forward.AddSubmission(s)
	}
	backward := NewTally(day, RankingTop10)
	for i := len(subs) - 1; i >= 0; i-- {
		backward.AddSubmission(subs[i])
	}

	assert.Equal(t, forward.Rows(), backward.Rows())
}
