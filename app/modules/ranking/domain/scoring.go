package rankingdomain

import "time"

// MaxPoints is awarded for rank 1. Each lower rank earns one point less, with a
// floor of MinPoints so every ranked player contributes something.
const (
	MaxPoints = 100
	MinPoints = 1
)

// Points returns the score for an absolute rank. It does not depend on the
// ranking type, so Top-10 and Top-100 submissions share one scale.
func Points(rank int) int {
	return max(MaxPoints+1-rank, MinPoints)
}

// AggregateDelta is an additive change to one player's aggregate row.
// Negative values reverse an earlier contribution.
type AggregateDelta struct {
	PlayerID    string
	Points      int
	Appearances int
	RankSum     int
}

// Contribution returns the per-player deltas a submission adds to its day.
func Contribution(entries []RankedPlayer) []AggregateDelta {
	out := make([]AggregateDelta, 0, len(entries))
	for _, e := range entries {
		out = append(out, AggregateDelta{
			PlayerID:    e.PlayerID,
			Points:      Points(e.Rank),
			Appearances: 1,
			RankSum:     e.Rank,
		})
	}
	return out
}

// Negate returns the deltas that undo d.
func Negate(d []AggregateDelta) []AggregateDelta {
	out := make([]AggregateDelta, len(d))
	for i, x := range d {
		out[i] = AggregateDelta{
			PlayerID:    x.PlayerID,
			Points:      -x.Points,
			Appearances: -x.Appearances,
			RankSum:     -x.RankSum,
		}
	}
	return out
}

// ReplacementDeltas merges the reversal of prior (may be nil) with the
// contribution of next into one delta per player. Players whose net change is
// zero are dropped.
func ReplacementDeltas(prior, next []RankedPlayer) []AggregateDelta {
	merged := make(map[string]*AggregateDelta)
	var order []string

	add := func(ds []AggregateDelta) {
		for _, d := range ds {
			cur, ok := merged[d.PlayerID]
			if !ok {
				cur = &AggregateDelta{PlayerID: d.PlayerID}
				merged[d.PlayerID] = cur
				order = append(order, d.PlayerID)
			}
			cur.Points += d.Points
			cur.Appearances += d.Appearances
			cur.RankSum += d.RankSum
		}
	}
	add(Negate(Contribution(prior)))
	add(Contribution(next))

	out := make([]AggregateDelta, 0, len(order))
	for _, id := range order {
		d := merged[id]
		if d.Points == 0 && d.Appearances == 0 && d.RankSum == 0 {
			continue
		}
		out = append(out, *d)
	}
	return out
}

// ApplyDelta folds d into row and recomputes the running mean rank.
func (r *AggregateRow) ApplyDelta(d AggregateDelta) {
	r.Points += d.Points
	r.Appearances += d.Appearances
	r.RankSum += d.RankSum
	r.AverageRank = AverageRank(r.RankSum, r.Appearances)
}

// AverageRank is rankSum / appearances, or 0 when there are no appearances.
func AverageRank(rankSum, appearances int) float64 {
	if appearances <= 0 {
		return 0
	}
	return float64(rankSum) / float64(appearances)
}

// Tally accumulates submissions for one day and ranking type in memory.
type Tally struct {
	date        time.Time
	rankingType RankingType
	rows        map[string]*AggregateRow
}

// NewTally starts an empty tally.
func NewTally(date time.Time, rankingType RankingType) *Tally {
	return &Tally{
		date:        Day(date),
		rankingType: rankingType,
		rows:        make(map[string]*AggregateRow),
	}
}

// Add folds deltas into the tally.
func (t *Tally) Add(deltas []AggregateDelta) {
	for _, d := range deltas {
		row, ok := t.rows[d.PlayerID]
		if !ok {
			row = &AggregateRow{
				PlayerID:        d.PlayerID,
				CalculationDate: t.date,
				RankingType:     t.rankingType,
			}
			t.rows[d.PlayerID] = row
		}
		row.ApplyDelta(d)
	}
}

// AddSubmission folds one submission's contribution into the tally.
func (t *Tally) AddSubmission(entries []RankedPlayer) {
	t.Add(Contribution(entries))
}

// Rows returns the accumulated rows in consensus order. Rows left with no
// appearances are omitted.
func (t *Tally) Rows() []AggregateRow {
	out := make([]AggregateRow, 0, len(t.rows))
	for _, r := range t.rows {
		if r.Appearances <= 0 {
			continue
		}
		out = append(out, *r)
	}
	SortConsensus(out)
	return out
}

// Invalid returns the player ids whose accumulated state is impossible.
func (t *Tally) Invalid() []string {
	var bad []string
	for id, r := range t.rows {
		if r.Appearances < 0 || r.Points < 0 || (r.Appearances == 0 && (r.Points != 0 || r.RankSum != 0)) {
			bad = append(bad, id)
		}
	}
	return bad
}
