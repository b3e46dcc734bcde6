package rankingdomain

import (
	"cmp"
	"slices"
)

// CompareConsensus orders rows by points descending, then average rank
// ascending, then player id ascending.
func CompareConsensus(a, b AggregateRow) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(a.AverageRank, b.AverageRank); c != 0 {
		return c
	}
	return cmp.Compare(a.PlayerID, b.PlayerID)
}

// SortConsensus sorts rows in place into consensus order.
func SortConsensus(rows []AggregateRow) {
	slices.SortFunc(rows, CompareConsensus)
}

// TopN returns at most n rows from already sorted rows. n <= 0 returns all.
func TopN(rows []AggregateRow, n int) []AggregateRow {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}
