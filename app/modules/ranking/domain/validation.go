package rankingdomain

import "fmt"

// ValidationResult is the outcome of validating a submission. Reasons are in
// check order and every failing check contributes.
type ValidationResult struct {
	Valid   bool
	Reasons []string
}

// NormalizeEntries returns entries with ranks implied by list order when no
// entry carries an explicit rank. Explicit ranks are returned untouched.
func NormalizeEntries(entries []RankedPlayer) []RankedPlayer {
	out := make([]RankedPlayer, len(entries))
	copy(out, entries)
	for _, e := range out {
		if e.Rank != 0 {
			return out
		}
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ValidateSubmission checks a candidate submission:
//  1. the ranking type is accepted
//  2. the list length equals the ranking type
//  3. no player appears twice
//  4. every rank lies in [1, type] and no rank repeats
func ValidateSubmission(rankingType RankingType, entries []RankedPlayer) ValidationResult {
	var reasons []string

	if !rankingType.Valid() {
		reasons = append(reasons, "Invalid ranking type. Must be 10, 25, 50, or 100")
	}

	if len(entries) != int(rankingType) {
		reasons = append(reasons, fmt.Sprintf("Rankings must contain exactly %d players", rankingType))
	}

	seenPlayers := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seenPlayers[e.PlayerID]; dup {
			reasons = append(reasons, "Rankings contain duplicate players")
			break
		}
		seenPlayers[e.PlayerID] = struct{}{}
	}

	seenRanks := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.Rank < 1 || e.Rank > int(rankingType) {
			reasons = append(reasons, fmt.Sprintf("Invalid rank: %d. Must be between 1 and %d", e.Rank, rankingType))
			continue
		}
		if _, dup := seenRanks[e.Rank]; dup {
			reasons = append(reasons, fmt.Sprintf("Duplicate rank: %d", e.Rank))
			continue
		}
		seenRanks[e.Rank] = struct{}{}
	}

	return ValidationResult{Valid: len(reasons) == 0, Reasons: reasons}
}
