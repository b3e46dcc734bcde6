package rankingdomain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RankingType is the list size a submission declares.
type RankingType int

const (
	RankingTop10  RankingType = 10
	RankingTop25  RankingType = 25
	RankingTop50  RankingType = 50
	RankingTop100 RankingType = 100

	DefaultRankingType = RankingTop25
)

// AllRankingTypes lists every accepted ranking type in ascending order.
var AllRankingTypes = []RankingType{RankingTop10, RankingTop25, RankingTop50, RankingTop100}

// Valid reports whether t is one of the accepted ranking types.
func (t RankingType) Valid() bool {
	switch t {
	case RankingTop10, RankingTop25, RankingTop50, RankingTop100:
		return true
	}
	return false
}

func (t RankingType) String() string { return strconv.Itoa(int(t)) }

// ParseRankingType parses a decimal ranking type and rejects unknown sizes.
func ParseRankingType(s string) (RankingType, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ranking type %q", s)
	}
	t := RankingType(n)
	if !t.Valid() {
		return 0, fmt.Errorf("invalid ranking type %d", n)
	}
	return t, nil
}

// RankedPlayer is one entry of a submission. Rank 1 is best.
type RankedPlayer struct {
	PlayerID string `json:"player_id"`
	Rank     int    `json:"rank"`
}

// Submission is one user's complete ranking for one type on one calendar day.
type Submission struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	RankingType    RankingType    `json:"ranking_type"`
	SubmissionDate time.Time      `json:"submission_date"`
	Entries        []RankedPlayer `json:"rankings"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AggregateRow is a player's accumulated standing for one day and ranking type.
type AggregateRow struct {
	PlayerID        string      `json:"player_id"`
	CalculationDate time.Time   `json:"calculation_date"`
	RankingType     RankingType `json:"ranking_type"`
	Points          int         `json:"points"`
	Appearances     int         `json:"appearances"`
	RankSum         int         `json:"-"`
	AverageRank     float64     `json:"average_rank"`
}

// ConsensusEntry is an aggregate row positioned in the consensus list and
// joined with the player's display attributes.
type ConsensusEntry struct {
	Position    int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	FullName    string  `json:"full_name,omitempty"`
	Team        string  `json:"team,omitempty"`
	PlayerPos   string  `json:"position,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Points      int     `json:"points"`
	Appearances int     `json:"appearances"`
	AverageRank float64 `json:"average_rank"`
}
