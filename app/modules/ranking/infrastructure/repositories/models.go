package rankingdb

import (
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Submission is one user's ranking for one type on one day.
// (user_id, ranking_type, submission_date) is unique.
type Submission struct {
	bun.BaseModel `bun:"table:ranking_submissions,alias:rs"`

	ID             uuid.UUID                    `bun:"id,pk,type:uuid"`
	UserID         uuid.UUID                    `bun:"user_id,type:uuid,notnull"`
	RankingType    int                          `bun:"ranking_type,notnull"`
	SubmissionDate time.Time                    `bun:"submission_date,type:date,notnull"`
	Entries        []rankingdomain.RankedPlayer `bun:"entries,type:jsonb,notnull"`
	CreatedAt      time.Time                    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// AggregateRow is a player's accumulated standing for one day and ranking type.
type AggregateRow struct {
	bun.BaseModel `bun:"table:ranking_aggregates,alias:ra"`

	PlayerID        string    `bun:"player_id,pk"`
	CalculationDate time.Time `bun:"calculation_date,pk,type:date"`
	RankingType     int       `bun:"ranking_type,pk"`
	Points          int       `bun:"points,notnull"`
	Appearances     int       `bun:"appearances,notnull"`
	RankSum         int       `bun:"rank_sum,notnull"`
	AverageRank     float64   `bun:"average_rank,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ToDomain converts the row to its domain form.
func (s *Submission) ToDomain() rankingdomain.Submission {
	return rankingdomain.Submission{
		ID:             s.ID,
		UserID:         s.UserID,
		RankingType:    rankingdomain.RankingType(s.RankingType),
		SubmissionDate: rankingdomain.Day(s.SubmissionDate),
		Entries:        s.Entries,
		CreatedAt:      s.CreatedAt,
	}
}

// ToDomain converts the row to its domain form.
func (a *AggregateRow) ToDomain() rankingdomain.AggregateRow {
	return rankingdomain.AggregateRow{
		PlayerID:        a.PlayerID,
		CalculationDate: rankingdomain.Day(a.CalculationDate),
		RankingType:     rankingdomain.RankingType(a.RankingType),
		Points:          a.Points,
		Appearances:     a.Appearances,
		RankSum:         a.RankSum,
		AverageRank:     a.AverageRank,
	}
}

// dateArg renders a calendar day for comparison against DATE columns so the
// session time zone never shifts it.
func dateArg(t time.Time) string {
	return rankingdomain.Day(t).Format(time.DateOnly)
}
