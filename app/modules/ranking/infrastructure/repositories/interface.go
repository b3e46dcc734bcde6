package rankingdb

import (
	"context"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for ranking persistence. Every method
// accepts an optional bun.IDB so callers can run it inside a transaction;
// nil falls back to the repository's default connection.
type Repository interface {
	// InsertSubmission stores a new submission.
	InsertSubmission(ctx context.Context, db bun.IDB, s *Submission) error

	// DeleteSubmission removes a user's submission for a type and day.
	DeleteSubmission(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) error

	// GetSubmissionForUpdate returns a user's submission for a type and day,
	// locking it for the rest of the transaction. Returns ErrNotFound if absent.
	GetSubmissionForUpdate(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) (*Submission, error)

	// GetLatestSubmission returns the user's most recent submission for a type.
	GetLatestSubmission(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int) (*Submission, error)

	// ListSubmissions returns every submission of a type inside the range.
	ListSubmissions(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]Submission, error)

	// PurgeSubmissionsBefore deletes submissions dated before cutoff.
	PurgeSubmissionsBefore(ctx context.Context, db bun.IDB, cutoff time.Time) (int64, error)

	// GetAggregateRow returns one aggregate row or ErrNotFound.
	GetAggregateRow(ctx context.Context, db bun.IDB, playerID string, date time.Time, rankingType int) (*AggregateRow, error)

	// ApplyAggregateDeltas adds deltas to the day's rows with an upsert-increment
	// and prunes rows left without appearances. Player ids must be unique.
	ApplyAggregateDeltas(ctx context.Context, db bun.IDB, date time.Time, rankingType int, deltas []rankingdomain.AggregateDelta) error

	// ReplaceAggregateRowsForDate deletes every row for the day and type, then inserts rows.
	ReplaceAggregateRowsForDate(ctx context.Context, db bun.IDB, date time.Time, rankingType int, rows []AggregateRow) error

	// ListAggregateRows returns rows for the day and type in consensus order.
	// limit <= 0 returns every row.
	ListAggregateRows(ctx context.Context, db bun.IDB, rankingType int, date time.Time, limit int) ([]AggregateRow, error)
}
