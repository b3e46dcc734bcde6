package rankingdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new ranking repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// InsertSubmission stores a new submission.
func (r *Impl) InsertSubmission(ctx context.Context, db bun.IDB, s *Submission) error {
	db = r.resolveDB(db)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.SubmissionDate = rankingdomain.Day(s.SubmissionDate)
	if _, err := db.NewInsert().Model(s).Exec(ctx); err != nil {
		return fmt.Errorf("rankingdb.InsertSubmission: %w", err)
	}
	return nil
}

// DeleteSubmission removes a user's submission for a type and day.
func (r *Impl) DeleteSubmission(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*Submission)(nil)).
		Where("user_id = ?", userID).
		Where("ranking_type = ?", rankingType).
		Where("submission_date = ?", dateArg(date)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.DeleteSubmission: %w", err)
	}
	return nil
}

// GetSubmissionForUpdate returns and locks a user's submission for a type and day.
func (r *Impl) GetSubmissionForUpdate(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int, date time.Time) (*Submission, error) {
	db = r.resolveDB(db)
	s := new(Submission)
	err := db.NewSelect().
		Model(s).
		Where("user_id = ?", userID).
		Where("ranking_type = ?", rankingType).
		Where("submission_date = ?", dateArg(date)).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rankingdb.GetSubmissionForUpdate: %w", err)
	}
	return s, nil
}

// GetLatestSubmission returns the user's most recent submission for a type.
func (r *Impl) GetLatestSubmission(ctx context.Context, db bun.IDB, userID uuid.UUID, rankingType int) (*Submission, error) {
	db = r.resolveDB(db)
	s := new(Submission)
	err := db.NewSelect().
		Model(s).
		Where("user_id = ?", userID).
		Where("ranking_type = ?", rankingType).
		OrderExpr("submission_date DESC, created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rankingdb.GetLatestSubmission: %w", err)
	}
	return s, nil
}

// ListSubmissions returns every submission of a type inside the range.
func (r *Impl) ListSubmissions(ctx context.Context, db bun.IDB, rankingType int, dates rankingdomain.DateRange) ([]Submission, error) {
	db = r.resolveDB(db)
	var subs []Submission
	q := db.NewSelect().
		Model(&subs).
		Where("ranking_type = ?", rankingType)
	if !dates.From.IsZero() {
		q = q.Where("submission_date >= ?", dateArg(dates.From))
	}
	if !dates.To.IsZero() {
		q = q.Where("submission_date <= ?", dateArg(dates.To))
	}
	if err := q.OrderExpr("submission_date ASC, user_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("rankingdb.ListSubmissions: %w", err)
	}
	return subs, nil
}

// PurgeSubmissionsBefore deletes submissions dated before cutoff.
func (r *Impl) PurgeSubmissionsBefore(ctx context.Context, db bun.IDB, cutoff time.Time) (int64, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*Submission)(nil)).
		Where("submission_date < ?", dateArg(cutoff)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("rankingdb.PurgeSubmissionsBefore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rankingdb.PurgeSubmissionsBefore: %w", err)
	}
	return n, nil
}
