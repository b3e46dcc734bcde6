package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new user repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) UpsertByEmail(ctx context.Context, db bun.IDB, u *User) error {
	db = r.resolveDB(db)
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := db.NewInsert().
		Model(u).
		On("CONFLICT (email) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("ip_address = EXCLUDED.ip_address").
		Set("updated_at = current_timestamp").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("userdb.UpsertByEmail: %w", err)
	}
	return nil
}

func (r *Impl) GetByEmail(ctx context.Context, db bun.IDB, email string) (*User, error) {
	db = r.resolveDB(db)
	u := new(User)
	err := db.NewSelect().Model(u).Where("email = ?", email).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userdb.GetByEmail: %w", err)
	}
	return u, nil
}

func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id uuid.UUID) (*User, error) {
	db = r.resolveDB(db)
	u := new(User)
	err := db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userdb.GetByID: %w", err)
	}
	return u, nil
}

func (r *Impl) RecordSubmission(ctx context.Context, db bun.IDB, id uuid.UUID, date time.Time) error {
	db = r.resolveDB(db)
	day := date.UTC().Format(time.DateOnly)
	res, err := db.NewUpdate().
		Model((*User)(nil)).
		Set("submission_count = submission_count + 1").
		Set("last_submission_date = GREATEST(COALESCE(last_submission_date, ?::date), ?::date)", day, day).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("userdb.RecordSubmission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) HasSubmission(ctx context.Context, db bun.IDB, email string, rankingType int, date time.Time) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		TableExpr("ranking_submissions AS rs").
		Join("JOIN ranking_users AS u ON u.id = rs.user_id").
		Where("u.email = ?", email).
		Where("rs.ranking_type = ?", rankingType).
		Where("rs.submission_date = ?", date.UTC().Format(time.DateOnly)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("userdb.HasSubmission: %w", err)
	}
	return exists, nil
}
