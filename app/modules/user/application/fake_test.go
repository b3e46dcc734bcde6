package userservice

import (
	"context"
	"time"

	userdb "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type submissionKey struct {
	email       string
	rankingType int
	day         string
}

// FakeUserRepo keeps users in memory unless a Func override is set.
type FakeUserRepo struct {
	byEmail     map[string]*userdb.User
	submissions map[submissionKey]bool

	UpsertByEmailFunc    func(ctx context.Context, db bun.IDB, u *userdb.User) error
	RecordSubmissionFunc func(ctx context.Context, db bun.IDB, id uuid.UUID, date time.Time) error
	HasSubmissionFunc    func(ctx context.Context, db bun.IDB, email string, rankingType int, date time.Time) (bool, error)

	trace []string
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byEmail:     map[string]*userdb.User{},
		submissions: map[submissionKey]bool{},
	}
}

func (f *FakeUserRepo) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeUserRepo) Trace() []string { return f.trace }

func (f *FakeUserRepo) UpsertByEmail(ctx context.Context, db bun.IDB, u *userdb.User) error {
	f.record("UpsertByEmail")
	if f.UpsertByEmailFunc != nil {
		return f.UpsertByEmailFunc(ctx, db, u)
	}
	if existing, ok := f.byEmail[u.Email]; ok {
		existing.Name = u.Name
		existing.IPAddress = u.IPAddress
		*u = *existing
		return nil
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	stored := *u
	f.byEmail[u.Email] = &stored
	return nil
}

func (f *FakeUserRepo) GetByEmail(_ context.Context, _ bun.IDB, email string) (*userdb.User, error) {
	f.record("GetByEmail")
	u, ok := f.byEmail[email]
	if !ok {
		return nil, userdb.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *FakeUserRepo) GetByID(_ context.Context, _ bun.IDB, id uuid.UUID) (*userdb.User, error) {
	f.record("GetByID")
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, userdb.ErrNotFound
}

func (f *FakeUserRepo) RecordSubmission(ctx context.Context, db bun.IDB, id uuid.UUID, date time.Time) error {
	f.record("RecordSubmission")
	if f.RecordSubmissionFunc != nil {
		return f.RecordSubmissionFunc(ctx, db, id, date)
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			u.SubmissionCount++
			d := date
			u.LastSubmissionDate = &d
			return nil
		}
	}
	return userdb.ErrNoRowsAffected
}

func (f *FakeUserRepo) HasSubmission(ctx context.Context, db bun.IDB, email string, rankingType int, date time.Time) (bool, error) {
	f.record("HasSubmission")
	if f.HasSubmissionFunc != nil {
		return f.HasSubmissionFunc(ctx, db, email, rankingType, date)
	}
	return f.submissions[submissionKey{email, rankingType, date.Format(time.DateOnly)}], nil
}

var _ userdb.Repository = (*FakeUserRepo)(nil)
