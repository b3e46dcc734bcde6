package userdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the persistence contract for ranking users.
//
// Error semantics:
//   - ErrNotFound: requested user does not exist (Get* methods)
//   - ErrNoRowsAffected: UPDATE matched no rows
//   - other errors: infrastructure failures
type Repository interface {
	// UpsertByEmail inserts the user or refreshes name and ip of the existing
	// row with the same email. u is updated with the stored row.
	UpsertByEmail(ctx context.Context, db bun.IDB, u *User) error
	GetByEmail(ctx context.Context, db bun.IDB, email string) (*User, error)
	GetByID(ctx context.Context, db bun.IDB, id uuid.UUID) (*User, error)

	// RecordSubmission bumps the submission counter and last submission date.
	RecordSubmission(ctx context.Context, db bun.IDB, id uuid.UUID, date time.Time) error

	// HasSubmission reports whether the user with email stored a submission of
	// rankingType on date.
	HasSubmission(ctx context.Context, db bun.IDB, email string, rankingType int, date time.Time) (bool, error)
}
