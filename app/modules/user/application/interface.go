package userservice

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

// Service manages ranking submitters.
type Service interface {
	// EnsureUser creates the user or refreshes name and ip of the existing one.
	// Invalid input yields sharedtypes.ErrInvalidEmail or ErrInvalidName.
	EnsureUser(ctx context.Context, email, name, ipAddress string) (uuid.UUID, error)

	// FindUserID returns sharedtypes.ErrUserNotFound for an unknown email.
	FindUserID(ctx context.Context, email string) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (*sharedtypes.User, error)

	// RecordSubmission counts an accepted submission for the user.
	RecordSubmission(ctx context.Context, userID uuid.UUID, date time.Time) error

	// HasSubmittedToday reports whether the user already submitted rankingType
	// today. Unknown emails report false.
	HasSubmittedToday(ctx context.Context, email string, rankingType int) (bool, error)
}
