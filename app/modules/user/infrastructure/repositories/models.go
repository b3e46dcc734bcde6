package userdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is a ranking submitter identified by email.
type User struct {
	bun.BaseModel `bun:"table:ranking_users,alias:u"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid"`
	Email              string     `bun:"email,notnull,unique"`
	Name               string     `bun:"name,notnull"`
	IPAddress          string     `bun:"ip_address"`
	SubmissionCount    int        `bun:"submission_count,notnull,default:0"`
	LastSubmissionDate *time.Time `bun:"last_submission_date,type:date"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ToShared converts the row to the shared user type.
func (u *User) ToShared() sharedtypes.User {
	return sharedtypes.User{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		SubmissionCount:    u.SubmissionCount,
		LastSubmissionDate: u.LastSubmissionDate,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
