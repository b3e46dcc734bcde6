package userhandlers

import (
	"context"
	"time"

	userservice "github.com/Black-And-White-Club/consensus-rank/app/modules/user/application"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

// FakeService implements userservice.Service with overridable funcs.
type FakeService struct {
	EnsureUserFunc        func(ctx context.Context, email, name, ipAddress string) (uuid.UUID, error)
	FindUserIDFunc        func(ctx context.Context, email string) (uuid.UUID, error)
	GetUserByEmailFunc    func(ctx context.Context, email string) (*sharedtypes.User, error)
	RecordSubmissionFunc  func(ctx context.Context, userID uuid.UUID, date time.Time) error
	HasSubmittedTodayFunc func(ctx context.Context, email string, rankingType int) (bool, error)

	calls []string
}

func (f *FakeService) Calls() []string { return f.calls }

func (f *FakeService) EnsureUser(ctx context.Context, email, name, ipAddress string) (uuid.UUID, error) {
	f.calls = append(f.calls, "EnsureUser")
	if f.EnsureUserFunc != nil {
		return f.EnsureUserFunc(ctx, email, name, ipAddress)
	}
	return uuid.New(), nil
}

func (f *FakeService) FindUserID(ctx context.Context, email string) (uuid.UUID, error) {
	f.calls = append(f.calls, "FindUserID")
	if f.FindUserIDFunc != nil {
		return f.FindUserIDFunc(ctx, email)
	}
	return uuid.Nil, sharedtypes.ErrUserNotFound
}

func (f *FakeService) GetUserByEmail(ctx context.Context, email string) (*sharedtypes.User, error) {
	f.calls = append(f.calls, "GetUserByEmail")
	if f.GetUserByEmailFunc != nil {
		return f.GetUserByEmailFunc(ctx, email)
	}
	return nil, sharedtypes.ErrUserNotFound
}

func (f *FakeService) RecordSubmission(ctx context.Context, userID uuid.UUID, date time.Time) error {
	f.calls = append(f.calls, "RecordSubmission")
	if f.RecordSubmissionFunc != nil {
		return f.RecordSubmissionFunc(ctx, userID, date)
	}
	return nil
}

func (f *FakeService) HasSubmittedToday(ctx context.Context, email string, rankingType int) (bool, error) {
	f.calls = append(f.calls, "HasSubmittedToday")
	if f.HasSubmittedTodayFunc != nil {
		return f.HasSubmittedTodayFunc(ctx, email, rankingType)
	}
	return false, nil
}

var _ userservice.Service = (*FakeService)(nil)
