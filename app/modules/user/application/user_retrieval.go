package userservice

import (
	"context"
	"errors"
	"time"

	userdb "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*sharedtypes.User, error) {
	email = sharedtypes.NormalizeEmail(email)

	result, err := withTelemetry(s, ctx, "GetUserByEmail", email, func(ctx context.Context) (results.OperationResult[*sharedtypes.User, error], error) {
		if !sharedtypes.ValidEmail(email) {
			return results.FailureResult[*sharedtypes.User, error](sharedtypes.ErrInvalidEmail), nil
		}
		u, err := s.repo.GetByEmail(ctx, nil, email)
		if errors.Is(err, userdb.ErrNotFound) {
			return results.FailureResult[*sharedtypes.User, error](sharedtypes.ErrUserNotFound), nil
		}
		if err != nil {
			return results.OperationResult[*sharedtypes.User, error]{}, err
		}
		shared := u.ToShared()
		return results.SuccessResult[*sharedtypes.User, error](&shared), nil
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *UserService) FindUserID(ctx context.Context, email string) (uuid.UUID, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (s *UserService) HasSubmittedToday(ctx context.Context, email string, rankingType int) (bool, error) {
	email = sharedtypes.NormalizeEmail(email)
	today := s.now().UTC()

	result, err := withTelemetry(s, ctx, "HasSubmittedToday", email, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		ok, err := s.repo.HasSubmission(ctx, nil, email, rankingType, today)
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](ok), nil
	})
	if err != nil {
		return false, err
	}
	return *result.Success, nil
}

func (s *UserService) RecordSubmission(ctx context.Context, userID uuid.UUID, date time.Time) error {
	if date.IsZero() {
		date = s.now()
	}
	result, err := withTelemetry(s, ctx, "RecordSubmission", userID.String(), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		err := s.repo.RecordSubmission(ctx, nil, userID, date)
		if errors.Is(err, userdb.ErrNoRowsAffected) {
			return results.FailureResult[bool, error](sharedtypes.ErrUserNotFound), nil
		}
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}
