package userservice

import (
	"context"
	"strings"

	userdb "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

func (s *UserService) EnsureUser(ctx context.Context, email, name, ipAddress string) (uuid.UUID, error) {
	email = sharedtypes.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	result, err := withTelemetry(s, ctx, "EnsureUser", email, func(ctx context.Context) (results.OperationResult[uuid.UUID, error], error) {
		if !sharedtypes.ValidEmail(email) {
			return results.FailureResult[uuid.UUID, error](sharedtypes.ErrInvalidEmail), nil
		}
		if !sharedtypes.ValidName(name) {
			return results.FailureResult[uuid.UUID, error](sharedtypes.ErrInvalidName), nil
		}

		u := &userdb.User{Email: email, Name: name, IPAddress: ipAddress}
		if err := s.repo.UpsertByEmail(ctx, nil, u); err != nil {
			return results.OperationResult[uuid.UUID, error]{}, err
		}
		return results.SuccessResult[uuid.UUID, error](u.ID), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if result.IsFailure() {
		return uuid.Nil, *result.Failure
	}

	s.logger.InfoContext(ctx, "User ensured",
		attr.ExtractCorrelationID(ctx),
		attr.String("user_id", result.Success.String()),
	)
	return *result.Success, nil
}
