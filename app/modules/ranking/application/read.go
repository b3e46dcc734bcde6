package rankingservice

import (
	"context"
	"errors"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/google/uuid"
)

// GetTopRankings returns the consensus list for a type and day.
func (s *RankingService) GetTopRankings(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, error) {
	if !rankingType.Valid() {
		return nil, &ValidationError{Reasons: []string{"Invalid ranking type. Must be 10, 25, 50, or 100"}}
	}
	if date.IsZero() {
		date = s.now()
	}
	day := rankingdomain.Day(date)
	if limit <= 0 || (s.truncateToType && limit > int(rankingType)) {
		limit = int(rankingType)
	}

	// generation is read before the rows so a submit committing meanwhile
	// makes the write below a no-op.
	var generation int64
	cacheable := false
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, rankingType, day, limit)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "Consensus cache read failed", attr.Error(err))
		case ok:
			return cached, nil
		default:
			generation, err = s.cache.Generation(ctx, rankingType, day)
			if err != nil {
				s.logger.WarnContext(ctx, "Consensus cache read failed", attr.Error(err))
			} else {
				cacheable = true
			}
		}
	}

	identifier := rankingType.String() + ":" + day.Format(time.DateOnly)
	result, err := withTelemetry(s, ctx, "GetTopRankings", identifier, func(ctx context.Context) (results.OperationResult[[]rankingdomain.ConsensusEntry, error], error) {
		ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
		defer cancel()

		rows, err := s.repo.ListAggregateRows(ctx, nil, int(rankingType), day, limit)
		if err != nil {
			return results.OperationResult[[]rankingdomain.ConsensusEntry, error]{}, err
		}

		domainRows := make([]rankingdomain.AggregateRow, 0, len(rows))
		for i := range rows {
			domainRows = append(domainRows, rows[i].ToDomain())
		}
		rankingdomain.SortConsensus(domainRows)
		domainRows = rankingdomain.TopN(domainRows, limit)

		entries, err := s.joinPlayers(ctx, domainRows)
		if err != nil {
			return results.OperationResult[[]rankingdomain.ConsensusEntry, error]{}, err
		}
		return results.SuccessResult[[]rankingdomain.ConsensusEntry, error](entries), nil
	})
	if err != nil {
		return nil, storageErr("GetTopRankings", err)
	}

	entries := *result.Success
	if cacheable {
		if err := s.cache.Set(ctx, rankingType, day, limit, generation, entries); err != nil {
			s.logger.WarnContext(ctx, "Consensus cache write failed", attr.Error(err))
		}
	}
	return entries, nil
}

// joinPlayers positions rows and attaches display attributes. Players missing
// from the catalog keep their id as name.
func (s *RankingService) joinPlayers(ctx context.Context, rows []rankingdomain.AggregateRow) ([]rankingdomain.ConsensusEntry, error) {
	entries := make([]rankingdomain.ConsensusEntry, 0, len(rows))
	if len(rows) == 0 {
		return entries, nil
	}

	byID := map[string]sharedtypes.Player{}
	if s.players != nil {
		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.PlayerID)
		}
		players, err := s.players.GetPlayersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			byID[p.ID] = p
		}
	}

	for i, r := range rows {
		e := rankingdomain.ConsensusEntry{
			Position:    i + 1,
			PlayerID:    r.PlayerID,
			Name:        r.PlayerID,
			Points:      r.Points,
			Appearances: r.Appearances,
			AverageRank: r.AverageRank,
		}
		if p, ok := byID[r.PlayerID]; ok {
			e.Name = p.Name
			e.FullName = p.FullName
			e.Team = p.Team
			e.PlayerPos = p.Position
			e.ImageURL = p.ImageURL
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetUserSubmission returns the user's latest submission for a type.
func (s *RankingService) GetUserSubmission(ctx context.Context, userID uuid.UUID, rankingType rankingdomain.RankingType) (*rankingdomain.Submission, error) {
	result, err := withTelemetry(s, ctx, "GetUserSubmission", userID.String(), func(ctx context.Context) (results.OperationResult[*rankingdomain.Submission, error], error) {
		ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
		defer cancel()

		sub, err := s.repo.GetLatestSubmission(ctx, nil, userID, int(rankingType))
		if errors.Is(err, rankingdb.ErrNotFound) {
			return results.FailureResult[*rankingdomain.Submission, error](ErrSubmissionNotFound), nil
		}
		if err != nil {
			return results.OperationResult[*rankingdomain.Submission, error]{}, err
		}
		d := sub.ToDomain()
		return results.SuccessResult[*rankingdomain.Submission, error](&d), nil
	})
	if err != nil {
		return nil, storageErr("GetUserSubmission", err)
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}
