package rankingdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/uptrace/bun"
)

// GetAggregateRow returns one aggregate row or ErrNotFound.
func (r *Impl) GetAggregateRow(ctx context.Context, db bun.IDB, playerID string, date time.Time, rankingType int) (*AggregateRow, error) {
	db = r.resolveDB(db)
	row := new(AggregateRow)
	err := db.NewSelect().
		Model(row).
		Where("player_id = ?", playerID).
		Where("calculation_date = ?", dateArg(date)).
		Where("ranking_type = ?", rankingType).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rankingdb.GetAggregateRow: %w", err)
	}
	return row, nil
}

// ApplyAggregateDeltas adds deltas to the day's rows with an upsert-increment
// and prunes rows left without appearances.
//
// Rows are written in player id order so concurrent transactions touching
// overlapping players acquire row locks in the same order.
func (r *Impl) ApplyAggregateDeltas(ctx context.Context, db bun.IDB, date time.Time, rankingType int, deltas []rankingdomain.AggregateDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	db = r.resolveDB(db)

	sorted := slices.Clone(deltas)
	slices.SortFunc(sorted, func(a, b rankingdomain.AggregateDelta) int {
		return strings.Compare(a.PlayerID, b.PlayerID)
	})

	day := rankingdomain.Day(date)
	now := time.Now().UTC()
	rows := make([]*AggregateRow, 0, len(sorted))
	ids := make([]string, 0, len(sorted))
	for _, d := range sorted {
		rows = append(rows, &AggregateRow{
			PlayerID:        d.PlayerID,
			CalculationDate: day,
			RankingType:     rankingType,
			Points:          d.Points,
			Appearances:     d.Appearances,
			RankSum:         d.RankSum,
			AverageRank:     rankingdomain.AverageRank(d.RankSum, d.Appearances),
			UpdatedAt:       now,
		})
		ids = append(ids, d.PlayerID)
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (player_id, calculation_date, ranking_type) DO UPDATE").
		Set("points = ra.points + EXCLUDED.points").
		Set("appearances = ra.appearances + EXCLUDED.appearances").
		Set("rank_sum = ra.rank_sum + EXCLUDED.rank_sum").
		Set("average_rank = CASE WHEN ra.appearances + EXCLUDED.appearances > 0 " +
			"THEN (ra.rank_sum + EXCLUDED.rank_sum)::double precision / (ra.appearances + EXCLUDED.appearances) " +
			"ELSE 0 END").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.ApplyAggregateDeltas: %w", err)
	}

	_, err = db.NewDelete().
		Model((*AggregateRow)(nil)).
		Where("calculation_date = ?", dateArg(day)).
		Where("ranking_type = ?", rankingType).
		Where("player_id IN (?)", bun.In(ids)).
		Where("appearances <= 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.ApplyAggregateDeltas: prune: %w", err)
	}
	return nil
}

// ReplaceAggregateRowsForDate deletes every row for the day and type, then inserts rows.
func (r *Impl) ReplaceAggregateRowsForDate(ctx context.Context, db bun.IDB, date time.Time, rankingType int, rows []AggregateRow) error {
	db = r.resolveDB(db)
	day := rankingdomain.Day(date)

	_, err := db.NewDelete().
		Model((*AggregateRow)(nil)).
		Where("calculation_date = ?", dateArg(day)).
		Where("ranking_type = ?", rankingType).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rankingdb.ReplaceAggregateRowsForDate: delete: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range rows {
		rows[i].CalculationDate = day
		rows[i].RankingType = rankingType
		rows[i].UpdatedAt = now
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("rankingdb.ReplaceAggregateRowsForDate: insert: %w", err)
	}
	return nil
}

// ListAggregateRows returns rows for the day and type in consensus order.
func (r *Impl) ListAggregateRows(ctx context.Context, db bun.IDB, rankingType int, date time.Time, limit int) ([]AggregateRow, error) {
	db = r.resolveDB(db)
	var rows []AggregateRow
	q := db.NewSelect().
		Model(&rows).
		Where("calculation_date = ?", dateArg(date)).
		Where("ranking_type = ?", rankingType).
		OrderExpr("points DESC, average_rank ASC, player_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rankingdb.ListAggregateRows: %w", err)
	}
	return rows, nil
}
