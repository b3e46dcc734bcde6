package rankingmigrations

import (
	"context"
	"fmt"

	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranking_submissions and ranking_aggregates tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*rankingdb.Submission)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create ranking_submissions: %w", err)
			}
			if _, err := tx.NewCreateTable().Model((*rankingdb.AggregateRow)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create ranking_aggregates: %w", err)
			}

			stmts := []string{
				"CREATE UNIQUE INDEX IF NOT EXISTS uq_ranking_submissions_user_type_date ON ranking_submissions (user_id, ranking_type, submission_date)",
				"CREATE INDEX IF NOT EXISTS idx_ranking_submissions_type_date ON ranking_submissions (ranking_type, submission_date)",
				"CREATE INDEX IF NOT EXISTS idx_ranking_aggregates_consensus ON ranking_aggregates (ranking_type, calculation_date, points DESC, average_rank ASC, player_id ASC)",
			}
			for _, stmt := range stmts {
				if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ranking tables...")

		if _, err := db.NewDropTable().Model((*rankingdb.AggregateRow)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*rankingdb.Submission)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}
