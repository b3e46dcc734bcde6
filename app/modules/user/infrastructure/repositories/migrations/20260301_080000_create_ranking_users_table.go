package usermigrations

import (
	"context"
	"fmt"

	userdb "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranking_users table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*userdb.User)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create ranking_users: %w", err)
			}
			if _, err := tx.NewRaw("CREATE INDEX IF NOT EXISTS idx_ranking_users_last_submission ON ranking_users (last_submission_date)").Exec(ctx); err != nil {
				return err
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ranking_users table...")
		_, err := db.NewDropTable().Model((*userdb.User)(nil)).IfExists().Exec(ctx)
		return err
	})
}
