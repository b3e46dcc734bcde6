package playermigrations

import (
	"context"
	"fmt"

	playerdb "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating players table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*playerdb.Player)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create players: %w", err)
			}
			stmts := []string{
				"CREATE INDEX IF NOT EXISTS idx_players_slug ON players (slug)",
				"CREATE INDEX IF NOT EXISTS idx_players_position ON players (position)",
				"CREATE INDEX IF NOT EXISTS idx_players_name ON players (name)",
			}
			for _, stmt := range stmts {
				if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping players table...")
		_, err := db.NewDropTable().Model((*playerdb.Player)(nil)).IfExists().Exec(ctx)
		return err
	})
}
