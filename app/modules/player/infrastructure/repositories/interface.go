package playerdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for player catalog persistence.
type Repository interface {
	// GetByIDs returns the players among ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, db bun.IDB, ids []string) ([]Player, error)

	// Get returns a player by id or slug, or ErrNotFound.
	Get(ctx context.Context, db bun.IDB, idOrSlug string) (*Player, error)

	// List returns players ordered by name.
	List(ctx context.Context, db bun.IDB, filter ListFilter) ([]Player, error)

	// Upsert inserts players or refreshes the ones already present by id.
	Upsert(ctx context.Context, db bun.IDB, players []Player) (int64, error)
}
