package playerservice

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
)

// Service is the player catalog.
type Service interface {
	// GetPlayersByIDs returns the known players among ids.
	GetPlayersByIDs(ctx context.Context, ids []string) ([]sharedtypes.Player, error)

	// GetPlayer looks a player up by id or slug. Unknown players yield
	// ErrPlayerNotFound.
	GetPlayer(ctx context.Context, idOrSlug string) (*sharedtypes.Player, error)

	// ListPlayers searches the catalog.
	ListPlayers(ctx context.Context, q ListQuery) ([]sharedtypes.Player, error)

	// ImportPlayers upserts players, deriving missing slugs from names.
	ImportPlayers(ctx context.Context, players []sharedtypes.Player) (int64, error)
}

// ListQuery filters a catalog listing. Query takes precedence over Position.
type ListQuery struct {
	Query    string
	Position string
	Limit    int
}
