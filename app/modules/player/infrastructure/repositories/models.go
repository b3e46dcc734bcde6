package playerdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/uptrace/bun"
)

// Player is a catalog entry.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID         string    `bun:"id,pk"`
	Name       string    `bun:"name,notnull"`
	FullName   string    `bun:"full_name,nullzero"`
	Slug       string    `bun:"slug,notnull"`
	Position   string    `bun:"position,nullzero"`
	Team       string    `bun:"team,nullzero"`
	ImageURL   string    `bun:"image_url,nullzero"`
	Highlights []string  `bun:"highlights,array"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ToShared converts the row to the cross-module player type.
func (p *Player) ToShared() sharedtypes.Player {
	return sharedtypes.Player{
		ID:       p.ID,
		Name:     p.Name,
		FullName: p.FullName,
		Slug:     p.Slug,
		Position: p.Position,
		Team:     p.Team,
		ImageURL: p.ImageURL,
	}
}

// FromShared builds a row from the cross-module player type.
func FromShared(p sharedtypes.Player) Player {
	return Player{
		ID:       p.ID,
		Name:     p.Name,
		FullName: p.FullName,
		Slug:     p.Slug,
		Position: p.Position,
		Team:     p.Team,
		ImageURL: p.ImageURL,
	}
}

// ListFilter narrows a catalog listing. Query matches name, full name or
// team case-insensitively. Limit <= 0 means no limit.
type ListFilter struct {
	Query    string
	Position string
	Limit    int
}
