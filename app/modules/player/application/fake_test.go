package playerservice

import (
	"context"
	"sort"
	"strings"

	playerdb "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakePlayerRepo keeps players in memory unless a Func override is set.
type FakePlayerRepo struct {
	players map[string]playerdb.Player

	GetByIDsFunc func(ctx context.Context, db bun.IDB, ids []string) ([]playerdb.Player, error)
	ListFunc     func(ctx context.Context, db bun.IDB, filter playerdb.ListFilter) ([]playerdb.Player, error)
	UpsertFunc   func(ctx context.Context, db bun.IDB, players []playerdb.Player) (int64, error)

	lastFilter playerdb.ListFilter
}

func NewFakePlayerRepo(players ...playerdb.Player) *FakePlayerRepo {
	f := &FakePlayerRepo{players: map[string]playerdb.Player{}}
	for _, p := range players {
		f.players[p.ID] = p
	}
	return f
}

func (f *FakePlayerRepo) GetByIDs(ctx context.Context, db bun.IDB, ids []string) ([]playerdb.Player, error) {
	if f.GetByIDsFunc != nil {
		return f.GetByIDsFunc(ctx, db, ids)
	}
	out := []playerdb.Player{}
	for _, id := range ids {
		if p, ok := f.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FakePlayerRepo) Get(_ context.Context, _ bun.IDB, idOrSlug string) (*playerdb.Player, error) {
	if p, ok := f.players[idOrSlug]; ok {
		return &p, nil
	}
	for _, p := range f.players {
		if p.Slug == idOrSlug {
			return &p, nil
		}
	}
	return nil, playerdb.ErrNotFound
}

func (f *FakePlayerRepo) List(ctx context.Context, db bun.IDB, filter playerdb.ListFilter) ([]playerdb.Player, error) {
	f.lastFilter = filter
	if f.ListFunc != nil {
		return f.ListFunc(ctx, db, filter)
	}
	out := []playerdb.Player{}
	for _, p := range f.players {
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.FullName+" "+p.Team), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Position != "" && p.Position != filter.Position {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *FakePlayerRepo) Upsert(ctx context.Context, db bun.IDB, players []playerdb.Player) (int64, error) {
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, players)
	}
	for _, p := range players {
		f.players[p.ID] = p
	}
	return int64(len(players)), nil
}
