package playerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new player repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetByIDs(ctx context.Context, db bun.IDB, ids []string) ([]Player, error) {
	if len(ids) == 0 {
		return []Player{}, nil
	}
	db = r.resolveDB(db)
	var players []Player
	err := db.NewSelect().
		Model(&players).
		Where("p.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("playerdb.GetByIDs: %w", err)
	}
	return players, nil
}

func (r *Impl) Get(ctx context.Context, db bun.IDB, idOrSlug string) (*Player, error) {
	db = r.resolveDB(db)
	p := new(Player)
	err := db.NewSelect().
		Model(p).
		WhereOr("p.id = ?", idOrSlug).
		WhereOr("p.slug = ?", idOrSlug).
		OrderExpr("p.id = ? DESC", idOrSlug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("playerdb.Get: %w", err)
	}
	return p, nil
}

func (r *Impl) List(ctx context.Context, db bun.IDB, filter ListFilter) ([]Player, error) {
	db = r.resolveDB(db)
	players := []Player{}
	q := db.NewSelect().Model(&players).OrderExpr("p.name ASC, p.id ASC")

	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("p.name ILIKE ?", pattern).
				WhereOr("p.full_name ILIKE ?", pattern).
				WhereOr("p.team ILIKE ?", pattern)
		})
	}
	if pos := strings.TrimSpace(filter.Position); pos != "" {
		q = q.Where("p.position = ?", pos)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("playerdb.List: %w", err)
	}
	return players, nil
}

func (r *Impl) Upsert(ctx context.Context, db bun.IDB, players []Player) (int64, error) {
	if len(players) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(&players).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("full_name = EXCLUDED.full_name").
		Set("slug = EXCLUDED.slug").
		Set("position = EXCLUDED.position").
		Set("team = EXCLUDED.team").
		Set("image_url = EXCLUDED.image_url").
		Set("highlights = EXCLUDED.highlights").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("playerdb.Upsert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("playerdb.Upsert: %w", err)
	}
	return n, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
