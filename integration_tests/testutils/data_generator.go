package testutils

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
)

// DataGenerator produces reproducible players, users and rankings.
type DataGenerator struct {
	faker *gofakeit.Faker
}

// NewDataGenerator returns a generator seeded with seed.
func NewDataGenerator(seed uint64) *DataGenerator {
	return &DataGenerator{faker: gofakeit.New(seed)}
}

// Players returns n catalog players with ids p001, p002, ...
func (g *DataGenerator) Players(n int) []sharedtypes.Player {
	players := make([]sharedtypes.Player, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, sharedtypes.Player{
			ID:       fmt.Sprintf("p%03d", i+1),
			Name:     g.faker.FirstName() + " " + g.faker.LastName(),
			Position: g.faker.RandomString([]string{"QB", "RB", "WR", "TE"}),
			Team:     g.faker.City(),
		})
	}
	return players
}

// Email returns a random email address.
func (g *DataGenerator) Email() string {
	return g.faker.Email()
}

// Name returns a display name.
func (g *DataGenerator) Name() string {
	return g.faker.FirstName() + " " + g.faker.LastName()
}

// Ranking returns a complete ranking of the given type drawn from players in
// shuffled order. players must hold at least rankingType entries.
func (g *DataGenerator) Ranking(players []sharedtypes.Player, rankingType rankingdomain.RankingType) []rankingdomain.RankedPlayer {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	g.faker.ShuffleStrings(ids)

	entries := make([]rankingdomain.RankedPlayer, 0, int(rankingType))
	for i := 0; i < int(rankingType); i++ {
		entries = append(entries, rankingdomain.RankedPlayer{PlayerID: ids[i], Rank: i + 1})
	}
	return entries
}
