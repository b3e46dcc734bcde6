package ranking_test

import (
	"fmt"
	"testing"

	playerservice "github.com/Black-And-White-Club/consensus-rank/app/modules/player/application"
	playerdb "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/repositories"
	rankingservice "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/application"
	rankingdb "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/repositories"
	userservice "github.com/Black-And-White-Club/consensus-rank/app/modules/user/application"
	userdb "github.com/Black-And-White-Club/consensus-rank/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/Black-And-White-Club/consensus-rank/integration_tests/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type services struct {
	players *playerservice.PlayerService
	users   *userservice.UserService
	ranking *rankingservice.RankingService
	gen     *testutils.DataGenerator
	catalog []sharedtypes.Player
}

// setup resets the database, imports a catalog of catalogSize players and
// builds the services on the shared environment.
func setup(t *testing.T, catalogSize int, opts ...rankingservice.Option) *services {
	t.Helper()
	testEnv.Reset(t)

	obs := testutils.Observability()
	db := testEnv.DB

	s := &services{
		players: playerservice.NewPlayerService(playerdb.NewRepository(db), obs.Logger, metrics.NewNoop(), obs.Tracer, db),
		users:   userservice.NewUserService(userdb.NewRepository(db), obs.Logger, metrics.NewNoop(), obs.Tracer, db),
		gen:     testutils.NewDataGenerator(uint64(len(t.Name()))),
	}
	opts = append([]rankingservice.Option{rankingservice.WithPlayerCatalog(s.players)}, opts...)
	s.ranking = rankingservice.NewRankingService(rankingdb.NewRepository(db), obs.Logger, metrics.NewNoop(), obs.Tracer, db, opts...)

	s.catalog = s.gen.Players(catalogSize)
	n, err := s.players.ImportPlayers(testEnv.Ctx, s.catalog)
	require.NoError(t, err)
	require.EqualValues(t, catalogSize, n)
	return s
}

func (s *services) newUser(t *testing.T, i int) uuid.UUID {
	t.Helper()
	id, err := s.users.EnsureUser(testEnv.Ctx, fmt.Sprintf("user%d.%s", i, s.gen.Email()), s.gen.Name(), "127.0.0.1")
	require.NoError(t, err)
	return id
}
