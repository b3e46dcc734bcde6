// Command seed loads the player catalog from a JSON file, or generates a fake
// catalog for local development.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	playerservice "github.com/Black-And-White-Club/consensus-rank/app/modules/player/application"
	playerdb "github.com/Black-And-White-Club/consensus-rank/app/modules/player/infrastructure/repositories"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/Black-And-White-Club/consensus-rank/config"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	file := flag.String("file", "", "JSON array of players to import")
	fake := flag.Int("fake", 0, "Generate this many fake players instead of reading a file")
	seed := flag.Uint64("seed", 1, "Seed for generated players")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var players []sharedtypes.Player
	switch {
	case *file != "":
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("failed to open %s: %v", *file, err)
		}
		players, err = decodePlayers(f)
		f.Close()
		if err != nil {
			log.Fatalf("failed to read %s: %v", *file, err)
		}
	case *fake > 0:
		players = fakePlayers(*fake, *seed)
	default:
		log.Fatal("one of -file or -fake is required")
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	logger := observability.NewLogger(cfg.Observability.Environment, cfg.Observability.LogLevel)
	service := playerservice.NewPlayerService(playerdb.NewRepository(db), logger, metrics.NewNoop(), nil, db)

	n, err := service.ImportPlayers(context.Background(), players)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	fmt.Printf("Imported %d players\n", n)
}

func decodePlayers(r io.Reader) ([]sharedtypes.Player, error) {
	var players []sharedtypes.Player
	if err := json.NewDecoder(r).Decode(&players); err != nil {
		return nil, err
	}
	return players, nil
}

var positions = []string{"QB", "RB", "WR", "TE", "K", "DST"}

func fakePlayers(n int, seed uint64) []sharedtypes.Player {
	faker := gofakeit.New(seed)
	players := make([]sharedtypes.Player, 0, n)
	for i := 0; i < n; i++ {
		first, last := faker.FirstName(), faker.LastName()
		players = append(players, sharedtypes.Player{
			ID:       fmt.Sprintf("p%05d", i+1),
			Name:     first[:1] + ". " + last,
			FullName: first + " " + last,
			Position: faker.RandomString(positions),
			Team:     faker.City(),
			ImageURL: faker.URL(),
		})
	}
	return players
}
