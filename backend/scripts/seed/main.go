package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"dramabot/backend/internal/graph"
	"dramabot/backend/internal/model"
	"dramabot/backend/pkg/config"
	"dramabot/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Seeds the graph schema (constraints and indexes) and, with -demo, a pair
// of example factions so a fresh server has something on the board.
func main() {
	demo := flag.Bool("demo", false, "Also create demo factions and a rivalry between them")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Create constraints
	log.Info("Creating constraints...")
	if err := createConstraints(ctx, driver); err != nil {
		log.Warn("Failed to create some constraints (may already exist)", zap.Error(err))
	}

	// Create indexes for better performance
	log.Info("Creating indexes...")
	if err := createIndexes(ctx, driver); err != nil {
		log.Warn("Failed to create some indexes (may already exist)", zap.Error(err))
	}

	if *demo {
		if err := seedDemo(ctx, graph.NewRepository(driver)); err != nil {
			log.Fatal("Failed to seed demo data", zap.Error(err))
		}
		log.Info("Demo factions created")
	}

	log.Info("Seeding complete")
	os.Exit(0)
}

func createConstraints(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
		"CREATE CONSTRAINT faction_id IF NOT EXISTS FOR (f:Faction) REQUIRE f.id IS UNIQUE",
		"CREATE CONSTRAINT drama_event_id IF NOT EXISTS FOR (e:DramaEvent) REQUIRE e.id IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return err
		}
	}
	return nil
}

func createIndexes(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	indexes := []string{
		"CREATE INDEX faction_name IF NOT EXISTS FOR (f:Faction) ON (f.name)",
		"CREATE INDEX drama_event_timestamp IF NOT EXISTS FOR (e:DramaEvent) ON (e.timestamp)",
		"CREATE INDEX user_drama_points IF NOT EXISTS FOR (u:User) ON (u.drama_points)",
	}
	for _, i := range indexes {
		if _, err := session.Run(ctx, i, nil); err != nil {
			return err
		}
	}
	return nil
}

func seedDemo(ctx context.Context, repo *graph.Repository) error {
	now := time.Now()

	wolves := &model.Faction{
		ID:        uuid.NewString(),
		Name:      "Midnight Wolves",
		Power:     4,
		MemberIDs: []string{"demo-alice"},
		LeaderID:  "demo-alice",
		Emoji:     "🐺",
		CreatedAt: now,
	}
	ravens := &model.Faction{
		ID:        uuid.NewString(),
		Name:      "Crimson Ravens",
		Power:     4,
		MemberIDs: []string{"demo-bob"},
		LeaderID:  "demo-bob",
		Emoji:     "🐦",
		CreatedAt: now,
	}

	for _, f := range []*model.Faction{wolves, ravens} {
		if err := repo.UpsertFaction(ctx, f); err != nil {
			return err
		}
	}

	users := []*model.User{
		{ID: "demo-alice", DisplayName: "Alice", Karma: 2, DramaPoints: 11, FactionID: wolves.ID, RoleHistory: []string{"founder"}, LastActive: now},
		{ID: "demo-bob", DisplayName: "Bob", Karma: 1, DramaPoints: 7, FactionID: ravens.ID, RoleHistory: []string{"founder"}, LastActive: now},
	}
	for _, u := range users {
		if err := repo.UpsertUser(ctx, u); err != nil {
			return err
		}
	}

	return repo.UpsertAlliance(ctx, &model.Alliance{
		ID:              uuid.NewString(),
		FactionA:        wolves.ID,
		FactionB:        ravens.ID,
		Type:            model.RelationRivalry,
		AuraScore:       -2,
		LastInteraction: now,
	})
}
