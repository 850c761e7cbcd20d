package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dramabot/backend/internal/api"
	"dramabot/backend/internal/bus"
	"dramabot/backend/internal/discord"
	"dramabot/backend/internal/drama"
	"dramabot/backend/internal/faction"
	"dramabot/backend/internal/graph"
	"dramabot/backend/internal/score"
	"dramabot/backend/internal/world"
	"dramabot/backend/pkg/config"
	"dramabot/backend/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// auraDecayInterval paces the background sweep of stale hostile alliances.
const auraDecayInterval = time.Hour

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting drama bot...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
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

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// World state over the graph
	graphRepo := graph.NewRepository(driver)
	store := world.NewStore(graphRepo, world.Options{
		AutoSaveInterval: cfg.AutoSaveInterval,
		CacheTTL:         cfg.CacheTTL,
		NameMin:          cfg.FactionNameMin,
		NameMax:          cfg.FactionNameMax,
		DescMax:          cfg.FactionDescMax,
		TimelineCap:      world.DefaultOptions().TimelineCap,
	})
	if err := store.Load(ctx); err != nil {
		log.Fatal("Failed to load world state", zap.Error(err))
	}
	store.StartAutoSave()

	// Create Discord session
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}

	notifier := discord.NewNotifier(dg, cfg.DramaChannelID)

	// Drama pipeline: gateway -> bus -> scorer -> dispatcher
	eventBus := bus.New()
	scorer := score.NewScorer()
	dispatcher := drama.NewDispatcher(store, scorer, notifier, drama.Options{
		Threshold:      cfg.DramaThreshold,
		Cooldown:       cfg.CooldownWindow,
		ChaosDecayRate: cfg.ChaosDecayRate,
		ChaosThreshold: cfg.ChaosThreshold,
		Channel:        cfg.DramaChannelID,
	})
	dispatcher.Attach(eventBus)

	// Faction lifecycle, with real randomness for plot twists
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	factions := faction.NewManager(store, faction.Options{
		MaxMembers:      cfg.MaxFactionMembers,
		PlotTwistChance: cfg.PlotTwistChance,
		AuraStaleAfter:  cfg.AuraStaleAfter,
	}, rng, notifier)
	factions.Attach(eventBus)

	gateway := discord.NewGateway(dg, eventBus)
	if err := gateway.Open(); err != nil {
		log.Fatal("Failed to open Discord connection", zap.Error(err))
	}
	defer gateway.Close()

	// Read-only HTTP surface over the world state
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(store, log),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		log.Info("API server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(auraDecayInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := factions.DecayAuras(gctx, time.Now()); n > 0 {
					log.Info("Swept stale alliances", zap.Int("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("Drama bot is running. Press CTRL-C to exit.")

	if err := g.Wait(); err != nil {
		log.Error("Shutdown with error", zap.Error(err))
	}

	log.Info("Shutting down drama bot...")
	store.Destroy()
	log.Info("World state flushed, goodbye")
}
