package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dramabot/backend/internal/api"
	"dramabot/backend/internal/graph"
	"dramabot/backend/internal/world"
	"dramabot/backend/pkg/config"
	"dramabot/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Standalone API server: serves the leaderboard and timeline endpoints
// without a live gateway. State comes from the graph at startup and is
// refreshed on an interval, since this process sees no events of its own.
const reloadInterval = time.Minute

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

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

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	graphRepo := graph.NewRepository(driver)
	store := world.NewStore(graphRepo, world.Options{
		CacheTTL:    cfg.CacheTTL,
		NameMin:     cfg.FactionNameMin,
		NameMax:     cfg.FactionNameMax,
		DescMax:     cfg.FactionDescMax,
		TimelineCap: world.DefaultOptions().TimelineCap,
	})
	if err := store.Load(ctx); err != nil {
		log.Fatal("Failed to load world state", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(store, log),
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := store.Load(ctx); err != nil {
				log.Error("Failed to refresh world state", zap.Error(err))
			}
		case <-quit:
			log.Info("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Server forced to shutdown", zap.Error(err))
			}
			store.Destroy()

			log.Info("Server exited")
			return
		}
	}
}
