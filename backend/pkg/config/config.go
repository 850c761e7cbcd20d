package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. Every recognized option is an
// explicit field; there is no pass-through bag for unknown keys.
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Discord
	DiscordBotToken string
	DramaChannelID  string // channel drama announcements are posted to

	// Drama engine
	DramaThreshold   int           // minimum intensity score to trigger an event
	CooldownWindow   time.Duration // per-category trigger cooldown
	ChaosDecayRate   float64       // percent of chaos level shed per minute
	ChaosThreshold   int           // accumulated chaos that fires a reorganization
	AutoSaveInterval time.Duration // world-state persistence interval
	CacheTTL         time.Duration // read-through cache entry lifetime

	// Factions
	FactionNameMin    int
	FactionNameMax    int
	FactionDescMax    int
	MaxFactionMembers int
	AuraStaleAfter    time.Duration // stale alliances below zero get swept
	PlotTwistChance   float64       // probability an aura collapse dissolves the alliance
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		Neo4jURI:        getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:       getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   getEnv("NEO4J_PASSWORD", "password"),
		DiscordBotToken: getEnv("DISCORD_BOT_TOKEN", ""),
		DramaChannelID:  getEnv("DRAMA_CHANNEL_ID", ""),

		DramaThreshold:   getEnvInt("DRAMA_THRESHOLD", 5),
		CooldownWindow:   getEnvDuration("DRAMA_COOLDOWN", 20*time.Minute),
		ChaosDecayRate:   getEnvFloat("CHAOS_DECAY_RATE", 2.0),
		ChaosThreshold:   getEnvInt("CHAOS_THRESHOLD", 25),
		AutoSaveInterval: getEnvDuration("AUTOSAVE_INTERVAL", 5*time.Minute),
		CacheTTL:         getEnvDuration("CACHE_TTL", 5*time.Minute),

		FactionNameMin:    getEnvInt("FACTION_NAME_MIN", 3),
		FactionNameMax:    getEnvInt("FACTION_NAME_MAX", 32),
		FactionDescMax:    getEnvInt("FACTION_DESC_MAX", 256),
		MaxFactionMembers: getEnvInt("MAX_FACTION_MEMBERS", 50),
		AuraStaleAfter:    getEnvDuration("AURA_STALE_AFTER", 7*24*time.Hour),
		PlotTwistChance:   getEnvFloat("PLOT_TWIST_CHANCE", 0.5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are coherent
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.DramaThreshold < 0 || c.DramaThreshold > 10 {
		return fmt.Errorf("DRAMA_THRESHOLD must be in [0,10], got %d", c.DramaThreshold)
	}
	if c.ChaosDecayRate < 0 || c.ChaosDecayRate > 100 {
		return fmt.Errorf("CHAOS_DECAY_RATE must be a percentage in [0,100], got %f", c.ChaosDecayRate)
	}
	if c.PlotTwistChance < 0 || c.PlotTwistChance > 1 {
		return fmt.Errorf("PLOT_TWIST_CHANCE must be in [0,1], got %f", c.PlotTwistChance)
	}
	if c.FactionNameMin < 1 || c.FactionNameMax < c.FactionNameMin {
		return fmt.Errorf("faction name bounds are incoherent: min=%d max=%d", c.FactionNameMin, c.FactionNameMax)
	}
	// Discord token is optional so the API server can run without a gateway
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
