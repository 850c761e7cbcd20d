package api

import (
	"net/http"
	"strconv"
	"time"

	"dramabot/backend/internal/model"
	"dramabot/backend/internal/world"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	defaultRecentLimit      = 20
)

// NewRouter builds the read-only HTTP surface over the world state. The
// bot owns all mutation; this API only exposes standings and the timeline.
func NewRouter(store *world.Store, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/leaderboard", func(c *gin.Context) {
			limit := parseLimit(c.Query("limit"), defaultLeaderboardLimit, maxLeaderboardLimit)
			users := store.TopUsers(limit)

			entries := make([]gin.H, 0, len(users))
			for i, u := range users {
				entries = append(entries, gin.H{
					"rank":         i + 1,
					"user_id":      u.ID,
					"display_name": u.DisplayName,
					"drama_points": u.DramaPoints,
					"karma":        u.Karma,
					"faction_id":   u.FactionID,
					"traits":       u.Traits,
				})
			}
			c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
		})

		api.GET("/factions", func(c *gin.Context) {
			factions := store.GetAllFactions()
			if name := c.Query("name"); name != "" {
				f := store.GetFactionByName(name)
				if f == nil {
					c.JSON(http.StatusNotFound, gin.H{"error": "faction not found"})
					return
				}
				factions = []*model.Faction{f}
			}
			alliances := store.AllAlliances()

			relations := make(map[string][]gin.H)
			for _, a := range alliances {
				rel := gin.H{
					"id":               a.ID,
					"type":             string(a.Type),
					"aura_score":       a.AuraScore,
					"last_interaction": a.LastInteraction.Format(time.RFC3339),
				}
				relations[a.FactionA] = append(relations[a.FactionA], rel)
				relations[a.FactionB] = append(relations[a.FactionB], rel)
			}

			out := make([]gin.H, 0, len(factions))
			for _, f := range factions {
				out = append(out, gin.H{
					"id":          f.ID,
					"name":        f.Name,
					"description": f.Description,
					"power":       f.Power,
					"entropy":     f.Entropy,
					"members":     len(f.MemberIDs),
					"leader_id":   f.LeaderID,
					"drama_wins":  f.DramaWins,
					"emoji":       f.Emoji,
					"relations":   relations[f.ID],
				})
			}
			c.JSON(http.StatusOK, gin.H{"factions": out})
		})

		api.GET("/drama/recent", func(c *gin.Context) {
			limit := parseLimit(c.Query("limit"), defaultRecentLimit, maxLeaderboardLimit)
			events := store.GetRecentDramaEvents(limit)

			out := make([]gin.H, 0, len(events))
			for _, ev := range events {
				out = append(out, eventJSON(ev))
			}
			c.JSON(http.StatusOK, gin.H{"events": out})
		})
	}

	return router
}

func eventJSON(ev *model.DramaEvent) gin.H {
	return gin.H{
		"id":                ev.ID,
		"type":              string(ev.Type),
		"participants":      ev.Participants,
		"factions_involved": ev.FactionsInvolved,
		"score":             ev.Score,
		"trigger":           ev.Trigger,
		"outcome":           ev.Outcome,
		"resolved":          ev.Resolved,
		"timestamp":         ev.Timestamp.Format(time.RFC3339),
	}
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
