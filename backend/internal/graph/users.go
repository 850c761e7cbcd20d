package graph

import (
	"context"
	"fmt"

	"dramabot/backend/internal/model"
)

// GetUser fetches a user node by platform id. A miss returns (nil, nil) so
// the store can fall back to get-or-create.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $id})
		RETURN
			u.id as id,
			u.display_name as display_name,
			u.karma as karma,
			u.drama_points as drama_points,
			u.faction_id as faction_id,
			u.role_history as role_history,
			u.traits as traits,
			u.last_active as last_active
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to read user record: %w", err)
		}
		return nil, nil
	}

	record := result.Record()
	return &model.User{
		ID:          getString(record, "id"),
		DisplayName: getString(record, "display_name"),
		Karma:       getInt(record, "karma"),
		DramaPoints: getInt(record, "drama_points"),
		FactionID:   getString(record, "faction_id"),
		RoleHistory: getStringSlice(record, "role_history"),
		Traits:      getStringSlice(record, "traits"),
		LastActive:  parseTime(getString(record, "last_active")),
	}, nil
}

// UpsertUser writes the full user row, creating the node on first sight.
func (r *Repository) UpsertUser(ctx context.Context, u *model.User) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $id})
		SET u.display_name = $displayName,
		    u.karma = $karma,
		    u.drama_points = $dramaPoints,
		    u.faction_id = $factionID,
		    u.role_history = $roleHistory,
		    u.traits = $traits,
		    u.last_active = $lastActive
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":          u.ID,
		"displayName": u.DisplayName,
		"karma":       u.Karma,
		"dramaPoints": u.DramaPoints,
		"factionID":   u.FactionID,
		"roleHistory": u.RoleHistory,
		"traits":      u.Traits,
		"lastActive":  formatTime(u.LastActive),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
