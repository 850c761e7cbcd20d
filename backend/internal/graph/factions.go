package graph

import (
	"context"
	"fmt"

	"dramabot/backend/internal/model"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const factionReturn = `
	f.id as id,
	f.name as name,
	f.description as description,
	f.power as power,
	f.entropy as entropy,
	f.member_ids as member_ids,
	f.leader_id as leader_id,
	f.drama_wins as drama_wins,
	f.color as color,
	f.emoji as emoji,
	f.created_at as created_at
`

// GetFaction fetches a faction node by id; a miss returns (nil, nil).
func (r *Repository) GetFaction(ctx context.Context, id string) (*model.Faction, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `MATCH (f:Faction {id: $id}) RETURN ` + factionReturn

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch faction: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to read faction record: %w", err)
		}
		return nil, nil
	}

	return factionFromRecord(result.Record()), nil
}

// ListFactions returns every faction node, for the load-on-start path.
func (r *Repository) ListFactions(ctx context.Context) ([]*model.Faction, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `MATCH (f:Faction) RETURN ` + factionReturn

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list factions: %w", err)
	}

	var factions []*model.Faction
	for result.Next(ctx) {
		factions = append(factions, factionFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read faction records: %w", err)
	}
	return factions, nil
}

// UpsertFaction writes the full faction row keyed by id.
func (r *Repository) UpsertFaction(ctx context.Context, f *model.Faction) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MERGE (f:Faction {id: $id})
		SET f.name = $name,
		    f.description = $description,
		    f.power = $power,
		    f.entropy = $entropy,
		    f.member_ids = $memberIDs,
		    f.leader_id = $leaderID,
		    f.drama_wins = $dramaWins,
		    f.color = $color,
		    f.emoji = $emoji,
		    f.created_at = $createdAt
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":          f.ID,
		"name":        f.Name,
		"description": f.Description,
		"power":       f.Power,
		"entropy":     f.Entropy,
		"memberIDs":   f.MemberIDs,
		"leaderID":    f.LeaderID,
		"dramaWins":   f.DramaWins,
		"color":       f.Color,
		"emoji":       f.Emoji,
		"createdAt":   formatTime(f.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert faction: %w", err)
	}
	return nil
}

// DeleteFaction removes the faction node and every alliance relationship
// touching it.
func (r *Repository) DeleteFaction(ctx context.Context, id string) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `MATCH (f:Faction {id: $id}) DETACH DELETE f`

	_, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete faction: %w", err)
	}
	return nil
}

// Alliances are RELATES_TO relationships between faction nodes, carrying
// the pair record as relationship properties.

// UpsertAlliance writes the full pair record keyed by alliance id.
func (r *Repository) UpsertAlliance(ctx context.Context, a *model.Alliance) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:Faction {id: $factionA})
		MATCH (b:Faction {id: $factionB})
		MERGE (a)-[rel:RELATES_TO {id: $id}]->(b)
		SET rel.type = $type,
		    rel.aura_score = $auraScore,
		    rel.last_interaction = $lastInteraction
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":              a.ID,
		"factionA":        a.FactionA,
		"factionB":        a.FactionB,
		"type":            string(a.Type),
		"auraScore":       a.AuraScore,
		"lastInteraction": formatTime(a.LastInteraction),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert alliance: %w", err)
	}
	return nil
}

// DeleteAlliance removes the pair relationship by id.
func (r *Repository) DeleteAlliance(ctx context.Context, id string) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `MATCH ()-[rel:RELATES_TO {id: $id}]-() DELETE rel`

	_, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete alliance: %w", err)
	}
	return nil
}

// ListAlliances returns every pair record, for the load-on-start path.
func (r *Repository) ListAlliances(ctx context.Context) ([]*model.Alliance, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:Faction)-[rel:RELATES_TO]->(b:Faction)
		RETURN
			rel.id as id,
			a.id as faction_a,
			b.id as faction_b,
			rel.type as type,
			rel.aura_score as aura_score,
			rel.last_interaction as last_interaction
	`

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list alliances: %w", err)
	}

	var alliances []*model.Alliance
	for result.Next(ctx) {
		record := result.Record()
		alliances = append(alliances, &model.Alliance{
			ID:              getString(record, "id"),
			FactionA:        getString(record, "faction_a"),
			FactionB:        getString(record, "faction_b"),
			Type:            model.RelationType(getString(record, "type")),
			AuraScore:       getInt(record, "aura_score"),
			LastInteraction: parseTime(getString(record, "last_interaction")),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alliance records: %w", err)
	}
	return alliances, nil
}

func factionFromRecord(record *neo4j.Record) *model.Faction {
	return &model.Faction{
		ID:          getString(record, "id"),
		Name:        getString(record, "name"),
		Description: getString(record, "description"),
		Power:       getInt(record, "power"),
		Entropy:     getFloat64(record, "entropy"),
		MemberIDs:   getStringSlice(record, "member_ids"),
		LeaderID:    getString(record, "leader_id"),
		DramaWins:   getInt(record, "drama_wins"),
		Color:       getInt(record, "color"),
		Emoji:       getString(record, "emoji"),
		CreatedAt:   parseTime(getString(record, "created_at")),
	}
}
