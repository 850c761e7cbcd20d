package graph

import (
	"context"
	"fmt"

	"dramabot/backend/internal/model"
)

// UpsertDramaEvent writes the full event row keyed by id. Events are
// append-mostly; re-upserting after resolution just overwrites the same
// node with the resolved fields.
func (r *Repository) UpsertDramaEvent(ctx context.Context, ev *model.DramaEvent) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MERGE (e:DramaEvent {id: $id})
		SET e.type = $type,
		    e.participants = $participants,
		    e.factions_involved = $factionsInvolved,
		    e.score = $score,
		    e.trigger = $trigger,
		    e.outcome = $outcome,
		    e.resolved = $resolved,
		    e.timestamp = $timestamp
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":               ev.ID,
		"type":             string(ev.Type),
		"participants":     ev.Participants,
		"factionsInvolved": ev.FactionsInvolved,
		"score":            ev.Score,
		"trigger":          ev.Trigger,
		"outcome":          ev.Outcome,
		"resolved":         ev.Resolved,
		"timestamp":        formatTime(ev.Timestamp),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert drama event: %w", err)
	}
	return nil
}

// RecentDramaEvents returns the newest limit events in ascending time
// order, ready to seed the in-memory timeline.
func (r *Repository) RecentDramaEvents(ctx context.Context, limit int) ([]*model.DramaEvent, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (e:DramaEvent)
		RETURN
			e.id as id,
			e.type as type,
			e.participants as participants,
			e.factions_involved as factions_involved,
			e.score as score,
			e.trigger as trigger,
			e.outcome as outcome,
			e.resolved as resolved,
			e.timestamp as timestamp
		ORDER BY e.timestamp DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent drama events: %w", err)
	}

	var events []*model.DramaEvent
	for result.Next(ctx) {
		record := result.Record()
		events = append(events, &model.DramaEvent{
			ID:               getString(record, "id"),
			Type:             model.EventType(getString(record, "type")),
			Participants:     getStringSlice(record, "participants"),
			FactionsInvolved: getStringSlice(record, "factions_involved"),
			Score:            getInt(record, "score"),
			Trigger:          getString(record, "trigger"),
			Outcome:          getString(record, "outcome"),
			Resolved:         getBool(record, "resolved"),
			Timestamp:        parseTime(getString(record, "timestamp")),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read drama event records: %w", err)
	}

	// Query returns newest first; flip to ascending for the timeline
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
