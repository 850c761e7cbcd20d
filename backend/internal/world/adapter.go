package world

import (
	"context"

	"dramabot/backend/internal/model"
)

// Adapter is the persistence contract the store writes through. A miss on
// any Get returns (nil, nil) so callers can fall back to get-or-create;
// upserts are idempotent full-entity writes keyed by id.
//
// internal/graph provides the Neo4j implementation.
type Adapter interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, u *model.User) error

	GetFaction(ctx context.Context, id string) (*model.Faction, error)
	UpsertFaction(ctx context.Context, f *model.Faction) error
	DeleteFaction(ctx context.Context, id string) error
	ListFactions(ctx context.Context) ([]*model.Faction, error)

	UpsertAlliance(ctx context.Context, a *model.Alliance) error
	DeleteAlliance(ctx context.Context, id string) error
	ListAlliances(ctx context.Context) ([]*model.Alliance, error)

	UpsertDramaEvent(ctx context.Context, ev *model.DramaEvent) error
	RecentDramaEvents(ctx context.Context, limit int) ([]*model.DramaEvent, error)
}
