package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"dramabot/backend/internal/model"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// These tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}
	return neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
}

func cleanup(t *testing.T, driver neo4j.DriverWithContext, query string, params map[string]interface{}) {
	t.Helper()
	ctx := context.Background()
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, query, params)
}

func TestRepository_UserRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	userID := "test-user-" + time.Now().Format("20060102150405")
	defer cleanup(t, driver, "MATCH (u:User {id: $id}) DETACH DELETE u", map[string]interface{}{"id": userID})

	u := &model.User{
		ID:          userID,
		DisplayName: "Test User",
		Karma:       3,
		DramaPoints: 14,
		Traits:      []string{"firestarter"},
		LastActive:  time.Now(),
	}
	if err := repo.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	got, err := repo.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil {
		t.Fatal("user not found after upsert")
	}
	if got.DramaPoints != 14 || got.Karma != 3 {
		t.Errorf("round trip lost stats: %+v", got)
	}
	if len(got.Traits) != 1 || got.Traits[0] != "firestarter" {
		t.Errorf("round trip lost traits: %v", got.Traits)
	}

	// Upserting the same row twice must not duplicate anything
	if err := repo.UpsertUser(ctx, u); err != nil {
		t.Fatalf("second UpsertUser failed: %v", err)
	}
	again, err := repo.GetUser(ctx, userID)
	if err != nil || again == nil {
		t.Fatalf("GetUser after re-upsert failed: %v", err)
	}
}

func TestRepository_GetUser_Miss(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	got, err := repo.GetUser(ctx, "no-such-user-ever")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on miss, got %+v", got)
	}
}

func TestRepository_FactionAndAlliance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	suffix := time.Now().Format("20060102150405")
	f1 := &model.Faction{ID: "test-f1-" + suffix, Name: "Test Wolves " + suffix, Power: 4, MemberIDs: []string{"u1"}, LeaderID: "u1", CreatedAt: time.Now()}
	f2 := &model.Faction{ID: "test-f2-" + suffix, Name: "Test Ravens " + suffix, Power: 4, MemberIDs: []string{"u2"}, LeaderID: "u2", CreatedAt: time.Now()}
	defer cleanup(t, driver, "MATCH (f:Faction) WHERE f.id IN [$a, $b] DETACH DELETE f", map[string]interface{}{"a": f1.ID, "b": f2.ID})

	if err := repo.UpsertFaction(ctx, f1); err != nil {
		t.Fatalf("UpsertFaction failed: %v", err)
	}
	if err := repo.UpsertFaction(ctx, f2); err != nil {
		t.Fatalf("UpsertFaction failed: %v", err)
	}

	al := &model.Alliance{
		ID:              "test-al-" + suffix,
		FactionA:        f1.ID,
		FactionB:        f2.ID,
		Type:            model.RelationAlliance,
		AuraScore:       -3,
		LastInteraction: time.Now(),
	}
	if err := repo.UpsertAlliance(ctx, al); err != nil {
		t.Fatalf("UpsertAlliance failed: %v", err)
	}

	alliances, err := repo.ListAlliances(ctx)
	if err != nil {
		t.Fatalf("ListAlliances failed: %v", err)
	}
	found := false
	for _, a := range alliances {
		if a.ID == al.ID {
			found = true
			if a.AuraScore != -3 {
				t.Errorf("aura lost in round trip: %d", a.AuraScore)
			}
		}
	}
	if !found {
		t.Fatal("alliance not listed after upsert")
	}

	// DETACH DELETE on the faction must take the relationship with it
	if err := repo.DeleteFaction(ctx, f1.ID); err != nil {
		t.Fatalf("DeleteFaction failed: %v", err)
	}
	alliances, _ = repo.ListAlliances(ctx)
	for _, a := range alliances {
		if a.ID == al.ID {
			t.Fatal("alliance survived faction deletion")
		}
	}
}

func TestRepository_RecentDramaEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	suffix := time.Now().Format("20060102150405")
	ids := []string{"test-ev1-" + suffix, "test-ev2-" + suffix}
	defer cleanup(t, driver, "MATCH (e:DramaEvent) WHERE e.id IN [$a, $b] DETACH DELETE e", map[string]interface{}{"a": ids[0], "b": ids[1]})

	base := time.Now()
	for i, id := range ids {
		ev := &model.DramaEvent{
			ID:        id,
			Type:      model.EventWar,
			Score:     6,
			Trigger:   "keyword: war",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.UpsertDramaEvent(ctx, ev); err != nil {
			t.Fatalf("UpsertDramaEvent failed: %v", err)
		}
	}

	events, err := repo.RecentDramaEvents(ctx, 100)
	if err != nil {
		t.Fatalf("RecentDramaEvents failed: %v", err)
	}

	// Ascending order: ev1 must come before ev2
	idx := map[string]int{}
	for i, ev := range events {
		idx[ev.ID] = i
	}
	i1, ok1 := idx[ids[0]]
	i2, ok2 := idx[ids[1]]
	if !ok1 || !ok2 {
		t.Fatal("events not returned")
	}
	if i1 >= i2 {
		t.Fatalf("events out of ascending order: %d vs %d", i1, i2)
	}
}
