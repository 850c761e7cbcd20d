package drama

import (
	"context"
	"testing"
	"time"

	"dramabot/backend/internal/model"
	"dramabot/backend/internal/score"
	"dramabot/backend/internal/world"
)

type nullAdapter struct{}

func (nullAdapter) GetUser(ctx context.Context, id string) (*model.User, error) { return nil, nil }
func (nullAdapter) UpsertUser(ctx context.Context, u *model.User) error         { return nil }
func (nullAdapter) GetFaction(ctx context.Context, id string) (*model.Faction, error) {
	return nil, nil
}
func (nullAdapter) UpsertFaction(ctx context.Context, f *model.Faction) error { return nil }
func (nullAdapter) DeleteFaction(ctx context.Context, id string) error        { return nil }
func (nullAdapter) ListFactions(ctx context.Context) ([]*model.Faction, error) {
	return nil, nil
}
func (nullAdapter) UpsertAlliance(ctx context.Context, a *model.Alliance) error { return nil }
func (nullAdapter) DeleteAlliance(ctx context.Context, id string) error         { return nil }
func (nullAdapter) ListAlliances(ctx context.Context) ([]*model.Alliance, error) {
	return nil, nil
}
func (nullAdapter) UpsertDramaEvent(ctx context.Context, ev *model.DramaEvent) error { return nil }
func (nullAdapter) RecentDramaEvents(ctx context.Context, limit int) ([]*model.DramaEvent, error) {
	return nil, nil
}

// recordingNotifier captures notifications so tests can assert on the
// fire-and-forget path.
type recordingNotifier struct {
	ch chan model.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan model.Notification, 16)}
}

func (n *recordingNotifier) Notify(ctx context.Context, notification model.Notification) error {
	n.ch <- notification
	return nil
}

func newTestDispatcher(opts Options) (*Dispatcher, *world.Store, *recordingNotifier) {
	store := world.NewStore(nullAdapter{}, world.DefaultOptions())
	notifier := newRecordingNotifier()
	d := NewDispatcher(store, score.NewScorer(), notifier, opts)
	return d, store, notifier
}

func outburst(author string) model.MessageEvent {
	return model.MessageEvent{
		ID:         "m1",
		ChannelID:  "c1",
		AuthorID:   author,
		AuthorName: author,
		Content:    "WHY DID YOU DO THIS!!! @userB @userC",
		Mentions:   []string{"userB", "userC"},
		Timestamp:  time.Now(),
	}
}

func TestDispatch_Outburst(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	d.HandleMessage(ctx, outburst("userA"))

	events := store.GetRecentDramaEvents(0)
	if len(events) != 1 {
		t.Fatalf("expected exactly one drama event, got %d", len(events))
	}
	ev := events[0]
	if ev.Score != 5 {
		t.Fatalf("expected intensity 5, got %d", ev.Score)
	}
	want := []string{"userA", "userB", "userC"}
	if len(ev.Participants) != len(want) {
		t.Fatalf("participants: %v", ev.Participants)
	}
	for i, id := range want {
		if ev.Participants[i] != id {
			t.Fatalf("participants out of order: %v", ev.Participants)
		}
	}
}

func TestDispatch_BelowThresholdIsSilent(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	d.HandleMessage(ctx, model.MessageEvent{
		ID:        "m1",
		ChannelID: "c1",
		AuthorID:  "userA",
		Content:   "lovely weather today",
		Timestamp: time.Now(),
	})

	if events := store.GetRecentDramaEvents(0); len(events) != 0 {
		t.Fatalf("calm message dispatched %d events", len(events))
	}
	if store.GetUser(ctx, "userA") != nil {
		t.Fatal("calm message should not create the user")
	}
}

func TestDispatch_CooldownGating(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	base := time.Now()
	d.now = func() time.Time { return base }

	d.HandleMessage(ctx, outburst("userA"))
	// Second qualifying message inside the window: suppressed
	base = base.Add(5 * time.Minute)
	d.HandleMessage(ctx, outburst("userB"))

	if events := store.GetRecentDramaEvents(0); len(events) != 1 {
		t.Fatalf("cooldown leaked: %d events", len(events))
	}

	// Past the window: a fresh trigger
	base = base.Add(d.opts.Cooldown)
	d.HandleMessage(ctx, outburst("userC"))

	if events := store.GetRecentDramaEvents(0); len(events) != 2 {
		t.Fatalf("expected second event after cooldown, got %d", len(store.GetRecentDramaEvents(0)))
	}
}

func TestDispatch_CategoriesCooldownIndependently(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	war := outburst("userA")
	war.Content = "THIS MEANS WAR!!! @userB @userC"
	d.HandleMessage(ctx, war)

	duel := outburst("userB")
	duel.Content = "I CHALLENGE YOU TO A DUEL!!! @userA @userC"
	d.HandleMessage(ctx, duel)

	events := store.GetRecentDramaEvents(0)
	if len(events) != 2 {
		t.Fatalf("independent categories shared a cooldown: %d events", len(events))
	}
}

func TestDispatch_KeywordPriority(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	// Matches both war and vote; war is first in priority order
	msg := outburst("userA")
	msg.Content = "VOTE NOW OR IT IS WAR!!! @userB @userC"
	d.HandleMessage(ctx, msg)

	events := store.GetRecentDramaEvents(1)
	if len(events) != 1 || events[0].Type != model.EventWar {
		t.Fatalf("expected war to win the tie-break, got %v", events)
	}
}

func TestDispatch_AwardsParticipants(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	d.HandleMessage(ctx, outburst("userA"))

	for _, id := range []string{"userA", "userB", "userC"} {
		u := store.GetUser(ctx, id)
		if u == nil {
			t.Fatalf("participant %s was not created", id)
		}
		if u.DramaPoints != 5 || u.Karma != 1 {
			t.Fatalf("%s not awarded: points=%d karma=%d", id, u.DramaPoints, u.Karma)
		}
	}
}

func TestDispatch_InstigatorRoleAtMilestone(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	u := store.GetOrCreateUser(ctx, "userA", "userA")
	u.DramaPoints = instigatorPoints - 3

	d.HandleMessage(ctx, outburst("userA"))

	u = store.GetUser(ctx, "userA")
	if u.DramaPoints < instigatorPoints {
		t.Fatalf("milestone not crossed: %d", u.DramaPoints)
	}
	if len(u.RoleHistory) != 1 || u.RoleHistory[0] != "instigator" {
		t.Fatalf("instigator role not granted: %v", u.RoleHistory)
	}

	// A later event must not grant it twice
	d.now = func() time.Time { return time.Now().Add(d.opts.Cooldown + time.Minute) }
	d.HandleMessage(ctx, outburst("userA"))
	if len(u.RoleHistory) != 1 {
		t.Fatalf("instigator role duplicated: %v", u.RoleHistory)
	}
}

func TestDispatch_NotifierReceivesVoteOptions(t *testing.T) {
	d, _, notifier := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	msg := outburst("userA")
	msg.Content = "THIS MEANS WAR!!! @userB @userC"
	d.HandleMessage(ctx, msg)

	select {
	case n := <-notifier.ch:
		if len(n.VoteOptions) == 0 {
			t.Fatalf("notification carries no vote options: %+v", n)
		}
		if n.Channel != "c1" {
			t.Fatalf("notification routed to %q", n.Channel)
		}
	case <-time.After(time.Second):
		t.Fatal("notifier never invoked")
	}
}

func TestDispatch_ChaosOverflowReorganizes(t *testing.T) {
	opts := DefaultOptions()
	opts.ChaosThreshold = 10
	d, store, _ := newTestDispatcher(opts)
	fixed := time.Now()
	d.now = func() time.Time { return fixed }
	ctx := context.Background()

	war := outburst("userA")
	war.Content = "THIS MEANS WAR!!! @userB @userC"
	d.HandleMessage(ctx, war)

	duel := outburst("userB")
	duel.Content = "I CHALLENGE YOU TO A DUEL!!! @userA @userC"
	d.HandleMessage(ctx, duel)

	var coups int
	for _, ev := range store.GetRecentDramaEvents(0) {
		if ev.Type == model.EventCoup && ev.Trigger == "chaos overflow" {
			coups++
		}
	}
	if coups != 1 {
		t.Fatalf("expected one reorganization after chaos overflow, got %d", coups)
	}
}

func TestDispatch_ChaosDecays(t *testing.T) {
	m := newChaosMeter(50) // half the level per minute
	now := time.Now()

	m.add(10, now)
	if got := m.current(now.Add(time.Minute)); got >= 10 {
		t.Fatalf("chaos did not decay: %f", got)
	}
	if got := m.current(now.Add(10 * time.Minute)); got != 0 {
		t.Fatalf("chaos should bottom out at zero: %f", got)
	}
}

func TestDispatch_DetectorEventsGateByName(t *testing.T) {
	d, store, _ := newTestDispatcher(DefaultOptions())
	ctx := context.Background()

	det := score.Detection{
		Name:      "voice flood",
		Type:      model.EventVoice,
		ChannelID: "vc1",
		Score:     6,
	}
	d.handleDetection(ctx, det)
	d.handleDetection(ctx, det) // inside cooldown

	if events := store.GetRecentDramaEvents(0); len(events) != 1 {
		t.Fatalf("detector cooldown leaked: %d", len(events))
	}
}
