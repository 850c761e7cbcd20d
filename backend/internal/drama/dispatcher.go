package drama

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dramabot/backend/internal/bus"
	"dramabot/backend/internal/model"
	"dramabot/backend/internal/score"
	"dramabot/backend/internal/world"
	"dramabot/backend/pkg/logger"

	"go.uber.org/zap"
)

// Options is the closed configuration surface of the dispatcher.
type Options struct {
	Threshold      int           // minimum intensity to trigger
	Cooldown       time.Duration // per-category window
	ChaosDecayRate float64       // percent per minute
	ChaosThreshold int           // accumulated chaos that fires a reorganization
	Channel        string        // logical channel for announcements
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Threshold:      5,
		Cooldown:       20 * time.Minute,
		ChaosDecayRate: 2.0,
		ChaosThreshold: 25,
	}
}

// Dispatcher is the only component that turns raw intensity into persisted
// drama events and the resulting world-state mutation. It consumes
// normalized events, scores them, applies per-category cooldowns, mutates
// the store synchronously and hands rendering to the notifier without
// waiting on it.
type Dispatcher struct {
	store    *world.Store
	scorer   *score.Scorer
	notifier model.Notifier // may be nil
	opts     Options

	mu        sync.Mutex
	cooldowns *cooldownTracker
	chaos     *chaosMeter

	now    func() time.Time // injectable clock
	logger *zap.Logger
}

// NewDispatcher wires the dispatcher over the store and scorer.
func NewDispatcher(store *world.Store, scorer *score.Scorer, notifier model.Notifier, opts Options) *Dispatcher {
	return &Dispatcher{
		store:     store,
		scorer:    scorer,
		notifier:  notifier,
		opts:      opts,
		cooldowns: newCooldownTracker(opts.Cooldown),
		chaos:     newChaosMeter(opts.ChaosDecayRate),
		now:       time.Now,
		logger:    logger.Named("dispatcher"),
	}
}

// Attach subscribes the dispatcher to the normalized event stream.
func (d *Dispatcher) Attach(b *bus.Bus) {
	b.Subscribe(bus.EventMessage, func(payload any) {
		if ev, ok := payload.(model.MessageEvent); ok {
			d.HandleMessage(context.Background(), ev)
		}
	})
	b.Subscribe(bus.EventReactionAdd, func(payload any) {
		if ev, ok := payload.(model.ReactionEvent); ok {
			d.HandleReaction(context.Background(), ev)
		}
	})
	b.Subscribe(bus.EventReactionRemove, func(payload any) {
		if ev, ok := payload.(model.ReactionEvent); ok {
			d.HandleReaction(context.Background(), ev)
		}
	})
	b.Subscribe(bus.EventVoiceStateUpdate, func(payload any) {
		if ev, ok := payload.(model.VoiceEvent); ok {
			d.HandleVoice(context.Background(), ev)
		}
	})
}

// HandleMessage scores a normalized message and, past the threshold and
// cooldown, commits a drama event.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev model.MessageEvent) {
	// Buffer first so detectors see the message even when it scores low
	for _, det := range d.scorer.ObserveMessage(ev) {
		d.handleDetection(ctx, det)
	}

	s := score.Score(ev)
	if s < d.opts.Threshold {
		return
	}

	evType, keyword, matched := matchCategory(ev.Content)
	category := string(evType)
	trigger := "high intensity"
	if matched {
		trigger = fmt.Sprintf("keyword: %s", keyword)
	}

	d.mu.Lock()
	now := d.now()
	if !d.cooldowns.ready(category, now) {
		rem := d.cooldowns.remaining(category, now)
		d.mu.Unlock()
		d.logger.Debug("trigger suppressed by cooldown",
			zap.String("category", category),
			zap.Duration("remaining", rem),
		)
		return
	}
	d.cooldowns.trigger(category, now)
	chaos := d.chaos.add(s, now)
	overflow := chaos >= float64(d.opts.ChaosThreshold)
	if overflow {
		d.chaos.reset(now)
	}
	d.mu.Unlock()

	// Resolve participants: author plus everyone dragged in by mention
	participants := append([]string{ev.AuthorID}, ev.Mentions...)
	d.store.GetOrCreateUser(ctx, ev.AuthorID, ev.AuthorName)
	for _, id := range ev.Mentions {
		d.store.GetOrCreateUser(ctx, id, "")
	}

	event := d.store.LogDramaEvent(&model.DramaEvent{
		Type:         evType,
		Participants: participants,
		Score:        s,
		Trigger:      trigger,
	})
	d.award(ctx, event)

	d.logger.Info("drama event dispatched",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int("score", s),
		zap.Float64("chaos", chaos),
	)

	d.notify(event, ev.ChannelID)

	if overflow {
		d.reorganize(ctx, ev.ChannelID)
	}
}

// HandleReaction feeds the reaction detectors.
func (d *Dispatcher) HandleReaction(ctx context.Context, ev model.ReactionEvent) {
	for _, det := range d.scorer.ObserveReaction(ev) {
		d.handleDetection(ctx, det)
	}
}

// HandleVoice feeds the voice detectors.
func (d *Dispatcher) HandleVoice(ctx context.Context, ev model.VoiceEvent) {
	for _, det := range d.scorer.ObserveVoice(ev) {
		d.handleDetection(ctx, det)
	}
}

// handleDetection commits a detector hit under the same cooldown regime,
// keyed by detector name.
func (d *Dispatcher) handleDetection(ctx context.Context, det score.Detection) {
	d.mu.Lock()
	now := d.now()
	if !d.cooldowns.ready(det.Name, now) {
		d.mu.Unlock()
		return
	}
	d.cooldowns.trigger(det.Name, now)
	chaos := d.chaos.add(det.Score, now)
	overflow := chaos >= float64(d.opts.ChaosThreshold)
	if overflow {
		d.chaos.reset(now)
	}
	d.mu.Unlock()

	for _, id := range det.Participants {
		d.store.GetOrCreateUser(ctx, id, "")
	}

	event := d.store.LogDramaEvent(&model.DramaEvent{
		Type:         det.Type,
		Participants: det.Participants,
		Score:        det.Score,
		Trigger:      det.Name,
		Outcome:      det.Detail,
	})
	d.award(ctx, event)

	d.logger.Info("detector event dispatched",
		zap.String("event_id", event.ID),
		zap.String("trigger", det.Name),
	)

	d.notify(event, det.ChannelID)

	if overflow {
		d.reorganize(ctx, det.ChannelID)
	}
}

// instigatorPoints is the lifetime drama-point mark that earns the
// instigator role.
const instigatorPoints = 25

// award updates drama points, karma and activity for every participant.
// Notable intensity also earns a badge, and crossing the lifetime mark
// earns a role.
func (d *Dispatcher) award(ctx context.Context, event *model.DramaEvent) {
	for i, id := range event.Participants {
		u := d.store.GetUser(ctx, id)
		if u == nil {
			continue
		}
		points := u.DramaPoints + event.Score
		karma := u.Karma + 1
		patch := world.UserPatch{ID: id, DramaPoints: &points, Karma: &karma}
		if i == 0 && event.Score >= 8 {
			patch.AddTrait = "firestarter"
		}
		if u.DramaPoints < instigatorPoints && points >= instigatorPoints {
			patch.AddRole = "instigator"
		}
		d.store.UpdateUser(patch)
	}
}

// reorganize fires the heavy server-wide event once chaos boils over.
func (d *Dispatcher) reorganize(ctx context.Context, channelID string) {
	event := d.store.LogDramaEvent(&model.DramaEvent{
		Type:    model.EventCoup,
		Score:   score.MaxScore,
		Trigger: "chaos overflow",
		Outcome: "the server reorganizes itself around new grudges",
	})
	d.logger.Info("chaos overflow",
		zap.String("event_id", event.ID),
	)
	d.notify(event, channelID)
}

// notify hands rendering to the notifier without waiting on it. Failures
// never touch the state already committed.
func (d *Dispatcher) notify(event *model.DramaEvent, channelID string) {
	if d.notifier == nil {
		return
	}
	channel := d.opts.Channel
	if channel == "" {
		channel = channelID
	}
	n := model.Notification{
		Channel:     channel,
		Title:       fmt.Sprintf("⚡ %s", strings.ToUpper(string(event.Type))),
		Description: d.describe(event),
		Color:       colorFor(event.Type),
		VoteOptions: voteOptionsFor(event.Type),
	}
	go func() {
		if err := d.notifier.Notify(context.Background(), n); err != nil {
			d.logger.Warn("notification failed",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}()
}

func (d *Dispatcher) describe(event *model.DramaEvent) string {
	if event.Outcome != "" {
		return event.Outcome
	}
	return fmt.Sprintf("intensity %d/%d, trigger: %s", event.Score, score.MaxScore, event.Trigger)
}
