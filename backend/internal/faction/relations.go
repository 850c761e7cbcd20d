package faction

import (
	"context"

	"dramabot/backend/internal/bus"
	"dramabot/backend/internal/model"
	"dramabot/backend/internal/score"

	"go.uber.org/zap"
)

// Cross-faction interaction tuning. A mention across faction lines is the
// qualifying interaction: hostile intensity deepens a rivalry, anything
// calmer warms an alliance. A decisive blow also credits the author's
// faction with a drama win.
const (
	hostileIntensity  = 5
	decisiveIntensity = 8
)

// Attach subscribes the manager to the normalized message stream so pair
// records form on the first qualifying interaction and shift on each one
// after.
func (m *Manager) Attach(b *bus.Bus) {
	b.Subscribe(bus.EventMessage, func(payload any) {
		if ev, ok := payload.(model.MessageEvent); ok {
			m.HandleMessage(context.Background(), ev)
		}
	})
}

// HandleMessage reads faction lines out of a message: every mention of a
// member of another faction touches the pair record between the two camps.
// Unknown or factionless participants carry no signal.
func (m *Manager) HandleMessage(ctx context.Context, ev model.MessageEvent) {
	if ev.Bot || len(ev.Mentions) == 0 {
		return
	}
	author := m.store.GetUser(ctx, ev.AuthorID)
	if author == nil || author.FactionID == "" {
		return
	}

	intensity := score.Score(ev)
	relType, delta := model.RelationAlliance, 1
	if intensity >= hostileIntensity {
		relType, delta = model.RelationRivalry, -1
	}

	touched := make(map[string]bool)
	for _, id := range ev.Mentions {
		target := m.store.GetUser(ctx, id)
		if target == nil || target.FactionID == "" || target.FactionID == author.FactionID {
			continue
		}
		// One shift per faction pair per message, however many members
		// were mentioned
		if touched[target.FactionID] {
			continue
		}
		touched[target.FactionID] = true

		al, err := m.FormAlliance(author.FactionID, target.FactionID, relType)
		if err != nil {
			m.logger.Warn("pair record not updated",
				zap.String("faction_a", author.FactionID),
				zap.String("faction_b", target.FactionID),
				zap.Error(err),
			)
			continue
		}
		if err := m.UpdateAura(ctx, al.ID, delta); err != nil {
			m.logger.Warn("aura shift failed",
				zap.String("alliance_id", al.ID),
				zap.Error(err),
			)
		}
	}

	if len(touched) > 0 && intensity >= decisiveIntensity {
		m.RecordDramaWin(author.FactionID)
	}
}
