package faction

import (
	"context"
	"fmt"
	"time"

	"dramabot/backend/internal/model"
	"dramabot/backend/internal/world"
	apperrors "dramabot/backend/pkg/errors"
	"dramabot/backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// plotTwistAura is the aura floor past which a betrayal check fires:
// any score below -8 counts as collapsed.
const plotTwistAura = -9

// Rand is the injectable random source behind flavor rolls. math/rand's
// *rand.Rand satisfies it; tests pin the outcome.
type Rand interface {
	Float64() float64
}

// Options is the closed configuration surface of the lifecycle manager.
type Options struct {
	MaxMembers      int
	PlotTwistChance float64       // probability an aura collapse dissolves the alliance
	AuraStaleAfter  time.Duration // stale non-positive alliances get swept
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		MaxMembers:      50,
		PlotTwistChance: 0.5,
		AuraStaleAfter:  7 * 24 * time.Hour,
	}
}

// Manager drives the faction state machine: active (>=1 member) until
// dissolved (0 members, terminal). All mutation goes through the world
// store; the manager never writes to persistence itself.
type Manager struct {
	store    *world.Store
	opts     Options
	rand     Rand
	notifier model.Notifier // may be nil
	logger   *zap.Logger
}

// NewManager creates a lifecycle manager over the store.
func NewManager(store *world.Store, opts Options, rnd Rand, notifier model.Notifier) *Manager {
	return &Manager{
		store:    store,
		opts:     opts,
		rand:     rnd,
		notifier: notifier,
		logger:   logger.Named("faction"),
	}
}

// Create makes a new faction with the creator as sole member and leader.
// A user still in another faction must leave it first.
func (m *Manager) Create(ctx context.Context, name, creatorID, displayName, description string) (*model.Faction, error) {
	u := m.store.GetOrCreateUser(ctx, creatorID, displayName)
	if u.FactionID != "" {
		return nil, apperrors.NewAlreadyInFaction(creatorID, u.FactionID)
	}

	f, err := m.store.CreateFaction(name, creatorID, description)
	if err != nil {
		return nil, err
	}

	m.store.UpdateUser(world.UserPatch{ID: creatorID, AddRole: "founder"})
	m.recalcPower(f)
	return f, nil
}

// Join adds the user to the faction. Rejected when the user already belongs
// to a different faction or the faction is at capacity.
func (m *Manager) Join(ctx context.Context, factionID, userID, displayName string) error {
	f := m.store.GetFaction(factionID)
	if f == nil {
		return apperrors.NewFactionNotFound(factionID)
	}

	u := m.store.GetOrCreateUser(ctx, userID, displayName)
	if u.FactionID == factionID {
		return nil // already in, nothing to do
	}
	if u.FactionID != "" {
		return apperrors.NewAlreadyInFaction(userID, u.FactionID)
	}
	if m.opts.MaxMembers > 0 && len(f.MemberIDs) >= m.opts.MaxMembers {
		return apperrors.NewFactionFull(factionID, m.opts.MaxMembers)
	}

	f.MemberIDs = append(f.MemberIDs, userID)
	fid := factionID
	m.store.UpdateUser(world.UserPatch{ID: userID, FactionID: &fid})
	m.recalcPower(f)

	m.logger.Info("user joined faction",
		zap.String("user_id", userID),
		zap.String("faction_id", factionID),
	)
	return nil
}

// Leave removes the user from the faction. A leader with remaining members
// must transfer leadership first; the last member leaving dissolves the
// faction.
func (m *Manager) Leave(ctx context.Context, factionID, userID string) error {
	f := m.store.GetFaction(factionID)
	if f == nil {
		return apperrors.NewFactionNotFound(factionID)
	}
	if !f.HasMember(userID) {
		return apperrors.NewNotAMember(userID, factionID)
	}
	if f.LeaderID == userID && len(f.MemberIDs) > 1 {
		return apperrors.NewSoleLeader(userID, factionID)
	}

	f.RemoveMember(userID)
	empty := ""
	m.store.UpdateUser(world.UserPatch{ID: userID, FactionID: &empty})

	if len(f.MemberIDs) == 0 {
		// Terminal state: dissolution cascades to alliances
		m.store.DeleteFaction(factionID)
		return nil
	}

	m.recalcPower(f)
	return nil
}

// TransferLeadership hands the faction to another member.
func (m *Manager) TransferLeadership(factionID, fromID, toID string) error {
	f := m.store.GetFaction(factionID)
	if f == nil {
		return apperrors.NewFactionNotFound(factionID)
	}
	if f.LeaderID != fromID {
		return apperrors.NewNotAMember(fromID, factionID)
	}
	if !f.HasMember(toID) {
		return apperrors.NewNotAMember(toID, factionID)
	}

	f.LeaderID = toID
	m.store.UpdateUser(world.UserPatch{ID: toID, AddRole: "leader"})
	m.store.UpdateFaction(f)
	return nil
}

// RecordDramaWin credits a faction with a drama victory and re-derives its
// power.
func (m *Manager) RecordDramaWin(factionID string) {
	f := m.store.GetFaction(factionID)
	if f == nil {
		return
	}
	f.DramaWins++
	f.Entropy += 0.1
	m.recalcPower(f)
}

// FormAlliance creates the pair record for an unordered faction pair and
// type, or returns the existing one. The relation type is validated before
// any write.
func (m *Manager) FormAlliance(a, b string, relType model.RelationType) (*model.Alliance, error) {
	if relType != model.RelationAlliance && relType != model.RelationRivalry {
		return nil, apperrors.NewUnknownRelationType(string(relType))
	}
	fa, fb := m.store.GetFaction(a), m.store.GetFaction(b)
	if fa == nil {
		return nil, apperrors.NewFactionNotFound(a)
	}
	if fb == nil {
		return nil, apperrors.NewFactionNotFound(b)
	}

	if existing := m.store.AllianceBetween(a, b, relType); existing != nil {
		existing.LastInteraction = time.Now()
		m.store.PutAlliance(existing)
		return existing, nil
	}

	al := &model.Alliance{
		ID:              uuid.New().String(),
		FactionA:        a,
		FactionB:        b,
		Type:            relType,
		LastInteraction: time.Now(),
	}
	m.store.PutAlliance(al)
	m.recalcPower(fa)
	m.recalcPower(fb)

	m.logger.Info("alliance formed",
		zap.String("alliance_id", al.ID),
		zap.String("faction_a", fa.Name),
		zap.String("faction_b", fb.Name),
		zap.String("type", string(relType)),
	)
	return al, nil
}

// UpdateAura shifts the pair's aura score, clamped to the configured
// bounds. A collapse past the negative extreme rolls the plot-twist die.
func (m *Manager) UpdateAura(ctx context.Context, allianceID string, delta int) error {
	al := m.store.GetAlliance(allianceID)
	if al == nil {
		return apperrors.NewAllianceNotFound(allianceID)
	}

	al.AuraScore += delta
	if al.AuraScore > model.AuraMax {
		al.AuraScore = model.AuraMax
	}
	if al.AuraScore < model.AuraMin {
		al.AuraScore = model.AuraMin
	}
	al.LastInteraction = time.Now()
	m.store.PutAlliance(al)

	if al.AuraScore <= plotTwistAura && m.rand.Float64() < m.opts.PlotTwistChance {
		m.dissolveWithTwist(ctx, al, "aura collapse")
	}
	return nil
}

// DecayAuras sweeps stale pair records: past the staleness window with a
// non-positive score, the relationship quietly rots into a betrayal.
func (m *Manager) DecayAuras(ctx context.Context, now time.Time) int {
	swept := 0
	for _, al := range m.store.AllAlliances() {
		if al.AuraScore > 0 {
			continue
		}
		if now.Sub(al.LastInteraction) <= m.opts.AuraStaleAfter {
			continue
		}
		m.dissolveWithTwist(ctx, al, "staleness")
		swept++
	}
	return swept
}

// dissolveWithTwist deletes the pair record and emits the betrayal event.
func (m *Manager) dissolveWithTwist(ctx context.Context, al *model.Alliance, cause string) {
	m.store.DeleteAlliance(al.ID)

	fa, fb := m.store.GetFaction(al.FactionA), m.store.GetFaction(al.FactionB)
	nameA, nameB := al.FactionA, al.FactionB
	if fa != nil {
		nameA = fa.Name
		m.recalcPower(fa)
	}
	if fb != nil {
		nameB = fb.Name
		m.recalcPower(fb)
	}

	ev := m.store.LogDramaEvent(&model.DramaEvent{
		Type:             model.EventBetrayal,
		FactionsInvolved: []string{al.FactionA, al.FactionB},
		Score:            8,
		Trigger:          fmt.Sprintf("plot twist: %s", cause),
		Outcome:          fmt.Sprintf("the pact between %s and %s is no more", nameA, nameB),
		Resolved:         true,
	})

	m.logger.Info("plot twist",
		zap.String("alliance_id", al.ID),
		zap.String("cause", cause),
		zap.String("event_id", ev.ID),
	)

	if m.notifier != nil {
		n := model.Notification{
			Title:       "PLOT TWIST",
			Description: ev.Outcome,
			Color:       0x992D22,
		}
		go func() {
			if err := m.notifier.Notify(context.Background(), n); err != nil {
				m.logger.Warn("betrayal notification failed", zap.Error(err))
			}
		}()
	}
}

// recalcPower re-derives faction power from membership, drama wins and
// active alliances. Pure in its inputs, clamped to [1,100], recomputed on
// every membership or alliance change rather than on a timer.
func (m *Manager) recalcPower(f *model.Faction) {
	alliances := 0
	for _, al := range m.store.AllAlliances() {
		if al.Type == model.RelationAlliance && al.Involves(f.ID) {
			alliances++
		}
	}
	f.Power = ComputePower(len(f.MemberIDs), f.DramaWins, alliances)
	m.store.UpdateFaction(f)
}

// ComputePower derives faction power from member count, drama wins and
// active alliance count, clamped to [1,100].
func ComputePower(members, wins, alliances int) int {
	p := members*4 + wins*5 + alliances*3
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}
