package world

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"dramabot/backend/internal/model"
	apperrors "dramabot/backend/pkg/errors"
	"dramabot/backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// persistTimeout bounds every detached adapter call.
const persistTimeout = 10 * time.Second

// Options is the closed configuration surface of the store.
type Options struct {
	AutoSaveInterval time.Duration
	CacheTTL         time.Duration
	NameMin          int
	NameMax          int
	DescMax          int
	TimelineCap      int
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		AutoSaveInterval: 5 * time.Minute,
		CacheTTL:         5 * time.Minute,
		NameMin:          3,
		NameMax:          32,
		DescMax:          256,
		TimelineCap:      500,
	}
}

// Store owns the canonical in-memory world model: users, factions,
// alliances and the bounded drama timeline. It is the only component that
// writes to persistence. Mutations complete synchronously in memory; the
// matching storage write is detached and never blocks or fails the caller.
type Store struct {
	mu      sync.RWMutex
	adapter Adapter
	opts    Options
	logger  *zap.Logger

	users        map[string]*model.User
	factions     map[string]*model.Faction
	factionNames map[string]string // lower(name) -> faction id
	alliances    map[string]*model.Alliance
	timeline     []*model.DramaEvent
	unsaved      map[string]*model.DramaEvent // events awaiting a durable write

	cache *userCache

	done      chan struct{}
	wg        sync.WaitGroup
	destroyed bool
}

// NewStore creates a store over the given persistence adapter.
func NewStore(adapter Adapter, opts Options) *Store {
	return &Store{
		adapter:      adapter,
		opts:         opts,
		logger:       logger.Named("world"),
		users:        make(map[string]*model.User),
		factions:     make(map[string]*model.Faction),
		factionNames: make(map[string]string),
		alliances:    make(map[string]*model.Alliance),
		unsaved:      make(map[string]*model.DramaEvent),
		cache:        newUserCache(opts.CacheTTL),
		done:         make(chan struct{}),
	}
}

// Load pulls factions, alliances and the recent timeline into memory.
// Users load lazily on first access.
func (s *Store) Load(ctx context.Context) error {
	factions, err := s.adapter.ListFactions(ctx)
	if err != nil {
		return apperrors.NewStorageQueryFailed("list factions", err)
	}
	alliances, err := s.adapter.ListAlliances(ctx)
	if err != nil {
		return apperrors.NewStorageQueryFailed("list alliances", err)
	}
	events, err := s.adapter.RecentDramaEvents(ctx, s.opts.TimelineCap)
	if err != nil {
		return apperrors.NewStorageQueryFailed("recent drama events", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range factions {
		s.factions[f.ID] = f
		s.factionNames[strings.ToLower(f.Name)] = f.ID
	}
	for _, a := range alliances {
		s.alliances[a.ID] = a
	}
	s.timeline = events

	s.logger.Info("world state loaded",
		zap.Int("factions", len(factions)),
		zap.Int("alliances", len(alliances)),
		zap.Int("events", len(events)),
	)
	return nil
}

// StartAutoSave runs the periodic full-state flush until Destroy.
func (s *Store) StartAutoSave() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.AutoSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.flush()
			case <-s.done:
				return
			}
		}
	}()
}

// Users

// GetUser reads through memory, then the TTL cache, then the adapter.
// Unknown users come back nil, never an error.
func (s *Store) GetUser(ctx context.Context, id string) *model.User {
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if ok {
		return u
	}

	now := time.Now()
	if cached := s.cache.get(id, now); cached != nil {
		s.mu.Lock()
		s.users[id] = cached
		s.mu.Unlock()
		return cached
	}

	u, err := s.adapter.GetUser(ctx, id)
	if err != nil {
		s.logger.Warn("user lookup failed, treating as unknown",
			zap.String("user_id", id),
			zap.Error(err),
		)
		return nil
	}
	if u == nil {
		return nil
	}

	s.cache.put(u, now)
	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	return u
}

// GetOrCreateUser resolves the user, creating a zero-valued record on miss.
func (s *Store) GetOrCreateUser(ctx context.Context, id, displayName string) *model.User {
	if u := s.GetUser(ctx, id); u != nil {
		if displayName != "" && u.DisplayName != displayName {
			s.mu.Lock()
			u.DisplayName = displayName
			s.mu.Unlock()
		}
		return u
	}

	u := &model.User{
		ID:          id,
		DisplayName: displayName,
		LastActive:  time.Now(),
	}
	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	s.persistUser(u)
	return u
}

// SaveUser stores the user in memory and issues a detached upsert.
func (s *Store) SaveUser(u *model.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	s.persistUser(u)
}

// UserPatch carries partial-update semantics: only non-nil fields change.
// LastActive always refreshes.
type UserPatch struct {
	ID          string
	DisplayName *string
	Karma       *int
	DramaPoints *int
	FactionID   *string
	AddRole     string
	AddTrait    string
}

// UpdateUser applies a partial update to an in-memory user. Unknown users
// are a no-op returning false.
func (s *Store) UpdateUser(patch UserPatch) bool {
	s.mu.Lock()
	u, ok := s.users[patch.ID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Karma != nil {
		u.Karma = *patch.Karma
	}
	if patch.DramaPoints != nil {
		u.DramaPoints = *patch.DramaPoints
	}
	if patch.FactionID != nil {
		u.FactionID = *patch.FactionID
	}
	if patch.AddRole != "" {
		u.RoleHistory = append(u.RoleHistory, patch.AddRole)
	}
	if patch.AddTrait != "" && !u.HasTrait(patch.AddTrait) {
		u.Traits = append(u.Traits, patch.AddTrait)
	}
	u.LastActive = time.Now()
	s.mu.Unlock()

	s.persistUser(u)
	return true
}

// TopUsers returns up to limit users ranked by drama points, karma breaking
// ties. Only users touched since startup are ranked; the leaderboard is a
// view over the working set, not an archive query. Entries are snapshots,
// detached from the live records.
func (s *Store) TopUsers(limit int) []*model.User {
	s.mu.RLock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, snapshotUser(u))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DramaPoints != out[j].DramaPoints {
			return out[i].DramaPoints > out[j].DramaPoints
		}
		if out[i].Karma != out[j].Karma {
			return out[i].Karma > out[j].Karma
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Factions

var factionNameRe = regexp.MustCompile(`^[\p{L}\p{N} '_-]+$`)

func (s *Store) validateFactionName(name string) error {
	n := len([]rune(name))
	if n < s.opts.NameMin || n > s.opts.NameMax {
		return apperrors.NewInvalidFactionName(name, "length out of bounds")
	}
	if !factionNameRe.MatchString(name) {
		return apperrors.NewInvalidFactionName(name, "contains forbidden characters")
	}
	return nil
}

// GetFaction returns the faction, or nil when unknown.
func (s *Store) GetFaction(id string) *model.Faction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.factions[id]
}

// GetFactionByName resolves a faction case-insensitively by name.
func (s *Store) GetFactionByName(name string) *model.Faction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.factionNames[strings.ToLower(name)]; ok {
		return s.factions[id]
	}
	return nil
}

// CreateFaction validates the name invariants before any write and rejects
// case-insensitive duplicates. The creator becomes sole member and leader.
func (s *Store) CreateFaction(name, creatorID, description string) (*model.Faction, error) {
	if err := s.validateFactionName(name); err != nil {
		return nil, err
	}
	if len(description) > s.opts.DescMax {
		return nil, apperrors.NewDescriptionTooLong(len(description), s.opts.DescMax)
	}

	s.mu.Lock()
	if _, exists := s.factionNames[strings.ToLower(name)]; exists {
		s.mu.Unlock()
		return nil, apperrors.NewDuplicateFactionName(name)
	}

	f := &model.Faction{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Power:       1,
		MemberIDs:   []string{creatorID},
		LeaderID:    creatorID,
		CreatedAt:   time.Now(),
	}
	s.factions[f.ID] = f
	s.factionNames[strings.ToLower(name)] = f.ID
	if u, ok := s.users[creatorID]; ok {
		u.FactionID = f.ID
		u.LastActive = time.Now()
	}
	s.mu.Unlock()

	s.persistFaction(f)
	s.logger.Info("faction created",
		zap.String("faction_id", f.ID),
		zap.String("name", f.Name),
		zap.String("creator_id", creatorID),
	)
	return f, nil
}

// UpdateFaction re-persists an already-mutated faction. The faction value
// is owned by the store; callers mutate it via the lifecycle manager.
func (s *Store) UpdateFaction(f *model.Faction) {
	s.mu.Lock()
	s.factions[f.ID] = f
	s.mu.Unlock()
	s.persistFaction(f)
}

// DeleteFaction removes the faction, detaches its members and cascades to
// any alliance referencing it.
func (s *Store) DeleteFaction(id string) {
	s.mu.Lock()
	f, ok := s.factions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.factions, id)
	delete(s.factionNames, strings.ToLower(f.Name))
	for _, memberID := range f.MemberIDs {
		if u, ok := s.users[memberID]; ok && u.FactionID == id {
			u.FactionID = ""
		}
	}
	var cascade []*model.Alliance
	for _, a := range s.alliances {
		if a.Involves(id) {
			cascade = append(cascade, a)
			delete(s.alliances, a.ID)
		}
	}
	s.mu.Unlock()

	s.detach("delete faction", func(ctx context.Context) error {
		return s.adapter.DeleteFaction(ctx, id)
	})
	for _, a := range cascade {
		allianceID := a.ID
		s.detach("cascade alliance delete", func(ctx context.Context) error {
			return s.adapter.DeleteAlliance(ctx, allianceID)
		})
	}
	s.logger.Info("faction dissolved",
		zap.String("faction_id", id),
		zap.String("name", f.Name),
		zap.Int("alliances_cascaded", len(cascade)),
	)
}

// GetAllFactions returns the live factions in no particular order.
func (s *Store) GetAllFactions() []*model.Faction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Faction, 0, len(s.factions))
	for _, f := range s.factions {
		out = append(out, f)
	}
	return out
}

// Alliances

// AllianceBetween finds the active record for an unordered faction pair and
// type, or nil.
func (s *Store) AllianceBetween(a, b string, relType model.RelationType) *model.Alliance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, al := range s.alliances {
		if al.Type != relType {
			continue
		}
		if (al.FactionA == a && al.FactionB == b) || (al.FactionA == b && al.FactionB == a) {
			return al
		}
	}
	return nil
}

// GetAlliance returns the alliance by id, or nil.
func (s *Store) GetAlliance(id string) *model.Alliance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alliances[id]
}

// AllAlliances returns every active pair record.
func (s *Store) AllAlliances() []*model.Alliance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Alliance, 0, len(s.alliances))
	for _, a := range s.alliances {
		out = append(out, a)
	}
	return out
}

// PutAlliance stores the alliance and issues a detached upsert.
func (s *Store) PutAlliance(a *model.Alliance) {
	s.mu.Lock()
	s.alliances[a.ID] = a
	snap := snapshotAlliance(a)
	s.mu.Unlock()
	s.detach("upsert alliance", func(ctx context.Context) error {
		return s.adapter.UpsertAlliance(ctx, snap)
	})
}

// DeleteAlliance removes the pair record.
func (s *Store) DeleteAlliance(id string) {
	s.mu.Lock()
	_, ok := s.alliances[id]
	delete(s.alliances, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.detach("delete alliance", func(ctx context.Context) error {
		return s.adapter.DeleteAlliance(ctx, id)
	})
}

// Drama events

// LogDramaEvent assigns identity, appends to the bounded timeline and
// issues a detached durable write. The in-memory append is never rolled
// back on persistence failure; the next flush retries.
func (s *Store) LogDramaEvent(ev *model.DramaEvent) *model.DramaEvent {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ev
	}
	s.timeline = append(s.timeline, ev)
	if len(s.timeline) > s.opts.TimelineCap {
		s.timeline = s.timeline[len(s.timeline)-s.opts.TimelineCap:]
	}
	s.unsaved[ev.ID] = ev
	// Registered under the same lock Destroy takes, see detach
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.adapter.UpsertDramaEvent(ctx, ev); err != nil {
			s.logger.Warn("drama event write failed, will retry on next flush",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
			return
		}
		s.mu.Lock()
		delete(s.unsaved, ev.ID)
		s.mu.Unlock()
	}()
	return ev
}

// GetRecentDramaEvents returns up to limit events, newest first.
func (s *Store) GetRecentDramaEvents(limit int) []*model.DramaEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.timeline)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*model.DramaEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.timeline[i])
	}
	return out
}

// Lifecycle

// flush writes the full current state through the adapter. Failures are
// logged and left for the next cycle; saves are idempotent upserts.
// Entities are snapshotted under the lock so the slow adapter writes never
// read records a concurrent mutation is touching.
func (s *Store) flush() {
	s.mu.RLock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, snapshotUser(u))
	}
	factions := make([]*model.Faction, 0, len(s.factions))
	for _, f := range s.factions {
		factions = append(factions, snapshotFaction(f))
	}
	alliances := make([]*model.Alliance, 0, len(s.alliances))
	for _, a := range s.alliances {
		alliances = append(alliances, snapshotAlliance(a))
	}
	pending := make([]*model.DramaEvent, 0, len(s.unsaved))
	for _, ev := range s.unsaved {
		pending = append(pending, ev)
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	failures := 0
	for _, u := range users {
		if err := s.adapter.UpsertUser(ctx, u); err != nil {
			failures++
		}
	}
	for _, f := range factions {
		if err := s.adapter.UpsertFaction(ctx, f); err != nil {
			failures++
		}
	}
	for _, a := range alliances {
		if err := s.adapter.UpsertAlliance(ctx, a); err != nil {
			failures++
		}
	}
	for _, ev := range pending {
		if err := s.adapter.UpsertDramaEvent(ctx, ev); err != nil {
			failures++
			continue
		}
		s.mu.Lock()
		delete(s.unsaved, ev.ID)
		s.mu.Unlock()
	}

	if failures > 0 {
		s.logger.Warn("state flush incomplete, retrying next cycle",
			zap.Int("failures", failures),
		)
	} else {
		s.logger.Debug("state flushed",
			zap.Int("users", len(users)),
			zap.Int("factions", len(factions)),
		)
	}
}

// Destroy flushes pending writes, stops the autosave loop and clears all
// in-memory state. Safe to call more than once.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.mu.Unlock()

	close(s.done)
	s.flush()
	s.wg.Wait()

	s.mu.Lock()
	s.users = make(map[string]*model.User)
	s.factions = make(map[string]*model.Faction)
	s.factionNames = make(map[string]string)
	s.alliances = make(map[string]*model.Alliance)
	s.timeline = nil
	s.unsaved = make(map[string]*model.DramaEvent)
	s.mu.Unlock()
	s.cache.clear()

	s.logger.Info("world store destroyed")
}

// helpers

// persistUser snapshots the user under the lock so the detached write
// never reads a record a later mutation is touching.
func (s *Store) persistUser(u *model.User) {
	s.mu.RLock()
	snap := snapshotUser(u)
	s.mu.RUnlock()
	s.detach("upsert user", func(ctx context.Context) error {
		return s.adapter.UpsertUser(ctx, snap)
	})
}

func (s *Store) persistFaction(f *model.Faction) {
	s.mu.RLock()
	snap := snapshotFaction(f)
	s.mu.RUnlock()
	s.detach("upsert faction", func(ctx context.Context) error {
		return s.adapter.UpsertFaction(ctx, snap)
	})
}

// detach runs a storage write off the caller's path. Failures are logged
// and swallowed; the periodic flush is the retry mechanism. The destroyed
// check and the waitgroup increment happen under the same lock Destroy
// takes to flip the flag, so no writer can register after Destroy has
// started waiting.
func (s *Store) detach(op string, fn func(ctx context.Context) error) {
	s.mu.RLock()
	dead := s.destroyed
	if !dead {
		s.wg.Add(1)
	}
	s.mu.RUnlock()
	if dead {
		return
	}

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("detached write failed",
				zap.String("op", op),
				zap.Error(err),
			)
		}
	}()
}
