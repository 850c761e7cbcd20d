package model

import "time"

// User is a tracked community member. Created lazily on first observed
// event; never hard-deleted, staleness is implied by LastActive.
type User struct {
	ID          string    `json:"id"` // platform user id, primary key
	DisplayName string    `json:"display_name"`
	Karma       int       `json:"karma"`
	DramaPoints int       `json:"drama_points"`
	FactionID   string    `json:"faction_id,omitempty"` // empty = factionless
	RoleHistory []string  `json:"role_history,omitempty"`
	Traits      []string  `json:"traits,omitempty"`
	LastActive  time.Time `json:"last_active"`
}

// HasTrait reports whether the user already carries the given badge.
func (u *User) HasTrait(trait string) bool {
	for _, t := range u.Traits {
		if t == trait {
			return true
		}
	}
	return false
}

// Faction is a named group with membership, power and a lifecycle tied to
// non-zero membership.
type Faction struct {
	ID          string    `json:"id"` // uuid
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Power       int       `json:"power"`   // clamped [1,100]
	Entropy     float64   `json:"entropy"` // instability, grows with drama
	MemberIDs   []string  `json:"member_ids"`
	LeaderID    string    `json:"leader_id"`
	DramaWins   int       `json:"drama_wins"`
	Color       int       `json:"color"` // display only
	Emoji       string    `json:"emoji"` // display only
	CreatedAt   time.Time `json:"created_at"`
}

// HasMember reports whether the user id is in the member set.
func (f *Faction) HasMember(userID string) bool {
	for _, id := range f.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops the user id from the member set, if present.
func (f *Faction) RemoveMember(userID string) {
	for i, id := range f.MemberIDs {
		if id == userID {
			f.MemberIDs = append(f.MemberIDs[:i], f.MemberIDs[i+1:]...)
			return
		}
	}
}

// RelationType distinguishes cooperative from adversarial pair records.
type RelationType string

const (
	RelationAlliance RelationType = "alliance"
	RelationRivalry  RelationType = "rivalry"
)

// Aura score bounds for alliances.
const (
	AuraMin = -10
	AuraMax = 10
)

// Alliance is a pairwise relationship between two factions. At most one
// active record exists per unordered pair per type.
type Alliance struct {
	ID              string       `json:"id"` // uuid
	FactionA        string       `json:"faction_a"`
	FactionB        string       `json:"faction_b"`
	Type            RelationType `json:"type"`
	AuraScore       int          `json:"aura_score"` // clamped [AuraMin, AuraMax]
	LastInteraction time.Time    `json:"last_interaction"`
}

// Involves reports whether the given faction id is one of the pair.
func (a *Alliance) Involves(factionID string) bool {
	return a.FactionA == factionID || a.FactionB == factionID
}

// EventType is the closed set of drama event categories.
type EventType string

const (
	EventMessage  EventType = "message"
	EventReaction EventType = "reaction"
	EventVoice    EventType = "voice"
	EventBetrayal EventType = "betrayal"
	EventAlliance EventType = "alliance"
	EventWar      EventType = "war"
	EventCoup     EventType = "coup"
	EventVote     EventType = "vote"
	EventScandal  EventType = "scandal"
	EventDuel     EventType = "duel"
)

// DramaEvent is a persisted record of a detected socially significant
// occurrence. Immutable once Resolved, except for archival.
type DramaEvent struct {
	ID               string    `json:"id"` // uuid
	Type             EventType `json:"type"`
	Participants     []string  `json:"participants"` // ordered user ids
	FactionsInvolved []string  `json:"factions_involved,omitempty"`
	Score            int       `json:"score"` // intensity, 0-10 at creation
	Trigger          string    `json:"trigger"`
	Outcome          string    `json:"outcome,omitempty"`
	Resolved         bool      `json:"resolved"`
	Timestamp        time.Time `json:"timestamp"`
}
