package drama

import (
	"strings"

	"dramabot/backend/internal/model"
)

// keywordCategory binds trigger words to the drama event type they imply.
type keywordCategory struct {
	Type     model.EventType
	Keywords []string
}

// categories is scanned in order: when multiple categories match one
// message, the first match wins. The ordering is a fixed policy, not an
// accident of map iteration.
var categories = []keywordCategory{
	{model.EventWar, []string{"war", "attack", "destroy", "crush them", "fight me"}},
	{model.EventCoup, []string{"coup", "overthrow", "usurp", "seize power"}},
	{model.EventScandal, []string{"scandal", "expose", "drama", "receipts"}},
	{model.EventDuel, []string{"duel", "challenge", "1v1", "square up"}},
	{model.EventVote, []string{"vote", "poll", "settle this"}},
}

// matchCategory returns the event type and the matched keyword for the
// first category hit, or ok=false for a plain message.
func matchCategory(content string) (model.EventType, string, bool) {
	lower := strings.ToLower(content)
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return cat.Type, kw, true
			}
		}
	}
	return model.EventMessage, "", false
}

// voteOptionsFor picks the reaction-vote affordances for an event type.
func voteOptionsFor(t model.EventType) []string {
	switch t {
	case model.EventWar:
		return []string{"⚔️", "🕊️"}
	case model.EventCoup:
		return []string{"👑", "🛡️"}
	case model.EventDuel:
		return []string{"🗡️", "🏳️"}
	case model.EventVote:
		return []string{"✅", "❌"}
	default:
		return []string{"🔥", "🧊"}
	}
}

// colorFor picks the embed color for an event type.
func colorFor(t model.EventType) int {
	switch t {
	case model.EventWar, model.EventBetrayal:
		return 0x992D22 // dark red
	case model.EventCoup:
		return 0x9B59B6 // purple
	case model.EventAlliance:
		return 0x2ECC71 // green
	case model.EventScandal:
		return 0xE67E22 // orange
	default:
		return 0xF1C40F // gold
	}
}
