package score

import (
	"fmt"
	"time"

	"dramabot/backend/internal/model"
)

// Detection is a higher-order pattern found in the rolling buffers. It is a
// signal to the dispatcher only; detectors never touch world state.
type Detection struct {
	Name         string // trigger name recorded on the resulting drama event
	Type         model.EventType
	ChannelID    string
	Participants []string // user ids implicated, may be empty
	Score        int
	Detail       string
}

// Detector tuning. Wall-clock windows, per the buffer-eviction model.
const (
	hotThreadMinReplies = 5
	hotThreadWindow     = 2 * time.Minute
	hotThreadScore      = 6

	splitVoteMinPerEmoji = 3   // strictly more than this per emoji
	splitVoteCloseness   = 0.8 // smaller count within 80% of larger
	splitVoteScore       = 6

	sarcasmMinPerEmoji = 2 // strictly more than this per emoji
	sarcasmScore       = 5

	voiceFloodJoins    = 4
	voiceFloodLookback = 10
	voiceFloodScore    = 6

	rageQuitJoins  = 2
	rageQuitWindow = 90 * time.Second
	rageQuitScore  = 7
)

// sarcasmEmojis is the fixed cluster set; each must appear more than
// sarcasmMinPerEmoji times on a single message to fire.
var sarcasmEmojis = []string{"🙃", "😏", "🤡", "💀", "🤓"}

// detectHotThread fires when the newest message is the Nth reply to the
// same parent within the window.
func detectHotThread(ring *messageRing, msg model.MessageEvent) (Detection, bool) {
	if msg.ReplyToID == "" {
		return Detection{}, false
	}

	cutoff := msg.Timestamp.Add(-hotThreadWindow)
	replies := 0
	seen := make(map[string]struct{})
	var participants []string
	for i := 0; i < ring.len(); i++ {
		m := ring.at(i)
		if m.ReplyToID != msg.ReplyToID || m.Timestamp.Before(cutoff) {
			continue
		}
		replies++
		if _, ok := seen[m.AuthorID]; !ok {
			seen[m.AuthorID] = struct{}{}
			participants = append(participants, m.AuthorID)
		}
	}
	if replies < hotThreadMinReplies {
		return Detection{}, false
	}

	return Detection{
		Name:         "high-velocity thread",
		Type:         model.EventMessage,
		ChannelID:    msg.ChannelID,
		Participants: participants,
		Score:        hotThreadScore,
		Detail:       fmt.Sprintf("%d replies to %s within %s", replies, msg.ReplyToID, hotThreadWindow),
	}, true
}

// detectSplitVote fires when two reaction camps of comparable size have
// formed on one message.
func detectSplitVote(ev model.ReactionEvent, counts map[string]int) (Detection, bool) {
	// Find the two largest camps above the floor
	top, second := 0, 0
	camps := 0
	for _, c := range counts {
		if c <= splitVoteMinPerEmoji {
			continue
		}
		camps++
		if c > top {
			top, second = c, top
		} else if c > second {
			second = c
		}
	}
	if camps < 2 || float64(second) < splitVoteCloseness*float64(top) {
		return Detection{}, false
	}

	return Detection{
		Name:      "split vote",
		Type:      model.EventVote,
		ChannelID: ev.ChannelID,
		Score:     splitVoteScore,
		Detail:    fmt.Sprintf("message %s split %d vs %d", ev.MessageID, top, second),
	}, true
}

// detectSarcasmCluster fires when every emoji of the fixed sarcasm set has
// piled onto one message.
func detectSarcasmCluster(ev model.ReactionEvent, counts map[string]int) (Detection, bool) {
	for _, e := range sarcasmEmojis {
		if counts[e] <= sarcasmMinPerEmoji {
			return Detection{}, false
		}
	}

	return Detection{
		Name:      "sarcasm cluster",
		Type:      model.EventScandal,
		ChannelID: ev.ChannelID,
		Score:     sarcasmScore,
		Detail:    fmt.Sprintf("sarcasm pile-on on message %s", ev.MessageID),
	}, true
}

// detectVoiceFlood fires when enough joins into one channel appear within
// the most recent buffered voice events.
func detectVoiceFlood(ring *voiceRing, ev model.VoiceEvent) (Detection, bool) {
	if !ev.Joined {
		return Detection{}, false
	}

	joins := 0
	seen := make(map[string]struct{})
	var participants []string
	for _, v := range ring.recent(voiceFloodLookback) {
		if !v.Joined || v.ChannelID != ev.ChannelID {
			continue
		}
		joins++
		if _, ok := seen[v.UserID]; !ok {
			seen[v.UserID] = struct{}{}
			participants = append(participants, v.UserID)
		}
	}
	if joins < voiceFloodJoins {
		return Detection{}, false
	}

	return Detection{
		Name:         "voice flood",
		Type:         model.EventVoice,
		ChannelID:    ev.ChannelID,
		Participants: participants,
		Score:        voiceFloodScore,
		Detail:       fmt.Sprintf("%d joins into %s", joins, ev.ChannelID),
	}, true
}

// detectRageQuit fires on a leave shortly after multiple joins into the
// channel being left.
func detectRageQuit(ring *voiceRing, ev model.VoiceEvent) (Detection, bool) {
	if ev.Joined {
		return Detection{}, false
	}
	channel := ev.PrevChannelID
	if channel == "" {
		channel = ev.ChannelID
	}

	cutoff := ev.Timestamp.Add(-rageQuitWindow)
	joins := 0
	for i := 0; i < ring.len(); i++ {
		v := ring.at(i)
		if v.Joined && v.ChannelID == channel && !v.Timestamp.Before(cutoff) {
			joins++
		}
	}
	if joins < rageQuitJoins {
		return Detection{}, false
	}

	return Detection{
		Name:         "rage quit",
		Type:         model.EventVoice,
		ChannelID:    channel,
		Participants: []string{ev.UserID},
		Score:        rageQuitScore,
		Detail:       fmt.Sprintf("%s left %s right after %d joins", ev.UserID, channel, joins),
	}, true
}
