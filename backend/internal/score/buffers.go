package score

import (
	"time"

	"dramabot/backend/internal/model"
)

// Buffer capacities. All buffers evict oldest-first so memory stays bounded
// regardless of channel activity.
const (
	channelRingCap   = 1000
	voiceRingCap     = 50
	reactionTableCap = 500
)

// messageMeta is the slice of a message the detectors need
type messageMeta struct {
	ID        string
	AuthorID  string
	ReplyToID string
	Timestamp time.Time
}

// messageRing is a fixed-capacity FIFO of recent messages in one channel
type messageRing struct {
	buf   []messageMeta
	start int
	count int
}

func newMessageRing(capacity int) *messageRing {
	return &messageRing{buf: make([]messageMeta, capacity)}
}

func (r *messageRing) push(m messageMeta) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = m
		r.count++
		return
	}
	// Full: overwrite oldest
	r.buf[r.start] = m
	r.start = (r.start + 1) % len(r.buf)
}

func (r *messageRing) len() int { return r.count }

// at returns the i-th oldest buffered message
func (r *messageRing) at(i int) messageMeta {
	return r.buf[(r.start+i)%len(r.buf)]
}

// voiceRing is a fixed-capacity FIFO of recent voice transitions,
// shared across channels
type voiceRing struct {
	buf   []model.VoiceEvent
	start int
	count int
}

func newVoiceRing(capacity int) *voiceRing {
	return &voiceRing{buf: make([]model.VoiceEvent, capacity)}
}

func (r *voiceRing) push(ev model.VoiceEvent) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = ev
		r.count++
		return
	}
	r.buf[r.start] = ev
	r.start = (r.start + 1) % len(r.buf)
}

func (r *voiceRing) len() int { return r.count }

func (r *voiceRing) at(i int) model.VoiceEvent {
	return r.buf[(r.start+i)%len(r.buf)]
}

// recent returns up to n of the newest buffered voice events, oldest first
func (r *voiceRing) recent(n int) []model.VoiceEvent {
	if n > r.count {
		n = r.count
	}
	out := make([]model.VoiceEvent, 0, n)
	for i := r.count - n; i < r.count; i++ {
		out = append(out, r.at(i))
	}
	return out
}

// reactionTable tracks per-message emoji counts for the most recently
// reacted-to messages. Eviction is FIFO over message ids.
type reactionTable struct {
	counts map[string]map[string]int
	order  []string
	cap    int
}

func newReactionTable(capacity int) *reactionTable {
	return &reactionTable{
		counts: make(map[string]map[string]int),
		cap:    capacity,
	}
}

// apply updates the counts for the reaction's message and returns the
// message's current emoji counts.
func (t *reactionTable) apply(ev model.ReactionEvent) map[string]int {
	emoji := normalizeEmoji(ev.Emoji)
	if emoji == "" {
		return nil
	}

	c, ok := t.counts[ev.MessageID]
	if !ok {
		if ev.Removed {
			// Removal for an untracked message carries no signal
			return nil
		}
		if len(t.order) >= t.cap {
			oldest := t.order[0]
			t.order = t.order[1:]
			delete(t.counts, oldest)
		}
		c = make(map[string]int)
		t.counts[ev.MessageID] = c
		t.order = append(t.order, ev.MessageID)
	}

	if ev.Removed {
		if c[emoji] > 0 {
			c[emoji]--
		}
		if c[emoji] == 0 {
			delete(c, emoji)
		}
	} else {
		c[emoji]++
	}
	return c
}
