package score

import (
	"strings"
	"sync"
	"unicode"

	"dramabot/backend/internal/model"
	"dramabot/backend/pkg/logger"

	"go.uber.org/zap"
)

// MaxScore bounds the intensity of any single message.
const MaxScore = 10

// Scorer computes message intensity and maintains the rolling buffers the
// pattern detectors read. Detectors never mutate world state; they only
// hand detections back to the dispatcher.
type Scorer struct {
	mu        sync.Mutex
	channels  map[string]*messageRing
	reactions *reactionTable
	voice     *voiceRing
	logger    *zap.Logger
}

// NewScorer creates a scorer with empty buffers
func NewScorer() *Scorer {
	return &Scorer{
		channels:  make(map[string]*messageRing),
		reactions: newReactionTable(reactionTableCap),
		voice:     newVoiceRing(voiceRingCap),
		logger:    logger.Named("scorer"),
	}
}

// Score computes the bounded intensity of a single message. Deterministic;
// bot-authored messages always score zero.
func Score(msg model.MessageEvent) int {
	if msg.Bot {
		return 0
	}

	s := 0

	// Tiered length contribution
	n := len(msg.Content)
	if n >= 100 {
		s++
	}
	if n >= 200 {
		s += 2
	}

	// Shouting: uppercase ratio over alphabetic characters, only when
	// there is enough signal to judge
	letters, uppers := 0, 0
	exclaims, questions := 0, 0
	for _, r := range msg.Content {
		switch {
		case unicode.IsLetter(r):
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		case r == '!':
			exclaims++
		case r == '?':
			questions++
		}
	}
	if letters >= 10 && float64(uppers)/float64(letters) > 0.5 {
		s += 2
	}
	if exclaims > 2 {
		s++
	}
	if questions > 2 {
		s++
	}

	// Mentions contribute, capped
	if m := len(msg.Mentions); m > 0 {
		if m > 3 {
			m = 3
		}
		s += m
	}

	// Replying into an existing thread
	if msg.ReplyToID != "" {
		s++
	}

	if s > MaxScore {
		s = MaxScore
	}
	return s
}

// ObserveMessage buffers the message and runs the message-pattern
// detectors. Bot messages are excluded from all buffers.
func (sc *Scorer) ObserveMessage(msg model.MessageEvent) []Detection {
	if msg.Bot {
		return nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	ring, ok := sc.channels[msg.ChannelID]
	if !ok {
		ring = newMessageRing(channelRingCap)
		sc.channels[msg.ChannelID] = ring
	}
	ring.push(messageMeta{
		ID:        msg.ID,
		AuthorID:  msg.AuthorID,
		ReplyToID: msg.ReplyToID,
		Timestamp: msg.Timestamp,
	})

	var out []Detection
	if d, ok := detectHotThread(ring, msg); ok {
		sc.logger.Debug("hot thread detected",
			zap.String("channel_id", msg.ChannelID),
			zap.String("parent_id", msg.ReplyToID),
		)
		out = append(out, d)
	}
	return out
}

// ObserveReaction updates per-message reaction counts and runs the
// reaction-pattern detectors.
func (sc *Scorer) ObserveReaction(ev model.ReactionEvent) []Detection {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	counts := sc.reactions.apply(ev)
	if counts == nil {
		return nil
	}

	var out []Detection
	if d, ok := detectSplitVote(ev, counts); ok {
		out = append(out, d)
	}
	if d, ok := detectSarcasmCluster(ev, counts); ok {
		out = append(out, d)
	}
	return out
}

// ObserveVoice buffers the voice transition and runs the voice-pattern
// detectors.
func (sc *Scorer) ObserveVoice(ev model.VoiceEvent) []Detection {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.voice.push(ev)

	var out []Detection
	if d, ok := detectVoiceFlood(sc.voice, ev); ok {
		out = append(out, d)
	}
	if d, ok := detectRageQuit(sc.voice, ev); ok {
		out = append(out, d)
	}
	return out
}

// normalizeEmoji reduces a custom emoji's name:id wire form to the bare
// name so counts for the same emoji aggregate across payload shapes.
// Unicode emoji pass through untouched.
func normalizeEmoji(emoji string) string {
	if i := strings.IndexRune(emoji, ':'); i > 0 {
		return emoji[:i]
	}
	return emoji
}
