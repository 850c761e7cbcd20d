package score

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"dramabot/backend/internal/model"
)

func TestScore_AllCapsOutburst(t *testing.T) {
	// caps ratio > 0.5 over >=10 letters (+2), three exclamations (+1),
	// two mentions (+2), not a reply
	msg := model.MessageEvent{
		Content:  "WHY DID YOU DO THIS!!! @userB @userC",
		Mentions: []string{"userB", "userC"},
	}
	if got := Score(msg); got != 5 {
		t.Fatalf("expected score 5, got %d", got)
	}
}

func TestScore_Bounded(t *testing.T) {
	// Stack every contribution: long, shouted, punctuated, mentions, reply
	msg := model.MessageEvent{
		Content:   strings.Repeat("AAAA!!!???", 30),
		Mentions:  []string{"a", "b", "c", "d", "e"},
		ReplyToID: "parent",
	}
	got := Score(msg)
	if got < 0 || got > MaxScore {
		t.Fatalf("score out of bounds: %d", got)
	}
	if got != MaxScore {
		t.Fatalf("expected maxed-out message to score %d, got %d", MaxScore, got)
	}
}

func TestScore_BotAlwaysZero(t *testing.T) {
	msg := model.MessageEvent{
		Content:  strings.Repeat("SPAM!!! ", 50),
		Mentions: []string{"a", "b", "c"},
		Bot:      true,
	}
	if got := Score(msg); got != 0 {
		t.Fatalf("bot message scored %d, want 0", got)
	}
}

func TestScore_ShortCapsNotShouting(t *testing.T) {
	// Fewer than 10 letters: caps ratio must not contribute
	if got := Score(model.MessageEvent{Content: "WHY ME"}); got != 0 {
		t.Fatalf("short caps message scored %d, want 0", got)
	}
}

func TestScore_LengthTiers(t *testing.T) {
	lower := strings.Repeat("a", 99)
	mid := strings.Repeat("a", 150)
	long := strings.Repeat("a", 250)

	if got := Score(model.MessageEvent{Content: lower}); got != 0 {
		t.Fatalf("99 chars scored %d, want 0", got)
	}
	if got := Score(model.MessageEvent{Content: mid}); got != 1 {
		t.Fatalf("150 chars scored %d, want 1", got)
	}
	if got := Score(model.MessageEvent{Content: long}); got != 3 {
		t.Fatalf("250 chars scored %d, want 3", got)
	}
}

func TestScore_MentionCap(t *testing.T) {
	msg := model.MessageEvent{
		Content:  "hello",
		Mentions: []string{"a", "b", "c", "d", "e", "f"},
	}
	if got := Score(msg); got != 3 {
		t.Fatalf("mention contribution not capped: got %d, want 3", got)
	}
}

func TestObserveMessage_BotExcludedFromBuffers(t *testing.T) {
	sc := NewScorer()
	now := time.Now()
	for i := 0; i < 10; i++ {
		sc.ObserveMessage(model.MessageEvent{
			ID:        fmt.Sprintf("m%d", i),
			ChannelID: "c1",
			AuthorID:  "bot",
			Bot:       true,
			ReplyToID: "parent",
			Timestamp: now,
		})
	}
	if ring := sc.channels["c1"]; ring != nil && ring.len() != 0 {
		t.Fatalf("bot messages leaked into the buffer: %d entries", ring.len())
	}
}

func TestDetectHotThread(t *testing.T) {
	sc := NewScorer()
	now := time.Now()

	var detections []Detection
	for i := 0; i < hotThreadMinReplies; i++ {
		detections = sc.ObserveMessage(model.MessageEvent{
			ID:        fmt.Sprintf("m%d", i),
			ChannelID: "c1",
			AuthorID:  fmt.Sprintf("u%d", i),
			ReplyToID: "parent",
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}

	if len(detections) != 1 {
		t.Fatalf("expected hot thread on reply %d, got %v", hotThreadMinReplies, detections)
	}
	if detections[0].Name != "high-velocity thread" {
		t.Fatalf("unexpected detection: %+v", detections[0])
	}
	if len(detections[0].Participants) != hotThreadMinReplies {
		t.Fatalf("expected %d participants, got %v", hotThreadMinReplies, detections[0].Participants)
	}
}

func TestDetectHotThread_OutsideWindow(t *testing.T) {
	sc := NewScorer()
	now := time.Now()

	var detections []Detection
	for i := 0; i < hotThreadMinReplies; i++ {
		// Spread replies 1 minute apart so the 2 minute window never holds 5
		detections = sc.ObserveMessage(model.MessageEvent{
			ID:        fmt.Sprintf("m%d", i),
			ChannelID: "c1",
			AuthorID:  "u1",
			ReplyToID: "parent",
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		})
	}
	if len(detections) != 0 {
		t.Fatalf("slow thread should not trigger, got %v", detections)
	}
}

func TestDetectSplitVote(t *testing.T) {
	sc := NewScorer()
	react := func(emoji string, times int) []Detection {
		var out []Detection
		for i := 0; i < times; i++ {
			out = sc.ObserveReaction(model.ReactionEvent{
				MessageID: "m1",
				ChannelID: "c1",
				UserID:    fmt.Sprintf("u%s%d", emoji, i),
				Emoji:     emoji,
			})
		}
		return out
	}

	react("👍", 5)
	detections := react("👎", 4) // 4 is within 80% of 5

	found := false
	for _, d := range detections {
		if d.Name == "split vote" {
			found = true
			if d.Type != model.EventVote {
				t.Fatalf("split vote carried type %s", d.Type)
			}
		}
	}
	if !found {
		t.Fatalf("expected split vote detection, got %v", detections)
	}
}

func TestDetectSplitVote_LopsidedVote(t *testing.T) {
	sc := NewScorer()
	for i := 0; i < 10; i++ {
		sc.ObserveReaction(model.ReactionEvent{MessageID: "m1", ChannelID: "c1", Emoji: "👍"})
	}
	var detections []Detection
	for i := 0; i < 4; i++ {
		detections = sc.ObserveReaction(model.ReactionEvent{MessageID: "m1", ChannelID: "c1", Emoji: "👎"})
	}
	// 4 against 10 is not a split
	for _, d := range detections {
		if d.Name == "split vote" {
			t.Fatalf("lopsided vote should not trigger: %+v", d)
		}
	}
}

func TestDetectSarcasmCluster(t *testing.T) {
	sc := NewScorer()
	var detections []Detection
	for _, e := range sarcasmEmojis {
		for i := 0; i <= sarcasmMinPerEmoji; i++ {
			detections = sc.ObserveReaction(model.ReactionEvent{
				MessageID: "m1",
				ChannelID: "c1",
				Emoji:     e,
			})
		}
	}

	found := false
	for _, d := range detections {
		if d.Name == "sarcasm cluster" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected sarcasm cluster once every emoji in the set piled on")
	}
}

func TestDetectVoiceFlood(t *testing.T) {
	sc := NewScorer()
	now := time.Now()

	var detections []Detection
	for i := 0; i < voiceFloodJoins; i++ {
		detections = sc.ObserveVoice(model.VoiceEvent{
			UserID:    fmt.Sprintf("u%d", i),
			ChannelID: "vc1",
			Joined:    true,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}

	found := false
	for _, d := range detections {
		if d.Name == "voice flood" {
			found = true
			if len(d.Participants) != voiceFloodJoins {
				t.Fatalf("expected %d participants, got %v", voiceFloodJoins, d.Participants)
			}
		}
	}
	if !found {
		t.Fatalf("expected voice flood after %d joins, got %v", voiceFloodJoins, detections)
	}
}

func TestDetectRageQuit(t *testing.T) {
	sc := NewScorer()
	now := time.Now()

	for i := 0; i < rageQuitJoins; i++ {
		sc.ObserveVoice(model.VoiceEvent{
			UserID:    fmt.Sprintf("u%d", i),
			ChannelID: "vc1",
			Joined:    true,
			Timestamp: now,
		})
	}
	detections := sc.ObserveVoice(model.VoiceEvent{
		UserID:        "u0",
		PrevChannelID: "vc1",
		Joined:        false,
		Timestamp:     now.Add(30 * time.Second),
	})

	found := false
	for _, d := range detections {
		if d.Name == "rage quit" {
			found = true
			if d.Participants[0] != "u0" {
				t.Fatalf("rage quitter misattributed: %v", d.Participants)
			}
		}
	}
	if !found {
		t.Fatalf("expected rage quit detection, got %v", detections)
	}
}

func TestMessageRingEviction(t *testing.T) {
	ring := newMessageRing(3)
	for i := 0; i < 5; i++ {
		ring.push(messageMeta{ID: fmt.Sprintf("m%d", i)})
	}
	if ring.len() != 3 {
		t.Fatalf("ring grew past capacity: %d", ring.len())
	}
	// Oldest two evicted FIFO
	if ring.at(0).ID != "m2" || ring.at(2).ID != "m4" {
		t.Fatalf("unexpected ring contents: %s..%s", ring.at(0).ID, ring.at(2).ID)
	}
}

func TestReactionRemovalDecrements(t *testing.T) {
	table := newReactionTable(10)
	table.apply(model.ReactionEvent{MessageID: "m1", Emoji: "🔥"})
	table.apply(model.ReactionEvent{MessageID: "m1", Emoji: "🔥"})
	counts := table.apply(model.ReactionEvent{MessageID: "m1", Emoji: "🔥", Removed: true})
	if counts["🔥"] != 1 {
		t.Fatalf("expected count 1 after removal, got %d", counts["🔥"])
	}
}
