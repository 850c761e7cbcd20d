package model

import "time"

// Normalized gateway events. The normalizer translates platform callbacks
// into these shapes; everything downstream is decoupled from discordgo.

// MessageEvent is a normalized message-created callback.
type MessageEvent struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	Bot        bool
	Mentions   []string // mentioned user ids, in message order
	ReplyToID  string   // parent message id when this is a reply
	Timestamp  time.Time
}

// ReactionEvent is a normalized reaction add/remove callback.
type ReactionEvent struct {
	MessageID string
	ChannelID string
	UserID    string
	Emoji     string
	Removed   bool
	Timestamp time.Time
}

// VoiceEvent is a normalized voice-state transition. On a join ChannelID is
// the channel entered; on a leave ChannelID is empty and PrevChannelID
// holds the channel left.
type VoiceEvent struct {
	UserID        string
	ChannelID     string
	PrevChannelID string
	Joined        bool
	Timestamp     time.Time
}
