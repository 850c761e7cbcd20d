package model

import "context"

// Notification is the single outbound call shape the core knows about: a
// structured announcement posted to a named logical channel, optionally
// carrying reaction-vote options. Rendering is the notifier's concern.
type Notification struct {
	Channel     string // logical channel name; empty = default drama channel
	Title       string
	Description string
	Color       int
	VoteOptions []string // reaction emojis seeding a vote, may be empty
}

// Notifier posts notifications back into the chat. Implementations live at
// the edge (internal/discord); failures are the caller's to swallow.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
