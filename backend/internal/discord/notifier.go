package discord

import (
	"context"
	"time"

	"dramabot/backend/internal/model"
	"dramabot/backend/pkg/errors"
	"dramabot/backend/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Notifier posts drama announcements as rich embeds. When a notification
// carries vote options, it seeds the message with those reactions so the
// community can pile on immediately.
type Notifier struct {
	session        *discordgo.Session
	defaultChannel string
	logger         *zap.Logger
}

// NewNotifier creates a notifier. defaultChannel receives announcements
// whose notification does not name a channel.
func NewNotifier(session *discordgo.Session, defaultChannel string) *Notifier {
	return &Notifier{
		session:        session,
		defaultChannel: defaultChannel,
		logger:         logger.Named("notifier"),
	}
}

// Notify sends the announcement embed and seeds vote reactions.
func (n *Notifier) Notify(ctx context.Context, note model.Notification) error {
	channelID := note.Channel
	if channelID == "" {
		channelID = n.defaultChannel
	}
	if channelID == "" {
		n.logger.Debug("No announcement channel configured, dropping notification",
			zap.String("title", note.Title),
		)
		return nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       note.Title,
		Description: note.Description,
		Color:       note.Color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		n.logger.Error("Failed to send announcement",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return errors.NewNotifySendFailed(channelID, err)
	}

	for _, emoji := range note.VoteOptions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := n.session.MessageReactionAdd(channelID, msg.ID, emoji); err != nil {
			// A missing reaction doesn't invalidate the announcement
			n.logger.Warn("Failed to seed vote reaction",
				zap.String("emoji", emoji),
				zap.Error(err),
			)
		}
	}
	return nil
}
