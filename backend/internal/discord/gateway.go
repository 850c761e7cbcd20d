package discord

import (
	"sync"
	"time"

	"dramabot/backend/internal/bus"
	"dramabot/backend/internal/model"
	"dramabot/backend/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Gateway binds a discordgo session to the event bus. It normalizes raw
// gateway payloads into model events and publishes them; everything
// downstream is platform-agnostic.
type Gateway struct {
	session *discordgo.Session
	bus     *bus.Bus
	logger  *zap.Logger

	// last known voice channel per user, so voiceStateUpdate can carry
	// the previous channel on moves and disconnects. Guarded because
	// discordgo runs handlers concurrently.
	mu          sync.Mutex
	voiceStates map[string]string
}

// NewGateway creates a gateway over an existing session. Call Open to
// register handlers and connect.
func NewGateway(session *discordgo.Session, b *bus.Bus) *Gateway {
	return &Gateway{
		session:     session,
		bus:         b,
		logger:      logger.Named("discord"),
		voiceStates: make(map[string]string),
	}
}

// Open registers the gateway handlers and connects the websocket. The bus
// is marked ready only after the Ready event arrives, so nothing observed
// mid-handshake reaches subscribers.
func (g *Gateway) Open() error {
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onMessageCreate)
	g.session.AddHandler(g.onReactionAdd)
	g.session.AddHandler(g.onReactionRemove)
	g.session.AddHandler(g.onVoiceStateUpdate)

	g.session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	if err := g.session.Open(); err != nil {
		return err
	}
	return nil
}

// Close disconnects the websocket.
func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info("Discord gateway ready",
		zap.String("username", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
	g.bus.MarkReady()
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Partial payloads happen during gateway hiccups; drop them rather
	// than publish half-formed events
	if m.Author == nil || m.ChannelID == "" {
		g.logger.Debug("Dropping partial message payload")
		return
	}

	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		if u == nil || u.ID == m.Author.ID {
			continue
		}
		mentions = append(mentions, u.ID)
	}

	replyTo := ""
	if m.MessageReference != nil {
		replyTo = m.MessageReference.MessageID
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	g.bus.Publish(bus.EventMessage, model.MessageEvent{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		AuthorName: func() string {
			if m.Member != nil && m.Member.Nick != "" {
				return m.Member.Nick
			}
			return m.Author.Username
		}(),
		Content:   m.Content,
		Bot:       m.Author.Bot,
		Mentions:  mentions,
		ReplyToID: replyTo,
		Timestamp: ts,
	})
}

func (g *Gateway) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageID == "" || r.UserID == "" {
		g.logger.Debug("Dropping partial reaction payload")
		return
	}
	g.bus.Publish(bus.EventReactionAdd, model.ReactionEvent{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
		Removed:   false,
		Timestamp: time.Now(),
	})
}

func (g *Gateway) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.MessageID == "" || r.UserID == "" {
		g.logger.Debug("Dropping partial reaction payload")
		return
	}
	g.bus.Publish(bus.EventReactionRemove, model.ReactionEvent{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
		Removed:   true,
		Timestamp: time.Now(),
	})
}

func (g *Gateway) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID == "" {
		g.logger.Debug("Dropping partial voice payload")
		return
	}

	g.mu.Lock()
	prev := g.voiceStates[v.UserID]
	if v.BeforeUpdate != nil {
		prev = v.BeforeUpdate.ChannelID
	}
	if v.ChannelID == "" {
		delete(g.voiceStates, v.UserID)
	} else {
		g.voiceStates[v.UserID] = v.ChannelID
	}
	g.mu.Unlock()

	g.bus.Publish(bus.EventVoiceStateUpdate, model.VoiceEvent{
		UserID:        v.UserID,
		ChannelID:     v.ChannelID,
		PrevChannelID: prev,
		Joined:        v.ChannelID != "",
		Timestamp:     time.Now(),
	})
}
