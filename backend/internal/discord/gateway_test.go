package discord

import (
	"testing"
	"time"

	"dramabot/backend/internal/bus"
	"dramabot/backend/internal/model"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyBus() *bus.Bus {
	b := bus.New()
	b.MarkReady()
	return b
}

func TestGateway_MessageNormalization(t *testing.T) {
	b := readyBus()
	var got []model.MessageEvent
	b.Subscribe(bus.EventMessage, func(payload any) {
		got = append(got, payload.(model.MessageEvent))
	})

	g := NewGateway(nil, b)
	g.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "chan-1",
		Content:   "THIS MEANS WAR!!!",
		Author:    &discordgo.User{ID: "userA", Username: "alice", Bot: false},
		Mentions: []*discordgo.User{
			{ID: "userB", Username: "bob"},
			{ID: "userA", Username: "alice"}, // self-mention is dropped
		},
		MessageReference: &discordgo.MessageReference{MessageID: "m0"},
		Timestamp:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}})

	require.Len(t, got, 1)
	ev := got[0]
	assert.Equal(t, "m1", ev.ID)
	assert.Equal(t, "chan-1", ev.ChannelID)
	assert.Equal(t, "userA", ev.AuthorID)
	assert.Equal(t, "alice", ev.AuthorName)
	assert.Equal(t, []string{"userB"}, ev.Mentions)
	assert.Equal(t, "m0", ev.ReplyToID)
	assert.False(t, ev.Bot)
	assert.Equal(t, 2026, ev.Timestamp.Year())
}

func TestGateway_MessagePrefersNickname(t *testing.T) {
	b := readyBus()
	var got []model.MessageEvent
	b.Subscribe(bus.EventMessage, func(payload any) {
		got = append(got, payload.(model.MessageEvent))
	})

	g := NewGateway(nil, b)
	g.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "chan-1",
		Author:    &discordgo.User{ID: "userA", Username: "alice"},
		Member:    &discordgo.Member{Nick: "Warlord Alice"},
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "Warlord Alice", got[0].AuthorName)
}

func TestGateway_DropsPartialMessage(t *testing.T) {
	b := readyBus()
	published := 0
	b.Subscribe(bus.EventMessage, func(payload any) { published++ })

	g := NewGateway(nil, b)
	g.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "chan-1",
		Author:    nil,
	}})
	g.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:     "m2",
		Author: &discordgo.User{ID: "userA"},
	}})

	assert.Equal(t, 0, published)
}

func TestGateway_BotFlagForwarded(t *testing.T) {
	b := readyBus()
	var got []model.MessageEvent
	b.Subscribe(bus.EventMessage, func(payload any) {
		got = append(got, payload.(model.MessageEvent))
	})

	g := NewGateway(nil, b)
	g.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "chan-1",
		Author:    &discordgo.User{ID: "bot-1", Username: "webhooky", Bot: true},
	}})

	require.Len(t, got, 1)
	assert.True(t, got[0].Bot)
}

func TestGateway_ReactionAddAndRemove(t *testing.T) {
	b := readyBus()
	var got []model.ReactionEvent
	collect := func(payload any) { got = append(got, payload.(model.ReactionEvent)) }
	b.Subscribe(bus.EventReactionAdd, collect)
	b.Subscribe(bus.EventReactionRemove, collect)

	g := NewGateway(nil, b)
	g.onReactionAdd(nil, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		MessageID: "m1",
		ChannelID: "chan-1",
		UserID:    "userB",
		Emoji:     discordgo.Emoji{Name: "🔥"},
	}})
	g.onReactionRemove(nil, &discordgo.MessageReactionRemove{MessageReaction: &discordgo.MessageReaction{
		MessageID: "m1",
		ChannelID: "chan-1",
		UserID:    "userB",
		Emoji:     discordgo.Emoji{Name: "🔥"},
	}})

	require.Len(t, got, 2)
	assert.False(t, got[0].Removed)
	assert.True(t, got[1].Removed)
	assert.Equal(t, "🔥", got[0].Emoji)
	assert.Equal(t, "m1", got[1].MessageID)
}

func TestGateway_VoiceTracksPreviousChannel(t *testing.T) {
	b := readyBus()
	var got []model.VoiceEvent
	b.Subscribe(bus.EventVoiceStateUpdate, func(payload any) {
		got = append(got, payload.(model.VoiceEvent))
	})

	g := NewGateway(nil, b)
	g.onVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		UserID:    "userA",
		ChannelID: "vc-1",
	}})
	g.onVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		UserID:    "userA",
		ChannelID: "vc-2",
	}})
	g.onVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		UserID:    "userA",
		ChannelID: "",
	}})

	require.Len(t, got, 3)
	assert.True(t, got[0].Joined)
	assert.Equal(t, "", got[0].PrevChannelID)
	assert.Equal(t, "vc-1", got[1].PrevChannelID)
	assert.Equal(t, "vc-2", got[1].ChannelID)
	assert.False(t, got[2].Joined)
	assert.Equal(t, "vc-2", got[2].PrevChannelID)
}

func TestGateway_VoiceUsesBeforeUpdateWhenPresent(t *testing.T) {
	b := readyBus()
	var got []model.VoiceEvent
	b.Subscribe(bus.EventVoiceStateUpdate, func(payload any) {
		got = append(got, payload.(model.VoiceEvent))
	})

	g := NewGateway(nil, b)
	g.onVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{UserID: "userA", ChannelID: "vc-9"},
		BeforeUpdate: &discordgo.VoiceState{UserID: "userA", ChannelID: "vc-3"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "vc-3", got[0].PrevChannelID)
}
