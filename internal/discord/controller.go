package discord

import (
	"context"
	"fmt"

	"jukebox/internal/bot"
	"jukebox/internal/player"
	"jukebox/internal/storage"
	"jukebox/internal/voice"
)

// GetOrCreateSession returns the guild's playback session, joining the voice
// channel and starting the loop when none exists yet. Guild playback
// defaults (volume, notifications) seed new sessions.
func (b *Bot) GetOrCreateSession(guildID, voiceChannelID, textChannelID string) (*player.Session, error) {
	return b.registry.GetOrCreate(guildID, func() (*player.Session, error) {
		transport, err := voice.Connect(b.dg, guildID, voiceChannelID, b.log)
		if err != nil {
			return nil, err
		}

		settings, err := b.storage.GetGuildSettings(guildID)
		if err != nil {
			b.log.Warn().Err(err).Str("guild", guildID).Msg("failed to load guild settings")
			settings = storage.GuildSettings{DefaultVolume: storage.DefaultVolume, Notifications: true}
		}

		return player.NewSession(player.SessionOptions{
			GuildID:       guildID,
			VoiceChannel:  voiceChannelID,
			TextChannelID: textChannelID,
			Transport:     transport,
			Counter:       b.meta,
			Uploader:      b.uploader,
			Notifier:      &announcer{dg: b.dg, channelID: textChannelID, log: b.log},
			Logger:        b.log,
			IdleTimeout:   b.cfg.IdleTimeout,
			Volume:        settings.DefaultVolume,
			Notifications: settings.Notifications,
		}), nil
	})
}

// Session returns the guild's active session, if any.
func (b *Bot) Session(guildID string) (*player.Session, bool) {
	s := b.registry.Get(guildID)
	return s, s != nil
}

// Registry exposes the session registry for maintenance commands.
func (b *Bot) Registry() *player.Registry {
	return b.registry
}

// FindUserVoiceState finds the voice channel a user currently sits in.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*bot.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("retrieve guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &bot.VoiceState{ChannelID: vs.ChannelID, UserID: vs.UserID}, nil
		}
	}
	return nil, fmt.Errorf("user not in any voice channel")
}

// Resolve turns a link or free-text query into playable tracks.
func (b *Bot) Resolve(ctx context.Context, query, requestedBy string) ([]*player.Track, error) {
	return b.resolver.Resolve(ctx, query, requestedBy)
}

// IsOwner reports whether the user may run maintenance commands.
func (b *Bot) IsOwner(userID string) bool {
	return b.cfg.IsOwner(userID)
}
