package discord

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"jukebox/internal/player"
)

// onVoiceStateUpdate is the empty-channel watchdog. When the last listener
// leaves the session's voice channel, playback pauses and a grace countdown
// starts; if nobody returns in time the queue is saved and the session torn
// down. A returning listener cancels the countdown and resumes playback.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID == s.State.User.ID {
		return
	}
	sess := b.registry.Get(v.GuildID)
	if sess == nil {
		return
	}

	if b.countListeners(v.GuildID, sess.VoiceChannel) == 0 {
		b.startEmptyCountdown(sess)
	} else {
		b.cancelEmptyCountdown(sess)
	}
}

// countListeners counts non-bot users in the channel.
func (b *Bot) countListeners(guildID, channelID string) int {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return 0
	}
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID && vs.UserID != b.dg.State.User.ID {
			n++
		}
	}
	return n
}

func (b *Bot) startEmptyCountdown(sess *player.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, running := b.watchers[sess.GuildID]; running {
		return
	}

	if err := sess.Pause(); err != nil && !errors.Is(err, player.ErrNoTrackPlaying) && !errors.Is(err, player.ErrAlreadyPaused) {
		b.log.Warn().Err(err).Str("guild", sess.GuildID).Msg("pause on empty channel failed")
	}
	b.log.Info().Str("guild", sess.GuildID).Dur("grace", b.cfg.EmptyChannelGrace).Msg("voice channel empty, starting countdown")

	guildID := sess.GuildID
	b.watchers[guildID] = time.AfterFunc(b.cfg.EmptyChannelGrace, func() {
		b.mu.Lock()
		delete(b.watchers, guildID)
		b.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sess.SaveAndDisconnect(ctx, "everyone left the voice channel")
	})
}

func (b *Bot) cancelEmptyCountdown(sess *player.Session) {
	b.mu.Lock()
	timer, running := b.watchers[sess.GuildID]
	if running {
		timer.Stop()
		delete(b.watchers, sess.GuildID)
	}
	b.mu.Unlock()
	if !running {
		return
	}

	if err := sess.Resume(); err != nil && !errors.Is(err, player.ErrNoTrackPlaying) && !errors.Is(err, player.ErrNotPaused) {
		b.log.Warn().Err(err).Str("guild", sess.GuildID).Msg("resume after empty channel failed")
	}
	b.log.Info().Str("guild", sess.GuildID).Msg("listener returned, countdown cancelled")
}
