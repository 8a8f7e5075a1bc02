package music

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"jukebox/internal/bot"
	"jukebox/internal/command"
	"jukebox/pkg/util"
)

func (c *MusicCommand) runPlay(slash *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	s := slash.Session
	e := slash.Event

	var input string
	for _, opt := range sub.Options {
		if opt.Name == "input" {
			input = opt.StringValue()
		}
	}
	if input == "" {
		return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Error",
			Description: "Input is required.",
		})
	}

	// Extraction and voice join easily exceed the interaction deadline.
	if err := bot.Defer(s, e); err != nil {
		return fmt.Errorf("defer response: %w", err)
	}

	member := e.Member
	voiceState, err := c.Bot.FindUserVoiceState(e.GuildID, member.User.ID)
	if err != nil {
		return bot.FollowupEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Voice Error",
			Description: "Join a voice channel first.",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	tracks, err := c.Bot.Resolve(ctx, input, member.User.Username)
	if err != nil || len(tracks) == 0 {
		return bot.FollowupEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Error",
			Description: friendly(err),
		})
	}

	sess, err := c.Bot.GetOrCreateSession(e.GuildID, voiceState.ChannelID, e.ChannelID)
	if err != nil {
		return bot.FollowupEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Voice Error",
			Description: friendly(err),
		})
	}
	sess.Queue().Push(tracks...)

	first := tracks[0]
	desc := fmt.Sprintf("[%s](%s)", first.Title, first.ShareURL())
	if len(tracks) > 1 {
		desc = fmt.Sprintf("%s\nand %d more", desc, len(tracks)-1)
	}
	return bot.FollowupEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "🎶 Added to Queue",
		Description: desc,
	})
}

func (c *MusicCommand) runPause(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if err := sess.Pause(); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, "⏸️ Paused.")
}

func (c *MusicCommand) runResume(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if err := sess.Resume(); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, "▶️ Resumed.")
}

func (c *MusicCommand) runSkip(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if err := sess.Skip(); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, "⏭️ Skipped.")
}

func (c *MusicCommand) runSkipTo(slash *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	position := 0
	for _, opt := range sub.Options {
		if opt.Name == "position" {
			position = int(opt.IntValue())
		}
	}
	if err := sess.SkipTo(position); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("⏭️ Jumped to queue position %d.", position))
}

func (c *MusicCommand) runSeek(slash *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	var raw string
	for _, opt := range sub.Options {
		if opt.Name == "position" {
			raw = opt.StringValue()
		}
	}
	pos, err := util.ParseDuration(raw)
	if err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, "Use a position like `90`, `1:30` or `1:02:03`.")
	}
	if err := sess.Seek(pos); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("⏩ Jumped to %s.", util.FormatDuration(pos)))
}

func (c *MusicCommand) runStartOver(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if err := sess.StartOver(); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, "⏪ Starting over.")
}

func (c *MusicCommand) runLoop(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if sess.SetLoopSingle() {
		return bot.Respond(slash.Session, slash.Event, "🔂 Looping the current track.")
	}
	return bot.Respond(slash.Session, slash.Event, "🔂 Track loop off.")
}

func (c *MusicCommand) runLoopQueue(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if sess.SetLoopQueue() {
		return bot.Respond(slash.Session, slash.Event, "🔁 Looping the queue.")
	}
	return bot.Respond(slash.Session, slash.Event, "🔁 Queue loop off.")
}

func (c *MusicCommand) runVolume(slash *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}

	level := -1
	for _, opt := range sub.Options {
		if opt.Name == "level" {
			level = int(opt.IntValue())
		}
	}
	if level < 0 {
		return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("🔊 Volume is %d%%.", sess.Volume()))
	}

	if err := sess.SetVolume(level); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	if slash.Storage != nil {
		if err := slash.Storage.SetDefaultVolume(slash.Event.GuildID, level); err != nil {
			slash.Log.Warn().Err(err).Msg("failed to persist volume")
		}
	}
	return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("🔊 Volume set to %d%%.", level))
}

func (c *MusicCommand) runNotify(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	enabled := sess.SetNotifications()
	if slash.Storage != nil {
		if err := slash.Storage.SetNotifications(slash.Event.GuildID, enabled); err != nil {
			slash.Log.Warn().Err(err).Msg("failed to persist notification setting")
		}
	}
	if enabled {
		return bot.Respond(slash.Session, slash.Event, "🔔 Now-playing announcements on.")
	}
	return bot.Respond(slash.Session, slash.Event, "🔕 Now-playing announcements off.")
}

func (c *MusicCommand) runStop(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	if err := sess.Stop(); err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, "⏹️ Playback stopped, queue cleared.")
}

func (c *MusicCommand) runDisconnect(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	// Disconnect blocks until the loop exits; answer the interaction first.
	if err := bot.Respond(slash.Session, slash.Event, "👋 Leaving the voice channel."); err != nil {
		return err
	}
	go sess.Disconnect()
	return nil
}
