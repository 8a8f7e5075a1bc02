package music

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"jukebox/internal/bot"
	"jukebox/internal/command"
	"jukebox/internal/player"
	"jukebox/pkg/util"
)

const queuePreviewLen = 10

func trackLine(t *player.Track) string {
	line := fmt.Sprintf("[%s](%s)", t.Title, t.ShareURL())
	if t.Duration > 0 {
		line += " `" + util.FormatDuration(t.Duration) + "`"
	}
	return line
}

func (c *MusicCommand) runNowPlaying(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}

	track, elapsed, paused := sess.Now()
	if track == nil {
		return bot.RespondEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
			Description: "Nothing is playing right now.",
		})
	}

	title := "🎶 Now Playing"
	if paused {
		title = "⏸️ Paused"
	}
	desc := trackLine(track)
	desc += fmt.Sprintf("\n`%s / %s`", util.FormatDuration(elapsed), util.FormatDuration(track.Duration))
	if track.Uploader != "" {
		desc += "\nby " + track.Uploader
	}
	if track.RequestedBy != "" {
		desc += "\nrequested by " + track.RequestedBy
	}

	embed := &discordgo.MessageEmbed{Title: title, Description: desc}
	if track.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail}
	}
	return bot.RespondEmbed(slash.Session, slash.Event, embed)
}

func (c *MusicCommand) runNext(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	next := sess.Queue().Front()
	if next == nil {
		return bot.RespondEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
			Description: "The queue is empty.",
		})
	}
	return bot.RespondEmbed(slash.Session, slash.Event, &discordgo.MessageEmbed{
		Title:       "⏭️ Up Next",
		Description: trackLine(next),
	})
}

func (c *MusicCommand) runQueue(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}

	var b strings.Builder
	if track, elapsed, _ := sess.Now(); track != nil {
		fmt.Fprintf(&b, "**Now:** %s `%s / %s`\n\n", trackLine(track),
			util.FormatDuration(elapsed), util.FormatDuration(track.Duration))
	}

	total := sess.Queue().Len()
	for i, t := range sess.Queue().Upcoming(queuePreviewLen) {
		fmt.Fprintf(&b, "`%d.` %s\n", i+1, trackLine(t))
	}
	if total > queuePreviewLen {
		fmt.Fprintf(&b, "…and %d more\n", total-queuePreviewLen)
	}
	if b.Len() == 0 {
		b.WriteString("The queue is empty.")
	}

	return bot.RespondEmbed(slash.Session, slash.Event, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎵 Queue (%d)", total),
		Description: b.String(),
	})
}

func (c *MusicCommand) runShuffle(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	sess.Queue().Shuffle()
	return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("🔀 Shuffled %d tracks.", sess.Queue().Len()))
}

func (c *MusicCommand) runSave(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}

	// The upload is an outbound HTTP call, defer past the interaction limit.
	if err := bot.Defer(slash.Session, slash.Event); err != nil {
		return fmt.Errorf("defer response: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, saved, err := sess.SaveQueue(ctx)
	if err != nil {
		return bot.FollowupEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
			Title:       "💾 Save Failed",
			Description: friendly(err),
		})
	}
	return bot.FollowupEmbed(slash.Session, slash.Event, &discordgo.MessageEmbed{
		Title:       "💾 Queue Saved",
		Description: fmt.Sprintf("The link lists %d track URLs:\n%s", saved, url),
	})
}

func (c *MusicCommand) runRemove(slash *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
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
	removed, err := sess.Queue().RemoveAt(position)
	if err != nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, friendly(err))
	}
	return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("🗑️ Removed **%s**.", removed.Title))
}

func (c *MusicCommand) runClear(slash *command.SlashContext) error {
	sess, ok := c.session(slash)
	if !ok {
		return nil
	}
	n := sess.Queue().Len()
	sess.Queue().Clear()
	return bot.Respond(slash.Session, slash.Event, fmt.Sprintf("🧹 Cleared %d tracks.", n))
}
