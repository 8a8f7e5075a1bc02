package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"jukebox/internal/bot"
	"jukebox/internal/player"
	"jukebox/pkg/util"
)

// announcer posts session events into the guild's origin text channel. It
// implements player.Notifier; delivery failures are logged and dropped.
type announcer struct {
	dg        *discordgo.Session
	channelID string
	log       zerolog.Logger
}

func (a *announcer) send(embed *discordgo.MessageEmbed) {
	if err := bot.MessageEmbed(a.dg, a.channelID, embed); err != nil {
		a.log.Warn().Err(err).Str("channel", a.channelID).Msg("announcement failed")
	}
}

func (a *announcer) NowPlaying(t *player.Track) {
	desc := fmt.Sprintf("[%s](%s)", t.Title, t.ShareURL())
	if t.Duration > 0 {
		desc += " `" + util.FormatDuration(t.Duration) + "`"
	}
	if t.RequestedBy != "" {
		desc += "\nrequested by " + t.RequestedBy
	}
	embed := &discordgo.MessageEmbed{Title: "🎶 Now Playing", Description: desc}
	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	a.send(embed)
}

func (a *announcer) QueueSaved(url string, tracks int) {
	a.send(&discordgo.MessageEmbed{
		Title:       "💾 Queue Saved",
		Description: fmt.Sprintf("%d track(s) saved:\n%s", tracks, url),
	})
}

func (a *announcer) SaveFailed(err error) {
	a.send(&discordgo.MessageEmbed{
		Title:       "💾 Save Failed",
		Description: fmt.Sprintf("Could not save the queue: %v", err),
	})
}

func (a *announcer) ReplayHint(t *player.Track) {
	a.send(&discordgo.MessageEmbed{
		Title:       "🔁 Replay",
		Description: fmt.Sprintf("Playback was interrupted. Start again with:\n%s", t.ShareURL()),
	})
}

func (a *announcer) SessionEnded(reason string) {
	a.send(&discordgo.MessageEmbed{
		Description: "👋 " + reason,
	})
}
