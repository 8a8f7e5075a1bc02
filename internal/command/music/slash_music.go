// Package music implements the /music slash command and its playback
// subcommands.
package music

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"jukebox/internal/bot"
	"jukebox/internal/command"
	"jukebox/internal/player"
	"jukebox/internal/resolver"
)

type MusicCommand struct {
	Bot bot.Controller
}

func (c *MusicCommand) Name() string        { return "music" }
func (c *MusicCommand) Description() string { return "Control music playback" }
func (c *MusicCommand) Group() string       { return "music" }
func (c *MusicCommand) Category() string    { return "🎵 Music" }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Queue a track, playlist or search query",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "input",
						Description: "Link or search query",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "pause",
				Description: "Pause playback",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "resume",
				Description: "Resume paused playback",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip to the next track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skipto",
				Description: "Jump to a queue position",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "position",
						Description: "Queue position to jump to (1 = next)",
						Required:    true,
						MinValue:    float64Ptr(1),
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "seek",
				Description: "Jump to a position in the current track",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "position",
						Description: "Position like 90, 1:30 or 1:02:03",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "startover",
				Description: "Restart the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "loop",
				Description: "Toggle looping the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "loopqueue",
				Description: "Toggle looping the whole queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "shuffle",
				Description: "Shuffle the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "volume",
				Description: "Show or set the playback volume",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "level",
						Description: "Volume percent, 0-100",
						MinValue:    float64Ptr(0),
						MaxValue:    100,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "notify",
				Description: "Toggle now-playing announcements",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "nowplaying",
				Description: "Show the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "next",
				Description: "Show the next queued track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "save",
				Description: "Save the queue to a share link",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a track from the queue",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "position",
						Description: "Queue position to remove (1 = next)",
						Required:    true,
						MinValue:    float64Ptr(1),
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Clear the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop playback and clear the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "disconnect",
				Description: "Stop playback and leave the voice channel",
			},
		},
	}
}

func (c *MusicCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	s := slash.Session
	e := slash.Event

	if len(e.ApplicationCommandData().Options) == 0 {
		return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "Missing subcommand.",
		})
	}

	sub := e.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "play":
		return c.runPlay(slash, sub)
	case "pause":
		return c.runPause(slash)
	case "resume":
		return c.runResume(slash)
	case "skip":
		return c.runSkip(slash)
	case "skipto":
		return c.runSkipTo(slash, sub)
	case "seek":
		return c.runSeek(slash, sub)
	case "startover":
		return c.runStartOver(slash)
	case "loop":
		return c.runLoop(slash)
	case "loopqueue":
		return c.runLoopQueue(slash)
	case "shuffle":
		return c.runShuffle(slash)
	case "volume":
		return c.runVolume(slash, sub)
	case "notify":
		return c.runNotify(slash)
	case "nowplaying":
		return c.runNowPlaying(slash)
	case "next":
		return c.runNext(slash)
	case "queue":
		return c.runQueue(slash)
	case "save":
		return c.runSave(slash)
	case "remove":
		return c.runRemove(slash, sub)
	case "clear":
		return c.runClear(slash)
	case "stop":
		return c.runStop(slash)
	case "disconnect":
		return c.runDisconnect(slash)
	default:
		return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Unknown subcommand: %s", sub.Name),
		})
	}
}

// session fetches the guild's active session or replies with a hint.
func (c *MusicCommand) session(slash *command.SlashContext) (*player.Session, bool) {
	sess, ok := c.Bot.Session(slash.Event.GuildID)
	if !ok {
		_ = bot.RespondEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
			Description: "Nothing is playing. Start with `/music play`.",
		})
		return nil, false
	}
	return sess, true
}

// friendly maps playback errors to messages worth showing a user.
func friendly(err error) string {
	switch {
	case errors.Is(err, player.ErrNoTrackPlaying):
		return "Nothing is playing right now."
	case errors.Is(err, player.ErrAlreadyPaused):
		return "Playback is already paused."
	case errors.Is(err, player.ErrNotPaused):
		return "Playback is not paused."
	case errors.Is(err, player.ErrOutOfRange):
		return "That queue position does not exist."
	case errors.Is(err, player.ErrBadSeek):
		return "That position is outside the track."
	case errors.Is(err, player.ErrBadVolume):
		return "Volume must be between 0 and 100."
	case errors.Is(err, player.ErrNothingToSave):
		return "The queue is empty, nothing to save."
	case errors.Is(err, resolver.ErrNoResults):
		return "No playable tracks found for that input."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}

func float64Ptr(v float64) *float64 { return &v }
