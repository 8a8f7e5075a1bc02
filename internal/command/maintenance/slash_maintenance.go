// Package maintenance implements the owner-only /maintenance command for
// inspecting and stopping playback sessions across guilds.
package maintenance

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

type MaintenanceCommand struct {
	Bot bot.Controller
}

func (c *MaintenanceCommand) Name() string        { return "maintenance" }
func (c *MaintenanceCommand) Description() string { return "Owner maintenance tools" }
func (c *MaintenanceCommand) Group() string       { return "maintenance" }
func (c *MaintenanceCommand) Category() string    { return "🔧 Maintenance" }

func (c *MaintenanceCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "sessions",
				Description: "List active playback sessions",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stopall",
				Description: "Save queues and stop every session",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stopone",
				Description: "Save the queue and stop one guild's session",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "guild",
						Description: "Guild id of the session to stop",
						Required:    true,
					},
				},
			},
		},
	}
}

func (c *MaintenanceCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	s := slash.Session
	e := slash.Event

	if len(e.ApplicationCommandData().Options) == 0 {
		return bot.RespondEphemeral(s, e, "Missing subcommand.")
	}
	sub := e.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "sessions":
		return c.runSessions(slash)
	case "stopall":
		return c.runStopAll(slash)
	case "stopone":
		return c.runStopOne(slash, sub)
	default:
		return bot.RespondEphemeral(s, e, fmt.Sprintf("Unknown subcommand: %s", sub.Name))
	}
}

func (c *MaintenanceCommand) runSessions(slash *command.SlashContext) error {
	reg := c.Bot.Registry()
	if reg.Len() == 0 {
		return bot.RespondEphemeral(slash.Session, slash.Event, "No active sessions.")
	}

	var b strings.Builder
	reg.ForEach(func(sess *player.Session) {
		track, elapsed, paused := sess.Now()
		state := "idle"
		switch {
		case track != nil && paused:
			state = fmt.Sprintf("paused %s into **%s**", util.FormatDuration(elapsed), track.Title)
		case track != nil:
			state = fmt.Sprintf("%s into **%s**", util.FormatDuration(elapsed), track.Title)
		}
		fmt.Fprintf(&b, "`%s` — %s, %d queued\n", sess.GuildID, state, sess.Queue().Len())
	})

	return bot.RespondEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔧 Sessions (%d)", reg.Len()),
		Description: b.String(),
	})
}

func (c *MaintenanceCommand) runStopAll(slash *command.SlashContext) error {
	n := c.Bot.Registry().Len()
	if n == 0 {
		return bot.RespondEphemeral(slash.Session, slash.Event, "No active sessions.")
	}
	// StopAll blocks on queue uploads and voice teardown across guilds.
	if err := bot.Defer(slash.Session, slash.Event); err != nil {
		return fmt.Errorf("defer response: %w", err)
	}
	c.Bot.Registry().StopAll("the bot is going down for maintenance")
	return bot.FollowupEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("⏹️ Stopped %d sessions.", n),
	})
}

func (c *MaintenanceCommand) runStopOne(slash *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	var guildID string
	for _, opt := range sub.Options {
		if opt.Name == "guild" {
			guildID = opt.StringValue()
		}
	}

	sess := c.Bot.Registry().Get(guildID)
	if sess == nil {
		return bot.RespondEphemeral(slash.Session, slash.Event, fmt.Sprintf("No session for guild `%s`.", guildID))
	}

	if err := bot.Defer(slash.Session, slash.Event); err != nil {
		return fmt.Errorf("defer response: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sess.SaveAndDisconnect(ctx, "stopped by the bot owner")

	return bot.FollowupEmbedEphemeral(slash.Session, slash.Event, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("⏹️ Stopped session for guild `%s`.", guildID),
	})
}
