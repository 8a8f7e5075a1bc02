package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"jukebox/internal/bot"
	"jukebox/internal/storage"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx interface{}) error
}

func (w *wrappedCommand) Run(ctx interface{}) error {
	if w.wrap != nil {
		return w.wrap(ctx)
	}
	return w.Command.Run(ctx)
}

func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// Apply wraps cmd in the given middlewares, innermost first.
func Apply(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

// WithGuildOnly drops interactions that arrive outside a guild (DMs).
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				if v, ok := ctx.(*SlashContext); ok && v.Event.GuildID == "" {
					return bot.RespondEphemeral(v.Session, v.Event, "This command only works in a server.")
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithOwnerOnly restricts a command to the configured bot owners.
func WithOwnerOnly(isOwner func(userID string) bool) Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				if v, ok := ctx.(*SlashContext); ok {
					if v.Event.Member == nil || !isOwner(v.Event.Member.User.ID) {
						return bot.RespondEphemeral(v.Session, v.Event, "Owner only.")
					}
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithCommandLogger records each invocation in the guild's command history
// and the structured log.
func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				err := cmd.Run(ctx)

				if v, ok := ctx.(*SlashContext); ok && v.Event.Member != nil {
					user := v.Event.Member.User
					param := interactionParam(v.Event)
					v.Log.Info().
						Str("command", cmd.Name()).
						Str("param", param).
						Str("guild", v.Event.GuildID).
						Str("user", user.Username).
						Msg("command executed")
					if v.Storage != nil {
						rec := storage.CommandHistoryRecord{
							ChannelID: v.Event.ChannelID,
							UserID:    user.ID,
							Username:  user.Username,
							Command:   cmd.Name(),
							Param:     param,
							Datetime:  time.Now(),
						}
						if e := v.Storage.AppendCommandToHistory(v.Event.GuildID, rec); e != nil {
							v.Log.Warn().Err(e).Str("command", cmd.Name()).Msg("failed to record command history")
						}
					}
				}
				return err
			},
		}
	}
}

// interactionParam flattens the invocation's subcommand and arguments into
// one history line, e.g. "play rick astley" or "volume 50".
func interactionParam(e *discordgo.InteractionCreate) string {
	if e.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	var parts []string
	for _, opt := range e.ApplicationCommandData().Options {
		parts = append(parts, optionParts(opt)...)
	}
	return strings.Join(parts, " ")
}

func optionParts(opt *discordgo.ApplicationCommandInteractionDataOption) []string {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup,
		discordgo.ApplicationCommandOptionSubCommand:
		parts := []string{opt.Name}
		for _, sub := range opt.Options {
			parts = append(parts, optionParts(sub)...)
		}
		return parts
	default:
		return []string{fmt.Sprint(opt.Value)}
	}
}
