package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"jukebox/internal/command"
)

// registerSlashCommands reconciles the guild's slash commands with the
// registry: obsolete ones are deleted, current definitions are upserted.
func (b *Bot) registerSlashCommands(guildID string) error {
	appID := b.dg.State.User.ID
	if appID == "" {
		user, err := b.dg.User("@me")
		if err != nil {
			return fmt.Errorf("fetch self: %w", err)
		}
		appID = user.ID
	}

	wanted := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range command.All() {
		sp, ok := cmd.(command.SlashProvider)
		if !ok {
			continue
		}
		if def := sp.SlashDefinition(); def != nil {
			wanted[def.Name] = def
		}
	}

	existing, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	for _, old := range existing {
		if _, ok := wanted[old.Name]; !ok {
			b.log.Info().Str("guild", guildID).Str("command", old.Name).Msg("deleting obsolete command")
			if err := b.dg.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
				b.log.Error().Err(err).Str("command", old.Name).Msg("command delete failed")
			}
		}
	}

	for name, def := range wanted {
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
			return fmt.Errorf("create command %s: %w", name, err)
		}
	}
	return nil
}
