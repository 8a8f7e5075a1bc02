// Package command defines the command contract, the registry and the
// middleware chain the bot wraps every command with.
package command

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"jukebox/internal/storage"
)

type Command interface {
	Name() string
	Description() string
	Group() string
	Category() string
	Run(ctx interface{}) error
}

// SlashProvider marks a command that registers a slash definition with Discord.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashContext is what the runtime hands a command on a slash interaction.
type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
	Log     zerolog.Logger
}
