// Package bot holds the small surface commands need from the running bot,
// kept separate so command packages never import the discord package.
package bot

import (
	"context"

	"jukebox/internal/player"
)

// VoiceState holds minimal voice channel state for a user.
type VoiceState struct {
	ChannelID string
	UserID    string
}

// Controller is the interface the Discord bot provides to commands.
type Controller interface {
	// GetOrCreateSession returns the guild's playback session, connecting to
	// the voice channel and starting the session loop if needed.
	GetOrCreateSession(guildID, voiceChannelID, textChannelID string) (*player.Session, error)

	// Session returns the guild's active session, if any.
	Session(guildID string) (*player.Session, bool)

	// Registry exposes the session registry for maintenance commands.
	Registry() *player.Registry

	// FindUserVoiceState finds the voice channel a user currently sits in.
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)

	// Resolve turns a link or free-text query into playable tracks.
	Resolve(ctx context.Context, query, requestedBy string) ([]*player.Track, error)

	// IsOwner reports whether the user may run maintenance commands.
	IsOwner(userID string) bool
}
