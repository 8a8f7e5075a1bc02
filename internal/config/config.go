package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob of the bot. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// OwnerIDs may use the maintenance commands (stopall, stopone, sessions).
	OwnerIDs []string `env:"OWNER_IDS" envSeparator:","`

	StoragePath   string `env:"STORAGE_PATH" envDefault:"data/jukebox.json"`
	SongCachePath string `env:"SONG_CACHE_PATH" envDefault:"data/songs.db"`
	AudioCacheDir string `env:"AUDIO_CACHE_DIR" envDefault:"cache"`

	PasteBaseURL string `env:"PASTE_BASE_URL" envDefault:"https://hastebin.com"`

	// IdleTimeout is how long a session waits on an empty queue before it
	// tears itself down.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"180s"`

	// EmptyChannelGrace is how long the bot stays in a voice channel after
	// the last listener leaves before saving the queue and disconnecting.
	EmptyChannelGrace time.Duration `env:"EMPTY_CHANNEL_GRACE" envDefault:"120s"`

	// ExtractRate throttles live metadata extractions per second across all
	// guilds. Cache hits are not throttled.
	ExtractRate float64 `env:"EXTRACT_RATE" envDefault:"2"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	InitSlashCommands bool `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
}

// New loads the configuration. A missing .env file is not an error.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// IsOwner reports whether the given user may run maintenance commands.
func (c *Config) IsOwner(userID string) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
