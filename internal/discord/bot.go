// Package discord wires the Discord gateway to the playback engine: event
// handlers, slash command registration and the per-guild session factory.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"jukebox/internal/bot"
	"jukebox/internal/command"
	"jukebox/internal/command/maintenance"
	"jukebox/internal/command/music"
	"jukebox/internal/config"
	"jukebox/internal/extract"
	"jukebox/internal/metastore"
	"jukebox/internal/paste"
	"jukebox/internal/player"
	"jukebox/internal/resolver"
	"jukebox/internal/storage"
)

// Bot is the running Discord bot.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	meta     *metastore.Store
	registry *player.Registry
	resolver *resolver.Resolver
	uploader *paste.Client
	log      zerolog.Logger

	mu       sync.Mutex
	watchers map[string]*time.Timer // guild id -> empty channel countdown
}

// StartBot runs the bot until ctx is cancelled, then saves every queue and
// disconnects.
func StartBot(ctx context.Context, cfg *config.Config, store *storage.Storage, meta *metastore.Store, log zerolog.Logger) error {
	b := &Bot{
		cfg:      cfg,
		storage:  store,
		meta:     meta,
		registry: player.NewRegistry(log),
		uploader: paste.New(cfg.PasteBaseURL, log),
		log:      log.With().Str("component", "discord").Logger(),
		watchers: make(map[string]*time.Timer),
	}

	b.resolver = resolver.New(resolver.Options{
		Cache: meta,
		Extractor: extract.NewChain(log,
			extract.NewYouTube(log),
			extract.NewYTDLP(cfg.AudioCacheDir, log),
		),
		ExtractRate: cfg.ExtractRate,
		Logger:      log,
	})

	return b.run(ctx)
}

func (b *Bot) run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	b.dg = dg

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates

	b.registerCommandHandlers()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, stopping sessions")
	b.registry.StopAll("the bot is shutting down")
	return nil
}

// registerCommandHandlers wraps every command in the middleware chain and
// adds it to the registry.
func (b *Bot) registerCommandHandlers() {
	command.Register(
		&music.MusicCommand{Bot: b},
		command.WithGuildOnly(),
		command.WithCommandLogger(),
	)
	command.Register(
		&maintenance.MaintenanceCommand{Bot: b},
		command.WithGuildOnly(),
		command.WithOwnerOnly(b.cfg.IsOwner),
		command.WithCommandLogger(),
	)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if b.cfg.InitSlashCommands {
		for _, g := range r.Guilds {
			if err := b.registerSlashCommands(g.ID); err != nil {
				b.log.Error().Err(err).Str("guild", g.ID).Msg("slash command registration failed")
			}
		}
	} else {
		b.log.Info().Msg("slash command registration skipped")
	}
	b.log.Info().Str("user", s.State.User.Username).Msg("bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info().Str("guild", g.Guild.ID).Str("name", g.Guild.Name).Msg("joined guild")
	if b.cfg.InitSlashCommands {
		if err := b.registerSlashCommands(g.Guild.ID); err != nil {
			b.log.Error().Err(err).Str("guild", g.Guild.ID).Msg("slash command registration failed")
		}
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name

	cmd, ok := command.Get(name)
	if !ok {
		b.log.Warn().Str("command", name).Msg("unknown command")
		return
	}

	ctx := &command.SlashContext{
		Session: s,
		Event:   i,
		Storage: b.storage,
		Log:     b.log,
	}
	if err := cmd.Run(ctx); err != nil {
		b.log.Error().Err(err).Str("command", name).Msg("command failed")
		_ = bot.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Something went wrong: %v", err),
		})
	}
}
