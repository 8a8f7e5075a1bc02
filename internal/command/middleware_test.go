package command

import (
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"jukebox/internal/storage"
)

type stubCommand struct {
	runs int
}

func (c *stubCommand) Name() string              { return "music" }
func (c *stubCommand) Description() string       { return "stub" }
func (c *stubCommand) Group() string             { return "music" }
func (c *stubCommand) Category() string          { return "stub" }
func (c *stubCommand) Run(ctx interface{}) error { c.runs++; return nil }

func playInteraction(guildID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: "chan-1",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "user-1", Username: "alice"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: "music",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name: "play",
						Type: discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandInteractionDataOption{
							{
								Name:  "input",
								Type:  discordgo.ApplicationCommandOptionString,
								Value: "rick astley",
							},
						},
					},
				},
			},
		},
	}
}

func TestCommandLoggerRecordsSubcommandAndArguments(t *testing.T) {
	st, err := storage.New(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	stub := &stubCommand{}
	wrapped := Apply(stub, WithCommandLogger())

	err = wrapped.Run(&SlashContext{
		Event:   playInteraction("guild-1"),
		Storage: st,
		Log:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stub.runs != 1 {
		t.Fatalf("inner command ran %d times, want 1", stub.runs)
	}

	history, err := st.FetchCommandHistory("guild-1")
	if err != nil {
		t.Fatalf("FetchCommandHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d records, want 1", len(history))
	}
	rec := history[0]
	if rec.Command != "music" {
		t.Errorf("Command = %q, want %q", rec.Command, "music")
	}
	if rec.Param != "play rick astley" {
		t.Errorf("Param = %q, want %q", rec.Param, "play rick astley")
	}
	if rec.UserID != "user-1" || rec.ChannelID != "chan-1" {
		t.Errorf("record routing fields = %q/%q, want user-1/chan-1", rec.UserID, rec.ChannelID)
	}
}

func TestInteractionParamFlattensOptions(t *testing.T) {
	if got := interactionParam(playInteraction("g")); got != "play rick astley" {
		t.Errorf("interactionParam = %q, want %q", got, "play rick astley")
	}
}
