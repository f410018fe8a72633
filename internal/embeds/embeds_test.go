package embeds

import (
	"strings"
	"testing"
	"time"

	"modmail-bridge/internal/backend"

	"github.com/bwmarrin/discordgo"
)

func TestTag(t *testing.T) {
	if got := Tag(&discordgo.User{Username: "alice", Discriminator: "0"}); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
	if got := Tag(&discordgo.User{Username: "bob", Discriminator: "1234"}); got != "bob#1234" {
		t.Fatalf("expected bob#1234, got %q", got)
	}
}

func TestChannelName(t *testing.T) {
	user := &discordgo.User{ID: "42", Username: "Some User!", Discriminator: "0007"}
	if got := ChannelName(user, false); got != "some-user-0007" {
		t.Fatalf("unexpected channel name %q", got)
	}
	random := ChannelName(user, true)
	if len(random) != 16 || strings.Contains(random, "some") {
		t.Fatalf("expected random 16 char name, got %q", random)
	}
	if other := ChannelName(user, true); other == random {
		t.Fatalf("expected distinct random names")
	}
	if got := ChannelName(&discordgo.User{ID: "42", Username: "!!!", Discriminator: "0"}, false); got != "modmail-42" {
		t.Fatalf("expected fallback name, got %q", got)
	}
}

func TestQuickReplyButtonsOnlyQuickAccess(t *testing.T) {
	var macros []backend.Macro
	for i := 0; i < 7; i++ {
		macros = append(macros, backend.Macro{Name: string(rune('a' + i)), QuickAccess: true})
	}
	macros = append(macros, backend.Macro{Name: "hidden", QuickAccess: false})

	rows := QuickReplyButtons(macros)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0].(discordgo.ActionsRow)
	if len(first.Components) != 5 {
		t.Fatalf("expected 5 buttons in first row, got %d", len(first.Components))
	}
	button := first.Components[0].(discordgo.Button)
	if button.CustomID != "quick_reply:a" {
		t.Fatalf("unexpected custom id %q", button.CustomID)
	}
	second := rows[1].(discordgo.ActionsRow)
	if len(second.Components) != 2 {
		t.Fatalf("expected 2 buttons in second row, got %d", len(second.Components))
	}
}

func TestParseCustomID(t *testing.T) {
	action, arg := ParseCustomID("quick_reply:welcome: hi")
	if action != ActionQuickReply || arg != "welcome: hi" {
		t.Fatalf("unexpected parse %q %q", action, arg)
	}
}

func TestModalValue(t *testing.T) {
	components := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: FieldSubject, Value: "Appeal"},
		}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: FieldUrgency, Value: "high"},
		}},
	}
	if got := ModalValue(components, FieldUrgency); got != "high" {
		t.Fatalf("expected high, got %q", got)
	}
	if got := ModalValue(components, FieldDescription); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestAttachmentsSplitsImages(t *testing.T) {
	embed := Attachments(&discordgo.MessageEmbed{}, []backend.Attachment{
		{URL: "https://cdn/a.png", Filename: "a.png", ContentType: "image/png"},
		{URL: "https://cdn/b.png", Filename: "b.png", ContentType: "image/png"},
		{URL: "https://cdn/c.txt", Filename: "c.txt", ContentType: "text/plain"},
	})
	if embed.Image == nil || embed.Image.URL != "https://cdn/a.png" {
		t.Fatalf("expected first image inline")
	}
	if len(embed.Fields) != 1 || !strings.Contains(embed.Fields[0].Value, "c.txt") {
		t.Fatalf("expected attachments field with c.txt, got %+v", embed.Fields)
	}
}

func TestLinksAndFlaggedWords(t *testing.T) {
	content := "free nitro at https://disc0rd.gift/claim scam"
	embed := UserMessage(&discordgo.User{Username: "u"}, content)
	Links(embed, content)
	FlaggedWords(embed, content, []string{"scam"})
	if len(embed.Fields) != 2 {
		t.Fatalf("expected links and flagged fields, got %d", len(embed.Fields))
	}
	if embed.Fields[0].Value != "disc0rd.gift" {
		t.Fatalf("unexpected links value %q", embed.Fields[0].Value)
	}
	if embed.Color != ColorWarning {
		t.Fatalf("expected warning color")
	}
}

func TestServerSelect(t *testing.T) {
	msg := ServerSelect("tok", true, []GuildOption{{ID: "g1", Name: "One"}, {ID: "g2"}})
	if !strings.Contains(msg.Content, "Continue Existing Conversation") {
		t.Fatalf("unexpected content %q", msg.Content)
	}
	row := msg.Components[0].(discordgo.ActionsRow)
	menu := row.Components[0].(discordgo.SelectMenu)
	if menu.CustomID != "server_select:tok" {
		t.Fatalf("unexpected custom id %q", menu.CustomID)
	}
	if len(menu.Options) != 2 || menu.Options[1].Label != "Server g2" {
		t.Fatalf("unexpected options %+v", menu.Options)
	}
}

func TestConfigSummary(t *testing.T) {
	summary := ConfigSummary(backend.GuildConfig{ModmailCategoryID: "c1", ModeratorRoleIDs: []string{"r1"}, AutoCloseHours: 24})
	for _, want := range []string{"<#c1>", "<@&r1>", "**Auto Close Hours:** 24", "**Log Channel:** Not set"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("expected %q in summary:\n%s", want, summary)
		}
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	value := strings.Repeat("é", 10)
	got := truncate(value, 7)
	if !strings.HasSuffix(got, "…") || len(got) > 7 {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestWelcomeCarriesGuildWelcomeMessage(t *testing.T) {
	user := &discordgo.User{ID: "42", Username: "alice", Discriminator: "0"}
	embed := Welcome(user, time.Time{}, "Be kind to the mods", &IntroForm{Subject: "ban appeal"})
	if len(embed.Fields) != 4 || embed.Fields[0].Name != "Welcome Message" || embed.Fields[0].Value != "Be kind to the mods" {
		t.Fatalf("expected welcome message field first, got %+v", embed.Fields)
	}
	if plain := Welcome(user, time.Time{}, "  ", nil); len(plain.Fields) != 0 {
		t.Fatalf("expected no fields without welcome message or intro, got %d", len(plain.Fields))
	}
	if prompt := IntroPrompt("Guild"); !strings.Contains(prompt.Description, "**Guild**") {
		t.Fatalf("unexpected intro prompt %q", prompt.Description)
	}
}
