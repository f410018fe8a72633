package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"modmail-bridge/internal/audit"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/config"
	"modmail-bridge/internal/discord"
	"modmail-bridge/internal/pending"
	"modmail-bridge/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// API is the part of the backend the bot talks to.
type API interface {
	CreateThread(ctx context.Context, guildID string, req backend.CreateThreadRequest) (backend.Thread, error)
	CloseThread(ctx context.Context, guildID string, threadID int64, req backend.CloseThreadRequest) (backend.Thread, error)
	AddMessage(ctx context.Context, guildID string, threadID int64, msg backend.NewMessage) (backend.Message, error)
	UpdateUrgency(ctx context.Context, guildID string, threadID int64, urgency backend.Urgency) (backend.Thread, error)
	AddNote(ctx context.Context, guildID string, threadID int64, note backend.NewNote) (backend.Note, error)
	FindOpenThreadByUser(ctx context.Context, guildID, userID string) (backend.Thread, error)
	FindThreadByChannel(ctx context.Context, guildID, channelID string) (backend.Thread, error)

	ListMacros(ctx context.Context, guildID string) ([]backend.Macro, error)
	GetMacro(ctx context.Context, guildID, name string) (backend.Macro, error)
	CreateMacro(ctx context.Context, guildID string, macro backend.NewMacro) (backend.Macro, error)
	UpdateMacro(ctx context.Context, guildID, name string, update backend.MacroUpdate) (backend.Macro, error)
	DeleteMacro(ctx context.Context, guildID, name string) error

	BlockUser(ctx context.Context, guildID string, user backend.NewBlockedUser) (backend.BlockedUser, error)
	IsBlocked(ctx context.Context, guildID, userID string) (bool, error)
	UnblockUser(ctx context.Context, guildID, userID string) error

	GetConfig(ctx context.Context, guildID string) (backend.GuildConfig, error)
	CreateConfig(ctx context.Context, guildID string, initial backend.ConfigUpdate) (backend.GuildConfig, error)
	UpdateConfig(ctx context.Context, guildID string, update backend.ConfigUpdate) (backend.GuildConfig, error)
	ResetConfig(ctx context.Context, guildID string) (backend.GuildConfig, error)

	CreateServer(ctx context.Context, guildID, guildName string) (backend.Server, error)
	ValidateGuilds(ctx context.Context, guilds []backend.ValidateGuildRequest) ([]backend.ValidatedGuild, error)
}

// Deps is everything a Bot needs; there is no package-level state.
type Deps struct {
	Config  config.Config
	Logger  *zap.Logger
	API     API
	Pending pending.Store
	Audit   *audit.Logger
}

type Bot struct {
	cfg     config.Config
	logger  *zap.Logger
	api     API
	pending pending.Store
	audit   *audit.Logger
	session *discordgo.Session
	discord discord.Client
	flood   *utils.FloodGuard
	janitor *pending.Janitor
	now     func() time.Time

	guildsMu    sync.Mutex
	knownGuilds map[string]struct{}

	cancel context.CancelFunc
}

var errNotConfigured = errors.New("modmail category not configured")

func New(deps Deps) (*Bot, error) {
	session, err := discordgo.New("Bot " + deps.Config.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := newBot(deps, discord.NewSessionClient(session))
	b.session = session
	return b, nil
}

func newBot(deps Deps, client discord.Client) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := deps.Pending
	if store == nil {
		store = pending.NewMemoryStore()
	}
	b := &Bot{
		cfg:         deps.Config,
		logger:      logger,
		api:         deps.API,
		pending:     store,
		audit:       deps.Audit,
		discord:     client,
		flood:       utils.NewFloodGuard(deps.Config.Flood.Messages, time.Duration(deps.Config.Flood.WindowSeconds)*time.Second),
		now:         time.Now,
		knownGuilds: make(map[string]struct{}),
	}
	interval := time.Duration(deps.Config.Pending.PurgeIntervalSeconds) * time.Second
	b.janitor = pending.NewJanitor(store, interval, logger)
	b.janitor.Also(func(now time.Time) { b.flood.Sweep(now) })
	if b.audit != nil {
		b.audit.SetNotifier(b.notifyAudit)
	}
	return b
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.janitor.Start(ctx)
	return nil
}

// Close stops the janitor and the gateway session, giving up when ctx ends.
func (b *Bot) Close(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	done := make(chan error, 1)
	go func() {
		b.janitor.Stop()
		if b.session == nil {
			done <- nil
			return
		}
		done <- b.session.Close()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.rememberGuilds(event.Guilds)
	username := ""
	if event.User != nil {
		username = event.User.Username
	}
	b.logger.Info("discord ready", zap.String("user", username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil {
		return
	}
	b.handleGuildJoin(context.Background(), event.Guild)
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil {
		return
	}
	b.handleGuildLeave(event.Guild)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Message == nil || msg.Author == nil || msg.Author.Bot {
		return
	}
	ctx := context.Background()
	if msg.GuildID == "" {
		b.handleDirectMessage(ctx, msg.Message)
		return
	}
	b.handleChannelMessage(ctx, msg.Message)
}

func (b *Bot) logChannel(ctx context.Context, guildID string) string {
	if guildID != "" {
		cfg, err := b.api.GetConfig(ctx, guildID)
		if err == nil && cfg.LogChannelID != "" {
			return cfg.LogChannelID
		}
	}
	return b.cfg.LogChannelID
}
