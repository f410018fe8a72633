package dashboard

import (
	"context"
	"net/http"
	"time"

	"modmail-bridge/internal/analytics"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/config"
	"modmail-bridge/internal/webhook"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Backend is the part of the backend API the dashboard reads and writes.
type Backend interface {
	analytics.Source

	ListThreads(ctx context.Context, guildID string, page, limit int) (backend.ThreadPage, error)
	GetThread(ctx context.Context, guildID string, threadID int64, page, limit int) (backend.ThreadDetail, error)
	CloseThread(ctx context.Context, guildID string, threadID int64, req backend.CloseThreadRequest) (backend.Thread, error)
	ListNotes(ctx context.Context, guildID string, threadID int64) ([]backend.Note, error)
	AddNote(ctx context.Context, guildID string, threadID int64, note backend.NewNote) (backend.Note, error)
	AddMessage(ctx context.Context, guildID string, threadID int64, msg backend.NewMessage) (backend.Message, error)
	ListMessages(ctx context.Context, guildID string) ([]backend.Message, error)

	ListMacros(ctx context.Context, guildID string) ([]backend.Macro, error)
	CreateMacro(ctx context.Context, guildID string, macro backend.NewMacro) (backend.Macro, error)
	UpdateMacro(ctx context.Context, guildID, name string, update backend.MacroUpdate) (backend.Macro, error)
	DeleteMacro(ctx context.Context, guildID, name string) error

	ListBlocked(ctx context.Context, guildID string) ([]backend.BlockedUser, error)
	BlockUser(ctx context.Context, guildID string, user backend.NewBlockedUser) (backend.BlockedUser, error)
	UnblockUser(ctx context.Context, guildID, userID string) error

	GetConfig(ctx context.Context, guildID string) (backend.GuildConfig, error)
	ValidateGuilds(ctx context.Context, guilds []backend.ValidateGuildRequest) ([]backend.ValidatedGuild, error)
}

const (
	authCookie  = "auth_token"
	guildCookie = "selected_guild_id"
	stateName   = "oauth_state"

	tokenTTL = 7 * 24 * time.Hour
	guildTTL = 30 * 24 * time.Hour

	defaultPage  = 1
	defaultLimit = 20
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	API      Backend
	Users    UserAPI
	Notifier webhook.Notifier
}

type Server struct {
	cfg       config.Config
	logger    *zap.Logger
	api       Backend
	users     UserAPI
	webhook   webhook.Notifier
	analytics *analytics.Service
	oauth     *oauth2.Config
	sessions  sessions.Store
	now       func() time.Time

	exchange func(ctx context.Context, code string) (string, error)
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	users := deps.Users
	if users == nil {
		users = NewUserAPI()
	}

	store := sessions.NewCookieStore([]byte(deps.Config.Dashboard.SessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = deps.Config.Dashboard.CookieSecure
	store.Options.SameSite = http.SameSiteLaxMode

	s := &Server{
		cfg:       deps.Config,
		logger:    logger,
		api:       deps.API,
		users:     users,
		webhook:   deps.Notifier,
		analytics: analytics.New(deps.API),
		oauth: &oauth2.Config{
			ClientID:     deps.Config.ClientID,
			ClientSecret: deps.Config.OAuth.ClientSecret,
			RedirectURL:  deps.Config.OAuth.RedirectURI,
			Scopes:       []string{"identify", "email", "guilds", "guilds.members.read"},
			Endpoint:     discordEndpoint,
		},
		sessions: store,
		now:      time.Now,
	}
	s.exchange = s.exchangeCode
	return s
}

func (s *Server) exchangeCode(ctx context.Context, code string) (string, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Handler builds the echo router with every dashboard route.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("dashboard request", zap.String("method", v.Method), zap.String("uri", v.URI), zap.Int("status", v.Status))
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/login", s.login)
	e.GET("/auth/callback", s.callback)
	e.GET("/logout", s.logout)
	e.POST("/logout", s.logout)

	authed := e.Group("", s.requireUser)
	authed.GET("/select-server", s.selectServerPage)
	authed.POST("/select-server", s.selectServer)
	authed.POST("/api/server/switch", s.selectServer)
	authed.GET("/api/auth/guilds", s.userGuilds)

	mod := authed.Group("", s.requireGuild, s.requireModerator)
	mod.GET("/", s.listThreads)
	mod.GET("/threads", s.listThreads)
	mod.GET("/threads/:id", s.getThread)
	mod.GET("/macros", s.listMacros)
	mod.GET("/blocked", s.listBlocked)
	mod.GET("/messages", s.listMessages)
	mod.GET("/analytics", s.analyticsReport)
	mod.GET("/server-management", s.serverManagement)

	mod.POST("/api/threads/:id/close", s.closeThread)
	mod.POST("/api/threads/:id/messages", s.sendMessage)
	mod.POST("/api/threads/:id/notes", s.addNote)
	mod.POST("/api/macros", s.createMacro)
	mod.PUT("/api/macros/:name", s.updateMacro)
	mod.DELETE("/api/macros/:name", s.deleteMacro)
	mod.POST("/api/blocked-users", s.blockUser)
	mod.DELETE("/api/blocked-users/:userId", s.unblockUser)

	return e
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// backendError maps a backend failure onto the dashboard's status codes.
func (s *Server) backendError(c echo.Context, err error) error {
	if backend.IsNotFound(err) {
		return errorJSON(c, http.StatusNotFound, "Not found")
	}
	s.logger.Warn("backend request failed", zap.Error(err), zap.String("path", c.Path()))
	return errorJSON(c, http.StatusBadGateway, "Backend request failed")
}
