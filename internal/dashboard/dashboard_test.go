package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/config"
	"modmail-bridge/internal/webhook"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	config       backend.GuildConfig
	configErr    error
	threadsErr   error
	page, limit  int
	closed       []int64
	stored       []backend.NewMessage
	macros       []backend.NewMacro
	validateReqs []backend.ValidateGuildRequest
	validated    []backend.ValidatedGuild
}

func (f *fakeBackend) AnalyticsOverview(context.Context, string) (backend.AnalyticsOverview, error) {
	return backend.AnalyticsOverview{TotalThreads: 3}, nil
}

func (f *fakeBackend) ThreadVolume(context.Context, string) ([]backend.ThreadVolume, error) {
	return []backend.ThreadVolume{{Date: "2024-05-01", Count: 2}}, nil
}

func (f *fakeBackend) ModeratorActivity(context.Context, string) ([]backend.ModeratorActivity, error) {
	return nil, nil
}

func (f *fakeBackend) ResponseTimes(context.Context, string) (backend.ResponseTimes, error) {
	return backend.ResponseTimes{}, nil
}

func (f *fakeBackend) ListThreads(_ context.Context, guildID string, page, limit int) (backend.ThreadPage, error) {
	f.page, f.limit = page, limit
	if f.threadsErr != nil {
		return backend.ThreadPage{}, f.threadsErr
	}
	return backend.ThreadPage{Threads: []backend.Thread{{ID: 1, GuildID: guildID, IsOpen: true}}}, nil
}

func (f *fakeBackend) GetThread(_ context.Context, guildID string, threadID int64, _, _ int) (backend.ThreadDetail, error) {
	if threadID == 404 {
		return backend.ThreadDetail{}, backend.ErrNotFound
	}
	// thread 410 is already closed
	return backend.ThreadDetail{Thread: backend.Thread{ID: threadID, GuildID: guildID, UserID: "u1", ThreadID: "c1", IsOpen: threadID != 410}}, nil
}

func (f *fakeBackend) CloseThread(_ context.Context, guildID string, threadID int64, _ backend.CloseThreadRequest) (backend.Thread, error) {
	f.closed = append(f.closed, threadID)
	return backend.Thread{ID: threadID, GuildID: guildID, UserID: "u1", ThreadID: "c1"}, nil
}

func (f *fakeBackend) ListNotes(context.Context, string, int64) ([]backend.Note, error) {
	return []backend.Note{{Content: "internal"}}, nil
}

func (f *fakeBackend) AddNote(_ context.Context, _ string, threadID int64, note backend.NewNote) (backend.Note, error) {
	return backend.Note{ThreadID: threadID, Content: note.Content}, nil
}

func (f *fakeBackend) AddMessage(_ context.Context, guildID string, _ int64, msg backend.NewMessage) (backend.Message, error) {
	f.stored = append(f.stored, msg)
	return backend.Message{AuthorID: msg.AuthorID, AuthorTag: msg.AuthorTag, Content: msg.Content, GuildID: guildID}, nil
}

func (f *fakeBackend) ListMessages(context.Context, string) ([]backend.Message, error) { return nil, nil }

func (f *fakeBackend) ListMacros(context.Context, string) ([]backend.Macro, error) { return nil, nil }

func (f *fakeBackend) CreateMacro(_ context.Context, guildID string, macro backend.NewMacro) (backend.Macro, error) {
	f.macros = append(f.macros, macro)
	return backend.Macro{Name: macro.Name, Content: macro.Content, GuildID: guildID}, nil
}

func (f *fakeBackend) UpdateMacro(_ context.Context, _ string, name string, update backend.MacroUpdate) (backend.Macro, error) {
	return backend.Macro{Name: name, Content: update.Content}, nil
}

func (f *fakeBackend) DeleteMacro(context.Context, string, string) error { return nil }

func (f *fakeBackend) ListBlocked(context.Context, string) ([]backend.BlockedUser, error) {
	return nil, nil
}

func (f *fakeBackend) BlockUser(_ context.Context, guildID string, user backend.NewBlockedUser) (backend.BlockedUser, error) {
	return backend.BlockedUser{UserID: user.UserID, GuildID: guildID}, nil
}

func (f *fakeBackend) UnblockUser(context.Context, string, string) error { return backend.ErrNotFound }

func (f *fakeBackend) GetConfig(context.Context, string) (backend.GuildConfig, error) {
	return f.config, f.configErr
}

func (f *fakeBackend) ValidateGuilds(_ context.Context, guilds []backend.ValidateGuildRequest) ([]backend.ValidatedGuild, error) {
	f.validateReqs = guilds
	return f.validated, nil
}

type fakeUsers struct {
	roles  []string
	guilds []*discordgo.UserGuild
}

func (f *fakeUsers) CurrentUser(context.Context, string) (*discordgo.User, error) {
	return &discordgo.User{ID: "m1", Username: "mod", Email: "mod@example.com"}, nil
}

func (f *fakeUsers) Guilds(context.Context, string) ([]*discordgo.UserGuild, error) {
	return f.guilds, nil
}

func (f *fakeUsers) Member(context.Context, string, string) (*discordgo.Member, error) {
	return &discordgo.Member{Roles: f.roles}, nil
}

type recordingNotifier struct {
	events   []webhook.ThreadClosedEvent
	messages []webhook.ThreadMessageEvent
	err      error
}

func (n *recordingNotifier) ThreadClosed(_ context.Context, event webhook.ThreadClosedEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) ThreadMessage(_ context.Context, event webhook.ThreadMessageEvent) error {
	n.messages = append(n.messages, event)
	return n.err
}

type harness struct {
	server   *Server
	handler  http.Handler
	api      *fakeBackend
	users    *fakeUsers
	notifier *recordingNotifier
	token    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ClientID = "client"
	cfg.OAuth = config.OAuthConfig{ClientSecret: "secret", RedirectURI: "http://localhost/auth/callback"}
	cfg.Dashboard.JWTSecret = "jwt-secret"
	cfg.Dashboard.SessionSecret = "session-secret-session-secret-32"
	cfg.ModeratorRoleIDs = []string{"env-mod"}

	api := &fakeBackend{config: backend.GuildConfig{ModeratorRoleIDs: []string{"cfg-mod"}}}
	users := &fakeUsers{roles: []string{"cfg-mod"}}
	notifier := &recordingNotifier{}
	server := New(Deps{Config: cfg, API: api, Users: users, Notifier: notifier})

	token, err := server.signToken(Claims{ID: "m1", Username: "mod", AccessToken: "discord-token"})
	require.NoError(t, err)
	return &harness{server: server, handler: server.Handler(), api: api, users: users, notifier: notifier, token: token}
}

func (h *harness) do(method, target, body string, withGuild bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.AddCookie(&http.Cookie{Name: authCookie, Value: h.token})
	}
	if withGuild {
		req.AddCookie(&http.Cookie{Name: guildCookie, Value: "g1"})
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	h.token = ""

	rec := h.do(http.MethodGet, "/threads", "", true)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestTamperedTokenRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	h.token += "x"

	rec := h.do(http.MethodGet, "/threads", "", true)

	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestMissingGuildRedirectsToServerSelect(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/threads", "", false)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/select-server", rec.Header().Get("Location"))
}

func TestModeratorRolesIncludeEnvRoles(t *testing.T) {
	h := newHarness(t)
	h.users.roles = []string{"env-mod"}

	rec := h.do(http.MethodGet, "/threads", "", true)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNonModeratorIsForbidden(t *testing.T) {
	h := newHarness(t)
	h.users.roles = []string{"member"}

	rec := h.do(http.MethodGet, "/threads", "", true)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListThreadsDefaultsPaging(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/threads", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.api.page)
	assert.Equal(t, 20, h.api.limit)
	assert.Contains(t, rec.Body.String(), `"threads"`)
}

func TestBackendErrorsMapToStatus(t *testing.T) {
	h := newHarness(t)
	h.api.threadsErr = errors.New("boom")

	rec := h.do(http.MethodGet, "/threads", "", true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = h.do(http.MethodGet, "/threads/404", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/threads/abc", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThreadDetailIncludesNotes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/threads/5", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal"`)
}

func TestCloseThreadNotifiesBot(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/threads/9/close", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{9}, h.api.closed)
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "g1", h.notifier.events[0].GuildID)
	assert.Equal(t, "mod", h.notifier.events[0].ClosedByTag)
	assert.Contains(t, rec.Body.String(), `"notified":true`)
}

func TestCloseThreadSurvivesWebhookFailure(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("bot down")

	rec := h.do(http.MethodPost, "/api/threads/9/close", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notified":false`)
}

func TestCloseAlreadyClosedThreadIsConflict(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/threads/410/close", "", true)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, h.api.closed)
	assert.Empty(t, h.notifier.events)
}

func TestSendMessageDeliversThenStores(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/threads/9/messages", `{"content":"  we are on it  "}`, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.notifier.messages, 1)
	event := h.notifier.messages[0]
	assert.Equal(t, "g1", event.GuildID)
	assert.Equal(t, "u1", event.Thread.UserID)
	assert.Equal(t, "mod", event.AuthorTag)
	assert.Equal(t, "we are on it", event.Content)
	require.Len(t, h.api.stored, 1)
	assert.Equal(t, "m1", h.api.stored[0].AuthorID)
	assert.Equal(t, "we are on it", h.api.stored[0].Content)
	assert.Contains(t, rec.Body.String(), `"we are on it"`)
}

func TestSendMessageRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/threads/9/messages", `{"content":" "}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/threads/410/messages", `{"content":"hi"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/threads/404/messages", `{"content":"hi"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, h.notifier.messages)
	assert.Empty(t, h.api.stored)
}

func TestSendMessageIsNotStoredWhenDeliveryFails(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("bot down")

	rec := h.do(http.MethodPost, "/api/threads/9/messages", `{"content":"hi"}`, true)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, h.api.stored)
}

func TestCreateMacroValidates(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/macros", `{"content":"hi"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/macros", `{"name":"greet","content":"hi","quick_access":true}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.api.macros, 1)
	require.NotNil(t, h.api.macros[0].QuickAccess)
	assert.True(t, *h.api.macros[0].QuickAccess)
}

func TestUnblockMissingUserIsNotFound(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodDelete, "/api/blocked-users/u9", "", true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectServerAutoSelectsSingleCandidate(t *testing.T) {
	h := newHarness(t)
	h.users.guilds = []*discordgo.UserGuild{
		{ID: "g1", Name: "One", Permissions: discordgo.PermissionAdministrator},
		{ID: "g2", Name: "Two"},
	}
	h.api.validated = []backend.ValidatedGuild{{GuildID: "g1", HasBot: true}, {GuildID: "g2", HasBot: false}}

	rec := h.do(http.MethodGet, "/select-server", "", false)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), guildCookie+"=g1")
	require.Len(t, h.api.validateReqs, 2)
	assert.True(t, h.api.validateReqs[0].UserHasPermissions)
	assert.False(t, h.api.validateReqs[1].UserHasPermissions)
}

func TestSwitchServerRequiresGuildID(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/server/switch", `{}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/server/switch", `{"guild_id":"g2"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), guildCookie+"=g2")
}

func TestLoginAndCallback(t *testing.T) {
	h := newHarness(t)
	h.server.exchange = func(_ context.Context, code string) (string, error) {
		assert.Equal(t, "the-code", code)
		return "access", nil
	}

	login := httptest.NewRecorder()
	h.handler.ServeHTTP(login, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusFound, login.Code)
	location, err := url.Parse(login.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "discord.com", location.Host)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	bad := httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state=wrong", nil)
	for _, c := range login.Result().Cookies() {
		bad.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	good := httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state="+url.QueryEscape(state), nil)
	for _, c := range login.Result().Cookies() {
		good.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, good)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/select-server", rec.Header().Get("Location"))

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie {
			token = c.Value
		}
	}
	claims, err := h.server.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "m1", claims.ID)
	assert.Equal(t, "access", claims.AccessToken)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	h := newHarness(t)
	h.server.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	token, err := h.server.signToken(Claims{ID: "m1"})
	require.NoError(t, err)
	h.server.now = time.Now

	_, err = h.server.parseToken(token)
	assert.Error(t, err)
}
