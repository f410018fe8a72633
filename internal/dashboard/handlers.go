package dashboard

import (
	"net/http"
	"strconv"
	"strings"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/webhook"

	"github.com/bwmarrin/discordgo"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const permManageGuild int64 = 1 << 5

func intQuery(c echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func threadIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// candidateGuilds returns the user's guilds that have the bot, as validated
// by the backend.
func (s *Server) candidateGuilds(c echo.Context) ([]backend.ValidatedGuild, error) {
	ctx := c.Request().Context()
	guilds, err := s.users.Guilds(ctx, currentUser(c).AccessToken)
	if err != nil {
		return nil, err
	}
	if len(guilds) == 0 {
		return nil, nil
	}
	requests := make([]backend.ValidateGuildRequest, 0, len(guilds))
	for _, g := range guilds {
		req := backend.ValidateGuildRequest{
			GuildID:            g.ID,
			GuildName:          g.Name,
			UserHasPermissions: g.Owner || g.Permissions&(permManageGuild|discordgo.PermissionAdministrator) != 0,
		}
		if g.Icon != "" {
			icon := g.Icon
			req.GuildIcon = &icon
		}
		requests = append(requests, req)
	}
	validated, err := s.api.ValidateGuilds(ctx, requests)
	if err != nil {
		return nil, err
	}
	out := validated[:0]
	for _, g := range validated {
		if g.HasBot {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Server) selectServerPage(c echo.Context) error {
	guilds, err := s.candidateGuilds(c)
	if err != nil {
		return s.backendError(c, err)
	}
	if len(guilds) == 1 {
		s.setCookie(c, guildCookie, guilds[0].GuildID, int(guildTTL.Seconds()))
		return c.Redirect(http.StatusFound, "/")
	}
	return c.JSON(http.StatusOK, map[string]any{"guilds": guilds})
}

func (s *Server) userGuilds(c echo.Context) error {
	guilds, err := s.candidateGuilds(c)
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"guilds": guilds})
}

type selectRequest struct {
	GuildID string `json:"guild_id" form:"guild_id"`
}

func (s *Server) selectServer(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.GuildID) == "" {
		return errorJSON(c, http.StatusBadRequest, "guild_id is required")
	}
	s.setCookie(c, guildCookie, req.GuildID, int(guildTTL.Seconds()))
	return c.JSON(http.StatusOK, map[string]any{"success": true, "guild_id": req.GuildID})
}

func (s *Server) listThreads(c echo.Context) error {
	page, err := s.api.ListThreads(c.Request().Context(), currentGuild(c), intQuery(c, "page", defaultPage), intQuery(c, "limit", defaultLimit))
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) getThread(c echo.Context) error {
	id, ok := threadIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid thread id")
	}
	ctx := c.Request().Context()
	guildID := currentGuild(c)
	detail, err := s.api.GetThread(ctx, guildID, id, intQuery(c, "page", defaultPage), intQuery(c, "limit", defaultLimit))
	if err != nil {
		return s.backendError(c, err)
	}
	notes, err := s.api.ListNotes(ctx, guildID, id)
	if err != nil && !backend.IsNotFound(err) {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"thread":     detail.Thread,
		"messages":   detail.Messages,
		"pagination": detail.Pagination,
		"notes":      notes,
	})
}

func (s *Server) listMacros(c echo.Context) error {
	macros, err := s.api.ListMacros(c.Request().Context(), currentGuild(c))
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"macros": macros})
}

func (s *Server) listBlocked(c echo.Context) error {
	blocked, err := s.api.ListBlocked(c.Request().Context(), currentGuild(c))
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"blocked_users": blocked})
}

func (s *Server) listMessages(c echo.Context) error {
	messages, err := s.api.ListMessages(c.Request().Context(), currentGuild(c))
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) analyticsReport(c echo.Context) error {
	report, err := s.analytics.Report(c.Request().Context(), currentGuild(c))
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) serverManagement(c echo.Context) error {
	ctx := c.Request().Context()
	guildID := currentGuild(c)
	resp := map[string]any{"guild_id": guildID, "config": nil}
	cfg, err := s.api.GetConfig(ctx, guildID)
	switch {
	case err == nil:
		resp["config"] = cfg
	case !backend.IsNotFound(err):
		return s.backendError(c, err)
	}
	overview, err := s.api.AnalyticsOverview(ctx, guildID)
	if err != nil {
		return s.backendError(c, err)
	}
	resp["overview"] = overview
	return c.JSON(http.StatusOK, resp)
}

// openThread loads the thread and writes the error response itself when it
// is missing or already closed; a nil thread means the response is written.
func (s *Server) openThread(c echo.Context, id int64) (*backend.Thread, error) {
	detail, err := s.api.GetThread(c.Request().Context(), currentGuild(c), id, 1, 1)
	if err != nil {
		return nil, s.backendError(c, err)
	}
	if !detail.Thread.IsOpen {
		return nil, errorJSON(c, http.StatusConflict, "Thread is already closed")
	}
	thread := detail.Thread
	if thread.GuildID == "" {
		thread.GuildID = currentGuild(c)
	}
	return &thread, nil
}

// closeThread closes the thread and asks the bot to announce it. A failed
// notification does not undo the close.
func (s *Server) closeThread(c echo.Context) error {
	id, ok := threadIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid thread id")
	}
	ctx := c.Request().Context()
	guildID := currentGuild(c)
	user := currentUser(c)
	if current, err := s.openThread(c, id); current == nil {
		return err
	}
	thread, err := s.api.CloseThread(ctx, guildID, id, backend.CloseThreadRequest{ClosedByID: user.ID, ClosedByTag: user.Username})
	if err != nil {
		return s.backendError(c, err)
	}

	notified := false
	if s.webhook != nil {
		err := s.webhook.ThreadClosed(ctx, webhook.ThreadClosedEvent{
			GuildID:     guildID,
			Thread:      thread,
			ClosedByID:  user.ID,
			ClosedByTag: user.Username,
		})
		if err != nil {
			s.logger.Warn("bot webhook failed", zap.Error(err), zap.Int64("thread_id", id))
		} else {
			notified = true
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "thread": thread, "notified": notified})
}

type messageRequest struct {
	Content string `json:"content" form:"content"`
}

// sendMessage has the bot deliver a reply to the thread's user, then stores
// it. Nothing is stored when delivery fails.
func (s *Server) sendMessage(c echo.Context) error {
	id, ok := threadIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid thread id")
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return errorJSON(c, http.StatusBadRequest, "content is required")
	}
	if s.webhook == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "Bot webhook is not configured")
	}
	thread, err := s.openThread(c, id)
	if thread == nil {
		return err
	}

	ctx := c.Request().Context()
	guildID := currentGuild(c)
	user := currentUser(c)
	content := strings.TrimSpace(req.Content)
	if err := s.webhook.ThreadMessage(ctx, webhook.ThreadMessageEvent{
		GuildID:   guildID,
		Thread:    *thread,
		AuthorID:  user.ID,
		AuthorTag: user.Username,
		Content:   content,
	}); err != nil {
		s.logger.Warn("dashboard reply delivery failed", zap.Error(err), zap.Int64("thread_id", id))
		return errorJSON(c, http.StatusBadGateway, "Could not deliver the message")
	}

	msg, err := s.api.AddMessage(ctx, guildID, id, backend.NewMessage{
		AuthorID:  user.ID,
		AuthorTag: user.Username,
		Content:   content,
		GuildID:   guildID,
	})
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

type noteRequest struct {
	Content string `json:"content" form:"content"`
}

func (s *Server) addNote(c echo.Context) error {
	id, ok := threadIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid thread id")
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return errorJSON(c, http.StatusBadRequest, "content is required")
	}
	guildID := currentGuild(c)
	user := currentUser(c)
	note, err := s.api.AddNote(c.Request().Context(), guildID, id, backend.NewNote{
		AuthorID:  user.ID,
		AuthorTag: user.Username,
		Content:   strings.TrimSpace(req.Content),
		GuildID:   guildID,
	})
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusCreated, note)
}

type macroRequest struct {
	Name        string `json:"name" form:"name"`
	Content     string `json:"content" form:"content"`
	QuickAccess *bool  `json:"quick_access" form:"quick_access"`
}

func (s *Server) createMacro(c echo.Context) error {
	var req macroRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Content) == "" {
		return errorJSON(c, http.StatusBadRequest, "name and content are required")
	}
	guildID := currentGuild(c)
	macro, err := s.api.CreateMacro(c.Request().Context(), guildID, backend.NewMacro{
		Name:        name,
		Content:     req.Content,
		QuickAccess: req.QuickAccess,
		GuildID:     guildID,
	})
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusCreated, macro)
}

func (s *Server) updateMacro(c echo.Context) error {
	var req macroRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errorJSON(c, http.StatusBadRequest, "content is required")
	}
	macro, err := s.api.UpdateMacro(c.Request().Context(), currentGuild(c), c.Param("name"), backend.MacroUpdate{
		Content:     req.Content,
		QuickAccess: req.QuickAccess,
	})
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, macro)
}

func (s *Server) deleteMacro(c echo.Context) error {
	if err := s.api.DeleteMacro(c.Request().Context(), currentGuild(c), c.Param("name")); err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type blockRequest struct {
	UserID  string `json:"user_id" form:"user_id"`
	UserTag string `json:"user_tag" form:"user_tag"`
	Reason  string `json:"reason" form:"reason"`
}

func (s *Server) blockUser(c echo.Context) error {
	var req blockRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		return errorJSON(c, http.StatusBadRequest, "user_id is required")
	}
	guildID := currentGuild(c)
	user := currentUser(c)
	blocked := backend.NewBlockedUser{
		UserID:       strings.TrimSpace(req.UserID),
		UserTag:      req.UserTag,
		BlockedBy:    user.ID,
		BlockedByTag: user.Username,
		GuildID:      guildID,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		blocked.Reason = &reason
	}
	out, err := s.api.BlockUser(c.Request().Context(), guildID, blocked)
	if err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) unblockUser(c echo.Context) error {
	if err := s.api.UnblockUser(c.Request().Context(), currentGuild(c), c.Param("userId")); err != nil {
		return s.backendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
