package dashboard

import (
	"errors"
	"net/http"

	"modmail-bridge/internal/backend"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	ctxUser  = "user"
	ctxGuild = "guild_id"
)

// Claims is the payload of the auth_token cookie.
type Claims struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Avatar      string `json:"avatar"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	jwt.RegisteredClaims
}

func (s *Server) signToken(claims Claims) (string, error) {
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Dashboard.JWTSecret))
}

func (s *Server) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Dashboard.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *Server) setCookie(c echo.Context, name, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Dashboard.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) login(c echo.Context) error {
	session, _ := s.sessions.Get(c.Request(), stateName)
	state := uuid.NewString()
	session.Values["state"] = state
	if err := session.Save(c.Request(), c.Response()); err != nil {
		s.logger.Warn("save oauth state failed", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Could not start login")
	}
	return c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

func (s *Server) callback(c echo.Context) error {
	session, err := s.sessions.Get(c.Request(), stateName)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid OAuth state")
	}
	expected, _ := session.Values["state"].(string)
	if expected == "" || c.QueryParam("state") != expected {
		return errorJSON(c, http.StatusBadRequest, "Invalid OAuth state")
	}
	code := c.QueryParam("code")
	if code == "" {
		return errorJSON(c, http.StatusBadRequest, "Missing authorization code")
	}

	ctx := c.Request().Context()
	accessToken, err := s.exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, "Authentication failed")
	}
	user, err := s.users.CurrentUser(ctx, accessToken)
	if err != nil {
		s.logger.Warn("fetch discord user failed", zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, "Authentication failed")
	}

	signed, err := s.signToken(Claims{
		ID:          user.ID,
		Username:    user.Username,
		Avatar:      user.Avatar,
		Email:       user.Email,
		AccessToken: accessToken,
	})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Authentication failed")
	}

	session.Options.MaxAge = -1
	_ = session.Save(c.Request(), c.Response())
	s.setCookie(c, authCookie, signed, int(tokenTTL.Seconds()))
	s.logger.Info("dashboard login", zap.String("user_id", user.ID))
	return c.Redirect(http.StatusFound, "/select-server")
}

func (s *Server) logout(c echo.Context) error {
	s.setCookie(c, authCookie, "", -1)
	s.setCookie(c, guildCookie, "", -1)
	return c.Redirect(http.StatusFound, "/login")
}

func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(authCookie)
		if err != nil || cookie.Value == "" {
			return c.Redirect(http.StatusFound, "/login")
		}
		claims, err := s.parseToken(cookie.Value)
		if err != nil {
			return c.Redirect(http.StatusFound, "/login")
		}
		c.Set(ctxUser, claims)
		return next(c)
	}
}

func (s *Server) requireGuild(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(guildCookie)
		if err != nil || cookie.Value == "" {
			return c.Redirect(http.StatusFound, "/select-server")
		}
		c.Set(ctxGuild, cookie.Value)
		return next(c)
	}
}

// requireModerator checks the user's roles in the selected guild on every
// request against the configured moderator roles.
func (s *Server) requireModerator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := currentUser(c)
		guildID := currentGuild(c)
		ctx := c.Request().Context()

		member, err := s.users.Member(ctx, claims.AccessToken, guildID)
		if err != nil {
			s.logger.Info("guild member lookup failed", zap.Error(err), zap.String("user_id", claims.ID), zap.String("guild_id", guildID))
			return errorJSON(c, http.StatusForbidden, "You are not a member of this server.")
		}

		allowed := make(map[string]struct{})
		for _, id := range s.cfg.ModeratorRoleIDs {
			allowed[id] = struct{}{}
		}
		cfg, err := s.api.GetConfig(ctx, guildID)
		if err != nil && !backend.IsNotFound(err) {
			return s.backendError(c, err)
		}
		for _, id := range cfg.ModeratorRoleIDs {
			allowed[id] = struct{}{}
		}
		for _, role := range member.Roles {
			if _, ok := allowed[role]; ok {
				return next(c)
			}
		}
		return errorJSON(c, http.StatusForbidden, "You do not have moderator permissions in this server.")
	}
}

func currentUser(c echo.Context) *Claims {
	claims, _ := c.Get(ctxUser).(*Claims)
	if claims == nil {
		return &Claims{}
	}
	return claims
}

func currentGuild(c echo.Context) string {
	guildID, _ := c.Get(ctxGuild).(string)
	return guildID
}
