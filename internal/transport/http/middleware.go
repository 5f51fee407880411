package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/service"
	"github.com/tjdests/tjdests/internal/util"
)

const (
	contextUserKey    = "auth.user"
	contextSessionKey = "auth.session"
	contextTokenKey   = "auth.token"

	SessionCookieName = "tjdests_session"
)

// ResolveSession attaches the signed-in user and session to the context when
// the request carries a live token, from the session cookie or a bearer
// header. Requests without one continue anonymously.
func ResolveSession(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, fromCookie := requestToken(c)
			if token == "" {
				return next(c)
			}
			user, session, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				if fromCookie {
					clearSessionCookie(c, false)
				}
				return next(c)
			}
			c.Set(contextUserKey, user)
			c.Set(contextSessionKey, session)
			c.Set(contextTokenKey, token)
			return next(c)
		}
	}
}

func requestToken(c echo.Context) (string, bool) {
	if header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization)); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// PasswordResetGate confines sessions opened with a legacy password to the
// forced-reset endpoint and logout while the account still falls back to
// legacy hashes. Every other request is sent to resetPath.
func PasswordResetGate(resetPath, logoutPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, ok := CurrentSession(c)
			if !ok {
				return next(c)
			}
			if user, _ := CurrentUser(c); !session.RequiresPasswordReset(user) {
				return next(c)
			}
			switch strings.TrimRight(c.Request().URL.Path, "/") {
			case resetPath, logoutPath:
				return next(c)
			}
			return c.Redirect(http.StatusSeeOther, resetPath)
		}
	}
}

func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if user, ok := CurrentUser(c); !ok || user == nil {
				return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
			}
			return next(c)
		}
	}
}

// RequireTerms admits accounts that accepted the terms and are not banned.
func RequireTerms() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok || user == nil {
				return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
			}
			if user.IsBanned {
				return c.JSON(http.StatusForbidden, util.Error(service.ErrAccountBanned.Error()))
			}
			if !user.CanBrowse() {
				return c.JSON(http.StatusForbidden, util.Error(service.ErrTermsRequired.Error()))
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(contextUserKey).(*domain.User)
	return user, ok && user != nil
}

func CurrentSession(c echo.Context) (*domain.Session, bool) {
	session, ok := c.Get(contextSessionKey).(*domain.Session)
	return session, ok && session != nil
}
