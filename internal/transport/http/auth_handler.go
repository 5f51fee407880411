package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tjdests/tjdests/internal/service"
	"github.com/tjdests/tjdests/internal/util"
)

const (
	LoginPath              = "/api/v1/auth/login"
	LogoutPath             = "/api/v1/auth/logout"
	ForcePasswordResetPath = "/api/v1/auth/force-password-reset"
	AcceptTermsPath        = "/api/v1/auth/accept-tos"
	landingPath            = "/"
)

type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
}

// UseSessions installs session resolution and the reset gate for every route.
// Call it before registering handlers.
func UseSessions(e *echo.Echo, auth *service.AuthService) {
	e.Use(ResolveSession(auth))
	e.Use(PasswordResetGate(ForcePasswordResetPath, LogoutPath))
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService, secureCookie bool) {
	h := &AuthHandler{auth: auth, secureCookie: secureCookie}

	e.POST(LoginPath, h.login)
	e.POST(LogoutPath, h.logout)
	e.GET(ForcePasswordResetPath, h.forcePasswordResetStatus, RequireAuth())
	e.POST(ForcePasswordResetPath, h.forcePasswordReset, RequireAuth())
	e.POST(AcceptTermsPath, h.acceptTerms, RequireAuth())
	e.GET("/api/v1/auth/me", h.me, RequireAuth())
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	res, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrAccountLocked):
		return c.JSON(http.StatusForbidden, util.Error(h.auth.LockoutMessage()))
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, util.Error(service.ErrInvalidCredentials.Error()))
	case err != nil:
		return writeServiceError(c, err)
	}

	setSessionCookie(c, res.Token, res.ExpiresAt, h.secureCookie)
	return c.JSON(http.StatusOK, newAuthTokenResponse(res.Token, res.ExpiresAt, res.NeedsPasswordReset, res.User))
}

func (h *AuthHandler) logout(c echo.Context) error {
	if session, ok := CurrentSession(c); ok {
		if err := h.auth.Logout(c.Request().Context(), session); err != nil {
			return writeServiceError(c, err)
		}
	}
	clearSessionCookie(c, h.secureCookie)
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *AuthHandler) forcePasswordResetStatus(c echo.Context) error {
	user, _ := CurrentUser(c)
	session, ok := CurrentSession(c)
	if !ok || !session.RequiresPasswordReset(user) {
		return c.Redirect(http.StatusSeeOther, landingPath)
	}
	return c.JSON(http.StatusOK, ForcePasswordResetStatus{
		NeedsPasswordReset: true,
		Username:           user.Username,
		MinLength:          h.auth.PasswordMinLength(),
	})
}

func (h *AuthHandler) forcePasswordReset(c echo.Context) error {
	user, _ := CurrentUser(c)
	session, ok := CurrentSession(c)
	if !ok || !session.RequiresPasswordReset(user) {
		return c.Redirect(http.StatusSeeOther, landingPath)
	}

	var req ForcePasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	res, err := h.auth.CompleteForcedReset(c.Request().Context(), user, session, req.NewPassword1, req.NewPassword2)
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrResetNotRequired):
		return c.Redirect(http.StatusSeeOther, landingPath)
	case errors.As(err, &verr):
		return validationResponse(c, verr)
	case errors.Is(err, service.ErrPasswordUpdateFailed):
		return c.JSON(http.StatusInternalServerError, util.Error(err.Error()))
	case err != nil:
		return writeServiceError(c, err)
	}

	setSessionCookie(c, res.Token, res.ExpiresAt, h.secureCookie)
	return c.JSON(http.StatusOK, newAuthTokenResponse(res.Token, res.ExpiresAt, false, res.User))
}

func (h *AuthHandler) acceptTerms(c echo.Context) error {
	user, _ := CurrentUser(c)
	session, _ := CurrentSession(c)

	var req AcceptTermsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	err := h.auth.AcceptTerms(c.Request().Context(), user, session, service.AcceptTermsInput{
		AcceptTOS:    req.AcceptTOS,
		NewPassword1: req.NewPassword1,
		NewPassword2: req.NewPassword2,
	})
	switch {
	case errors.Is(err, service.ErrLoginRestricted),
		errors.Is(err, service.ErrNotStudent),
		errors.Is(err, service.ErrAccountBanned):
		clearSessionCookie(c, h.secureCookie)
		return c.JSON(http.StatusForbidden, util.Error(err.Error()))
	case errors.Is(err, service.ErrTermsRequired):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case err != nil:
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, AcceptTermsResponse{Accepted: true})
}

func (h *AuthHandler) me(c echo.Context) error {
	user, _ := CurrentUser(c)
	return c.JSON(http.StatusOK, AuthUserResponse{User: newAuthUser(user)})
}

func setSessionCookie(c echo.Context, token string, expiresAt time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
