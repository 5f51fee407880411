package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type indexResponse struct {
	Name       string            `json:"name"`
	SignedIn   bool              `json:"signed_in"`
	Username   string            `json:"username,omitempty"`
	NeedsTerms bool              `json:"needs_terms,omitempty"`
	Links      map[string]string `json:"links"`
}

// RegisterPages serves the landing document. It is where stale reset
// submissions and logged-out clients end up.
func RegisterPages(e *echo.Echo) {
	e.GET(landingPath, func(c echo.Context) error {
		resp := indexResponse{
			Name: "TJ Destinations",
			Links: map[string]string{
				"login":    LoginPath,
				"students": "/api/v1/destinations/students",
				"colleges": "/api/v1/destinations/colleges",
				"profile":  "/api/v1/profile",
				"docs":     "/swagger/index.html",
			},
		}
		if user, ok := CurrentUser(c); ok {
			resp.SignedIn = true
			resp.Username = user.Username
			if !user.AcceptedTerms {
				resp.NeedsTerms = true
				resp.Links["accept_tos"] = AcceptTermsPath
			}
		}
		return c.JSON(http.StatusOK, resp)
	})
}
