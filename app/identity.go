package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	identityCookieName = "mil_uid"
	// Roughly one year, matching the lifetime promised on the page.
	identityCookieMaxAge = 365 * 24 * 60 * 60
)

// ResolveIdentity maps a persisted client token to a stable anonymous user
// id. An empty or garbage token yields a fresh UUID and isNew=true so the
// caller can persist it back to the client.
func ResolveIdentity(token string) (userID string, isNew bool) {
	token = strings.TrimSpace(token)
	if token != "" {
		if _, err := uuid.Parse(token); err == nil {
			return token, false
		}
	}
	return uuid.NewString(), true
}

// resolveIdentity reads the identity cookie, minting and re-setting it when
// absent. The cookie is HttpOnly and (outside local dev) Secure.
func (s *Server) resolveIdentity(c *gin.Context) string {
	token, _ := c.Cookie(identityCookieName)
	userID, isNew := ResolveIdentity(token)
	if isNew {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(identityCookieName, userID, identityCookieMaxAge, "/", "", s.cfg.Server.CookieSecure, true)
	}
	return userID
}
