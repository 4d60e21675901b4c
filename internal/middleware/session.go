package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "sf_session"

	sessionMaxAge = 60 * 60 * 24 * 30
)

// Session identifies the browsing session of anonymous visitors. The id comes
// from the X-Session-ID header or the session cookie; a new one is issued otherwise.
func Session(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sessionID == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				sessionID = strings.TrimSpace(cookie)
			}
		}

		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sessionID, sessionMaxAge, "/", "", secureCookie, true)
		}

		c.Set(ContextSessionID, sessionID)
		c.Header(SessionHeader, sessionID)
		c.Next()
	}
}

// SessionID returns the browsing session id of the request
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
