package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const emailKey = "email"

// AuthMiddleware accepts the session cookie or a Bearer token and stores the
// caller's email in the context.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(s.cfg.CookieName)
		if token == "" {
			if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		email, err := s.gate.Validate(token)
		if err != nil {
			s.respondError(c, "authenticate", c.FullPath(), err)
			c.Abort()
			return
		}
		c.Set(emailKey, email)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(emailKey)
}

func (s *Server) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, token, int(s.cfg.TokenTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, "", -1, "/", "", s.cfg.CookieSecure, true)
}
