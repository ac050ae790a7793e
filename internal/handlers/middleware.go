package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"libraryadmin/internal/collab"
	"libraryadmin/internal/session"
)

const sessionKey = "session"

// Sessions is the login lifecycle the routes need.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.Session, string, error)
	Register(ctx context.Context, req collab.RegisterRequest) (json.RawMessage, error)
	Resolve(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, s *session.Session) error
}

// RequireSession rejects requests without a live session token and stores
// the session on the context for the handler.
func RequireSession(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		s, err := sessions.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired or invalid"})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
