// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards the staff surface. Staff obtain a short-lived HS256 token
// from POST /admin/token by presenting the venue admin secret and send it as
// "Authorization: Bearer <token>" on every admin call.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/auth"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

const ctxKeyAdminSubject = "admin.subject"

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// RequireAdmin rejects requests without a valid admin token. A nil parser
// means tokens are not configured and every request gets 503.
func RequireAdmin(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			abortAuth(c, http.StatusServiceUnavailable, "admin_disabled", "admin API is not configured")
			return
		}
		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="karaoked"`)
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "bearer token required")
			return
		}
		claims, err := p.Parse(raw)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="karaoked", error="invalid_token"`)
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		if claims.Role != string(domain.RoleAdmin) {
			abortAuth(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Set(ctxKeyAdminSubject, claims.Subject)
		c.Next()
	}
}

// AdminSubject returns the subject of the verified admin token.
func AdminSubject(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyAdminSubject)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
