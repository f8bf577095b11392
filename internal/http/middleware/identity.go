// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's chat identity. The chat bot addresses
// users by their Telegram chat id; HTTP clients acting on behalf of a patron
// send the same id in the X-Chat-ID header. The value is an identity hint,
// not a credential: staff operations require an admin token (see auth.go).
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderChatID carries the acting patron's chat id.
const HeaderChatID = "X-Chat-ID"

const ctxKeyChatID = "chatID"

// ChatIdentity parses X-Chat-ID when present and stores it in the context.
// A malformed header is rejected with 400; a missing one is not an error.
func ChatIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderChatID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_request",
				"message":    "invalid " + HeaderChatID,
			})
			return
		}
		c.Set(ctxKeyChatID, id)
		c.Next()
	}
}

// ChatIDFrom returns the chat id stored by ChatIdentity.
func ChatIDFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyChatID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}
