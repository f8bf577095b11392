// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for order placement. It validates
// the Idempotency-Key request header, looks up a previously recorded result
// for (owner, key) and annotates the request context so downstream handlers
// can:
//   - read the normalized key (GetIdempotencyKey)
//   - serve the recorded order instead of placing a new one (ReplayOrderID)
//   - bypass rate limiting when a replay is served (via an internal flag)
//
// The owner is the chat id from X-Chat-ID; without it no lookup happens and
// the handler performs its own lookup once the request body names the owner.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on responses served from a
// recorded result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemOrder  = "idem.order" // uint64: recorded order id
	ctxKeyRateBypass = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions configures header validation for IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 128, the
	// width of the stored column.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the order recorded for (owner, key) if a
// still-valid record exists at now. Errors never block the request.
type IdempotencyLookup func(ctx context.Context, owner, key string, now time.Time) (orderID uint64, found bool, err error)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// ReplayOrderID returns the recorded order id when the request replays a
// completed one.
func ReplayOrderID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ctxKeyIdemOrder)
	if !ok {
		return 0, false
	}
	id, _ := v.(uint64)
	return id, id != 0
}

// IdempotencyValidator validates Idempotency-Key (when present) and resolves
// replays through lookup.
//
// Behavior:
//   - Header absent: no-op.
//   - Header invalid: 400 bad_idempotency_key.
//   - Lookup hit: stashes the recorded order id and marks the request for
//     rate-limit bypass.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid " + HeaderIdempotencyKey,
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if chatID, ok := ChatIDFrom(c); ok && lookup != nil {
			owner := strconv.FormatInt(chatID, 10)
			if id, found, err := lookup(c.Request.Context(), owner, key, time.Now().UTC()); err == nil && found {
				MarkReplay(c, id)
			}
		}
		c.Next()
	}
}

// MarkReplay records that the request is served from a recorded order.
func MarkReplay(c *gin.Context, orderID uint64) {
	c.Set(ctxKeyIdemOrder, orderID)
	c.Set(ctxKeyRateBypass, true)
}
