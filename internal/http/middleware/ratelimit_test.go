package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ChatIdentity())
	r.Use(pre...)
	r.Use(rl.Handler())
	r.GET("/songs", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_PerChatBuckets(t *testing.T) {
	rl := NewRateLimiter(0, 2, nil)
	r := limitedRouter(rl)

	one := map[string]string{HeaderChatID: "1"}
	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodGet, "/songs", one); w.Code != http.StatusOK {
			t.Fatalf("request %d: status=%d", i, w.Code)
		}
	}
	w := serve(r, http.MethodGet, "/songs", one)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 429 with Retry-After, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != "rate_limited" || body["request_id"] == "" {
		t.Fatalf("body=%v", body)
	}

	if w := serve(r, http.MethodGet, "/songs", map[string]string{HeaderChatID: "2"}); w.Code != http.StatusOK {
		t.Fatalf("other chat must have its own bucket, got %d", w.Code)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, nil)
	r := limitedRouter(rl, func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			MarkReplay(c, 1)
		}
		c.Next()
	})
	hdr := map[string]string{HeaderChatID: "1"}
	serve(r, http.MethodGet, "/songs", hdr)
	if w := serve(r, http.MethodGet, "/songs", hdr); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected bucket exhausted, got %d", w.Code)
	}
	hdr["X-Replay"] = "1"
	if w := serve(r, http.MethodGet, "/songs", hdr); w.Code != http.StatusOK {
		t.Fatalf("replay must bypass the limiter, got %d", w.Code)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("chat:old")
	now = now.Add(rl.ttl)
	rl.sweepN = sweepEvery - 1
	rl.limiter("chat:new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["chat:old"]; ok {
		t.Fatalf("idle bucket not evicted")
	}
	if _, ok := rl.visitors["chat:new"]; !ok || rl.sweepN != 0 {
		t.Fatalf("new bucket missing or counter not reset")
	}
}

func TestKeyByCaller(t *testing.T) {
	key := KeyByCaller()
	r := gin.New()
	r.Use(ChatIdentity())
	r.GET("/", func(c *gin.Context) {
		if c.GetHeader("X-Admin") != "" {
			c.Set(ctxKeyAdminSubject, "staff")
		}
		c.String(http.StatusOK, key(c))
	})

	cases := []struct {
		hdr  map[string]string
		want string
	}{
		{map[string]string{HeaderChatID: "9", "X-Admin": "1"}, "admin:staff"},
		{map[string]string{HeaderChatID: "9"}, "chat:9"},
		{nil, "ip:192.0.2.1"},
	}
	for _, tc := range cases {
		if got := serve(r, http.MethodGet, "/", tc.hdr).Body.String(); got != tc.want {
			t.Fatalf("key=%q want %q", got, tc.want)
		}
	}
}

func TestNewRateLimiter_CoercesBurst(t *testing.T) {
	if rl := NewRateLimiter(1, 0, nil); rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("burst=%d keyFn nil=%v", rl.burst, rl.keyFn == nil)
	}
}
