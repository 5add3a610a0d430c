package mockapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/raven-widget/internal/chat"
	"github.com/wolfman30/raven-widget/internal/chatapi"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	clock := &fakeClock{t: fixedNow()}
	rl := newRateLimiter(1, 2, clock.now)

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "buckets are per client")

	clock.t = clock.t.Add(1500 * time.Millisecond)
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := &fakeClock{t: fixedNow()}
	rl := newRateLimiter(1, 1, clock.now)
	rl.allow("idle")

	clock.t = clock.t.Add(bucketIdleTTL + sweepInterval)
	rl.allow("fresh")
	_, kept := rl.buckets["idle"]
	assert.False(t, kept)
	assert.Len(t, rl.buckets, 1)
}

func TestRateLimit_Middleware(t *testing.T) {
	handler := RateLimit(1, fixedNow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.7")
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestEndToEnd_RateLimitedSendShowsError(t *testing.T) {
	h := newHarness(t, Config{Profiles: map[string]chatapi.BusinessProfile{"biz": DemoProfile()}, ChatRatePerMinute: 1}, 0)
	c, session := h.controller(t, "biz")
	require.NoError(t, c.Open())

	send(t, c, "first")
	send(t, c, "second")

	items := c.Items()
	last := items[len(items)-1]
	assert.True(t, last.IsError)
	assert.Equal(t, chat.RoleAssistant, last.Role)
	assert.Equal(t, "Sorry, I'm having a technical issue. Please try again.", last.Text)
	assert.Len(t, session.Messages(), 3, "user messages stay in history after a failed send")
}
