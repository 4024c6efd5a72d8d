package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/tracked", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/tracked", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	r := setupLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1"))
	}
	require.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.1"))
}

func TestRateLimiter_BucketsArePerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	r := setupLimitedRouter(rl)

	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.1"))

	// A different client still has its full budget.
	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.2"))
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(100, 1)
	r := setupLimitedRouter(rl)

	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.1"))

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1"))
}

func TestRateLimiter_CleanupDropsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.idleTTL = time.Millisecond

	rl.get("10.0.0.1")
	require.Len(t, rl.entries, 1)

	time.Sleep(5 * time.Millisecond)
	rl.cleanup()
	require.Empty(t, rl.entries)
}
