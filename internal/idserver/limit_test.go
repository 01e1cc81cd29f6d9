package idserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsnow/pkg/resilience/xlimit"
)

func TestLimiter_CostIsCount(t *testing.T) {
	lim, err := xlimit.NewLocal(xlimit.Quota{Limit: 10, Window: time.Hour})
	require.NoError(t, err)
	h := newServer(t, newGenerator(t), WithLimiter(lim)).Handler()

	rec := do(t, h, "/v1/ids?count=8", xlimit.HeaderClientID, "svc-a")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(t, h, "/v1/ids?count=3", xlimit.HeaderClientID, "svc-a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, errorBody{Error: xlimit.ErrRateLimited.Error(), Code: CodeRateLimited}, decode[errorBody](t, rec))

	// 剩余配额仍可用
	rec = do(t, h, "/v1/ids?count=2", xlimit.HeaderClientID, "svc-a")
	assert.Equal(t, http.StatusOK, rec.Code)

	// 其他客户端独立计数
	rec = do(t, h, "/v1/ids?count=10", xlimit.HeaderClientID, "svc-b")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimiter_InvalidCountNotCharged(t *testing.T) {
	lim, err := xlimit.NewLocal(xlimit.Quota{Limit: 10, Window: time.Hour})
	require.NoError(t, err)
	h := newServer(t, newGenerator(t), WithLimiter(lim)).Handler()

	rec := do(t, h, "/v1/ids?count=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidCount, decode[errorBody](t, rec).Code)

	rec = do(t, h, "/v1/ids?count=10")
	assert.Equal(t, http.StatusOK, rec.Code, "非法请求不消耗配额")
}

func TestLimiter_OnlyIssuingRoute(t *testing.T) {
	lim, err := xlimit.NewLocal(xlimit.Quota{Limit: 1, Window: time.Hour})
	require.NoError(t, err)
	s := newServer(t, newGenerator(t), WithLimiter(lim))
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, "/v1/ids").Code)
	require.Equal(t, http.StatusTooManyRequests, do(t, h, "/v1/ids").Code)

	assert.Equal(t, http.StatusOK, do(t, h, "/v1/layout").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "/healthz").Code)
}

func TestLimiter_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	lim, err := xlimit.New(rdb, xlimit.Quota{Limit: 10, Window: time.Second}, xlimit.WithFallback(xlimit.FallbackClose))
	require.NoError(t, err)
	h := newServer(t, newGenerator(t), WithLimiter(lim)).Handler()

	require.Equal(t, http.StatusOK, do(t, h, "/v1/ids").Code)

	mr.Close()
	rec := do(t, h, "/v1/ids")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeQuotaDown, decode[errorBody](t, rec).Code)
}
