package xlimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// fakeNow 可手动推进的时钟
type fakeNow struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var quota10 = Quota{Limit: 10, Window: time.Second}

// =============================================================================
// 构造与参数
// =============================================================================

func TestQuota_Validate(t *testing.T) {
	require.NoError(t, quota10.Validate())
	for _, q := range []Quota{
		{Limit: 0, Window: time.Second},
		{Limit: 1, Burst: -1, Window: time.Second},
		{Limit: 1, Window: 0},
	} {
		assert.ErrorIs(t, q.Validate(), ErrInvalidQuota, "%+v", q)
	}
	assert.Equal(t, 10, quota10.normalize().Burst)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, quota10)
	require.ErrorIs(t, err, ErrNilClient)

	_, err = NewLocal(Quota{})
	require.ErrorIs(t, err, ErrInvalidQuota)

	_, err = NewLocal(quota10, WithFallback("sometimes"))
	require.ErrorIs(t, err, ErrInvalidFallback)
}

func TestParseFallback(t *testing.T) {
	for in, want := range map[string]FallbackStrategy{
		"":       FallbackLocal,
		"local":  FallbackLocal,
		" OPEN ": FallbackOpen,
		"close":  FallbackClose,
	} {
		got, err := ParseFallback(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFallback("maybe")
	assert.ErrorIs(t, err, ErrInvalidFallback)
}

func TestAllowN_InvalidCost(t *testing.T) {
	l, err := NewLocal(quota10)
	require.NoError(t, err)

	_, err = l.AllowN(context.Background(), "k", 0)
	require.ErrorIs(t, err, ErrInvalidCost)
	_, err = l.AllowN(context.Background(), "k", 11)
	require.ErrorIs(t, err, ErrCostExceedsBurst)
}

// =============================================================================
// 本地后端
// =============================================================================

func TestLocal_ExhaustAndRefill(t *testing.T) {
	clock := &fakeNow{now: time.Unix(1_700_000_000, 0)}
	l, err := NewLocal(quota10, WithNowFunc(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, l.Backend())

	ctx := context.Background()
	res, err := l.AllowN(ctx, "client", 7)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
	assert.Equal(t, 10, res.Limit)

	res, err = l.AllowN(ctx, "client", 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 200*time.Millisecond, res.RetryAfter)

	// 每 100ms 补充 1 个令牌
	clock.Advance(200 * time.Millisecond)
	res, err = l.AllowN(ctx, "client", 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// 不同 key 互不影响
	res, err = l.AllowN(ctx, "other", 10)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocal_Reset(t *testing.T) {
	l, err := NewLocal(quota10)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.AllowN(ctx, "k", 10)
	require.NoError(t, err)
	res, err := l.AllowN(ctx, "k", 1)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, l.Reset(ctx, "k"))
	res, err = l.AllowN(ctx, "k", 10)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocal_CapacityEvicts(t *testing.T) {
	l, err := NewLocal(quota10, WithLocalCapacity(1))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.AllowN(ctx, "a", 10)
	require.NoError(t, err)
	_, err = l.AllowN(ctx, "b", 1)
	require.NoError(t, err)

	// a 已被淘汰，以满桶重新开始
	res, err := l.AllowN(ctx, "a", 10)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocal_Concurrent(t *testing.T) {
	l, err := NewLocal(Quota{Limit: 100, Window: time.Hour})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 20 {
		wg.Go(func() {
			for range 10 {
				res, err := l.AllowN(context.Background(), "shared", 1)
				if assert.NoError(t, err) && res.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestLocal_CanceledContext(t *testing.T) {
	l, err := NewLocal(quota10)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.AllowN(ctx, "k", 1)
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Redis 后端
// =============================================================================

func TestRedis_AllowAndExhaust(t *testing.T) {
	mr, client := setupMiniredis(t)
	l, err := New(client, Quota{Limit: 10, Window: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, BackendDistributed, l.Backend())

	ctx := context.Background()
	res, err := l.AllowN(ctx, "tenant", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 9, res.Remaining)
	assert.Equal(t, BackendDistributed, res.Backend)
	assert.NotEmpty(t, mr.Keys())

	res, err = l.AllowN(ctx, "tenant", 9)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.AllowN(ctx, "tenant", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	require.NoError(t, l.Reset(ctx, "tenant"))
	res, err = l.AllowN(ctx, "tenant", 10)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedis_SharedAcrossLimiters(t *testing.T) {
	_, client := setupMiniredis(t)
	a, err := New(client, Quota{Limit: 5, Window: time.Minute})
	require.NoError(t, err)
	b, err := New(client, Quota{Limit: 5, Window: time.Minute})
	require.NoError(t, err)

	ctx := context.Background()
	res, err := a.AllowN(ctx, "k", 5)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = b.AllowN(ctx, "k", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestRedis_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		strategy FallbackStrategy
		check    func(t *testing.T, res *Result, err error)
	}{
		{"local", FallbackLocal, func(t *testing.T, res *Result, err error) {
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, BackendLocal, res.Backend)
		}},
		{"open", FallbackOpen, func(t *testing.T, res *Result, err error) {
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, BackendFallbackOpen, res.Backend)
		}},
		{"close", FallbackClose, func(t *testing.T, res *Result, err error) {
			require.ErrorIs(t, err, ErrBackendUnavailable)
			assert.Nil(t, res)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := setupMiniredis(t)
			l, err := New(client, quota10, WithFallback(tt.strategy))
			require.NoError(t, err)
			mr.Close()

			res, err := l.AllowN(context.Background(), "k", 1)
			tt.check(t, res, err)
		})
	}
}

func TestPing(t *testing.T) {
	local, err := NewLocal(quota10)
	require.NoError(t, err)
	require.NoError(t, local.Ping(context.Background()))

	mr, client := setupMiniredis(t)
	l, err := New(client, quota10)
	require.NoError(t, err)
	require.NoError(t, l.Ping(context.Background()))

	mr.Close()
	err = l.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsBackendError(err))
}

func TestIsBackendError(t *testing.T) {
	assert.False(t, IsBackendError(nil))
	assert.False(t, IsBackendError(context.Canceled))
	assert.True(t, IsBackendError(redis.ErrClosed))
}
