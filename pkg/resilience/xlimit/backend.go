package xlimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// 后端类型标识
const (
	BackendDistributed  = "distributed"
	BackendLocal        = "local"
	BackendFallbackOpen = "fallback-open"
)

// backend 限流后端，只负责底层的令牌桶检查。实现必须并发安全。
type backend interface {
	allowN(ctx context.Context, key string, q Quota, n int) (*Result, error)
	reset(ctx context.Context, key string) error
	ping(ctx context.Context) error
	name() string
}

// =============================================================================
// Redis 后端
// =============================================================================

// redisBackend 基于 redis_rate（GCRA）的分布式后端，同一 key 在所有实例间共享配额。
type redisBackend struct {
	rdb     redis.UniversalClient
	limiter *redis_rate.Limiter
}

func newRedisBackend(rdb redis.UniversalClient) *redisBackend {
	return &redisBackend{rdb: rdb, limiter: redis_rate.NewLimiter(rdb)}
}

func (b *redisBackend) ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *redisBackend) name() string { return BackendDistributed }

func (b *redisBackend) allowN(ctx context.Context, key string, q Quota, n int) (*Result, error) {
	res, err := b.limiter.AllowN(ctx, key, redis_rate.Limit{
		Rate:   q.Limit,
		Burst:  q.Burst,
		Period: q.Window,
	}, n)
	if err != nil {
		return nil, err
	}
	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      q.Burst,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
		Backend:    BackendDistributed,
	}, nil
}

func (b *redisBackend) reset(ctx context.Context, key string) error {
	return b.limiter.Reset(ctx, key)
}

// =============================================================================
// 本地后端
// =============================================================================

// DefaultLocalCapacity 本地后端最多跟踪的 key 数量
const DefaultLocalCapacity = 10_000

// localBackend 进程内令牌桶，作为单实例部署或分布式后端的降级方案。
//
// 设计决策: 用 LRU 限定跟踪的 key 数量，客户端 ID 来自请求头，
// 无界 map 会被伪造的 ID 撑爆。被淘汰的 key 下次访问时以满桶重新开始。
type localBackend struct {
	buckets *lru.Cache[string, *tokenBucket]
	now     func() time.Time
}

func newLocalBackend(capacity int, now func() time.Time) (*localBackend, error) {
	cache, err := lru.New[string, *tokenBucket](capacity)
	if err != nil {
		return nil, err
	}
	return &localBackend{buckets: cache, now: now}, nil
}

func (b *localBackend) name() string { return BackendLocal }

func (b *localBackend) allowN(ctx context.Context, key string, q Quota, n int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := b.now()
	bucket, ok := b.buckets.Get(key)
	if !ok {
		bucket = &tokenBucket{tokens: float64(q.Burst), last: now}
		if prev, found, _ := b.buckets.PeekOrAdd(key, bucket); found {
			bucket = prev
		}
	}

	allowed, remaining, retryAfter, resetAfter := bucket.take(now, q, n)
	return &Result{
		Allowed:    allowed,
		Limit:      q.Burst,
		Remaining:  remaining,
		ResetAt:    now.Add(resetAfter),
		RetryAfter: retryAfter,
		Backend:    BackendLocal,
	}, nil
}

func (b *localBackend) ping(ctx context.Context) error { return ctx.Err() }

func (b *localBackend) reset(_ context.Context, key string) error {
	b.buckets.Remove(key)
	return nil
}

// tokenBucket 令牌桶
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// take 尝试取出 n 个令牌。
func (tb *tokenBucket) take(now time.Time, q Quota, n int) (allowed bool, remaining int, retryAfter, resetAfter time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	// 每秒补充的令牌数
	rate := float64(q.Limit) / q.Window.Seconds()
	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.tokens = min(tb.tokens+rate*elapsed.Seconds(), float64(q.Burst))
		tb.last = now
	}

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		allowed = true
	} else {
		deficit := float64(n) - tb.tokens
		retryAfter = time.Duration(deficit / rate * float64(time.Second))
	}
	resetAfter = time.Duration((float64(q.Burst) - tb.tokens) / rate * float64(time.Second))
	return allowed, int(tb.tokens), retryAfter, resetAfter
}
