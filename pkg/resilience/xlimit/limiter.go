package xlimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
)

// FallbackStrategy 分布式后端不可用时的降级策略
type FallbackStrategy string

const (
	// FallbackLocal 降级到进程内令牌桶（默认）
	FallbackLocal FallbackStrategy = "local"
	// FallbackOpen 放行所有请求
	FallbackOpen FallbackStrategy = "open"
	// FallbackClose 拒绝所有请求，返回 ErrBackendUnavailable
	FallbackClose FallbackStrategy = "close"
)

// ParseFallback 解析降级策略，空字符串返回 FallbackLocal。
func ParseFallback(s string) (FallbackStrategy, error) {
	switch f := FallbackStrategy(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FallbackLocal, nil
	case FallbackLocal, FallbackOpen, FallbackClose:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFallback, s)
	}
}

// DefaultKeyPrefix Redis key 前缀
const DefaultKeyPrefix = "xsnow:quota:"

type options struct {
	fallback      FallbackStrategy
	logger        xlog.Logger
	keyPrefix     string
	localCapacity int
	now           func() time.Time
}

// Option 限流器选项
type Option func(*options)

// WithFallback 设置降级策略
func WithFallback(f FallbackStrategy) Option {
	return func(o *options) {
		if f != "" {
			o.fallback = f
		}
	}
}

// WithLogger 设置降级日志，nil 被忽略
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeyPrefix 设置 key 前缀，用于多个服务共用同一 Redis
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithLocalCapacity 设置本地后端最多跟踪的 key 数量，非正值被忽略
func WithLocalCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.localCapacity = n
		}
	}
}

// WithNowFunc 设置本地后端的时钟，用于测试
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Limiter 按 key 的令牌桶限流器。
//
// 所有方法并发安全。分布式模式下 Redis 连接类错误按降级策略处理，
// 其他错误（如 ctx 取消）原样返回。
type Limiter struct {
	primary backend
	local   *localBackend
	quota   Quota
	opts    *options
}

func newLimiter(quota Quota, opts []Option) (*Limiter, error) {
	if err := quota.Validate(); err != nil {
		return nil, err
	}
	o := &options{
		fallback:      FallbackLocal,
		logger:        xlog.Discard(),
		keyPrefix:     DefaultKeyPrefix,
		localCapacity: DefaultLocalCapacity,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if _, err := ParseFallback(string(o.fallback)); err != nil {
		return nil, err
	}
	local, err := newLocalBackend(o.localCapacity, o.now)
	if err != nil {
		return nil, err
	}
	return &Limiter{local: local, quota: quota.normalize(), opts: o}, nil
}

// New 创建以 Redis 为主、按降级策略兜底的分布式限流器。
// 不关闭注入的 rdb。
func New(rdb redis.UniversalClient, quota Quota, opts ...Option) (*Limiter, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	l, err := newLimiter(quota, opts)
	if err != nil {
		return nil, err
	}
	l.primary = newRedisBackend(rdb)
	return l, nil
}

// NewLocal 创建纯进程内限流器，适用于单实例部署。
func NewLocal(quota Quota, opts ...Option) (*Limiter, error) {
	l, err := newLimiter(quota, opts)
	if err != nil {
		return nil, err
	}
	l.primary = l.local
	return l, nil
}

// Quota 返回生效的配额（Burst 已补全）。
func (l *Limiter) Quota() Quota { return l.quota }

// Backend 返回主后端类型。
func (l *Limiter) Backend() string { return l.primary.name() }

// AllowN 检查 key 是否还有 n 个令牌并扣减。
//
// 超出配额时返回 Allowed=false 的 Result 和 nil error；
// n 超过 Burst 返回 ErrCostExceedsBurst，因为这样的请求永远不会被放行。
func (l *Limiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCost, n)
	}
	if n > l.quota.Burst {
		return nil, fmt.Errorf("%w: cost %d, burst %d", ErrCostExceedsBurst, n, l.quota.Burst)
	}

	key = l.opts.keyPrefix + key
	res, err := l.primary.allowN(ctx, key, l.quota, n)
	if err == nil || l.primary == backend(l.local) || !IsBackendError(err) {
		return res, err
	}
	return l.fallback(ctx, key, n, err)
}

func (l *Limiter) fallback(ctx context.Context, key string, n int, cause error) (*Result, error) {
	l.opts.logger.Warn(ctx, "rate limiter falling back",
		xlog.Component("xlimit"),
		xlog.Operation(string(l.opts.fallback)),
		xlog.Err(cause),
	)
	switch l.opts.fallback {
	case FallbackOpen:
		return &Result{Allowed: true, Backend: BackendFallbackOpen}, nil
	case FallbackClose:
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, cause)
	default:
		return l.local.allowN(ctx, key, l.quota, n)
	}
}

// Reset 清空 key 的配额记录。分布式模式下同时清空本地降级桶。
func (l *Limiter) Reset(ctx context.Context, key string) error {
	key = l.opts.keyPrefix + key
	if err := l.local.reset(ctx, key); err != nil {
		return err
	}
	if l.primary == backend(l.local) {
		return nil
	}
	return l.primary.reset(ctx, key)
}

// Ping 检查主后端是否可达。本地后端总是可达。
func (l *Limiter) Ping(ctx context.Context) error {
	return l.primary.ping(ctx)
}
