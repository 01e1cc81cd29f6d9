package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// 状态与计数沿用 gobreaker 的定义。
type (
	Counts = gobreaker.Counts
	State  = gobreaker.State
)

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// TripPolicy 熔断判定策略接口
//
// 当 ReadyToTrip 返回 true 时，熔断器将从 Closed 状态转换为 Open 状态。
type TripPolicy interface {
	// ReadyToTrip 判断是否应该触发熔断
	// counts 包含当前统计窗口内的请求统计信息
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略接口（可选）
//
// 默认情况下，err == nil 即为成功。
type SuccessPolicy interface {
	// IsSuccessful 判断操作是否成功
	IsSuccessful(err error) bool
}

// 默认配置
const (
	// DefaultTimeout Open 状态持续多久后进入 HalfOpen
	DefaultTimeout = 30 * time.Second

	// DefaultConsecutiveFailures 默认连续失败阈值
	DefaultConsecutiveFailures = 5
)

// Breaker 熔断器执行器
//
// Breaker 封装了 gobreaker 的熔断逻辑，使用 TripPolicy 抽象熔断判定。
// 所有方法都是并发安全的。
type Breaker struct {
	name          string
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)

	cb *gobreaker.CircuitBreaker[any]
}

// BreakerOption 熔断器配置选项
type BreakerOption func(*Breaker)

// WithTripPolicy 设置熔断判定策略，nil 被忽略。
//
// 默认策略：连续失败 DefaultConsecutiveFailures 次触发熔断
func WithTripPolicy(p TripPolicy) BreakerOption {
	return func(b *Breaker) {
		if p != nil {
			b.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略
//
// 某些场景下只有特定错误应当计为失败，参见 [FailOn]。
func WithSuccessPolicy(p SuccessPolicy) BreakerOption {
	return func(b *Breaker) {
		b.successPolicy = p
	}
}

// WithTimeout 设置熔断器从 Open 状态恢复到 HalfOpen 状态的超时时间，非正数被忽略。
//
// 默认值：DefaultTimeout
func WithTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithInterval 设置 Closed 状态下清除统计计数的周期（固定窗口）。
//
// 默认值：0（不清除，持续累积）
func WithInterval(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.interval = d
	}
}

// WithMaxRequests 设置 HalfOpen 状态下允许通过的最大请求数
//
// 默认值：1
func WithMaxRequests(n uint32) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调，可用于日志记录和监控告警。
func WithOnStateChange(f func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) {
		b.onStateChange = f
	}
}

// NewBreaker 创建熔断器执行器
//
// name 是熔断器的名称，用于日志和监控标识。
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:        name,
		tripPolicy:  NewConsecutiveFailures(DefaultConsecutiveFailures),
		timeout:     DefaultTimeout,
		maxRequests: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.cb = gobreaker.NewCircuitBreaker[any](b.settings())
	return b
}

// settings 构建 gobreaker 配置
func (b *Breaker) settings() gobreaker.Settings {
	st := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Interval:    b.interval,
		Timeout:     b.timeout,
		ReadyToTrip: b.tripPolicy.ReadyToTrip,
	}
	if b.successPolicy != nil {
		st.IsSuccessful = b.successPolicy.IsSuccessful
	}
	if b.onStateChange != nil {
		st.OnStateChange = b.onStateChange
	}
	return st
}

// Do 执行受熔断器保护的操作
//
// 如果 context 已取消，直接返回 context 错误，不计入统计。
// 熔断器处于 Open 状态时 fn 不会被执行，返回包装了 ErrOpenState 的 *BreakerError。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	_, err := Execute(ctx, b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute 执行受熔断器保护的操作（泛型版本）
//
// 此函数是包级函数而非方法，因为 Go 不支持方法的类型参数。
// 熔断器错误会被包装为 *BreakerError，Retryable() 返回 false。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil || b.cb == nil {
		return zero, ErrNilBreaker
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var out T
	_, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		out = v
		return nil, err
	})
	switch {
	case err == nil:
		return out, nil
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests: //nolint:errorlint // 只认本熔断器直接返回的 sentinel
		return zero, wrapBreakerError(err, b.name)
	default:
		// fn 自身的错误原样返回，即使 SuccessPolicy 将其计为成功
		return out, err
	}
}

// State 返回熔断器当前状态
func (b *Breaker) State() State {
	return b.cb.State()
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// Counts 返回当前统计计数
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}

// Timeout 返回 Open 状态持续时间，可用于计算 Retry-After。
func (b *Breaker) Timeout() time.Duration {
	return b.timeout
}
