package xid

import (
	"time"

	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
)

// options 内部配置结构
type options struct {
	maxWaitDuration  time.Duration
	maxWaitSet       bool // 区分"未传入"与"显式传入 0"
	retryInterval    time.Duration
	retryIntervalSet bool // 区分"未传入"与"显式传入 0"
	breaker          *xbreaker.Breaker
}

// Option 配置选项函数
type Option func(*options)

// WithMaxWaitDuration 设置时钟异常时的最大等待时间。
//
// NewWithRetry 等方法遇到时钟回拨或停滞时，会在此时间内按 retryInterval 重试，
// 超过后返回 ErrClockBackwardTimeout。
//
// 默认值为 DefaultMaxWaitDuration（500ms），适合大多数 NTP 校时场景。
// 传入负值会在 NewGenerator 中返回错误（fail-fast）。
// 传入零值表示"不等待"，即首次失败后立即返回超时错误。
func WithMaxWaitDuration(d time.Duration) Option {
	return func(c *options) {
		c.maxWaitDuration = d
		c.maxWaitSet = true
	}
}

// WithRetryInterval 设置时钟异常时的重试间隔。
//
// 默认值为 DefaultRetryInterval（1ms，即时钟精度）。
// 传入负值会在 NewGenerator 中返回错误（fail-fast）。
// 传入零值表示"无间隔"，即不等待直接重新尝试。
func WithRetryInterval(d time.Duration) Option {
	return func(c *options) {
		c.retryInterval = d
		c.retryIntervalSet = true
	}
}

// WithBreaker 为每次发号尝试加上熔断保护。
//
// 熔断器打开时发号立即失败，返回的错误满足 xbreaker.IsOpen，且不会被重试。
// 建议配合 xbreaker.FailOn(xsnowflake.IsClockError) 使用，只让时钟类错误计入失败。
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(c *options) {
		c.breaker = b
	}
}
