package xsnowflake

import "time"

// options 内部配置结构
type options struct {
	clock   Clock
	maxSpin time.Duration
}

// Option 配置选项函数
type Option func(*options)

func defaultOptions() *options {
	return &options{
		clock: SystemClock{},
	}
}

// WithClock 设置时钟读取器。
//
// 默认使用 [SystemClock]。测试中可注入确定性的时钟序列。
// 传入 nil 会被忽略。
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithClockFunc 以函数形式设置时钟读取器，等价于 WithClock(ClockFunc(fn))。
// 传入 nil 会被忽略。
func WithClockFunc(fn func() int64) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = ClockFunc(fn)
		}
	}
}

// WithMaxSpin 设置序列号耗尽时等待下一毫秒的最长时间。
//
// 默认值为 0，表示无限等待（时钟不前进则一直自旋）。
// 设置为正数后，超时返回 [ErrClockStalled]，生成器状态保持不变。
// 传入负值会在 New 中返回 [ErrInvalidConfig]。
func WithMaxSpin(d time.Duration) Option {
	return func(o *options) {
		o.maxSpin = d
	}
}
