package xsnowflake

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrInvalidConfig 配置参数无效。
	// 仅在 New 构造阶段返回，具体原因见 [ConfigError]。
	ErrInvalidConfig = errors.New("xsnowflake: invalid config")

	// ErrClockRollback 时钟回拨。
	// 具体回拨幅度见 [ClockRollbackError]。
	ErrClockRollback = errors.New("xsnowflake: clock moved backwards")

	// ErrClockStalled 序列号耗尽后，时钟在 WithMaxSpin 指定时间内未前进。
	// 仅在配置了 WithMaxSpin 时出现。
	ErrClockStalled = errors.New("xsnowflake: clock stalled while waiting for next millisecond")

	// ErrOverTimeLimit 时间分量超出位布局可表示的范围（早于 epoch 或超过时间字段上限）。
	ErrOverTimeLimit = errors.New("xsnowflake: timestamp out of layout range")

	// ErrInvalidCount NextIDs 的数量参数必须为正数。
	ErrInvalidCount = errors.New("xsnowflake: count must be positive")

	// ErrNilGenerator 生成器为 nil 或未通过 New 创建。
	ErrNilGenerator = errors.New("xsnowflake: nil generator (use New to create)")
)

// ConfigError 描述构造失败的具体字段和原因。
//
// 支持 errors.Is(err, ErrInvalidConfig) 判断。
type ConfigError struct {
	// Field 出错的配置字段名
	Field string
	// Reason 人类可读的失败原因
	Reason string
}

// Error 实现 error 接口。
func (e *ConfigError) Error() string {
	return fmt.Sprintf("xsnowflake: invalid config: %s: %s", e.Field, e.Reason)
}

// Is 支持 errors.Is(err, ErrInvalidConfig)。
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ClockRollbackError 时钟回拨错误，携带回拨幅度用于诊断。
//
// 生成器不做任何修正，也不重试；调用方决定重试、失败请求还是告警。
// 支持 errors.Is(err, ErrClockRollback) 判断。
type ClockRollbackError struct {
	// Last 上一次发号时的毫秒时间戳（Unix 毫秒）
	Last int64
	// Now 本次读取到的毫秒时间戳（Unix 毫秒），严格小于 Last
	Now int64
}

// Error 实现 error 接口。
func (e *ClockRollbackError) Error() string {
	return fmt.Sprintf("xsnowflake: clock moved backwards by %dms (last=%d, now=%d), refusing to generate id",
		e.Last-e.Now, e.Last, e.Now)
}

// Is 支持 errors.Is(err, ErrClockRollback)。
func (e *ClockRollbackError) Is(target error) bool {
	return target == ErrClockRollback
}

// Backward 返回时钟回拨的幅度。
func (e *ClockRollbackError) Backward() time.Duration {
	return time.Duration(e.Last-e.Now) * time.Millisecond
}

// IsClockError 判断错误是否由时钟异常引起（回拨或停滞）。
//
// 这类错误反映的是运行环境的时钟稳定性，而不是请求本身的问题，
// 服务端应映射为 5xx 类错误，调用方可以择机重试。
func IsClockError(err error) bool {
	return errors.Is(err, ErrClockRollback) || errors.Is(err, ErrClockStalled)
}
