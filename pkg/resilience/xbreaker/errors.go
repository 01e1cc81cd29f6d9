package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// 拦截错误直接复用 gobreaker 的哨兵值，调用方无需导入 gobreaker。
var (
	ErrOpenState       = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// 参数校验错误
var (
	// ErrNilBreaker 传入的 Breaker 为 nil
	ErrNilBreaker = errors.New("xbreaker: breaker cannot be nil")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")
)

// BreakerError 熔断器错误包装类型
//
// 包装 gobreaker 的错误（ErrOpenState、ErrTooManyRequests），
// 并实现 Retryable() 返回 false，让 xretry 不再重试这些错误。
// 熔断器打开时应快速失败，而不是继续在重试窗口内等待。
//
// 设计决策: Err/Name/State 保留为导出字段，便于调用方在日志和 HTTP 响应中直接读取。
type BreakerError struct {
	Err   error  // 原始错误（ErrOpenState 或 ErrTooManyRequests）
	Name  string // 熔断器名称
	State State  // 错误发生时的熔断器状态
}

// Error 实现 error 接口
func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

// Unwrap 实现 errors.Unwrap 接口
func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError 接口，熔断器错误不重试。
func (e *BreakerError) Retryable() bool {
	return false
}

// wrapBreakerError 如果是熔断器错误则包装，否则原样返回
//
// 只检查直接的 sentinel error，不遍历错误链，
// 避免把嵌套熔断器的错误归因到当前熔断器。
//
// 设计决策: 从错误类型推导状态（ErrOpenState→StateOpen, ErrTooManyRequests→StateHalfOpen），
// 而非在 Execute 返回后再查询 State()，避免两者之间状态已变化导致记录不一致。
func wrapBreakerError(err error, name string) error {
	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case gobreaker.ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 检查错误是否是熔断器打开错误
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsTooManyRequests 检查错误是否是半开状态下请求过多错误
func IsTooManyRequests(err error) bool {
	return errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsBreakerError 检查错误是否是熔断器相关错误（打开或请求过多）。
// 可用于区分熔断器拦截和业务错误。
func IsBreakerError(err error) bool {
	return IsOpen(err) || IsTooManyRequests(err)
}
