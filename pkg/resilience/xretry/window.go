package xretry

import (
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Window 固定间隔重试窗口。
type Window struct {
	// MaxWait 从首次失败起最多等待的时间，0 表示不重试
	MaxWait time.Duration
	// Interval 两次尝试之间的间隔
	Interval time.Duration
}

// errWindowClosed 作为窗口 context 的取消原因，用于区分窗口耗尽与调用方取消。
var errWindowClosed = errors.New("xretry: window closed")

// DoWithin 先执行一次 fn；失败且 retryIf 返回 true 时，在 w.MaxWait 内
// 每隔 w.Interval 重试一次。
//
// 返回值：
//   - 任一次成功：结果与 nil
//   - 遇到 retryIf 判定为不可重试的错误：立即原样返回该错误
//   - 调用方 ctx 取消：ctx.Err()
//   - 窗口耗尽：同时包裹 [ErrWindowExceeded] 和最后一次错误
//
// retryIf 为 nil 时使用 IsRetryable。
func DoWithin[T any](ctx context.Context, w Window, fn func() (T, error), retryIf func(error) bool) (T, error) {
	if retryIf == nil {
		retryIf = IsRetryable
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	// 快速路径：首次尝试不创建 timer 和 context
	v, err := fn()
	if err == nil || !retryIf(err) {
		return v, err
	}
	if w.MaxWait <= 0 {
		return v, fmt.Errorf("%w: %w", ErrWindowExceeded, err)
	}

	wctx, cancel := context.WithTimeoutCause(ctx, w.MaxWait, errWindowClosed)
	defer cancel()

	last := err
	v, err = retry.NewWithData[T](
		retry.Context(wctx),
		retry.Attempts(0),
		retry.Delay(w.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			last = err
			return retryIf(err)
		}),
	).Do(fn)
	if err == nil {
		return v, nil
	}

	switch {
	case ctx.Err() != nil:
		return v, ctx.Err()
	case errors.Is(context.Cause(wctx), errWindowClosed):
		return v, fmt.Errorf("%w: %w", ErrWindowExceeded, last)
	default:
		// retryIf 拒绝的错误
		return v, err
	}
}
