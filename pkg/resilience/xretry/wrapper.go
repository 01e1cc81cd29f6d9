package xretry

import (
	"context"

	retry "github.com/avast/retry-go/v5"
)

// 按次数重试的选项直接沿用 retry-go，只导出实际用到的部分。
type Option = retry.Option

var (
	// Attempts 总尝试次数（包含首次），0 表示无限重试
	Attempts = retry.Attempts
	// Delay 重试间隔
	Delay     = retry.Delay
	DelayType = retry.DelayType
	// FixedDelay 固定间隔，不做指数退避
	FixedDelay = retry.FixedDelay
	OnRetry    = retry.OnRetry
	RetryIf    = retry.RetryIf

	// Unrecoverable 标记错误不再重试
	Unrecoverable = retry.Unrecoverable
	IsRecoverable = retry.IsRecoverable
)

// Do 按次数重试 fn，用于启动阶段的依赖探测这类一次性操作。
//
// 默认跳过 Unrecoverable 和 PermanentError，调用方传入 RetryIf 时覆盖；
// 只返回最后一次的错误。
//
//	err := xretry.Do(ctx, func() error {
//	    return limiter.Ping(ctx)
//	}, xretry.Attempts(3), xretry.Delay(200*time.Millisecond))
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	all := append([]Option{
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		RetryIf(func(err error) bool {
			return IsRecoverable(err) && IsRetryable(err)
		}),
	}, opts...)
	return retry.New(all...).Do(fn)
}
