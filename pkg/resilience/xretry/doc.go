// Package xretry 提供基于 [avast/retry-go/v5] 的重试能力。
//
// 两种使用方式：
//
//   - Do / DoWithData：retry-go 风格，按次数重试，默认尊重错误分类
//   - DoWithin：在固定时间窗口内按固定间隔重试，适用于等待时钟恢复这类
//     "过一会儿大概率就好了"的场景
//
// # 错误分类
//
//   - NewPermanentError(err)：标记为永久性错误（不应重试）
//   - Unrecoverable(err)：retry-go 风格的不可恢复错误
//
// 窗口耗尽时 DoWithin 返回的错误同时匹配 [ErrWindowExceeded] 和最后一次的错误。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
