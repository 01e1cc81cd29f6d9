// Package xbreaker 提供熔断器功能，基于 [sony/gobreaker/v2]。
//
// 在 xsnow 中，熔断器包在 ID 生成外层：时钟持续异常（反复回拨或停滞）时
// 快速失败，避免所有请求都在重试窗口里排队等待。
//
// # 熔断器状态
//
//   - StateClosed（关闭）：正常状态，请求正常通过
//   - StateOpen（打开）：熔断状态，请求直接失败
//   - StateHalfOpen（半开）：探测状态，允许部分请求通过
//
// # 熔断策略
//
//   - ConsecutiveFailuresPolicy：连续失败 N 次后熔断（默认 5 次）
//   - FailureRatioPolicy：失败率超过阈值后熔断
//
// 通过 WithSuccessPolicy 可以只把特定错误计为失败，例如只统计时钟类错误，
// 而参数错误不影响熔断器。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
