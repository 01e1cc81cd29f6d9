package xbreaker

// ConsecutiveFailuresPolicy 连续失败熔断策略
//
// 当连续失败次数达到阈值时触发熔断。
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败熔断策略。threshold 为 0 时按 1 处理。
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: max(threshold, 1)}
}

// ReadyToTrip 判断是否应该触发熔断
func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// Threshold 返回阈值
func (p *ConsecutiveFailuresPolicy) Threshold() uint32 {
	return p.threshold
}

// FailureRatioPolicy 失败率熔断策略
//
// 当失败率超过阈值时触发熔断。
// 只有当请求数达到最小请求数时才会计算失败率。
type FailureRatioPolicy struct {
	ratio       float64 // 失败率阈值 (0.0 - 1.0)
	minRequests uint32
}

// NewFailureRatio 创建失败率熔断策略
//
// ratio: 失败率阈值 (0.0 - 1.0)，超出范围会被截断
// minRequests: 最小请求数，请求数不足时不触发熔断
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	return &FailureRatioPolicy{
		ratio:       min(max(ratio, 0), 1),
		minRequests: minRequests,
	}
}

// ReadyToTrip 判断是否应该触发熔断
func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	// 请求数不足或为零，不触发熔断（避免除零）
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.ratio
}

// Ratio 返回失败率阈值
func (p *FailureRatioPolicy) Ratio() float64 { return p.ratio }

// SuccessFunc 将函数适配为 SuccessPolicy。
type SuccessFunc func(err error) bool

// IsSuccessful 实现 SuccessPolicy 接口。
func (f SuccessFunc) IsSuccessful(err error) bool { return f(err) }

// FailOn 返回只把 isFailure 判定为 true 的错误计为失败的策略，
// 其他错误（以及 nil）都算成功。
func FailOn(isFailure func(error) bool) SuccessPolicy {
	return SuccessFunc(func(err error) bool {
		return err == nil || !isFailure(err)
	})
}

var (
	_ TripPolicy    = (*ConsecutiveFailuresPolicy)(nil)
	_ TripPolicy    = (*FailureRatioPolicy)(nil)
	_ SuccessPolicy = SuccessFunc(nil)
)
