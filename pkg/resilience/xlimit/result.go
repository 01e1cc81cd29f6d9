package xlimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Quota 令牌桶配额：每个 Window 补充 Limit 个令牌，桶容量为 Burst。
type Quota struct {
	Limit  int
	Burst  int
	Window time.Duration
}

// Validate 校验配额。Burst 为 0 时视为与 Limit 相同。
func (q Quota) Validate() error {
	switch {
	case q.Limit <= 0:
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuota, q.Limit)
	case q.Burst < 0:
		return fmt.Errorf("%w: burst must be >= 0, got %d", ErrInvalidQuota, q.Burst)
	case q.Window <= 0:
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidQuota, q.Window)
	}
	return nil
}

func (q Quota) normalize() Quota {
	if q.Burst == 0 {
		q.Burst = q.Limit
	}
	return q
}

// Result 一次配额检查的结果
type Result struct {
	// Allowed 是否放行
	Allowed bool

	// Limit 桶容量
	Limit int

	// Remaining 检查后剩余令牌
	Remaining int

	// ResetAt 令牌桶回满的时间
	ResetAt time.Time

	// RetryAfter 建议重试等待时间（仅在 Allowed=false 时有意义）
	RetryAfter time.Duration

	// Backend 实际执行检查的后端：distributed / local / fallback-open
	Backend string
}

// Headers 返回标准限流响应头
// - X-RateLimit-Limit: 桶容量
// - X-RateLimit-Remaining: 剩余令牌
// - X-RateLimit-Reset: 回满时间（Unix 时间戳）
// - Retry-After: 重试等待秒数（仅在被限流时，向上取整确保最小值为 1）
func (r *Result) Headers() map[string]string {
	headers := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
	if !r.Allowed && r.RetryAfter > 0 {
		// 设计决策: 向上取整，避免亚秒级等待被截断为 0 导致客户端立即重试。
		headers["Retry-After"] = strconv.FormatInt(int64(math.Ceil(r.RetryAfter.Seconds())), 10)
	}
	return headers
}

// SetHeaders 将限流响应头写入 w。Limit <= 0 表示没有有效配额信息（如 fallback-open），跳过。
func (r *Result) SetHeaders(w http.ResponseWriter) {
	if r.Limit <= 0 {
		return
	}
	for key, value := range r.Headers() {
		w.Header().Set(key, value)
	}
}
