package xlimit

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrRateLimited 请求超出配额
	ErrRateLimited = errors.New("xlimit: rate limited")

	// ErrBackendUnavailable 分布式后端不可用且降级策略为 FallbackClose
	ErrBackendUnavailable = errors.New("xlimit: backend unavailable")

	// ErrInvalidQuota 配额参数无效
	ErrInvalidQuota = errors.New("xlimit: invalid quota")

	// ErrInvalidCost 单次消耗必须为正数
	ErrInvalidCost = errors.New("xlimit: cost must be positive")

	// ErrCostExceedsBurst 单次消耗超过突发容量，永远无法被放行
	ErrCostExceedsBurst = errors.New("xlimit: cost exceeds burst")

	// ErrNilClient Redis 客户端为 nil
	ErrNilClient = errors.New("xlimit: nil redis client")

	// ErrInvalidFallback 未知的降级策略
	ErrInvalidFallback = errors.New("xlimit: invalid fallback strategy")
)

// backendErrors 视为后端不可用、需要降级的错误
var backendErrors = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	io.EOF,
	io.ErrUnexpectedEOF,
	net.ErrClosed,
	redis.ErrClosed,
}

// IsBackendError 检查是否是 Redis 连接类错误。
//
// 使用错误链检查，而不是字符串匹配。
func IsBackendError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range backendErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
