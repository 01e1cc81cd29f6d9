package xmetrics

import "errors"

// NewOTelObserver / RegisterCounters 返回的错误。
var (
	// ErrCreateCounter 表示创建 OTel Counter 失败。
	ErrCreateCounter = errors.New("xmetrics: create counter failed")
	// ErrCreateHistogram 表示创建 OTel Histogram 失败。
	ErrCreateHistogram = errors.New("xmetrics: create histogram failed")
	// ErrInvalidBuckets 表示 Histogram 桶边界无效（需严格递增且非负）。
	ErrInvalidBuckets = errors.New("xmetrics: invalid histogram buckets")
	// ErrRegisterCallback 表示注册 observable 回调失败。
	ErrRegisterCallback = errors.New("xmetrics: register callback failed")
)
