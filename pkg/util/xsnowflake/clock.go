package xsnowflake

import "time"

//go:generate mockgen -source=clock.go -destination=mock_clock_test.go -package=xsnowflake

// Clock 时钟读取接口，返回自 Unix epoch 起的毫秒数。
//
// 不要求是单调时钟：正是因为墙上时钟可能回拨，生成器才需要回拨检测。
// 实现必须是并发安全的。
type Clock interface {
	NowMillis() int64
}

// ClockFunc 将普通函数适配为 [Clock]。
type ClockFunc func() int64

// NowMillis 实现 Clock 接口。
func (f ClockFunc) NowMillis() int64 {
	return f()
}

// SystemClock 读取系统墙上时钟。
type SystemClock struct{}

// NowMillis 返回 time.Now().UnixMilli()。
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

var _ Clock = SystemClock{}
var _ Clock = ClockFunc(nil)
