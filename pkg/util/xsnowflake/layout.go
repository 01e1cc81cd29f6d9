package xsnowflake

import (
	"math"
	"time"
)

// =============================================================================
// 位布局
// =============================================================================

// ID 位布局（高位 → 低位）：
//
//	[1 bit 符号位，恒为 0][时间戳 - epoch][数据中心 ID][机器 ID][序列号]
//
// 三个标识字段的宽度之和（即时间戳左移位数）必须落在
// [MinLayoutBits, MaxLayoutBits] 区间内，这样时间戳字段有 41~44 位，
// 约可使用 69~557 年，同时标识字段仍保留足够的基数。
const (
	// MinLayoutBits 数据中心、机器、序列号三字段位宽之和的下限
	MinLayoutBits = 19

	// MaxLayoutBits 数据中心、机器、序列号三字段位宽之和的上限
	MaxLayoutBits = 22

	// usableBits 最高位保留为符号位，可用 63 位
	usableBits = 63
)

// 默认配置（与常见的 Twitter Snowflake 划分一致：5 + 5 + 12）。
const (
	// DefaultEpochMillis 默认起始时间 2019-01-01 00:00:00 +08:00
	DefaultEpochMillis int64 = 1546272000000

	// DefaultDataCenterBits 默认数据中心位宽
	DefaultDataCenterBits uint8 = 5

	// DefaultWorkerBits 默认机器位宽
	DefaultWorkerBits uint8 = 5

	// DefaultSequenceBits 默认序列号位宽
	DefaultSequenceBits uint8 = 12
)

// Layout 由三个位宽推导出的移位量与掩码，构造时一次性计算。
//
// 设计决策: 所有数值字段统一使用 int64，与 ID 本身的类型一致，
// 避免调用方在拼装和解析时频繁类型转换。
type Layout struct {
	DataCenterBits uint8
	WorkerBits     uint8
	SequenceBits   uint8
	// TimestampBits 时间戳字段位宽（63 - TimestampShift）
	TimestampBits uint8

	WorkerShift     uint8
	DataCenterShift uint8
	TimestampShift  uint8

	MaxDataCenterID int64
	MaxWorkerID     int64
	MaxSequence     int64
	// MaxElapsed 时间戳字段可表示的最大毫秒数
	MaxElapsed int64

	DataCenterMask int64
	WorkerMask     int64
}

// NewLayout 校验位宽并计算位布局。
//
// 任一位宽小于 1，或三者之和不在 [MinLayoutBits, MaxLayoutBits] 内时，
// 返回 *ConfigError。
func NewLayout(dataCenterBits, workerBits, sequenceBits uint8) (Layout, error) {
	if dataCenterBits < 1 {
		return Layout{}, configErrorf("DataCenterBits", "must be >= 1, got %d", dataCenterBits)
	}
	if workerBits < 1 {
		return Layout{}, configErrorf("WorkerBits", "must be >= 1, got %d", workerBits)
	}
	if sequenceBits < 1 {
		return Layout{}, configErrorf("SequenceBits", "must be >= 1, got %d", sequenceBits)
	}

	// 用 int 求和，避免 uint8 溢出绕回合法区间
	total := int(dataCenterBits) + int(workerBits) + int(sequenceBits)
	if total < MinLayoutBits || total > MaxLayoutBits {
		return Layout{}, configErrorf("bits", "DataCenterBits+WorkerBits+SequenceBits must be in [%d, %d], got %d",
			MinLayoutBits, MaxLayoutBits, total)
	}

	l := Layout{
		DataCenterBits:  dataCenterBits,
		WorkerBits:      workerBits,
		SequenceBits:    sequenceBits,
		WorkerShift:     sequenceBits,
		DataCenterShift: sequenceBits + workerBits,
		TimestampShift:  uint8(total),
		TimestampBits:   uint8(usableBits - total),
		MaxDataCenterID: maxValue(dataCenterBits),
		MaxWorkerID:     maxValue(workerBits),
		MaxSequence:     maxValue(sequenceBits),
		MaxElapsed:      maxValue(uint8(usableBits - total)),
	}
	l.DataCenterMask = l.MaxDataCenterID << l.DataCenterShift
	l.WorkerMask = l.MaxWorkerID << l.WorkerShift
	return l, nil
}

// maxValue 返回 bits 位能表示的最大非负整数（2^bits - 1）。
func maxValue(bits uint8) int64 {
	return int64(1)<<bits - 1
}

// Compose 按布局拼装 ID，不做范围校验。
// elapsed 为相对 epoch 的毫秒数。
func (l Layout) Compose(elapsed, dataCenterID, workerID, sequence int64) int64 {
	return elapsed<<l.TimestampShift |
		dataCenterID<<l.DataCenterShift |
		workerID<<l.WorkerShift |
		sequence
}

// Expiry 返回以 epochMillis 为起点时，时间戳字段耗尽的时刻。
func (l Layout) Expiry(epochMillis int64) time.Time {
	if epochMillis > math.MaxInt64-l.MaxElapsed {
		return time.UnixMilli(math.MaxInt64).UTC()
	}
	return time.UnixMilli(epochMillis + l.MaxElapsed).UTC()
}

// LifespanYears 返回时间戳字段可覆盖的年数（按 365.25 天/年估算）。
func (l Layout) LifespanYears() float64 {
	const msPerYear = 365.25 * 24 * 60 * 60 * 1000
	return float64(l.MaxElapsed) / msPerYear
}
