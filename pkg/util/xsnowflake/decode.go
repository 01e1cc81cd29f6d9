package xsnowflake

import "time"

// Components ID 分解后的各组成部分。
type Components struct {
	// ID 原始 ID
	ID int64 `json:"id"`
	// Millis 发号时的 Unix 毫秒时间戳
	Millis int64 `json:"millis"`
	// Time 发号时刻（UTC）
	Time time.Time `json:"time"`
	// DataCenterID 数据中心 ID
	DataCenterID int64 `json:"datacenter_id"`
	// WorkerID 机器 ID
	WorkerID int64 `json:"worker_id"`
	// Sequence 毫秒内序列号
	Sequence int64 `json:"sequence"`
}

// 以下解析方法是纯函数：只读取不可变配置和传入的 id，不加锁。
// 对同一配置的实例产出的任何 ID，它们与拼装过程严格互逆。

// CreateMillisecond 返回生成 id 时的 Unix 毫秒时间戳。
func (g *Generator) CreateMillisecond(id int64) int64 {
	return (id >> g.layout.TimestampShift) + g.cfg.EpochMillis
}

// CreateDataCenterID 返回生成 id 的数据中心 ID。
func (g *Generator) CreateDataCenterID(id int64) int64 {
	return (id & g.layout.DataCenterMask) >> g.layout.DataCenterShift
}

// CreateWorkerID 返回生成 id 的机器 ID。
func (g *Generator) CreateWorkerID(id int64) int64 {
	return (id & g.layout.WorkerMask) >> g.layout.WorkerShift
}

// CreateSequence 返回生成 id 时的序列号。
func (g *Generator) CreateSequence(id int64) int64 {
	return id & g.layout.MaxSequence
}

// Decompose 一次性解析 id 的全部组成部分。
func (g *Generator) Decompose(id int64) Components {
	ms := g.CreateMillisecond(id)
	return Components{
		ID:           id,
		Millis:       ms,
		Time:         time.UnixMilli(ms).UTC(),
		DataCenterID: g.CreateDataCenterID(id),
		WorkerID:     g.CreateWorkerID(id),
		Sequence:     g.CreateSequence(id),
	}
}
