package xsnowflake

import (
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// 配置
// =============================================================================

// Config 生成器配置，构造后不可变。
type Config struct {
	// EpochMillis 起始时间（Unix 毫秒），ID 中存储的是相对它的毫秒数
	EpochMillis int64
	// DataCenterBits 数据中心字段位宽，>= 1
	DataCenterBits uint8
	// WorkerBits 机器字段位宽，>= 1
	WorkerBits uint8
	// SequenceBits 序列号字段位宽，>= 1
	SequenceBits uint8
	// DataCenterID 本实例的数据中心 ID，范围 [0, 2^DataCenterBits-1]
	DataCenterID int64
	// WorkerID 本实例的机器 ID，范围 [0, 2^WorkerBits-1]
	WorkerID int64
}

// DefaultConfig 返回默认配置：epoch 2019-01-01，位宽 5/5/12，数据中心和机器 ID 为 0。
func DefaultConfig() Config {
	return Config{
		EpochMillis:    DefaultEpochMillis,
		DataCenterBits: DefaultDataCenterBits,
		WorkerBits:     DefaultWorkerBits,
		SequenceBits:   DefaultSequenceBits,
	}
}

// =============================================================================
// Generator
// =============================================================================

// Generator Snowflake 风格的分布式唯一 ID 生成器。
//
// 单个实例内 ID 严格递增（未发生时钟回拨时）；不同 (DataCenterID, WorkerID)
// 的实例之间 ID 永不冲突。
//
// 所有方法都是并发安全的。sequence 与 lastTimestamp 由同一把互斥锁保护，
// 整个"读时钟 → 判定 → 拼装"过程是一个临界区，这是防止重复 ID 的唯一机制。
// 解析类方法（Create*/Decompose）只读取不可变配置，无需加锁。
//
// 设计决策: 不提供全局单例。调用方在进程启动时构造一个实例，
// 通过构造函数参数注入给使用方。
type Generator struct {
	cfg     Config
	layout  Layout
	clock   Clock
	maxSpin time.Duration
	// yield 在等待下一毫秒的自旋中让出处理器，测试中可替换
	yield func()

	mu            sync.Mutex
	sequence      int64
	lastTimestamp int64 // -1 表示尚未发号
	currentID     int64

	stats counters
}

// New 校验配置并创建生成器。
//
// 以下情况返回 *ConfigError（errors.Is(err, ErrInvalidConfig) 为 true）：
//   - 任一位宽小于 1
//   - 三个位宽之和不在 [MinLayoutBits, MaxLayoutBits] 内
//   - DataCenterID / WorkerID 为负数或超过对应字段的最大值
//   - EpochMillis 为负数，或晚于当前时钟
//   - WithMaxSpin 传入负值
//
// 构造成功后所有移位量和掩码均已预计算，热路径上不再做任何校验。
func New(cfg Config, opts ...Option) (*Generator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.maxSpin < 0 {
		return nil, configErrorf("MaxSpin", "must be non-negative, got %s", o.maxSpin)
	}

	layout, err := NewLayout(cfg.DataCenterBits, cfg.WorkerBits, cfg.SequenceBits)
	if err != nil {
		return nil, err
	}
	if cfg.DataCenterID < 0 || cfg.DataCenterID > layout.MaxDataCenterID {
		return nil, configErrorf("DataCenterID", "must be in [0, %d], got %d", layout.MaxDataCenterID, cfg.DataCenterID)
	}
	if cfg.WorkerID < 0 || cfg.WorkerID > layout.MaxWorkerID {
		return nil, configErrorf("WorkerID", "must be in [0, %d], got %d", layout.MaxWorkerID, cfg.WorkerID)
	}
	if cfg.EpochMillis < 0 {
		return nil, configErrorf("EpochMillis", "must be non-negative, got %d", cfg.EpochMillis)
	}
	if now := o.clock.NowMillis(); cfg.EpochMillis > now {
		return nil, configErrorf("EpochMillis", "must not be in the future (epoch=%d, now=%d)", cfg.EpochMillis, now)
	}

	return &Generator{
		cfg:           cfg,
		layout:        layout,
		clock:         o.clock,
		maxSpin:       o.maxSpin,
		yield:         runtime.Gosched,
		lastTimestamp: -1,
	}, nil
}

// validate 防止零值 Generator 或 nil *Generator 导致 nil pointer panic。
func (g *Generator) validate() error {
	if g == nil || g.clock == nil {
		return ErrNilGenerator
	}
	return nil
}

// NextID 生成下一个 ID。
//
// 同一毫秒内序列号耗尽时，会持锁自旋直到时钟进入下一毫秒。
// 检测到时钟回拨时立即返回 *ClockRollbackError，不修改任何状态，也不发号。
func (g *Generator) NextID() (int64, error) {
	if err := g.validate(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := g.nextLocked()
	if err != nil {
		return 0, err
	}
	g.stats.issued.Add(1)
	return id, nil
}

// NextString 生成下一个 ID 的十进制字符串形式。
func (g *Generator) NextString() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// nextLocked 单 ID 生成算法，调用方必须持有 g.mu。
//
// 所有判定都基于局部变量完成，只有在确定能发号时才一次性提交
// sequence/lastTimestamp/currentID，因此任何失败路径都不会改变状态。
func (g *Generator) nextLocked() (int64, error) {
	now := g.clock.NowMillis()
	if now < g.lastTimestamp {
		g.stats.rollbacks.Add(1)
		return 0, &ClockRollbackError{Last: g.lastTimestamp, Now: now}
	}

	var seq int64
	if now == g.lastTimestamp {
		seq = (g.sequence + 1) & g.layout.MaxSequence
		if seq == 0 {
			// 本毫秒内序列号已用尽，等待下一毫秒
			g.stats.exhaustions.Add(1)
			var err error
			if now, err = g.tilNextMillis(); err != nil {
				return 0, err
			}
		}
	}

	elapsed := now - g.cfg.EpochMillis
	if elapsed < 0 || elapsed > g.layout.MaxElapsed {
		return 0, fmt.Errorf("%w: elapsed %dms not in [0, %d]", ErrOverTimeLimit, elapsed, g.layout.MaxElapsed)
	}

	g.sequence = seq
	g.lastTimestamp = now
	g.currentID = g.layout.Compose(elapsed, g.cfg.DataCenterID, g.cfg.WorkerID, seq)
	return g.currentID, nil
}

// tilNextMillis 自旋读取时钟，直到大于 lastTimestamp。
//
// 每轮先让出处理器，避免在协作式调度下饿死其他 goroutine。
// 配置了 maxSpin 时，超时返回 ErrClockStalled。
func (g *Generator) tilNextMillis() (int64, error) {
	var deadline time.Time
	if g.maxSpin > 0 {
		deadline = time.Now().Add(g.maxSpin)
	}
	for {
		g.yield()
		now := g.clock.NowMillis()
		if now > g.lastTimestamp {
			return now, nil
		}
		if g.maxSpin > 0 && time.Now().After(deadline) {
			g.stats.stalls.Add(1)
			return 0, fmt.Errorf("%w: waited %s for clock to pass %d", ErrClockStalled, g.maxSpin, g.lastTimestamp)
		}
	}
}

// =============================================================================
// 配置与状态访问
// =============================================================================

// Config 返回构造时的配置副本。
func (g *Generator) Config() Config { return g.cfg }

// Layout 返回预计算的位布局。
func (g *Generator) Layout() Layout { return g.layout }

// EpochMillis 返回起始时间（Unix 毫秒）。
func (g *Generator) EpochMillis() int64 { return g.cfg.EpochMillis }

// DataCenterBits 返回数据中心字段位宽。
func (g *Generator) DataCenterBits() uint8 { return g.cfg.DataCenterBits }

// WorkerBits 返回机器字段位宽。
func (g *Generator) WorkerBits() uint8 { return g.cfg.WorkerBits }

// SequenceBits 返回序列号字段位宽。
func (g *Generator) SequenceBits() uint8 { return g.cfg.SequenceBits }

// DataCenterID 返回本实例的数据中心 ID。
func (g *Generator) DataCenterID() int64 { return g.cfg.DataCenterID }

// WorkerID 返回本实例的机器 ID。
func (g *Generator) WorkerID() int64 { return g.cfg.WorkerID }

// MaxSequence 返回单毫秒内序列号的最大值（2^SequenceBits - 1）。
func (g *Generator) MaxSequence() int64 { return g.layout.MaxSequence }

// LastTimestamp 返回最近一次发号的毫秒时间戳，尚未发号时为 -1。
func (g *Generator) LastTimestamp() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastTimestamp
}

// Sequence 返回最近一次发号使用的序列号。
func (g *Generator) Sequence() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sequence
}

// CurrentID 返回最近一次发出的 ID，尚未发号时为 0。
func (g *Generator) CurrentID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentID
}

// =============================================================================
// 统计
// =============================================================================

// Stats 生成器运行统计，只增不减。
type Stats struct {
	// Issued 已发出的 ID 总数（含批量）
	Issued uint64
	// Batches 成功完成的 NextIDs 调用次数
	Batches uint64
	// Rollbacks 检测到时钟回拨的次数
	Rollbacks uint64
	// Exhaustions 单毫秒序列号耗尽、进入等待的次数
	Exhaustions uint64
	// Stalls 等待下一毫秒超时（ErrClockStalled）的次数
	Stalls uint64
}

type counters struct {
	issued      atomic.Uint64
	batches     atomic.Uint64
	rollbacks   atomic.Uint64
	exhaustions atomic.Uint64
	stalls      atomic.Uint64
}

// Stats 返回统计快照。无锁读取，各字段之间不保证同一时刻一致。
func (g *Generator) Stats() Stats {
	return Stats{
		Issued:      g.stats.issued.Load(),
		Batches:     g.stats.batches.Load(),
		Rollbacks:   g.stats.rollbacks.Load(),
		Exhaustions: g.stats.exhaustions.Load(),
		Stalls:      g.stats.stalls.Load(),
	}
}
