package xid

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/sonyflake/v2"

	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// =============================================================================
// Source - 底层发号引擎
// =============================================================================

// Source 底层 ID 发号引擎。
//
// 实现必须是并发安全的。NextIDs 的结果必须与连续调用 n 次 NextID 等价。
type Source interface {
	NextID() (int64, error)
	NextIDs(n int) ([]int64, error)
	// Decompose 按本引擎的位布局分解 id，非正数返回 ErrInvalidID
	Decompose(id int64) (Parts, error)
	// Describe 返回引擎的位布局描述
	Describe() Info
}

// StatsReporter 由能提供运行统计的 Source 实现，目前只有 snowflake 引擎。
//
//	if r, ok := gen.Source().(xid.StatsReporter); ok {
//	    st := r.Stats()
//	}
type StatsReporter interface {
	Stats() xsnowflake.Stats
}

// Engine 发号引擎类型
type Engine string

const (
	// EngineSnowflake 可配置位宽的毫秒级 Snowflake（xsnowflake）
	EngineSnowflake Engine = "snowflake"
	// EngineSonyflake sony/sonyflake，10ms 时间单位，39/8/16 固定布局
	EngineSonyflake Engine = "sonyflake"
)

// ParseEngine 解析引擎名称（大小写不敏感），空字符串视为 EngineSnowflake。
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case "", EngineSnowflake:
		return EngineSnowflake, nil
	case EngineSonyflake:
		return EngineSonyflake, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
	}
}

// String 实现 fmt.Stringer。
func (e Engine) String() string { return string(e) }

// Parts ID 分解后的各组成部分。
//
// 设计决策: 所有数值字段统一使用 int64，与 ID 本身一致，便于 JSON 输出。
type Parts struct {
	ID   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	// Millis 发号时刻的 Unix 毫秒时间戳（sonyflake 精度为 10ms）
	Millis int64 `json:"millis"`
	// Machine 机器标识：snowflake 为 (DataCenterID << WorkerBits) | WorkerID
	Machine      int64 `json:"machine"`
	DataCenterID int64 `json:"datacenter_id"`
	WorkerID     int64 `json:"worker_id"`
	Sequence     int64 `json:"sequence"`
}

// Info 引擎位布局描述。
type Info struct {
	Engine         Engine        `json:"engine"`
	Epoch          time.Time     `json:"epoch"`
	Expiry         time.Time     `json:"expiry"`
	TimeUnit       time.Duration `json:"time_unit"`
	TimestampBits  uint8         `json:"timestamp_bits"`
	DataCenterBits uint8         `json:"datacenter_bits,omitempty"`
	WorkerBits     uint8         `json:"worker_bits,omitempty"`
	MachineBits    uint8         `json:"machine_bits"`
	SequenceBits   uint8         `json:"sequence_bits"`
	Machine        int64         `json:"machine"`
	DataCenterID   int64         `json:"datacenter_id"`
	WorkerID       int64         `json:"worker_id"`
}

// =============================================================================
// snowflake 引擎
// =============================================================================

type snowflakeSource struct {
	g *xsnowflake.Generator
}

// SnowflakeSource 把 xsnowflake 生成器适配为 Source。
func SnowflakeSource(g *xsnowflake.Generator) Source {
	return snowflakeSource{g: g}
}

func (s snowflakeSource) NextID() (int64, error)         { return s.g.NextID() }
func (s snowflakeSource) NextIDs(n int) ([]int64, error) { return s.g.NextIDs(n) }

// Stats 实现 StatsReporter。
func (s snowflakeSource) Stats() xsnowflake.Stats { return s.g.Stats() }

func (s snowflakeSource) machine(dc, worker int64) int64 {
	return dc<<s.g.WorkerBits() | worker
}

func (s snowflakeSource) Decompose(id int64) (Parts, error) {
	if id < 0 {
		return Parts{}, fmt.Errorf("%w: value must be non-negative, got %d", ErrInvalidID, id)
	}
	c := s.g.Decompose(id)
	return Parts{
		ID:           id,
		Time:         c.Time,
		Millis:       c.Millis,
		Machine:      s.machine(c.DataCenterID, c.WorkerID),
		DataCenterID: c.DataCenterID,
		WorkerID:     c.WorkerID,
		Sequence:     c.Sequence,
	}, nil
}

func (s snowflakeSource) Describe() Info {
	l := s.g.Layout()
	return Info{
		Engine:         EngineSnowflake,
		Epoch:          time.UnixMilli(s.g.EpochMillis()).UTC(),
		Expiry:         l.Expiry(s.g.EpochMillis()),
		TimeUnit:       time.Millisecond,
		TimestampBits:  l.TimestampBits,
		DataCenterBits: l.DataCenterBits,
		WorkerBits:     l.WorkerBits,
		MachineBits:    l.DataCenterBits + l.WorkerBits,
		SequenceBits:   l.SequenceBits,
		Machine:        s.machine(s.g.DataCenterID(), s.g.WorkerID()),
		DataCenterID:   s.g.DataCenterID(),
		WorkerID:       s.g.WorkerID(),
	}
}

// =============================================================================
// sonyflake 引擎
// =============================================================================

// 设计决策: 以下常量对应 Sonyflake v2 的默认位布局（39+8+16=63 bits），
// NewSonyflakeSource 不覆盖 BitsSequence/BitsMachineID/TimeUnit，
// 因此 Decompose 可以直接按常量做位提取。
const (
	sonyMachineBits  = 16
	sonySequenceBits = 8
	sonyTimeBits     = 39
	sonyTimeUnit     = 10 * time.Millisecond
	sonyMachineMask  = (1 << sonyMachineBits) - 1
	sonySequenceMask = (1 << sonySequenceBits) - 1
)

type sonyflakeSource struct {
	sf      *sonyflake.Sonyflake
	start   time.Time
	machine uint16
}

// NewSonyflakeSource 创建基于 sony/sonyflake 的 Source。
//
// start 为时间起点，不能为零值，也不能晚于当前时间。
func NewSonyflakeSource(machineID uint16, start time.Time) (Source, error) {
	if start.IsZero() {
		return nil, fmt.Errorf("%w: sonyflake start time is required", ErrInvalidConfig)
	}
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: start,
		MachineID: func() (int, error) { return int(machineID), nil },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &sonyflakeSource{sf: sf, start: start.UTC(), machine: machineID}, nil
}

func (s *sonyflakeSource) NextID() (int64, error) {
	id, err := s.sf.NextID()
	if err != nil {
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, fmt.Errorf("%w: %w", xsnowflake.ErrOverTimeLimit, err)
		}
		return 0, err
	}
	return id, nil
}

func (s *sonyflakeSource) NextIDs(n int) ([]int64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", xsnowflake.ErrInvalidCount, n)
	}
	ids := make([]int64, 0, n)
	for range n {
		id, err := s.NextID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *sonyflakeSource) Decompose(id int64) (Parts, error) {
	if id < 0 {
		return Parts{}, fmt.Errorf("%w: value must be non-negative, got %d", ErrInvalidID, id)
	}
	elapsed := id >> (sonyMachineBits + sonySequenceBits)
	t := s.start.Add(time.Duration(elapsed) * sonyTimeUnit)
	return Parts{
		ID:       id,
		Time:     t,
		Millis:   t.UnixMilli(),
		Machine:  id & sonyMachineMask,
		Sequence: (id >> sonyMachineBits) & sonySequenceMask,
	}, nil
}

func (s *sonyflakeSource) Describe() Info {
	return Info{
		Engine:        EngineSonyflake,
		Epoch:         s.start,
		Expiry:        s.start.Add(time.Duration(1<<sonyTimeBits-1) * sonyTimeUnit),
		TimeUnit:      sonyTimeUnit,
		TimestampBits: sonyTimeBits,
		MachineBits:   sonyMachineBits,
		SequenceBits:  sonySequenceBits,
		Machine:       int64(s.machine),
	}
}
