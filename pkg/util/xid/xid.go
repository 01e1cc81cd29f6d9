package xid

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
	"github.com/omeyang/xsnow/pkg/resilience/xretry"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrClockBackwardTimeout 时钟异常（回拨或停滞）在等待窗口内未恢复。
	// 返回的错误同时包裹最后一次尝试的错误。
	ErrClockBackwardTimeout = errors.New("xid: clock backward wait timeout")

	// ErrInvalidID ID 值无效（语法错误、溢出或非正数）。
	ErrInvalidID = errors.New("xid: invalid id")

	// ErrNilContext context 参数为 nil。
	// 非 Must* API 不应 panic，调用方应传入有效的 context（至少 context.Background()）。
	ErrNilContext = errors.New("xid: nil context")

	// ErrInvalidConfig 配置参数无效。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrUnknownEngine 不支持的引擎名称。
	ErrUnknownEngine = errors.New("xid: unknown engine")

	// ErrNilGenerator 生成器实例为 nil 或未通过 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator (use NewGenerator to create)")
)

// =============================================================================
// 时钟异常重试配置
// =============================================================================

const (
	// DefaultMaxWaitDuration 默认最大等待时间（时钟异常时）
	// NTP 校时引起的回拨通常在几十到几百毫秒之间
	DefaultMaxWaitDuration = 500 * time.Millisecond

	// DefaultRetryInterval 默认重试间隔，与 snowflake 时钟精度一致
	DefaultRetryInterval = time.Millisecond
)

// =============================================================================
// Generator
// =============================================================================

// Generator 在 Source 之上提供时钟异常重试、熔断和字符串编解码。
//
// Generator 的所有方法都是并发安全的。
//
// 设计决策: 不提供包级全局实例。进程启动时构造一个 Generator，
// 通过参数注入给需要发号的组件，测试可以各自构造互不干扰的实例。
type Generator struct {
	src     Source
	window  xretry.Window
	breaker *xbreaker.Breaker
}

// NewGenerator 创建新的 ID 生成器实例。
func NewGenerator(src Source, opts ...Option) (*Generator, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidConfig)
	}
	cfg := &options{}
	// 设计决策: nil Option 静默跳过而非返回错误，
	// 便于条件式构建 Option 列表。
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.maxWaitDuration < 0 {
		return nil, fmt.Errorf("%w: max wait duration must be non-negative, got %s", ErrInvalidConfig, cfg.maxWaitDuration)
	}
	if cfg.retryInterval < 0 {
		return nil, fmt.Errorf("%w: retry interval must be non-negative, got %s", ErrInvalidConfig, cfg.retryInterval)
	}

	g := &Generator{
		src:     src,
		breaker: cfg.breaker,
		window: xretry.Window{
			MaxWait:  DefaultMaxWaitDuration,
			Interval: DefaultRetryInterval,
		},
	}
	if cfg.maxWaitSet {
		g.window.MaxWait = cfg.maxWaitDuration
	}
	if cfg.retryIntervalSet {
		g.window.Interval = cfg.retryInterval
	}
	return g, nil
}

// validate 防止零值 Generator 或 nil *Generator 导致 nil pointer panic。
func (g *Generator) validate() error {
	if g == nil || g.src == nil {
		return ErrNilGenerator
	}
	return nil
}

// Source 返回底层发号引擎。
func (g *Generator) Source() Source { return g.src }

// Breaker 返回配置的熔断器，未配置时为 nil。
func (g *Generator) Breaker() *xbreaker.Breaker { return g.breaker }

// MaxWaitDuration 返回时钟异常时的最大等待时间。
func (g *Generator) MaxWaitDuration() time.Duration { return g.window.MaxWait }

// guard 在配置了熔断器时通过熔断器执行 fn。
func guard[T any](ctx context.Context, b *xbreaker.Breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	return xbreaker.Execute(ctx, b, fn)
}

// retryable 只有时钟类错误值得等待：over-time-limit 和参数错误永远不会自愈，
// 熔断器错误应快速失败。
func retryable(err error) bool {
	return xsnowflake.IsClockError(err)
}

// withRetry 在等待窗口内重试时钟类错误。
func withRetry[T any](ctx context.Context, g *Generator, fn func() (T, error)) (T, error) {
	var zero T
	if err := g.validate(); err != nil {
		return zero, err
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	v, err := xretry.DoWithin(ctx, g.window, func() (T, error) {
		return guard(ctx, g.breaker, fn)
	}, retryable)
	if err != nil {
		if errors.Is(err, xretry.ErrWindowExceeded) {
			return zero, fmt.Errorf("%w: %w", ErrClockBackwardTimeout, err)
		}
		return zero, err
	}
	return v, nil
}

// New 生成新的唯一 ID，只尝试一次。
//
// 时钟回拨返回 xsnowflake.ErrClockRollback；时间分量溢出返回
// xsnowflake.ErrOverTimeLimit（不可恢复）。
func (g *Generator) New() (int64, error) {
	if err := g.validate(); err != nil {
		return 0, err
	}
	return guard(context.Background(), g.breaker, g.src.NextID)
}

// NewBatch 一次生成 n 个 ID，只尝试一次。n <= 0 返回 xsnowflake.ErrInvalidCount。
func (g *Generator) NewBatch(n int) ([]int64, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	return guard(context.Background(), g.breaker, func() ([]int64, error) {
		return g.src.NextIDs(n)
	})
}

// NewWithRetry 生成新的唯一 ID，遇到时钟回拨或停滞时在等待窗口内重试。
//
// 这是生产环境推荐使用的方法，能够容忍 NTP 校时引起的短暂回拨。
// 支持通过 context 取消等待。
// 等待超过 maxWaitDuration 仍失败，返回 [ErrClockBackwardTimeout]。
// 其他错误（溢出、熔断器打开）立即返回。
// 如果 ctx 为 nil，返回 [ErrNilContext]。
func (g *Generator) NewWithRetry(ctx context.Context) (int64, error) {
	if err := g.validate(); err != nil {
		return 0, err
	}
	return withRetry(ctx, g, g.src.NextID)
}

// NewBatchWithRetry 一次生成 n 个 ID，重试语义同 NewWithRetry。
//
// 失败的批次中已提交的序列号不会再被使用，重试时整批重新生成。
func (g *Generator) NewBatchWithRetry(ctx context.Context, n int) ([]int64, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	return withRetry(ctx, g, func() ([]int64, error) {
		return g.src.NextIDs(n)
	})
}

// NewString 生成新的唯一 ID（base36 字符串）。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return Format(id), nil
}

// NewStringWithRetry 生成新的唯一 ID（base36 字符串），重试语义同 NewWithRetry。
func (g *Generator) NewStringWithRetry(ctx context.Context) (string, error) {
	id, err := g.NewWithRetry(ctx)
	if err != nil {
		return "", err
	}
	return Format(id), nil
}

// MustNewWithRetry 同 NewWithRetry，失败时 panic。
//
// 适用于明确接受 crash-fast 策略的场景（如启动时预生成 ID）。
// 内部使用 context.Background()。
func (g *Generator) MustNewWithRetry() int64 {
	id, err := g.NewWithRetry(context.Background())
	if err != nil {
		panic(err)
	}
	return id
}

// Decompose 按底层引擎的位布局分解 ID。
func (g *Generator) Decompose(id int64) (Parts, error) {
	if err := g.validate(); err != nil {
		return Parts{}, err
	}
	return g.src.Decompose(id)
}

// =============================================================================
// 解析
// =============================================================================

// Format 返回 id 的 base36 表示。
func Format(id int64) string {
	return strconv.FormatInt(id, 36)
}

// Parse 从 base36 字符串解析 ID（NewString 的逆操作）。
//
// 所有无效输入（语法错误、溢出、负值）均返回 [ErrInvalidID]。
// 0 是合法 ID：节点号全为 0 时，纪元首毫秒的第一个 ID 就是 0。
//
// 设计决策: Parse 采用宽松解析（大小写不敏感，允许前导 "+"），
// 与 strconv.ParseInt 行为一致，以便兼容外部系统可能引入的大小写变换。
func Parse(s string) (int64, error) {
	return parse(s, 36)
}

// ParseDecimal 从十进制字符串解析 ID（xsnowflake.Generator.NextString 的逆操作）。
func ParseDecimal(s string) (int64, error) {
	return parse(s, 10)
}

func parse(s string, base int) (int64, error) {
	id, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: value must be non-negative, got %d", ErrInvalidID, id)
	}
	return id, nil
}
