package xid

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// scriptedSource 前 failures 次调用返回 err，之后从 next 开始递增发号。
type scriptedSource struct {
	mu       sync.Mutex
	failures int
	err      error
	next     int64
	calls    atomic.Int32
}

func (s *scriptedSource) NextID() (int64, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		return 0, s.err
	}
	s.next++
	return s.next, nil
}

func (s *scriptedSource) NextIDs(n int) ([]int64, error) {
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

func (s *scriptedSource) Decompose(id int64) (Parts, error) { return Parts{ID: id}, nil }
func (s *scriptedSource) Describe() Info                    { return Info{Engine: "scripted"} }

var errRollback = &xsnowflake.ClockRollbackError{Last: 100, Now: 90}

// =============================================================================
// 构造
// =============================================================================

func TestNewGenerator_Validation(t *testing.T) {
	src := &scriptedSource{}

	_, err := NewGenerator(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGenerator(src, WithMaxWaitDuration(-1))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGenerator(src, WithRetryInterval(-1))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	g, err := NewGenerator(src, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxWaitDuration, g.MaxWaitDuration())
	assert.Same(t, src, g.Source())
	assert.Nil(t, g.Breaker())

	g, err = NewGenerator(src, WithMaxWaitDuration(0))
	require.NoError(t, err)
	assert.Zero(t, g.MaxWaitDuration())
}

func TestGenerator_NilGuards(t *testing.T) {
	var g *Generator
	_, err := g.New()
	assert.ErrorIs(t, err, ErrNilGenerator)
	_, err = g.NewBatch(1)
	assert.ErrorIs(t, err, ErrNilGenerator)
	_, err = g.NewWithRetry(context.Background())
	assert.ErrorIs(t, err, ErrNilGenerator)
	_, err = g.NewBatchWithRetry(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNilGenerator)
	_, err = g.Decompose(1)
	assert.ErrorIs(t, err, ErrNilGenerator)

	var zero Generator
	_, err = zero.NewString()
	assert.ErrorIs(t, err, ErrNilGenerator)
}

// =============================================================================
// 生成
// =============================================================================

func TestGenerator_WithSnowflake(t *testing.T) {
	epoch := xsnowflake.DefaultEpochMillis
	g, err := NewGenerator(SnowflakeSource(newSnowflake(t, 1, 2, func() int64 { return epoch })))
	require.NoError(t, err)

	id, err := g.New()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<17|2<<12), id)

	ids, err := g.NewBatch(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{id + 1, id + 2}, ids)

	s, err := g.NewString()
	require.NoError(t, err)
	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, id+3, parsed)

	p, err := g.Decompose(parsed)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Sequence)

	_, err = g.NewBatch(0)
	assert.ErrorIs(t, err, xsnowflake.ErrInvalidCount)
}

// 零节点在纪元首毫秒发出的第一个 ID 就是 0，必须能原样解析和分解。
func TestGenerator_ZeroIDRoundTrip(t *testing.T) {
	epoch := xsnowflake.DefaultEpochMillis
	g, err := NewGenerator(SnowflakeSource(newSnowflake(t, 0, 0, func() int64 { return epoch })))
	require.NoError(t, err)

	id, err := g.New()
	require.NoError(t, err)
	require.Zero(t, id)

	parsed, err := ParseDecimal(strconv.FormatInt(id, 10))
	require.NoError(t, err)
	p, err := g.Decompose(parsed)
	require.NoError(t, err)
	assert.Zero(t, p.ID)
	assert.Equal(t, epoch, p.Millis)
	assert.Zero(t, p.DataCenterID)
	assert.Zero(t, p.WorkerID)
	assert.Zero(t, p.Sequence)

	_, err = g.Decompose(-1)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestGenerator_NewDoesNotRetry(t *testing.T) {
	src := &scriptedSource{failures: 1, err: errRollback}
	g, err := NewGenerator(src)
	require.NoError(t, err)

	_, err = g.New()
	assert.ErrorIs(t, err, xsnowflake.ErrClockRollback)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestNewWithRetry_RecoversFromRollback(t *testing.T) {
	src := &scriptedSource{failures: 3, err: errRollback}
	g, err := NewGenerator(src, WithRetryInterval(time.Millisecond))
	require.NoError(t, err)

	id, err := g.NewWithRetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, int32(4), src.calls.Load())
}

func TestNewWithRetry_RealClockRollback(t *testing.T) {
	// 时钟先回拨 5ms，之后每次读取前进 1ms
	epoch := xsnowflake.DefaultEpochMillis
	var now atomic.Int64
	now.Store(epoch + 100)
	sf := newSnowflake(t, 0, 0, func() int64 { return now.Load() })

	g, err := NewGenerator(SnowflakeSource(sf), WithRetryInterval(time.Millisecond))
	require.NoError(t, err)

	first, err := g.NewWithRetry(context.Background())
	require.NoError(t, err)

	now.Store(epoch + 95)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10 {
			time.Sleep(time.Millisecond)
			now.Add(1)
		}
	}()

	second, err := g.NewWithRetry(context.Background())
	<-done
	require.NoError(t, err)
	assert.Greater(t, second, first)
	assert.Positive(t, sf.Stats().Rollbacks)
}

func TestNewWithRetry_Timeout(t *testing.T) {
	src := &scriptedSource{failures: -1, err: errRollback}
	g, err := NewGenerator(src,
		WithMaxWaitDuration(20*time.Millisecond),
		WithRetryInterval(2*time.Millisecond),
	)
	require.NoError(t, err)

	_, err = g.NewWithRetry(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClockBackwardTimeout)
	assert.ErrorIs(t, err, xsnowflake.ErrClockRollback)
	assert.Greater(t, src.calls.Load(), int32(1))
}

func TestNewWithRetry_ZeroWait(t *testing.T) {
	src := &scriptedSource{failures: -1, err: errRollback}
	g, err := NewGenerator(src, WithMaxWaitDuration(0))
	require.NoError(t, err)

	_, err = g.NewWithRetry(context.Background())
	assert.ErrorIs(t, err, ErrClockBackwardTimeout)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestNewWithRetry_NonClockErrorsNotRetried(t *testing.T) {
	for _, base := range []error{xsnowflake.ErrOverTimeLimit, errors.New("boom")} {
		src := &scriptedSource{failures: -1, err: base}
		g, err := NewGenerator(src)
		require.NoError(t, err)

		_, err = g.NewWithRetry(context.Background())
		assert.ErrorIs(t, err, base)
		assert.NotErrorIs(t, err, ErrClockBackwardTimeout)
		assert.Equal(t, int32(1), src.calls.Load())
	}
}

func TestNewWithRetry_Context(t *testing.T) {
	g, err := NewGenerator(&scriptedSource{failures: -1, err: errRollback},
		WithMaxWaitDuration(10*time.Second))
	require.NoError(t, err)

	//nolint:staticcheck // 测试 nil ctx 防御
	_, err = g.NewWithRetry(nil)
	assert.ErrorIs(t, err, ErrNilContext)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.NewWithRetry(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewBatchWithRetry(t *testing.T) {
	src := &scriptedSource{failures: 2, err: errRollback}
	g, err := NewGenerator(src)
	require.NoError(t, err)

	ids, err := g.NewBatchWithRetry(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestGenerator_BreakerOpensOnPersistentClockFailure(t *testing.T) {
	src := &scriptedSource{failures: -1, err: errRollback}
	b := xbreaker.NewBreaker("test",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(3)),
		xbreaker.WithSuccessPolicy(xbreaker.FailOn(xsnowflake.IsClockError)),
		xbreaker.WithTimeout(time.Hour),
	)
	g, err := NewGenerator(src, WithBreaker(b), WithRetryInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Same(t, b, g.Breaker())

	// 第三次失败后熔断，后续尝试不再等待而是立即失败
	_, err = g.NewWithRetry(context.Background())
	require.Error(t, err)
	assert.True(t, xbreaker.IsOpen(err))
	assert.NotErrorIs(t, err, ErrClockBackwardTimeout)
	assert.Equal(t, int32(3), src.calls.Load())

	_, err = g.New()
	assert.True(t, xbreaker.IsOpen(err))
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestGenerator_BreakerIgnoresNonClockErrors(t *testing.T) {
	b := xbreaker.NewBreaker("test",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(1)),
		xbreaker.WithSuccessPolicy(xbreaker.FailOn(xsnowflake.IsClockError)),
	)
	g, err := NewGenerator(SnowflakeSource(newSnowflake(t, 0, 0, nil)), WithBreaker(b))
	require.NoError(t, err)

	for range 5 {
		_, err = g.NewBatch(-1)
		assert.ErrorIs(t, err, xsnowflake.ErrInvalidCount)
	}
	assert.Equal(t, xbreaker.StateClosed, b.State())
}

func TestMustNewWithRetry(t *testing.T) {
	g, err := NewGenerator(&scriptedSource{})
	require.NoError(t, err)
	assert.NotPanics(t, func() { assert.Equal(t, int64(1), g.MustNewWithRetry()) })

	bad, err := NewGenerator(&scriptedSource{failures: -1, err: xsnowflake.ErrOverTimeLimit})
	require.NoError(t, err)
	assert.Panics(t, func() { bad.MustNewWithRetry() })
}

func TestNewStringWithRetry(t *testing.T) {
	g, err := NewGenerator(&scriptedSource{next: 35})
	require.NoError(t, err)

	s, err := g.NewStringWithRetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10", s) // 36 的 base36 表示

	bad, err := NewGenerator(&scriptedSource{failures: -1, err: xsnowflake.ErrOverTimeLimit})
	require.NoError(t, err)
	_, err = bad.NewStringWithRetry(context.Background())
	assert.ErrorIs(t, err, xsnowflake.ErrOverTimeLimit)
}

// =============================================================================
// 解析
// =============================================================================

func TestParse(t *testing.T) {
	id, err := Parse("zz")
	require.NoError(t, err)
	assert.Equal(t, int64(35*36+35), id)

	id, err = Parse("ZZ")
	require.NoError(t, err)
	assert.Equal(t, int64(1295), id)

	id, err = Parse("0")
	require.NoError(t, err)
	assert.Zero(t, id)

	for _, in := range []string{"", "-1", "!!", "zzzzzzzzzzzzzzzzzzzz"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidID, "input %q", in)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	assert.Equal(t, "zz", Format(1295))
	id, err := Parse(Format(1<<62 + 12345))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<62+12345), id)
}

func TestParseDecimal(t *testing.T) {
	id, err := ParseDecimal(strconv.FormatInt(1<<17|2<<12, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(139264), id)

	id, err = ParseDecimal("0")
	require.NoError(t, err)
	assert.Zero(t, id)

	for _, in := range []string{"", "-5", "12a", "9223372036854775808"} {
		_, err := ParseDecimal(in)
		assert.ErrorIs(t, err, ErrInvalidID, "input %q", in)
	}
}
