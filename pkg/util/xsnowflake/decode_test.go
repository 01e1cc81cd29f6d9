package xsnowflake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTrip(t *testing.T) {
	layouts := []struct {
		dc, w, s uint8
	}{
		{5, 5, 12},
		{1, 1, 17},
		{10, 10, 2},
		{1, 20, 1},
		{8, 2, 9},
	}
	for _, bits := range layouts {
		l, err := NewLayout(bits.dc, bits.w, bits.s)
		require.NoError(t, err)

		for _, ids := range [][2]int64{{0, 0}, {l.MaxDataCenterID, l.MaxWorkerID}, {l.MaxDataCenterID / 2, 1}} {
			cfg := Config{
				EpochMillis:    testEpoch,
				DataCenterBits: bits.dc,
				WorkerBits:     bits.w,
				SequenceBits:   bits.s,
				DataCenterID:   ids[0],
				WorkerID:       ids[1],
			}
			clk := newFakeClock(testEpoch + 123456)
			g := newTestGenerator(t, cfg, clk)

			batch, err := g.NextIDs(min(int(l.MaxSequence)+3, 5000))
			require.NoError(t, err)
			for _, id := range batch {
				c := g.Decompose(id)
				assert.Equal(t, id, c.ID)
				assert.Equal(t, ids[0], c.DataCenterID)
				assert.Equal(t, ids[1], c.WorkerID)
				assert.LessOrEqual(t, c.Sequence, l.MaxSequence)
				assert.GreaterOrEqual(t, c.Millis, testEpoch+123456)

				// 重新拼装得到原 ID
				assert.Equal(t, id, l.Compose(c.Millis-testEpoch, c.DataCenterID, c.WorkerID, c.Sequence))
			}
		}
	}
}

func TestDecompose_Fields(t *testing.T) {
	clk := newFakeClock(testEpoch + 86_400_000)
	g := newTestGenerator(t, testConfig(17, 9), clk)

	_, err := g.NextIDs(5)
	require.NoError(t, err)
	id := g.CurrentID()

	c := g.Decompose(id)
	assert.Equal(t, testEpoch+86_400_000, c.Millis)
	assert.Equal(t, time.UnixMilli(testEpoch+86_400_000).UTC(), c.Time)
	assert.Equal(t, int64(17), c.DataCenterID)
	assert.Equal(t, int64(9), c.WorkerID)
	assert.Equal(t, int64(4), c.Sequence)

	assert.Equal(t, c.Millis, g.CreateMillisecond(id))
	assert.Equal(t, c.DataCenterID, g.CreateDataCenterID(id))
	assert.Equal(t, c.WorkerID, g.CreateWorkerID(id))
	assert.Equal(t, c.Sequence, g.CreateSequence(id))
}

func TestDecode_KnownValue(t *testing.T) {
	g := newTestGenerator(t, testConfig(1, 2), newFakeClock(testEpoch))

	const id = int64(3<<22 | 1<<17 | 2<<12 | 7)
	assert.Equal(t, testEpoch+3, g.CreateMillisecond(id))
	assert.Equal(t, int64(1), g.CreateDataCenterID(id))
	assert.Equal(t, int64(2), g.CreateWorkerID(id))
	assert.Equal(t, int64(7), g.CreateSequence(id))
}
