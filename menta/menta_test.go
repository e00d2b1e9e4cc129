package menta

import (
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/botix"
	"github.com/comalice/botix/delay"
	"github.com/comalice/botix/testutil"
)

func fixture() *Menta {
	return New([]Sampler{
		Sequence(func() []float64 { return []float64{10, 20, 30, 40} }),
		Indexed(func(i int) float64 { return float64(i) * 1.5 }),
		Direct(func() float64 { return 0b1010 }),
	}, WithLogger(zerolog.New(io.Discard)))
}

func TestConstructUpdater(t *testing.T) {
	m := fixture()

	tests := []struct {
		name     string
		usage    SamplerUsage
		sequence bool
		want     []float64
	}{
		{"sequence all", Usage(0), true, []float64{10, 20, 30, 40}},
		{"sequence one", Usage(0, 2), false, []float64{30}},
		{"sequence subset", Usage(0, 3, 0), true, []float64{40, 10}},
		{"indexed one", Usage(1, 4), false, []float64{6}},
		{"indexed many", Usage(1, 0, 2), true, []float64{0, 3}},
		{"direct raw", Usage(2), false, []float64{10}},
		{"direct bit", Usage(2, 1), false, []float64{1}},
		{"direct bits", Usage(2, 0, 1, 2, 3), true, []float64{0, 1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := m.ConstructUpdater(tt.usage)
			require.NoError(t, err)
			assert.Equal(t, tt.sequence, u.IsSequence())
			assert.Equal(t, tt.want, u.Values())
			assert.Equal(t, tt.want[0], u.Value())
		})
	}
}

func TestConstructUpdaterErrors(t *testing.T) {
	m := fixture()

	_, err := m.ConstructUpdater()
	assert.ErrorIs(t, err, ErrEmptyUsage)

	_, err = m.ConstructUpdater(Usage(3))
	assert.ErrorIs(t, err, ErrSamplerIndex)

	_, err = m.ConstructUpdater(Usage(1))
	assert.ErrorIs(t, err, ErrNoDataIndex)

	_, err = m.ConstructUpdater(Usage(0, -1))
	assert.ErrorIs(t, err, ErrDataIndex)

	// one bad usage fails the whole list
	_, err = m.ConstructUpdater(Usage(0), Usage(9))
	assert.True(t, errors.Is(err, ErrSamplerIndex))

	m.AddSampler(Sampler{kind: DirectSampler})
	_, err = m.ConstructUpdater(Usage(3))
	assert.ErrorIs(t, err, ErrNilSampler)
}

func TestMultipleUsagesConcatenate(t *testing.T) {
	u, err := fixture().ConstructUpdater(Usage(0, 1), Usage(2, 3), Usage(1, 2, 4))
	require.NoError(t, err)
	assert.True(t, u.IsSequence())
	assert.Equal(t, []float64{20, 1, 3, 6}, u.Values())
}

func TestSequenceIndexBeyondData(t *testing.T) {
	u, err := fixture().ConstructUpdater(Usage(0, 7))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(u.Value()))
}

func TestUpdaterReadsLive(t *testing.T) {
	reading := 0.0
	m := New(nil, WithLogger(zerolog.New(io.Discard)))
	idx := m.AddSampler(Direct(func() float64 { return reading }))
	assert.Equal(t, 1, m.Samplers())

	u, err := m.ConstructUpdater(Usage(idx, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, u.Value())
	reading = 3
	assert.Equal(t, 1.0, u.Value())
}

func TestBit(t *testing.T) {
	assert.Equal(t, 1.0, Bit(5.9, 0), "fraction is truncated")
	assert.Equal(t, 0.0, Bit(5, 1))
	assert.Equal(t, 1.0, Bit(5, 2))
	assert.Equal(t, 0.0, Bit(5, 70))
	assert.Equal(t, 1.0, Bit(-1, 70))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "1", Label([]float64{1}))
	assert.Equal(t, "0.5,-2", Label([]float64{0.5, -2}))
	assert.Equal(t, "", Label(nil))
}

func TestResolverDrivesBranch(t *testing.T) {
	line := 0.0
	m := New([]Sampler{Direct(func() float64 { return line })}, WithLogger(zerolog.New(io.Discard)))
	u, err := m.ConstructUpdater(Usage(0, 0))
	require.NoError(t, err)

	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	start, onLine, offLine := f.Straight(50), f.Halt(), f.Turn(botix.TurnLeft, 20)
	tr, err := botix.NewTransition(ids, 0)
	require.NoError(t, err)
	tr.WithFromState(start).WithToState("1", onLine).WithToState("0", offLine)

	now := time.Unix(0, 0)
	waiter := delay.New(delay.WithLogger(zerolog.New(io.Discard)),
		delay.WithClock(func(d time.Duration) { now = now.Add(d) }, func() time.Time { return now }))
	run := func() botix.StateID {
		report, err := botix.New(&testutil.RecordingController{},
			botix.WithLogger(zerolog.New(io.Discard)),
			botix.WithWaiter(waiter),
			botix.WithResolver(NewResolver(u))).AddTransition(tr).Run()
		require.NoError(t, err)
		return report.Final
	}

	assert.Equal(t, offLine.ID(), run())
	line = 1
	assert.Equal(t, onLine.ID(), run())
}

func TestResolverLabelFunc(t *testing.T) {
	u, err := fixture().ConstructUpdater(Usage(0, 0))
	require.NoError(t, err)
	r := NewResolver(u, WithLabelFunc(func(vs []float64) string {
		if vs[0] > 5 {
			return "far"
		}
		return "near"
	}))
	label, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "far", label)
}
