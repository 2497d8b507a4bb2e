package crossfeed

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-crossfeed/internal/testutil"
)

// fakeSource is an ImpulseSource with controllable metadata and read
// behavior.
type fakeSource struct {
	channels int
	rate     int
	frames   int64
	data     []float64 // interleaved
	readErr  error     // returned once data is exhausted instead of io.EOF
	pos      int
	closed   int
}

func (f *fakeSource) Channels() int   { return f.channels }
func (f *fakeSource) SampleRate() int { return f.rate }
func (f *fakeSource) Frames() int64   { return f.frames }
func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func (f *fakeSource) Read(dst []float64, frames int) (int, error) {
	if f.pos >= len(f.data) {
		if f.readErr != nil {
			return 0, f.readErr
		}
		return 0, io.EOF
	}
	n := copy(dst[:frames*f.channels], f.data[f.pos:])
	f.pos += n
	return n / f.channels, nil
}

func stereoFake(rate int, left, right []float64) *fakeSource {
	data := make([]float64, 2*len(left))
	for i := range left {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	return &fakeSource{channels: 2, rate: rate, frames: int64(len(left)), data: data}
}

func nullConfig(rate int) (*Config, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &Config{SampleRate: rate, Channels: 2, Logger: logger}, hook
}

// =============================================================================
// Construction
// =============================================================================

func TestNewWithSources_LogsInfo(t *testing.T) {
	cfg, hook := nullConfig(RateDAT)
	a := stereoFake(RateDAT, testutil.UnitImpulse(65, 0), make([]float64, 65))
	b := stereoFake(RateDAT, make([]float64, 33), testutil.UnitImpulse(33, 0))

	cf, err := NewWithSources(cfg, a, b)
	require.NoError(t, err)
	defer func() { _ = cf.Close() }()

	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "crossfeed", entry.Data["component"])
	assert.Equal(t, 64, entry.Data["block_size"])
	assert.Equal(t, 128, entry.Data["fft_size"])
	assert.Equal(t, 65, entry.Data["impulse_a_frames"])
	assert.Equal(t, 33, entry.Data["impulse_b_frames"])
}

func TestNewWithSources_Errors(t *testing.T) {
	valid := func() *fakeSource {
		return stereoFake(RateCD, []float64{1, 0, 0}, []float64{0, 0, 0})
	}

	tests := []struct {
		name     string
		cfg      Config
		a, b     *fakeSource
		sentinel error
	}{
		{
			name:     "host mono",
			cfg:      Config{SampleRate: RateCD, Channels: 1},
			a:        valid(),
			b:        valid(),
			sentinel: ErrNotStereo,
		},
		{
			name:     "host surround",
			cfg:      Config{SampleRate: RateCD, Channels: 6},
			a:        valid(),
			b:        valid(),
			sentinel: ErrNotStereo,
		},
		{
			name: "impulse A mono",
			cfg:  Config{SampleRate: RateCD, Channels: 2},
			a: &fakeSource{channels: 1, rate: RateCD, frames: 3,
				data: []float64{1, 0, 0}},
			b:        valid(),
			sentinel: ErrNotStereo,
		},
		{
			name:     "impulse B rate mismatch",
			cfg:      Config{SampleRate: RateCD, Channels: 2},
			a:        valid(),
			b:        stereoFake(RateDAT, []float64{1, 0}, []float64{0, 0}),
			sentinel: ErrSampleRateMismatch,
		},
		{
			name:     "impulse A single frame",
			cfg:      Config{SampleRate: RateCD, Channels: 2},
			a:        stereoFake(RateCD, []float64{1}, []float64{1}),
			b:        valid(),
			sentinel: ErrImpulseTooShort,
		},
		{
			name:     "impulse B empty",
			cfg:      Config{SampleRate: RateCD, Channels: 2},
			a:        valid(),
			b:        stereoFake(RateCD, nil, nil),
			sentinel: ErrImpulseTooShort,
		},
		{
			name:     "unknown length too short",
			cfg:      Config{SampleRate: RateCD, Channels: 2},
			a:        valid(),
			b:        &fakeSource{channels: 2, rate: RateCD, frames: -1, data: []float64{1, 1}},
			sentinel: ErrImpulseTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := NewWithSources(&tt.cfg, tt.a, tt.b)
			require.Error(t, err)
			assert.Nil(t, cf)
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.ErrorIs(t, err, tt.sentinel)

			assert.Equal(t, 1, tt.a.closed, "impulse A must be closed exactly once")
			assert.Equal(t, 1, tt.b.closed, "impulse B must be closed exactly once")
		})
	}
}

func TestNewWithSources_NilArguments(t *testing.T) {
	a := stereoFake(RateCD, []float64{1, 0}, []float64{0, 0})

	_, err := NewWithSources(nil, a, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 1, a.closed)

	b := stereoFake(RateCD, []float64{1, 0}, []float64{0, 0})
	_, err = NewWithSources(&Config{SampleRate: RateCD, Channels: 2}, nil, b)
	require.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, 1, b.closed)
}

func TestNewWithSources_ShortReadWarns(t *testing.T) {
	cfg, hook := nullConfig(RateCD)

	// Claims 8 frames but delivers 3, then fails.
	a := stereoFake(RateCD, []float64{1, 0.5, 0.25}, []float64{0, 0, 0})
	a.frames = 8
	a.readErr = errors.New("disk went away")
	b := stereoFake(RateCD, make([]float64, 8), make([]float64, 8))

	cf, err := NewWithSources(cfg, a, b)
	require.NoError(t, err)
	defer func() { _ = cf.Close() }()

	var warn *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warn = e
		}
	}
	require.NotNil(t, warn, "expected a warning for the short read")
	assert.Equal(t, "A", warn.Data["impulse"])
	assert.Equal(t, int64(8), warn.Data["expected_frames"])
	assert.Equal(t, int64(3), warn.Data["read_frames"])
	assert.Equal(t, "disk went away", warn.Data["error"])

	// The impulse keeps its declared length with a silent remainder.
	info := cf.Info()
	assert.Equal(t, [2]int{8, 8}, info.ImpulseFrames)
	stats, ok := cf.Stats(PositionA, EarLeft)
	require.True(t, ok)
	assert.InDelta(t, 1.75, stats.DCGain, testutil.DefaultTolerance)
}

func TestNewWithSources_UnknownLength(t *testing.T) {
	cfg, _ := nullConfig(RateCD)
	a := stereoFake(RateCD, []float64{1, 0, 0, 0}, []float64{0, 0, 0, 0})
	a.frames = -1
	b := stereoFake(RateCD, []float64{0, 0}, []float64{1, 0})

	cf, err := NewWithSources(cfg, a, b)
	require.NoError(t, err)
	defer func() { _ = cf.Close() }()

	assert.Equal(t, [2]int{4, 2}, cf.Info().ImpulseFrames)
	assert.Equal(t, 3, cf.Info().BlockSize)
}

func TestNewFromArgs_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"a.wav"}, {"a.wav", "b.wav", "c.wav"}} {
		cf, err := NewFromArgs(RateDAT, 2, args)
		require.ErrorIs(t, err, ErrUsage)
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Nil(t, cf)
	}
}

func TestNew_FromFiles(t *testing.T) {
	const frames = 32
	a := make([]float64, frames*2)
	b := make([]float64, frames*2)
	a[0] = 0.5 // A -> left
	b[1] = 0.5 // B -> right
	pathA := testutil.WriteWAV(t, "a.wav", RateCD, 16, 2, a)
	pathB := testutil.WriteWAV(t, "b.wav", RateCD, 16, 2, b)

	logger, _ := test.NewNullLogger()
	cf, err := New(&Config{
		SampleRate: RateCD,
		Channels:   2,
		ImpulseA:   pathA,
		ImpulseB:   pathB,
		Logger:     logger,
	})
	require.NoError(t, err)
	defer func() { _ = cf.Close() }()

	info := cf.Info()
	assert.Equal(t, frames-1, info.BlockSize)
	assert.Equal(t, 2*(frames-1), info.FFTSize)
	assert.Equal(t, frames, info.SpectrumLen)
	assert.Equal(t, frames-1, info.Latency)
	assert.Equal(t, RateCD, info.SampleRate)
	assert.NotEmpty(t, info.SIMDType)
	assert.Positive(t, info.MemoryUsage)

	input := testutil.StereoSine(200, RateCD, 500, 700, 0.8)
	out, err := cf.Process(input)
	require.NoError(t, err)
	tail, err := cf.Flush()
	require.NoError(t, err)
	out = append(out, tail...)

	require.Len(t, out, len(input))
	for i := range 200 {
		assert.InDelta(t, 0.5*input[i*2], out[i*2], 1e-4, "left[%d]", i)
		assert.InDelta(t, 0.5*input[i*2+1], out[i*2+1], 1e-4, "right[%d]", i)
	}
}

func TestNew_FLACImpulse(t *testing.T) {
	const frames = 40
	a := make([]int32, frames*2)
	a[0] = 1 << 14 // A -> left at 0.5
	pathA := testutil.WriteFLAC(t, "a.flac", RateCD, 16, 2, 16, a)

	b := make([]float64, frames*2)
	b[1] = 0.5 // B -> right
	pathB := testutil.WriteWAV(t, "b.wav", RateCD, 16, 2, b)

	logger, _ := test.NewNullLogger()
	cf, err := New(&Config{
		SampleRate: RateCD,
		Channels:   2,
		ImpulseA:   pathA,
		ImpulseB:   pathB,
		Logger:     logger,
	})
	require.NoError(t, err)
	defer func() { _ = cf.Close() }()

	info := cf.Info()
	assert.Equal(t, [2]int{frames, frames}, info.ImpulseFrames)
	assert.Equal(t, frames-1, info.BlockSize)

	stats, ok := cf.Stats(PositionA, EarLeft)
	require.True(t, ok)
	assert.InDelta(t, 0.5, stats.DCGain, 1e-9)

	input := testutil.StereoSine(150, RateCD, 300, 900, 0.6)
	out, err := cf.Process(input)
	require.NoError(t, err)
	tail, err := cf.Flush()
	require.NoError(t, err)
	out = append(out, tail...)

	require.Len(t, out, len(input))
	for i := range 150 {
		assert.InDelta(t, 0.5*input[i*2], out[i*2], 1e-9, "left[%d]", i)
		assert.InDelta(t, 0.5*input[i*2+1], out[i*2+1], 1e-4, "right[%d]", i)
	}
}

func TestNew_FileErrors(t *testing.T) {
	valid := testutil.WriteWAV(t, "ok.wav", RateCD, 16, 2, make([]float64, 20))
	mono := testutil.WriteWAV(t, "mono.wav", RateCD, 16, 1, make([]float64, 10))
	wrongRate := testutil.WriteWAV(t, "dat.wav", RateDAT, 16, 2, make([]float64, 20))

	tests := []struct {
		name     string
		a, b     string
		sentinel error
	}{
		{"missing path", "", valid, ErrUsage},
		{"missing file", valid, valid + ".nope.wav", ErrInvalidConfig},
		{"unsupported format", "impulse.aiff", valid, ErrInvalidConfig},
		{"mono impulse", mono, valid, ErrNotStereo},
		{"rate mismatch", valid, wrongRate, ErrSampleRateMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			cf, err := New(&Config{
				SampleRate: RateCD,
				Channels:   2,
				ImpulseA:   tt.a,
				ImpulseB:   tt.b,
				Logger:     logger,
			})
			require.ErrorIs(t, err, tt.sentinel)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, cf)
		})
	}

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{SampleRate: RateDAT, Channels: 2}, false},
		{"full drain", Config{SampleRate: RateDAT, Channels: 2, DrainMode: DrainFullBlock}, false},
		{"zero rate", Config{SampleRate: 0, Channels: 2}, true},
		{"mono", Config{SampleRate: RateDAT, Channels: 1}, true},
		{"bad drain mode", Config{SampleRate: RateDAT, Channels: 2, DrainMode: DrainMode(5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseDrainMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DrainMode
		wantErr bool
	}{
		{"", DrainExact, false},
		{"exact", DrainExact, false},
		{" Full ", DrainFullBlock, false},
		{"full-block", DrainFullBlock, false},
		{"partial", DrainExact, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDrainMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Streaming
// =============================================================================

func newIdentityCrossfeed(t *testing.T, frames int, mode DrainMode) *Crossfeed {
	t.Helper()
	cfg, _ := nullConfig(RateDAT)
	cfg.DrainMode = mode
	a := stereoFake(RateDAT, testutil.UnitImpulse(frames, 0), make([]float64, frames))
	b := stereoFake(RateDAT, make([]float64, frames), testutil.UnitImpulse(frames, 0))
	cf, err := NewWithSources(cfg, a, b)
	require.NoError(t, err)
	return cf
}

func TestCrossfeed_ConcreteScenario(t *testing.T) {
	cf := newIdentityCrossfeed(t, 3, DrainExact)
	defer func() { _ = cf.Close() }()
	require.Equal(t, 2, cf.Info().BlockSize)

	dst := make([]float64, 8)
	n, err := cf.Run(dst, []float64{1, 0, 0, 1, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	testutil.AssertSlicesInDelta(t, []float64{1, 0, 0, 1}, dst[:4], testutil.DefaultTolerance)

	tail, err := cf.Flush()
	require.NoError(t, err)
	testutil.AssertSlicesInDelta(t, []float64{0, 0, 0, 0}, tail, testutil.DefaultTolerance)

	n, err = cf.Drain(dst)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCrossfeed_RunErrors(t *testing.T) {
	cf := newIdentityCrossfeed(t, 9, DrainExact)

	_, err := cf.Run(make([]float64, 4), []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrOddLength)

	_, err = cf.Run(make([]float64, 2), []float64{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrBufferTooSmall)

	n, err := cf.Run(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, cf.Close())
	require.ErrorIs(t, cf.Close(), ErrClosed)

	_, err = cf.Run(make([]float64, 4), []float64{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrClosed)
	_, err = cf.Drain(make([]float64, 4))
	require.ErrorIs(t, err, ErrClosed)
	_, err = cf.Process([]float64{1, 2})
	require.ErrorIs(t, err, ErrClosed)
	_, err = cf.Flush()
	require.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, Info{}, cf.Info())
	assert.Nil(t, cf.Response(PositionA, EarLeft))
	cf.Reset() // no-op after Close
}

func TestCrossfeed_ResetMatchesFresh(t *testing.T) {
	input := testutil.Noise(300*2, 17, 0.7)

	used := newIdentityCrossfeed(t, 40, DrainExact)
	defer func() { _ = used.Close() }()
	_, err := used.Process(testutil.Noise(123*2, 5, 0.9))
	require.NoError(t, err)
	used.Reset()

	fresh := newIdentityCrossfeed(t, 40, DrainExact)
	defer func() { _ = fresh.Close() }()

	got, err := used.Process(input)
	require.NoError(t, err)
	gotTail, err := used.Flush()
	require.NoError(t, err)

	want, err := fresh.Process(input)
	require.NoError(t, err)
	wantTail, err := fresh.Flush()
	require.NoError(t, err)

	assert.Equal(t, append(want, wantTail...), append(got, gotTail...))
}

func TestCrossfeed_DrainModes(t *testing.T) {
	const irFrames = 17 // block size 16
	input := testutil.Noise((3*16+5)*2, 2, 0.5)

	exact := newIdentityCrossfeed(t, irFrames, DrainExact)
	defer func() { _ = exact.Close() }()
	out, err := exact.Process(input)
	require.NoError(t, err)
	tail, err := exact.Flush()
	require.NoError(t, err)
	assert.Len(t, append(out, tail...), len(input))

	full := newIdentityCrossfeed(t, irFrames, DrainFullBlock)
	defer func() { _ = full.Close() }()
	out, err = full.Process(input)
	require.NoError(t, err)
	tail, err = full.Flush()
	require.NoError(t, err)
	assert.Len(t, append(out, tail...), len(input)+(16-5)*2)
	assert.Equal(t, DrainFullBlock, full.Info().DrainMode)
}

func TestCrossfeed_Response(t *testing.T) {
	cf := newIdentityCrossfeed(t, 9, DrainExact)
	defer func() { _ = cf.Close() }()

	flat := cf.Response(PositionA, EarLeft)
	require.Len(t, flat, cf.Info().SpectrumLen)
	for _, m := range flat {
		assert.InDelta(t, 1.0, m, testutil.DefaultTolerance)
	}
	for _, m := range cf.Response(PositionA, EarRight) {
		assert.Zero(t, m)
	}

	assert.Nil(t, cf.Response(Position(2), EarLeft))
	assert.Nil(t, cf.Response(PositionB, Ear(-1)))
	_, ok := cf.Stats(Position(3), EarLeft)
	assert.False(t, ok)
}
