package crossfeed

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-crossfeed/internal/engine"
	"github.com/tphakala/go-audio-crossfeed/internal/simdops"
	"github.com/tphakala/go-audio-crossfeed/internal/source"
)

// ImpulseSource is a decoded stereo impulse response. It is read once during
// construction and then closed.
type ImpulseSource interface {
	// Channels returns the number of interleaved channels.
	Channels() int
	// SampleRate returns the sample rate in Hz.
	SampleRate() int
	// Frames returns the number of frames, or a negative value if unknown.
	Frames() int64
	// Read decodes up to frames frames of interleaved samples into dst and
	// returns the number of frames read. It returns io.EOF at end of data.
	Read(dst []float64, frames int) (int, error)
	// Close releases the source.
	Close() error
}

// Position selects one of the two virtual speakers.
type Position int

const (
	// PositionA is the speaker driven by input channel 0 (impulse A).
	PositionA Position = engine.PositionA
	// PositionB is the speaker driven by input channel 1 (impulse B).
	PositionB Position = engine.PositionB
)

// Ear selects one of the two recorded ear channels of an impulse.
type Ear int

const (
	// EarLeft is impulse channel 0, mixed into the left output channel.
	EarLeft Ear = engine.EarLeft
	// EarRight is impulse channel 1, mixed into the right output channel.
	EarRight Ear = engine.EarRight
)

// DrainMode controls how much of the final block Drain emits.
type DrainMode = engine.DrainMode

const (
	// DrainExact emits exactly as many frames in total as were fed in,
	// provided at least one full block was fed.
	DrainExact = engine.DrainExact
	// DrainFullBlock always emits the whole last block, padding included.
	DrainFullBlock = engine.DrainFullBlock
)

// ParseDrainMode converts "exact" or "full" into a DrainMode.
func ParseDrainMode(s string) (DrainMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return DrainExact, nil
	case "full", "fullblock", "full-block":
		return DrainFullBlock, nil
	default:
		return DrainExact, fmt.Errorf("%w: unknown drain mode %q", ErrInvalidConfig, s)
	}
}

// Common errors returned by the crossfeed effect.
var (
	// ErrInvalidConfig is wrapped by every construction error.
	ErrInvalidConfig = errors.New("invalid crossfeed configuration")

	// ErrUsage indicates a wrong number of impulse arguments.
	ErrUsage = errors.New("usage: crossfeed <impulse A> <impulse B>")

	// ErrNotStereo indicates a host stream or impulse that is not stereo.
	ErrNotStereo = errors.New("stream is not stereo")

	// ErrSampleRateMismatch indicates an impulse recorded at another rate.
	ErrSampleRateMismatch = errors.New("impulse sample rate does not match stream")

	// ErrImpulseTooShort indicates an impulse of one frame or less.
	ErrImpulseTooShort = errors.New("impulse response too short")

	// ErrClosed is returned by any call after Close.
	ErrClosed = errors.New("crossfeed is closed")

	// ErrBufferTooSmall indicates the output buffer cannot hold the result.
	ErrBufferTooSmall = errors.New("output buffer too small")

	// ErrOddLength indicates an interleaved stereo buffer with a partial frame.
	ErrOddLength = errors.New("stereo buffer has odd length")
)

// Config holds crossfeed configuration.
type Config struct {
	// SampleRate is the host stream rate in Hz. Both impulses must match it.
	SampleRate int

	// Channels is the host stream channel count. Must be 2.
	Channels int

	// ImpulseA and ImpulseB are paths to the impulse files used by New.
	// They are ignored by NewWithSources.
	ImpulseA string
	ImpulseB string

	// DrainMode selects the end-of-stream behavior. Defaults to DrainExact.
	DrainMode DrainMode

	// Logger receives construction diagnostics. When nil the logrus
	// standard logger is used.
	Logger logrus.FieldLogger
}

// Validate checks the host stream parameters.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	}
	if c.Channels != stereoChannels {
		return fmt.Errorf("%w: %w: host has %d channels", ErrInvalidConfig, ErrNotStereo, c.Channels)
	}
	if c.DrainMode != DrainExact && c.DrainMode != DrainFullBlock {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, engine.ErrInvalidDrainMode)
	}
	return nil
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger.WithField("component", logComponent)
	}
	return logrus.StandardLogger().WithField("component", logComponent)
}

// Crossfeed is a streaming HRTF crossfeed effect for interleaved stereo.
//
// Input channel 0 is rendered through impulse A and input channel 1 through
// impulse B; the left output is the sum of both impulses' left channels and
// the right output the sum of their right channels. Output lags input by one
// block (Info().Latency frames).
//
// A Crossfeed is not safe for concurrent use.
type Crossfeed struct {
	bank       *engine.FilterBank
	conv       *engine.Convolver
	log        logrus.FieldLogger
	sampleRate int
	closed     bool
}

// New opens cfg.ImpulseA and cfg.ImpulseB and builds the effect.
func New(cfg *Config) (*Crossfeed, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if cfg.ImpulseA == "" || cfg.ImpulseB == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrUsage)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a, err := source.Open(cfg.ImpulseA)
	if err != nil {
		return nil, fmt.Errorf("%w: impulse A: %w", ErrInvalidConfig, err)
	}
	b, err := source.Open(cfg.ImpulseB)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("%w: impulse B: %w", ErrInvalidConfig, err)
	}

	return build(cfg, a, b)
}

// NewWithSources builds the effect from already opened impulse sources.
// It takes ownership of a and b and closes both before returning, on
// success and on failure.
func NewWithSources(cfg *Config, a, b ImpulseSource) (*Crossfeed, error) {
	closeBoth := func() {
		if a != nil {
			_ = a.Close()
		}
		if b != nil {
			_ = b.Close()
		}
	}

	if cfg == nil {
		closeBoth()
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if a == nil || b == nil {
		closeBoth()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrUsage)
	}
	if err := cfg.Validate(); err != nil {
		closeBoth()
		return nil, err
	}

	return build(cfg, a, b)
}

// NewFromArgs builds the effect from a host format and an argument list of
// exactly two impulse paths.
func NewFromArgs(sampleRate, channels int, args []string) (*Crossfeed, error) {
	if len(args) != requiredArgs {
		return nil, fmt.Errorf("%w: %w (got %d arguments)", ErrInvalidConfig, ErrUsage, len(args))
	}
	return New(&Config{
		SampleRate: sampleRate,
		Channels:   channels,
		ImpulseA:   args[0],
		ImpulseB:   args[1],
	})
}

// build loads both impulses, closing them, and assembles the effect.
func build(cfg *Config, a, b ImpulseSource) (*Crossfeed, error) {
	log := cfg.logger()

	irA, errA := loadImpulse(a, cfg.SampleRate, "A", log)
	_ = a.Close()
	if errA != nil {
		_ = b.Close()
		return nil, errA
	}
	irB, errB := loadImpulse(b, cfg.SampleRate, "B", log)
	_ = b.Close()
	if errB != nil {
		return nil, errB
	}

	bank, err := engine.NewFilterBank(irA, irB)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	conv, err := engine.NewConvolver(bank, cfg.DrainMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	log.WithFields(logrus.Fields{
		"block_size":       bank.BlockSize(),
		"fft_size":         bank.FFTSize(),
		"impulse_a_frames": bank.ImpulseFrames(engine.PositionA),
		"impulse_b_frames": bank.ImpulseFrames(engine.PositionB),
		"sample_rate":      cfg.SampleRate,
		"drain_mode":       cfg.DrainMode.String(),
	}).Info("HRTF crossfeed initialized")

	return &Crossfeed{
		bank:       bank,
		conv:       conv,
		log:        log,
		sampleRate: cfg.SampleRate,
	}, nil
}

// loadImpulse validates one impulse source and decodes it into two channel
// buffers. A short read is logged and the remainder left silent.
func loadImpulse(src ImpulseSource, rate int, name string, log logrus.FieldLogger) (engine.Impulse, error) {
	if src.Channels() != stereoChannels {
		return engine.Impulse{}, fmt.Errorf("%w: %w: impulse %s has %d channels",
			ErrInvalidConfig, ErrNotStereo, name, src.Channels())
	}
	if src.SampleRate() != rate {
		return engine.Impulse{}, fmt.Errorf("%w: %w: impulse %s is %d Hz, stream is %d Hz",
			ErrInvalidConfig, ErrSampleRateMismatch, name, src.SampleRate(), rate)
	}

	expected := src.Frames()
	if expected >= 0 && expected < minImpulseFrames {
		return engine.Impulse{}, fmt.Errorf("%w: %w: impulse %s has %d frames",
			ErrInvalidConfig, ErrImpulseTooShort, name, expected)
	}

	var left, right []float64
	if expected > 0 {
		left = make([]float64, 0, expected)
		right = make([]float64, 0, expected)
	}

	buf := make([]float64, readChunkFrames*stereoChannels)
	var readErr error
	for expected < 0 || int64(len(left)) < expected {
		want := readChunkFrames
		if expected >= 0 {
			want = int(min(int64(readChunkFrames), expected-int64(len(left))))
		}
		n, err := src.Read(buf, want)
		for i := range n {
			left = append(left, buf[i*stereoChannels])
			right = append(right, buf[i*stereoChannels+1])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
		if n == 0 {
			break
		}
	}

	read := int64(len(left))
	if expected < 0 {
		if read < minImpulseFrames {
			return engine.Impulse{}, fmt.Errorf("%w: %w: impulse %s has %d frames",
				ErrInvalidConfig, ErrImpulseTooShort, name, read)
		}
		return engine.Impulse{left, right}, nil
	}

	if read < expected {
		fields := logrus.Fields{
			"impulse":         name,
			"expected_frames": expected,
			"read_frames":     read,
		}
		if readErr != nil {
			fields["error"] = readErr.Error()
		}
		log.WithFields(fields).Warn("short read from impulse, padding with silence")
		left = left[:expected]
		right = right[:expected]
	}

	return engine.Impulse{left, right}, nil
}

// Run consumes interleaved stereo frames from src and writes the frames that
// became available to dst, returning the number of output frames. dst must
// have room for len(src) samples. The first block's worth of input produces
// no output.
func (c *Crossfeed) Run(dst, src []float64) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if len(src)%stereoChannels != 0 {
		return 0, fmt.Errorf("%w: %d samples", ErrOddLength, len(src))
	}
	if len(dst) < len(src) {
		return 0, fmt.Errorf("%w: need %d samples, have %d", ErrBufferTooSmall, len(src), len(dst))
	}
	return c.conv.Run(dst, src), nil
}

// Drain writes up to len(dst)/2 frames of the stream tail to dst. Call it
// repeatedly until it returns 0. It emits nothing if fewer frames than one
// block were ever fed.
func (c *Crossfeed) Drain(dst []float64) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	return c.conv.Drain(dst), nil
}

// Reset clears the streaming state so the effect behaves like a freshly
// constructed one. Filters are kept.
func (c *Crossfeed) Reset() {
	if c.closed {
		return
	}
	c.conv.Reset()
	c.log.Debug("HRTF crossfeed reset")
}

// Close releases the filters and buffers. Calls after Close return ErrClosed.
func (c *Crossfeed) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.conv.Release()
	c.conv = nil
	c.bank = nil
	c.log.Debug("HRTF crossfeed closed")
	return nil
}

// Info returns information about the effect.
type Info struct {
	// SampleRate is the stream rate in Hz.
	SampleRate int

	// BlockSize is the number of frames per convolution step.
	BlockSize int

	// FFTSize is the transform length, twice the block size.
	FFTSize int

	// SpectrumLen is the number of complex bins per filter.
	SpectrumLen int

	// ImpulseFrames holds the original lengths of impulse A and B.
	ImpulseFrames [2]int

	// Latency is the delay from input to output in frames.
	Latency int

	// DrainMode is the configured end-of-stream behavior.
	DrainMode DrainMode

	// MemoryUsage is the approximate memory usage in bytes.
	MemoryUsage int64

	// SIMDType describes the SIMD instruction set in use.
	SIMDType string
}

// Info returns information about the effect. It returns the zero Info after
// Close.
func (c *Crossfeed) Info() Info {
	if c.closed {
		return Info{}
	}
	return Info{
		SampleRate:  c.sampleRate,
		BlockSize:   c.bank.BlockSize(),
		FFTSize:     c.bank.FFTSize(),
		SpectrumLen: c.bank.SpectrumLen(),
		ImpulseFrames: [2]int{
			c.bank.ImpulseFrames(engine.PositionA),
			c.bank.ImpulseFrames(engine.PositionB),
		},
		Latency:     c.conv.Latency(),
		DrainMode:   c.conv.Mode(),
		MemoryUsage: c.conv.MemoryUsage(),
		SIMDType:    simdops.Info(),
	}
}

// Response returns the magnitude spectrum of one filter, SpectrumLen bins
// from DC to Nyquist. It returns nil after Close or for an invalid
// position or ear.
func (c *Crossfeed) Response(pos Position, ear Ear) []float64 {
	if c.closed || !validIndex(int(pos)) || !validIndex(int(ear)) {
		return nil
	}
	return c.bank.Response(int(pos), int(ear))
}

// FilterStats summarizes one filter's frequency response.
type FilterStats = engine.FilterStats

// Stats returns summary statistics for one filter. The second result is
// false after Close or for an invalid position or ear.
func (c *Crossfeed) Stats(pos Position, ear Ear) (FilterStats, bool) {
	if c.closed || !validIndex(int(pos)) || !validIndex(int(ear)) {
		return FilterStats{}, false
	}
	return c.bank.Stats(int(pos), int(ear)), true
}

func validIndex(i int) bool {
	return i >= 0 && i < stereoChannels
}
