// Package testutil provides reusable test helpers for the crossfeed packages.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-crossfeed/internal/wavout"
)

// TestingT is the subset of *testing.T the assertions need.
type TestingT interface {
	assert.TestingT
	Helper()
}

// Default tolerances for various test scenarios.
const (
	DefaultTolerance   = 1e-10
	MagnitudeTolerance = 1e-2
)

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t TestingT, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, fmt.Sprintf("s[%d] is NaN", i), msgAndArgs...)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, fmt.Sprintf("s[%d] is Inf", i), msgAndArgs...)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t TestingT, s []float64, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t,
				fmt.Sprintf("s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal), msgAndArgs...)
		}
	}
	return true
}

// AssertSlicesInDelta verifies equal length and element-wise closeness.
// It reports only the first mismatch.
func AssertSlicesInDelta(t TestingT, expected, actual []float64, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		if math.Abs(expected[i]-actual[i]) > tolerance {
			return assert.Fail(t,
				fmt.Sprintf("index %d: expected %g, got %g (tolerance %g)", i, expected[i], actual[i], tolerance),
				msgAndArgs...)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t TestingT, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	if relError > tolerance {
		return assert.Fail(t,
			fmt.Sprintf("relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
				relError, tolerance, expected, actual),
			msgAndArgs...)
	}
	return true
}

// StereoSine returns frames of interleaved stereo with independent
// frequencies per channel.
func StereoSine(frames, sampleRate int, freqL, freqR, amplitude float64) []float64 {
	out := make([]float64, frames*2)
	for i := range frames {
		tm := float64(i) / float64(sampleRate)
		out[i*2] = amplitude * math.Sin(2*math.Pi*freqL*tm)
		out[i*2+1] = amplitude * math.Sin(2*math.Pi*freqR*tm)
	}
	return out
}

// Noise returns deterministic pseudo-random samples in [-amplitude, amplitude).
func Noise(n int, seed uint32, amplitude float64) []float64 {
	out := make([]float64, n)
	state := seed | 1
	for i := range out {
		// xorshift32
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = amplitude * (float64(state)/float64(math.MaxUint32)*2 - 1)
	}
	return out
}

// UnitImpulse returns a slice of length n with a single 1 at delay.
func UnitImpulse(n, delay int) []float64 {
	out := make([]float64, n)
	out[delay] = 1
	return out
}

// Convolve computes the full linear convolution of x and h.
func Convolve(x, h []float64) []float64 {
	if len(x) == 0 || len(h) == 0 {
		return nil
	}
	out := make([]float64, len(x)+len(h)-1)
	for i, xv := range x {
		for j, hv := range h {
			out[i+j] += xv * hv
		}
	}
	return out
}

// WriteWAV writes interleaved samples to a temporary WAV file and returns
// its path.
func WriteWAV(t *testing.T, name string, sampleRate, bitDepth, channels int, samples []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w, err := wavout.Create(path, sampleRate, bitDepth, channels)
	require.NoError(t, err)
	require.NoError(t, w.Write(samples))
	require.NoError(t, w.Close())
	return path
}

// WriteFLAC writes interleaved integer samples to a temporary FLAC file with
// blockSize frames per FLAC frame and returns its path. Subframes are stored
// verbatim so decoded samples are bit-exact.
func WriteFLAC(t *testing.T, name string, sampleRate, bitDepth, channels, blockSize int, samples []int32) string {
	t.Helper()
	require.Positive(t, blockSize)
	require.Zero(t, len(samples)%channels, "partial frame")
	total := len(samples) / channels

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(blockSize),
		BlockSizeMax:  uint16(blockSize),
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: uint8(bitDepth),
		NSamples:      uint64(total),
	}
	enc, err := flac.NewEncoder(f, info)
	require.NoError(t, err)

	layout := frame.ChannelsLR
	if channels == 1 {
		layout = frame.ChannelsMono
	}

	for start, num := 0, 0; start < total; start, num = start+blockSize, num+1 {
		n := min(blockSize, total-start)
		fr := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(n),
				SampleRate:        uint32(sampleRate),
				Channels:          layout,
				BitsPerSample:     uint8(bitDepth),
				Num:               uint64(num),
			},
			Subframes: make([]*frame.Subframe, channels),
		}
		for ch := range channels {
			sub := &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   make([]int32, n),
				NSamples:  n,
			}
			for i := range n {
				sub.Samples[i] = samples[(start+i)*channels+ch]
			}
			fr.Subframes[ch] = sub
		}
		require.NoError(t, enc.WriteFrame(fr))
	}

	// The encoder closes the file and rewrites STREAMINFO.
	require.NoError(t, enc.Close())
	_ = f.Close()
	return path
}
