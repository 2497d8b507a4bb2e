// Package engine implements the streaming FFT convolution behind the
// HRTF crossfeed effect.
package engine

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidImpulse indicates an impulse response that cannot be turned
// into a filter.
var ErrInvalidImpulse = errors.New("invalid impulse response")

// Impulse is a decoded stereo impulse response as [left, right] channel
// slices of equal length.
type Impulse [numEars][]float64

// Frames returns the impulse length in frames.
func (ir Impulse) Frames() int {
	return len(ir[EarLeft])
}

// FilterBank holds the frequency responses of two stereo impulse responses,
// indexed [position][ear]. It is immutable after construction and can be
// shared between convolvers.
type FilterBank struct {
	fftSize     int
	blockSize   int
	spectrumLen int
	impulseLens [numPositions]int
	filters     [numPositions][numEars][]complex128
}

// NewFilterBank zero-pads both impulses to the common FFT size
// N = 2*(max(lenA, lenB)-1) and transforms every channel once.
// The shorter impulse is extended with silence.
func NewFilterBank(a, b Impulse) (*FilterBank, error) {
	impulses := [numPositions]Impulse{a, b}

	frames := 0
	for pos, ir := range impulses {
		if len(ir[EarLeft]) != len(ir[EarRight]) {
			return nil, fmt.Errorf("%w: position %d channel lengths differ (%d != %d)",
				ErrInvalidImpulse, pos, len(ir[EarLeft]), len(ir[EarRight]))
		}
		if ir.Frames() < minImpulseFrames {
			return nil, fmt.Errorf("%w: position %d has %d frames, need at least %d",
				ErrInvalidImpulse, pos, ir.Frames(), minImpulseFrames)
		}
		frames = max(frames, ir.Frames())
	}

	fftSize := fftSizeFactor * (frames - 1)
	fft := fourier.NewFFT(fftSize)

	bank := &FilterBank{
		fftSize:     fftSize,
		blockSize:   fftSize / fftSizeFactor,
		spectrumLen: fftSize/fftHermitianDivisor + 1,
	}

	padded := make([]float64, fftSize)
	for pos, ir := range impulses {
		bank.impulseLens[pos] = ir.Frames()
		for ear := range numEars {
			clear(padded)
			copy(padded, ir[ear])
			bank.filters[pos][ear] = fft.Coefficients(nil, padded)
		}
	}

	return bank, nil
}

// FFTSize returns N, the transform length.
func (fb *FilterBank) FFTSize() int {
	return fb.fftSize
}

// BlockSize returns B = N/2, the number of frames per convolution step.
func (fb *FilterBank) BlockSize() int {
	return fb.blockSize
}

// SpectrumLen returns the number of complex bins per filter (B+1).
func (fb *FilterBank) SpectrumLen() int {
	return fb.spectrumLen
}

// ImpulseFrames returns the original length of the impulse at pos.
func (fb *FilterBank) ImpulseFrames(pos int) int {
	return fb.impulseLens[pos]
}

// Response returns the magnitude spectrum of one filter.
func (fb *FilterBank) Response(pos, ear int) []float64 {
	spectrum := fb.filters[pos][ear]
	mag := make([]float64, len(spectrum))
	for i, v := range spectrum {
		mag[i] = cmplx.Abs(v)
	}
	return mag
}

// FilterStats summarizes one filter's frequency response.
type FilterStats struct {
	// DCGain is the sum of the impulse samples (bin 0 of the spectrum).
	DCGain float64
	// PeakMagnitude is the largest bin magnitude.
	PeakMagnitude float64
	// PeakBin is the index of the largest bin.
	PeakBin int
	// Energy is the L2 norm of the magnitude spectrum.
	Energy float64
}

// Stats computes summary statistics for one filter.
func (fb *FilterBank) Stats(pos, ear int) FilterStats {
	mag := fb.Response(pos, ear)
	peak := floats.MaxIdx(mag)
	return FilterStats{
		DCGain:        real(fb.filters[pos][ear][0]),
		PeakMagnitude: mag[peak],
		PeakBin:       peak,
		Energy:        floats.Norm(mag, 2),
	}
}

// MemoryUsage returns the approximate size of the stored spectra in bytes.
func (fb *FilterBank) MemoryUsage() int64 {
	return int64(numPositions*numEars*fb.spectrumLen) * bytesPerComplex128
}
