package engine

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-audio-crossfeed/internal/simdops"
)

// DrainMode selects how much of the final block Drain emits.
type DrainMode int

const (
	// DrainExact emits only the frames that correspond to real input, so
	// run plus drain output equals the input length once a block completed.
	DrainExact DrainMode = iota
	// DrainFullBlock always emits the whole last block, including the
	// frames produced from synthesized padding.
	DrainFullBlock
)

// String returns the mode name used in configuration files.
func (m DrainMode) String() string {
	switch m {
	case DrainExact:
		return "exact"
	case DrainFullBlock:
		return "full"
	default:
		return fmt.Sprintf("DrainMode(%d)", int(m))
	}
}

// Engine errors.
var (
	ErrNilFilterBank    = errors.New("filter bank is nil")
	ErrInvalidDrainMode = errors.New("invalid drain mode")
)

// Convolver runs streaming overlap-add convolution of an interleaved stereo
// stream against a FilterBank and mixes the four results into two ears.
//
// Input channel 0 drives PositionA and input channel 1 drives PositionB.
// Output frame i of a block is
//
//	left  = A*h[A][left]  + B*h[B][left]
//	right = A*h[A][right] + B*h[B][right]
//
// bufPos is a single cursor with two views: it is the write position in the
// input accumulator and, once the first block completed, the read position
// in the mixed output of the previous block. Every frame accepted after the
// first block therefore yields exactly one output frame, delayed by one
// block.
//
// A Convolver is not safe for concurrent use.
type Convolver struct {
	bank *FilterBank
	fft  *fourier.FFT
	mode DrainMode

	fftSize   int
	blockSize int
	scale     float64 // 1/fftSize, gonum's inverse transform is unnormalized

	// Input accumulator per channel, length fftSize. Only [0, blockSize)
	// is ever written, so the upper half stays zero.
	input [stereoChannels][]float64

	// Scratch spectra, length spectrumLen.
	spectrum []complex128
	product  []complex128

	// Per [position][ear] block results (length fftSize) and carried
	// future halves (length blockSize).
	output  [numPositions][numEars][]float64
	overlap [numPositions][numEars][]float64

	// Mixed ear signals of the last completed block, length blockSize.
	mixed [numEars][]float64

	bufPos    int
	hasOutput bool
	drainPos  int
	drainEnd  int
	padding   bool
}

// NewConvolver creates a convolver bound to bank. Several convolvers may
// share one bank; each owns its FFT plan and buffers.
func NewConvolver(bank *FilterBank, mode DrainMode) (*Convolver, error) {
	if bank == nil {
		return nil, ErrNilFilterBank
	}
	if mode != DrainExact && mode != DrainFullBlock {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDrainMode, int(mode))
	}

	n := bank.FFTSize()
	b := bank.BlockSize()

	c := &Convolver{
		bank:      bank,
		fft:       fourier.NewFFT(n),
		mode:      mode,
		fftSize:   n,
		blockSize: b,
		scale:     1.0 / float64(n),
		spectrum:  make([]complex128, bank.SpectrumLen()),
		product:   make([]complex128, bank.SpectrumLen()),
		drainEnd:  b,
	}
	for ch := range stereoChannels {
		c.input[ch] = make([]float64, n)
	}
	for pos := range numPositions {
		for ear := range numEars {
			c.output[pos][ear] = make([]float64, n)
			c.overlap[pos][ear] = make([]float64, b)
		}
	}
	for ear := range numEars {
		c.mixed[ear] = make([]float64, b)
	}

	return c, nil
}

// Run consumes len(src)/2 interleaved stereo frames and writes the output
// frames that became available into dst. It returns the number of output
// frames written. dst must hold at least len(src) samples.
func (c *Convolver) Run(dst, src []float64) int {
	return c.feed(dst, src, len(src)/stereoChannels)
}

// feed pushes frames through the accumulator. A nil src feeds silence.
func (c *Convolver) feed(dst, src []float64, frames int) int {
	written := 0
	for done := 0; done < frames; {
		n := min(c.blockSize-c.bufPos, frames-done)
		lo, hi := c.bufPos, c.bufPos+n

		if src != nil {
			simdops.Deinterleave2(c.input[0][lo:hi], c.input[1][lo:hi],
				src[done*stereoChannels:(done+n)*stereoChannels])
		} else {
			clear(c.input[0][lo:hi])
			clear(c.input[1][lo:hi])
		}

		if c.hasOutput {
			simdops.Interleave2(dst[written*stereoChannels:(written+n)*stereoChannels],
				c.mixed[EarLeft][lo:hi], c.mixed[EarRight][lo:hi])
			written += n
		}

		c.bufPos = hi
		done += n

		if c.bufPos == c.blockSize {
			c.processBlock()
		}
	}
	return written
}

// processBlock convolves the accumulated block and refreshes the mixed
// output buffers.
func (c *Convolver) processBlock() {
	b := c.blockSize

	for pos := range numPositions {
		// One forward transform per input channel, shared by both ears.
		c.spectrum = c.fft.Coefficients(c.spectrum, c.input[pos])

		for ear := range numEars {
			simdops.MulComplex(c.product, c.spectrum, c.bank.filters[pos][ear])

			out := c.output[pos][ear]
			out = c.fft.Sequence(out, c.product)
			simdops.Scale(out, out, c.scale)

			tail := c.overlap[pos][ear]
			simdops.Add(out[:b], out[:b], tail)
			copy(tail, out[b:])
		}
	}

	for ear := range numEars {
		simdops.Add(c.mixed[ear], c.output[PositionA][ear][:b], c.output[PositionB][ear][:b])
	}

	c.bufPos = 0
	c.hasOutput = true
}

// Drain flushes the stream tail into dst and returns the number of frames
// written. Call it repeatedly until it returns 0.
//
// While a partial block is pending, Drain completes it by feeding silence,
// at most one block's worth per call. Afterwards it emits the remaining
// mixed frames of the last block. Nothing is emitted if no block has
// completed yet.
func (c *Convolver) Drain(dst []float64) int {
	capacity := len(dst) / stereoChannels
	if !c.hasOutput || capacity == 0 {
		return 0
	}

	if c.bufPos > 0 {
		if !c.padding {
			c.padding = true
			if c.mode == DrainExact {
				c.drainEnd = c.bufPos
			}
		}
		n := min(c.blockSize-c.bufPos, capacity)
		return c.feed(dst, nil, n)
	}

	n := min(c.drainEnd-c.drainPos, capacity)
	if n <= 0 {
		return 0
	}
	lo, hi := c.drainPos, c.drainPos+n
	simdops.Interleave2(dst[:n*stereoChannels], c.mixed[EarLeft][lo:hi], c.mixed[EarRight][lo:hi])
	c.drainPos = hi
	return n
}

// Reset returns the convolver to its freshly constructed state without
// reallocating.
func (c *Convolver) Reset() {
	c.bufPos = 0
	c.hasOutput = false
	c.drainPos = 0
	c.drainEnd = c.blockSize
	c.padding = false
	for pos := range numPositions {
		for ear := range numEars {
			clear(c.overlap[pos][ear])
		}
	}
}

// Release drops all buffers and the FFT plan. The convolver must not be
// used afterwards.
func (c *Convolver) Release() {
	c.bank = nil
	c.fft = nil
	c.input = [stereoChannels][]float64{}
	c.spectrum = nil
	c.product = nil
	c.output = [numPositions][numEars][]float64{}
	c.overlap = [numPositions][numEars][]float64{}
	c.mixed = [numEars][]float64{}
}

// Mode returns the drain mode.
func (c *Convolver) Mode() DrainMode {
	return c.mode
}

// BlockSize returns the number of frames per convolution step.
func (c *Convolver) BlockSize() int {
	return c.blockSize
}

// Latency returns the delay between input and output in frames.
func (c *Convolver) Latency() int {
	return c.blockSize
}

// Pending returns the number of frames accepted into the current partial
// block.
func (c *Convolver) Pending() int {
	return c.bufPos
}

// MemoryUsage estimates the bytes held by the convolver and its filter bank.
func (c *Convolver) MemoryUsage() int64 {
	n := int64(c.fftSize)
	b := int64(c.blockSize)
	floatsHeld := stereoChannels*n + // input
		numPositions*numEars*n + // output
		numPositions*numEars*b + // overlap
		numEars*b // mixed
	complexHeld := 2 * int64(len(c.spectrum))

	total := floatsHeld*bytesPerFloat64 + complexHeld*bytesPerComplex128
	if c.bank != nil {
		total += c.bank.MemoryUsage()
	}
	return total
}
