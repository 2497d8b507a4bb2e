package crossfeed

import (
	"fmt"

	"github.com/tphakala/go-audio-crossfeed/internal/source"
)

// NewImpulse wraps two in-memory channels as a stereo ImpulseSource. The
// shorter channel is padded with silence.
func NewImpulse(sampleRate int, left, right []float64) ImpulseSource {
	frames := max(len(left), len(right))
	interleaved := make([]float64, frames*stereoChannels)
	for i, v := range left {
		interleaved[i*stereoChannels] = v
	}
	for i, v := range right {
		interleaved[i*stereoChannels+1] = v
	}
	return source.NewMemory(stereoChannels, sampleRate, interleaved)
}

// Process runs src through the effect and returns a newly allocated slice
// holding the output frames.
func (c *Crossfeed) Process(src []float64) ([]float64, error) {
	out := make([]float64, len(src))
	n, err := c.Run(out, src)
	if err != nil {
		return nil, err
	}
	return out[:n*stereoChannels], nil
}

// Flush drains the effect completely and returns the tail.
func (c *Crossfeed) Flush() ([]float64, error) {
	if c.closed {
		return nil, ErrClosed
	}
	buf := make([]float64, c.bank.BlockSize()*stereoChannels)
	var out []float64
	for {
		n, err := c.Drain(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, buf[:n*stereoChannels]...)
	}
}

// ProcessStereo renders a complete interleaved stereo signal through the
// impulses a and b in one call. The result has the same length as input when
// input is at least one block long. Both sources are closed.
func ProcessStereo(input []float64, sampleRate int, a, b ImpulseSource) ([]float64, error) {
	cf, err := NewWithSources(&Config{
		SampleRate: sampleRate,
		Channels:   stereoChannels,
	}, a, b)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cf.Close() }()

	out, err := cf.Process(input)
	if err != nil {
		return nil, fmt.Errorf("crossfeed processing failed: %w", err)
	}
	tail, err := cf.Flush()
	if err != nil {
		return nil, fmt.Errorf("crossfeed flush failed: %w", err)
	}
	return append(out, tail...), nil
}
