package source

import "io"

// memoryBitDepth is reported for in-memory float64 data.
const memoryBitDepth = 64

// Memory is a Source over interleaved samples held in memory.
type Memory struct {
	channels int
	rate     int
	data     []float64
	pos      int
	closed   bool
}

// NewMemory wraps interleaved samples. A trailing partial frame is ignored.
func NewMemory(channels, sampleRate int, interleaved []float64) *Memory {
	usable := len(interleaved)
	if channels > 0 {
		usable -= usable % channels
	}
	return &Memory{
		channels: channels,
		rate:     sampleRate,
		data:     interleaved[:usable],
	}
}

// Channels returns the channel count.
func (m *Memory) Channels() int { return m.channels }

// SampleRate returns the sample rate in Hz.
func (m *Memory) SampleRate() int { return m.rate }

// BitDepth returns 64.
func (m *Memory) BitDepth() int { return memoryBitDepth }

// Frames returns the number of complete frames.
func (m *Memory) Frames() int64 {
	if m.channels <= 0 {
		return 0
	}
	return int64(len(m.data) / m.channels)
}

// Read copies up to frames frames into dst.
func (m *Memory) Read(dst []float64, frames int) (int, error) {
	if m.channels <= 0 || m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(dst[:frames*m.channels], m.data[m.pos:])
	m.pos += n
	return n / m.channels, nil
}

// Close marks the source closed. It never fails.
func (m *Memory) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	return m.closed
}
