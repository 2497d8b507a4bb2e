// Package source decodes audio files into normalized interleaved float64
// samples. It backs both impulse response loading and the CLI input.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Errors returned by Open.
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFile       = errors.New("invalid audio file")
)

// UnknownFrames is reported by Frames when the stream length is not known
// up front.
const UnknownFrames = -1

// Source is a decoded audio stream.
type Source interface {
	// Channels returns the number of interleaved channels.
	Channels() int
	// SampleRate returns the sample rate in Hz.
	SampleRate() int
	// BitDepth returns the bits per sample of the encoded data.
	BitDepth() int
	// Frames returns the total number of frames, or UnknownFrames.
	Frames() int64
	// Read decodes up to frames frames into dst as interleaved samples in
	// [-1, 1) and returns the number of frames decoded. dst must hold
	// frames*Channels() samples. At end of stream it returns 0, io.EOF.
	Read(dst []float64, frames int) (int, error)
	// Close releases the underlying file.
	Close() error
}

// Open opens path and selects a decoder by file extension.
func Open(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".mp3":
		return OpenMP3(path)
	case ".flac":
		return OpenFLAC(path)
	default:
		return nil, fmt.Errorf("%w: %q (supported: .wav, .mp3, .flac)", ErrUnsupportedFormat, ext)
	}
}

// fullScale returns 2^(bits-1), the magnitude that maps to 1.0.
func fullScale(bits int) float64 {
	return float64(int64(1) << (bits - 1))
}
