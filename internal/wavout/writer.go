// Package wavout writes interleaved float samples to PCM WAV files.
package wavout

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Supported output bit depths.
const (
	BitDepth8  = 8
	BitDepth16 = 16
	BitDepth24 = 24
	BitDepth32 = 32

	// PCM format tag in the WAV fmt chunk.
	wavFormatPCM = 1

	maxInt8  = 127.0
	maxInt16 = 32767.0

	// 8-bit WAV samples are unsigned around this midpoint.
	uint8Midpoint = 128
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0
)

// ErrUnsupportedBitDepth is returned for bit depths other than 8, 16, 24 or 32.
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

// Writer encodes normalized float samples into a WAV file.
type Writer struct {
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	channels int
	maxVal   float64
	offset   int
	frames   int64
}

// Create opens path for writing and prepares a WAV encoder.
func Create(path string, sampleRate, bitDepth, channels int) (*Writer, error) {
	maxVal, err := maxValue(bitDepth)
	if err != nil {
		return nil, err
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid output format: %d Hz, %d channels", sampleRate, channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &Writer{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
		channels: channels,
		maxVal:   maxVal,
		offset:   sampleOffset(bitDepth),
	}, nil
}

func maxValue(bitDepth int) (float64, error) {
	switch bitDepth {
	case BitDepth8:
		return maxInt8, nil
	case BitDepth16:
		return maxInt16, nil
	case BitDepth24:
		return maxInt24, nil
	case BitDepth32:
		return maxInt32, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
}

func sampleOffset(bitDepth int) int {
	if bitDepth == BitDepth8 {
		return uint8Midpoint
	}
	return 0
}

// Write encodes interleaved samples in [-1, 1]. Out of range values are
// clipped.
func (w *Writer) Write(samples []float64) error {
	if len(samples) == 0 {
		return nil
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	data := w.buf.Data[:len(samples)]
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		data[i] = int(s*w.maxVal) + w.offset
	}
	w.buf.Data = data

	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	w.frames += int64(len(samples) / w.channels)
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 {
	return w.frames
}

// Close finalizes the WAV header and closes the file.
func (w *Writer) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return w.file.Close()
}
