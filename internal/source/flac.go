package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLACSource decodes FLAC files through mewkiz/flac.
type FLACSource struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	rate     int
	bitDepth int
	frames   int64
	scale    float64

	// Undelivered samples of the last parsed frame.
	pending    *frame.Frame
	pendingPos int
}

// OpenFLAC opens a FLAC file.
func OpenFLAC(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
	}

	info := stream.Info
	frames := int64(UnknownFrames)
	if info.NSamples > 0 {
		frames = int64(info.NSamples)
	}

	return &FLACSource{
		file:     f,
		stream:   stream,
		channels: int(info.NChannels),
		rate:     int(info.SampleRate),
		bitDepth: int(info.BitsPerSample),
		frames:   frames,
		scale:    1.0 / fullScale(int(info.BitsPerSample)),
	}, nil
}

// Channels returns the channel count.
func (s *FLACSource) Channels() int { return s.channels }

// SampleRate returns the sample rate in Hz.
func (s *FLACSource) SampleRate() int { return s.rate }

// BitDepth returns the bits per sample.
func (s *FLACSource) BitDepth() int { return s.bitDepth }

// Frames returns the total frame count from STREAMINFO, or UnknownFrames.
func (s *FLACSource) Frames() int64 { return s.frames }

// Read decodes up to frames frames into dst. FLAC frames that do not fit
// are kept for the next call.
func (s *FLACSource) Read(dst []float64, frames int) (int, error) {
	got := 0
	for got < frames {
		if s.pending == nil {
			fr, err := s.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return got, fmt.Errorf("failed to decode FLAC: %w", err)
			}
			s.pending = fr
			s.pendingPos = 0
		}

		blockSize := int(s.pending.BlockSize)
		n := min(blockSize-s.pendingPos, frames-got)
		for i := range n {
			base := (got + i) * s.channels
			for ch := range s.channels {
				dst[base+ch] = float64(s.pending.Subframes[ch].Samples[s.pendingPos+i]) * s.scale
			}
		}
		got += n
		s.pendingPos += n
		if s.pendingPos >= blockSize {
			s.pending = nil
		}
	}

	if got == 0 {
		return 0, io.EOF
	}
	return got, nil
}

// Close closes the underlying file.
func (s *FLACSource) Close() error {
	return s.file.Close()
}
