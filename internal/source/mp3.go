package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const (
	mp3Channels      = 2
	mp3BitDepth      = 16
	mp3BytesPerFrame = mp3Channels * mp3BitDepth / bitsPerByte
	mp3BytesPerInt16 = 2
)

// MP3Source decodes MP3 files through go-mp3.
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	rate    int
	frames  int64
	raw     []byte
}

// OpenMP3 opens an MP3 file.
func OpenMP3(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
	}

	frames := int64(UnknownFrames)
	if length := decoder.Length(); length >= 0 {
		frames = length / mp3BytesPerFrame
	}

	return &MP3Source{
		file:    f,
		decoder: decoder,
		rate:    decoder.SampleRate(),
		frames:  frames,
	}, nil
}

// Channels always returns 2.
func (s *MP3Source) Channels() int { return mp3Channels }

// SampleRate returns the sample rate in Hz.
func (s *MP3Source) SampleRate() int { return s.rate }

// BitDepth always returns 16.
func (s *MP3Source) BitDepth() int { return mp3BitDepth }

// Frames returns the decoded length in frames.
func (s *MP3Source) Frames() int64 { return s.frames }

// Read decodes up to frames frames into dst.
func (s *MP3Source) Read(dst []float64, frames int) (int, error) {
	need := frames * mp3BytesPerFrame
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	buf := s.raw[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to decode MP3: %w", err)
	}

	got := n / mp3BytesPerFrame
	if got == 0 {
		return 0, io.EOF
	}

	scale := 1.0 / fullScale(mp3BitDepth)
	for i := range got * mp3Channels {
		v := int16(binary.LittleEndian.Uint16(buf[i*mp3BytesPerInt16:]))
		dst[i] = float64(v) * scale
	}
	return got, nil
}

// Close closes the underlying file.
func (s *MP3Source) Close() error {
	return s.file.Close()
}
