package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags and sample sizes.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	bitsPerByte   = 8
	bitDepth8     = 8
	uint8Midpoint = 128
)

// RIFF layout needed to read the WAVE_FORMAT_EXTENSIBLE subformat.
const (
	riffHeaderSize   = 12
	chunkHeaderSize  = 8
	extensibleFmtLen = 40
	subFormatOffset  = 24
)

var errNoFmtChunk = errors.New("no extensible fmt chunk")

// WAVSource decodes PCM WAV files through go-audio/wav.
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	buf      *audio.IntBuffer
	channels int
	rate     int
	bitDepth int
	frames   int64
	scale    float64
}

// OpenWAV opens and validates a PCM WAV file. WAVE_FORMAT_EXTENSIBLE files
// are accepted only when their subformat GUID is integer PCM.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: not a WAV file: %s", ErrInvalidFile, path)
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		_ = f.Close()
		return nil, fmt.Errorf("%w: unsupported WAV encoding %d: %s", ErrInvalidFile, decoder.WavAudioFormat, path)
	}
	if decoder.WavAudioFormat == wavFormatExtensible {
		sub, err := wavSubFormat(path)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
		}
		if sub != wavFormatPCM {
			_ = f.Close()
			return nil, fmt.Errorf("%w: unsupported WAV subformat %d: %s", ErrInvalidFile, sub, path)
		}
	}
	if err := decoder.FwdToPCM(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	if channels <= 0 || bitDepth <= 0 || bitDepth%bitsPerByte != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: bad format (%d channels, %d-bit): %s", ErrInvalidFile, channels, bitDepth, path)
	}

	bytesPerFrame := int64(channels * bitDepth / bitsPerByte)

	return &WAVSource{
		file:    f,
		decoder: decoder,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(decoder.SampleRate),
			},
			SourceBitDepth: bitDepth,
		},
		channels: channels,
		rate:     int(decoder.SampleRate),
		bitDepth: bitDepth,
		frames:   decoder.PCMLen() / bytesPerFrame,
		scale:    1.0 / fullScale(bitDepth),
	}, nil
}

// wavSubFormat returns the format code carried in the first two bytes of the
// SubFormat GUID of an extensible fmt chunk. go-audio/wav skips the fmt
// extension, so the chunk is read again on a separate handle.
func wavSubFormat(path string) (uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return readSubFormat(f)
}

func readSubFormat(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(riffHeaderSize, io.SeekStart); err != nil {
		return 0, err
	}
	var hdr [chunkHeaderSize]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, errNoFmtChunk
			}
			return 0, err
		}
		size := int64(binary.LittleEndian.Uint32(hdr[4:]))
		if string(hdr[:4]) != "fmt " {
			// Chunks are word aligned.
			if _, err := r.Seek(size+(size&1), io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}
		if size < extensibleFmtLen {
			return 0, errNoFmtChunk
		}
		body := make([]byte, extensibleFmtLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint16(body[subFormatOffset:]), nil
	}
}

// Channels returns the channel count.
func (s *WAVSource) Channels() int { return s.channels }

// SampleRate returns the sample rate in Hz.
func (s *WAVSource) SampleRate() int { return s.rate }

// BitDepth returns the PCM bit depth.
func (s *WAVSource) BitDepth() int { return s.bitDepth }

// Frames returns the frame count from the data chunk size.
func (s *WAVSource) Frames() int64 { return s.frames }

// Read decodes up to frames frames into dst.
func (s *WAVSource) Read(dst []float64, frames int) (int, error) {
	want := frames * s.channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	// PCMBuffer reports samples, not frames.
	got := n / s.channels
	data := s.buf.Data[:got*s.channels]
	if s.bitDepth == bitDepth8 {
		// 8-bit WAV is unsigned.
		for i, v := range data {
			dst[i] = float64(v-uint8Midpoint) * s.scale
		}
	} else {
		for i, v := range data {
			dst[i] = float64(v) * s.scale
		}
	}
	return got, nil
}

// Close closes the underlying file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}
