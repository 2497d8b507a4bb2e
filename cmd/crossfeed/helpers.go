package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-crossfeed/internal/source"
)

// progressReader wraps a source and logs progress when the length is known.
type progressReader struct {
	src          source.Source
	log          logrus.FieldLogger
	totalFrames  int64
	readFrames   int64
	lastProgress int
}

func newProgressReader(src source.Source, log logrus.FieldLogger) *progressReader {
	return &progressReader{
		src:         src,
		log:         log,
		totalFrames: src.Frames(),
	}
}

// Read reads from the wrapped source and reports progress every
// progressInterval percent.
func (r *progressReader) Read(dst []float64, frames int) (int, error) {
	n, err := r.src.Read(dst, frames)
	r.readFrames += int64(n)
	r.reportIfNeeded()
	return n, err
}

func (r *progressReader) reportIfNeeded() {
	if r.totalFrames <= 0 {
		return
	}

	progress := int(r.readFrames * percentScale / r.totalFrames)
	if progress >= r.lastProgress+progressInterval {
		r.log.WithField("percent", progress).Info("progress")
		r.lastProgress = progress - progress%progressInterval
	}
}

// startCPUProfile starts CPU profiling into path and returns a stop function.
func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

// latencyMs converts a frame count to milliseconds.
func latencyMs(frames, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(frames) * msPerSecond / float64(sampleRate)
}

// realtimeFactor returns how many seconds of audio were processed per second
// of wall time.
func realtimeFactor(frames int64, sampleRate int, elapsed time.Duration) float64 {
	if sampleRate <= 0 || elapsed <= 0 {
		return 0
	}
	return float64(frames) / float64(sampleRate) / elapsed.Seconds()
}

// binFrequency returns the centre frequency of an FFT bin in Hz.
func binFrequency(bin, fftSize, sampleRate int) float64 {
	if fftSize <= 0 {
		return 0
	}
	return float64(bin) * float64(sampleRate) / float64(fftSize)
}
