package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	crossfeed "github.com/tphakala/go-audio-crossfeed"
	"github.com/tphakala/go-audio-crossfeed/internal/source"
)

var filterNames = []struct {
	name string
	pos  crossfeed.Position
	ear  crossfeed.Ear
}{
	{"A -> left", crossfeed.PositionA, crossfeed.EarLeft},
	{"A -> right", crossfeed.PositionA, crossfeed.EarRight},
	{"B -> left", crossfeed.PositionB, crossfeed.EarLeft},
	{"B -> right", crossfeed.PositionB, crossfeed.EarRight},
}

// inspect builds the filter bank for an impulse pair and prints its geometry
// and per-filter response summary.
func inspect(w io.Writer, log *logrus.Logger, opts *inspectOptions) error {
	rate := opts.sampleRate
	if rate == 0 {
		detected, err := detectRate(opts.impulseA)
		if err != nil {
			return err
		}
		rate = detected
	}

	cf, err := crossfeed.New(&crossfeed.Config{
		SampleRate: rate,
		Channels:   stereoChannels,
		ImpulseA:   opts.impulseA,
		ImpulseB:   opts.impulseB,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cf.Close() }()

	info := cf.Info()
	_, _ = fmt.Fprintf(w, "Sample rate:   %d Hz\n", info.SampleRate)
	_, _ = fmt.Fprintf(w, "Impulse A:     %d frames\n", info.ImpulseFrames[0])
	_, _ = fmt.Fprintf(w, "Impulse B:     %d frames\n", info.ImpulseFrames[1])
	_, _ = fmt.Fprintf(w, "Block size:    %d frames\n", info.BlockSize)
	_, _ = fmt.Fprintf(w, "FFT size:      %d (%d bins)\n", info.FFTSize, info.SpectrumLen)
	_, _ = fmt.Fprintf(w, "Latency:       %d frames (%.1f ms)\n", info.Latency, latencyMs(info.Latency, info.SampleRate))
	_, _ = fmt.Fprintf(w, "Memory:        %.1f KiB\n", float64(info.MemoryUsage)/bytesPerKiB)
	_, _ = fmt.Fprintf(w, "SIMD:          %s\n", info.SIMDType)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "%-12s %10s %10s %10s %10s\n", "Filter", "DC gain", "Peak", "Peak Hz", "Energy")
	for _, f := range filterNames {
		stats, ok := cf.Stats(f.pos, f.ear)
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w, "%-12s %10.4f %10.4f %10.1f %10.4f\n",
			f.name, stats.DCGain, stats.PeakMagnitude,
			binFrequency(stats.PeakBin, info.FFTSize, info.SampleRate), stats.Energy)
	}
	return nil
}

// detectRate returns the sample rate of an audio file.
func detectRate(path string) (int, error) {
	src, err := source.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open impulse: %w", err)
	}
	defer func() { _ = src.Close() }()
	return src.SampleRate(), nil
}
