package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	crossfeed "github.com/tphakala/go-audio-crossfeed"
	"github.com/tphakala/go-audio-crossfeed/internal/config"
	"github.com/tphakala/go-audio-crossfeed/internal/pipeline"
	"github.com/tphakala/go-audio-crossfeed/internal/source"
	"github.com/tphakala/go-audio-crossfeed/internal/wavout"
)

type renderSummary struct {
	sampleRate   int
	inputBits    int
	outputBits   int
	blockSize    int
	latency      int
	drainMode    crossfeed.DrainMode
	inputFrames  int64
	outputFrames int64
	elapsed      time.Duration
}

// render decodes inputPath, runs it through the crossfeed filter described
// by cfg and writes a stereo WAV to outputPath.
func render(ctx context.Context, log *logrus.Logger, cfg *config.Config, inputPath, outputPath string) (summary *renderSummary, err error) {
	start := time.Now()

	// 1. Open input
	in, err := source.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = in.Close() }()

	log.WithFields(logrus.Fields{
		"input":       inputPath,
		"sample_rate": in.SampleRate(),
		"channels":    in.Channels(),
		"bit_depth":   in.BitDepth(),
	}).Debug("input opened")

	// 2. Build the effect at the input's format
	cf, err := crossfeed.New(&crossfeed.Config{
		SampleRate: in.SampleRate(),
		Channels:   in.Channels(),
		ImpulseA:   cfg.ImpulseA,
		ImpulseB:   cfg.ImpulseB,
		DrainMode:  cfg.Drain(),
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	info := cf.Info()

	p, err := pipeline.New([]pipeline.Stage{cf}, pipeline.Options{
		ChunkFrames: cfg.ChunkFrames,
		Logger:      log,
	})
	if err != nil {
		_ = cf.Close()
		return nil, err
	}
	defer func() { _ = p.Close() }()

	// 3. Create output; close errors matter because the WAV header is
	// finalized on close
	out, err := wavout.Create(outputPath, in.SampleRate(), cfg.BitDepth, stereoChannels)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to finalize output: %w", closeErr)
		}
	}()

	// 4. Stream
	reader := newProgressReader(in, log)
	stats, err := p.Process(ctx, reader, out)
	if err != nil {
		return nil, err
	}

	return &renderSummary{
		sampleRate:   in.SampleRate(),
		inputBits:    in.BitDepth(),
		outputBits:   cfg.BitDepth,
		blockSize:    info.BlockSize,
		latency:      info.Latency,
		drainMode:    info.DrainMode,
		inputFrames:  stats.InputFrames,
		outputFrames: stats.OutputFrames,
		elapsed:      time.Since(start),
	}, nil
}

func (s *renderSummary) print(w io.Writer, inputPath, outputPath string) {
	_, _ = fmt.Fprintf(w, "Rendered %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	_, _ = fmt.Fprintf(w, "  %d Hz, %d-bit -> %d-bit stereo\n", s.sampleRate, s.inputBits, s.outputBits)
	_, _ = fmt.Fprintf(w, "  Block: %d frames (latency %.1f ms), drain mode %s\n",
		s.blockSize, latencyMs(s.latency, s.sampleRate), s.drainMode)
	_, _ = fmt.Fprintf(w, "  %d frames -> %d frames\n", s.inputFrames, s.outputFrames)
	_, _ = fmt.Fprintf(w, "  Duration: %.2fs, Speed: %.1fx realtime\n",
		s.elapsed.Seconds(), realtimeFactor(s.inputFrames, s.sampleRate, s.elapsed))
}
