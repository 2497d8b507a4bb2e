// Package pipeline hosts stereo effects: it reads an input stream in chunks,
// runs it through a chain of stages, drains every stage at end of stream and
// writes the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Stage is a streaming stereo effect. Run writes at most len(src) samples
// into dst. Drain is called repeatedly at end of stream until it returns 0.
type Stage interface {
	Run(dst, src []float64) (int, error)
	Drain(dst []float64) (int, error)
	Reset()
	Close() error
}

// Reader supplies interleaved stereo frames. It returns io.EOF at end of
// stream.
type Reader interface {
	Read(dst []float64, frames int) (int, error)
}

// Writer consumes interleaved stereo samples.
type Writer interface {
	Write(samples []float64) error
}

// Errors returned by the pipeline.
var (
	ErrNoStages       = errors.New("pipeline has no stages")
	ErrDrainRunaway   = errors.New("stage drain did not terminate")
	ErrStageOverflow  = errors.New("stage produced more frames than it consumed")
	ErrInvalidOptions = errors.New("invalid pipeline options")
)

// Options configures a Pipeline.
type Options struct {
	// ChunkFrames is the number of frames read per step. Zero selects
	// DefaultChunkFrames.
	ChunkFrames int

	// WriteFrames is the number of frames per Writer call; the final write
	// may be shorter. Zero selects DefaultWriteFrames.
	WriteFrames int

	// Logger receives debug output. Nil uses the logrus standard logger.
	Logger logrus.FieldLogger
}

// Stats summarizes one Process call.
type Stats struct {
	InputFrames   int64
	OutputFrames  int64
	DrainedFrames int64
	Chunks        int
}

// Pipeline runs a fixed chain of stages. It is not safe for concurrent use.
type Pipeline struct {
	stages      []Stage
	chunkFrames int
	writeFrames int
	log         logrus.FieldLogger

	// bufs[i] receives the output of stage i; in holds the input chunk.
	in    []float64
	bufs  [][]float64
	queue *FrameQueue
	out   []float64
}

// New creates a pipeline over stages, applied in order.
func New(stages []Stage, opts Options) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	if opts.ChunkFrames < 0 || opts.WriteFrames < 0 {
		return nil, fmt.Errorf("%w: negative frame count", ErrInvalidOptions)
	}

	chunk := opts.ChunkFrames
	if chunk == 0 {
		chunk = DefaultChunkFrames
	}
	write := opts.WriteFrames
	if write == 0 {
		write = DefaultWriteFrames
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := &Pipeline{
		stages:      stages,
		chunkFrames: chunk,
		writeFrames: write,
		log:         log.WithField("component", "pipeline"),
		in:          make([]float64, chunk*stereoChannels),
		bufs:        make([][]float64, len(stages)),
		queue:       NewFrameQueue(2 * write * stereoChannels),
		out:         make([]float64, write*stereoChannels),
	}
	for i := range stages {
		p.bufs[i] = make([]float64, chunk*stereoChannels)
	}
	return p, nil
}

// ChunkFrames returns the read size in frames.
func (p *Pipeline) ChunkFrames() int {
	return p.chunkFrames
}

// Process streams r through all stages into w until r reports io.EOF, then
// drains the stages in order: the tail of stage i is passed through stages
// i+1..n before stage i+1 is drained itself. ctx is checked between chunks.
func (p *Pipeline) Process(ctx context.Context, r Reader, w Writer) (Stats, error) {
	var stats Stats
	p.queue.Clear()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		n, err := r.Read(p.in, p.chunkFrames)
		if n > 0 {
			stats.Chunks++
			stats.InputFrames += int64(n)
			produced, runErr := p.runFrom(0, p.in[:n*stereoChannels])
			if runErr != nil {
				return stats, runErr
			}
			stats.OutputFrames += int64(produced)
			if err := p.flushQueue(w, false); err != nil {
				return stats, err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read input: %w", err)
		}
	}

	for i, stage := range p.stages {
		drained, err := p.drainStage(ctx, i, stage, w)
		if err != nil {
			return stats, err
		}
		stats.DrainedFrames += drained
		stats.OutputFrames += drained
	}

	if err := p.flushQueue(w, true); err != nil {
		return stats, err
	}

	p.log.WithFields(logrus.Fields{
		"input_frames":   stats.InputFrames,
		"output_frames":  stats.OutputFrames,
		"drained_frames": stats.DrainedFrames,
		"chunks":         stats.Chunks,
	}).Debug("pipeline finished")

	return stats, nil
}

// drainStage drains stage i until it returns 0 and pushes the tail through
// the remaining stages. It returns the frames that reached the output.
func (p *Pipeline) drainStage(ctx context.Context, i int, stage Stage, w Writer) (int64, error) {
	var total int64
	for range maxDrainCalls {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := stage.Drain(p.bufs[i])
		if err != nil {
			return total, fmt.Errorf("stage %d drain: %w", i, err)
		}
		if n == 0 {
			p.log.WithFields(logrus.Fields{
				"stage":  i,
				"frames": total,
			}).Debug("stage drained")
			return total, nil
		}

		produced, err := p.runFrom(i+1, p.bufs[i][:n*stereoChannels])
		if err != nil {
			return total, err
		}
		total += int64(produced)
		if err := p.flushQueue(w, false); err != nil {
			return total, err
		}
	}
	return total, fmt.Errorf("%w: stage %d", ErrDrainRunaway, i)
}

// runFrom feeds src through stages first..n and queues the final output.
// It returns the number of frames queued.
func (p *Pipeline) runFrom(first int, src []float64) (int, error) {
	cur := src
	for i := first; i < len(p.stages); i++ {
		if len(cur) == 0 {
			return 0, nil
		}
		n, err := p.stages[i].Run(p.bufs[i], cur)
		if err != nil {
			return 0, fmt.Errorf("stage %d: %w", i, err)
		}
		if n*stereoChannels > len(cur) {
			return 0, fmt.Errorf("%w: stage %d", ErrStageOverflow, i)
		}
		cur = p.bufs[i][:n*stereoChannels]
	}
	p.queue.Write(cur)
	return len(cur) / stereoChannels, nil
}

// flushQueue writes whole write blocks, or everything when final is set.
func (p *Pipeline) flushQueue(w Writer, final bool) error {
	block := len(p.out)
	for p.queue.Available() >= block || (final && p.queue.Available() > 0) {
		n := p.queue.ReadInto(p.out)
		if err := w.Write(p.out[:n]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// Reset resets every stage.
func (p *Pipeline) Reset() {
	for _, s := range p.stages {
		s.Reset()
	}
	p.queue.Clear()
}

// Close closes every stage and returns the first error.
func (p *Pipeline) Close() error {
	var first error
	for i, s := range p.stages {
		if err := s.Close(); err != nil && first == nil {
			first = fmt.Errorf("stage %d close: %w", i, err)
		}
	}
	return first
}
