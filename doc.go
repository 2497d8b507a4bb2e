// Package crossfeed provides a streaming binaural HRTF crossfeed effect in
// pure Go.
//
// The effect renders a stereo stream as if it were played from two
// loudspeakers and heard at both ears. Each virtual speaker is described by a
// measured stereo impulse response (left ear, right ear). Input channel 0 is
// convolved with impulse A, input channel 1 with impulse B, and the results
// are summed per ear.
//
// # Features
//
//   - FFT overlap-add convolution with filters transformed once at startup
//   - Exact sample alignment across input chunks of any size
//   - End-of-stream drain that releases the frames held back by the block
//     latency, cut at the input length or at the padded block end
//   - Impulse files in WAV, MP3 or FLAC format
//   - Optional SIMD acceleration via github.com/tphakala/simd
//
// # Quick Start
//
// For one-shot processing of a complete signal:
//
//	a := crossfeed.NewImpulse(48000, aLeft, aRight)
//	b := crossfeed.NewImpulse(48000, bLeft, bRight)
//	output, err := crossfeed.ProcessStereo(input, 48000, a, b)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For streaming with impulse files:
//
//	cf, err := crossfeed.New(&crossfeed.Config{
//	    SampleRate: 48000,
//	    Channels:   2,
//	    ImpulseA:   "hrtf_left_speaker.wav",
//	    ImpulseB:   "hrtf_right_speaker.wav",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cf.Close()
//
//	dst := make([]float64, chunkSize)
//	for chunk := range audioChunks {
//	    n, err := cf.Run(dst, chunk)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    writeOutput(dst[:2*n])
//	}
//
//	// Drain the frames held back by the block latency
//	for {
//	    n, _ := cf.Drain(dst)
//	    if n == 0 {
//	        break
//	    }
//	    writeOutput(dst[:2*n])
//	}
//
// # Latency and Block Size
//
// With L the length of the longer impulse, the block size is B = L-1 and the
// FFT size is 2B. Output lags input by exactly B frames: the first B input
// frames produce no output, after which every input frame yields one output
// frame. Drain completes a partial final block with silence and emits the
// held-back frames; the drain mode decides where the output stops.
//
// # Drain Modes
//
//   - [DrainExact] (default): run plus drain output has the same length as
//     the input whenever at least one full block was fed.
//   - [DrainFullBlock]: the last block is always emitted whole, so the output
//     includes up to B-1 extra frames of convolution tail.
//
// Streams shorter than one block produce no output in either mode.
//
// # Thread Safety
//
// A Crossfeed instance is not safe for concurrent use. Filters are immutable
// after construction.
package crossfeed
