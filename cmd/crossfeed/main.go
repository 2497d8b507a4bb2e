// Command crossfeed renders stereo audio files through a pair of HRTF
// impulse responses for headphone listening.
//
// Usage:
//
//	crossfeed render -a left.wav -b right.wav input.flac output.wav
//	crossfeed render --config preset.yaml --bit-depth 16 input.mp3 output.wav
//	crossfeed render -a left.wav -b right.wav --drain-mode full in.wav out.wav
//	crossfeed inspect -a left.wav -b right.wav
//
// Impulse A is the virtual left speaker and impulse B the virtual right
// speaker; both must be stereo and recorded at the input's sample rate.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logrus.StandardLogger())
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		logrus.Fatal(err)
	}
}
