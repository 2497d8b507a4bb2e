package main

const (
	// Positional arguments of render: input and output paths.
	renderArgs = 2

	// Output is always interleaved stereo.
	stereoChannels = 2

	// Progress reporting
	progressInterval = 10 // Log progress every N%
	percentScale     = 100

	// Unit conversion for the summary
	bytesPerKiB = 1024
	msPerSecond = 1000
)
