package pipeline

// Stream layout
const (
	stereoChannels = 2 // Interleaved stereo frames
)

// Buffer sizes
const (
	// DefaultChunkFrames is the number of frames read from the input per step.
	DefaultChunkFrames = 4096

	// DefaultWriteFrames is the number of frames handed to the writer per call.
	DefaultWriteFrames = 16384

	// Factor for queue growth.
	bufferGrowthFactor = 2

	// Upper bound on consecutive Drain calls for one stage.
	maxDrainCalls = 1 << 20
)
