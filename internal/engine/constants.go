package engine

// Filter bank layout.
const (
	// PositionA is the virtual source driven by input channel 0.
	PositionA = 0
	// PositionB is the virtual source driven by input channel 1.
	PositionB = 1

	numPositions = 2

	// EarLeft indexes impulse channel 0, which is summed into the left ear.
	EarLeft = 0
	// EarRight indexes impulse channel 1, which is summed into the right ear.
	EarRight = 1

	numEars = 2
)

// Stream and transform sizing.
const (
	// Interleaved stereo: two samples per frame.
	stereoChannels = 2

	// An impulse must have at least two frames so that the block size
	// L-1 is positive.
	minImpulseFrames = 2

	// The FFT size is twice the block size: N = 2*(L-1).
	fftSizeFactor = 2

	// A real FFT of size N has N/2 + 1 unique complex coefficients.
	fftHermitianDivisor = 2
)

// Memory estimate constants.
const (
	bytesPerFloat64    = 8
	bytesPerComplex128 = 16
)
