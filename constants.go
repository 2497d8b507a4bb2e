package crossfeed

// Channel constants
const (
	stereoChannels = 2 // Host and impulse streams are interleaved stereo
	requiredArgs   = 2 // Impulse A and impulse B
)

// Impulse loading constants
const (
	minImpulseFrames = 2    // Shortest impulse that yields a positive block size
	readChunkFrames  = 4096 // Frames decoded per Read while loading an impulse
)

// Common sample rates.
const (
	// RateCD is the CD quality sample rate.
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000
)

// logComponent is the value of the "component" log field.
const logComponent = "crossfeed"
