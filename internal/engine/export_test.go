package engine

// Export internal state for testing.
// This file uses the _test.go suffix so it's only included in test builds.

// ConvolverState is a snapshot of the streaming cursors.
type ConvolverState struct {
	BufPos    int
	HasOutput bool
	DrainPos  int
	DrainEnd  int
	Padding   bool
}

// GetState returns the current cursor state.
func (c *Convolver) GetState() ConvolverState {
	return ConvolverState{
		BufPos:    c.bufPos,
		HasOutput: c.hasOutput,
		DrainPos:  c.drainPos,
		DrainEnd:  c.drainEnd,
		Padding:   c.padding,
	}
}

// GetOverlap returns the carried tail for one filter.
func (c *Convolver) GetOverlap(pos, ear int) []float64 {
	return c.overlap[pos][ear]
}

// GetFilter returns the stored spectrum for one filter.
func (fb *FilterBank) GetFilter(pos, ear int) []complex128 {
	return fb.filters[pos][ear]
}
