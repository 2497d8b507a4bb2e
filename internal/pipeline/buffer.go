package pipeline

// FrameQueue is a growable circular buffer of interleaved samples. The
// pipeline uses it to regroup variable-sized stage output into fixed-size
// writes.
type FrameQueue struct {
	data     []float64
	capacity int
	size     int
	readPos  int
	writePos int
}

// NewFrameQueue creates a queue with room for capacity samples.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}

	return &FrameQueue{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// Write appends samples, growing the queue if needed.
func (q *FrameQueue) Write(samples []float64) {
	needed := len(samples)
	if needed == 0 {
		return
	}

	if q.size+needed > q.capacity {
		q.grow(q.size + needed)
	}

	// At most two copies: up to the end of the storage, then from the start.
	n := copy(q.data[q.writePos:], samples)
	if n < needed {
		copy(q.data, samples[n:])
	}
	q.writePos = (q.writePos + needed) % q.capacity
	q.size += needed
}

// ReadInto moves up to len(dst) samples into dst and returns the count.
func (q *FrameQueue) ReadInto(dst []float64) int {
	n := min(len(dst), q.size)
	if n == 0 {
		return 0
	}

	first := copy(dst[:n], q.data[q.readPos:])
	if first < n {
		copy(dst[first:n], q.data)
	}
	q.readPos = (q.readPos + n) % q.capacity
	q.size -= n
	return n
}

// Available returns the number of queued samples.
func (q *FrameQueue) Available() int {
	return q.size
}

// Capacity returns the current storage size.
func (q *FrameQueue) Capacity() int {
	return q.capacity
}

// Clear discards all queued samples.
func (q *FrameQueue) Clear() {
	q.size = 0
	q.readPos = 0
	q.writePos = 0
}

// grow increases the capacity to at least minCapacity.
func (q *FrameQueue) grow(minCapacity int) {
	newCapacity := q.capacity
	for newCapacity < minCapacity {
		newCapacity *= bufferGrowthFactor
	}

	newData := make([]float64, newCapacity)
	if q.size > 0 {
		if q.readPos < q.writePos {
			copy(newData, q.data[q.readPos:q.writePos])
		} else {
			n1 := copy(newData, q.data[q.readPos:])
			copy(newData[n1:], q.data[:q.writePos])
		}
	}

	q.data = newData
	q.capacity = newCapacity
	q.readPos = 0
	q.writePos = q.size
}
