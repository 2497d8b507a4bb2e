package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingT captures failures instead of failing the enclosing test.
type recordingT struct {
	messages []string
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recordingT) Helper() {}

func TestAssertions_ForwardMessage(t *testing.T) {
	tests := []struct {
		name   string
		assert func(TestingT) bool
	}{
		{"nan", func(rt TestingT) bool {
			return AssertNoNaNOrInf(rt, []float64{0, math.NaN()}, "channel %s", "left")
		}},
		{"inf", func(rt TestingT) bool {
			return AssertNoNaNOrInf(rt, []float64{math.Inf(1)}, "channel %s", "left")
		}},
		{"range", func(rt TestingT) bool {
			return AssertAllInRange(rt, []float64{0, 1.5}, -1, 1, "channel %s", "left")
		}},
		{"delta", func(rt TestingT) bool {
			return AssertSlicesInDelta(rt, []float64{0, 1}, []float64{0, 2}, 0.1, "channel %s", "left")
		}},
		{"relative", func(rt TestingT) bool {
			return AssertRelativeError(rt, 1, 2, 0.1, "channel %s", "left")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &recordingT{}
			assert.False(t, tt.assert(rt))
			if assert.Len(t, rt.messages, 1) {
				assert.Contains(t, rt.messages[0], "channel left")
			}
		})
	}
}

func TestAssertions_Pass(t *testing.T) {
	rt := &recordingT{}
	assert.True(t, AssertNoNaNOrInf(rt, []float64{0, 1, -1}))
	assert.True(t, AssertAllInRange(rt, []float64{-1, 0, 1}, -1, 1))
	assert.True(t, AssertSlicesInDelta(rt, []float64{0, 1}, []float64{0, 1.05}, 0.1))
	assert.True(t, AssertRelativeError(rt, 1, 1.05, 0.1))
	assert.Empty(t, rt.messages)
}
