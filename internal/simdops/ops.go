// Package simdops collects the vector operations used by the convolution
// engine behind one small surface, so the hot path never calls into
// github.com/tphakala/simd directly.
//
// All functions operate on float64 / complex128 only: the FFT backend
// (gonum) is double precision, so there is no float32 path to accelerate.
package simdops

import (
	"github.com/tphakala/simd/c128"
	"github.com/tphakala/simd/cpu"
	"github.com/tphakala/simd/f64"
)

// Scale multiplies each element by s: dst[i] = a[i] * s.
func Scale(dst, a []float64, s float64) {
	f64.Scale(dst, a, s)
}

// Add computes dst[i] = a[i] + b[i].
// dst may alias a or b.
func Add(dst, a, b []float64) {
	f64.Add(dst, a, b)
}

// Interleave2 interleaves two channels: dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
// dst must hold 2*len(a) elements.
func Interleave2(dst, a, b []float64) {
	f64.Interleave2(dst, a, b)
}

// MulComplex computes the elementwise complex product dst[i] = a[i] * b[i].
func MulComplex(dst, a, b []complex128) {
	c128.Mul(dst, a, b)
}

// Deinterleave2 splits interleaved stereo into two channels.
// a and b must each hold len(src)/2 elements.
func Deinterleave2(a, b, src []float64) {
	n := len(src) / 2
	for i := range n {
		idx := i * 2
		a[i] = src[idx]
		b[i] = src[idx+1]
	}
}

// Info describes the SIMD instruction set selected at runtime.
func Info() string {
	return cpu.Info()
}
