// Package dsp implements the filtering and statistics applied to captured
// sample buffers: Butterworth lowpass design, zero-phase filtering,
// settle-and-decimate reduction, and the statistic device graphs layered
// on top of array-capture signals.
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

// Coefficients holds a digital IIR filter in transfer-function form.
// B and A are numerator and denominator in descending powers of z,
// normalized so A[0] == 1.
type Coefficients struct {
	B []float64
	A []float64
}

// Butterworth designs a digital lowpass Butterworth filter of the given
// order.  cutoff is the corner frequency normalized to the Nyquist rate,
// 0 < cutoff < 1.  The design places the analog prototype poles, prewarps
// the corner, and applies the bilinear transform.
func Butterworth(order int, cutoff float64) (Coefficients, error) {
	if order < 1 {
		return Coefficients{}, errors.Errorf("butterworth: order must be >= 1, got %d", order)
	}
	if cutoff <= 0 || cutoff >= 1 {
		return Coefficients{}, errors.Errorf("butterworth: cutoff must be in (0, 1), got %g", cutoff)
	}
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*cutoff/fs)

	// analog prototype poles on the unit circle, scaled to the warped corner
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+order+1) / float64(2*order)
		poles[k] = complex(warped, 0) * cmplx.Exp(complex(0, theta))
	}

	// bilinear transform; all zeros map to z = -1
	zPoles := make([]complex128, order)
	gain := complex(math.Pow(warped, float64(order)), 0)
	for i, p := range poles {
		zPoles[i] = (complex(2*fs, 0) + p) / (complex(2*fs, 0) - p)
		gain /= complex(2*fs, 0) - p
	}

	zeros := make([]complex128, order)
	for i := range zeros {
		zeros[i] = -1
	}
	b := realPoly(zeros)
	for i := range b {
		b[i] *= real(gain)
	}
	a := realPoly(zPoles)
	return Coefficients{B: b, A: a}, nil
}

// FromTau designs the lowpass corresponding to an instrument time constant:
// the corner is 1/(2*pi*tau), normalized by the Nyquist rate of sampleRate.
func FromTau(order int, sampleRate, tau float64) (Coefficients, error) {
	if tau <= 0 || sampleRate <= 0 {
		return Coefficients{}, errors.Errorf("butterworth: sample rate and tau must be positive, got fs=%g tau=%g", sampleRate, tau)
	}
	corner := 1 / (2 * math.Pi * tau)
	return Butterworth(order, corner/(sampleRate/2))
}

// realPoly expands a polynomial from its roots and returns the real parts
// of the coefficients in descending powers.  Roots must come in conjugate
// pairs or be real.
func realPoly(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}
