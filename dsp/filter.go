package dsp

import (
	"github.com/pkg/errors"
)

// Filter applies the IIR filter to x in a single forward pass (direct form
// II transposed) starting from zero state.
func (c Coefficients) Filter(x []float64) []float64 {
	y, _ := c.filter(x, nil)
	return y
}

// filter runs the difference equation with initial state zi (nil means zero
// state) and returns the output and final state.
func (c Coefficients) filter(x, zi []float64) ([]float64, []float64) {
	n := len(c.A)
	if len(c.B) > n {
		n = len(c.B)
	}
	b := make([]float64, n)
	a := make([]float64, n)
	copy(b, c.B)
	copy(a, c.A)
	if a[0] != 1 {
		for i := range b {
			b[i] /= a[0]
		}
		for i := n - 1; i >= 0; i-- {
			a[i] /= a[0]
		}
	}
	z := make([]float64, n-1)
	copy(z, zi)
	y := make([]float64, len(x))
	for i, xi := range x {
		yi := b[0]*xi + z[0]
		for j := 1; j < n; j++ {
			v := b[j]*xi - a[j]*yi
			if j < n-1 {
				v += z[j]
			}
			z[j-1] = v
		}
		y[i] = yi
	}
	return y, z
}

// steadyState returns the filter state that makes a constant input produce
// a constant output from the first sample, scaled to unit input.  Solves
// (I - A^T) z = B where A is the companion matrix of the denominator.
func (c Coefficients) steadyState() ([]float64, error) {
	n := len(c.A)
	if len(c.B) > n {
		n = len(c.B)
	}
	b := make([]float64, n)
	a := make([]float64, n)
	copy(b, c.B)
	copy(a, c.A)
	m := n - 1
	if m == 0 {
		return nil, nil
	}
	// I - companion(a)^T
	mat := make([][]float64, m)
	rhs := make([]float64, m)
	for i := 0; i < m; i++ {
		mat[i] = make([]float64, m)
		mat[i][i] = 1
		mat[i][0] += a[i+1]
		if i+1 < m {
			mat[i][i+1] -= 1
		}
		rhs[i] = b[i+1] - a[i+1]*b[0]
	}
	z, err := solve(mat, rhs)
	if err != nil {
		return nil, errors.Wrap(err, "filter steady state")
	}
	return z, nil
}

// solve performs Gaussian elimination with partial pivoting.  The filters
// here are at most order 4, so a dense solve is fine.
func solve(mat [][]float64, rhs []float64) ([]float64, error) {
	n := len(rhs)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(mat[r][col]) > abs(mat[pivot][col]) {
				pivot = r
			}
		}
		if mat[pivot][col] == 0 {
			return nil, errors.New("singular system")
		}
		mat[col], mat[pivot] = mat[pivot], mat[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]
		for r := col + 1; r < n; r++ {
			f := mat[r][col] / mat[col][col]
			for c := col; c < n; c++ {
				mat[r][c] -= f * mat[col][c]
			}
			rhs[r] -= f * rhs[col]
		}
	}
	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		v := rhs[r]
		for c := r + 1; c < n; c++ {
			v -= mat[r][c] * out[c]
		}
		out[r] = v / mat[r][r]
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// FiltFilt applies the filter forward and backward for zero phase
// distortion.  The input is extended at both ends with odd reflections of
// length 3*max(len(B), len(A)) and each pass starts from the steady state
// scaled to its first sample, so constants pass through exactly.
func (c Coefficients) FiltFilt(x []float64) ([]float64, error) {
	pad := 3 * len(c.A)
	if len(c.B) > len(c.A) {
		pad = 3 * len(c.B)
	}
	if len(x) <= pad {
		return nil, errors.Errorf("filtfilt: input length %d must exceed pad length %d", len(x), pad)
	}
	zi, err := c.steadyState()
	if err != nil {
		return nil, err
	}

	ext := make([]float64, 0, len(x)+2*pad)
	for i := pad; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := len(x) - 2; i >= len(x)-1-pad; i-- {
		ext = append(ext, 2*x[len(x)-1]-x[i])
	}

	fwd, _ := c.filter(ext, scaled(zi, ext[0]))
	reverse(fwd)
	bwd, _ := c.filter(fwd, scaled(zi, fwd[0]))
	reverse(bwd)
	return bwd[pad : pad+len(x)], nil
}

func scaled(z []float64, v float64) []float64 {
	out := make([]float64, len(z))
	for i, zi := range z {
		out[i] = zi * v
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// SettleDecimate drops the first 5*tau seconds of x, then keeps one sample
// per tau.  Filtered samples closer than a time constant apart carry no
// independent information.
func SettleDecimate(x []float64, sampleRate, tau float64) []float64 {
	settle := int(5 * tau * sampleRate)
	step := int(tau * sampleRate)
	if step < 1 {
		step = 1
	}
	var out []float64
	for i := settle; i < len(x); i += step {
		out = append(out, x[i])
	}
	return out
}
