package epi

import "math"

// arange returns start, start+step, ... up to but excluding stop, matching
// the half-open grid the evaluator's convolution padding is defined on.
func arange(start, stop, step float64) []float64 {
	count := int(math.Ceil((stop - start) / step))
	if count < 0 {
		count = 0
	}
	out := make([]float64, count)
	for k := range out {
		out[k] = start + float64(k)*step
	}
	return out
}

// cumtrapz integrates rows (one row per time, one column per compartment)
// cumulatively along x with the trapezoidal rule, anchored at zero for the
// first row.
func cumtrapz(rows [][]float64, x []float64) [][]float64 {
	out := make([][]float64, len(rows))
	if len(rows) == 0 {
		return out
	}
	n := len(rows[0])
	out[0] = make([]float64, n)
	for k := 1; k < len(rows); k++ {
		out[k] = make([]float64, n)
		h := x[k] - x[k-1]
		for a := 0; a < n; a++ {
			out[k][a] = out[k-1][a] + 0.5*h*(rows[k][a]+rows[k-1][a])
		}
	}
	return out
}

// convolveBoxcarSame convolves a with a boxcar window of width w and
// returns the centered portion of the full convolution, length len(a).
// The center offset is (w-1)/2 in integer arithmetic, matching the
// convention the causal-masking indices are aligned to.
func convolveBoxcarSame(a []float64, w int) []float64 {
	out := make([]float64, len(a))
	offset := (w - 1) / 2
	for i := range out {
		k := i + offset
		lo := k - w + 1
		if lo < 0 {
			lo = 0
		}
		hi := k
		if hi > len(a)-1 {
			hi = len(a) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += a[j]
		}
		out[i] = sum
	}
	return out
}

// argminAbs returns the index whose value is closest to target.
func argminAbs(xs []float64, target float64) int {
	best := 0
	bestDist := math.Abs(xs[0] - target)
	for k, x := range xs[1:] {
		if d := math.Abs(x - target); d < bestDist {
			best = k + 1
			bestDist = d
		}
	}
	return best
}

// seirBlocks splits each 4N state row into its S, E, I, R views.
func seirBlocks(rows [][]float64, n int) (s, e, i, r [][]float64) {
	s = make([][]float64, len(rows))
	e = make([][]float64, len(rows))
	i = make([][]float64, len(rows))
	r = make([][]float64, len(rows))
	for k, row := range rows {
		s[k] = row[:n]
		e[k] = row[n : 2*n]
		i[k] = row[2*n : 3*n]
		r[k] = row[3*n:]
	}
	return s, e, i, r
}
