package solver

import "sort"

// segment holds the continuous extension of one accepted step over
// [t, t+h] as nested-polynomial coefficients:
//
//	y(theta) = c0 + theta*(c1 + (1-theta)*(c2 + theta*(c3 + (1-theta)*c4)))
//
// with theta = (query - t) / h.
type segment struct {
	t, h float64
	c    [5][]float64
}

func (s *segment) eval(t float64, dst []float64) {
	theta := (t - s.t) / s.h
	theta1 := 1 - theta
	for i := range dst {
		dst[i] = s.c[0][i] + theta*(s.c[1][i]+theta1*(s.c[2][i]+theta*(s.c[3][i]+theta1*s.c[4][i])))
	}
}

// Solution is a dense, continuously queryable trajectory on [T0, TEnd].
//
// Queries before T0 return Y0 unchanged: the system is treated as having
// sat in its initial state for all prior time. Queries past TEnd
// extrapolate the last step's interpolant.
type Solution struct {
	T0, TEnd float64
	Y0       []float64
	segs     []segment
}

// Dim returns the state dimension.
func (s *Solution) Dim() int { return len(s.Y0) }

// At evaluates the solution at time t into dst, which must have length Dim.
func (s *Solution) At(t float64, dst []float64) {
	if t < s.T0 || len(s.segs) == 0 {
		copy(dst, s.Y0)
		return
	}
	// First segment with t < seg.t+seg.h, clamped to the last one.
	i := sort.Search(len(s.segs), func(j int) bool {
		return t < s.segs[j].t+s.segs[j].h
	})
	if i == len(s.segs) {
		i--
	}
	s.segs[i].eval(t, dst)
}

// Sample evaluates the solution at each time in ts, returning one state
// row per query time.
func (s *Solution) Sample(ts []float64) [][]float64 {
	out := make([][]float64, len(ts))
	for i, t := range ts {
		out[i] = make([]float64, s.Dim())
		s.At(t, out[i])
	}
	return out
}
