package epi

import "math"

// Evaluate post-processes the dense solution into the clinical time series
// at the given query times, which must be evenly spaced and in increasing
// order.
//
// When onlyReal is set, hospitalization, ICU, and death figures are NaN for
// any time earlier than start + lag + duration of the respective quantity:
// there is no trajectory history to support an estimate there, and a zero
// would be a silent lie.
func (m *Model) Evaluate(times []float64, onlyReal bool) (*Results, error) {
	if m.sol == nil {
		return nil, &StateError{Op: "evaluate", Err: ErrNoSolution}
	}
	if len(times) < 2 {
		return nil, &ConfigurationError{Field: "times", Reason: "need at least two query times"}
	}
	dt := times[1] - times[0]
	if dt <= 0 {
		return nil, &ConfigurationError{Field: "times", Reason: "must be increasing"}
	}
	for k := 1; k < len(times); k++ {
		if math.Abs(times[k]-times[k-1]-dt) > 1e-9*dt {
			return nil, &ConfigurationError{Field: "times", Reason: "must be evenly spaced"}
		}
	}

	n := m.n
	S, E, I, R := seirBlocks(m.sample(times), n)

	icum := m.cumulativeInfections(times, E, I)
	hosp := m.occupancy(times, dt, m.hospProb, m.hospDur, m.hospLag, onlyReal)
	icu := m.occupancy(times, dt, m.icuProb, m.icuDur, m.icuLag, onlyReal)
	deaths := m.cumulativeDeaths(times, onlyReal)

	return newResults(times, m.compartments, map[string][][]float64{
		QuantitySusceptible:    S,
		QuantityExposed:        E,
		QuantityInfectedActive: I,
		QuantityInfectedTotal:  icum,
		QuantityRemoved:        R,
		QuantityHospitalized:   hosp,
		QuantityICU:            icu,
		QuantityDeaths:         deaths,
	}), nil
}

// cumulativeInfections estimates the total number of infections at each
// query time with two stitched estimators: after the simulation start the
// forward trapezoidal integral of the new-case rate E/incubation, and
// before it the backward difference of the I compartment against its start
// value. The dense solution is not a dynamical history before the start,
// so integrating E there would be meaningless; both halves are anchored on
// I at the start time.
func (m *Model) cumulativeInfections(times []float64, E, I [][]float64) [][]float64 {
	n := m.n
	E0 := m.y0[n : 2*n]
	I0 := m.y0[2*n : 3*n]

	firstPos := -1
	for k, t := range times {
		if t >= m.t0 {
			firstPos = k
			break
		}
	}

	out := make([][]float64, len(times))
	for k := range out {
		out[k] = make([]float64, n)
	}

	// Before the start the model is flat, so the difference estimator
	// collapses to I itself.
	limit := firstPos
	if limit < 0 {
		limit = len(times)
	}
	for k := 0; k < limit; k++ {
		copy(out[k], I[k])
	}

	if firstPos < 0 {
		return out
	}

	cum := make([]float64, n)
	for a := 0; a < n; a++ {
		// Anchor trapezoid over [t0, times[firstPos]].
		cum[a] = 0.5 * (times[firstPos] - m.t0) *
			(E0[a]/m.incubationPeriod[a] + E[firstPos][a]/m.incubationPeriod[a])
		out[firstPos][a] = I0[a] + cum[a]
	}
	for k := firstPos + 1; k < len(times); k++ {
		h := times[k] - times[k-1]
		for a := 0; a < n; a++ {
			cum[a] += 0.5 * h * (E[k][a] + E[k-1][a]) / m.incubationPeriod[a]
			out[k][a] = I0[a] + cum[a]
		}
	}
	return out
}

// occupancy computes an active-count time series (hospital beds or ICU):
// the admission rate is prob * E(t-lag)/incubation, and each admission
// occupies a bed for exactly duration days, so the active count is the
// admission rate convolved with a boxcar window of that width.
//
// The query grid is padded by one duration on both sides so the convolution
// window is fully populated at the edges of the requested range; the
// padding is sliced away before returning.
func (m *Model) occupancy(times []float64, dt float64, prob []float64, duration, lag float64, onlyReal bool) [][]float64 {
	n := m.n
	last := times[len(times)-1]

	beg := arange(times[0]-duration, times[0]+dt/2, dt)
	end := arange(last, last+duration+dt/2, dt)
	grid := make([]float64, 0, len(beg)+len(times)+len(end))
	grid = append(grid, beg...)
	grid = append(grid, times...)
	grid = append(grid, end...)

	lagged := make([]float64, len(grid))
	for k, t := range grid {
		lagged[k] = t - lag
	}
	_, E, _, _ := seirBlocks(m.sample(lagged), n)

	w := int(math.Round(duration / dt))
	if w < 1 {
		w = 1
	}

	active := make([][]float64, len(grid))
	for k := range active {
		active[k] = make([]float64, n)
	}
	col := make([]float64, len(grid))
	for a := 0; a < n; a++ {
		for k := range grid {
			col[k] = prob[a] * E[k][a] / m.incubationPeriod[a]
		}
		conv := convolveBoxcarSame(col, w)
		for k := range grid {
			active[k][a] = conv[k] * dt
		}
	}

	if onlyReal {
		threshold := m.t0 + lag + duration
		for k, t := range grid {
			if t < threshold {
				for a := 0; a < n; a++ {
					active[k][a] = math.NaN()
				}
			}
		}
	}

	return active[len(beg) : len(beg)+len(times)]
}

// cumulativeDeaths integrates the lagged death rate prob * E(t-lag)/incubation
// from the first query time onward. With masking enabled the series is
// re-anchored to zero at the query point nearest start+lag and NaN before it.
func (m *Model) cumulativeDeaths(times []float64, onlyReal bool) [][]float64 {
	n := m.n

	lagged := make([]float64, len(times))
	for k, t := range times {
		lagged[k] = t - m.deathLag
	}
	_, E, _, _ := seirBlocks(m.sample(lagged), n)

	rate := make([][]float64, len(times))
	for k := range rate {
		rate[k] = make([]float64, n)
		for a := 0; a < n; a++ {
			rate[k][a] = m.deathProb[a] * E[k][a] / m.incubationPeriod[a]
		}
	}
	deaths := cumtrapz(rate, times)

	if onlyReal {
		threshold := m.t0 + m.deathLag
		anchor := argminAbs(times, threshold)
		base := make([]float64, n)
		copy(base, deaths[anchor])
		for k := range deaths {
			for a := 0; a < n; a++ {
				if times[k] < threshold {
					deaths[k][a] = math.NaN()
				} else {
					deaths[k][a] -= base[a]
				}
			}
		}
	}
	return deaths
}
