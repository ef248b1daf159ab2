package solver

import (
	"errors"
	"fmt"
	"math"
)

// Field evaluates the time derivative of the state y into dy.
// len(dy) == len(y); implementations must not retain either slice.
type Field func(t float64, y, dy []float64)

type Method string

const (
	DOPRI5 Method = "dopri5"
	RK4    Method = "rk4"
)

var (
	// ErrStepTooSmall indicates the adaptive step size underflowed while
	// trying to satisfy the error tolerance.
	ErrStepTooSmall = errors.New("solver: step size underflow")

	// ErrTooManySteps indicates the solver exceeded its step budget
	// without reaching the end of the integration span.
	ErrTooManySteps = errors.New("solver: maximum number of steps exceeded")
)

type Options struct {
	// MaxStep caps the step size. Zero means no cap.
	MaxStep float64
	// InitStep is the first trial step. Zero picks one from the span.
	InitStep float64
	// RTol and ATol control the local error test. Zero selects
	// 1e-6 and 1e-9 respectively.
	RTol, ATol float64
	// Method selects the integration scheme. Empty selects DOPRI5.
	Method Method
	// MaxSteps bounds the number of accepted steps. Zero selects 1e6.
	MaxSteps int
}

func (o *Options) fill(span float64) {
	if o.RTol == 0 {
		o.RTol = 1e-6
	}
	if o.ATol == 0 {
		o.ATol = 1e-9
	}
	if o.Method == "" {
		o.Method = DOPRI5
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = 1_000_000
	}
	if o.InitStep == 0 {
		o.InitStep = span / 100
	}
	if o.MaxStep > 0 && o.InitStep > o.MaxStep {
		o.InitStep = o.MaxStep
	}
}

// Solve integrates dy/dt = f(t, y) from t0 to tEnd and returns a dense
// solution queryable at arbitrary times.
func Solve(f Field, y0 []float64, t0, tEnd float64, opt Options) (*Solution, error) {
	if tEnd <= t0 {
		return nil, fmt.Errorf("solver: integration span [%g, %g] is empty", t0, tEnd)
	}
	opt.fill(tEnd - t0)

	sol := &Solution{
		T0:   t0,
		TEnd: tEnd,
		Y0:   clone(y0),
	}

	var err error
	switch opt.Method {
	case DOPRI5:
		err = solveDOPRI5(f, sol, opt)
	case RK4:
		err = solveRK4(f, sol, opt)
	default:
		err = fmt.Errorf("solver: unknown method %q", opt.Method)
	}
	if err != nil {
		return nil, err
	}
	return sol, nil
}

const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 10.0
)

// Dormand-Prince 5(4) tableau.
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0

	// Continuous-extension coefficients (Shampine's quartic interpolant).
	d1 = -12715105075.0 / 11282082432.0
	d3 = 87487479700.0 / 32700410799.0
	d4 = -10690763975.0 / 1880347072.0
	d5 = 701980252875.0 / 199316789632.0
	d6 = -1453857185.0 / 822651844.0
	d7 = 69997945.0 / 29380423.0
)

func solveDOPRI5(f Field, sol *Solution, opt Options) error {
	n := len(sol.Y0)
	y := clone(sol.Y0)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	k5 := make([]float64, n)
	k6 := make([]float64, n)
	k7 := make([]float64, n)
	stage := make([]float64, n)
	yNew := make([]float64, n)

	t := sol.T0
	h := opt.InitStep
	f(t, y, k1)

	for steps := 0; t < sol.TEnd; steps++ {
		if steps >= opt.MaxSteps {
			return ErrTooManySteps
		}
		if h < minStepAt(t) {
			return fmt.Errorf("%w at t=%g (h=%g)", ErrStepTooSmall, t, h)
		}
		if t+h > sol.TEnd {
			h = sol.TEnd - t
		}

		for i := 0; i < n; i++ {
			stage[i] = y[i] + h*b21*k1[i]
		}
		f(t+a2*h, stage, k2)

		for i := 0; i < n; i++ {
			stage[i] = y[i] + h*(b31*k1[i]+b32*k2[i])
		}
		f(t+a3*h, stage, k3)

		for i := 0; i < n; i++ {
			stage[i] = y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
		}
		f(t+a4*h, stage, k4)

		for i := 0; i < n; i++ {
			stage[i] = y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
		}
		f(t+a5*h, stage, k5)

		for i := 0; i < n; i++ {
			stage[i] = y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
		}
		f(t+h, stage, k6)

		for i := 0; i < n; i++ {
			yNew[i] = y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
		}
		f(t+h, yNew, k7)

		errNorm := 0.0
		for i := 0; i < n; i++ {
			errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
			scale := opt.ATol + opt.RTol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
			errNorm = math.Max(errNorm, math.Abs(errEst)/scale)
		}

		if errNorm > 1 {
			h *= math.Max(minScale, safety*math.Pow(errNorm, -0.25))
			continue
		}

		sol.segs = append(sol.segs, denseSegment(t, h, y, yNew, k1, k3, k4, k5, k6, k7))

		t += h
		copy(y, yNew)
		copy(k1, k7) // FSAL

		var scale float64
		if errNorm > 0 {
			scale = math.Min(maxScale, safety*math.Pow(errNorm, -0.2))
		} else {
			scale = maxScale
		}
		h *= scale
		if opt.MaxStep > 0 && h > opt.MaxStep {
			h = opt.MaxStep
		}
	}

	return nil
}

// denseSegment assembles the nested-polynomial coefficients for one accepted
// step; see Solution.At for the evaluation rule.
func denseSegment(t, h float64, y, yNew, k1, k3, k4, k5, k6, k7 []float64) segment {
	n := len(y)
	s := segment{t: t, h: h}
	for j := range s.c {
		s.c[j] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		diff := yNew[i] - y[i]
		bspl := h*k1[i] - diff
		s.c[0][i] = y[i]
		s.c[1][i] = diff
		s.c[2][i] = bspl
		s.c[3][i] = diff - h*k7[i] - bspl
		s.c[4][i] = h * (d1*k1[i] + d3*k3[i] + d4*k4[i] + d5*k5[i] + d6*k6[i] + d7*k7[i])
	}
	return s
}

func solveRK4(f Field, sol *Solution, opt Options) error {
	n := len(sol.Y0)
	h := opt.MaxStep
	if h <= 0 {
		h = opt.InitStep
	}
	steps := int(math.Ceil((sol.TEnd - sol.T0) / h))
	if steps > opt.MaxSteps {
		return ErrTooManySteps
	}

	y := clone(sol.Y0)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	stage := make([]float64, n)
	yNew := make([]float64, n)
	fEnd := make([]float64, n)

	t := sol.T0
	for s := 0; s < steps; s++ {
		ht := h
		if t+ht > sol.TEnd {
			ht = sol.TEnd - t
		}

		f(t, y, k1)
		for i := 0; i < n; i++ {
			stage[i] = y[i] + ht*0.5*k1[i]
		}
		f(t+ht*0.5, stage, k2)
		for i := 0; i < n; i++ {
			stage[i] = y[i] + ht*0.5*k2[i]
		}
		f(t+ht*0.5, stage, k3)
		for i := 0; i < n; i++ {
			stage[i] = y[i] + ht*k3[i]
		}
		f(t+ht, stage, k4)

		ht6 := ht / 6.0
		for i := 0; i < n; i++ {
			yNew[i] = y[i] + ht6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
		}
		f(t+ht, yNew, fEnd)

		sol.segs = append(sol.segs, hermiteSegment(t, ht, y, yNew, k1, fEnd))

		t += ht
		copy(y, yNew)
	}

	return nil
}

// hermiteSegment expresses the cubic Hermite interpolant in the same nested
// form as the quartic one, with a zero leading coefficient.
func hermiteSegment(t, h float64, y, yNew, f0, f1 []float64) segment {
	n := len(y)
	s := segment{t: t, h: h}
	for j := range s.c {
		s.c[j] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		diff := yNew[i] - y[i]
		bspl := h*f0[i] - diff
		s.c[0][i] = y[i]
		s.c[1][i] = diff
		s.c[2][i] = bspl
		s.c[3][i] = diff - h*f1[i] - bspl
	}
	return s
}

func minStepAt(t float64) float64 {
	return 1e-13 * (math.Abs(t) + 1)
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
