package epi

import "github.com/epifor/seirgo/internal/solver"

const defaultMaxStep = 0.5

// SimOptions controls one call to Simulate. The zero value selects the
// defaults: start at t=0, Dormand-Prince 5(4), maximum step 0.5 days.
type SimOptions struct {
	Start   float64
	MaxStep float64
	Method  solver.Method
}

// Simulate integrates the model forward to maxTime and retains a dense
// solution for evaluation. A new call supersedes the previous solution.
func (m *Model) Simulate(maxTime float64, opt SimOptions) error {
	if m.y0 == nil {
		return &StateError{Op: "simulate", Err: ErrNoInitialState}
	}

	maxStep := opt.MaxStep
	if maxStep <= 0 {
		maxStep = defaultMaxStep
	}
	method := opt.Method
	if method == "" {
		method = solver.DOPRI5
	}

	sol, err := solver.Solve(m.deriv, m.y0, opt.Start, maxTime, solver.Options{
		MaxStep: maxStep,
		Method:  method,
	})
	if err != nil {
		return &IntegrationError{Method: string(method), Err: err}
	}

	m.t0 = opt.Start
	m.sol = sol
	return nil
}

// StateAt returns the state vector [S, E, I, R] at time t. Times before the
// simulation start return the initial state unchanged.
func (m *Model) StateAt(t float64) ([]float64, error) {
	if m.sol == nil {
		return nil, &StateError{Op: "state query", Err: ErrNoSolution}
	}
	out := make([]float64, m.sol.Dim())
	m.sol.At(t, out)
	return out, nil
}

// sample evaluates the dense solution at every query time, one state row
// per time, with the flat pre-start extension applied.
func (m *Model) sample(ts []float64) [][]float64 {
	return m.sol.Sample(ts)
}
