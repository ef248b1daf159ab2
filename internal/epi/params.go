package epi

import (
	"gonum.org/v1/gonum/mat"

	"github.com/epifor/seirgo/internal/restrict"
)

// ImportedCasesFunc supplies exogenous case importation at time t as three
// per-compartment additive corrections to dS/dt, dE/dt, and dI/dt.
type ImportedCasesFunc func(t float64) (dS, dE, dI []float64)

// Params collects the disease and population inputs of the model.
//
// Vector-valued fields hold either one entry (broadcast to every
// compartment) or one entry per compartment. Durations and lags are
// population-wide scalars: a per-compartment lag would need a separate
// time shift of the solution per compartment, which the evaluator does
// not support.
type Params struct {
	// Per-compartment vectors (scalar inputs broadcast).
	IncubationPeriod           []float64
	InfectiousPeriod           []float64
	HospitalizationProbability []float64
	ICUProbability             []float64
	DeathProbability           []float64
	Population                 []float64

	// Population-wide scalars, in days.
	InitialR0                   float64
	HospitalizationDuration     float64
	HospitalizationLagFromOnset float64
	ICUDuration                 float64
	ICULagFromOnset             float64
	DeathLagFromOnset           float64

	// Compartments labels each population sub-group. Empty means a single
	// compartment named "All".
	Compartments []string

	// ContactsMatrix holds the average daily contacts between compartments.
	// Nil means an all-ones matrix.
	ContactsMatrix *mat.Dense

	// Restrictions modifies the infectivity matrix over time. Nil means no
	// restrictions.
	Restrictions restrict.Func

	// ImportedCases adds exogenous cases over time. Nil means none.
	ImportedCases ImportedCasesFunc
}

// broadcast normalizes a scalar-or-vector parameter to length n: a single
// value is repeated for every compartment, a length-n slice is copied, and
// anything else is a ShapeError.
func broadcast(field string, v []float64, n int) ([]float64, error) {
	switch len(v) {
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case n:
		out := make([]float64, n)
		copy(out, v)
		return out, nil
	default:
		return nil, &ShapeError{Field: field, Want: n, Got: len(v)}
	}
}

func validatePositive(field string, v []float64) error {
	if len(v) == 0 {
		return &ConfigurationError{Field: field, Reason: "missing"}
	}
	for _, x := range v {
		if x <= 0 {
			return &ConfigurationError{Field: field, Reason: "must be positive"}
		}
	}
	return nil
}

func validateProbability(field string, v []float64) error {
	if len(v) == 0 {
		return &ConfigurationError{Field: field, Reason: "missing"}
	}
	for _, x := range v {
		if x < 0 || x > 1 {
			return &ConfigurationError{Field: field, Reason: "must be within [0, 1]"}
		}
	}
	return nil
}

func validateScalarPositive(field string, v float64) error {
	if v <= 0 {
		return &ConfigurationError{Field: field, Reason: "must be positive"}
	}
	return nil
}

func validateLag(field string, v float64) error {
	if v < 0 {
		return &ConfigurationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}
