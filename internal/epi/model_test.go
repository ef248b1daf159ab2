package epi

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/epifor/seirgo/internal/restrict"
)

// referenceParams is the single-compartment reference scenario.
func referenceParams() Params {
	return Params{
		IncubationPeriod:            []float64{3},
		InfectiousPeriod:            []float64{7},
		InitialR0:                   2.5,
		HospitalizationProbability:  []float64{0.01},
		HospitalizationDuration:     20,
		HospitalizationLagFromOnset: 7,
		ICUProbability:              []float64{0.001},
		ICUDuration:                 10,
		ICULagFromOnset:             11,
		DeathProbability:            []float64{0.01},
		DeathLagFromOnset:           25,
		Population:                  []float64{1_000_000},
	}
}

func twoCompartmentParams() Params {
	p := referenceParams()
	p.Compartments = []string{"young", "old"}
	p.Population = []float64{800_000, 200_000}
	return p
}

func referenceModel(t *testing.T, p Params) *Model {
	t.Helper()
	m, err := New(p)
	require.NoError(t, err)
	require.NoError(t, m.SetInitialState([]float64{0.005}, []float64{0.005}, true))
	require.NoError(t, m.Simulate(200, SimOptions{}))
	return m
}

func TestInfectivityMatrixSingleCompartment(t *testing.T) {
	m, err := New(referenceParams())
	require.NoError(t, err)

	// With an all-ones contact matrix the normalization reduces to
	// R0 / infectious period.
	inf := m.InfectivityMatrix()
	require.InDelta(t, 2.5/7.0, inf.At(0, 0), 1e-12)
}

func TestInfectivityMatrixSymmetrized(t *testing.T) {
	p := twoCompartmentParams()
	p.ContactsMatrix = mat.NewDense(2, 2, []float64{
		10, 2,
		6, 8,
	})

	m, err := New(p)
	require.NoError(t, err)

	inf := m.InfectivityMatrix()
	require.Equal(t, inf.At(0, 1), inf.At(1, 0), "symmetrization must hold for asymmetric input")
	// Symmetrized off-diagonal is 0.5*(2+6) = 4; proportionality to the
	// symmetrized contacts.
	require.InDelta(t, inf.At(0, 0)/10.0, inf.At(0, 1)/4.0, 1e-12)
}

func TestContactsMatrixShape(t *testing.T) {
	p := twoCompartmentParams()
	p.ContactsMatrix = mat.NewDense(3, 3, nil)

	_, err := New(p)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, "contacts_matrix", shapeErr.Field)
}

func TestPopulationConservation(t *testing.T) {
	m := referenceModel(t, referenceParams())

	for _, q := range []float64{0, 13.7, 50, 120, 199.5, 200} {
		y, err := m.StateAt(q)
		require.NoError(t, err)
		sum := y[0] + y[1] + y[2] + y[3]
		require.InDelta(t, 1_000_000, sum, 1.0, "population must be conserved at t=%g", q)
	}
}

func TestConservationPerCompartment(t *testing.T) {
	m := referenceModel(t, twoCompartmentParams())

	y, err := m.StateAt(77)
	require.NoError(t, err)
	n := m.NumCompartments()
	for a := 0; a < n; a++ {
		sum := y[a] + y[n+a] + y[2*n+a] + y[3*n+a]
		require.InDelta(t, m.Population()[a], sum, 1.0)
	}
}

func TestFlatExtensionReturnsInitialState(t *testing.T) {
	p := referenceParams()
	m, err := New(p)
	require.NoError(t, err)
	require.NoError(t, m.SetInitialState([]float64{0.005}, []float64{0.005}, true))
	require.NoError(t, m.Simulate(50, SimOptions{Start: 10}))

	for _, q := range []float64{-1000, -1, 0, 9.999} {
		y, err := m.StateAt(q)
		require.NoError(t, err)
		require.Equal(t, m.y0, y, "state before the start must be exactly Y0")
	}
}

func TestIdentityRestrictionMatchesNone(t *testing.T) {
	bare := referenceModel(t, referenceParams())

	p := referenceParams()
	p.Restrictions = func(float64) restrict.Modifier { return restrict.Scalar(1.0) }
	scaled := referenceModel(t, p)

	for _, q := range []float64{5, 60.5, 150} {
		yBare, err := bare.StateAt(q)
		require.NoError(t, err)
		yScaled, err := scaled.StateAt(q)
		require.NoError(t, err)
		require.Equal(t, yBare, yScaled)
	}
}

func TestRestrictionLowersPeak(t *testing.T) {
	unrestricted := referenceModel(t, twoCompartmentParams())

	p := twoCompartmentParams()
	lockdown := restrict.Restriction{
		Title:    "lockdown",
		Begins:   20,
		Ends:     180,
		Modifier: restrict.Scalar(0.5),
	}
	p.Restrictions = lockdown.Func()
	restricted := referenceModel(t, p)

	peakOf := func(m *Model) float64 {
		peak := 0.0
		for q := 0.0; q <= 200; q++ {
			y, err := m.StateAt(q)
			require.NoError(t, err)
			if active := y[4] + y[5]; active > peak {
				peak = active
			}
		}
		return peak
	}

	require.Less(t, peakOf(restricted), peakOf(unrestricted),
		"halving infectivity during days 20-180 must lower the infection peak")
}

func TestImportedCases(t *testing.T) {
	p := referenceParams()
	p.ImportedCases = func(float64) (dS, dE, dI []float64) {
		// Constant trickle of imported exposures.
		return []float64{0}, []float64{50}, []float64{0}
	}
	m, err := New(p)
	require.NoError(t, err)
	require.NoError(t, m.SetInitialState([]float64{0}, []float64{0}, false))
	require.NoError(t, m.Simulate(10, SimOptions{}))

	y, err := m.StateAt(10)
	require.NoError(t, err)
	require.Greater(t, y[1]+y[2]+y[3], 100.0, "imported cases must seed the epidemic")
}

func TestSimulateWithoutInitialState(t *testing.T) {
	m, err := New(referenceParams())
	require.NoError(t, err)

	err = m.Simulate(10, SimOptions{})
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	require.True(t, errors.Is(err, ErrNoInitialState))
}

func TestInitialStateCounts(t *testing.T) {
	m, err := New(twoCompartmentParams())
	require.NoError(t, err)

	// A scalar head count splits evenly across compartments.
	require.NoError(t, m.SetInitialState([]float64{100}, []float64{50}, false))
	require.Equal(t, 50.0, m.y0[2])
	require.Equal(t, 50.0, m.y0[3])
	require.Equal(t, 25.0, m.y0[4])
	require.Equal(t, 800_000-50.0-25.0, m.y0[0])

	// Probabilities scale with each compartment's population.
	require.NoError(t, m.SetInitialState([]float64{0.01}, []float64{0}, true))
	require.Equal(t, 8000.0, m.y0[2])
	require.Equal(t, 2000.0, m.y0[3])
}

func TestInitialStateShape(t *testing.T) {
	m, err := New(twoCompartmentParams())
	require.NoError(t, err)

	err = m.SetInitialState([]float64{1, 2, 3}, []float64{0}, false)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestStateAtBeforeSimulate(t *testing.T) {
	m, err := New(referenceParams())
	require.NoError(t, err)

	_, err = m.StateAt(5)
	require.True(t, errors.Is(err, ErrNoSolution))
}

func TestNaNFreeTrajectory(t *testing.T) {
	m := referenceModel(t, referenceParams())
	for q := -5.0; q <= 200; q += 2.5 {
		y, err := m.StateAt(q)
		require.NoError(t, err)
		for i, v := range y {
			require.False(t, math.IsNaN(v), "NaN at t=%g index %d", q, i)
		}
	}
}
