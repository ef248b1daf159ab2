// Package epi implements a compartmental SEIR epidemic model: construction
// of the R0-normalized infectivity matrix from a contact matrix, the
// time-varying ODE system with optional restriction modifiers, dense-output
// integration, and evaluation of derived clinical time series.
package epi

import (
	"gonum.org/v1/gonum/mat"

	"github.com/epifor/seirgo/internal/restrict"
	"github.com/epifor/seirgo/internal/solver"
)

// Model is one configured SEIR system. A Model is not safe for concurrent
// use; independent instances share no state and may run in parallel.
type Model struct {
	compartments []string
	n            int

	incubationPeriod []float64
	infectiousPeriod []float64
	hospProb         []float64
	icuProb          []float64
	deathProb        []float64
	population       []float64

	initialR0 float64
	hospDur   float64
	hospLag   float64
	icuDur    float64
	icuLag    float64
	deathLag  float64

	// infectivity is the canonical matrix computed at construction time;
	// scratch is a private buffer the restriction modifier is applied into
	// so the canonical matrix is never mutated.
	infectivity *mat.Dense
	scratch     *mat.Dense
	infI        *mat.VecDense

	restrictions restrict.Func
	imported     ImportedCasesFunc

	y0  []float64
	t0  float64
	sol *solver.Solution
}

// New validates the parameters, broadcasts scalar fields to per-compartment
// vectors, and computes the infectivity matrix.
func New(p Params) (*Model, error) {
	compartments := p.Compartments
	if len(compartments) == 0 {
		compartments = []string{"All"}
	}
	n := len(compartments)

	m := &Model{
		compartments: compartments,
		n:            n,
		initialR0:    p.InitialR0,
		hospDur:      p.HospitalizationDuration,
		hospLag:      p.HospitalizationLagFromOnset,
		icuDur:       p.ICUDuration,
		icuLag:       p.ICULagFromOnset,
		deathLag:     p.DeathLagFromOnset,
		restrictions: p.Restrictions,
		imported:     p.ImportedCases,
	}

	var err error
	if m.incubationPeriod, err = broadcast("incubation_period", p.IncubationPeriod, n); err != nil {
		return nil, err
	}
	if m.infectiousPeriod, err = broadcast("infectious_period", p.InfectiousPeriod, n); err != nil {
		return nil, err
	}
	if m.hospProb, err = broadcast("hospitalization_probability", p.HospitalizationProbability, n); err != nil {
		return nil, err
	}
	if m.icuProb, err = broadcast("icu_probability", p.ICUProbability, n); err != nil {
		return nil, err
	}
	if m.deathProb, err = broadcast("death_probability", p.DeathProbability, n); err != nil {
		return nil, err
	}
	// Population is never broadcast: a scalar total for a stratified model
	// is a shape mistake, not an even split.
	if len(p.Population) != n {
		return nil, &ShapeError{Field: "population", Want: n, Got: len(p.Population)}
	}
	m.population = make([]float64, n)
	copy(m.population, p.Population)

	if err := validatePositive("incubation_period", m.incubationPeriod); err != nil {
		return nil, err
	}
	if err := validatePositive("infectious_period", m.infectiousPeriod); err != nil {
		return nil, err
	}
	if err := validatePositive("population", m.population); err != nil {
		return nil, err
	}
	if err := validateProbability("hospitalization_probability", m.hospProb); err != nil {
		return nil, err
	}
	if err := validateProbability("icu_probability", m.icuProb); err != nil {
		return nil, err
	}
	if err := validateProbability("death_probability", m.deathProb); err != nil {
		return nil, err
	}
	if err := validateScalarPositive("initial_r0", p.InitialR0); err != nil {
		return nil, err
	}
	if err := validateScalarPositive("hospitalization_duration", p.HospitalizationDuration); err != nil {
		return nil, err
	}
	if err := validateScalarPositive("icu_duration", p.ICUDuration); err != nil {
		return nil, err
	}
	if err := validateLag("hospitalization_lag_from_onset", p.HospitalizationLagFromOnset); err != nil {
		return nil, err
	}
	if err := validateLag("icu_lag_from_onset", p.ICULagFromOnset); err != nil {
		return nil, err
	}
	if err := validateLag("death_lag_from_onset", p.DeathLagFromOnset); err != nil {
		return nil, err
	}

	contacts := p.ContactsMatrix
	if contacts == nil {
		contacts = mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				contacts.Set(i, j, 1)
			}
		}
	} else if r, c := contacts.Dims(); r != n || c != n {
		return nil, &ShapeError{Field: "contacts_matrix", Want: n, Got: r}
	}

	m.infectivity = m.computeInfectivityMatrix(contacts)
	m.scratch = mat.DenseCopyOf(m.infectivity)
	m.infI = mat.NewVecDense(n, nil)

	return m, nil
}

// computeInfectivityMatrix derives the transmission-rate matrix from the
// contact matrix, R0, population, and infectious period. The contact matrix
// is symmetrized first: if compartment i has contacts with compartment j,
// so does j with i, regardless of how the survey reported them. The
// normalization is chosen so an unstructured model without restrictions
// reproduces the target R0.
func (m *Model) computeInfectivityMatrix(contacts *mat.Dense) *mat.Dense {
	n := m.n

	// sum over j of (population @ contacts)_j
	popContacts := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			popContacts += m.population[i] * contacts.At(i, j)
		}
	}
	popTotal := 0.0
	for _, p := range m.population {
		popTotal += p
	}

	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sym := 0.5 * (contacts.At(i, j) + contacts.At(j, i))
			norm := m.initialR0 * popTotal / popContacts / m.infectiousPeriod[j]
			out.Set(i, j, norm*sym)
		}
	}
	return out
}

// Compartments returns the compartment labels.
func (m *Model) Compartments() []string { return m.compartments }

// NumCompartments returns the number of compartments N. The state vector
// has length 4N.
func (m *Model) NumCompartments() int { return m.n }

// Population returns the per-compartment population vector.
func (m *Model) Population() []float64 { return m.population }

// InfectivityMatrix returns a copy of the canonical infectivity matrix.
func (m *Model) InfectivityMatrix() *mat.Dense { return mat.DenseCopyOf(m.infectivity) }

// SetInitialState builds the initial condition Y0 = [S, E, I, R].
//
// When asProbabilities is set, exposed and infected are per-compartment
// fractions of the population; otherwise they are head counts, with a
// single count split evenly across compartments. Susceptible is population
// minus exposed minus infected, and removed starts at zero.
func (m *Model) SetInitialState(exposed, infected []float64, asProbabilities bool) error {
	n := m.n

	e, err := broadcast("population_exposed", exposed, n)
	if err != nil {
		return err
	}
	i, err := broadcast("population_infected", infected, n)
	if err != nil {
		return err
	}

	if asProbabilities {
		for a := 0; a < n; a++ {
			e[a] *= m.population[a]
			i[a] *= m.population[a]
		}
	} else if n > 1 {
		// A scalar count is a total over the whole population.
		if len(exposed) == 1 {
			for a := range e {
				e[a] /= float64(n)
			}
		}
		if len(infected) == 1 {
			for a := range i {
				i[a] /= float64(n)
			}
		}
	}

	y0 := make([]float64, 4*n)
	for a := 0; a < n; a++ {
		y0[a] = m.population[a] - e[a] - i[a]
		y0[n+a] = e[a]
		y0[2*n+a] = i[a]
	}

	m.y0 = y0
	m.sol = nil
	return nil
}

// deriv computes dY/dt of the SEIR system into dy. Y is laid out as four
// contiguous length-N blocks [S, E, I, R].
func (m *Model) deriv(t float64, y, dy []float64) {
	inf := m.infectivity
	if m.restrictions != nil {
		m.restrictions(t).Apply(m.scratch, m.infectivity)
		inf = m.scratch
	}

	n := m.n
	S, E, I := y[:n], y[n:2*n], y[2*n:3*n]
	dS, dE, dI, dR := dy[:n], dy[n:2*n], dy[2*n:3*n], dy[3*n:]

	m.infI.MulVec(inf, mat.NewVecDense(n, I))

	for a := 0; a < n; a++ {
		dS[a] = -S[a] / m.population[a] * m.infI.AtVec(a)
		dE[a] = -dS[a] - E[a]/m.incubationPeriod[a]
		dI[a] = E[a]/m.incubationPeriod[a] - I[a]/m.infectiousPeriod[a]
		dR[a] = I[a] / m.infectiousPeriod[a]
	}

	if m.imported != nil {
		addS, addE, addI := m.imported(t)
		for a := 0; a < n; a++ {
			dS[a] += addS[a]
			dE[a] += addE[a]
			dI[a] += addI[a]
		}
	}
}
