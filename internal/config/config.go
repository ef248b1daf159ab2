// Package config loads and saves scenario files: the model parameters,
// initial state, simulation controls, and restriction definitions for one
// epidemic run.
package config

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/epifor/seirgo/internal/epi"
	"github.com/epifor/seirgo/internal/restrict"
	"github.com/epifor/seirgo/internal/solver"
)

const (
	DefaultMaxSimulationTime = 200.0
	DefaultMaxStep           = 0.5
	DefaultOutputInterval    = 1.0
	DefaultMethod            = string(solver.DOPRI5)
)

type Scenario struct {
	Model        ModelConfig         `yaml:"model"`
	InitialState InitialStateConfig  `yaml:"initial_state"`
	Simulation   SimulationConfig    `yaml:"simulation"`
	Restrictions []RestrictionConfig `yaml:"restrictions,omitempty"`
}

type ModelConfig struct {
	Compartments                []string       `yaml:"compartments,omitempty"`
	Population                  ScalarOrVector `yaml:"population"`
	IncubationPeriod            ScalarOrVector `yaml:"incubation_period"`
	InfectiousPeriod            ScalarOrVector `yaml:"infectious_period"`
	InitialR0                   float64        `yaml:"initial_r0"`
	HospitalizationProbability  ScalarOrVector `yaml:"hospitalization_probability"`
	HospitalizationDuration     float64        `yaml:"hospitalization_duration"`
	HospitalizationLagFromOnset float64        `yaml:"hospitalization_lag_from_onset"`
	ICUProbability              ScalarOrVector `yaml:"icu_probability"`
	ICUDuration                 float64        `yaml:"icu_duration"`
	ICULagFromOnset             float64        `yaml:"icu_lag_from_onset"`
	DeathProbability            ScalarOrVector `yaml:"death_probability"`
	DeathLagFromOnset           float64        `yaml:"death_lag_from_onset"`
	ContactsMatrix              [][]float64    `yaml:"contacts_matrix,omitempty"`
}

type InitialStateConfig struct {
	PopulationExposed  ScalarOrVector `yaml:"population_exposed"`
	PopulationInfected ScalarOrVector `yaml:"population_infected"`
	Probabilities      bool           `yaml:"probabilities"`
}

type SimulationConfig struct {
	MaxSimulationTime float64 `yaml:"max_simulation_time"`
	Start             float64 `yaml:"start"`
	MaxStep           float64 `yaml:"max_step"`
	Method            string  `yaml:"method"`
	OutputInterval    float64 `yaml:"output_interval"`
}

// RestrictionConfig defines one time-windowed infectivity modification.
// Exactly one of factor, matrix, or pairs supplies the modifier.
type RestrictionConfig struct {
	Title     string       `yaml:"title"`
	DayBegins float64      `yaml:"day_begins"`
	DayEnds   float64      `yaml:"day_ends"`
	Factor    *float64     `yaml:"factor,omitempty"`
	Matrix    [][]float64  `yaml:"matrix,omitempty"`
	Pairs     []PairConfig `yaml:"pairs,omitempty"`
}

type PairConfig struct {
	From   StringList `yaml:"from"`
	To     StringList `yaml:"to"`
	Factor float64    `yaml:"factor"`
}

// Default returns the single-compartment reference scenario.
func Default() *Scenario {
	return &Scenario{
		Model: ModelConfig{
			Population:                  ScalarOrVector{1_000_000},
			IncubationPeriod:            ScalarOrVector{3},
			InfectiousPeriod:            ScalarOrVector{7},
			InitialR0:                   2.5,
			HospitalizationProbability:  ScalarOrVector{0.01},
			HospitalizationDuration:     20,
			HospitalizationLagFromOnset: 7,
			ICUProbability:              ScalarOrVector{0.001},
			ICUDuration:                 10,
			ICULagFromOnset:             11,
			DeathProbability:            ScalarOrVector{0.01},
			DeathLagFromOnset:           25,
		},
		InitialState: InitialStateConfig{
			PopulationExposed:  ScalarOrVector{0.005},
			PopulationInfected: ScalarOrVector{0.005},
			Probabilities:      true,
		},
		Simulation: SimulationConfig{
			MaxSimulationTime: DefaultMaxSimulationTime,
			MaxStep:           DefaultMaxStep,
			Method:            DefaultMethod,
			OutputInterval:    DefaultOutputInterval,
		},
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scn := Default()
	if err := yaml.Unmarshal(data, scn); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return scn, nil
}

func Save(path string, scn *Scenario) error {
	data, err := yaml.Marshal(scn)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Compartments returns the compartment labels, defaulting to a single
// compartment named "All".
func (s *Scenario) Compartments() []string {
	if len(s.Model.Compartments) == 0 {
		return []string{"All"}
	}
	return s.Model.Compartments
}

// RestrictionList converts the restriction sections into model
// restrictions against this scenario's compartments.
func (s *Scenario) RestrictionList() ([]restrict.Restriction, error) {
	compartments := s.Compartments()
	out := make([]restrict.Restriction, 0, len(s.Restrictions))
	for _, rc := range s.Restrictions {
		r, err := rc.toRestriction(compartments)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (rc *RestrictionConfig) toRestriction(compartments []string) (restrict.Restriction, error) {
	defined := 0
	if rc.Factor != nil {
		defined++
	}
	if rc.Matrix != nil {
		defined++
	}
	if rc.Pairs != nil {
		defined++
	}
	if defined != 1 {
		return restrict.Restriction{}, fmt.Errorf(
			"config: restriction %q needs exactly one of factor, matrix, or pairs", rc.Title)
	}
	if rc.DayEnds < rc.DayBegins {
		return restrict.Restriction{}, fmt.Errorf(
			"config: restriction %q ends before it begins", rc.Title)
	}

	r := restrict.Restriction{
		Title:  rc.Title,
		Begins: rc.DayBegins,
		Ends:   rc.DayEnds,
	}
	switch {
	case rc.Factor != nil:
		r.Modifier = restrict.Scalar(*rc.Factor)
	case rc.Matrix != nil:
		m, err := denseFromRows(rc.Matrix, len(compartments), fmt.Sprintf("restriction %q matrix", rc.Title))
		if err != nil {
			return restrict.Restriction{}, err
		}
		r.Modifier = restrict.Matrix(m)
	default:
		pairs := make([]restrict.Pair, len(rc.Pairs))
		for i, p := range rc.Pairs {
			pairs[i] = restrict.Pair{From: p.From, To: p.To, Factor: p.Factor}
		}
		mod, err := restrict.ModifierFromPairs(pairs, compartments)
		if err != nil {
			return restrict.Restriction{}, err
		}
		r.Modifier = mod
	}
	return r, nil
}

// Params assembles the scenario into model parameters, composing the
// restriction sections into a single modifier function.
func (s *Scenario) Params() (epi.Params, error) {
	restrictions, err := s.RestrictionList()
	if err != nil {
		return epi.Params{}, err
	}

	p := epi.Params{
		Compartments:                s.Model.Compartments,
		Population:                  s.Model.Population,
		IncubationPeriod:            s.Model.IncubationPeriod,
		InfectiousPeriod:            s.Model.InfectiousPeriod,
		InitialR0:                   s.Model.InitialR0,
		HospitalizationProbability:  s.Model.HospitalizationProbability,
		HospitalizationDuration:     s.Model.HospitalizationDuration,
		HospitalizationLagFromOnset: s.Model.HospitalizationLagFromOnset,
		ICUProbability:              s.Model.ICUProbability,
		ICUDuration:                 s.Model.ICUDuration,
		ICULagFromOnset:             s.Model.ICULagFromOnset,
		DeathProbability:            s.Model.DeathProbability,
		DeathLagFromOnset:           s.Model.DeathLagFromOnset,
		Restrictions:                restrict.ComposeRestrictions(restrictions),
	}

	if s.Model.ContactsMatrix != nil {
		m, err := denseFromRows(s.Model.ContactsMatrix, len(s.Compartments()), "contacts_matrix")
		if err != nil {
			return epi.Params{}, err
		}
		p.ContactsMatrix = m
	}

	// A scalar population in a single-compartment scenario is already the
	// right shape; for stratified models the vector must be explicit.
	return p, nil
}

func denseFromRows(rows [][]float64, n int, what string) (*mat.Dense, error) {
	if len(rows) != n {
		return nil, fmt.Errorf("config: %s has %d rows, want %d", what, len(rows), n)
	}
	out := mat.NewDense(n, n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("config: %s row %d has %d columns, want %d", what, i, len(row), n)
		}
		for j, v := range row {
			out.Set(i, j, v)
		}
	}
	return out, nil
}
