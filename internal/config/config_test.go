package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultScenario(t *testing.T) {
	scn := Default()

	require.Equal(t, []string{"All"}, scn.Compartments())
	require.Equal(t, 2.5, scn.Model.InitialR0)
	require.Equal(t, DefaultMaxSimulationTime, scn.Simulation.MaxSimulationTime)
	require.True(t, scn.InitialState.Probabilities)

	p, err := scn.Params()
	require.NoError(t, err)
	require.Nil(t, p.Restrictions)
	require.Equal(t, []float64{1_000_000}, p.Population)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")

	scn := Default()
	scn.Model.Compartments = []string{"young", "old"}
	scn.Model.Population = ScalarOrVector{800_000, 200_000}
	scn.Model.ContactsMatrix = [][]float64{{10, 2}, {2, 8}}
	factor := 0.5
	scn.Restrictions = []RestrictionConfig{
		{Title: "lockdown", DayBegins: 20, DayEnds: 80, Factor: &factor},
	}
	require.NoError(t, Save(path, scn))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, scn, got)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"model:\n  initial_r0: 1.4\nsimulation:\n  max_simulation_time: 365\n"), 0644))

	scn, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1.4, scn.Model.InitialR0)
	require.Equal(t, 365.0, scn.Simulation.MaxSimulationTime)
	// Unset fields keep their defaults.
	require.Equal(t, ScalarOrVector{3}, scn.Model.IncubationPeriod)
	require.Equal(t, DefaultMaxStep, scn.Simulation.MaxStep)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestScalarOrVectorYAML(t *testing.T) {
	var doc struct {
		A ScalarOrVector `yaml:"a"`
		B ScalarOrVector `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 3\nb: [1, 2, 3]\n"), &doc))
	require.Equal(t, ScalarOrVector{3}, doc.A)
	require.Equal(t, ScalarOrVector{1, 2, 3}, doc.B)

	// A single value marshals back as a bare scalar.
	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.Contains(t, string(out), "a: 3\n")
}

func TestStringListYAML(t *testing.T) {
	var doc struct {
		G StringList `yaml:"g"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("g: all\n"), &doc))
	require.Equal(t, StringList{"all"}, doc.G)

	require.NoError(t, yaml.Unmarshal([]byte("g: [young, old]\n"), &doc))
	require.Equal(t, StringList{"young", "old"}, doc.G)
}

func TestRestrictionExactlyOneModifier(t *testing.T) {
	scn := Default()
	scn.Restrictions = []RestrictionConfig{
		{Title: "empty", DayBegins: 0, DayEnds: 10},
	}
	_, err := scn.RestrictionList()
	require.ErrorContains(t, err, "exactly one of")

	factor := 0.5
	scn.Restrictions = []RestrictionConfig{
		{Title: "both", DayBegins: 0, DayEnds: 10, Factor: &factor, Matrix: [][]float64{{1}}},
	}
	_, err = scn.RestrictionList()
	require.ErrorContains(t, err, "exactly one of")
}

func TestRestrictionWindowOrder(t *testing.T) {
	factor := 0.5
	scn := Default()
	scn.Restrictions = []RestrictionConfig{
		{Title: "backwards", DayBegins: 10, DayEnds: 5, Factor: &factor},
	}
	_, err := scn.RestrictionList()
	require.ErrorContains(t, err, "ends before it begins")
}

func TestRestrictionPairs(t *testing.T) {
	scn := Default()
	scn.Model.Compartments = []string{"young", "old"}
	scn.Model.Population = ScalarOrVector{800_000, 200_000}
	scn.Restrictions = []RestrictionConfig{
		{
			Title:     "shield the old",
			DayBegins: 0,
			DayEnds:   100,
			Pairs: []PairConfig{
				{From: StringList{"all"}, To: StringList{"old"}, Factor: 0.2},
			},
		},
	}

	rs, err := scn.RestrictionList()
	require.NoError(t, err)
	require.Len(t, rs, 1)
	require.False(t, rs[0].Modifier.IsIdentity())
}

func TestContactsMatrixShapeErrors(t *testing.T) {
	scn := Default()
	scn.Model.Compartments = []string{"young", "old"}
	scn.Model.Population = ScalarOrVector{800_000, 200_000}
	scn.Model.ContactsMatrix = [][]float64{{1, 2}}

	_, err := scn.Params()
	require.ErrorContains(t, err, "rows")

	scn.Model.ContactsMatrix = [][]float64{{1, 2}, {3}}
	_, err = scn.Params()
	require.ErrorContains(t, err, "columns")
}
