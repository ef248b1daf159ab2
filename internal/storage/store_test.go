package storage

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/epifor/seirgo/internal/config"
	"github.com/epifor/seirgo/internal/epi"
	"github.com/epifor/seirgo/internal/restrict"
)

func evaluatedRun(t *testing.T) (*config.Scenario, *epi.Results) {
	t.Helper()

	scn := config.Default()
	scn.Simulation.MaxSimulationTime = 30

	p, err := scn.Params()
	require.NoError(t, err)
	m, err := epi.New(p)
	require.NoError(t, err)
	require.NoError(t, m.SetInitialState(
		scn.InitialState.PopulationExposed,
		scn.InitialState.PopulationInfected,
		scn.InitialState.Probabilities))
	require.NoError(t, m.Simulate(30, epi.SimOptions{}))

	times := make([]float64, 31)
	for d := range times {
		times[d] = float64(d)
	}
	res, err := m.Evaluate(times, true)
	require.NoError(t, err)
	return scn, res
}

func TestSaveAndLoad(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())

	scn, res := evaluatedRun(t)
	restrictions := []restrict.Restriction{
		{Title: "lockdown", Begins: 5, Ends: 25, Modifier: restrict.Scalar(0.5)},
	}

	runID, err := store.Save("baseline", scn, restrictions, res)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(runID, "baseline_"))

	meta, err := store.Load(runID)
	require.NoError(t, err)
	require.Equal(t, runID, meta.ID)
	require.Equal(t, "baseline", meta.Name)
	require.Equal(t, []string{"All"}, meta.Compartments)
	require.Equal(t, 30.0, meta.MaxTime)
	require.Len(t, meta.Restrictions, 1)
	require.Equal(t, "lockdown", meta.Restrictions[0].Title)

	back, err := store.LoadScenario(runID)
	require.NoError(t, err)
	require.Equal(t, scn, back)
}

func TestList(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())

	runs, err := store.List()
	require.NoError(t, err)
	require.Empty(t, runs)

	scn, res := evaluatedRun(t)
	_, err = store.Save("first", scn, nil, res)
	require.NoError(t, err)

	runs, err = store.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "first", runs[0].Name)
}

func TestListMissingDir(t *testing.T) {
	store := New("/nonexistent/seir-runs")
	runs, err := store.List()
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestLoadTableRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())

	scn, res := evaluatedRun(t)
	runID, err := store.Save("baseline", scn, nil, res)
	require.NoError(t, err)

	tbl, err := store.LoadTable(runID)
	require.NoError(t, err)
	require.Len(t, tbl.Times, 31)
	require.Contains(t, tbl.Header, epi.QuantityDeaths)

	// Masked death figures survive the round trip as NaN.
	deaths := tbl.Columns[epi.QuantityDeaths]
	require.True(t, math.IsNaN(deaths[0]))
	require.Equal(t, 0.0, deaths[25])

	want, err := res.Aggregate(epi.QuantityInfectedActive)
	require.NoError(t, err)
	got := tbl.Columns[epi.QuantityInfectedActive]
	for k := range want {
		require.InDelta(t, want[k], got[k], 1e-9*math.Abs(want[k])+1e-12)
	}
}

func TestReadTableErrors(t *testing.T) {
	_, err := ReadTable(strings.NewReader("time,deaths\n"))
	require.Error(t, err)

	_, err = ReadTable(strings.NewReader("bogus,deaths\n1,2\n"))
	require.ErrorContains(t, err, "time column")

	_, err = ReadTable(strings.NewReader("time,deaths\nnot-a-number,2\n"))
	require.ErrorContains(t, err, "bad time value")

	_, err = ReadTable(strings.NewReader("time,deaths\n1,zzz\n"))
	require.ErrorContains(t, err, "bad value")
}
