package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/epifor/seirgo/internal/config"
	"github.com/epifor/seirgo/internal/epi"
	"github.com/epifor/seirgo/internal/restrict"
	"github.com/epifor/seirgo/internal/solver"
	"github.com/epifor/seirgo/internal/storage"
	"github.com/epifor/seirgo/internal/viz"
)

var (
	dataDir    string
	outputFile string
	maxTime    float64
	startTime  float64
	maxStep    float64
	method     string
	interval   float64
	noMask     bool
	showPlot   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seir",
		Short: "compartmental SEIR epidemic simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".seir", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "simulate a scenario and store the evaluated results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVarP(&outputFile, "out", "o", "", "write results CSV to this path")
	runCmd.Flags().Float64Var(&maxTime, "time", 0, "days to simulate (overrides scenario)")
	runCmd.Flags().Float64Var(&startTime, "start", 0, "simulation start time (overrides scenario)")
	runCmd.Flags().Float64Var(&maxStep, "max-step", 0, "maximum integration step (overrides scenario)")
	runCmd.Flags().StringVar(&method, "method", "", "solver method: dopri5 or rk4 (overrides scenario)")
	runCmd.Flags().Float64Var(&interval, "interval", 0, "evaluation grid spacing in days (overrides scenario)")
	runCmd.Flags().BoolVar(&noMask, "no-mask", false, "emit causally unsupported hospital/ICU/death values")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot aggregate curves after the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the aggregate curves of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scenario.yaml]",
		Short: "simulate a scenario and replay it interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [scenario.yaml]",
		Short: "compare a scenario's peaks with and without its restrictions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareRestrictions,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, liveCmd, compareCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadScenario(args []string) (*config.Scenario, string, error) {
	if len(args) == 0 {
		return config.Default(), "default", nil
	}
	scn, err := config.Load(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to load scenario: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	return scn, name, nil
}

func applyFlagOverrides(cmd *cobra.Command, scn *config.Scenario) {
	if cmd.Flags().Changed("time") {
		scn.Simulation.MaxSimulationTime = maxTime
	}
	if cmd.Flags().Changed("start") {
		scn.Simulation.Start = startTime
	}
	if cmd.Flags().Changed("max-step") {
		scn.Simulation.MaxStep = maxStep
	}
	if cmd.Flags().Changed("method") {
		scn.Simulation.Method = method
	}
	if cmd.Flags().Changed("interval") {
		scn.Simulation.OutputInterval = interval
	}
}

// simulate builds the model from a scenario, runs it, and evaluates the
// output grid.
func simulate(scn *config.Scenario, mask bool) (*epi.Results, []restrict.Restriction, error) {
	params, err := scn.Params()
	if err != nil {
		return nil, nil, err
	}
	restrictions, err := scn.RestrictionList()
	if err != nil {
		return nil, nil, err
	}

	model, err := epi.New(params)
	if err != nil {
		return nil, nil, err
	}
	if err := model.SetInitialState(
		scn.InitialState.PopulationExposed,
		scn.InitialState.PopulationInfected,
		scn.InitialState.Probabilities,
	); err != nil {
		return nil, nil, err
	}

	sim := scn.Simulation
	if err := model.Simulate(sim.Start+sim.MaxSimulationTime, epi.SimOptions{
		Start:   sim.Start,
		MaxStep: sim.MaxStep,
		Method:  solver.Method(sim.Method),
	}); err != nil {
		return nil, nil, err
	}

	step := sim.OutputInterval
	if step <= 0 {
		step = config.DefaultOutputInterval
	}
	n := int(sim.MaxSimulationTime/step + 1e-9)
	grid := make([]float64, 0, n+1)
	for k := 0; k <= n; k++ {
		grid = append(grid, sim.Start+float64(k)*step)
	}

	results, err := model.Evaluate(grid, mask)
	if err != nil {
		return nil, nil, err
	}
	return results, restrictions, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scn, name, err := loadScenario(args)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, scn)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("simulating %s for %g days...\n", name, scn.Simulation.MaxSimulationTime)
	start := time.Now()

	results, restrictions, err := simulate(scn, !noMask)
	if err != nil {
		return err
	}

	runID, err := st.Save(name, scn, restrictions, results)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", runID)
	printSummary(results)

	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := results.WriteCSV(f); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", outputFile)
	}

	if showPlot {
		for _, q := range []string{epi.QuantityInfectedActive, epi.QuantityHospitalized, epi.QuantityDeaths} {
			agg, err := results.Aggregate(q)
			if err != nil {
				return err
			}
			fmt.Println(viz.PlotSeries(q, results.Times, agg))
			fmt.Println()
		}
	}

	return nil
}

func printSummary(results *epi.Results) {
	peakInfected, peakDay := peak(results, epi.QuantityInfectedActive)
	peakHosp, _ := peak(results, epi.QuantityHospitalized)
	totalDeaths := last(results, epi.QuantityDeaths)

	fmt.Printf("peak active infections: %.0f (day %.0f)\n", peakInfected, peakDay)
	fmt.Printf("peak hospital occupancy: %.0f\n", peakHosp)
	fmt.Printf("total deaths: %.0f\n", totalDeaths)
}

func peak(results *epi.Results, quantity string) (value, day float64) {
	agg, err := results.Aggregate(quantity)
	if err != nil {
		return 0, 0
	}
	for k, v := range agg {
		if v > value {
			value = v
			day = results.Times[k]
		}
	}
	return value, day
}

func last(results *epi.Results, quantity string) float64 {
	agg, err := results.Aggregate(quantity)
	if err != nil || len(agg) == 0 {
		return 0
	}
	return agg[len(agg)-1]
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDAYS\tMETHOD\tRESTRICTIONS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.MaxTime,
			run.Method,
			len(run.Restrictions),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tbl, err := st.LoadTable(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("compartments: %s\n\n", strings.Join(meta.Compartments, ", "))

	fmt.Print(viz.PlotTable(tbl, []string{
		epi.QuantitySusceptible,
		epi.QuantityInfectedActive,
		epi.QuantityInfectedTotal,
		epi.QuantityHospitalized,
		epi.QuantityICU,
		epi.QuantityDeaths,
	}))

	if len(meta.Restrictions) > 0 && len(tbl.Times) > 0 {
		fmt.Println("restrictions:")
		fmt.Print(viz.RestrictionTimeline(meta.Restrictions, tbl.Times[0], tbl.Times[len(tbl.Times)-1]))
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func runLive(cmd *cobra.Command, args []string) error {
	scn, name, err := loadScenario(args)
	if err != nil {
		return err
	}

	results, restrictions, err := simulate(scn, true)
	if err != nil {
		return err
	}

	live, err := viz.NewLive(name, results, restrictions)
	if err != nil {
		return err
	}
	return live.Run()
}

func compareRestrictions(cmd *cobra.Command, args []string) error {
	scn, name, err := loadScenario(args)
	if err != nil {
		return err
	}
	if len(scn.Restrictions) == 0 {
		return fmt.Errorf("scenario %s has no restrictions to compare", name)
	}

	withResults, _, err := simulate(scn, true)
	if err != nil {
		return err
	}

	bare := *scn
	bare.Restrictions = nil
	withoutResults, _, err := simulate(&bare, true)
	if err != nil {
		return err
	}

	withPeak, withDay := peak(withResults, epi.QuantityInfectedActive)
	withoutPeak, withoutDay := peak(withoutResults, epi.QuantityInfectedActive)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tPEAK INFECTIONS\tPEAK DAY\tTOTAL DEATHS")
	fmt.Fprintf(w, "with restrictions\t%.0f\t%.0f\t%.0f\n", withPeak, withDay, last(withResults, epi.QuantityDeaths))
	fmt.Fprintf(w, "without restrictions\t%.0f\t%.0f\t%.0f\n", withoutPeak, withoutDay, last(withoutResults, epi.QuantityDeaths))
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\npeak reduction: %.1f%%\n", (1-withPeak/withoutPeak)*100)
	return nil
}
