package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/epifor/seirgo/internal/storage"
)

func TestPlotSeriesSkipsMaskedPrefix(t *testing.T) {
	nan := math.NaN()
	times := []float64{0, 1, 2, 3, 4}
	values := []float64{nan, nan, 1, 2, 3}

	out := PlotSeries("deaths", times, values)
	if !strings.Contains(out, "deaths (from day 2)") {
		t.Fatalf("caption should note the masked offset, got:\n%s", out)
	}
}

func TestPlotSeriesAllMasked(t *testing.T) {
	nan := math.NaN()
	out := PlotSeries("deaths", []float64{0, 1}, []float64{nan, nan})
	if !strings.Contains(out, "no causally supported values") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestPlotTableSkipsUnknownColumns(t *testing.T) {
	tbl := &storage.Table{
		Times:   []float64{0, 1, 2},
		Header:  []string{"deaths"},
		Columns: map[string][]float64{"deaths": {0, 1, 2}},
	}

	out := PlotTable(tbl, []string{"deaths", "nonsense"})
	if !strings.Contains(out, "deaths") {
		t.Fatalf("known column missing from output:\n%s", out)
	}
	if strings.Contains(out, "nonsense") {
		t.Fatalf("unknown column should be skipped:\n%s", out)
	}
}

func TestRestrictionTimeline(t *testing.T) {
	infos := []storage.RestrictionInfo{
		{Title: "lockdown", Begins: 50, Ends: 150},
	}

	out := RestrictionTimeline(infos, 0, 200)
	if !strings.Contains(out, "lockdown (day 50-150)") {
		t.Fatalf("missing label:\n%s", out)
	}
	line := strings.SplitN(out, "  ", 2)[0]
	if !strings.Contains(line, "#") || !strings.HasPrefix(line, ".") {
		t.Fatalf("ruler should mark the window inside the span: %q", line)
	}

	if RestrictionTimeline(nil, 0, 100) != "" {
		t.Fatal("no restrictions should render nothing")
	}
}
