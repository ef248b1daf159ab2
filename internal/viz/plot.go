// Package viz renders evaluated epidemic runs in the terminal: static
// ASCII curve plots and a live replay view.
package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/epifor/seirgo/internal/storage"
)

const (
	plotWidth  = 80
	plotHeight = 10
)

// PlotSeries renders one named time series as an ASCII graph. Leading NaN
// values (the causally masked region) are skipped; the caption notes the
// offset so the x axis stays honest.
func PlotSeries(name string, times, values []float64) string {
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if start == len(values) {
		return fmt.Sprintf("%s: no causally supported values\n", name)
	}

	caption := name
	if start > 0 {
		caption = fmt.Sprintf("%s (from day %g)", name, times[start])
	}

	return asciigraph.Plot(values[start:],
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

// PlotTable renders the aggregate column of every quantity in the table.
func PlotTable(tbl *storage.Table, quantities []string) string {
	var b strings.Builder
	for _, q := range quantities {
		col, ok := tbl.Columns[q]
		if !ok {
			continue
		}
		b.WriteString(PlotSeries(q, tbl.Times, col))
		b.WriteString("\n\n")
	}
	return b.String()
}

// RestrictionTimeline draws the restriction windows against the evaluated
// time span as one ruler line per restriction.
func RestrictionTimeline(infos []storage.RestrictionInfo, tMin, tMax float64) string {
	if len(infos) == 0 || tMax <= tMin {
		return ""
	}

	var b strings.Builder
	span := tMax - tMin
	for _, info := range infos {
		lo := int(math.Round((info.Begins - tMin) / span * float64(plotWidth)))
		hi := int(math.Round((info.Ends - tMin) / span * float64(plotWidth)))
		if lo < 0 {
			lo = 0
		}
		if hi > plotWidth {
			hi = plotWidth
		}
		line := make([]rune, plotWidth)
		for i := range line {
			switch {
			case i >= lo && i < hi:
				line[i] = '#'
			default:
				line[i] = '.'
			}
		}
		fmt.Fprintf(&b, "%s  %s (day %g-%g)\n", string(line), info.Title, info.Begins, info.Ends)
	}
	return b.String()
}
