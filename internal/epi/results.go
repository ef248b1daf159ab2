package epi

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Quantity names, used as result-column prefixes.
const (
	QuantitySusceptible    = "susceptible"
	QuantityExposed        = "exposed"
	QuantityInfectedActive = "infected (active)"
	QuantityInfectedTotal  = "infected (total)"
	QuantityRemoved        = "removed"
	QuantityHospitalized   = "hospitalized (active)"
	QuantityICU            = "in ICU"
	QuantityDeaths         = "deaths"
)

// Quantities lists every result quantity in column order. Deaths count
// from the simulation start, not from the beginning of the epidemic.
var Quantities = []string{
	QuantitySusceptible,
	QuantityExposed,
	QuantityInfectedActive,
	QuantityInfectedTotal,
	QuantityRemoved,
	QuantityHospitalized,
	QuantityICU,
	QuantityDeaths,
}

// Results is the evaluated output table: one row per query time, one
// column per (quantity, compartment) pair plus an aggregate column per
// quantity. Masked cells hold NaN.
type Results struct {
	Times        []float64
	Compartments []string

	data map[string][][]float64 // quantity -> len(Times) x len(Compartments)
}

func newResults(times []float64, compartments []string, data map[string][][]float64) *Results {
	return &Results{
		Times:        times,
		Compartments: compartments,
		data:         data,
	}
}

// ColumnName formats the header name of a (quantity, compartment) column.
func ColumnName(quantity, compartment string) string {
	return fmt.Sprintf("%s[%s]", quantity, compartment)
}

// Column returns the series for one quantity in one compartment.
func (r *Results) Column(quantity, compartment string) ([]float64, error) {
	rows, ok := r.data[quantity]
	if !ok {
		return nil, fmt.Errorf("epi: unknown quantity %q", quantity)
	}
	a := -1
	for i, c := range r.Compartments {
		if c == compartment {
			a = i
			break
		}
	}
	if a < 0 {
		return nil, fmt.Errorf("epi: unknown compartment %q", compartment)
	}
	out := make([]float64, len(rows))
	for k := range rows {
		out[k] = rows[k][a]
	}
	return out, nil
}

// Aggregate returns the series for one quantity summed over all
// compartments. A row with any masked compartment aggregates to NaN.
func (r *Results) Aggregate(quantity string) ([]float64, error) {
	rows, ok := r.data[quantity]
	if !ok {
		return nil, fmt.Errorf("epi: unknown quantity %q", quantity)
	}
	out := make([]float64, len(rows))
	for k := range rows {
		sum := 0.0
		for _, v := range rows[k] {
			sum += v
		}
		out[k] = sum
	}
	return out, nil
}

// Header returns the CSV header: time, then for each quantity its
// per-compartment columns followed by the aggregate column.
func (r *Results) Header() []string {
	header := []string{"time"}
	for _, q := range Quantities {
		for _, c := range r.Compartments {
			header = append(header, ColumnName(q, c))
		}
		header = append(header, q)
	}
	return header
}

// WriteCSV serializes the table row-by-row. NaN cells are written as empty
// fields so masked values stay visibly missing.
func (r *Results) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return err
	}

	row := make([]string, 0, len(r.Header()))
	for k := range r.Times {
		row = row[:0]
		row = append(row, formatCell(r.Times[k]))
		for _, q := range Quantities {
			sum := 0.0
			for a := range r.Compartments {
				v := r.data[q][k][a]
				sum += v
				row = append(row, formatCell(v))
			}
			row = append(row, formatCell(sum))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
