// Package storage persists evaluated simulation runs: one directory per
// run holding metadata, the scenario file, and the results table.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/epifor/seirgo/internal/config"
	"github.com/epifor/seirgo/internal/epi"
	"github.com/epifor/seirgo/internal/restrict"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RestrictionInfo is the stored description of one restriction window.
type RestrictionInfo struct {
	Title  string  `json:"title"`
	Begins float64 `json:"begins"`
	Ends   float64 `json:"ends"`
}

type RunMetadata struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Timestamp    time.Time         `json:"timestamp"`
	Compartments []string          `json:"compartments"`
	MaxTime      float64           `json:"max_time"`
	MaxStep      float64           `json:"max_step"`
	Method       string            `json:"method"`
	Restrictions []RestrictionInfo `json:"restrictions"`
}

// Save writes one evaluated run under a fresh run id and returns the id.
func (s *Store) Save(name string, scn *config.Scenario, restrictions []restrict.Restriction, results *epi.Results) (string, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	infos := make([]RestrictionInfo, len(restrictions))
	for i, r := range restrictions {
		infos[i] = RestrictionInfo{Title: r.Title, Begins: r.Begins, Ends: r.Ends}
	}

	meta := RunMetadata{
		ID:           runID,
		Name:         name,
		Timestamp:    time.Now(),
		Compartments: results.Compartments,
		MaxTime:      scn.Simulation.MaxSimulationTime,
		MaxStep:      scn.Simulation.MaxStep,
		Method:       scn.Simulation.Method,
		Restrictions: infos,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(runDir, "scenario.yaml"), scn); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "results.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	return runID, results.WriteCSV(csvFile)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadScenario reads back the scenario file stored with a run.
func (s *Store) LoadScenario(runID string) (*config.Scenario, error) {
	return config.Load(filepath.Join(s.baseDir, runID, "scenario.yaml"))
}

// Table is a results CSV read back into named columns. Empty cells parse
// to NaN.
type Table struct {
	Times   []float64
	Header  []string
	Columns map[string][]float64
}

// LoadTable reads the stored results table of a run.
func (s *Store) LoadTable(runID string) (*Table, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "results.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTable(f)
}

// ReadTable parses a results CSV from any reader.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("storage: results table has no data rows")
	}

	header := records[0]
	if len(header) == 0 || header[0] != "time" {
		return nil, fmt.Errorf("storage: results table missing time column")
	}

	tbl := &Table{
		Header:  header[1:],
		Columns: make(map[string][]float64, len(header)-1),
	}
	for _, name := range tbl.Header {
		tbl.Columns[name] = make([]float64, 0, len(records)-1)
	}

	for _, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("storage: ragged results row")
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: bad time value %q", record[0])
		}
		tbl.Times = append(tbl.Times, t)
		for i, name := range tbl.Header {
			cell := record[i+1]
			if cell == "" {
				tbl.Columns[name] = append(tbl.Columns[name], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: bad value %q in column %s", cell, name)
			}
			tbl.Columns[name] = append(tbl.Columns[name], v)
		}
	}
	return tbl, nil
}
