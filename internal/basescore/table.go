// Package basescore loads the model-derived yearly sustainability scores
// that the pipeline adjusts.
package basescore

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"carbonlens/internal/core"

	"github.com/xuri/excelize/v2"
)

// Column headers of the aggregated score table
const (
	ColumnManufacturer = "Manufacturer"
	ColumnModelYear    = "Model Year"
	ColumnScore        = "Yearly Sustainability Score"
)

// aliases maps abbreviations used by the source data to display names
var aliases = map[string]string{
	"gm": "General Motors",
	"vw": "Volkswagen",
}

type key struct {
	manufacturer string
	year         int
}

// Table holds yearly base scores per manufacturer.
type Table struct {
	scores map[key]float64
	names  map[string]string // lowercase name to display name
}

// NewTable builds a table from records. Duplicate manufacturer/year pairs
// are averaged.
func NewTable(records []core.ScoreRecord) *Table {
	t := &Table{
		scores: make(map[key]float64),
		names:  make(map[string]string),
	}

	counts := make(map[key]int)
	for _, r := range records {
		name := canonicalName(r.Manufacturer)
		if name == "" {
			continue
		}
		k := key{manufacturer: strings.ToLower(name), year: r.ModelYear}
		t.names[k.manufacturer] = name
		t.scores[k] += r.Score
		counts[k]++
	}
	for k, n := range counts {
		t.scores[k] /= float64(n)
	}
	return t
}

// Load reads a CSV or XLSX score table
func Load(path string) (*Table, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	records, err := parseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score table %s: %w", path, err)
	}
	return NewTable(records), nil
}

// Lookup returns the base score for a manufacturer in a model year.
// Manufacturer names are matched case-insensitively.
func (t *Table) Lookup(manufacturer string, year int) (float64, error) {
	name := strings.ToLower(canonicalName(manufacturer))
	score, ok := t.scores[key{manufacturer: name, year: year}]
	if !ok {
		return 0, fmt.Errorf("%w: %s %d", ErrNotFound, manufacturer, year)
	}
	return score, nil
}

// Manufacturers returns display names in alphabetical order
func (t *Table) Manufacturers() []string {
	out := make([]string, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Years returns the model years with scores for a manufacturer, ascending
func (t *Table) Years(manufacturer string) []int {
	name := strings.ToLower(canonicalName(manufacturer))
	var years []int
	for k := range t.scores {
		if k.manufacturer == name {
			years = append(years, k.year)
		}
	}
	sort.Ints(years)
	return years
}

// Len returns the number of manufacturer/year entries
func (t *Table) Len() int {
	return len(t.scores)
}

func canonicalName(name string) string {
	name = strings.TrimSpace(name)
	if full, ok := aliases[strings.ToLower(name)]; ok {
		return full
	}
	return name
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open score table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// parseRows locates the required columns in the header row and converts
// every following row.
func parseRows(rows [][]string) ([]core.ScoreRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrMissingColumn)
	}

	header := make(map[string]int)
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	cols := make([]int, 3)
	for i, name := range []string{ColumnManufacturer, ColumnModelYear, ColumnScore} {
		idx, ok := header[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		cols[i] = idx
	}

	records := make([]core.ScoreRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}

		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		year, err := parseYear(cell(cols[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid model year %q", line, cell(cols[1]))
		}
		score, err := strconv.ParseFloat(cell(cols[2]), 64)
		if err != nil || math.IsNaN(score) {
			return nil, fmt.Errorf("row %d: invalid score %q", line, cell(cols[2]))
		}

		records = append(records, core.ScoreRecord{
			Manufacturer: cell(cols[0]),
			ModelYear:    year,
			Score:        score,
		})
	}
	return records, nil
}

// parseYear accepts "2024" and float renderings such as "2024.0"
func parseYear(s string) (int, error) {
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a year: %q", s)
	}
	return int(f), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
