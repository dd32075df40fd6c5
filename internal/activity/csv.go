package activity

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadCSVFile reads one Garmin Connect CSV export into raw rows keyed by the
// header line. Short records are tolerated (trailing empty columns are a
// common export artifact); rows longer than the header are an error.
func LoadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("activity: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("activity: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("activity: %s: file has no header row", path)
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("activity: %s: row %d has %d fields, header has %d",
				path, i+2, len(rec), len(header))
		}
		row := make(Row, len(header))
		for j, v := range rec {
			row[header[j]] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadCSVDir reads every *.csv file under dir (sorted by name) and returns
// the concatenated rows. A missing directory or a directory without CSV
// files is an error: silently ingesting nothing hides operator mistakes.
func LoadCSVDir(dir string) ([]Row, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("activity: data directory not found: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("activity: read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("activity: no CSV files found in %s", dir)
	}
	sort.Strings(files)

	var rows []Row
	for _, f := range files {
		fileRows, err := LoadCSVFile(f)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}
