package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"saferoad/pkg/records"
)

// readDatasetCSV parses one yearly dataset file into records. The portal
// ships Latin-1, ';'-separated CSV; values become strings keyed by the
// lower-cased header names and are normalized later by the transform stage.
func readDatasetCSV(path string) ([]records.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("extract: read header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var recs []records.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("extract: read %s: %w", path, err)
		}
		rec := make(records.Record, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
