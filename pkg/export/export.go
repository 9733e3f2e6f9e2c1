// Package export renders processing and concentration results as CSV, and
// batches saved history entries into a ZIP archive.
package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"

	"github.com/speclab/gospeccore/pkg/history"
	"github.com/speclab/gospeccore/pkg/models"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeColumns(w io.Writer, order []string, columns map[string][]float64) error {
	if len(order) == 0 {
		return fmt.Errorf("export: no columns to write")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(order); err != nil {
		return err
	}

	rows := len(columns[order[0]])
	record := make([]string, len(order))
	for i := 0; i < rows; i++ {
		for j, name := range order {
			col := columns[name]
			if i < len(col) {
				record[j] = formatFloat(col[i])
			} else {
				record[j] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes a processing result as CSV in its column order.
func WriteCSV(w io.Writer, res models.ProcessResult) error {
	return writeColumns(w, res.Order, res.Columns)
}

// WriteConcentrationCSV writes per-component concentrations and
// contributions as CSV.
func WriteConcentrationCSV(w io.Writer, res models.ConcentrationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"component", "concentration", "contribution"}); err != nil {
		return err
	}
	for _, c := range res.Components {
		err := cw.Write([]string{c.Name, formatFloat(c.Concentration), formatFloat(c.Contribution)})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// preferredOrder puts the well-known spectrum columns first, anything else
// after them alphabetically.
var preferredOrder = []string{
	models.ColumnLambda,
	models.ColumnCorrected,
	models.ColumnTransmittance,
	models.ColumnAbsorbance,
}

// recordColumns converts a loaded history record's data block back into
// float columns; non-numeric entries are dropped.
func recordColumns(rec history.Record) ([]string, map[string][]float64) {
	columns := make(map[string][]float64)
	for name, raw := range rec.Data {
		vals, ok := raw.([]interface{})
		if !ok {
			continue
		}
		col := make([]float64, 0, len(vals))
		for _, v := range vals {
			f, ok := v.(float64)
			if !ok {
				break
			}
			col = append(col, f)
		}
		if len(col) == len(vals) {
			columns[name] = col
		}
	}

	var order []string
	for _, name := range preferredOrder {
		if _, ok := columns[name]; ok {
			order = append(order, name)
		}
	}
	var rest []string
	for name := range columns {
		known := false
		for _, p := range preferredOrder {
			if name == p {
				known = true
				break
			}
		}
		if !known {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)
	return order, columns
}

// WriteBatchZip writes one CSV per history entry into a ZIP archive. Entries
// that cannot be loaded or hold no numeric columns are skipped, so one bad
// entry cannot break a batch export.
func WriteBatchZip(w io.Writer, store *history.Store) error {
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("export: history is empty")
	}

	zw := zip.NewWriter(w)
	written := 0
	for _, entry := range entries {
		rec, err := store.Load(entry.Name)
		if err != nil {
			log.Printf("export: skipping %q: %v", entry.Name, err)
			continue
		}
		order, columns := recordColumns(rec)
		if len(order) == 0 {
			log.Printf("export: skipping %q: no numeric columns", entry.Name)
			continue
		}

		f, err := zw.Create(entry.Name + ".csv")
		if err != nil {
			zw.Close()
			return err
		}
		if err := writeColumns(f, order, columns); err != nil {
			zw.Close()
			return err
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if written == 0 {
		return fmt.Errorf("export: no exportable history entries")
	}
	return nil
}
