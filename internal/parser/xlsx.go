// Package parser is the spreadsheet ingestion collaborator: it turns raw
// XLSX bytes into a dataset.Table using caller-supplied sheet and header-row
// configuration. Real-world uploads bury the header under title rows and may
// repeat or blank out header cells; both are normalized here.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jmarroquin/cuadre/internal/dataset"
)

// SheetSpec names the sheet and the 0-based row holding the real headers.
type SheetSpec struct {
	Sheet     string
	HeaderRow int
}

// ParseXLSX reads one sheet of an XLSX payload into a table. Rows above the
// header row are discarded; header cells are de-duplicated and blanks get
// synthesized names so every column is addressable.
// Parameters:
//   - data: raw XLSX bytes.
//   - spec: sheet name and header-row offset.
// Returns:
//   - *dataset.Table: parsed table.
//   - error: non-nil if the payload, sheet, or header row is unusable.
func ParseXLSX(data []byte, spec SheetSpec) (*dataset.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(spec.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", spec.Sheet, err)
	}
	if spec.HeaderRow < 0 || spec.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("header row %d out of range for sheet %q (%d rows)",
			spec.HeaderRow, spec.Sheet, len(rows))
	}

	columns := uniqueColumns(rows[spec.HeaderRow])
	return dataset.New(columns, rows[spec.HeaderRow+1:]), nil
}

// uniqueColumns converts raw header cells into unique non-empty column
// names: blanks and placeholder values become _col_<i>, repeats get a
// numeric suffix.
func uniqueColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, v := range header {
		name := strings.TrimSpace(v)
		lower := strings.ToLower(name)
		if name == "" || name == "(en blanco)" || lower == "none" {
			name = fmt.Sprintf("_col_%d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
