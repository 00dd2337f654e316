package parser

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheet); err != nil {
		t.Fatalf("failed to create sheet: %v", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, "DATA", [][]interface{}{
		{"client", "unit", "required"},
		{"C1", "U1", 3},
		{"C2", "U2", 4.5},
	})

	tbl, err := ParseXLSX(data, SheetSpec{Sheet: "DATA", HeaderRow: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(tbl.Columns(), []string{"client", "unit", "required"}) {
		t.Errorf("columns = %v", tbl.Columns())
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	if got := tbl.Cell(1, "client"); got != "C2" {
		t.Errorf("cell = %q, want C2", got)
	}
	if v, ok := tbl.Float(1, "required"); !ok || v != 4.5 {
		t.Errorf("float cell = (%v, %v), want (4.5, true)", v, ok)
	}
}

func TestParseXLSX_HeaderOffset(t *testing.T) {
	// Real uploads bury the header under title rows.
	data := buildWorkbook(t, "DATA", [][]interface{}{
		{"Reporte Mensual"},
		{},
		{"client", "unit"},
		{"C1", "U1"},
	})

	tbl, err := ParseXLSX(data, SheetSpec{Sheet: "DATA", HeaderRow: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("rows = %d, want 1", tbl.Len())
	}
	if got := tbl.Cell(0, "unit"); got != "U1" {
		t.Errorf("cell = %q, want U1", got)
	}
}

func TestParseXLSX_DuplicateAndBlankHeaders(t *testing.T) {
	data := buildWorkbook(t, "DATA", [][]interface{}{
		{"client", "client", "", "(en blanco)"},
		{"C1", "C1-bis", "x", "y"},
	})

	tbl, err := ParseXLSX(data, SheetSpec{Sheet: "DATA", HeaderRow: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cols := tbl.Columns()
	if len(cols) != 4 {
		t.Fatalf("columns = %v", cols)
	}
	seen := map[string]bool{}
	for _, c := range cols {
		if c == "" {
			t.Error("blank column name survived")
		}
		if seen[c] {
			t.Errorf("duplicate column name %q survived", c)
		}
		seen[c] = true
	}
	if cols[0] != "client" {
		t.Errorf("first column = %q, want client", cols[0])
	}
}

func TestParseXLSX_MissingSheet(t *testing.T) {
	data := buildWorkbook(t, "DATA", [][]interface{}{{"a"}})

	if _, err := ParseXLSX(data, SheetSpec{Sheet: "NOPE", HeaderRow: 0}); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestParseXLSX_HeaderRowOutOfRange(t *testing.T) {
	data := buildWorkbook(t, "DATA", [][]interface{}{{"a"}})

	if _, err := ParseXLSX(data, SheetSpec{Sheet: "DATA", HeaderRow: 5}); err == nil {
		t.Error("expected error for out-of-range header row")
	}
}

func TestParseXLSX_Garbage(t *testing.T) {
	if _, err := ParseXLSX([]byte("not an xlsx"), SheetSpec{Sheet: "DATA"}); err == nil {
		t.Error("expected error for malformed payload")
	}
}
