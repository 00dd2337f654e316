package dataset

import "testing"

func TestCleanString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims and uppercases", "  acme corp  ", "ACME CORP"},
		{"collapses internal runs", "ACME   CORP", "ACME CORP"},
		{"tabs and newlines", "acme\t\ncorp", "ACME CORP"},
		{"already clean", "ACME", "ACME"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanString(tt.input); got != tt.want {
				t.Errorf("CleanString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTable_PadsShortRows(t *testing.T) {
	tbl := New([]string{"a", "b", "c"}, [][]string{
		{"1"},
		{"1", "2", "3"},
	})

	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if got := tbl.Cell(0, "c"); got != "" {
		t.Errorf("expected padded cell to be empty, got %q", got)
	}
	if got := tbl.Cell(1, "c"); got != "3" {
		t.Errorf("expected cell value 3, got %q", got)
	}
}

func TestTable_CellMissingColumn(t *testing.T) {
	tbl := New([]string{"a"}, [][]string{{"1"}})
	if got := tbl.Cell(0, "missing"); got != "" {
		t.Errorf("expected empty string for missing column, got %q", got)
	}
}

func TestTable_Float(t *testing.T) {
	tbl := New([]string{"n"}, [][]string{
		{"3.5"},
		{"1,250"},
		{""},
		{"abc"},
		{" 7 "},
	})

	tests := []struct {
		row    int
		want   float64
		wantOK bool
	}{
		{0, 3.5, true},
		{1, 1250, true},
		{2, 0, false},
		{3, 0, false},
		{4, 7, true},
	}

	for _, tt := range tests {
		got, ok := tbl.Float(tt.row, "n")
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Float(row %d) = (%v, %v), want (%v, %v)", tt.row, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTable_WithCleanedColumns(t *testing.T) {
	tbl := New([]string{"name", "keep"}, [][]string{
		{"  acme   corp ", "  raw  "},
	})

	cleaned := tbl.WithCleanedColumns("name", "absent")

	if got := cleaned.Cell(0, "name"); got != "ACME CORP" {
		t.Errorf("expected cleaned cell, got %q", got)
	}
	if got := cleaned.Cell(0, "keep"); got != "  raw  " {
		t.Errorf("expected untouched cell, got %q", got)
	}
	// Receiver must stay unmodified.
	if got := tbl.Cell(0, "name"); got != "  acme   corp " {
		t.Errorf("expected original table untouched, got %q", got)
	}
}

func TestTable_RequireColumns(t *testing.T) {
	tbl := New([]string{"a", "b"}, nil)

	if err := tbl.RequireColumns("a", "b"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := tbl.RequireColumns("a", "z"); err == nil {
		t.Error("expected error for missing column")
	}
}
