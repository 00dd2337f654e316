package recon

import (
	"math"
	"sort"
	"strings"

	"github.com/jmarroquin/cuadre/internal/dataset"
)

// FallbackClientName is substituted for the descriptive client-name attribute
// of groups whose source rows carried no client name. It is applied after
// grouping only, so the placeholder never becomes part of a join key.
const FallbackClientName = "SIN CLIENTE"

// invalidKeySentinel marks structurally invalid key cells besides empty.
const invalidKeySentinel = "-"

// StatusFilter is an optional row filter on a status column. An empty Column
// disables filtering. When Equals is set only matching rows are kept;
// otherwise rows whose status appears in Exclude are dropped.
type StatusFilter struct {
	Column  string
	Equals  string
	Exclude []string
}

// AttributeColumns names the source columns feeding each descriptive
// attribute. Empty entries leave the attribute blank.
type AttributeColumns struct {
	Company     string
	ClientName  string
	UnitName    string
	ServiceName string
	GroupCode   string
	GroupName   string
	Zone        string
	Macrozone   string
	ZonalLead   string
	OpsLead     string
	Manager     string
	Sector      string
	Department  string
}

// SourceSpec configures normalization of one raw source table.
type SourceSpec struct {
	Role Role

	// ClientColumn is the primary client identifier; ClientFallbackColumn
	// substitutes it row-wise when the primary is empty.
	ClientColumn         string
	ClientFallbackColumn string
	UnitColumn           string
	ServiceColumn        string

	// HeadcountColumn is summed per group when set; when empty the group
	// headcount is the row count (the assigned-roster convention).
	HeadcountColumn string

	Filter StatusFilter

	// CleanColumns are trimmed, upper-cased and whitespace-collapsed
	// before any filtering or key construction.
	CleanColumns []string

	Attributes AttributeColumns

	// FillValue replaces null numeric aggregates; RoundDecimals bounds
	// the headcount precision.
	FillValue     float64
	RoundDecimals int
}

// NormalizeStats counts what happened to the input rows, so data-quality
// drops stay observable without being errors.
type NormalizeStats struct {
	InputRows    int
	FilteredRows int
	DroppedRows  int
	Groups       int
}

// NormalizeResult is the output of one Normalize run.
type NormalizeResult struct {
	Groups []NormalizedGroup
	Stats  NormalizeStats
}

// Normalize cleans one raw source table, resolves the composite key parts,
// drops structurally invalid rows, and aggregates by (client, unit, service)
// with first-wins descriptive attributes. Groups are returned sorted by
// composite key.
// Parameters:
//   - t: parsed raw table.
//   - spec: source configuration.
// Returns:
//   - *NormalizeResult: normalized groups plus row accounting.
//   - error: *ConfigError when a configured required column is absent.
func Normalize(t *dataset.Table, spec SourceSpec) (*NormalizeResult, error) {
	if err := validateSpec(t, spec); err != nil {
		return nil, err
	}

	stats := NormalizeStats{InputRows: t.Len()}

	// Cleaning happens before filtering and key construction; comparisons
	// downstream are case- and whitespace-sensitive.
	t = t.WithCleanedColumns(spec.CleanColumns...)

	type groupAgg struct {
		group NormalizedGroup
		count int
	}
	groups := make(map[string]*groupAgg)
	order := make([]string, 0)

	for row := 0; row < t.Len(); row++ {
		if !passesFilter(t, row, spec.Filter) {
			stats.FilteredRows++
			continue
		}

		client := strings.TrimSpace(t.Cell(row, spec.ClientColumn))
		if client == "" && spec.ClientFallbackColumn != "" {
			client = strings.TrimSpace(t.Cell(row, spec.ClientFallbackColumn))
		}
		unit := strings.TrimSpace(t.Cell(row, spec.UnitColumn))
		service := strings.TrimSpace(t.Cell(row, spec.ServiceColumn))

		if isInvalidKey(client) || isInvalidKey(unit) || isInvalidKey(service) {
			stats.DroppedRows++
			continue
		}

		key := CompositeKey(client, unit, service)
		agg, ok := groups[key]
		if !ok {
			agg = &groupAgg{group: NormalizedGroup{
				ClientKey:  client,
				UnitKey:    unit,
				ServiceKey: service,
				Key:        key,
				Attrs:      firstAttributes(t, row, spec.Attributes),
			}}
			groups[key] = agg
			order = append(order, key)
		}
		agg.count++
		if spec.HeadcountColumn != "" {
			if v, ok := t.Float(row, spec.HeadcountColumn); ok {
				agg.group.Headcount += v
			}
		}
	}

	sort.Strings(order)
	out := make([]NormalizedGroup, 0, len(order))
	for _, key := range order {
		agg := groups[key]
		g := agg.group
		if spec.HeadcountColumn == "" {
			g.Headcount = float64(agg.count)
		}
		if g.Headcount == 0 && spec.FillValue != 0 {
			g.Headcount = spec.FillValue
		}
		g.Headcount = roundTo(g.Headcount, spec.RoundDecimals)
		if g.Attrs.ClientName == "" {
			g.Attrs.ClientName = FallbackClientName
		}
		out = append(out, g)
	}
	stats.Groups = len(out)

	return &NormalizeResult{Groups: out, Stats: stats}, nil
}

// CompositeKey builds the join key from its three parts.
func CompositeKey(client, unit, service string) string {
	return client + "_" + unit + "_" + service
}

func validateSpec(t *dataset.Table, spec SourceSpec) error {
	required := []string{spec.ClientColumn, spec.UnitColumn, spec.ServiceColumn}
	if spec.HeadcountColumn != "" {
		required = append(required, spec.HeadcountColumn)
	}
	if spec.Filter.Column != "" {
		required = append(required, spec.Filter.Column)
	}
	for _, col := range required {
		if col == "" {
			continue
		}
		if !t.HasColumn(col) {
			return &ConfigError{Stage: "normalize", Role: spec.Role, Column: col}
		}
	}
	return nil
}

// passesFilter compares cleaned forms on both sides, so filter values stay
// valid whether the status column was configured for cleaning or not.
func passesFilter(t *dataset.Table, row int, f StatusFilter) bool {
	if f.Column == "" {
		return true
	}
	status := dataset.CleanString(t.Cell(row, f.Column))
	if f.Equals != "" {
		return status == dataset.CleanString(f.Equals)
	}
	for _, v := range f.Exclude {
		if status == dataset.CleanString(v) {
			return false
		}
	}
	return true
}

func isInvalidKey(s string) bool {
	return s == "" || s == invalidKeySentinel
}

// firstAttributes captures the descriptive columns of the first row seen for
// a group. First wins is the aggregation contract, not an accident.
func firstAttributes(t *dataset.Table, row int, cols AttributeColumns) Attributes {
	return Attributes{
		Company:     t.Cell(row, cols.Company),
		ClientName:  t.Cell(row, cols.ClientName),
		UnitName:    t.Cell(row, cols.UnitName),
		ServiceName: t.Cell(row, cols.ServiceName),
		GroupCode:   t.Cell(row, cols.GroupCode),
		GroupName:   t.Cell(row, cols.GroupName),
		Zone:        t.Cell(row, cols.Zone),
		Macrozone:   t.Cell(row, cols.Macrozone),
		ZonalLead:   t.Cell(row, cols.ZonalLead),
		OpsLead:     t.Cell(row, cols.OpsLead),
		Manager:     t.Cell(row, cols.Manager),
		Sector:      t.Cell(row, cols.Sector),
		Department:  t.Cell(row, cols.Department),
	}
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
