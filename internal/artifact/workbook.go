package artifact

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jmarroquin/cuadre/internal/recon"
)

// Workbook sheet names, mirroring the reporting layout consumers expect.
const (
	SheetResult        = "Resultado_Final"
	SheetStatistics    = "Estadisticas"
	SheetInvestigation = "Investigacion"
)

var resultHeader = []interface{}{
	"composite_key", "client_key", "unit_key", "service_key",
	"actual", "estimated", "difference", "coverage_pct", "status",
	"company_pa", "client_name_pa", "unit_name_pa", "service_name_pa",
	"group_code_pa", "group_name_pa", "zonal_lead_pa", "ops_lead_pa",
	"manager_pa", "sector_pa", "department_pa",
	"company_sv", "client_name_sv", "unit_name_sv", "service_name_sv",
	"zone_sv", "macrozone_sv", "group_code_sv", "group_name_sv",
	"zonal_lead_sv", "manager_sv", "sector_sv",
}

// WriteWorkbook renders the reconciled table plus the investigation report
// into a three-sheet workbook: the full result, flat statistics key/value
// pairs, and the sectioned investigation detail.
// Parameters:
//   - records: reconciled table, sorted by composite key.
//   - rep: investigation report for the same table.
// Returns:
//   - []byte: XLSX file contents.
//   - error: non-nil if sheet construction or serialization fails.
func WriteWorkbook(records []recon.ReconciledRecord, rep *recon.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeResultSheet(f, records); err != nil {
		return nil, err
	}
	if err := writeStatisticsSheet(f, rep); err != nil {
		return nil, err
	}
	if err := writeInvestigationSheet(f, rep); err != nil {
		return nil, err
	}

	// Drop the default sheet created by excelize.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeResultSheet(f *excelize.File, records []recon.ReconciledRecord) error {
	if _, err := f.NewSheet(SheetResult); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetResult, err)
	}
	if err := f.SetSheetRow(SheetResult, "A1", &resultHeader); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", SheetResult, err)
	}
	for i, r := range records {
		row := []interface{}{
			r.Key, r.ClientKey, r.UnitKey, r.ServiceKey,
			r.Actual, r.Estimated, r.Difference, r.CoveragePct, string(r.Status),
			r.AssignedAttrs.Company, r.AssignedAttrs.ClientName, r.AssignedAttrs.UnitName,
			r.AssignedAttrs.ServiceName, r.AssignedAttrs.GroupCode, r.AssignedAttrs.GroupName,
			r.AssignedAttrs.ZonalLead, r.AssignedAttrs.OpsLead, r.AssignedAttrs.Manager,
			r.AssignedAttrs.Sector, r.AssignedAttrs.Department,
			r.EstimatedAttrs.Company, r.EstimatedAttrs.ClientName, r.EstimatedAttrs.UnitName,
			r.EstimatedAttrs.ServiceName, r.EstimatedAttrs.Zone, r.EstimatedAttrs.Macrozone,
			r.EstimatedAttrs.GroupCode, r.EstimatedAttrs.GroupName, r.EstimatedAttrs.ZonalLead,
			r.EstimatedAttrs.Manager, r.EstimatedAttrs.Sector,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetResult, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, SheetResult, err)
		}
	}
	return nil
}

func writeStatisticsSheet(f *excelize.File, rep *recon.Report) error {
	if _, err := f.NewSheet(SheetStatistics); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetStatistics, err)
	}
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total Records", rep.Summary.TotalRecords},
		{"Complete Records", rep.Summary.CompleteRecords},
		{"Missing In Estimated", rep.Summary.MissingInEstimatedCount},
		{"Missing In Actual", rep.Summary.MissingInActualCount},
		{"Completely Missing", rep.Summary.CompletelyMissing},
		{"Completeness Percentage", fmt.Sprintf("%.2f%%", rep.Summary.CompletenessPct)},
		{"Total Actual", rep.Meta.TotalActual},
		{"Total Estimated", rep.Meta.TotalEstimated},
		{"Total Difference", rep.Meta.TotalDifference},
		{"Services Analyzed", rep.Meta.RecordCount},
		{"Processing Timestamp", rep.Meta.ProcessedAt.Format("2006-01-02 15:04:05")},
	}
	return writeRows(f, SheetStatistics, rows, 1)
}

func writeInvestigationSheet(f *excelize.File, rep *recon.Report) error {
	if _, err := f.NewSheet(SheetInvestigation); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetInvestigation, err)
	}

	rows := [][]interface{}{
		{"Section", "Field", "Value"},
		{"Target Analysis", "Client", rep.Target.Client},
		{"Target Analysis", "Total Records", rep.Target.TotalRecords},
		{"Target Analysis", "Records With Actual", rep.Target.WithActual},
		{"Target Analysis", "Records With Estimated", rep.Target.WithEstimated},
		{"Target Analysis", "Missing Records", rep.Target.Missing},
		{"Target Analysis", "Unit Found", rep.Target.UnitFound},
	}
	for _, s := range rep.Target.Sample {
		rows = append(rows, []interface{}{
			"Target Sample",
			recon.CompositeKey(s.ClientKey, s.UnitKey, s.ServiceKey),
			fmt.Sprintf("actual=%v estimated=%v status=%s", s.Actual, s.Estimated, s.Status),
		})
	}
	for _, p := range rep.MissingInEstimated {
		rows = append(rows, []interface{}{"Missing In Estimated", p.Key,
			fmt.Sprintf("actual=%v status=%s", p.Headcount, p.Status)})
	}
	for _, p := range rep.MissingInActual {
		rows = append(rows, []interface{}{"Missing In Actual", p.Key,
			fmt.Sprintf("estimated=%v status=%s", p.Headcount, p.Status)})
	}
	return writeRows(f, SheetInvestigation, rows, 1)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, startRow int) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", startRow+i, sheet, err)
		}
	}
	return nil
}
