package recon

import "time"

// InvestigationSpec configures the always-on target probe. The target client
// and unit are operational configuration, never constants in code.
type InvestigationSpec struct {
	TargetClient string
	TargetUnit   string
	SampleLimit  int
}

// TargetSample is one probed record projected for reporting.
type TargetSample struct {
	ClientKey  string  `json:"client_key"`
	UnitKey    string  `json:"unit_key"`
	ServiceKey string  `json:"service_key"`
	Actual     float64 `json:"actual"`
	Estimated  float64 `json:"estimated"`
	Status     Status  `json:"status"`
}

// TargetAnalysis is the fixed-target-entity probe result.
type TargetAnalysis struct {
	Client        string         `json:"client"`
	TotalRecords  int            `json:"total_records"`
	WithActual    int            `json:"records_with_actual"`
	WithEstimated int            `json:"records_with_estimated"`
	Missing       int            `json:"missing_records"`
	Sample        []TargetSample `json:"sample_records"`
	UnitFound     bool           `json:"unit_found"`
	UnitDetails   []TargetSample `json:"unit_details"`
}

// PartialRecord is a record present on only one side, projected to the
// minimal column set for reporting.
type PartialRecord struct {
	Key        string  `json:"composite_key"`
	ClientKey  string  `json:"client_key"`
	UnitKey    string  `json:"unit_key"`
	ServiceKey string  `json:"service_key"`
	Headcount  float64 `json:"headcount"`
	Status     Status  `json:"status"`
}

// Summary partitions the reconciled table into four mutually exclusive
// categories. CompleteRecords + MissingInEstimatedCount + MissingInActualCount
// + CompletelyMissing always equals TotalRecords.
type Summary struct {
	TotalRecords            int     `json:"total_records"`
	CompleteRecords         int     `json:"complete_records"`
	MissingInEstimatedCount int     `json:"missing_in_estimated_count"`
	MissingInActualCount    int     `json:"missing_in_actual_count"`
	CompletelyMissing       int     `json:"completely_missing"`
	CompletenessPct         float64 `json:"completeness_percentage"`
}

// Meta carries whole-table totals attached to the report.
type Meta struct {
	RecordCount     int       `json:"record_count"`
	TotalActual     float64   `json:"total_actual"`
	TotalEstimated  float64   `json:"total_estimated"`
	TotalDifference float64   `json:"total_difference"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// Report is the structured investigation output.
type Report struct {
	Target             TargetAnalysis  `json:"target_analysis"`
	MissingInEstimated []PartialRecord `json:"missing_in_estimated"`
	MissingInActual    []PartialRecord `json:"missing_in_actual"`
	Summary            Summary         `json:"summary_stats"`
	Meta               Meta            `json:"analysis_metadata"`
}

// Investigate computes the target probe, the partial-coverage sets, and the
// summary statistics over a reconciled table. Read-only and idempotent:
// running it twice on the same table yields identical results apart from the
// processing timestamp.
// Parameters:
//   - records: the reconciled table with metrics.
//   - spec: probe configuration.
//   - now: processing timestamp recorded in the metadata.
// Returns:
//   - *Report: aggregated investigation report.
func Investigate(records []ReconciledRecord, spec InvestigationSpec, now time.Time) *Report {
	sampleLimit := spec.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = 10
	}

	report := &Report{
		Target: TargetAnalysis{
			Client:      spec.TargetClient,
			Sample:      []TargetSample{},
			UnitDetails: []TargetSample{},
		},
		MissingInEstimated: []PartialRecord{},
		MissingInActual:    []PartialRecord{},
		Meta:               Meta{RecordCount: len(records), ProcessedAt: now},
	}

	for _, r := range records {
		report.Meta.TotalActual += r.Actual
		report.Meta.TotalEstimated += r.Estimated
		report.Meta.TotalDifference += r.Difference

		if spec.TargetClient != "" && r.ClientKey == spec.TargetClient {
			report.Target.TotalRecords++
			if r.Actual > 0 {
				report.Target.WithActual++
			}
			if r.Estimated > 0 {
				report.Target.WithEstimated++
			}
			if r.Actual == 0 && r.Estimated == 0 {
				report.Target.Missing++
			}
			if len(report.Target.Sample) < sampleLimit {
				report.Target.Sample = append(report.Target.Sample, toSample(r))
			}
			if spec.TargetUnit != "" && r.UnitKey == spec.TargetUnit {
				report.Target.UnitFound = true
				report.Target.UnitDetails = append(report.Target.UnitDetails, toSample(r))
			}
		}

		switch {
		case r.Actual > 0 && r.Estimated > 0:
			report.Summary.CompleteRecords++
		case r.Actual > 0 && r.Estimated == 0:
			report.Summary.MissingInEstimatedCount++
			report.MissingInEstimated = append(report.MissingInEstimated, PartialRecord{
				Key:        r.Key,
				ClientKey:  r.ClientKey,
				UnitKey:    r.UnitKey,
				ServiceKey: r.ServiceKey,
				Headcount:  r.Actual,
				Status:     r.Status,
			})
		case r.Actual == 0 && r.Estimated > 0:
			report.Summary.MissingInActualCount++
			report.MissingInActual = append(report.MissingInActual, PartialRecord{
				Key:        r.Key,
				ClientKey:  r.ClientKey,
				UnitKey:    r.UnitKey,
				ServiceKey: r.ServiceKey,
				Headcount:  r.Estimated,
				Status:     r.Status,
			})
		default:
			report.Summary.CompletelyMissing++
		}
	}

	report.Summary.TotalRecords = len(records)
	if report.Summary.TotalRecords > 0 {
		report.Summary.CompletenessPct = roundTo(
			float64(report.Summary.CompleteRecords)/float64(report.Summary.TotalRecords)*100, 2)
	}
	report.Meta.TotalActual = roundTo(report.Meta.TotalActual, 2)
	report.Meta.TotalEstimated = roundTo(report.Meta.TotalEstimated, 2)
	report.Meta.TotalDifference = roundTo(report.Meta.TotalDifference, 2)

	return report
}

func toSample(r ReconciledRecord) TargetSample {
	return TargetSample{
		ClientKey:  r.ClientKey,
		UnitKey:    r.UnitKey,
		ServiceKey: r.ServiceKey,
		Actual:     r.Actual,
		Estimated:  r.Estimated,
		Status:     r.Status,
	}
}
