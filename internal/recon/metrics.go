package recon

import "sort"

// MetricParams tunes metric derivation. RoundDecimals is honored as given,
// zero included; negative values round to integers.
type MetricParams struct {
	FillValue     float64
	RoundDecimals int
}

// DefaultMetricParams returns the standard fill/round parameters.
func DefaultMetricParams() MetricParams {
	return MetricParams{FillValue: 0, RoundDecimals: 2}
}

// ComputeMetrics derives difference, coverage and status for every joined
// record and re-asserts the composite-key ordering. The status branches are
// evaluated in priority order; the first match wins. Coverage is an explicit
// zero when the estimate is zero, never null or NaN, so downstream
// aggregation stays numeric.
// Parameters:
//   - records: joined records from Join.
//   - params: fill/round parameters.
// Returns:
//   - []ReconciledRecord: new slice with metrics and status populated.
func ComputeMetrics(records []ReconciledRecord, params MetricParams) []ReconciledRecord {
	decimals := params.RoundDecimals

	out := make([]ReconciledRecord, len(records))
	for i, r := range records {
		if !r.InActual {
			r.Actual = params.FillValue
		}
		if !r.InEstimated {
			r.Estimated = params.FillValue
		}

		r.Difference = roundTo(r.Actual-r.Estimated, decimals)

		if r.Estimated > 0 {
			r.CoveragePct = roundTo(r.Actual/r.Estimated*100, decimals)
		} else {
			r.CoveragePct = 0
		}

		r.Status = Classify(r.Actual, r.Estimated)
		out[i] = r
	}

	// Idempotent re-assertion of the determinism guarantee.
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Classify maps an (actual, estimated) pair onto the seven-way status
// taxonomy. The branches are total over the input domain; only NaN inputs
// reach the final arm.
// Parameters:
//   - actual: realized headcount.
//   - estimated: planned headcount.
// Returns:
//   - Status: the first matching status in priority order.
func Classify(actual, estimated float64) Status {
	switch {
	case actual == 0 && estimated == 0:
		return StatusSinDatos
	case actual == 0:
		return StatusSinPersonal
	case estimated == 0:
		return StatusNoPlanificado
	case actual == estimated:
		return StatusExacto
	case actual > estimated:
		return StatusSobrecarga
	case estimated > actual:
		return StatusFalta
	default:
		return StatusIndeterminado
	}
}
