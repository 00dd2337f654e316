package recon

import (
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		actual    float64
		estimated float64
		want      Status
	}{
		{"no data on either side", 0, 0, StatusSinDatos},
		{"planned but unstaffed", 0, 4, StatusSinPersonal},
		{"staffed but unplanned", 5, 0, StatusNoPlanificado},
		{"exact match", 3, 3, StatusExacto},
		{"overstaffed", 6, 4, StatusSobrecarga},
		{"understaffed", 2, 4, StatusFalta},
		{"fractional exact", 2.5, 2.5, StatusExacto},
		{"nan falls through", math.NaN(), 1, StatusIndeterminado},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.actual, tt.estimated); got != tt.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tt.actual, tt.estimated, got, tt.want)
			}
		})
	}
}

func TestComputeMetrics_ExactCoverage(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C1_U1_S1", Actual: 3, Estimated: 3, InActual: true, InEstimated: true},
	}

	out := ComputeMetrics(records, DefaultMetricParams())

	r := out[0]
	if r.Difference != 0 {
		t.Errorf("difference = %v, want 0", r.Difference)
	}
	if r.CoveragePct != 100 {
		t.Errorf("coverage = %v, want 100", r.CoveragePct)
	}
	if r.Status != StatusExacto {
		t.Errorf("status = %q, want %q", r.Status, StatusExacto)
	}
}

func TestComputeMetrics_ActualOnly(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C1_U1_S1", Actual: 5, InActual: true},
	}

	out := ComputeMetrics(records, DefaultMetricParams())

	r := out[0]
	if r.Estimated != 0 {
		t.Errorf("missing side should fill to 0, got %v", r.Estimated)
	}
	if r.Difference != 5 {
		t.Errorf("difference = %v, want 5", r.Difference)
	}
	// Coverage is an explicit zero when nothing was planned.
	if r.CoveragePct != 0 {
		t.Errorf("coverage = %v, want 0", r.CoveragePct)
	}
	if r.Status != StatusNoPlanificado {
		t.Errorf("status = %q, want %q", r.Status, StatusNoPlanificado)
	}
}

func TestComputeMetrics_EstimatedOnly(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C1_U1_S1", Estimated: 4, InEstimated: true},
	}

	out := ComputeMetrics(records, DefaultMetricParams())

	r := out[0]
	if r.Difference != -4 {
		t.Errorf("difference = %v, want -4", r.Difference)
	}
	if r.CoveragePct != 0 {
		t.Errorf("coverage = %v, want 0", r.CoveragePct)
	}
	if r.Status != StatusSinPersonal {
		t.Errorf("status = %q, want %q", r.Status, StatusSinPersonal)
	}
}

func TestComputeMetrics_Rounding(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C1_U1_S1", Actual: 1, Estimated: 3, InActual: true, InEstimated: true},
	}

	out := ComputeMetrics(records, DefaultMetricParams())

	r := out[0]
	if r.CoveragePct != 33.33 {
		t.Errorf("coverage = %v, want 33.33", r.CoveragePct)
	}
	if r.Difference != -2 {
		t.Errorf("difference = %v, want -2", r.Difference)
	}
}

func TestComputeMetrics_ZeroDecimals(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C1_U1_S1", Actual: 1, Estimated: 3, InActual: true, InEstimated: true},
	}

	out := ComputeMetrics(records, MetricParams{RoundDecimals: 0})

	r := out[0]
	if r.CoveragePct != 33 {
		t.Errorf("coverage = %v, want 33", r.CoveragePct)
	}
}

func TestComputeMetrics_ResortsByKey(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C9_U1_S1", InActual: true},
		{Key: "C1_U1_S1", InActual: true},
	}

	out := ComputeMetrics(records, DefaultMetricParams())

	if out[0].Key != "C1_U1_S1" || out[1].Key != "C9_U1_S1" {
		t.Errorf("expected records re-sorted by key, got %q, %q", out[0].Key, out[1].Key)
	}
}

func TestComputeMetrics_DoesNotMutateInput(t *testing.T) {
	records := []ReconciledRecord{
		{Key: "C1_U1_S1", Actual: 2, Estimated: 4, InActual: true, InEstimated: true},
	}

	_ = ComputeMetrics(records, DefaultMetricParams())

	if records[0].Difference != 0 || records[0].Status != "" {
		t.Error("input slice was mutated")
	}
}
