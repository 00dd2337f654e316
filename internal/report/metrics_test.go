package report

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/jmarroquin/cuadre/internal/recon"
)

func record(client, unit, service string, actual, estimated float64) recon.ReconciledRecord {
	return recon.ReconciledRecord{
		Key:        recon.CompositeKey(client, unit, service),
		ClientKey:  client,
		UnitKey:    unit,
		ServiceKey: service,
		Actual:     actual,
		Estimated:  estimated,
		Status:     recon.Classify(actual, estimated),
	}
}

func TestBuild_Totals(t *testing.T) {
	records := []recon.ReconciledRecord{
		record("C1", "U1", "S1", 3, 3),
		record("C1", "U2", "S1", 5, 0),
		record("C2", "U1", "S1", 0, 4),
	}

	m := Build(records)

	if m.TotalActual != 8 || m.TotalEstimated != 7 {
		t.Errorf("totals = (%v, %v), want (8, 7)", m.TotalActual, m.TotalEstimated)
	}
	if m.TotalDifference != 1 {
		t.Errorf("difference = %v, want 1", m.TotalDifference)
	}
	if m.Matches != 1 {
		t.Errorf("matches = %d, want 1", m.Matches)
	}
	if m.TotalServices != 3 {
		t.Errorf("total services = %d, want 3", m.TotalServices)
	}
	if m.CoveragePct != 114.29 {
		t.Errorf("coverage = %v, want 114.29", m.CoveragePct)
	}
}

func TestBuild_StatusBreakdown(t *testing.T) {
	records := []recon.ReconciledRecord{
		record("C1", "U1", "S1", 3, 3),
		record("C2", "U1", "S1", 2, 2),
		record("C3", "U1", "S1", 5, 0),
	}

	m := Build(records)

	if len(m.ByStatus) != 2 {
		t.Fatalf("expected 2 status buckets, got %d", len(m.ByStatus))
	}
	// Largest bucket first.
	if m.ByStatus[0].Status != recon.StatusExacto || m.ByStatus[0].Count != 2 {
		t.Errorf("unexpected first bucket: %+v", m.ByStatus[0])
	}
	if m.ByStatus[0].Actual != 5 {
		t.Errorf("bucket actual = %v, want 5", m.ByStatus[0].Actual)
	}
	want := []string{string(recon.StatusExacto), string(recon.StatusNoPlanificado)}
	if !reflect.DeepEqual(m.AvailableFilters.Statuses, want) {
		t.Errorf("status filter = %v, want %v", m.AvailableFilters.Statuses, want)
	}
}

func TestBuild_EntityNameFallback(t *testing.T) {
	r := record("C1", "U1", "S1", 2, 2)
	r.AssignedAttrs.ClientName = "ACME ASSIGNED"

	m := Build([]recon.ReconciledRecord{r})

	if len(m.TopClients) != 1 {
		t.Fatalf("expected 1 client bucket, got %d", len(m.TopClients))
	}
	// Estimated-side name wins when present; assigned side is the fallback.
	if m.TopClients[0].Name != "ACME ASSIGNED" {
		t.Errorf("client name = %q, want ACME ASSIGNED", m.TopClients[0].Name)
	}

	r.EstimatedAttrs.ClientName = "ACME ESTIMATED"
	m = Build([]recon.ReconciledRecord{r})
	if m.TopClients[0].Name != "ACME ESTIMATED" {
		t.Errorf("client name = %q, want ACME ESTIMATED", m.TopClients[0].Name)
	}
}

func TestBuild_TopLimitAndOrder(t *testing.T) {
	records := make([]recon.ReconciledRecord, 0, 15)
	for i := 0; i < 15; i++ {
		records = append(records, record(fmt.Sprintf("C%02d", i), "U1", "S1", float64(i), 1))
	}

	m := Build(records)

	if len(m.TopClients) != 10 {
		t.Fatalf("expected top clients capped at 10, got %d", len(m.TopClients))
	}
	if m.TopClients[0].Key != "C14" {
		t.Errorf("expected largest client first, got %q", m.TopClients[0].Key)
	}
	for i := 1; i < len(m.TopClients); i++ {
		if m.TopClients[i].Actual > m.TopClients[i-1].Actual {
			t.Fatalf("top clients not sorted by actual descending at %d", i)
		}
	}
}

func TestBuild_ZoneFallbackLabel(t *testing.T) {
	withZone := record("C1", "U1", "S1", 1, 1)
	withZone.EstimatedAttrs.Zone = "NORTE"
	withoutZone := record("C2", "U1", "S1", 1, 1)

	m := Build([]recon.ReconciledRecord{withZone, withoutZone})

	zones := map[string]bool{}
	for _, z := range m.ByZone {
		zones[z.Key] = true
	}
	if !zones["NORTE"] || !zones["SIN ZONA"] {
		t.Errorf("unexpected zone buckets: %v", zones)
	}
	if !reflect.DeepEqual(m.AvailableFilters.Zones, []string{"NORTE", "SIN ZONA"}) {
		t.Errorf("zone filter = %v", m.AvailableFilters.Zones)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	m := Build(nil)

	if m.TotalActual != 0 || m.TotalEstimated != 0 || m.CoveragePct != 0 {
		t.Errorf("expected zero totals, got %+v", m)
	}
	if m.ByStatus == nil || m.TopClients == nil || m.AvailableFilters.Zones == nil {
		t.Error("expected empty slices, not nil")
	}
}

func TestSnapshotMetrics_JSONMap(t *testing.T) {
	records := []recon.ReconciledRecord{
		record("C1", "U1", "S1", 3, 3),
	}

	out, err := Build(records).JSONMap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, ok := out["total_actual"].(float64); !ok || got != 3 {
		t.Errorf("total_actual = %v, want 3", out["total_actual"])
	}
	if _, ok := out["by_status"].([]interface{}); !ok {
		t.Errorf("by_status has unexpected shape: %T", out["by_status"])
	}
}
