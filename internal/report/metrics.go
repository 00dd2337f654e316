// Package report builds the pre-aggregated snapshot metrics consumed by
// dashboard collaborators. Aggregation is pure and deterministic: breakdowns
// are sorted by measure descending with the key as tie-break.
package report

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/recon"
)

const topLimit = 10

const noZoneLabel = "SIN ZONA"

// StatusBreakdown aggregates one status bucket.
type StatusBreakdown struct {
	Status    recon.Status `json:"status"`
	Actual    float64      `json:"actual"`
	Estimated float64      `json:"estimated"`
	Count     int          `json:"count"`
}

// EntityBreakdown aggregates one client, unit, service or group bucket.
type EntityBreakdown struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Actual     float64 `json:"actual"`
	Estimated  float64 `json:"estimated"`
	Difference float64 `json:"difference"`
	Records    int     `json:"records"`
}

// Filters lists the distinct values available for dashboard filtering.
type Filters struct {
	Zones      []string `json:"zones"`
	Macrozones []string `json:"macrozones"`
	Statuses   []string `json:"statuses"`
}

// SnapshotMetrics is the structured aggregate stored per (tenant, period).
type SnapshotMetrics struct {
	TotalActual     float64 `json:"total_actual"`
	TotalEstimated  float64 `json:"total_estimated"`
	Matches         int     `json:"matches"`
	TotalDifference float64 `json:"total_difference"`
	CoveragePct     float64 `json:"coverage_pct"`
	CoverageDiffPct float64 `json:"coverage_diff_pct"`
	TotalServices   int     `json:"total_services"`

	ByStatus    []StatusBreakdown `json:"by_status"`
	ByZone      []EntityBreakdown `json:"by_zone"`
	ByMacrozone []EntityBreakdown `json:"by_macrozone"`
	TopClients  []EntityBreakdown `json:"top_clients"`
	TopUnits    []EntityBreakdown `json:"top_units"`
	TopServices []EntityBreakdown `json:"top_services"`
	TopGroups   []EntityBreakdown `json:"top_groups"`

	AvailableFilters Filters `json:"available_filters"`
}

// Build aggregates a reconciled table into snapshot metrics. An empty table
// yields the explicit zero-valued shape, never an error.
// Parameters:
//   - records: the reconciled table with metrics.
// Returns:
//   - *SnapshotMetrics: aggregate ready for persistence.
func Build(records []recon.ReconciledRecord) *SnapshotMetrics {
	m := &SnapshotMetrics{
		ByStatus:    []StatusBreakdown{},
		ByZone:      []EntityBreakdown{},
		ByMacrozone: []EntityBreakdown{},
		TopClients:  []EntityBreakdown{},
		TopUnits:    []EntityBreakdown{},
		TopServices: []EntityBreakdown{},
		TopGroups:   []EntityBreakdown{},
		AvailableFilters: Filters{
			Zones:      []string{},
			Macrozones: []string{},
			Statuses:   []string{},
		},
	}
	if len(records) == 0 {
		return m
	}

	byStatus := map[recon.Status]*StatusBreakdown{}
	clients := newEntityAgg()
	units := newEntityAgg()
	services := newEntityAgg()
	groups := newEntityAgg()
	zones := newEntityAgg()
	macrozones := newEntityAgg()

	for _, r := range records {
		m.TotalActual += r.Actual
		m.TotalEstimated += r.Estimated
		if r.Actual > 0 && r.Estimated > 0 {
			m.Matches++
		}

		sb, ok := byStatus[r.Status]
		if !ok {
			sb = &StatusBreakdown{Status: r.Status}
			byStatus[r.Status] = sb
		}
		sb.Actual += r.Actual
		sb.Estimated += r.Estimated
		sb.Count++

		clients.add(r.ClientKey, coalesce(r.EstimatedAttrs.ClientName, r.AssignedAttrs.ClientName, r.ClientKey), r)
		units.add(r.UnitKey, coalesce(r.EstimatedAttrs.UnitName, r.AssignedAttrs.UnitName, r.UnitKey), r)
		services.add(r.ServiceKey, coalesce(r.EstimatedAttrs.ServiceName, r.AssignedAttrs.ServiceName, r.ServiceKey), r)
		if name := coalesce(r.EstimatedAttrs.GroupName, r.AssignedAttrs.GroupName, ""); name != "" {
			groups.add(name, name, r)
		}
		zone := coalesce(r.EstimatedAttrs.Zone, r.AssignedAttrs.Zone, noZoneLabel)
		zones.add(zone, zone, r)
		if r.EstimatedAttrs.Macrozone != "" {
			macrozones.add(r.EstimatedAttrs.Macrozone, r.EstimatedAttrs.Macrozone, r)
		}
	}

	m.TotalServices = len(records)
	m.TotalDifference = round2(m.TotalActual - m.TotalEstimated)
	if m.TotalEstimated > 0 {
		m.CoveragePct = round2(m.TotalActual / m.TotalEstimated * 100)
		m.CoverageDiffPct = round2(m.TotalDifference / m.TotalEstimated * 100)
	}
	m.TotalActual = round2(m.TotalActual)
	m.TotalEstimated = round2(m.TotalEstimated)

	for _, sb := range byStatus {
		sb.Actual = round2(sb.Actual)
		sb.Estimated = round2(sb.Estimated)
		m.ByStatus = append(m.ByStatus, *sb)
		m.AvailableFilters.Statuses = append(m.AvailableFilters.Statuses, string(sb.Status))
	}
	sort.Slice(m.ByStatus, func(i, j int) bool {
		if m.ByStatus[i].Count != m.ByStatus[j].Count {
			return m.ByStatus[i].Count > m.ByStatus[j].Count
		}
		return m.ByStatus[i].Status < m.ByStatus[j].Status
	})
	sort.Strings(m.AvailableFilters.Statuses)

	m.ByZone = zones.top(topLimit)
	m.ByMacrozone = macrozones.top(0)
	m.TopClients = clients.top(topLimit)
	m.TopUnits = units.top(topLimit)
	m.TopServices = services.top(topLimit)
	m.TopGroups = groups.top(topLimit)

	m.AvailableFilters.Zones = zones.keys()
	m.AvailableFilters.Macrozones = macrozones.keys()

	return m
}

// JSONMap converts the metrics into the flexible persisted form.
// Parameters: none.
// Returns:
//   - domain.JSONMap: metrics as a generic JSON object.
//   - error: non-nil if marshaling fails.
func (m *SnapshotMetrics) JSONMap() (domain.JSONMap, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out domain.JSONMap
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type entityAgg struct {
	buckets map[string]*EntityBreakdown
}

func newEntityAgg() *entityAgg {
	return &entityAgg{buckets: map[string]*EntityBreakdown{}}
}

func (a *entityAgg) add(key, name string, r recon.ReconciledRecord) {
	if key == "" {
		return
	}
	b, ok := a.buckets[key]
	if !ok {
		b = &EntityBreakdown{Key: key, Name: name}
		a.buckets[key] = b
	}
	b.Actual += r.Actual
	b.Estimated += r.Estimated
	b.Records++
}

// top returns the buckets sorted by actual descending, key ascending on
// ties, truncated to limit when limit > 0.
func (a *entityAgg) top(limit int) []EntityBreakdown {
	out := make([]EntityBreakdown, 0, len(a.buckets))
	for _, b := range a.buckets {
		v := *b
		v.Actual = round2(v.Actual)
		v.Estimated = round2(v.Estimated)
		v.Difference = round2(v.Actual - v.Estimated)
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Actual != out[j].Actual {
			return out[i].Actual > out[j].Actual
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (a *entityAgg) keys() []string {
	out := make([]string, 0, len(a.buckets))
	for k := range a.buckets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
