// Package recon implements the reconciliation core: per-source normalization,
// the full outer join on the composite client/unit/service key, per-record
// metric and status derivation, and the investigation aggregator. Every
// function in this package is a pure transformation over in-memory records;
// side effects live in the job pipeline.
package recon

import "fmt"

// Role tags which side of the reconciliation a source feeds.
type Role string

const (
	// RoleAssigned is the actual-assignment roster (realized headcount).
	RoleAssigned Role = "assigned"
	// RoleEstimated is the estimated-requirement roster (planned headcount).
	RoleEstimated Role = "estimated"
)

// Status classifies the actual-vs-estimated relationship of one reconciled
// record. Exactly one status applies per record.
type Status string

const (
	StatusSinDatos      Status = "SIN_DATOS"
	StatusSinPersonal   Status = "SIN_PERSONAL"
	StatusNoPlanificado Status = "NO_PLANIFICADO"
	StatusExacto        Status = "EXACTO"
	StatusSobrecarga    Status = "SOBRECARGA"
	StatusFalta         Status = "FALTA"
	StatusIndeterminado Status = "INDETERMINADO"
)

// Attributes carries the descriptive passthrough fields of a normalized
// group. Each value is the first one observed within the group; fields whose
// source column is not mapped stay empty.
type Attributes struct {
	Company     string `parquet:"company" json:"company,omitempty"`
	ClientName  string `parquet:"client_name" json:"client_name,omitempty"`
	UnitName    string `parquet:"unit_name" json:"unit_name,omitempty"`
	ServiceName string `parquet:"service_name" json:"service_name,omitempty"`
	GroupCode   string `parquet:"group_code" json:"group_code,omitempty"`
	GroupName   string `parquet:"group_name" json:"group_name,omitempty"`
	Zone        string `parquet:"zone" json:"zone,omitempty"`
	Macrozone   string `parquet:"macrozone" json:"macrozone,omitempty"`
	ZonalLead   string `parquet:"zonal_lead" json:"zonal_lead,omitempty"`
	OpsLead     string `parquet:"ops_lead" json:"ops_lead,omitempty"`
	Manager     string `parquet:"manager" json:"manager,omitempty"`
	Sector      string `parquet:"sector" json:"sector,omitempty"`
	Department  string `parquet:"department" json:"department,omitempty"`
}

// NormalizedGroup is one row per (client, unit, service) tuple after cleaning
// and aggregation of a single source. Never mutated after creation.
type NormalizedGroup struct {
	ClientKey  string
	UnitKey    string
	ServiceKey string
	// Key is ClientKey + "_" + UnitKey + "_" + ServiceKey, unique within
	// one normalized table.
	Key       string
	Headcount float64
	Attrs     Attributes
}

// ReconciledRecord is one row per composite key present on either side of
// the join, with derived metrics and classification.
type ReconciledRecord struct {
	Key        string `parquet:"composite_key" json:"composite_key"`
	ClientKey  string `parquet:"client_key" json:"client_key"`
	UnitKey    string `parquet:"unit_key" json:"unit_key"`
	ServiceKey string `parquet:"service_key" json:"service_key"`

	Actual      float64 `parquet:"actual" json:"actual"`
	Estimated   float64 `parquet:"estimated" json:"estimated"`
	Difference  float64 `parquet:"difference" json:"difference"`
	CoveragePct float64 `parquet:"coverage_pct" json:"coverage_pct"`
	Status      Status  `parquet:"status" json:"status"`

	// Presence flags record which normalized input supplied the key.
	InActual    bool `parquet:"in_actual" json:"in_actual"`
	InEstimated bool `parquet:"in_estimated" json:"in_estimated"`

	AssignedAttrs  Attributes `parquet:"assigned_attrs" json:"assigned_attrs"`
	EstimatedAttrs Attributes `parquet:"estimated_attrs" json:"estimated_attrs"`
}

// ConfigError is a fatal, non-retryable configuration problem: a configured
// required column is absent from an input table.
type ConfigError struct {
	Stage  string
	Role   Role
	Column string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: required column %q not found in %s source", e.Stage, e.Column, e.Role)
}

// JoinError is a fatal join-configuration problem: an input row lacks the
// composite key or repeats one.
type JoinError struct {
	Role   Role
	Reason string
}

// Error implements the error interface.
func (e *JoinError) Error() string {
	return fmt.Sprintf("join: %s source: %s", e.Role, e.Reason)
}
