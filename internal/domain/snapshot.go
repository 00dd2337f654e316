package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap is a custom type for storing arbitrary JSON objects in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// AnalysisSnapshot holds pre-aggregated metrics per tenant and reporting
// period so dashboards never re-scan the reconciled table. At most one
// snapshot exists per (tenant, period); a succeeding job replaces it.
type AnalysisSnapshot struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Tenant      string    `gorm:"type:text;not null;uniqueIndex:idx_snapshots_tenant_period" json:"tenant"`
	JobID       string    `gorm:"type:text;not null" json:"job_id"`
	PeriodMonth time.Time `gorm:"not null;uniqueIndex:idx_snapshots_tenant_period" json:"period_month"`

	// Metrics is a flexible JSON aggregate so the shape can evolve
	// without migrations.
	Metrics JSONMap `gorm:"type:text" json:"metrics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AnalysisSnapshot.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (AnalysisSnapshot) TableName() string {
	return "analysis_snapshots"
}
