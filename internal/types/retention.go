package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type (
	RetentionAction   string
	ConditionOperator string
	IntervalUnit      string

	// DataRetentionRule is declarative; the core evaluates it but never
	// mutates it.
	DataRetentionRule struct {
		ID             uuid.UUID           `gorm:"primaryKey" json:"id"`
		Name           string              `json:"name"`
		Enabled        bool                `json:"enabled"`
		Table          string              `json:"table"`
		Conditions     RetentionConditions `json:"conditions"`
		Action         RetentionAction     `json:"action"`
		Schedule       string              `json:"schedule"` // cron expression
		OrganizationID uuid.UUID           `json:"organization_id"`
		CreatedAt      time.Time           `json:"created_at"`
		UpdatedAt      time.Time           `json:"-"`
	}

	RetentionCondition struct {
		Field    string            `json:"field"`
		Operator ConditionOperator `json:"operator"`
		Value    interface{}       `json:"value"`
		Unit     IntervalUnit      `json:"unit,omitempty"` // only for older_than
	}

	RetentionConditions []RetentionCondition

	// ArchiveConfiguration tells archive actions where and how to write
	// the archive artifact.
	ArchiveConfiguration struct {
		ID             uuid.UUID            `gorm:"primaryKey" json:"id"`
		OrganizationID uuid.UUID            `json:"organization_id"`
		Storage        StorageConfiguration `json:"storage"`
		Compression    string               `json:"compression"`
		Encryption     EncryptionConfig     `json:"encryption"`
		CreatedAt      time.Time            `json:"created_at"`
	}

	// RetentionResult is the aggregate outcome of one retention run.
	RetentionResult struct {
		Processed int64    `json:"processed"`
		Deleted   int64    `json:"deleted"`
		Archived  int64    `json:"archived"`
		Errors    []string `json:"errors"`
	}

	// ArchiveDocument is the payload serialized into archive artifacts.
	ArchiveDocument struct {
		Table       string                   `json:"table"`
		Timestamp   time.Time                `json:"timestamp"`
		RecordCount int                      `json:"recordCount"`
		Records     []map[string]interface{} `json:"records"`
	}
)

const (
	RetentionActionDelete  RetentionAction = "delete"
	RetentionActionArchive RetentionAction = "archive"

	OperatorOlderThan ConditionOperator = "older_than"
	OperatorEquals    ConditionOperator = "equals"
	OperatorNotEquals ConditionOperator = "not_equals"
	OperatorIn        ConditionOperator = "in"
	OperatorNotIn     ConditionOperator = "not_in"

	UnitDays   IntervalUnit = "days"
	UnitWeeks  IntervalUnit = "weeks"
	UnitMonths IntervalUnit = "months"
	UnitYears  IntervalUnit = "years"
)

// Days converts the unit into a day multiplier. Months and years use the
// fixed 30/365 day conventions.
func (u IntervalUnit) Days() (int, bool) {
	switch u {
	case UnitDays, "":
		return 1, true
	case UnitWeeks:
		return 7, true
	case UnitMonths:
		return 30, true
	case UnitYears:
		return 365, true
	default:
		return 0, false
	}
}

func (a RetentionAction) Valid() bool {
	return a == RetentionActionDelete || a == RetentionActionArchive
}

func (c RetentionConditions) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *RetentionConditions) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan RetentionConditions: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, c)
}
