package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type (
	JobStatus string

	// BackupConfiguration is created by an operator through the admin surface.
	// The core only reads it.
	BackupConfiguration struct {
		ID             uuid.UUID            `gorm:"primaryKey" json:"id"`
		Name           string               `json:"name"`
		Enabled        bool                 `json:"enabled"`
		Schedule       Schedule             `json:"schedule"`
		Retention      RetentionPolicy      `json:"retention"`
		Storage        StorageConfiguration `json:"storage"`
		Encryption     EncryptionConfig     `json:"encryption"`
		Tables         StringList           `json:"tables"`
		OrganizationID uuid.UUID            `json:"organization_id"`
		CreatedAt      time.Time            `json:"created_at"`
		UpdatedAt      time.Time            `json:"-"`
	}

	Schedule struct {
		Frequency  string `json:"frequency"` // hourly, daily, weekly, monthly
		TimeOfDay  string `json:"time_of_day,omitempty"`
		DayOfWeek  int    `json:"day_of_week,omitempty"`
		DayOfMonth int    `json:"day_of_month,omitempty"`
		Timezone   string `json:"timezone,omitempty"`
	}

	RetentionPolicy struct {
		Daily   int `json:"daily"`
		Weekly  int `json:"weekly"`
		Monthly int `json:"monthly"`
		Yearly  int `json:"yearly"`
	}

	EncryptionConfig struct {
		Enabled   bool   `json:"enabled"`
		Algorithm string `json:"algorithm,omitempty"` // aes-256-gcm
	}

	BackupJob struct {
		ID              uuid.UUID      `gorm:"primaryKey" json:"id"`
		ConfigurationID uuid.UUID      `gorm:"not null" json:"configuration_id"`
		Status          JobStatus      `json:"status"`
		StartTime       time.Time      `json:"start_time"`
		EndTime         *time.Time     `json:"end_time,omitempty"`
		Size            int64          `json:"size,omitempty"`
		RecordCount     int64          `json:"record_count,omitempty"`
		Location        string         `json:"location,omitempty"`
		Error           string         `json:"error,omitempty"`
		Metadata        BackupMetadata `json:"metadata"`
		CreatedAt       time.Time      `json:"created_at"`
	}

	BackupMetadata struct {
		Version     string   `json:"version"`
		Tables      []string `json:"tables"`
		Compression string   `json:"compression"`
		Checksum    string   `json:"checksum"`
		Environment string   `json:"environment"`
		Encrypted   bool     `json:"encrypted"`
	}

	RestoreJob struct {
		ID              uuid.UUID      `gorm:"primaryKey" json:"id"`
		BackupID        uuid.UUID      `gorm:"not null" json:"backup_id"`
		Status          JobStatus      `json:"status"`
		StartTime       time.Time      `json:"start_time"`
		EndTime         *time.Time     `json:"end_time,omitempty"`
		RestoredRecords int64          `json:"restored_records,omitempty"`
		Error           string         `json:"error,omitempty"`
		Options         RestoreOptions `json:"options"`
		CreatedAt       time.Time      `json:"created_at"`
	}

	RestoreOptions struct {
		Tables      []string   `json:"tables,omitempty"`
		PointInTime *time.Time `json:"point_in_time,omitempty"`
		TargetTable string     `json:"target_table,omitempty"`
		Overwrite   bool       `json:"overwrite"`
	}

	StringList []string
)

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"

	MetadataVersion = "1"
)

func (s JobStatus) String() string {
	return string(s)
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is a legal
// job state transition: pending -> running -> {completed, failed}.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// CronSpec converts the schedule into a standard five field cron expression.
func (s Schedule) CronSpec() (string, error) {
	hour, minute := 0, 0
	if s.TimeOfDay != "" {
		if _, err := fmt.Sscanf(s.TimeOfDay, "%d:%d", &hour, &minute); err != nil {
			return "", fmt.Errorf("invalid time_of_day %q: %v", s.TimeOfDay, err)
		}
	}

	var spec string
	switch s.Frequency {
	case "hourly":
		spec = fmt.Sprintf("%d * * * *", minute)
	case "daily":
		spec = fmt.Sprintf("%d %d * * *", minute, hour)
	case "weekly":
		spec = fmt.Sprintf("%d %d * * %d", minute, hour, s.DayOfWeek)
	case "monthly":
		day := s.DayOfMonth
		if day == 0 {
			day = 1
		}
		spec = fmt.Sprintf("%d %d %d * *", minute, hour, day)
	default:
		return "", fmt.Errorf("unknown schedule frequency: %s", s.Frequency)
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return "", fmt.Errorf("invalid timezone %q: %v", s.Timezone, err)
		}
		spec = "CRON_TZ=" + s.Timezone + " " + spec
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(spec); err != nil {
		return "", err
	}
	return spec, nil
}

func (s Schedule) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *Schedule) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Schedule: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

func (r RetentionPolicy) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *RetentionPolicy) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan RetentionPolicy: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, r)
}

func (e EncryptionConfig) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (e *EncryptionConfig) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan EncryptionConfig: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, e)
}

func (m BackupMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *BackupMetadata) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan BackupMetadata: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

func (o RestoreOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *RestoreOptions) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan RestoreOptions: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, o)
}

func (s StringList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan StringList: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}
