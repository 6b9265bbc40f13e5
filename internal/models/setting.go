package models

import "time"

// SettingType defines supported types for setting values.
type SettingType string

const (
	SettingTypeString  SettingType = "STRING"
	SettingTypeNumber  SettingType = "NUMBER"
	SettingTypeBoolean SettingType = "BOOLEAN"
)

// Well-known setting keys.
const (
	SettingDailyRequired  = "daily_required"
	SettingWeeklyRequired = "weekly_required"
	SettingAutoApprove    = "auto_approve"
	SettingCurrentSession = "current_session"
	SettingCurrentWeek    = "current_week"
	SettingCurrentDay     = "current_day"
	SettingDataVersion    = "data_version"
)

// Setting represents a persisted key/value setting entry.
type Setting struct {
	Key         string      `db:"key" json:"key"`
	Value       string      `db:"value" json:"value"`
	Type        SettingType `db:"type" json:"type"`
	Description *string     `db:"description" json:"description,omitempty"`
	UpdatedBy   *string     `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// SystemSettings is the resolved, typed view of the global settings.
// Thresholds apply retroactively: qualification is recomputed against the
// current values on every read, never stored per submission.
type SystemSettings struct {
	DailyRequired  int    `json:"daily_required"`
	WeeklyRequired int    `json:"weekly_required"`
	AutoApprove    bool   `json:"auto_approve"`
	CurrentSession string `json:"current_session"`
	CurrentWeek    int    `json:"current_week"`
	CurrentDay     int    `json:"current_day"`
	DataVersion    string `json:"data_version"`
}
