package models

import "time"

// Setting is one key of the process-wide key/value configuration surface.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// Setting keys used outside the settings editor.
const (
	SettingAPIKey               = "api_key"
	SettingSMTPHost             = "smtp_host"
	SettingSMTPPort             = "smtp_port"
	SettingSMTPUser             = "smtp_user"
	SettingSMTPPass             = "smtp_pass"
	SettingSMTPSecure           = "smtp_secure"
	SettingEmailFrom            = "email_from"
	SettingEmailTo              = "email_to"
	SettingAlertHours           = "alert_hours"
	SettingAlertSubject         = "alert_subject"
	SettingAlertBody            = "alert_body"
	SettingCheckIntervalMinutes = "check_interval_minutes"
	SettingLastAlertSent        = "last_alert_sent"
)

// DefaultSettings are seeded on first start and never overwrite existing rows.
var DefaultSettings = map[string]string{
	SettingAPIKey:               "",
	SettingSMTPHost:             "",
	SettingSMTPPort:             "465",
	SettingSMTPUser:             "",
	SettingSMTPPass:             "",
	SettingSMTPSecure:           "true",
	SettingEmailFrom:            "",
	SettingEmailTo:              "",
	SettingAlertHours:           "24",
	SettingAlertSubject:         "Charging event timeout",
	SettingAlertBody:            "Your device has not reported a charging event for more than {hours} hours. Please check the device.",
	SettingCheckIntervalMinutes: "5",
	SettingLastAlertSent:        "",
}
