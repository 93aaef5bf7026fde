package models

import "time"

// ChargingEvent is one telemetry report from the device. Rows are never
// updated after insert.
type ChargingEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EventType    string    `gorm:"size:32;default:charging" json:"event_type"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Address      *string   `gorm:"size:255" json:"address"`
	BatteryLevel *int      `json:"battery_level"`
	IsCharging   bool      `gorm:"not null" json:"is_charging"`
	DeviceName   *string   `gorm:"size:128" json:"device_name"`
	DeviceModel  *string   `gorm:"size:128" json:"device_model"`
	RawData      string    `gorm:"type:text" json:"raw_data"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`
}
