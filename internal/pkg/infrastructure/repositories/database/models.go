package database

import (
	"time"
)

// The domain types are stored as json documents next to the columns needed
// to query them by asset.

type telemetryEventRecord struct {
	ID         uint      `gorm:"primaryKey"`
	AssetID    string    `gorm:"index"`
	Name       string    `gorm:"index"`
	OccurredAt time.Time `gorm:"index"`
	Data       []byte
	CreatedAt  time.Time
}

func (telemetryEventRecord) TableName() string {
	return "telemetry_events"
}

type ingestEventRecord struct {
	ID          uint   `gorm:"primaryKey"`
	EventID     string `gorm:"uniqueIndex"`
	AssetID     string `gorm:"index"`
	DeviceID    string `gorm:"index"`
	Status      string
	ReceivedAt  time.Time `gorm:"index"`
	ProcessedAt *time.Time
	Data        []byte
}

func (ingestEventRecord) TableName() string {
	return "telemetry_ingest_events"
}

type locationPingRecord struct {
	ID         uint      `gorm:"primaryKey"`
	PingID     string    `gorm:"uniqueIndex"`
	AssetID    string    `gorm:"index"`
	ObservedAt time.Time `gorm:"index"`
	Data       []byte
}

func (locationPingRecord) TableName() string {
	return "asset_location_pings"
}
