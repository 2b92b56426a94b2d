package types

import "time"

type TelemetryIngested struct {
	EventID   string       `json:"eventID"`
	AssetID   string       `json:"assetID,omitempty"`
	DeviceID  string       `json:"deviceID"`
	Status    IngestStatus `json:"status"`
	Errors    []string     `json:"errors,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func (t *TelemetryIngested) ContentType() string {
	return "application/json"
}
func (t *TelemetryIngested) TopicName() string {
	return "telemetry.ingested"
}

type MaintenanceTaskUpdated struct {
	TaskID    string            `json:"taskID"`
	AssetID   string            `json:"assetID"`
	Status    MaintenanceStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

func (m *MaintenanceTaskUpdated) ContentType() string {
	return "application/json"
}
func (m *MaintenanceTaskUpdated) TopicName() string {
	return "maintenance.taskUpdated"
}
