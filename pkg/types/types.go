package types

import (
	"time"
)

// TelemetryEvent follows the metric naming convention
// domain.entity.action.metric_type and carries the standard tags.
type TelemetryEvent struct {
	Name        string `json:"name"`
	Timestamp   string `json:"timestamp"`
	FacilityID  string `json:"facility_id,omitempty"`
	AssetID     string `json:"asset_id,omitempty"`
	Environment string `json:"environment,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	TraceID     string `json:"trace_id,omitempty"`

	AssetCategory string        `json:"asset_category,omitempty"`
	AssetType     string        `json:"asset_type,omitempty"`
	Department    string        `json:"department,omitempty"`
	EventCategory EventCategory `json:"event_category,omitempty"`
	Severity      Severity      `json:"severity,omitempty"`
	RiskClass     RiskClass     `json:"risk_class,omitempty"`

	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`

	Labels   *MLTrainingLabels `json:"labels,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`

	// Malformed lists the members that were present with the wrong type
	// when the event was decoded from json.
	Malformed []FieldFault `json:"-"`
}

type MLTrainingLabels struct {
	FailureWithin7d       *bool         `json:"failure_within_7d,omitempty"`
	FailureType           FailureType   `json:"failure_type,omitempty"`
	TimeToFailureHours    *float64      `json:"time_to_failure_hours,omitempty"`
	TimeToFailureCategory TimeToFailure `json:"time_to_failure_category,omitempty"`
	HealthScore           *float64      `json:"health_score,omitempty"`
	HealthStatus          HealthStatus  `json:"health_status,omitempty"`
	RequiresPM            *bool         `json:"requires_pm,omitempty"`
	AnomalyDetected       *bool         `json:"anomaly_detected,omitempty"`
	FailureProbability    *float64      `json:"failure_probability,omitempty"`
	LabelSource           string        `json:"label_source,omitempty"`
	LabelConfidence       *float64      `json:"label_confidence,omitempty"`
	LabelQuality          LabelQuality  `json:"label_quality,omitempty"`
	LabeledBy             string        `json:"labeled_by,omitempty"`
	LabeledAt             string        `json:"labeled_at,omitempty"`

	Malformed []FieldFault `json:"-"`
}

type AssetLocationPing struct {
	ID         string         `json:"id"`
	AssetID    string         `json:"assetId"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Status     AssetStatus    `json:"status"`
	ObservedAt time.Time      `json:"observedAt"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type MaintenanceTask struct {
	ID            string              `json:"id"`
	AssetID       string              `json:"assetId"`
	RequestedByID string              `json:"requestedById"`
	AssignedToID  *string             `json:"assignedToId"`
	Status        MaintenanceStatus   `json:"status"`
	Priority      MaintenancePriority `json:"priority"`
	Summary       string              `json:"summary"`
	Details       *string             `json:"details,omitempty"`
	ScheduledFor  *time.Time          `json:"scheduledFor"`
	CompletedAt   *time.Time          `json:"completedAt"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type MaintenanceEventLog struct {
	ID            string               `json:"id"`
	MaintenanceID string               `json:"maintenanceId"`
	AssetID       string               `json:"assetId"`
	EventType     MaintenanceEventType `json:"eventType"`
	Payload       map[string]any       `json:"payload,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// TelemetryIngestPayload is what a device (or the scan workflow) pushes.
type TelemetryIngestPayload struct {
	AssetExternalID string         `json:"assetExternalId,omitempty"`
	AssetID         string         `json:"assetId,omitempty"`
	DeviceID        string         `json:"deviceId"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	Status          AssetStatus    `json:"status"`
	RecordedAt      string         `json:"recordedAt"`
	Metadata        map[string]any `json:"metadata,omitempty"`

	MetricName    string            `json:"metricName,omitempty"`
	MetricValue   *float64          `json:"metricValue,omitempty"`
	MetricUnit    string            `json:"metricUnit,omitempty"`
	AssetCategory string            `json:"assetCategory,omitempty"`
	AssetType     string            `json:"assetType,omitempty"`
	Department    string            `json:"department,omitempty"`
	EventCategory EventCategory     `json:"eventCategory,omitempty"`
	Severity      Severity          `json:"severity,omitempty"`
	MLLabels      *MLTrainingLabels `json:"mlLabels,omitempty"`

	Malformed []FieldFault `json:"-"`
}

type TelemetryIngestEvent struct {
	ID          string                 `json:"id"`
	AssetID     string                 `json:"assetId,omitempty"`
	DeviceID    string                 `json:"deviceId"`
	Payload     TelemetryIngestPayload `json:"payload"`
	ReceivedAt  time.Time              `json:"receivedAt"`
	ProcessedAt *time.Time             `json:"processedAt"`
	Status      IngestStatus           `json:"status"`
}
