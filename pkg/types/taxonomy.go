package types

import "github.com/samber/lo"

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

func (s Severity) IsValid() bool { return lo.Contains(AllSeverities(), s) }

// HealthStatus is the categorical mirror of a 0-100 health score.
type HealthStatus string

const (
	HealthStatusCritical  HealthStatus = "critical"
	HealthStatusPoor      HealthStatus = "poor"
	HealthStatusFair      HealthStatus = "fair"
	HealthStatusGood      HealthStatus = "good"
	HealthStatusExcellent HealthStatus = "excellent"
)

func AllHealthStatuses() []HealthStatus {
	return []HealthStatus{HealthStatusCritical, HealthStatusPoor, HealthStatusFair, HealthStatusGood, HealthStatusExcellent}
}

func (h HealthStatus) IsValid() bool { return lo.Contains(AllHealthStatuses(), h) }

// RiskClass is the FDA device risk classification.
type RiskClass string

const (
	RiskClassI   RiskClass = "class_i"
	RiskClassII  RiskClass = "class_ii"
	RiskClassIII RiskClass = "class_iii"
)

func AllRiskClasses() []RiskClass {
	return []RiskClass{RiskClassI, RiskClassII, RiskClassIII}
}

func (r RiskClass) IsValid() bool { return lo.Contains(AllRiskClasses(), r) }

type EventCategory string

const (
	EventCategoryLocation    EventCategory = "location"
	EventCategoryMaintenance EventCategory = "maintenance"
	EventCategoryCompliance  EventCategory = "compliance"
	EventCategoryOperational EventCategory = "operational"
	EventCategorySystem      EventCategory = "system"
)

func AllEventCategories() []EventCategory {
	return []EventCategory{EventCategoryLocation, EventCategoryMaintenance, EventCategoryCompliance, EventCategoryOperational, EventCategorySystem}
}

func (c EventCategory) IsValid() bool { return lo.Contains(AllEventCategories(), c) }

type FailureType string

const (
	FailureTypeNone        FailureType = "no_failure"
	FailureTypeMechanical  FailureType = "mechanical_failure"
	FailureTypeElectrical  FailureType = "electrical_failure"
	FailureTypeSoftware    FailureType = "software_failure"
	FailureTypeCalibration FailureType = "calibration_drift"
	FailureTypeWear        FailureType = "component_wear"
	FailureTypeUnknown     FailureType = "unknown_failure"
)

func AllFailureTypes() []FailureType {
	return []FailureType{
		FailureTypeNone, FailureTypeMechanical, FailureTypeElectrical, FailureTypeSoftware,
		FailureTypeCalibration, FailureTypeWear, FailureTypeUnknown,
	}
}

func (f FailureType) IsValid() bool { return lo.Contains(AllFailureTypes(), f) }

// TimeToFailure is the categorical mirror of time_to_failure_hours.
type TimeToFailure string

const (
	TimeToFailure0To24h  TimeToFailure = "0-24h"
	TimeToFailure1To7d   TimeToFailure = "1-7d"
	TimeToFailure7To30d  TimeToFailure = "7-30d"
	TimeToFailureOver30d TimeToFailure = "30d+"
)

func AllTimeToFailureCategories() []TimeToFailure {
	return []TimeToFailure{TimeToFailure0To24h, TimeToFailure1To7d, TimeToFailure7To30d, TimeToFailureOver30d}
}

func (t TimeToFailure) IsValid() bool { return lo.Contains(AllTimeToFailureCategories(), t) }

// LabelQuality tracks how a training label was produced.
type LabelQuality string

const (
	LabelQualityVerified  LabelQuality = "verified"
	LabelQualityAutomated LabelQuality = "automated"
	LabelQualityInferred  LabelQuality = "inferred"
	LabelQualityEstimated LabelQuality = "estimated"
	LabelQualitySynthetic LabelQuality = "synthetic"
)

func AllLabelQualities() []LabelQuality {
	return []LabelQuality{LabelQualityVerified, LabelQualityAutomated, LabelQualityInferred, LabelQualityEstimated, LabelQualitySynthetic}
}

func (l LabelQuality) IsValid() bool { return lo.Contains(AllLabelQualities(), l) }

// TelemetryDomain is the first segment of a metric name following
// {domain}.{entity}.{action}.{metric_type}.
type TelemetryDomain string

const (
	TelemetryDomainAsset       TelemetryDomain = "asset"
	TelemetryDomainRTLS        TelemetryDomain = "rtls"
	TelemetryDomainMaintenance TelemetryDomain = "maintenance"
	TelemetryDomainCompliance  TelemetryDomain = "compliance"
	TelemetryDomainUser        TelemetryDomain = "user"
	TelemetryDomainSystem      TelemetryDomain = "system"
	TelemetryDomainML          TelemetryDomain = "ml"
)

func AllTelemetryDomains() []TelemetryDomain {
	return []TelemetryDomain{
		TelemetryDomainAsset, TelemetryDomainRTLS, TelemetryDomainMaintenance, TelemetryDomainCompliance,
		TelemetryDomainUser, TelemetryDomainSystem, TelemetryDomainML,
	}
}

func (d TelemetryDomain) IsValid() bool { return lo.Contains(AllTelemetryDomains(), d) }

type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "available"
	AssetStatusInUse       AssetStatus = "in_use"
	AssetStatusMaintenance AssetStatus = "maintenance"
	AssetStatusRetired     AssetStatus = "retired"
)

func AllAssetStatuses() []AssetStatus {
	return []AssetStatus{AssetStatusAvailable, AssetStatusInUse, AssetStatusMaintenance, AssetStatusRetired}
}

func (a AssetStatus) IsValid() bool { return lo.Contains(AllAssetStatuses(), a) }

type MaintenanceStatus string

const (
	MaintenanceStatusScheduled  MaintenanceStatus = "scheduled"
	MaintenanceStatusInProgress MaintenanceStatus = "in_progress"
	MaintenanceStatusCompleted  MaintenanceStatus = "completed"
	MaintenanceStatusOverdue    MaintenanceStatus = "overdue"
	MaintenanceStatusCancelled  MaintenanceStatus = "cancelled"
)

func AllMaintenanceStatuses() []MaintenanceStatus {
	return []MaintenanceStatus{
		MaintenanceStatusScheduled, MaintenanceStatusInProgress, MaintenanceStatusCompleted,
		MaintenanceStatusOverdue, MaintenanceStatusCancelled,
	}
}

func (m MaintenanceStatus) IsValid() bool { return lo.Contains(AllMaintenanceStatuses(), m) }

type MaintenancePriority string

const (
	MaintenancePriorityLow    MaintenancePriority = "low"
	MaintenancePriorityMedium MaintenancePriority = "medium"
	MaintenancePriorityHigh   MaintenancePriority = "high"
)

type MaintenanceEventType string

const (
	MaintenanceEventCreated   MaintenanceEventType = "created"
	MaintenanceEventScheduled MaintenanceEventType = "scheduled"
	MaintenanceEventCompleted MaintenanceEventType = "completed"
)

type IngestStatus string

const (
	IngestStatusPending   IngestStatus = "pending"
	IngestStatusProcessed IngestStatus = "processed"
	IngestStatusFailed    IngestStatus = "failed"
)
