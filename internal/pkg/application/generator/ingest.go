package generator

import (
	"fmt"
	"time"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/validation"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/samber/lo"
)

const (
	ingestEventCount     = 9
	ingestEventSpacing   = 90 * time.Second
	ingestRecordedBefore = 30 * time.Second
	ingestProcessedAfter = 20 * time.Second
	ingestCoordinateStep = 0.0001
	minIngestBattery     = 10

	BatteryLevelMetric = "rtls.asset.location.battery_level"
	syntheticLabelSrc  = "synthetic-generator"
)

var ingestSignalStrengths = []string{"excellent", "good", "fair", "poor"}

// TimestampFormat is the ISO 8601 layout used for string timestamps on the wire.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

func (g *Generator) simulateIngestEvents(now time.Time) []types.TelemetryIngestEvent {
	events := make([]types.TelemetryIngestEvent, 0, ingestEventCount)

	for i := 0; i < ingestEventCount; i++ {
		base := g.seeds[i%len(g.seeds)]
		receivedAt := now.Add(-time.Duration(i) * ingestEventSpacing)
		recordedAt := receivedAt.Add(-ingestRecordedBefore)

		status := base.Status
		severity := types.SeverityInfo
		if i%4 == 0 {
			status = types.AssetStatusMaintenance
			severity = types.SeverityMedium
		}

		battery := lo.Max([]int{minIngestBattery, 100 - i*7})

		payload := types.TelemetryIngestPayload{
			AssetID:    base.AssetID,
			DeviceID:   fmt.Sprintf("%s-device-0%d", base.AssetKey, i+1),
			Latitude:   round6(base.BaseLatitude + float64(i)*ingestCoordinateStep),
			Longitude:  round6(base.BaseLongitude - float64(i)*ingestCoordinateStep),
			Status:     status,
			RecordedAt: recordedAt.Format(TimestampFormat),
			Metadata: map[string]any{
				"batteryLevel":   battery,
				"signalStrength": ingestSignalStrengths[i%len(ingestSignalStrengths)],
			},
			MetricName:    BatteryLevelMetric,
			MetricValue:   lo.ToPtr(float64(battery)),
			MetricUnit:    "percent",
			EventCategory: types.EventCategoryLocation,
			Severity:      severity,
			MLLabels:      syntheticLabels(float64(battery), status, recordedAt),
		}

		event := types.TelemetryIngestEvent{
			ID:         fmt.Sprintf("event-%d", i),
			AssetID:    base.AssetID,
			DeviceID:   payload.DeviceID,
			Payload:    payload,
			ReceivedAt: receivedAt,
			Status:     types.IngestStatusProcessed,
		}

		if i%5 == 0 {
			event.Status = types.IngestStatusPending
		} else {
			processedAt := receivedAt.Add(ingestProcessedAfter)
			event.ProcessedAt = &processedAt
		}

		events = append(events, event)
	}

	return events
}

// syntheticLabels derives a consistent label set from the battery level so
// that the mirrors always agree with their numeric counterparts.
func syntheticLabels(battery float64, status types.AssetStatus, labeledAt time.Time) *types.MLTrainingLabels {
	healthScore := battery
	hoursToFailure := battery * 12
	probability := round6((100 - battery) / 100)

	return &types.MLTrainingLabels{
		FailureWithin7d:       lo.ToPtr(hoursToFailure < 7*24),
		FailureType:           types.FailureTypeNone,
		TimeToFailureHours:    &hoursToFailure,
		TimeToFailureCategory: validation.HoursToFailureCategory(hoursToFailure),
		HealthScore:           &healthScore,
		HealthStatus:          validation.HealthScoreToStatus(healthScore),
		RequiresPM:            lo.ToPtr(status == types.AssetStatusMaintenance),
		AnomalyDetected:       lo.ToPtr(false),
		FailureProbability:    &probability,
		LabelSource:           syntheticLabelSrc,
		LabelConfidence:       lo.ToPtr(0.5),
		LabelQuality:          types.LabelQualitySynthetic,
		LabeledBy:             syntheticLabelSrc,
		LabeledAt:             labeledAt.Format(TimestampFormat),
	}
}

// TelemetryIngestEvents returns a snapshot of the simulated ingest events.
func (g *Generator) TelemetryIngestEvents() []types.TelemetryIngestEvent {
	return lo.Map(g.ingestEvents, func(e types.TelemetryIngestEvent, _ int) types.TelemetryIngestEvent {
		c := e
		c.ProcessedAt = copyPtr(e.ProcessedAt)
		c.Payload.Metadata = lo.Assign(e.Payload.Metadata)
		c.Payload.MetricValue = copyPtr(e.Payload.MetricValue)
		c.Payload.MLLabels = copyLabels(e.Payload.MLLabels)
		return c
	})
}

func copyLabels(l *types.MLTrainingLabels) *types.MLTrainingLabels {
	if l == nil {
		return nil
	}

	c := *l
	c.FailureWithin7d = copyPtr(l.FailureWithin7d)
	c.TimeToFailureHours = copyPtr(l.TimeToFailureHours)
	c.HealthScore = copyPtr(l.HealthScore)
	c.RequiresPM = copyPtr(l.RequiresPM)
	c.AnomalyDetected = copyPtr(l.AnomalyDetected)
	c.FailureProbability = copyPtr(l.FailureProbability)
	c.LabelConfidence = copyPtr(l.LabelConfidence)
	c.Malformed = append([]types.FieldFault(nil), l.Malformed...)
	return &c
}

// EventDefaults supplies the standard tags a device payload does not carry.
type EventDefaults struct {
	FacilityID  string
	Environment string
	ServiceName string
}

// IngestPayloadToEvent maps the metric part of an ingest payload onto a
// TelemetryEvent. Location and device fields are carried in metadata.
func IngestPayloadToEvent(payload types.TelemetryIngestPayload, defaults EventDefaults) types.TelemetryEvent {
	assetID := payload.AssetID
	if assetID == "" {
		assetID = payload.AssetExternalID
	}

	metadata := lo.Assign(payload.Metadata, map[string]any{
		"deviceId":  payload.DeviceID,
		"latitude":  payload.Latitude,
		"longitude": payload.Longitude,
		"status":    payload.Status,
	})

	return types.TelemetryEvent{
		Name:          payload.MetricName,
		Timestamp:     payload.RecordedAt,
		FacilityID:    defaults.FacilityID,
		AssetID:       assetID,
		Environment:   defaults.Environment,
		ServiceName:   defaults.ServiceName,
		AssetCategory: payload.AssetCategory,
		AssetType:     payload.AssetType,
		Department:    payload.Department,
		EventCategory: payload.EventCategory,
		Severity:      payload.Severity,
		Value:         copyPtr(payload.MetricValue),
		Unit:          payload.MetricUnit,
		Labels:        copyLabels(payload.MLLabels),
		Metadata:      metadata,
	}
}
