package validation

import (
	"github.com/diwise/iot-asset-telemetry/pkg/types"
)

// ValidateIngestPayload checks the device envelope of an ingest payload. The
// optional metric part is validated as a TelemetryEvent, see ValidateIngest.
func ValidateIngestPayload(payload types.TelemetryIngestPayload) Result {
	r := newResult()
	validateEnvelope(r, payload, reportMalformed(r, payload.Malformed))
	return r.done()
}

func validateEnvelope(r *Result, payload types.TelemetryIngestPayload, reported map[string]bool) {
	if payload.DeviceID == "" && !reported["deviceId"] {
		r.addError("missing required field: deviceId")
	}

	if payload.AssetID == "" && payload.AssetExternalID == "" {
		r.addWarning("assetId or assetExternalId recommended")
	}

	if !inRange(payload.Latitude, -90, 90) {
		r.addError("latitude must be a number between -90 and 90, got: %s", formatNumber(payload.Latitude))
	}

	if !inRange(payload.Longitude, -180, 180) {
		r.addError("longitude must be a number between -180 and 180, got: %s", formatNumber(payload.Longitude))
	}

	if payload.Status != "" {
		r.addErr(validateTaxonomy("status", payload.Status, types.AllAssetStatuses()))
	} else if !reported["status"] {
		r.addError("missing required field: status")
	}

	if payload.RecordedAt != "" {
		if !IsValidISOTimestamp(payload.RecordedAt) {
			r.addError("invalid recordedAt format: %s. Must be an ISO 8601 instant", payload.RecordedAt)
		}
	} else if !reported["recordedAt"] {
		r.addError("missing required field: recordedAt")
	}
}

// payload members that are copied onto the derived telemetry event
var derivedMembers = map[string]string{
	"metricName":    "name",
	"metricValue":   "value",
	"metricUnit":    "unit",
	"assetCategory": "asset_category",
	"assetType":     "asset_type",
	"department":    "department",
	"eventCategory": "event_category",
	"severity":      "severity",
}

// ValidateIngest checks the envelope of payload and, when non-nil, the
// telemetry event derived from it. A finding on a payload member is not
// repeated for the event member it was copied to, and the event timestamp
// is covered by the recordedAt check.
func ValidateIngest(payload types.TelemetryIngestPayload, event *types.TelemetryEvent) Result {
	r := newResult()

	reported := reportMalformed(r, payload.Malformed)
	validateEnvelope(r, payload, reported)

	if event != nil {
		derived := map[string]bool{"timestamp": true}
		for member, field := range derivedMembers {
			if reported[member] {
				derived[field] = true
			}
		}

		for _, f := range event.Malformed {
			if !derived[f.Field] {
				r.addErr(f)
				derived[f.Field] = true
			}
		}

		validateEvent(r, *event, derived)
	}

	return r.done()
}
