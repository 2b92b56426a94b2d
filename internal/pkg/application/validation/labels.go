package validation

import (
	"math"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
)

func inRange(v, lower, upper float64) bool {
	return !math.IsNaN(v) && v >= lower && v <= upper
}

// ValidateMLLabels checks every populated label against its type and range.
// Disagreement between a numeric label and its categorical mirror is a
// warning, never an error.
func ValidateMLLabels(labels *types.MLTrainingLabels) Result {
	r := newResult()

	if labels == nil {
		return r.done()
	}

	reportMalformed(r, labels.Malformed)

	scoreOK := false
	if labels.HealthScore != nil {
		if inRange(*labels.HealthScore, 0, 100) {
			scoreOK = true
		} else {
			r.addError("health_score must be a number between 0 and 100, got: %s", formatNumber(*labels.HealthScore))
		}
	}

	if p := labels.FailureProbability; p != nil && !inRange(*p, 0, 1) {
		r.addError("failure_probability must be a number between 0.0 and 1.0, got: %s", formatNumber(*p))
	}

	if c := labels.LabelConfidence; c != nil && !inRange(*c, 0, 1) {
		r.addError("label_confidence must be a number between 0.0 and 1.0, got: %s", formatNumber(*c))
	}

	hoursOK := false
	if labels.TimeToFailureHours != nil {
		h := *labels.TimeToFailureHours
		if !math.IsNaN(h) && h >= 0 {
			hoursOK = true
		} else {
			r.addError("time_to_failure_hours must be a non-negative number, got: %s", formatNumber(h))
		}
	}

	statusErr := ValidateHealthStatus(labels.HealthStatus)
	r.addErr(statusErr)

	categoryErr := ValidateTimeToFailureCategory(labels.TimeToFailureCategory)
	r.addErr(categoryErr)

	r.addErr(ValidateFailureType(labels.FailureType))
	r.addErr(ValidateLabelQuality(labels.LabelQuality))

	if labels.LabeledAt != "" && !IsValidISOTimestamp(labels.LabeledAt) {
		r.addError("labeled_at must be an ISO 8601 timestamp, got: %s", labels.LabeledAt)
	}

	if scoreOK && labels.HealthStatus != "" && statusErr == nil {
		expected := HealthScoreToStatus(*labels.HealthScore)
		if labels.HealthStatus != expected {
			r.addWarning("health_status '%s' inconsistent with health_score %s (expected '%s')",
				labels.HealthStatus, formatNumber(*labels.HealthScore), expected)
		}
	}

	if hoursOK && labels.TimeToFailureCategory != "" && categoryErr == nil {
		expected := HoursToFailureCategory(*labels.TimeToFailureHours)
		if labels.TimeToFailureCategory != expected {
			r.addWarning("time_to_failure_category '%s' inconsistent with time_to_failure_hours %s (expected '%s')",
				labels.TimeToFailureCategory, formatNumber(*labels.TimeToFailureHours), expected)
		}
	}

	return r.done()
}
