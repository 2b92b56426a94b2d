package validation

import (
	"github.com/diwise/iot-asset-telemetry/pkg/types"
)

// Bands are ordered from the highest threshold down. A score belongs to the
// first band whose lower bound it reaches.
var healthScoreBands = []struct {
	min    float64
	status types.HealthStatus
}{
	{90, types.HealthStatusExcellent},
	{70, types.HealthStatusGood},
	{50, types.HealthStatusFair},
	{25, types.HealthStatusPoor},
}

// Bands are ordered by their exclusive upper bound, in hours.
var timeToFailureBands = []struct {
	below    float64
	category types.TimeToFailure
}{
	{24, types.TimeToFailure0To24h},
	{7 * 24, types.TimeToFailure1To7d},
	{30 * 24, types.TimeToFailure7To30d},
}

func HealthScoreToStatus(score float64) types.HealthStatus {
	for _, b := range healthScoreBands {
		if score >= b.min {
			return b.status
		}
	}
	return types.HealthStatusCritical
}

func HoursToFailureCategory(hours float64) types.TimeToFailure {
	for _, b := range timeToFailureBands {
		if hours < b.below {
			return b.category
		}
	}
	return types.TimeToFailureOver30d
}
