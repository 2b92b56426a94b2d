package validation

import (
	"context"
	"math"
	"strings"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

func ValidateTelemetryEvent(event types.TelemetryEvent) Result {
	r := newResult()
	validateEvent(r, event, reportMalformed(r, event.Malformed))
	return r.done()
}

// reportMalformed turns every wrongly typed member into an error and returns
// the set of members already reported.
func reportMalformed(r *Result, faults []types.FieldFault) map[string]bool {
	reported := map[string]bool{}
	for _, f := range faults {
		r.addErr(f)
		reported[f.Field] = true
	}
	return reported
}

// validateEvent checks event into r. Presence and format checks are skipped
// for the members in reported.
func validateEvent(r *Result, event types.TelemetryEvent, reported map[string]bool) {
	if !reported["name"] {
		if err := ValidateMetricName(event.Name); err != nil {
			r.addError("invalid metric name: %s", err.Error())
		} else if !followsNamingConvention(event.Name) {
			r.addWarning("metric name %s does not follow domain.entity.action.metric_type with a known domain (%s)",
				event.Name, strings.Join(lo.Map(types.AllTelemetryDomains(), func(d types.TelemetryDomain, _ int) string {
					return string(d)
				}), ", "))
		}
	}

	if !reported["timestamp"] {
		if event.Timestamp == "" {
			r.addError("missing required field: timestamp")
		} else if !IsValidISOTimestamp(event.Timestamp) {
			r.addError("invalid timestamp format: %s. Must be an ISO 8601 instant", event.Timestamp)
		}
	}

	if event.FacilityID == "" && !reported["facility_id"] {
		r.addWarning("missing recommended field: facility_id")
	}
	if event.Environment == "" && !reported["environment"] {
		r.addWarning("missing recommended field: environment")
	}
	if event.ServiceName == "" && !reported["service_name"] {
		r.addWarning("missing recommended field: service_name")
	}

	r.addErr(ValidateSeverity(event.Severity))
	r.addErr(ValidateEventCategory(event.EventCategory))
	r.addErr(ValidateRiskClass(event.RiskClass))

	if !reported["value"] {
		if event.Value == nil {
			r.addError("missing required field: value")
		} else if math.IsNaN(*event.Value) || math.IsInf(*event.Value, 0) {
			r.addError("value must be a finite number")
		}
	}

	if event.AssetID != "" || event.AssetCategory != "" || event.AssetType != "" {
		if event.AssetID == "" {
			r.addWarning("asset_id recommended when asset_category or asset_type is present")
		}
		if event.AssetCategory == "" {
			r.addWarning("asset_category recommended for asset-related events")
		}
		if event.AssetType == "" {
			r.addWarning("asset_type recommended for asset-related events")
		}
	}

	if event.Labels != nil {
		r.merge(ValidateMLLabels(event.Labels))

		if event.Labels.LabelSource != "" || event.Labels.LabelConfidence != nil {
			if event.Labels.LabelSource == "" {
				r.addWarning("label_source recommended when ML labels are present")
			}
			if event.Labels.LabelConfidence == nil {
				r.addWarning("label_confidence recommended when ML labels are present")
			}
		}
	}
}

type Summary struct {
	Total         int `json:"total"`
	Valid         int `json:"valid"`
	Invalid       int `json:"invalid"`
	TotalErrors   int `json:"totalErrors"`
	TotalWarnings int `json:"totalWarnings"`
}

type BatchResult struct {
	Valid   bool     `json:"valid"`
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

// ValidateTelemetryEvents validates every event, in input order, without
// short-circuiting on failures.
func ValidateTelemetryEvents(events []types.TelemetryEvent) BatchResult {
	results := lo.Map(events, func(e types.TelemetryEvent, _ int) Result {
		return ValidateTelemetryEvent(e)
	})

	return summarize(results)
}

// ValidateTelemetryEventsConcurrently yields the same BatchResult as
// ValidateTelemetryEvents, spreading the work over at most workers goroutines.
// A non-positive workers value means no limit.
func ValidateTelemetryEventsConcurrently(ctx context.Context, events []types.TelemetryEvent, workers int) (BatchResult, error) {
	results := make([]Result, len(events))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := range events {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = ValidateTelemetryEvent(events[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	return summarize(results), nil
}

func summarize(results []Result) BatchResult {
	valid := lo.CountBy(results, func(r Result) bool { return r.Valid })

	summary := Summary{
		Total:         len(results),
		Valid:         valid,
		Invalid:       len(results) - valid,
		TotalErrors:   lo.SumBy(results, func(r Result) int { return len(r.Errors) }),
		TotalWarnings: lo.SumBy(results, func(r Result) int { return len(r.Warnings) }),
	}

	return BatchResult{
		Valid:   summary.Invalid == 0,
		Results: results,
		Summary: summary,
	}
}
