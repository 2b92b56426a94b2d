package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/samber/lo"
)

// Result is the verdict for a single event or label set. Valid is true
// iff Errors is empty, warnings never affect it.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newResult() *Result {
	return &Result{
		Errors:   []string{},
		Warnings: []string{},
	}
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) addErr(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

func (r *Result) merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

func (r *Result) done() Result {
	r.Valid = len(r.Errors) == 0
	return *r
}

// Merge combines the findings of several results into one verdict.
func Merge(results ...Result) Result {
	r := newResult()
	for _, other := range results {
		r.merge(other)
	}
	return r.done()
}

// TaxonomyError reports a value outside of a closed set of allowed values.
type TaxonomyError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *TaxonomyError) Error() string {
	return fmt.Sprintf("invalid %s: %s. Must be one of: %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func validateTaxonomy[T ~string](field string, value T, allowed []T) error {
	// optional fields, absence is never a violation
	if value == "" {
		return nil
	}

	if lo.Contains(allowed, value) {
		return nil
	}

	return &TaxonomyError{
		Field: field,
		Value: string(value),
		Allowed: lo.Map(allowed, func(v T, _ int) string {
			return string(v)
		}),
	}
}

func ValidateSeverity(severity types.Severity) error {
	return validateTaxonomy("severity", severity, types.AllSeverities())
}

func ValidateHealthStatus(status types.HealthStatus) error {
	return validateTaxonomy("health_status", status, types.AllHealthStatuses())
}

func ValidateRiskClass(riskClass types.RiskClass) error {
	return validateTaxonomy("risk_class", riskClass, types.AllRiskClasses())
}

func ValidateEventCategory(category types.EventCategory) error {
	return validateTaxonomy("event_category", category, types.AllEventCategories())
}

func ValidateFailureType(failureType types.FailureType) error {
	return validateTaxonomy("failure_type", failureType, types.AllFailureTypes())
}

func ValidateLabelQuality(quality types.LabelQuality) error {
	return validateTaxonomy("label_quality", quality, types.AllLabelQualities())
}

func ValidateTimeToFailureCategory(category types.TimeToFailure) error {
	return validateTaxonomy("time_to_failure_category", category, types.AllTimeToFailureCategories())
}

var metricNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// ValidateMetricName checks the identifier syntax: lowercase segments of
// letters, digits and underscores separated by dots.
func ValidateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("metric name must be a non-empty string")
	}

	if !metricNamePattern.MatchString(name) {
		return fmt.Errorf("metric name %q must consist of lowercase, underscore separated segments joined by dots", name)
	}

	return nil
}

// followsNamingConvention reports whether a syntactically valid name also
// follows domain.entity.action.metric_type with a known domain.
func followsNamingConvention(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) < 4 {
		return false
	}

	return types.TelemetryDomain(parts[0]).IsValid()
}

// IsValidISOTimestamp accepts RFC 3339 instants only, date-only strings are rejected.
func IsValidISOTimestamp(timestamp string) bool {
	if !strings.Contains(timestamp, "T") {
		return false
	}

	_, err := time.Parse(time.RFC3339Nano, timestamp)
	return err == nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
