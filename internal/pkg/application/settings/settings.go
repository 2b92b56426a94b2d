package settings

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"
)

const (
	DefaultBatchSize      int = 500
	DefaultPollIntervalMs int = 5000
	MinPollIntervalMs     int = 1000
)

var ErrInvalidSetting = errors.New("invalid pipeline setting")

// Pipeline holds the validated, typed configuration of the ingest pipeline.
type Pipeline struct {
	BatchSize         int
	PollIntervalMs    int
	TimescaleURL      string
	TelemetryQueueURL string
	FacilityID        string
	Environment       string
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Parse reads and validates the pipeline settings using lookup.
func Parse(lookup LookupFunc) (Pipeline, error) {
	p := Pipeline{
		BatchSize:      DefaultBatchSize,
		PollIntervalMs: DefaultPollIntervalMs,
	}

	var err error

	if v, ok := lookup("PIPELINE_BATCH_SIZE"); ok && v != "" {
		p.BatchSize, err = strconv.Atoi(v)
		if err != nil || p.BatchSize < 1 {
			return Pipeline{}, fmt.Errorf("%w: PIPELINE_BATCH_SIZE must be a positive integer, got %q", ErrInvalidSetting, v)
		}
	}

	if v, ok := lookup("PIPELINE_POLL_INTERVAL_MS"); ok && v != "" {
		p.PollIntervalMs, err = strconv.Atoi(v)
		if err != nil || p.PollIntervalMs < MinPollIntervalMs {
			return Pipeline{}, fmt.Errorf("%w: PIPELINE_POLL_INTERVAL_MS must be an integer >= %d, got %q", ErrInvalidSetting, MinPollIntervalMs, v)
		}
	}

	if v, ok := lookup("TIMESCALE_URL"); ok && v != "" {
		if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
			return Pipeline{}, fmt.Errorf("%w: TIMESCALE_URL must be an absolute url", ErrInvalidSetting)
		}
		p.TimescaleURL = v
	}

	if v, ok := lookup("TELEMETRY_QUEUE_URL"); ok && v != "" {
		if u, err := url.Parse(v); err != nil || u.Scheme == "" {
			return Pipeline{}, fmt.Errorf("%w: TELEMETRY_QUEUE_URL must be an absolute url", ErrInvalidSetting)
		}
		p.TelemetryQueueURL = v
	}

	p.FacilityID, _ = lookup("FACILITY_ID")
	p.Environment, _ = lookup("ENVIRONMENT")

	return p, nil
}

var (
	current     Pipeline
	currentErr  error
	currentOnce sync.Once
)

// Load parses the settings from the environment on first use and returns the
// same result for the rest of the process lifetime.
func Load() (Pipeline, error) {
	currentOnce.Do(func() {
		current, currentErr = Parse(os.LookupEnv)
	})
	return current, currentErr
}
