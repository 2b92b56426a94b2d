package settings

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestThatDefaultsAreUsedWhenNothingIsSet(t *testing.T) {
	is := is.New(t)

	p, err := Parse(env(nil))
	is.NoErr(err)
	is.Equal(p.BatchSize, 500)
	is.Equal(p.PollIntervalMs, 5000)
	is.Equal(p.TimescaleURL, "")
}

func TestThatValuesAreParsed(t *testing.T) {
	is := is.New(t)

	p, err := Parse(env(map[string]string{
		"PIPELINE_BATCH_SIZE":       "25",
		"PIPELINE_POLL_INTERVAL_MS": "1000",
		"TIMESCALE_URL":             "postgres://timescale:5432/telemetry",
		"TELEMETRY_QUEUE_URL":       "amqp://rabbitmq:5672",
		"FACILITY_ID":               "boston-general",
		"ENVIRONMENT":               "staging",
	}))

	is.NoErr(err)
	is.Equal(p.BatchSize, 25)
	is.Equal(p.PollIntervalMs, 1000)
	is.Equal(p.TimescaleURL, "postgres://timescale:5432/telemetry")
	is.Equal(p.TelemetryQueueURL, "amqp://rabbitmq:5672")
	is.Equal(p.FacilityID, "boston-general")
	is.Equal(p.Environment, "staging")
}

func TestThatInvalidValuesAreRejected(t *testing.T) {
	is := is.New(t)

	for key, value := range map[string]string{
		"PIPELINE_BATCH_SIZE":       "0",
		"PIPELINE_POLL_INTERVAL_MS": "999",
		"TIMESCALE_URL":             "not a url",
		"TELEMETRY_QUEUE_URL":       "rabbitmq",
	} {
		_, err := Parse(env(map[string]string{key: value}))
		is.True(errors.Is(err, ErrInvalidSetting))
	}

	_, err := Parse(env(map[string]string{"PIPELINE_BATCH_SIZE": "many"}))
	is.True(errors.Is(err, ErrInvalidSetting))
}

func TestThatLoadIsMemoized(t *testing.T) {
	is := is.New(t)

	first, err1 := Load()
	second, err2 := Load()

	is.Equal(first, second)
	is.Equal(err1, err2)
}

func env(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}
