package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"golang.org/x/sys/unix"
	yaml "gopkg.in/yaml.v2"
)

const (
	TelemetryRejectedType string = "biotrakr.telemetry.rejected"
	eventSource           string = "github.com/diwise/iot-asset-telemetry"
)

type EventSender interface {
	SendRejected(ctx context.Context, event types.TelemetryIngestEvent, errs []string) error
}

type subscriber struct {
	endpoint string
	patterns []*regexp.Regexp
}

type eventSender struct {
	subscribers map[string][]subscriber
	client      cloudevents.Client
}

func New(cfg *Config) (EventSender, error) {
	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, err
	}

	e := &eventSender{
		subscribers: make(map[string][]subscriber),
		client:      c,
	}

	if cfg != nil {
		for _, n := range cfg.Notifications {
			for _, s := range n.Subscribers {
				sub := subscriber{endpoint: s.Endpoint}

				for _, info := range s.Information {
					for _, entity := range info.Entities {
						re, err := regexp.Compile(entity.IDPattern)
						if err != nil {
							return nil, fmt.Errorf("bad idPattern %q for subscriber %s: %w", entity.IDPattern, s.Endpoint, err)
						}
						sub.patterns = append(sub.patterns, re)
					}
				}

				e.subscribers[n.Type] = append(e.subscribers[n.Type], sub)
			}
		}
	}

	return e, nil
}

// interested reports whether the subscriber wants events about assetID. A
// subscriber without id patterns receives everything.
func (s subscriber) interested(assetID string) bool {
	if len(s.patterns) == 0 {
		return true
	}

	for _, re := range s.patterns {
		if re.MatchString(assetID) {
			return true
		}
	}

	return false
}

func (e *eventSender) SendRejected(ctx context.Context, event types.TelemetryIngestEvent, errs []string) error {
	subscribers := e.subscribers[TelemetryRejectedType]
	if len(subscribers) == 0 {
		return nil
	}

	ce := cloudevents.NewEvent()
	ce.SetID(event.ID)
	ce.SetTime(event.ReceivedAt)
	ce.SetSource(eventSource)
	ce.SetType(TelemetryRejectedType)

	eventData := struct {
		EventID    string   `json:"eventID"`
		AssetID    string   `json:"assetID,omitempty"`
		DeviceID   string   `json:"deviceID"`
		Errors     []string `json:"errors"`
		RecordedAt string   `json:"recordedAt"`
	}{
		EventID:    event.ID,
		AssetID:    event.AssetID,
		DeviceID:   event.DeviceID,
		Errors:     errs,
		RecordedAt: event.Payload.RecordedAt,
	}

	err := ce.SetData(cloudevents.ApplicationJSON, eventData)
	if err != nil {
		return err
	}

	logger := logging.GetLoggerFromContext(ctx)

	for _, s := range subscribers {
		if !s.interested(event.AssetID) {
			continue
		}

		ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.endpoint)

		result := e.client.Send(ctxWithTarget, ce)
		if cloudevents.IsUndelivered(result) || errors.Is(result, unix.ECONNREFUSED) {
			logger.Error().Err(result).Msgf("failed to send event to %s", s.endpoint)
			err = fmt.Errorf("%w", result)
		}
	}

	return err
}

type EntityInfo struct {
	IDPattern string `yaml:"idPattern"`
}

type RegistrationInfo struct {
	Entities []EntityInfo `yaml:"entities"`
}

type SubscriberConfig struct {
	Endpoint    string             `yaml:"endpoint"`
	Information []RegistrationInfo `yaml:"information"`
}

type Notification struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
}

type Config struct {
	Notifications []Notification `yaml:"notifications"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err == nil {
		return &cfg, nil
	} else {
		return nil, err
	}
}
