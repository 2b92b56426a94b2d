package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/events"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/generator"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/validation"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/webevents"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const TopicName string = "telemetry.ingest"

var tracer = otel.Tracer("iot-asset-telemetry/ingest")

// Publisher is the part of the messaging context the service needs.
type Publisher interface {
	PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error
}

type Service interface {
	// Ingest validates, stores and announces a device payload. The returned
	// event is failed when validation reported errors, the error return is
	// reserved for infrastructure failures.
	Ingest(ctx context.Context, payload types.TelemetryIngestPayload, submittedBy string) (types.TelemetryIngestEvent, validation.Result, error)
	IngestEvent(ctx context.Context, eventID string) (types.TelemetryIngestEvent, error)
	IngestEvents(ctx context.Context, assetID string, limit int) ([]types.TelemetryIngestEvent, error)
	AssetTelemetry(ctx context.Context, assetID string, limit int) ([]types.TelemetryEvent, error)
	LocationPings(ctx context.Context, assetID string, limit int) ([]types.AssetLocationPing, error)
}

// Feed receives the outcome of every ingested payload, see webevents.
type Feed interface {
	Publish(event string, data any) error
}

type Config struct {
	Defaults generator.EventDefaults
	Feed     Feed
}

type service struct {
	repository database.TelemetryRepository
	publisher  Publisher
	sender     events.EventSender
	feed       Feed
	metrics    *metrics.Metrics
	defaults   generator.EventDefaults
	now        func() time.Time
}

func New(repository database.TelemetryRepository, publisher Publisher, sender events.EventSender, m *metrics.Metrics, cfg Config) Service {
	return &service{
		repository: repository,
		publisher:  publisher,
		sender:     sender,
		feed:       cfg.Feed,
		metrics:    m,
		defaults:   cfg.Defaults,
		now:        time.Now,
	}
}

func (s *service) Ingest(ctx context.Context, payload types.TelemetryIngestPayload, submittedBy string) (types.TelemetryIngestEvent, validation.Result, error) {
	var err error

	ctx, span := tracer.Start(ctx, "ingest-telemetry")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	ctx, log := logging.WithTraceID(ctx)

	started := s.now()

	assetID := payload.AssetID
	if assetID == "" {
		assetID = payload.AssetExternalID
	}

	if submittedBy != "" && payload.MLLabels != nil && payload.MLLabels.LabeledBy == "" {
		labels := *payload.MLLabels
		labels.LabeledBy = submittedBy
		payload.MLLabels = &labels
	}

	var telemetry *types.TelemetryEvent
	if payload.MetricName != "" || payload.MetricValue != nil {
		e := generator.IngestPayloadToEvent(payload, s.defaults)
		telemetry = &e
	}

	result := validation.ValidateIngest(payload, telemetry)
	s.metrics.ObserveValidation(result.Valid, len(result.Errors), len(result.Warnings))

	processedAt := s.now().UTC()
	event := types.TelemetryIngestEvent{
		ID:          uuid.NewString(),
		AssetID:     assetID,
		DeviceID:    payload.DeviceID,
		Payload:     payload,
		ReceivedAt:  started.UTC(),
		ProcessedAt: &processedAt,
		Status:      types.IngestStatusProcessed,
	}

	if !result.Valid {
		event.Status = types.IngestStatusFailed
	}

	log = log.With().Str("eventID", event.ID).Str("deviceID", event.DeviceID).Logger()

	if result.Valid {
		err = s.store(ctx, event, telemetry)
		if err != nil {
			return types.TelemetryIngestEvent{}, result, err
		}
	} else {
		err = s.repository.AddIngestEvent(ctx, event)
		if err != nil {
			return types.TelemetryIngestEvent{}, result, fmt.Errorf("could not store ingest event: %w", err)
		}

		log.Info().Msgf("rejected telemetry payload with %d errors", len(result.Errors))

		if s.sender != nil {
			if sendErr := s.sender.SendRejected(ctx, event, result.Errors); sendErr != nil {
				log.Error().Err(sendErr).Msg("failed to notify subscribers about rejected payload")
			}
		}
	}

	ingested := &types.TelemetryIngested{
		EventID:   event.ID,
		AssetID:   event.AssetID,
		DeviceID:  event.DeviceID,
		Status:    event.Status,
		Errors:    result.Errors,
		Timestamp: processedAt,
	}

	if s.publisher != nil {
		if pubErr := s.publisher.PublishOnTopic(ctx, ingested); pubErr != nil {
			log.Error().Err(pubErr).Msg("failed to publish ingested message")
		}
	}

	if s.feed != nil {
		if feedErr := s.feed.Publish(webevents.IngestedEvent, ingested); feedErr != nil {
			log.Error().Err(feedErr).Msg("failed to push ingested event to web clients")
		}
	}

	s.metrics.ObserveIngest(string(event.Status), started)

	return event, result, nil
}

// store saves a processed event along with the telemetry and location ping
// derived from it, in a single transaction.
func (s *service) store(ctx context.Context, event types.TelemetryIngestEvent, telemetry *types.TelemetryEvent) error {
	var derived []types.TelemetryEvent
	if telemetry != nil {
		derived = append(derived, *telemetry)
	}

	var pings []types.AssetLocationPing

	if event.AssetID != "" {
		observedAt, err := time.Parse(time.RFC3339Nano, event.Payload.RecordedAt)
		if err != nil {
			return err
		}

		pings = append(pings, types.AssetLocationPing{
			ID:         fmt.Sprintf("%s-%d", event.AssetID, observedAt.UnixMilli()),
			AssetID:    event.AssetID,
			Latitude:   event.Payload.Latitude,
			Longitude:  event.Payload.Longitude,
			Status:     event.Payload.Status,
			ObservedAt: observedAt.UTC(),
			Metadata:   event.Payload.Metadata,
		})
	}

	if err := s.repository.StoreIngest(ctx, event, derived, pings); err != nil {
		return fmt.Errorf("could not store ingest event: %w", err)
	}

	return nil
}

func (s *service) IngestEvent(ctx context.Context, eventID string) (types.TelemetryIngestEvent, error) {
	return s.repository.GetIngestEvent(ctx, eventID)
}

func (s *service) IngestEvents(ctx context.Context, assetID string, limit int) ([]types.TelemetryIngestEvent, error) {
	return s.repository.GetIngestEvents(ctx, assetID, limit)
}

func (s *service) AssetTelemetry(ctx context.Context, assetID string, limit int) ([]types.TelemetryEvent, error) {
	return s.repository.GetTelemetryEvents(ctx, assetID, limit)
}

func (s *service) LocationPings(ctx context.Context, assetID string, limit int) ([]types.AssetLocationPing, error) {
	return s.repository.GetLocationPings(ctx, assetID, limit)
}
