package ingest

import (
	"context"
	"encoding/json"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// NewIngestMessageHandler processes TelemetryIngestPayloads pushed on the
// telemetry.ingest topic. Rejected payloads are not redelivered, the outcome
// is announced on telemetry.ingested.
func NewIngestMessageHandler(svc Service) messaging.TopicMessageHandler {
	return func(ctx context.Context, msg amqp.Delivery, logger zerolog.Logger) {
		payload := types.TelemetryIngestPayload{}

		err := json.Unmarshal(msg.Body, &payload)
		if err != nil {
			logger.Error().Err(err).Msgf("failed to unmarshal message from %s", msg.RoutingKey)
			return
		}

		logger = logger.With().Str("deviceID", payload.DeviceID).Logger()
		ctx = logging.NewContextWithLogger(ctx, logger)

		event, result, err := svc.Ingest(ctx, payload, "")
		if err != nil {
			logger.Error().Err(err).Msg("could not ingest telemetry payload")
			return
		}

		if !result.Valid {
			logger.Warn().Str("eventID", event.ID).Strs("errors", result.Errors).Msg("telemetry payload failed validation")
		}
	}
}
