package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/generator"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/ingest"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/maintenance"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/validation"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/presentation/api/auth"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("iot-asset-telemetry/api")

type Services struct {
	Ingest      ingest.Service
	Maintenance maintenance.Service
	Generator   *generator.Generator
	Metrics     *metrics.Metrics
	// Stream serves live ingest outcomes as server sent events, optional.
	Stream http.Handler
}

func RegisterHandlers(ctx context.Context, router *chi.Mux, policies io.Reader, svc Services) (*chi.Mux, error) {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())

	log := logging.GetLoggerFromContext(ctx)

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return nil, fmt.Errorf("failed to create api authenticator: %w", err)
	}

	read := authenticator.RequireAccess(auth.TelemetryRead)
	write := authenticator.RequireAccess(auth.TelemetryWrite)

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/telemetry", func(r chi.Router) {
			r.With(write).Post("/validate", validateEventHandler(log, svc.Metrics))
			r.With(write).Post("/validate/batch", validateBatchHandler(log, svc.Metrics))
			r.With(write).Post("/ingest", ingestHandler(log, svc.Ingest))
			r.With(read).Get("/ingest-events", syntheticIngestEventsHandler(log, svc.Generator))
			r.With(read).Get("/ingest-events/{eventID}", ingestEventHandler(log, svc.Ingest))

			if svc.Stream != nil {
				r.With(read).Method(http.MethodGet, "/stream", svc.Stream)
			}
		})

		r.Route("/assets", func(r chi.Router) {
			r.Use(read)

			r.Get("/", listAssetsHandler(log, svc.Generator))
			r.Get("/{assetID}/pings", assetPingsHandler(log, svc.Generator))
			r.Get("/{assetID}/pings/latest", latestPingHandler(log, svc.Generator))
			r.Get("/{assetID}/telemetry", assetQueryHandler(log, "get-asset-telemetry", svc.Ingest.AssetTelemetry))
			r.Get("/{assetID}/ingest-events", assetQueryHandler(log, "get-asset-ingest-events", svc.Ingest.IngestEvents))
			r.Get("/{assetID}/locations", assetQueryHandler(log, "get-asset-locations", svc.Ingest.LocationPings))
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.With(read).Get("/tasks", listTasksHandler(log, svc.Maintenance))
			r.With(authenticator.RequireAccess(auth.MaintenanceWrite)).Patch("/tasks/{taskID}", patchTaskHandler(log, svc.Maintenance))
			r.With(read).Get("/logs", listLogsHandler(log, svc.Maintenance))
		})
	})

	return router, nil
}

func validateEventHandler(log zerolog.Logger, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "validate-event")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, requestLogger := logging.WithTraceID(logging.NewContextWithLogger(ctx, log))

		event, err := validation.DecodeTelemetryEvent(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to decode telemetry event")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result := validation.ValidateTelemetryEvent(event)
		m.ObserveValidation(result.Valid, len(result.Errors), len(result.Warnings))

		writeJSON(w, http.StatusOK, result, requestLogger)
	}
}

func validateBatchHandler(log zerolog.Logger, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "validate-batch")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, requestLogger := logging.WithTraceID(logging.NewContextWithLogger(ctx, log))

		events, err := validation.DecodeTelemetryEvents(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to decode telemetry batch")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		batch, err := validation.ValidateTelemetryEventsConcurrently(ctx, events, runtime.NumCPU())
		if err != nil {
			requestLogger.Error().Err(err).Msg("batch validation aborted")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		for _, result := range batch.Results {
			m.ObserveValidation(result.Valid, len(result.Errors), len(result.Warnings))
		}

		requestLogger.Debug().Msgf("validated %d events, %d invalid", batch.Summary.Total, batch.Summary.Invalid)

		writeJSON(w, http.StatusOK, batch, requestLogger)
	}
}

func ingestHandler(log zerolog.Logger, svc ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "ingest-payload")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		ctx, requestLogger := logging.WithTraceID(logging.NewContextWithLogger(ctx, log))

		b, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var payload types.TelemetryIngestPayload
		err = json.Unmarshal(b, &payload)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to unmarshal ingest payload")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		event, result, err := svc.Ingest(ctx, payload, auth.SubjectFromContext(r.Context()))
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to ingest payload")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		status := http.StatusCreated
		if event.Status == types.IngestStatusFailed {
			status = http.StatusUnprocessableEntity
		}

		writeJSON(w, status, IngestResponse{Event: event, Validation: result}, requestLogger)
	}
}

func syntheticIngestEventsHandler(log zerolog.Logger, g *generator.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listResponse(g.TelemetryIngestEvents()), log)
	}
}

func listAssetsHandler(log zerolog.Logger, g *generator.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listResponse(g.ListTelemetryAssets()), log)
	}
}

func assetPingsHandler(log zerolog.Logger, g *generator.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		_, span := tracer.Start(r.Context(), "get-asset-pings")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		assetID := chi.URLParam(r, "assetID")
		requestLogger := log.With().Str("asset_id", assetID).Logger()

		count := generator.DefaultPingCount
		if c := r.URL.Query().Get("count"); c != "" {
			count, err = strconv.Atoi(c)
			if err != nil {
				requestLogger.Error().Err(err).Msg("count is invalid")
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		writeJSON(w, http.StatusOK, listResponse(g.AssetLocationPings(assetID, count)), requestLogger)
	}
}

func latestPingHandler(log zerolog.Logger, g *generator.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetID")
		writeJSON(w, http.StatusOK, ApiResponse{Data: g.LatestPing(assetID)}, log)
	}
}

// assetQueryHandler serves the stored records of one asset, most recent
// first, optionally limited by the limit query parameter.
func assetQueryHandler[T any](log zerolog.Logger, operation string, query func(context.Context, string, int) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), operation)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		assetID := chi.URLParam(r, "assetID")
		requestLogger := log.With().Str("asset_id", assetID).Logger()

		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			limit, err = strconv.Atoi(l)
			if err != nil {
				requestLogger.Error().Err(err).Msg("limit is invalid")
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		items, err := query(ctx, assetID, limit)
		if err != nil {
			requestLogger.Error().Err(err).Msg("could not query storage")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, listResponse(items), requestLogger)
	}
}

func ingestEventHandler(log zerolog.Logger, svc ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-ingest-event")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		eventID := chi.URLParam(r, "eventID")
		requestLogger := log.With().Str("event_id", eventID).Logger()

		event, err := svc.IngestEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, database.ErrEventNotFound) {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			requestLogger.Error().Err(err).Msg("could not fetch ingest event")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, ApiResponse{Data: event}, requestLogger)
	}
}

func listTasksHandler(log zerolog.Logger, svc maintenance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listResponse(svc.Tasks(r.Context())), log)
	}
}

func listLogsHandler(log zerolog.Logger, svc maintenance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listResponse(svc.Logs(r.Context())), log)
	}
}

func patchTaskHandler(log zerolog.Logger, svc maintenance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "patch-maintenance-task")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		ctx, requestLogger := logging.WithTraceID(logging.NewContextWithLogger(ctx, log))

		taskID := chi.URLParam(r, "taskID")
		requestLogger = requestLogger.With().Str("task_id", taskID).Logger()

		b, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var update statusUpdate
		err = json.Unmarshal(b, &update)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to unmarshal status update")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		tasks, err := svc.UpdateStatus(ctx, taskID, update.Status)
		if err != nil {
			if errors.Is(err, generator.ErrUnknownMaintenanceStatus) {
				requestLogger.Info().Err(err).Msg("rejected status update")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			requestLogger.Error().Err(err).Msg("unable to update maintenance task")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		requestLogger.Info().Msgf("maintenance task status set to %s", update.Status)

		writeJSON(w, http.StatusOK, listResponse(tasks), requestLogger)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any, log zerolog.Logger) {
	b, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("unable to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
