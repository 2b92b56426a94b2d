package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var tracer = otel.Tracer("asset-telemetry-client")

var ErrBadRequest = errors.New("request was rejected as malformed")
var ErrUnexpectedStatus = errors.New("unexpected response status")

type AssetTelemetryClient interface {
	ValidateEvent(ctx context.Context, event types.TelemetryEvent) (ValidationResult, error)
	ValidateEvents(ctx context.Context, events []types.TelemetryEvent) (BatchResult, error)
	// Ingest submits a device payload. A payload that fails validation is not
	// an error, the returned IngestResult carries the failed event.
	Ingest(ctx context.Context, payload types.TelemetryIngestPayload) (IngestResult, error)
}

type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type BatchSummary struct {
	Total         int `json:"total"`
	Valid         int `json:"valid"`
	Invalid       int `json:"invalid"`
	TotalErrors   int `json:"totalErrors"`
	TotalWarnings int `json:"totalWarnings"`
}

type BatchResult struct {
	Valid   bool               `json:"valid"`
	Results []ValidationResult `json:"results"`
	Summary BatchSummary       `json:"summary"`
}

type IngestResult struct {
	Event      types.TelemetryIngestEvent `json:"event"`
	Validation ValidationResult           `json:"validation"`
}

type assetTelemetryClient struct {
	url        string
	httpClient http.Client
}

// New creates a client for the service at url. When oauthTokenURL is empty
// requests are sent without credentials.
func New(ctx context.Context, url, oauthTokenURL, oauthClientID, oauthClientSecret string) (AssetTelemetryClient, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	c := &assetTelemetryClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: httpClient,
	}

	if oauthTokenURL == "" {
		return c, nil
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     oauthClientID,
		ClientSecret: oauthClientSecret,
		TokenURL:     oauthTokenURL,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &httpClient)

	token, err := oauthConfig.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials from %s: %w", oauthConfig.TokenURL, err)
	}

	if !token.Valid() {
		return nil, fmt.Errorf("an invalid token was returned from %s", oauthTokenURL)
	}

	c.httpClient = *oauthConfig.Client(ctx)

	return c, nil
}

func (c *assetTelemetryClient) ValidateEvent(ctx context.Context, event types.TelemetryEvent) (ValidationResult, error) {
	var err error
	ctx, span := tracer.Start(ctx, "validate-event")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result := ValidationResult{}
	err = c.post(ctx, "/api/v0/telemetry/validate", event, &result, http.StatusOK)

	return result, err
}

func (c *assetTelemetryClient) ValidateEvents(ctx context.Context, events []types.TelemetryEvent) (BatchResult, error) {
	var err error
	ctx, span := tracer.Start(ctx, "validate-events")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if events == nil {
		events = []types.TelemetryEvent{}
	}

	result := BatchResult{}
	err = c.post(ctx, "/api/v0/telemetry/validate/batch", events, &result, http.StatusOK)

	return result, err
}

func (c *assetTelemetryClient) Ingest(ctx context.Context, payload types.TelemetryIngestPayload) (IngestResult, error) {
	var err error
	ctx, span := tracer.Start(ctx, "ingest-payload")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetLoggerFromContext(ctx)
	log.Debug().Msgf("submitting payload from device %s", payload.DeviceID)

	result := IngestResult{}
	err = c.post(ctx, "/api/v0/telemetry/ingest", payload, &result, http.StatusCreated, http.StatusUnprocessableEntity)

	return result, err
}

func (c *assetTelemetryClient) post(ctx context.Context, path string, body, result any, accepted ...int) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewBuffer(b))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrBadRequest, strings.TrimSpace(string(respBody)))
	}

	if !statusIn(resp.StatusCode, accepted) {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	err = json.Unmarshal(respBody, result)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return nil
}

func statusIn(code int, accepted []int) bool {
	for _, a := range accepted {
		if a == code {
			return true
		}
	}
	return false
}
