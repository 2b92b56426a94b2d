package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/generator"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/ingest"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/maintenance"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/validation"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/router"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestHealth(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/health", "", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestThatRequestsWithoutTokenAreUnauthorized(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/api/v0/assets", "", nil)
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
}

func TestValidateEvent(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate", writerToken, strings.NewReader(temperatureJSON))
	is.Equal(resp.StatusCode, http.StatusOK)

	result := validation.Result{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.True(result.Valid)
	is.Equal(len(result.Errors), 0)
}

func TestThatUrgentSeverityIsReportedAsInvalid(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	event := strings.Replace(temperatureJSON, `"severity":"info"`, `"severity":"urgent"`, 1)

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate", writerToken, strings.NewReader(event))
	is.Equal(resp.StatusCode, http.StatusOK)

	result := validation.Result{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.True(!result.Valid)
	is.Equal(len(result.Errors), 1)
	is.True(strings.Contains(result.Errors[0], "urgent"))
}

func TestThatNonObjectIsABadRequest(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate", writerToken, strings.NewReader(`"not an object"`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestValidateBatch(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	invalid := strings.Replace(temperatureJSON, `"severity":"info"`, `"severity":"urgent"`, 1)
	batch := "[" + temperatureJSON + "," + invalid + "]"

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate/batch", writerToken, strings.NewReader(batch))
	is.Equal(resp.StatusCode, http.StatusOK)

	result := validation.BatchResult{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.True(!result.Valid)
	is.Equal(result.Summary.Total, 2)
	is.Equal(result.Summary.Invalid, 1)
	is.True(result.Results[0].Valid)
}

func TestThatReaderCannotValidate(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate", readerToken, strings.NewReader(temperatureJSON))
	is.Equal(resp.StatusCode, http.StatusForbidden)
}

func TestIngest(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	payload, _ := json.Marshal(generator.New().TelemetryIngestEvents()[0].Payload)

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/ingest", writerToken, strings.NewReader(string(payload)))
	is.Equal(resp.StatusCode, http.StatusCreated)

	response := IngestResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &response))
	is.Equal(response.Event.Status, types.IngestStatusProcessed)
	is.True(response.Validation.Valid)

	resp, body = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-alaris/telemetry", writerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	telemetry := struct {
		Data []types.TelemetryEvent `json:"data"`
	}{}
	is.NoErr(json.Unmarshal([]byte(body), &telemetry))
	is.Equal(len(telemetry.Data), 1)
	is.Equal(telemetry.Data[0].Labels.LabeledBy, "synthetic-generator")
}

func TestThatInvalidIngestPayloadIsUnprocessable(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	p := generator.New().TelemetryIngestEvents()[0].Payload
	p.Latitude = 123.4
	payload, _ := json.Marshal(p)

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/ingest", writerToken, strings.NewReader(string(payload)))
	is.Equal(resp.StatusCode, http.StatusUnprocessableEntity)

	response := IngestResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &response))
	is.Equal(response.Event.Status, types.IngestStatusFailed)
	is.Equal(len(response.Validation.Errors), 1)
}

func TestThatWronglyTypedMembersAreUnprocessable(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	payload := `{"assetId":"asset-alaris","deviceId":"dev-1","latitude":"north","longitude":-71.1,"status":"available","recordedAt":"2024-03-14T09:29:30.000Z"}`

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/ingest", writerToken, strings.NewReader(payload))
	is.Equal(resp.StatusCode, http.StatusUnprocessableEntity)

	response := IngestResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &response))
	is.Equal(response.Validation.Errors, []string{"latitude must be a finite number, got: string"})

	resp, body = testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate", writerToken, strings.NewReader(strings.Replace(temperatureJSON, `"value":37.2`, `"value":"high"`, 1)))
	is.Equal(resp.StatusCode, http.StatusOK)

	result := validation.Result{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.True(!result.Valid)
	is.Equal(result.Errors, []string{"value must be a finite number, got: string"})
}

func TestThatStoredIngestRecordsCanBeQueried(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	payload, _ := json.Marshal(generator.New().TelemetryIngestEvents()[0].Payload)

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry/ingest", writerToken, strings.NewReader(string(payload)))
	is.Equal(resp.StatusCode, http.StatusCreated)

	created := IngestResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &created))

	resp, body = testRequest(is, server, http.MethodGet, "/api/v0/telemetry/ingest-events/"+created.Event.ID, readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, created.Event.ID))

	resp, _ = testRequest(is, server, http.MethodGet, "/api/v0/telemetry/ingest-events/nosuchevent", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)

	resp, body = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-alaris/ingest-events", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"count":1`))

	resp, body = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-alaris/locations?limit=5", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	locations := struct {
		Data []types.AssetLocationPing `json:"data"`
	}{}
	is.NoErr(json.Unmarshal([]byte(body), &locations))
	is.Equal(len(locations.Data), 1)
	is.Equal(locations.Data[0].AssetID, "asset-alaris")

	resp, _ = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-alaris/locations?limit=all", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestListAssetsAndPings(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet, "/api/v0/assets", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"count":3`))

	resp, body = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-monitor/pings?count=4", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	pings := struct {
		Data []types.AssetLocationPing `json:"data"`
	}{}
	is.NoErr(json.Unmarshal([]byte(body), &pings))
	is.Equal(len(pings.Data), 4)
	is.Equal(pings.Data[0].ID, "asset-monitor-1710408600000")

	resp, _ = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-monitor/pings?count=many", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	resp, body = testRequest(is, server, http.MethodGet, "/api/v0/assets/asset-monitor/pings/latest", readerToken, nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"assetId":"asset-monitor"`))
}

func TestPatchMaintenanceTask(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodPatch, "/api/v0/maintenance/tasks/maint-alaris", writerToken, strings.NewReader(`{"status":"completed"}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	tasks := struct {
		Data []types.MaintenanceTask `json:"data"`
	}{}
	is.NoErr(json.Unmarshal([]byte(body), &tasks))
	is.Equal(tasks.Data[0].Status, types.MaintenanceStatusCompleted)
	is.True(tasks.Data[0].CompletedAt != nil)

	resp, _ = testRequest(is, server, http.MethodPatch, "/api/v0/maintenance/tasks/maint-alaris", writerToken, strings.NewReader(`{"status":"finished"}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	resp, _ = testRequest(is, server, http.MethodPatch, "/api/v0/maintenance/tasks/maint-alaris", readerToken, strings.NewReader(`{"status":"completed"}`))
	is.Equal(resp.StatusCode, http.StatusForbidden)
}

func TestListMaintenanceTasksAndLogs(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	_, body := testRequest(is, server, http.MethodGet, "/api/v0/maintenance/tasks", readerToken, nil)
	is.True(strings.Contains(body, `"count":3`))

	_, body = testRequest(is, server, http.MethodGet, "/api/v0/maintenance/logs", readerToken, nil)
	is.True(strings.Contains(body, `"count":7`))

	_, body = testRequest(is, server, http.MethodGet, "/api/v0/telemetry/ingest-events", readerToken, nil)
	is.True(strings.Contains(body, `"count":9`))
}

func TestThatMetricsAreExposed(t *testing.T) {
	is, server := testSetup(t)
	defer server.Close()

	testRequest(is, server, http.MethodPost, "/api/v0/telemetry/validate", writerToken, strings.NewReader(temperatureJSON))

	resp, body := testRequest(is, server, http.MethodGet, "/metrics", "", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `asset_telemetry_validated_events_total{result="valid"} 1`))
}

const (
	readerToken string = "reader-token"
	writerToken string = "writer-token"
)

const testPolicy string = `package biotrakr.authz

default allow = false

allow = response {
	input.token == "reader-token"
	response := {"subject": "user-viewer", "scopes": ["telemetry.read"]}
}

allow = response {
	input.token == "writer-token"
	response := {"subject": "user-tech", "scopes": ["telemetry.read", "telemetry.write", "maintenance.write"]}
}
`

const temperatureJSON string = `{"name":"asset.pump.sensor.temperature_celsius","timestamp":"2024-03-14T09:30:00.000Z","facility_id":"facility-1","asset_id":"asset-alaris","environment":"test","service_name":"asset-telemetry","severity":"info","value":37.2,"unit":"celsius"}`

func testSetup(t *testing.T) (*is.I, *httptest.Server) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := database.New(database.NewSQLiteConnector(zerolog.Logger{}))
	is.NoErr(err)

	m, err := metrics.New(prometheus.NewRegistry())
	is.NoErr(err)

	now := func() time.Time { return time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC) }
	g := generator.New(generator.WithClock(now))

	svc := Services{
		Ingest: ingest.New(repo, nil, nil, m, ingest.Config{
			Defaults: generator.EventDefaults{FacilityID: "facility-1", Environment: "test", ServiceName: "asset-telemetry"},
		}),
		Maintenance: maintenance.New(g, nil),
		Generator:   g,
		Metrics:     m,
	}

	r := router.New("test")
	_, err = RegisterHandlers(ctx, r, strings.NewReader(testPolicy), svc)
	is.NoErr(err)

	return is, httptest.NewServer(r)
}

func testRequest(is *is.I, ts *httptest.Server, method, path, token string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}
