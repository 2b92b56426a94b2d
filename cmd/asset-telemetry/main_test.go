package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/settings"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestSetup(t *testing.T) {
	r, is := setupTest(t)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/health", nil)

	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestThatKnownAssetsAreListed(t *testing.T) {
	r, is := setupTest(t)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet, "/api/v0/assets", nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"assetId":"asset-alaris"`))
}

func TestThatUnknownRouteReturns404(t *testing.T) {
	r, is := setupTest(t)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/api/v0/devices/nosuchdevice", nil)

	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestThatBadNotificationConfigFailsInitialize(t *testing.T) {
	is := is.New(t)

	_, _, err := initialize(context.Background(), defaultFlags(), settings.Pipeline{}, strings.NewReader(policies), strings.NewReader("notifications: [ {"), nil)
	is.True(err != nil)
}

func setupTest(t *testing.T) (*chi.Mux, *is.I) {
	is := is.New(t)

	flags := defaultFlags()
	flags[devmode] = "true"

	pipeline, err := settings.Parse(func(key string) (string, bool) { return "", false })
	is.NoErr(err)

	r, _, err := initialize(context.Background(), flags, pipeline, strings.NewReader(policies), strings.NewReader(notifications), nil)
	is.NoErr(err)

	return r, is
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	req.Header.Set("Authorization", "Bearer viewer-token")

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}

func TestThatNoTimescaleURLSelectsInMemoryStorage(t *testing.T) {
	is := is.New(t)

	connect := newConnector(context.Background(), zerolog.Logger{}, defaultFlags(), settings.Pipeline{})
	db, _, err := connect()
	is.NoErr(err)
	is.Equal(db.Dialector.Name(), "sqlite")
}

func TestReadNotifications(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "notifications.yaml")
	is.NoErr(os.WriteFile(path, []byte(notifications), 0600))

	r := readNotifications(path, zerolog.Logger{})
	is.True(r != nil)

	// the configuration is held in memory, the file is no longer needed
	is.NoErr(os.Remove(path))

	b, err := io.ReadAll(r)
	is.NoErr(err)
	is.Equal(string(b), notifications)

	is.True(readNotifications(path, zerolog.Logger{}) == nil)
}

const policies string = `package biotrakr.authz

default allow = false

allow = response {
	input.token == "viewer-token"
	response := {"subject": "user-viewer", "scopes": ["telemetry.read"]}
}
`

const notifications string = `
notifications:
  - id: rejected-telemetry
    type: biotrakr.telemetry.rejected
    subscribers:
      - endpoint: http://quality-monitor:8080/events
        information:
          - entities:
              - idPattern: ^asset-
`
