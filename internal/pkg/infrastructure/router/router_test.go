package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestThatLoggerIsStoredInRequestContext(t *testing.T) {
	is := is.New(t)

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)
	r := New("router-test", WithLogger(logger))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		log := logging.GetLoggerFromContext(r.Context())
		log.Info().Msg("pong")
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	is.Equal(w.Code, http.StatusNoContent)
	is.True(strings.Contains(buf.String(), "pong"))
}

func TestThatPanicsAreRecovered(t *testing.T) {
	is := is.New(t)

	r := New("router-test")
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	is.Equal(w.Code, http.StatusInternalServerError)
}

func TestThatCorsPreflightIsAnswered(t *testing.T) {
	is := is.New(t)

	r := New("router-test", WithAllowedOrigins("https://biotrakr.example"))
	r.Post("/api", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://biotrakr.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	is.Equal(w.Header().Get("Access-Control-Allow-Origin"), "https://biotrakr.example")
}
