package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/events"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/generator"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/ingest"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/maintenance"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/settings"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/watchdog"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/webevents"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/router"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/presentation/api"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const serviceName string = "iot-asset-telemetry"

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	logLevel
	otelEndpoint

	policiesFile
	notificationsFile

	dbConnectRetries

	devmode
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",
		logLevel:      "info",
		otelEndpoint:  "",

		policiesFile:      "/opt/diwise/config/authz.rego",
		notificationsFile: "/opt/diwise/config/notifications.yaml",

		dbConnectRetries: "5",

		devmode: "false",
	}
}

func main() {
	ctx, flags := parseExternalConfig(context.Background(), defaultFlags())

	serviceVersion := version()

	ctx, logger := logging.NewLogger(ctx, serviceName, serviceVersion, flags[logLevel])
	logger.Info().Msg("starting up ...")

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion, flags[otelEndpoint])
	exitIf(err, logger, "failed to init tracing")
	defer cleanup()

	pipeline, err := settings.Load()
	exitIf(err, logger, "invalid pipeline settings")

	policies, err := os.Open(flags[policiesFile])
	exitIf(err, logger, "unable to open opa policy file")
	defer policies.Close()

	var messenger messaging.MsgContext

	if flags[devmode] != "true" {
		messenger, err = messaging.Initialize(messaging.LoadConfiguration(serviceName, logger))
		exitIf(err, logger, "failed to init messenger")
		defer messenger.Close()
	}

	if pipeline.TelemetryQueueURL != "" {
		logger.Info().Str("queue", pipeline.TelemetryQueueURL).Msg("telemetry queue configured")
	}

	r, wd, err := initialize(ctx, flags, pipeline, policies, readNotifications(flags[notificationsFile], logger), messenger)
	exitIf(err, logger, "failed to initialize service")

	wd.Start(ctx)
	defer wd.Stop()

	addr := flags[listenAddress] + ":" + flags[servicePort]
	logger.Info().Str("addr", addr).Msg("starting to listen for connections")

	err = http.ListenAndServe(addr, r)
	exitIf(err, logger, "failed to start request router")
}

// initialize wires storage, services and the request router. A nil messenger
// disables the telemetry topics. The returned watchdog is not started.
func initialize(ctx context.Context, flags flagMap, pipeline settings.Pipeline, policies, notifications io.Reader, messenger messaging.MsgContext) (*chi.Mux, watchdog.Watchdog, error) {
	log := logging.GetLoggerFromContext(ctx)

	repo, err := database.New(newConnector(ctx, log, flags, pipeline))
	if err != nil {
		return nil, nil, err
	}

	var notificationCfg *events.Config
	if notifications != nil {
		notificationCfg, err = events.LoadConfiguration(notifications)
		if err != nil {
			return nil, nil, err
		}
	}

	sender, err := events.New(notificationCfg)
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m, err := metrics.New(reg)
	if err != nil {
		return nil, nil, err
	}

	var publisher ingest.Publisher
	if messenger != nil {
		publisher = messenger
	}

	g := generator.Default()
	feed := webevents.New()

	ingestSvc := ingest.New(repo, publisher, sender, m, ingest.Config{
		Defaults: generator.EventDefaults{
			FacilityID:  pipeline.FacilityID,
			Environment: pipeline.Environment,
			ServiceName: serviceName,
		},
		Feed: feed,
	})

	if messenger != nil {
		messenger.RegisterTopicMessageHandler(ingest.TopicName, ingest.NewIngestMessageHandler(ingestSvc))
	}

	wd := watchdog.New(repo, func() []string {
		return lo.Map(g.ListTelemetryAssets(), func(s generator.Seed, _ int) string { return s.AssetID })
	}, publisher, watchdog.Config{
		Interval: time.Duration(pipeline.PollIntervalMs) * time.Millisecond,
	})

	r := router.New(serviceName, router.WithLogger(log))

	_, err = api.RegisterHandlers(ctx, r, policies, api.Services{
		Ingest:      ingestSvc,
		Maintenance: maintenance.New(g, publisher),
		Generator:   g,
		Metrics:     m,
		Stream:      feed.Handler(),
	})
	if err != nil {
		return nil, nil, err
	}

	return r, wd, nil
}

func newConnector(ctx context.Context, log zerolog.Logger, flags flagMap, pipeline settings.Pipeline) database.ConnectorFunc {
	if pipeline.TimescaleURL == "" || flags[devmode] == "true" {
		log.Info().Msg("no timescale url configured, using in memory storage")
		return database.NewSQLiteConnector(log)
	}

	retries, err := strconv.Atoi(flags[dbConnectRetries])
	if err != nil {
		retries = 1
	}

	return database.NewPostgreSQLConnector(ctx, log, database.ConnectorConfig{
		DSN:            pipeline.TimescaleURL,
		BatchSize:      pipeline.BatchSize,
		ConnectRetries: retries,
		RetryDelay:     time.Duration(pipeline.PollIntervalMs) * time.Millisecond,
	})
}

// readNotifications reads the whole notification configuration so that no
// file handle outlives the call. A missing file yields a nil reader.
func readNotifications(path string, log zerolog.Logger) io.Reader {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Info().Msgf("no notification configuration loaded (%s)", err.Error())
		return nil
	}
	return bytes.NewReader(b)
}

func parseExternalConfig(ctx context.Context, flags flagMap) (context.Context, flagMap) {
	// Allow environment variables to override certain defaults
	envOrDef := func(name string, def string) string {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		return def
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])
	flags[logLevel] = envOrDef("LOG_LEVEL", flags[logLevel])
	flags[otelEndpoint] = envOrDef("OTEL_EXPORTER_OTLP_ENDPOINT", flags[otelEndpoint])
	flags[policiesFile] = envOrDef("POLICIES_FILE", flags[policiesFile])
	flags[notificationsFile] = envOrDef("NOTIFICATIONS_FILE", flags[notificationsFile])
	flags[dbConnectRetries] = envOrDef("DB_CONNECT_RETRIES", flags[dbConnectRetries])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("policies", "an authorization policy file", apply(policiesFile))
	flag.Func("notifications", "subscribers of rejected telemetry", apply(notificationsFile))
	flag.Func("loglevel", "minimum level to log", apply(logLevel))
	flag.Func("devmode", "run without message broker and timescale", apply(devmode))
	flag.Parse()

	return ctx, flags
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	buildSettings := buildInfo.Settings
	infoMap := map[string]string{}
	for _, s := range buildSettings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	return sha
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Error().Err(err).Msg(msg)
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}
}
