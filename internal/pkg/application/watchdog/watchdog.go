package watchdog

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/messaging-golang/pkg/messaging"
)

const DefaultMaxSilence time.Duration = 15 * time.Minute

type Publisher interface {
	PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error
}

// Watchdog reports assets whose latest stored location ping is older than
// the allowed silence. Assets that were never observed are not reported.
type Watchdog interface {
	Start(ctx context.Context)
	Stop()
}

type Config struct {
	Interval   time.Duration
	MaxSilence time.Duration
}

type watchdogImpl struct {
	repository database.TelemetryRepository
	assets     func() []string
	publisher  Publisher
	cfg        Config
	now        func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	reported map[string]time.Time
}

func New(repository database.TelemetryRepository, assets func() []string, publisher Publisher, cfg Config) Watchdog {
	return newWatchdog(repository, assets, publisher, cfg)
}

func newWatchdog(repository database.TelemetryRepository, assets func() []string, publisher Publisher, cfg Config) *watchdogImpl {
	if cfg.MaxSilence <= 0 {
		cfg.MaxSilence = DefaultMaxSilence
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	return &watchdogImpl{
		repository: repository,
		assets:     assets,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
		done:       make(chan struct{}),
		reported:   map[string]time.Time{},
	}
}

func (w *watchdogImpl) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop ends a started watchdog. It never blocks and may be called more than
// once, also after the context passed to Start was cancelled.
func (w *watchdogImpl) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *watchdogImpl) run(ctx context.Context) {
	log := logging.GetLoggerFromContext(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := w.check(ctx)
			if n > 0 {
				log.Info().Msgf("%d assets have not been observed for %s", n, w.cfg.MaxSilence)
			}
		}
	}
}

// check publishes one message per silent asset and returns how many were
// published. An asset is reported again only after a newer ping was stored.
func (w *watchdogImpl) check(ctx context.Context) int {
	log := logging.GetLoggerFromContext(ctx)
	now := w.now().UTC()
	count := 0

	for _, assetID := range w.assets() {
		pings, err := w.repository.GetLocationPings(ctx, assetID, 1)
		if err != nil {
			log.Error().Err(err).Msgf("could not fetch location pings for %s", assetID)
			continue
		}

		if len(pings) == 0 {
			continue
		}

		lastObserved := pings[0].ObservedAt
		if secondsUntilSilent(lastObserved, w.cfg.MaxSilence, now) > 0 {
			continue
		}

		if previous, ok := w.reported[assetID]; ok && previous.Equal(lastObserved) {
			continue
		}

		w.reported[assetID] = lastObserved
		count++

		if w.publisher == nil {
			continue
		}

		err = w.publisher.PublishOnTopic(ctx, &AssetNotObserved{
			AssetID:      assetID,
			LastObserved: lastObserved,
			Timestamp:    now,
		})
		if err != nil {
			log.Error().Err(err).Msgf("failed to publish not observed message for %s", assetID)
		}
	}

	return count
}

// secondsUntilSilent is zero or negative once lastObserved is more than
// maxSilence in the past.
func secondsUntilSilent(lastObserved time.Time, maxSilence time.Duration, now time.Time) int {
	deadline := lastObserved.Add(maxSilence)
	return int(math.Floor(deadline.Sub(now).Seconds()))
}
