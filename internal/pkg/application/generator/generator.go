package generator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/samber/lo"
)

const DefaultPingCount int = 10

const (
	pingIntervalMinutes = 4
	latitudeStep        = 0.00025
	longitudeStep       = 0.00018
	minBatteryLevel     = 20
)

var pingSignalStrengths = []string{"excellent", "good", "fair"}

// Generator produces reproducible synthetic telemetry for a fixed seed table.
// Maintenance tasks and ingest events are fixed when the generator is created,
// location pings are relative to the clock at the time of the call.
type Generator struct {
	seeds        []Seed
	now          func() time.Time
	tasks        []types.MaintenanceTask
	ingestEvents []types.TelemetryIngestEvent
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func WithSeeds(seeds []Seed) Option {
	return func(g *Generator) {
		g.seeds = append([]Seed{}, seeds...)
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	if len(g.seeds) == 0 {
		g.seeds = builtinSeeds()
	}

	createdAt := g.now().UTC()
	g.tasks = seedMaintenanceTasks(createdAt)
	g.ingestEvents = g.simulateIngestEvents(createdAt)

	return g
}

// ListTelemetryAssets returns a copy of the seed table.
func (g *Generator) ListTelemetryAssets() []Seed {
	return append([]Seed{}, g.seeds...)
}

func (g *Generator) findSeed(assetID string) (Seed, bool) {
	return lo.Find(g.seeds, func(s Seed) bool {
		return s.AssetID == assetID || s.AssetKey == assetID
	})
}

// AssetLocationPings returns a trail of count pings, one every four minutes
// walking backwards from now, most recent first. Unknown assets get a trail
// around a fallback seed.
func (g *Generator) AssetLocationPings(assetID string, count int) []types.AssetLocationPing {
	if count <= 0 {
		return []types.AssetLocationPing{}
	}

	seed, ok := g.findSeed(assetID)
	if !ok {
		seed = fallbackSeed(assetID)
	}

	now := g.now().UTC()

	pings := make([]types.AssetLocationPing, 0, count)
	for i := 0; i < count; i++ {
		pings = append(pings, buildPing(now, seed, i*pingIntervalMinutes, i))
	}

	return pings
}

func (g *Generator) LatestPing(assetID string) types.AssetLocationPing {
	return g.AssetLocationPings(assetID, 1)[0]
}

func buildPing(now time.Time, seed Seed, offsetMinutes, jitter int) types.AssetLocationPing {
	observedAt := now.Add(-time.Duration(offsetMinutes) * time.Minute)

	status := seed.Status
	if jitter%3 == 0 {
		status = types.AssetStatusMaintenance
	}

	return types.AssetLocationPing{
		ID:         fmt.Sprintf("%s-%d", seed.AssetID, observedAt.UnixMilli()),
		AssetID:    seed.AssetID,
		Latitude:   round6(seed.BaseLatitude + float64(jitter)*latitudeStep),
		Longitude:  round6(seed.BaseLongitude + float64(jitter)*longitudeStep),
		Status:     status,
		ObservedAt: observedAt,
		Metadata: map[string]any{
			"signalStrength": pingSignalStrengths[jitter%len(pingSignalStrengths)],
			"batteryLevel":   lo.Max([]int{minBatteryLevel, 100 - jitter*5}),
		},
	}
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
)

// Default returns the process wide generator, created on first use.
func Default() *Generator {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = New()
	})
	return defaultGenerator
}

func ListTelemetryAssets() []Seed {
	return Default().ListTelemetryAssets()
}

func AssetLocationPings(assetID string, count int) []types.AssetLocationPing {
	return Default().AssetLocationPings(assetID, count)
}

func LatestPing(assetID string) types.AssetLocationPing {
	return Default().LatestPing(assetID)
}

func MaintenanceTasks() []types.MaintenanceTask {
	return Default().MaintenanceTasks()
}

func UpdateMaintenanceTaskStatus(taskID string, status types.MaintenanceStatus) ([]types.MaintenanceTask, error) {
	return Default().UpdateMaintenanceTaskStatus(taskID, status)
}

func ListMaintenanceEventLogs() []types.MaintenanceEventLog {
	return Default().ListMaintenanceEventLogs()
}

func TelemetryIngestEvents() []types.TelemetryIngestEvent {
	return Default().TelemetryIngestEvents()
}
