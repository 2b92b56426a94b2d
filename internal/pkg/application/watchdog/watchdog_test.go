package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestSecondsUntilSilent(t *testing.T) {
	is := is.New(t)
	last, _ := time.Parse(time.RFC3339, "2022-01-01T00:00:00Z")
	now, _ := time.Parse(time.RFC3339, "2022-01-01T00:00:00Z")

	is.Equal(secondsUntilSilent(last, 10*time.Second, now), 10)
	is.Equal(secondsUntilSilent(last, 10*time.Second, now.Add(time.Minute)), -50)
}

func TestThatSilentAssetsAreReportedOnce(t *testing.T) {
	is, ctx, repo, p := testSetup(t)

	w := newWatchdog(repo, func() []string { return []string{"asset-alaris", "asset-monitor", "asset-wheelchair"} }, p, Config{MaxSilence: 15 * time.Minute})
	w.now = func() time.Time { return now }

	is.NoErr(repo.AddLocationPings(ctx,
		ping("asset-alaris", now.Add(-time.Hour)),
		ping("asset-monitor", now.Add(-time.Minute)),
	))

	is.Equal(w.check(ctx), 1)
	is.Equal(len(p.messages), 1)

	msg := p.messages[0].(*AssetNotObserved)
	is.Equal(msg.AssetID, "asset-alaris")
	is.Equal(msg.LastObserved, now.Add(-time.Hour))

	is.Equal(w.check(ctx), 0)

	is.NoErr(repo.AddLocationPings(ctx, ping("asset-alaris", now.Add(-30*time.Minute))))
	is.Equal(w.check(ctx), 1)
	is.Equal(len(p.messages), 2)
}

func TestThatStopEndsTheWatchdog(t *testing.T) {
	_, ctx, repo, _ := testSetup(t)

	w := New(repo, func() []string { return nil }, nil, Config{Interval: time.Millisecond})
	w.Start(ctx)
	time.Sleep(5 * time.Millisecond)
	w.Stop()
}

func TestThatStopNeverBlocks(t *testing.T) {
	is, ctx, repo, _ := testSetup(t)

	ctx, cancel := context.WithCancel(ctx)

	started := New(repo, func() []string { return nil }, nil, Config{Interval: time.Millisecond})
	started.Start(ctx)
	cancel()

	neverStarted := New(repo, func() []string { return nil }, nil, Config{})

	stopped := make(chan struct{})
	go func() {
		started.Stop()
		started.Stop()
		neverStarted.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		is.Fail() // Stop blocked
	}
}

var now = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func ping(assetID string, observedAt time.Time) types.AssetLocationPing {
	return types.AssetLocationPing{
		ID:         assetID + "-" + observedAt.Format(time.RFC3339),
		AssetID:    assetID,
		Latitude:   42.3467,
		Longitude:  -71.0972,
		Status:     types.AssetStatusAvailable,
		ObservedAt: observedAt,
	}
}

type publisherFake struct {
	messages []messaging.TopicMessage
}

func (p *publisherFake) PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error {
	p.messages = append(p.messages, message)
	return nil
}

func testSetup(t *testing.T) (*is.I, context.Context, database.TelemetryRepository, *publisherFake) {
	is := is.New(t)

	repo, err := database.New(database.NewSQLiteConnector(zerolog.Logger{}))
	is.NoErr(err)

	return is, context.Background(), repo, &publisherFake{}
}
