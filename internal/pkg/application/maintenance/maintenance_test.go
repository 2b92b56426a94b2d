package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/generator"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/matryer/is"
)

func TestThatUpdateIsAnnounced(t *testing.T) {
	is, svc, p := testSetup(t)

	tasks, err := svc.UpdateStatus(context.Background(), "maint-alaris", types.MaintenanceStatusCompleted)
	is.NoErr(err)
	is.Equal(tasks[0].Status, types.MaintenanceStatusCompleted)

	is.Equal(len(p.messages), 1)
	msg := p.messages[0].(*types.MaintenanceTaskUpdated)
	is.Equal(msg.TaskID, "maint-alaris")
	is.Equal(msg.AssetID, "asset-alaris")
	is.Equal(msg.Status, types.MaintenanceStatusCompleted)
}

func TestThatUnknownTaskIsNotAnnounced(t *testing.T) {
	is, svc, p := testSetup(t)

	tasks, err := svc.UpdateStatus(context.Background(), "maint-nothing", types.MaintenanceStatusCompleted)
	is.NoErr(err)
	is.Equal(len(tasks), 3)
	is.Equal(len(p.messages), 0)
}

func TestThatUnknownStatusIsAnError(t *testing.T) {
	is, svc, _ := testSetup(t)

	_, err := svc.UpdateStatus(context.Background(), "maint-alaris", "finished")
	is.True(errors.Is(err, generator.ErrUnknownMaintenanceStatus))
}

func TestThatLogsFollowTasks(t *testing.T) {
	is, svc, _ := testSetup(t)

	is.Equal(len(svc.Tasks(context.Background())), 3)
	is.Equal(len(svc.Logs(context.Background())), 7)
}

type publisherFake struct {
	messages []messaging.TopicMessage
}

func (p *publisherFake) PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error {
	p.messages = append(p.messages, message)
	return nil
}

func testSetup(t *testing.T) (*is.I, Service, *publisherFake) {
	is := is.New(t)
	p := &publisherFake{}
	return is, New(generator.New(), p), p
}
