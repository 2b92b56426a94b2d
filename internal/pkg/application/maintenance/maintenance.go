package maintenance

import (
	"context"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/generator"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/samber/lo"
)

type Publisher interface {
	PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error
}

// Service exposes the synthetic maintenance workflow. Status updates return a
// new snapshot and announce the change, the seeded table is never modified.
type Service interface {
	Tasks(ctx context.Context) []types.MaintenanceTask
	Logs(ctx context.Context) []types.MaintenanceEventLog
	UpdateStatus(ctx context.Context, taskID string, status types.MaintenanceStatus) ([]types.MaintenanceTask, error)
}

type service struct {
	generator *generator.Generator
	publisher Publisher
}

func New(g *generator.Generator, publisher Publisher) Service {
	return &service{
		generator: g,
		publisher: publisher,
	}
}

func (s *service) Tasks(ctx context.Context) []types.MaintenanceTask {
	return s.generator.MaintenanceTasks()
}

func (s *service) Logs(ctx context.Context) []types.MaintenanceEventLog {
	return s.generator.ListMaintenanceEventLogs()
}

func (s *service) UpdateStatus(ctx context.Context, taskID string, status types.MaintenanceStatus) ([]types.MaintenanceTask, error) {
	tasks, err := s.generator.UpdateMaintenanceTaskStatus(taskID, status)
	if err != nil {
		return nil, err
	}

	task, ok := lo.Find(tasks, func(t types.MaintenanceTask) bool { return t.ID == taskID })
	if !ok || s.publisher == nil {
		return tasks, nil
	}

	err = s.publisher.PublishOnTopic(ctx, &types.MaintenanceTaskUpdated{
		TaskID:    task.ID,
		AssetID:   task.AssetID,
		Status:    task.Status,
		Timestamp: task.UpdatedAt,
	})
	if err != nil {
		log := logging.GetLoggerFromContext(ctx)
		log.Error().Err(err).Str("taskID", taskID).Msg("failed to publish task update")
	}

	return tasks, nil
}
