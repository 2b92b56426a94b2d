package generator

import (
	"errors"
	"fmt"
	"time"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/samber/lo"
)

var ErrUnknownMaintenanceStatus = errors.New("unknown maintenance status")

func seedMaintenanceTasks(now time.Time) []types.MaintenanceTask {
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	return []types.MaintenanceTask{
		{
			ID:            "maint-alaris",
			AssetID:       "asset-alaris",
			RequestedByID: "user-admin",
			AssignedToID:  lo.ToPtr("user-tech"),
			Status:        types.MaintenanceStatusScheduled,
			Priority:      types.MaintenancePriorityHigh,
			Summary:       "Infusion pump preventive maintenance",
			Details:       lo.ToPtr("Run standard PM checklist and verify calibration."),
			ScheduledFor:  at(24 * time.Hour),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "maint-monitor",
			AssetID:       "asset-monitor",
			RequestedByID: "user-admin",
			AssignedToID:  lo.ToPtr("user-tech"),
			Status:        types.MaintenanceStatusInProgress,
			Priority:      types.MaintenancePriorityMedium,
			Summary:       "Monitor alarm investigation",
			Details:       lo.ToPtr("Nurse reported intermittent high-pressure alarm overnight."),
			ScheduledFor:  at(-2 * time.Hour),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "maint-wheelchair",
			AssetID:       "asset-wheelchair",
			RequestedByID: "user-admin",
			Status:        types.MaintenanceStatusCompleted,
			Priority:      types.MaintenancePriorityLow,
			Summary:       "Wheelchair caster replacement",
			Details:       lo.ToPtr("Front caster replaced and alignment verified."),
			ScheduledFor:  at(-3 * 24 * time.Hour),
			CompletedAt:   at(-2 * 24 * time.Hour),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

// MaintenanceTasks returns a snapshot of the seeded task table.
func (g *Generator) MaintenanceTasks() []types.MaintenanceTask {
	return lo.Map(g.tasks, func(t types.MaintenanceTask, _ int) types.MaintenanceTask {
		return copyTask(t)
	})
}

// UpdateMaintenanceTaskStatus returns a new snapshot of the task table with the
// status of taskID replaced. The generator's own table is never modified. An
// unknown task id yields an unchanged snapshot.
func (g *Generator) UpdateMaintenanceTaskStatus(taskID string, status types.MaintenanceStatus) ([]types.MaintenanceTask, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMaintenanceStatus, status)
	}

	now := g.now().UTC()

	return lo.Map(g.tasks, func(t types.MaintenanceTask, _ int) types.MaintenanceTask {
		next := copyTask(t)
		if next.ID != taskID {
			return next
		}

		next.Status = status
		next.UpdatedAt = now
		next.CompletedAt = nil

		if status == types.MaintenanceStatusCompleted {
			next.CompletedAt = &now
		}

		return next
	}), nil
}

func copyTask(t types.MaintenanceTask) types.MaintenanceTask {
	c := t
	c.AssignedToID = copyPtr(t.AssignedToID)
	c.Details = copyPtr(t.Details)
	c.ScheduledFor = copyPtr(t.ScheduledFor)
	c.CompletedAt = copyPtr(t.CompletedAt)
	return c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MaintenanceEventLogs derives the lifecycle logs of each task: one created
// log, a scheduled log if the task is scheduled and a completed log if the
// task has been completed.
func MaintenanceEventLogs(tasks []types.MaintenanceTask) []types.MaintenanceEventLog {
	return lo.FlatMap(tasks, func(t types.MaintenanceTask, _ int) []types.MaintenanceEventLog {
		logs := []types.MaintenanceEventLog{
			{
				ID:            fmt.Sprintf("%s-created", t.ID),
				MaintenanceID: t.ID,
				AssetID:       t.AssetID,
				EventType:     types.MaintenanceEventCreated,
				Payload: map[string]any{
					"requestedById": t.RequestedByID,
					"summary":       t.Summary,
				},
				OccurredAt: t.CreatedAt,
			},
		}

		if t.ScheduledFor != nil {
			logs = append(logs, types.MaintenanceEventLog{
				ID:            fmt.Sprintf("%s-scheduled", t.ID),
				MaintenanceID: t.ID,
				AssetID:       t.AssetID,
				EventType:     types.MaintenanceEventScheduled,
				Payload: map[string]any{
					"scheduledFor": *t.ScheduledFor,
					"priority":     t.Priority,
				},
				OccurredAt: *t.ScheduledFor,
			})
		}

		if t.CompletedAt != nil {
			payload := map[string]any{}
			if t.Details != nil {
				payload["details"] = *t.Details
			}

			logs = append(logs, types.MaintenanceEventLog{
				ID:            fmt.Sprintf("%s-completed", t.ID),
				MaintenanceID: t.ID,
				AssetID:       t.AssetID,
				EventType:     types.MaintenanceEventCompleted,
				Payload:       payload,
				OccurredAt:    *t.CompletedAt,
			})
		}

		return logs
	})
}

func (g *Generator) ListMaintenanceEventLogs() []types.MaintenanceEventLog {
	return MaintenanceEventLogs(g.tasks)
}
