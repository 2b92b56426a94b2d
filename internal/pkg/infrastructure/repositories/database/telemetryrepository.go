package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TelemetryRepository accepts validated telemetry and can be queried by asset.
type TelemetryRepository interface {
	AddTelemetryEvents(ctx context.Context, events ...types.TelemetryEvent) error
	GetTelemetryEvents(ctx context.Context, assetID string, limit int) ([]types.TelemetryEvent, error)

	AddIngestEvent(ctx context.Context, event types.TelemetryIngestEvent) error
	GetIngestEvent(ctx context.Context, eventID string) (types.TelemetryIngestEvent, error)
	GetIngestEvents(ctx context.Context, assetID string, limit int) ([]types.TelemetryIngestEvent, error)

	AddLocationPings(ctx context.Context, pings ...types.AssetLocationPing) error
	GetLocationPings(ctx context.Context, assetID string, limit int) ([]types.AssetLocationPing, error)

	// StoreIngest stores an ingest event together with the telemetry and
	// location pings derived from it. Either all records are stored or none.
	StoreIngest(ctx context.Context, event types.TelemetryIngestEvent, telemetry []types.TelemetryEvent, pings []types.AssetLocationPing) error
}

var ErrEventNotFound = fmt.Errorf("event not found")
var ErrRepositoryError = fmt.Errorf("could not fetch data from repository")

const DefaultQueryLimit int = 100

type telemetryRepository struct {
	db *gorm.DB
}

func New(connect ConnectorFunc) (TelemetryRepository, error) {
	impl, log, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&telemetryEventRecord{}, &ingestEventRecord{}, &locationPingRecord{})
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("telemetry tables migrated")

	return &telemetryRepository{
		db: impl,
	}, nil
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

// AddTelemetryEvents stores the events in a single batch. Events whose
// timestamp cannot be parsed are stored with a zero OccurredAt.
func (r *telemetryRepository) AddTelemetryEvents(ctx context.Context, events ...types.TelemetryEvent) error {
	return addTelemetryEvents(r.db.WithContext(ctx), events...)
}

func addTelemetryEvents(db *gorm.DB, events ...types.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]telemetryEventRecord, 0, len(events))

	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}

		occurredAt, _ := time.Parse(time.RFC3339Nano, e.Timestamp)

		records = append(records, telemetryEventRecord{
			AssetID:    e.AssetID,
			Name:       e.Name,
			OccurredAt: occurredAt.UTC(),
			Data:       data,
		})
	}

	return db.Create(&records).Error
}

func (r *telemetryRepository) GetTelemetryEvents(ctx context.Context, assetID string, limit int) ([]types.TelemetryEvent, error) {
	var records []telemetryEventRecord

	result := r.db.WithContext(ctx).
		Where(&telemetryEventRecord{AssetID: assetID}).
		Order("occurred_at desc, id desc").
		Limit(queryLimit(limit)).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryError, result.Error.Error())
	}

	return unmarshalAll[types.TelemetryEvent](lo.Map(records, func(rec telemetryEventRecord, _ int) []byte {
		return rec.Data
	}))
}

// AddIngestEvent stores the event, replacing any earlier version with the same id.
func (r *telemetryRepository) AddIngestEvent(ctx context.Context, event types.TelemetryIngestEvent) error {
	return addIngestEvent(r.db.WithContext(ctx), event)
}

func addIngestEvent(db *gorm.DB, event types.TelemetryIngestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	record := ingestEventRecord{
		EventID:     event.ID,
		AssetID:     event.AssetID,
		DeviceID:    event.DeviceID,
		Status:      string(event.Status),
		ReceivedAt:  event.ReceivedAt.UTC(),
		ProcessedAt: event.ProcessedAt,
		Data:        data,
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "processed_at", "data"}),
	}).Create(&record).Error
}

func (r *telemetryRepository) GetIngestEvent(ctx context.Context, eventID string) (types.TelemetryIngestEvent, error) {
	record := ingestEventRecord{}

	result := r.db.WithContext(ctx).Where(&ingestEventRecord{EventID: eventID}).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return types.TelemetryIngestEvent{}, ErrEventNotFound
		}
		return types.TelemetryIngestEvent{}, fmt.Errorf("%w: %s", ErrRepositoryError, result.Error.Error())
	}

	event := types.TelemetryIngestEvent{}
	err := json.Unmarshal(record.Data, &event)
	return event, err
}

// GetIngestEvents returns the most recently received events first. An empty
// assetID matches every asset.
func (r *telemetryRepository) GetIngestEvents(ctx context.Context, assetID string, limit int) ([]types.TelemetryIngestEvent, error) {
	var records []ingestEventRecord

	result := r.db.WithContext(ctx).
		Where(&ingestEventRecord{AssetID: assetID}).
		Order("received_at desc, id desc").
		Limit(queryLimit(limit)).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryError, result.Error.Error())
	}

	return unmarshalAll[types.TelemetryIngestEvent](lo.Map(records, func(rec ingestEventRecord, _ int) []byte {
		return rec.Data
	}))
}

func (r *telemetryRepository) AddLocationPings(ctx context.Context, pings ...types.AssetLocationPing) error {
	return addLocationPings(r.db.WithContext(ctx), pings...)
}

func addLocationPings(db *gorm.DB, pings ...types.AssetLocationPing) error {
	if len(pings) == 0 {
		return nil
	}

	records := make([]locationPingRecord, 0, len(pings))

	for _, p := range pings {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		records = append(records, locationPingRecord{
			PingID:     p.ID,
			AssetID:    p.AssetID,
			ObservedAt: p.ObservedAt.UTC(),
			Data:       data,
		})
	}

	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

func (r *telemetryRepository) StoreIngest(ctx context.Context, event types.TelemetryIngestEvent, telemetry []types.TelemetryEvent, pings []types.AssetLocationPing) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := addIngestEvent(tx, event); err != nil {
			return err
		}

		if err := addTelemetryEvents(tx, telemetry...); err != nil {
			return err
		}

		return addLocationPings(tx, pings...)
	})
}

func (r *telemetryRepository) GetLocationPings(ctx context.Context, assetID string, limit int) ([]types.AssetLocationPing, error) {
	var records []locationPingRecord

	result := r.db.WithContext(ctx).
		Where(&locationPingRecord{AssetID: assetID}).
		Order("observed_at desc").
		Limit(queryLimit(limit)).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryError, result.Error.Error())
	}

	return unmarshalAll[types.AssetLocationPing](lo.Map(records, func(rec locationPingRecord, _ int) []byte {
		return rec.Data
	}))
}

func unmarshalAll[T any](documents [][]byte) ([]T, error) {
	items := make([]T, 0, len(documents))

	for _, doc := range documents {
		var item T
		if err := json.Unmarshal(doc, &item); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryError, err.Error())
		}
		items = append(items, item)
	}

	return items, nil
}
