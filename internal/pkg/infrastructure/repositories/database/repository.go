package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectorConfig struct {
	// DSN is either a postgres:// url or a key=value connection string.
	DSN            string
	BatchSize      int
	ConnectRetries int
	RetryDelay     time.Duration
}

type ConnectorFunc func() (*gorm.DB, zerolog.Logger, error)

func NewSQLiteConnector(log zerolog.Logger) ConnectorFunc {
	return func() (*gorm.DB, zerolog.Logger, error) {
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger:          logger.Default.LogMode(logger.Silent),
			CreateBatchSize: 1000,
		})

		if err == nil {
			sqldb, _ := db.DB()
			sqldb.SetMaxOpenConns(1)
		}

		return db, log, err
	}
}

func NewPostgreSQLConnector(ctx context.Context, log zerolog.Logger, cfg ConnectorConfig) ConnectorFunc {
	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 500
	}

	return func() (*gorm.DB, zerolog.Logger, error) {
		sublogger := log.With().Str("database", "timescale").Logger()

		var err error

		for attempt := 1; attempt <= retries; attempt++ {
			sublogger.Info().Msgf("connecting to database host (attempt %d of %d)", attempt, retries)

			var db *gorm.DB
			db, err = gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
				Logger: logger.New(
					&sublogger,
					logger.Config{
						SlowThreshold:             time.Second,
						LogLevel:                  logger.Warn,
						IgnoreRecordNotFoundError: true,
						Colorful:                  false,
					},
				),
				CreateBatchSize: batchSize,
			})
			if err == nil {
				return db, sublogger, nil
			}

			sublogger.Error().Err(err).Msg("failed to connect to database")

			select {
			case <-ctx.Done():
				return nil, sublogger, ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}

		return nil, sublogger, fmt.Errorf("giving up connecting to database: %w", err)
	}
}
