// Package repository provides the warehouse persistence layer for staging,
// quarantine, and the public weather table.
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/weatherpipe/internal/domain/entity"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

const moduleName = "repository"

// insertBatchSize bounds multi-row inserts so SQLite's variable limit is never hit.
const insertBatchSize = 50

// WarehouseRepository persists DQ verdicts and promotes staged rows to the
// public table.
type WarehouseRepository interface {
	// PurgeBatch deletes any staging and quarantine rows previously written for the
	// batch, so a re-run of the DQ phase starts clean.
	PurgeBatch(ctx context.Context, batchID string) error
	// InsertValid writes rows that passed every quality rule to the staging table.
	InsertValid(ctx context.Context, rows []entity.ValidWeather) error
	// InsertInvalid writes rejected rows to the quarantine table.
	InsertInvalid(ctx context.Context, rows []entity.InvalidWeather) error
	// StagedForBatch returns the staging rows written for a batch.
	StagedForBatch(ctx context.Context, batchID string) ([]entity.ValidWeather, error)
	// PromoteBatch inserts the batch's staging rows into the public table with
	// conflict-free semantics on (city, local_time). It returns the number of rows
	// attempted and the number actually inserted; the difference was already present.
	PromoteBatch(ctx context.Context, batchID string) (attempted, inserted int64, err error)
}

// gormWarehouseRepository implements WarehouseRepository over a GORM connection.
type gormWarehouseRepository struct {
	db *gorm.DB
}

// NewWarehouseRepository creates a WarehouseRepository backed by the given GORM connection.
func NewWarehouseRepository(db *gorm.DB) WarehouseRepository {
	return &gormWarehouseRepository{db: db}
}

// PurgeBatch deletes staging and quarantine rows for the batch in one transaction.
func (r *gormWarehouseRepository) PurgeBatch(ctx context.Context, batchID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", batchID).Delete(&entity.ValidWeather{}).Error; err != nil {
			return err
		}
		return tx.Where("batch_id = ?", batchID).Delete(&entity.InvalidWeather{}).Error
	})
	if err != nil {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to purge staging/quarantine rows for batch '%s'", batchID), err, false, false)
	}
	return nil
}

// InsertValid writes rows that passed every quality rule to the staging table.
func (r *gormWarehouseRepository) InsertValid(ctx context.Context, rows []entity.ValidWeather) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return exception.NewBatchError(moduleName, "failed to insert staging rows", err, false, false)
	}
	logger.Debugf("Inserted %d staging rows.", len(rows))
	return nil
}

// InsertInvalid writes rejected rows to the quarantine table.
func (r *gormWarehouseRepository) InsertInvalid(ctx context.Context, rows []entity.InvalidWeather) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return exception.NewBatchError(moduleName, "failed to insert quarantine rows", err, false, false)
	}
	logger.Debugf("Inserted %d quarantine rows.", len(rows))
	return nil
}

// StagedForBatch returns the staging rows written for a batch, ordered for
// deterministic promotion.
func (r *gormWarehouseRepository) StagedForBatch(ctx context.Context, batchID string) ([]entity.ValidWeather, error) {
	var rows []entity.ValidWeather
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("city ASC, local_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to load staging rows for batch '%s'", batchID), err, false, false)
	}
	return rows, nil
}

// PromoteBatch inserts the batch's staging rows into the public table.
// Rows whose (city, local_time) key already exists are left untouched, which is
// what makes repeated loads idempotent.
func (r *gormWarehouseRepository) PromoteBatch(ctx context.Context, batchID string) (int64, int64, error) {
	staged, err := r.StagedForBatch(ctx, batchID)
	if err != nil {
		return 0, 0, err
	}
	if len(staged) == 0 {
		return 0, 0, nil
	}

	rows := make([]entity.PublicWeather, 0, len(staged))
	for _, s := range staged {
		rows = append(rows, entity.PublicWeather{
			City:          s.City,
			LocalTime:     s.LocalTime,
			LastUpdated:   s.LastUpdated,
			TemperatureC:  s.TemperatureC,
			ConditionDesc: s.ConditionDesc,
			WindKph:       s.WindKph,
			WindDir:       s.WindDir,
			PressureMb:    s.PressureMb,
			PrecipMm:      s.PrecipMm,
			Humidity:      s.Humidity,
			FeelslikeC:    s.FeelslikeC,
			WindchillC:    s.WindchillC,
			DewpointC:     s.DewpointC,
			GustKph:       s.GustKph,
			BatchID:       s.BatchID,
		})
	}

	var inserted int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(rows) {
				end = len(rows)
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "city"}, {Name: "local_time"}},
				DoNothing: true,
			}).Create(rows[start:end])
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return int64(len(rows)), 0, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to promote staging rows for batch '%s'", batchID), err, false, false)
	}

	return int64(len(rows)), inserted, nil
}
