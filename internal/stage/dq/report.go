package dq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/domain/entity"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

const (
	// QualityArea is the reports subdirectory quality reports land in.
	QualityArea = "quality"
	// PassFlagObject is the marker file present only while the latest DQ run found
	// zero invalid rows.
	PassFlagObject = "dq_pass.flag"
)

var reportHeader = []string{
	"city", "local_time", "last_updated", "temperature_c", "condition_desc",
	"wind_kph", "wind_dir", "pressure_mb", "precip_mm", "humidity",
	"feelslike_c", "windchill_c", "dewpoint_c", "gust_kph", "batch_id", "dq_type",
}

// Reporter writes the dated invalid-records CSV and manages the pass flag.
type Reporter struct {
	store storage.Adapter
}

// NewReporter creates a Reporter over the reports storage adapter.
func NewReporter(store storage.Adapter) *Reporter {
	return &Reporter{store: store}
}

// WriteInvalidReport writes the quarantined rows of a run to
// quality/invalid_records_<timestamp>.csv and removes any pass flag.
func (r *Reporter) WriteInvalidReport(ctx context.Context, rows []entity.InvalidWeather) error {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)

	if err := w.Write(reportHeader); err != nil {
		return exception.NewBatchError(moduleName, "failed to write quality report header", err, false, false)
	}
	for i := range rows {
		if err := w.Write(reportRecord(&rows[i])); err != nil {
			return exception.NewBatchError(moduleName, "failed to write quality report record", err, false, false)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exception.NewBatchError(moduleName, "failed to flush quality report", err, false, false)
	}

	objectName := fmt.Sprintf("invalid_records_%s.csv", time.Now().Format("20060102_150405"))
	if err := r.store.Upload(ctx, QualityArea, objectName, buf, "text/csv"); err != nil {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to persist quality report '%s'", objectName), err, false, false)
	}
	logger.Infof("Wrote quality report %s/%s (%d rows).", QualityArea, objectName, len(rows))

	if err := r.store.DeleteObject(ctx, "", PassFlagObject); err != nil {
		return exception.NewBatchError(moduleName, "failed to remove pass flag", err, false, false)
	}
	return nil
}

// WritePassFlag writes the pass marker for a run with zero invalid rows.
func (r *Reporter) WritePassFlag(ctx context.Context, batchID string) error {
	content := fmt.Sprintf("batch_id=%s\npassed_at=%s\n", batchID, time.Now().UTC().Format(time.RFC3339))
	if err := r.store.Upload(ctx, "", PassFlagObject, bytes.NewReader([]byte(content)), "text/plain"); err != nil {
		return exception.NewBatchError(moduleName, "failed to write pass flag", err, false, false)
	}
	logger.Infof("Wrote pass flag for batch '%s'.", batchID)
	return nil
}

func reportRecord(row *entity.InvalidWeather) []string {
	return []string{
		nullable(row.City), nullable(row.LocalTime), nullable(row.LastUpdated),
		nullable(row.TemperatureC), nullable(row.ConditionDesc), nullable(row.WindKph),
		nullable(row.WindDir), nullable(row.PressureMb), nullable(row.PrecipMm),
		nullable(row.Humidity), nullable(row.FeelslikeC), nullable(row.WindchillC),
		nullable(row.DewpointC), nullable(row.GustKph), row.BatchID, row.DQType,
	}
}

func nullable(field *string) string {
	if field == nil {
		return ""
	}
	return *field
}
