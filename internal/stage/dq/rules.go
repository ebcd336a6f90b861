// Package dq validates the batch's processed observations, splits them into
// staging and quarantine, and manages the quality report artifacts.
package dq

import (
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/weatherpipe/internal/domain/entity"
)

const moduleName = "dq"

// Rule names, as recorded in the quarantine dq_type column and the quality report.
const (
	RuleNullFields      = "null_fields"
	RuleDuplicateFields = "duplicate_fields"
	RuleBadDatatypes    = "bad_datatypes"
	RuleBadTimestamps   = "bad_timestamps"
)

// floorTimestamp is the lower bound of the timestamp sanity rule. Anything earlier
// is provider garbage, not weather.
var floorTimestamp = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// requiredFields returns the payload-derived columns the null rule inspects,
// in schema order.
func requiredFields(row *entity.FlatObservation) []*string {
	return []*string{
		row.City, row.LocalTime, row.LastUpdated, row.TemperatureC,
		row.ConditionDesc, row.WindKph, row.WindDir, row.PressureMb,
		row.PrecipMm, row.Humidity, row.FeelslikeC, row.WindchillC,
		row.DewpointC, row.GustKph,
	}
}

// hasNullFields reports whether any required column is absent or blank.
func hasNullFields(row *entity.FlatObservation) bool {
	for _, field := range requiredFields(row) {
		if field == nil || strings.TrimSpace(*field) == "" {
			return true
		}
	}
	return false
}

// duplicateKey builds the within-batch identity of a row. The first occurrence of
// a key stays valid; later ones fail the duplicate rule.
func duplicateKey(row *entity.FlatObservation) string {
	city, localTime := "", ""
	if row.City != nil {
		city = *row.City
	}
	if row.LocalTime != nil {
		localTime = *row.LocalTime
	}
	return city + "\x00" + localTime + "\x00" + row.BatchID
}

// hasBadDatatypes reports whether any numeric column fails to parse: the metric
// columns as floats, humidity as an integer.
func hasBadDatatypes(row *entity.FlatObservation) bool {
	floatFields := []*string{
		row.TemperatureC, row.WindKph, row.PressureMb, row.PrecipMm,
		row.FeelslikeC, row.WindchillC, row.DewpointC, row.GustKph,
	}
	for _, field := range floatFields {
		if field == nil {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(*field), 64); err != nil {
			return true
		}
	}
	if row.Humidity != nil {
		if _, err := strconv.Atoi(strings.TrimSpace(*row.Humidity)); err != nil {
			return true
		}
	}
	return false
}

// hasBadTimestamps reports whether the observation timestamps are unparseable or
// outside [1900-01-01, maxTimestamp]. Both local_time and last_updated are bounded;
// the upper bound allows for provider localtime running ahead of UTC.
func hasBadTimestamps(row *entity.FlatObservation, maxTimestamp time.Time) bool {
	localTime, ok := parseTimestamp(row.LocalTime)
	if !ok {
		return true
	}
	lastUpdated, ok := parseTimestamp(row.LastUpdated)
	if !ok {
		return true
	}
	if localTime.Before(floorTimestamp) || localTime.After(maxTimestamp) {
		return true
	}
	return lastUpdated.Before(floorTimestamp) || lastUpdated.After(maxTimestamp)
}

func parseTimestamp(field *string) (time.Time, bool) {
	if field == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(entity.TimestampLayout, strings.TrimSpace(*field))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
