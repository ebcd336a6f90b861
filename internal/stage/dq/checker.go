package dq

import (
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/weatherpipe/internal/domain/entity"
)

// Verdict is the outcome of checking one batch: rows that passed every rule as
// fully typed staging entities, and rejected rows with the name of the first rule
// that failed them. len(Valid) + len(Invalid) always equals the number examined.
type Verdict struct {
	Valid   []entity.ValidWeather
	Invalid []entity.InvalidWeather
}

// Checker applies the quality rules in fixed order: null fields, within-batch
// duplicates, datatypes, timestamp sanity. A row fails at most one rule; the first
// match wins.
type Checker struct {
	maxTimestamp time.Time
}

// NewChecker creates a Checker. maxTimestamp is the upper bound of the timestamp
// sanity rule, usually the batch time plus the configured clock-skew allowance.
func NewChecker(maxTimestamp time.Time) *Checker {
	return &Checker{maxTimestamp: maxTimestamp}
}

// Check examines all rows and returns the verdict.
func (c *Checker) Check(rows []entity.FlatObservation) Verdict {
	verdict := Verdict{}
	seen := make(map[string]bool, len(rows))

	for i := range rows {
		row := &rows[i]

		rule := c.firstFailedRule(row, seen)
		if rule == "" {
			verdict.Valid = append(verdict.Valid, toValid(row))
		} else {
			verdict.Invalid = append(verdict.Invalid, toInvalid(row, rule))
		}
	}
	return verdict
}

// firstFailedRule returns the name of the first rule the row fails, or "" if it
// passes all of them. The duplicate check registers the key even for rows that
// fail an earlier rule, so a later clean copy of a dirty row is flagged as a
// duplicate rather than promoted as a first occurrence.
func (c *Checker) firstFailedRule(row *entity.FlatObservation, seen map[string]bool) string {
	key := duplicateKey(row)
	isDuplicate := seen[key]
	seen[key] = true

	switch {
	case hasNullFields(row):
		return RuleNullFields
	case isDuplicate:
		return RuleDuplicateFields
	case hasBadDatatypes(row):
		return RuleBadDatatypes
	case hasBadTimestamps(row, c.maxTimestamp):
		return RuleBadTimestamps
	}
	return ""
}

// toValid converts a row that passed all rules into the typed staging entity.
// Parses cannot fail here: the datatype and timestamp rules already vetted them.
func toValid(row *entity.FlatObservation) entity.ValidWeather {
	return entity.ValidWeather{
		City:          deref(row.City),
		LocalTime:     mustParseTime(row.LocalTime),
		LastUpdated:   mustParseTime(row.LastUpdated),
		TemperatureC:  mustParseFloat(row.TemperatureC),
		ConditionDesc: deref(row.ConditionDesc),
		WindKph:       mustParseFloat(row.WindKph),
		WindDir:       deref(row.WindDir),
		PressureMb:    mustParseFloat(row.PressureMb),
		PrecipMm:      mustParseFloat(row.PrecipMm),
		Humidity:      mustParseInt(row.Humidity),
		FeelslikeC:    mustParseFloat(row.FeelslikeC),
		WindchillC:    mustParseFloat(row.WindchillC),
		DewpointC:     mustParseFloat(row.DewpointC),
		GustKph:       mustParseFloat(row.GustKph),
		BatchID:       row.BatchID,
	}
}

// toInvalid converts a rejected row into the quarantine entity, preserving the
// original loose values.
func toInvalid(row *entity.FlatObservation, rule string) entity.InvalidWeather {
	return entity.InvalidWeather{
		City:          row.City,
		LocalTime:     row.LocalTime,
		LastUpdated:   row.LastUpdated,
		TemperatureC:  row.TemperatureC,
		ConditionDesc: row.ConditionDesc,
		WindKph:       row.WindKph,
		WindDir:       row.WindDir,
		PressureMb:    row.PressureMb,
		PrecipMm:      row.PrecipMm,
		Humidity:      row.Humidity,
		FeelslikeC:    row.FeelslikeC,
		WindchillC:    row.WindchillC,
		DewpointC:     row.DewpointC,
		GustKph:       row.GustKph,
		BatchID:       row.BatchID,
		DQType:        rule,
	}
}

func deref(field *string) string {
	if field == nil {
		return ""
	}
	return strings.TrimSpace(*field)
}

func mustParseTime(field *string) time.Time {
	t, _ := time.Parse(entity.TimestampLayout, deref(field))
	return t
}

func mustParseFloat(field *string) float64 {
	f, _ := strconv.ParseFloat(deref(field), 64)
	return f
}

func mustParseInt(field *string) int {
	n, _ := strconv.Atoi(deref(field))
	return n
}
