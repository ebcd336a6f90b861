// Package process turns the batch's raw provider documents into one flattened,
// columnar Parquet partition under the processed area.
package process

import (
	"bytes"
	"encoding/json"

	"github.com/tigerroll/weatherpipe/internal/domain/entity"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
)

const moduleName = "process"

// Flatten decodes one raw provider document loosely and flattens its location and
// current sections into a FlatObservation. Values are kept as their literal string
// forms (numbers included) so the quality rules downstream can judge datatypes
// themselves; absent fields stay nil.
func Flatten(doc []byte, batchID string) (entity.FlatObservation, error) {
	var payload map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return entity.FlatObservation{}, exception.NewBatchError(moduleName, "malformed raw document", err, true, false)
	}

	location, _ := payload["location"].(map[string]interface{})
	current, _ := payload["current"].(map[string]interface{})
	var condition map[string]interface{}
	if current != nil {
		condition, _ = current["condition"].(map[string]interface{})
	}

	return entity.FlatObservation{
		City:          stringify(field(location, "name")),
		LocalTime:     stringify(field(location, "localtime")),
		LastUpdated:   stringify(field(current, "last_updated")),
		TemperatureC:  stringify(field(current, "temp_c")),
		ConditionDesc: stringify(field(condition, "text")),
		WindKph:       stringify(field(current, "wind_kph")),
		WindDir:       stringify(field(current, "wind_dir")),
		PressureMb:    stringify(field(current, "pressure_mb")),
		PrecipMm:      stringify(field(current, "precip_mm")),
		Humidity:      stringify(field(current, "humidity")),
		FeelslikeC:    stringify(field(current, "feelslike_c")),
		WindchillC:    stringify(field(current, "windchill_c")),
		DewpointC:     stringify(field(current, "dewpoint_c")),
		GustKph:       stringify(field(current, "gust_kph")),
		BatchID:       batchID,
	}, nil
}

func field(section map[string]interface{}, key string) interface{} {
	if section == nil {
		return nil
	}
	return section[key]
}

// stringify renders a loosely decoded JSON value as its literal string form.
func stringify(v interface{}) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	case json.Number:
		s := val.String()
		return &s
	case bool:
		s := "false"
		if val {
			s = "true"
		}
		return &s
	default:
		return nil
	}
}
