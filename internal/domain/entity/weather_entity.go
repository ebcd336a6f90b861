// Package entity defines the row shapes flowing through the pipeline: the flattened
// observation produced by the process stage, the staging and quarantine rows produced
// by the DQ stage, and the public warehouse row produced by the load stage.
package entity

import "time"

// TimestampLayout is the wire format of the provider's local_time and last_updated
// fields ("2006-01-02 15:04").
const TimestampLayout = "2006-01-02 15:04"

// FlatObservation is one flattened observation as written to the processed Parquet
// partition. Every payload-derived column is a nullable string so that downstream
// quality rules can judge datatypes themselves; only the batch id is guaranteed.
// It includes parquet tags for serialization to Parquet format.
type FlatObservation struct {
	City          *string `parquet:"name=city, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LocalTime     *string `parquet:"name=local_time, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LastUpdated   *string `parquet:"name=last_updated, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	TemperatureC  *string `parquet:"name=temperature_c, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ConditionDesc *string `parquet:"name=condition_desc, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	WindKph       *string `parquet:"name=wind_kph, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	WindDir       *string `parquet:"name=wind_dir, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	PressureMb    *string `parquet:"name=pressure_mb, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	PrecipMm      *string `parquet:"name=precip_mm, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Humidity      *string `parquet:"name=humidity, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	FeelslikeC    *string `parquet:"name=feelslike_c, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	WindchillC    *string `parquet:"name=windchill_c, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DewpointC     *string `parquet:"name=dewpoint_c, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	GustKph       *string `parquet:"name=gust_kph, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	BatchID       string  `parquet:"name=batch_id, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ValidWeather is one observation that passed every quality rule, stored in the
// staging area with fully typed columns.
type ValidWeather struct {
	City          string    `gorm:"column:city;not null"`
	LocalTime     time.Time `gorm:"column:local_time;not null"`
	LastUpdated   time.Time `gorm:"column:last_updated"`
	TemperatureC  float64   `gorm:"column:temperature_c"`
	ConditionDesc string    `gorm:"column:condition_desc"`
	WindKph       float64   `gorm:"column:wind_kph"`
	WindDir       string    `gorm:"column:wind_dir"`
	PressureMb    float64   `gorm:"column:pressure_mb"`
	PrecipMm      float64   `gorm:"column:precip_mm"`
	Humidity      int       `gorm:"column:humidity"`
	FeelslikeC    float64   `gorm:"column:feelslike_c"`
	WindchillC    float64   `gorm:"column:windchill_c"`
	DewpointC     float64   `gorm:"column:dewpoint_c"`
	GustKph       float64   `gorm:"column:gust_kph"`
	BatchID       string    `gorm:"column:batch_id;index;not null"`
}

// TableName specifies the table name for ValidWeather.
func (ValidWeather) TableName() string {
	return "staging_valid_weather"
}

// InvalidWeather is one observation rejected by a quality rule, kept in quarantine
// with its original loose values and the name of the rule that rejected it.
type InvalidWeather struct {
	City          *string `gorm:"column:city"`
	LocalTime     *string `gorm:"column:local_time"`
	LastUpdated   *string `gorm:"column:last_updated"`
	TemperatureC  *string `gorm:"column:temperature_c"`
	ConditionDesc *string `gorm:"column:condition_desc"`
	WindKph       *string `gorm:"column:wind_kph"`
	WindDir       *string `gorm:"column:wind_dir"`
	PressureMb    *string `gorm:"column:pressure_mb"`
	PrecipMm      *string `gorm:"column:precip_mm"`
	Humidity      *string `gorm:"column:humidity"`
	FeelslikeC    *string `gorm:"column:feelslike_c"`
	WindchillC    *string `gorm:"column:windchill_c"`
	DewpointC     *string `gorm:"column:dewpoint_c"`
	GustKph       *string `gorm:"column:gust_kph"`
	BatchID       string  `gorm:"column:batch_id;index;not null"`
	DQType        string  `gorm:"column:dq_type;not null"`
}

// TableName specifies the table name for InvalidWeather.
func (InvalidWeather) TableName() string {
	return "quarantine_invalid_weather"
}

// PublicWeather is one deduplicated observation in the serving table. The composite
// primary key on (city, local_time) is what makes repeated loads idempotent.
type PublicWeather struct {
	City          string    `gorm:"column:city;primaryKey"`
	LocalTime     time.Time `gorm:"column:local_time;primaryKey"`
	LastUpdated   time.Time `gorm:"column:last_updated"`
	TemperatureC  float64   `gorm:"column:temperature_c"`
	ConditionDesc string    `gorm:"column:condition_desc"`
	WindKph       float64   `gorm:"column:wind_kph"`
	WindDir       string    `gorm:"column:wind_dir"`
	PressureMb    float64   `gorm:"column:pressure_mb"`
	PrecipMm      float64   `gorm:"column:precip_mm"`
	Humidity      int       `gorm:"column:humidity"`
	FeelslikeC    float64   `gorm:"column:feelslike_c"`
	WindchillC    float64   `gorm:"column:windchill_c"`
	DewpointC     float64   `gorm:"column:dewpoint_c"`
	GustKph       float64   `gorm:"column:gust_kph"`
	BatchID       string    `gorm:"column:batch_id;not null"`
}

// TableName specifies the table name for PublicWeather.
func (PublicWeather) TableName() string {
	return "weather"
}
