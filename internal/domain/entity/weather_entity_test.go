package entity

import (
	"testing"
)

func TestTableNames(t *testing.T) {
	if got := (ValidWeather{}).TableName(); got != "staging_valid_weather" {
		t.Errorf("ValidWeather.TableName() returned %s, expected staging_valid_weather", got)
	}
	if got := (InvalidWeather{}).TableName(); got != "quarantine_invalid_weather" {
		t.Errorf("InvalidWeather.TableName() returned %s, expected quarantine_invalid_weather", got)
	}
	if got := (PublicWeather{}).TableName(); got != "weather" {
		t.Errorf("PublicWeather.TableName() returned %s, expected weather", got)
	}
}
