package models

import (
	"fmt"
	"time"
)

// Pollutant identifies a measured pollutant species.
type Pollutant string

const (
	PollutantNO2  Pollutant = "no2"
	PollutantO3   Pollutant = "o3"
	PollutantPM25 Pollutant = "pm25"
	PollutantPM10 Pollutant = "pm10"
	PollutantHCHO Pollutant = "hcho"
)

// Trend labels the expected direction of air quality relative to today.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// Default weather values substituted when an observation field is missing.
// Chosen so that none of the index weather corrections trigger.
const (
	DefaultTemperatureC = 20.0
	DefaultHumidityPct  = 50.0
	DefaultWindSpeedMS  = 5.0
	DefaultPressureHPa  = 1013.0
)

// Location is a geographic point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinates are on the globe.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return &ValidationError{Field: "latitude", Value: fmt.Sprintf("%f", l.Latitude), Message: "latitude must be between -90 and 90"}
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return &ValidationError{Field: "longitude", Value: fmt.Sprintf("%f", l.Longitude), Message: "longitude must be between -180 and 180"}
	}
	return nil
}

// PollutantReading maps a pollutant to its measured concentration.
// A missing key means "no measurement available", which is distinct from a
// measured zero. Units are per-pollutant (µg/m³ for particulates, ppb for
// gases); concentrations are never negative.
type PollutantReading map[Pollutant]float64

// Get returns the concentration for a pollutant and whether it was measured.
func (p PollutantReading) Get(pollutant Pollutant) (float64, bool) {
	v, ok := p[pollutant]
	return v, ok
}

// SatelliteReading is a pollutant bundle derived from satellite column data.
// Satellites do not report particulates; missing species are nil.
type SatelliteReading struct {
	NO2       *float64  `json:"no2,omitempty"`
	O3        *float64  `json:"o3,omitempty"`
	HCHO      *float64  `json:"hcho,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// GroundReading is a pollutant bundle from ground-station measurements.
type GroundReading struct {
	PM25      *float64  `json:"pm25,omitempty"`
	PM10      *float64  `json:"pm10,omitempty"`
	NO2       *float64  `json:"no2,omitempty"`
	O3        *float64  `json:"o3,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// WeatherObservation is a point-in-time weather snapshot. Missing fields are
// nil; the *OrDefault accessors substitute the documented defaults.
type WeatherObservation struct {
	TemperatureC *float64  `json:"temperature,omitempty"`
	HumidityPct  *float64  `json:"humidity,omitempty"`
	WindSpeedMS  *float64  `json:"wind_speed,omitempty"`
	PressureHPa  *float64  `json:"pressure,omitempty"`
	Conditions   string    `json:"conditions,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source,omitempty"`
}

// TemperatureOrDefault returns the temperature in °C, defaulting to 20.
func (w *WeatherObservation) TemperatureOrDefault() float64 {
	if w == nil || w.TemperatureC == nil {
		return DefaultTemperatureC
	}
	return *w.TemperatureC
}

// HumidityOrDefault returns the relative humidity in percent, defaulting to 50.
func (w *WeatherObservation) HumidityOrDefault() float64 {
	if w == nil || w.HumidityPct == nil {
		return DefaultHumidityPct
	}
	return *w.HumidityPct
}

// WindSpeedOrDefault returns the wind speed in m/s, defaulting to 5.
func (w *WeatherObservation) WindSpeedOrDefault() float64 {
	if w == nil || w.WindSpeedMS == nil {
		return DefaultWindSpeedMS
	}
	return *w.WindSpeedMS
}

// PressureOrDefault returns the barometric pressure in hPa, defaulting to 1013.
func (w *WeatherObservation) PressureOrDefault() float64 {
	if w == nil || w.PressureHPa == nil {
		return DefaultPressureHPa
	}
	return *w.PressureHPa
}

// DefaultWeather returns an observation fully populated with the default
// values, used by fallback paths.
func DefaultWeather() *WeatherObservation {
	return &WeatherObservation{
		TemperatureC: Float(DefaultTemperatureC),
		HumidityPct:  Float(DefaultHumidityPct),
		WindSpeedMS:  Float(DefaultWindSpeedMS),
		PressureHPa:  Float(DefaultPressureHPa),
		Conditions:   "partly cloudy",
	}
}

// IndexResult is an immutable snapshot of a computed air quality index.
type IndexResult struct {
	// ScaledIndex is the display index on the 1-5 scale.
	ScaledIndex int `json:"aqi"`
	// SubIndices holds the per-pollutant EPA-style 0-500 sub-indices, present
	// only for pollutants with a usable concentration.
	SubIndices map[Pollutant]int `json:"individual_aqi"`
	// Pollutants are the merged source concentrations the index was built from.
	Pollutants PollutantReading `json:"pollutants"`
	// Sources lists the provenance identifiers of the data actually used.
	Sources []string `json:"sources"`
	// WeatherFactor is the informational 0-1 dispersion score. It does not
	// feed back into ScaledIndex.
	WeatherFactor float64 `json:"weather_factor"`
	// Defaulted is true when the calculation failed and the documented
	// fallback result was returned instead.
	Defaulted bool      `json:"defaulted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DayForecast is a single day of the projected air quality outlook.
type DayForecast struct {
	Date       time.Time           `json:"date"`
	Index      int                 `json:"aqi_value"`
	NO2Level   float64             `json:"no2_level"`
	O3Level    float64             `json:"o3_level"`
	PM25Level  float64             `json:"pm25_level"`
	Weather    *WeatherObservation `json:"weather"`
	Confidence float64             `json:"confidence"`
	Trend      Trend               `json:"trend"`
	Defaulted  bool                `json:"defaulted,omitempty"`
}

// HistoryPoint is a single synthesized day of recent air quality history.
type HistoryPoint struct {
	Date      time.Time `json:"date"`
	Index     int       `json:"aqi_value"`
	NO2Level  float64   `json:"no2_level"`
	O3Level   float64   `json:"o3_level"`
	PM25Level float64   `json:"pm25_level"`
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 {
	return &v
}

// ValidationError represents a request validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
