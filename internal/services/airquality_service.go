package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"airquality-platform/internal/models"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// breakpoint is one tier of a pollutant's EPA index table: the concentration
// bracket [cLow, cHigh] maps linearly onto the index bracket [aqiLow, aqiHigh].
type breakpoint struct {
	cLow    float64
	cHigh   float64
	aqiLow  int
	aqiHigh int
}

// aqiBreakpoints holds the six-tier EPA breakpoint tables
// (Good / Moderate / Unhealthy for Sensitive Groups / Unhealthy /
// Very Unhealthy / Hazardous). Particulates in µg/m³, gases in ppb.
var aqiBreakpoints = map[models.Pollutant][]breakpoint{
	models.PollutantPM25: {
		{0, 12, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 500.4, 301, 500},
	},
	models.PollutantPM10: {
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 604, 301, 500},
	},
	models.PollutantNO2: {
		{0, 53, 0, 50},
		{54, 100, 51, 100},
		{101, 360, 101, 150},
		{361, 649, 151, 200},
		{650, 1249, 201, 300},
		{1250, 2049, 301, 500},
	},
	models.PollutantO3: {
		{0, 54, 0, 50},
		{55, 70, 51, 100},
		{71, 85, 101, 150},
		{86, 105, 151, 200},
		{106, 200, 201, 300},
		{201, 500, 301, 500},
	},
}

const (
	// maxSubIndex caps sub-indices for concentrations above the top bracket.
	maxSubIndex = 500

	// unmappedSubIndex is the fixed sub-index for pollutants without a
	// breakpoint table (HCHO). 150 is the top of the
	// unhealthy-for-sensitive-groups band, whose display mapping is 3.
	unmappedSubIndex = 150

	// defaultOverallAQI is the EPA-scale index used when no sub-index is
	// computable.
	defaultOverallAQI = 3
)

// AirQualityService converts pollutant and weather inputs into a standardized
// air quality index. ComputeIndex never fails: malformed or missing input
// degrades to documented defaults.
type AirQualityService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewAirQualityService creates a new air quality index service
func NewAirQualityService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AirQualityService {
	return &AirQualityService{
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// ComputeIndex merges the satellite and ground pollutant bundles, scores each
// pollutant against its breakpoint table, applies weather corrections, and
// returns the display index on the 1-5 scale. Any input may be nil. On an
// unexpected internal failure the documented default result is returned
// instead of an error.
func (s *AirQualityService) ComputeIndex(ctx context.Context, satellite *models.SatelliteReading, ground *models.GroundReading, weather *models.WeatherObservation) (result *models.IndexResult) {
	timer := s.metrics.NewTimer(s.metrics.IndexCalculationDuration)
	defer timer.ObserveDuration()
	s.metrics.IndexCalculationsTotal.Inc()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "[INDEX_CALC_PANIC] Index calculation failed, returning default result", logging.Fields{
				"panic": fmt.Sprintf("%v", r),
			}, nil)
			s.metrics.RecordDefaultedResult("compute_index")
			result = s.defaultIndexResult()
		}
	}()

	pollutants := mergePollutants(satellite, ground)

	// Score every pollutant with a usable concentration. Zero or negative
	// concentrations carry no signal and are excluded, never scored as zero.
	subIndices := make(map[models.Pollutant]int)
	for pollutant, concentration := range pollutants {
		if concentration > 0 {
			subIndices[pollutant] = pollutantSubIndex(pollutant, concentration)
		}
	}

	// Worst pollutant governs the overall index
	overall := defaultOverallAQI
	first := true
	for _, subIndex := range subIndices {
		if first || subIndex > overall {
			overall = subIndex
			first = false
		}
	}

	corrected := applyWeatherCorrections(overall, weather)
	scaled := scaleToDisplay(corrected)

	s.logger.Debug(ctx, "[INDEX_CALC] Air quality index computed", logging.Fields{
		"scaled_index":  scaled,
		"epa_index":     corrected,
		"pollutants":    len(subIndices),
		"weather_input": weather != nil,
	})

	return &models.IndexResult{
		ScaledIndex:   scaled,
		SubIndices:    subIndices,
		Pollutants:    pollutants,
		Sources:       provenance(satellite, ground),
		WeatherFactor: weatherFactor(weather),
		Timestamp:     s.now().UTC(),
	}
}

// defaultIndexResult is the documented always-respond fallback.
func (s *AirQualityService) defaultIndexResult() *models.IndexResult {
	return &models.IndexResult{
		ScaledIndex:   3,
		SubIndices:    map[models.Pollutant]int{},
		Pollutants:    models.PollutantReading{},
		Sources:       []string{"default"},
		WeatherFactor: 0.5,
		Defaulted:     true,
		Timestamp:     s.now().UTC(),
	}
}

// mergePollutants combines the two source bundles. NO2 and O3 prefer the
// satellite column, falling back to ground stations when the satellite value
// is absent or zero. Particulates come only from ground stations, HCHO only
// from the satellite.
func mergePollutants(satellite *models.SatelliteReading, ground *models.GroundReading) models.PollutantReading {
	merged := make(models.PollutantReading)

	if satellite != nil {
		putConcentration(merged, models.PollutantNO2, satellite.NO2)
		putConcentration(merged, models.PollutantO3, satellite.O3)
		putConcentration(merged, models.PollutantHCHO, satellite.HCHO)
	}

	if ground != nil {
		putConcentration(merged, models.PollutantPM25, ground.PM25)
		putConcentration(merged, models.PollutantPM10, ground.PM10)

		if merged[models.PollutantNO2] == 0 {
			putConcentration(merged, models.PollutantNO2, ground.NO2)
		}
		if merged[models.PollutantO3] == 0 {
			putConcentration(merged, models.PollutantO3, ground.O3)
		}
	}

	return merged
}

func putConcentration(reading models.PollutantReading, pollutant models.Pollutant, value *float64) {
	if value != nil {
		reading[pollutant] = *value
	}
}

// pollutantSubIndex interpolates the EPA sub-index for a concentration.
// Boundary concentrations map exactly onto the bracket's index bounds.
// Concentrations in the discretization gap between two brackets snap up to
// the next bracket's floor; above the top bracket the sub-index clamps to 500.
func pollutantSubIndex(pollutant models.Pollutant, concentration float64) int {
	table, ok := aqiBreakpoints[pollutant]
	if !ok {
		return unmappedSubIndex
	}

	for _, b := range table {
		if concentration > b.cHigh {
			continue
		}
		c := math.Max(concentration, b.cLow)
		slope := float64(b.aqiHigh-b.aqiLow) / (b.cHigh - b.cLow)
		return int(math.Round(slope*(c-b.cLow) + float64(b.aqiLow)))
	}

	return maxSubIndex
}

// applyWeatherCorrections adjusts the EPA-scale index for dispersion
// conditions. Missing fields use defaults that trigger no adjustment.
func applyWeatherCorrections(aqi int, weather *models.WeatherObservation) int {
	if weather == nil {
		return aqi
	}

	corrected := aqi

	// Strong wind disperses pollutants, stagnant air traps them
	wind := weather.WindSpeedOrDefault()
	if wind > 10 {
		corrected -= 10
	} else if wind < 2 {
		corrected += 15
	}

	// Heat accelerates photochemical reactions
	temperature := weather.TemperatureOrDefault()
	if temperature > 30 {
		corrected += 10
	} else if temperature < 5 {
		corrected -= 5
	}

	// High humidity grows particles
	humidity := weather.HumidityOrDefault()
	if humidity > 80 {
		corrected += 5
	} else if humidity < 30 {
		corrected -= 5
	}

	// Low pressure hinders dispersion
	if weather.PressureOrDefault() < 1000 {
		corrected += 10
	}

	return clampInt(corrected, 0, maxSubIndex)
}

// scaleToDisplay compresses the EPA 0-500 index onto the 1-5 display scale.
func scaleToDisplay(aqi int) int {
	switch {
	case aqi <= 50:
		return 1
	case aqi <= 100:
		return 2
	case aqi <= 150:
		return 3
	case aqi <= 200:
		return 4
	default:
		return 5
	}
}

// weatherFactor summarizes how unfavorable current weather is for dispersion
// on a 0-1 scale. Informational only, it does not feed back into the index.
func weatherFactor(weather *models.WeatherObservation) float64 {
	if weather == nil {
		return 0.5
	}

	factor := 0.5

	wind := weather.WindSpeedOrDefault()
	if wind > 10 {
		factor -= 0.2
	} else if wind < 2 {
		factor += 0.2
	}

	temperature := weather.TemperatureOrDefault()
	if temperature > 30 {
		factor += 0.1
	} else if temperature < 5 {
		factor -= 0.1
	}

	humidity := weather.HumidityOrDefault()
	if humidity > 80 {
		factor += 0.1
	} else if humidity < 30 {
		factor -= 0.1
	}

	return math.Max(0, math.Min(1, factor))
}

// provenance lists the source identifiers of the bundles actually used.
func provenance(satellite *models.SatelliteReading, ground *models.GroundReading) []string {
	sources := make([]string, 0, 2)

	if satellite != nil && satellite.Source != "" {
		sources = append(sources, satellite.Source)
	}
	if ground != nil && ground.Source != "" {
		sources = append(sources, ground.Source)
	}

	if len(sources) == 0 {
		return []string{"simulated"}
	}
	return sources
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
