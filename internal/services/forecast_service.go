package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"airquality-platform/internal/clients"
	"airquality-platform/internal/models"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// ForecastDays is the length of a standard forecast.
const ForecastDays = 7

// Baseline pollutant levels assumed when no current index is supplied or a
// pollutant was not measured.
const (
	baselineIndex = 3
	baselineNO2   = 25.0
	baselineO3    = 60.0
	baselinePM25  = 20.0
)

// forecastBaseline is the fixed starting point every projected day is
// computed from. Days do not depend on each other.
type forecastBaseline struct {
	index int
	no2   float64
	o3    float64
	pm25  float64
}

// ForecastService projects the air quality index and its constituent
// pollutants across a multi-day horizon with decaying confidence.
type ForecastService struct {
	weather clients.WeatherProvider
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewForecastService creates a new forecast service
func NewForecastService(weather clients.WeatherProvider, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ForecastService {
	return &ForecastService{
		weather: weather,
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// GenerateForecast returns exactly ForecastDays day forecasts ordered by
// ascending date starting tomorrow. When current is nil a fixed baseline is
// synthesized instead of recomputing the index. On an unexpected internal
// failure a full default forecast is returned instead of an error.
func (s *ForecastService) GenerateForecast(ctx context.Context, loc models.Location, current *models.IndexResult) (forecast []models.DayForecast) {
	timer := s.metrics.NewTimer(s.metrics.ForecastGenerationDuration)
	defer timer.ObserveDuration()
	s.metrics.ForecastGenerationsTotal.Inc()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "[FORECAST_PANIC] Forecast generation failed, returning default forecast", logging.Fields{
				"panic": fmt.Sprintf("%v", r),
			}, nil)
			s.metrics.RecordDefaultedResult("generate_forecast")
			forecast = s.defaultForecast()
		}
	}()

	base := baselineFrom(current)

	forecast = make([]models.DayForecast, 0, ForecastDays)
	for daysAhead := 1; daysAhead <= ForecastDays; daysAhead++ {
		forecast = append(forecast, s.dayForecast(ctx, loc, daysAhead, base))
	}

	s.logger.Debug(ctx, "[FORECAST_COMPLETE] Forecast generated", logging.Fields{
		"days":           len(forecast),
		"baseline_index": base.index,
	})

	return forecast
}

// baselineFrom extracts the projection baseline from a current index result,
// falling back to fixed levels for anything missing.
func baselineFrom(current *models.IndexResult) forecastBaseline {
	base := forecastBaseline{
		index: baselineIndex,
		no2:   baselineNO2,
		o3:    baselineO3,
		pm25:  baselinePM25,
	}

	if current == nil {
		return base
	}

	base.index = clampInt(current.ScaledIndex, 1, 5)
	if v, ok := current.Pollutants.Get(models.PollutantNO2); ok && v > 0 {
		base.no2 = v
	}
	if v, ok := current.Pollutants.Get(models.PollutantO3); ok && v > 0 {
		base.o3 = v
	}
	if v, ok := current.Pollutants.Get(models.PollutantPM25); ok && v > 0 {
		base.pm25 = v
	}

	return base
}

// dayForecast computes one projected day from the shared baseline and that
// day's weather.
func (s *ForecastService) dayForecast(ctx context.Context, loc models.Location, daysAhead int, base forecastBaseline) models.DayForecast {
	weather, err := s.weather.ForecastDay(ctx, loc, daysAhead)
	if err != nil {
		s.logger.Warn(ctx, "[FORECAST_WEATHER_FALLBACK] Weather projection unavailable, synthesizing", logging.Fields{
			"days_ahead": daysAhead,
			"error":      err.Error(),
		})
		weather = clients.SimulatedWeatherForecastDay(loc, daysAhead, s.now().UTC())
	}

	index := clampInt(base.index+weatherImpact(weather)+seasonalFactor(s.now().AddDate(0, 0, daysAhead))+dayVariation(daysAhead), 1, 5)
	no2, o3, pm25 := projectPollutants(base, weather)

	return models.DayForecast{
		Date:       s.now().UTC().AddDate(0, 0, daysAhead),
		Index:      index,
		NO2Level:   no2,
		O3Level:    o3,
		PM25Level:  pm25,
		Weather:    weather,
		Confidence: confidence(daysAhead),
		Trend:      trendFor(base.index, index),
	}
}

// weatherImpact scores a day's weather on the index scale, clamped to [-2, 2].
func weatherImpact(weather *models.WeatherObservation) int {
	impact := 0

	temperature := weather.TemperatureOrDefault()
	if temperature > 30 {
		impact++
	} else if temperature < 5 {
		impact--
	}

	wind := weather.WindSpeedOrDefault()
	if wind > 10 {
		impact--
	} else if wind < 2 {
		impact++
	}

	humidity := weather.HumidityOrDefault()
	if humidity > 80 {
		impact++
	} else if humidity < 30 {
		impact--
	}

	return clampInt(impact, -2, 2)
}

// seasonalFactor raises the projection during ozone season (summer) and
// particulate season (winter), and lowers it in spring and fall.
func seasonalFactor(date time.Time) int {
	switch date.Month() {
	case time.June, time.July, time.August:
		return 1
	case time.December, time.January, time.February:
		return 1
	default:
		return -1
	}
}

// dayVariation is a deterministic pseudo-random term in {-1, 0, 1} keyed by
// the day offset. FNV-1a keeps it reproducible across runs and platforms.
func dayVariation(daysAhead int) int {
	h := fnv.New32a()
	h.Write([]byte{byte(daysAhead)})
	return int(h.Sum32()%3) - 1
}

// projectPollutants scales the baseline pollutant levels by the day's
// deviation from default temperature, wind, and humidity. NO2 rises with heat
// and falls with wind; O3 rises with heat and mildly with humidity; PM2.5
// falls with wind and rises with humidity.
func projectPollutants(base forecastBaseline, weather *models.WeatherObservation) (no2, o3, pm25 float64) {
	tempRatio := weather.TemperatureOrDefault() / models.DefaultTemperatureC
	windRatio := weather.WindSpeedOrDefault() / models.DefaultWindSpeedMS
	humidityRatio := weather.HumidityOrDefault() / models.DefaultHumidityPct

	no2 = base.no2 * (1 + (tempRatio-1)*0.2) * (1 - (windRatio-1)*0.1)
	o3 = base.o3 * (1 + (tempRatio-1)*0.3) * (1 + (humidityRatio-1)*0.1)
	pm25 = base.pm25 * (1 - (windRatio-1)*0.2) * (1 + (humidityRatio-1)*0.1)
	return no2, o3, pm25
}

// confidence decays linearly from 0.9 on day one, floored at 0.3.
func confidence(daysAhead int) float64 {
	c := 0.9 - float64(daysAhead-1)*0.1
	if c < 0.3 {
		return 0.3
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}

// trendFor labels the projected direction relative to the baseline index.
func trendFor(baseline, projected int) models.Trend {
	switch {
	case float64(projected) > float64(baseline)+0.5:
		return models.TrendWorsening
	case float64(projected) < float64(baseline)-0.5:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}

// defaultForecast is the documented always-respond fallback.
func (s *ForecastService) defaultForecast() []models.DayForecast {
	forecast := make([]models.DayForecast, 0, ForecastDays)
	for daysAhead := 1; daysAhead <= ForecastDays; daysAhead++ {
		forecast = append(forecast, s.defaultDayForecast(daysAhead))
	}
	return forecast
}

func (s *ForecastService) defaultDayForecast(daysAhead int) models.DayForecast {
	return models.DayForecast{
		Date:       s.now().UTC().AddDate(0, 0, daysAhead),
		Index:      baselineIndex,
		NO2Level:   baselineNO2,
		O3Level:    baselineO3,
		PM25Level:  baselinePM25,
		Weather:    models.DefaultWeather(),
		Confidence: 0.5,
		Trend:      models.TrendStable,
		Defaulted:  true,
	}
}
