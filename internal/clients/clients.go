package clients

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"airquality-platform/internal/models"
)

// SatelliteProvider supplies satellite-derived pollutant readings.
type SatelliteProvider interface {
	Readings(ctx context.Context, loc models.Location) (*models.SatelliteReading, error)
	Status(ctx context.Context) (*SatelliteStatus, error)
	HealthCheck(ctx context.Context) bool
}

// GroundProvider supplies ground-station pollutant measurements.
type GroundProvider interface {
	Readings(ctx context.Context, loc models.Location) (*models.GroundReading, error)
	HealthCheck(ctx context.Context) bool
}

// WeatherProvider supplies current weather and day-ahead projections.
type WeatherProvider interface {
	Current(ctx context.Context, loc models.Location) (*models.WeatherObservation, error)
	ForecastDay(ctx context.Context, loc models.Location, daysAhead int) (*models.WeatherObservation, error)
	HealthCheck(ctx context.Context) bool
}

// SatelliteStatus describes satellite data availability.
type SatelliteStatus struct {
	Service     string    `json:"service"`
	Status      string    `json:"status"`
	LastUpdate  time.Time `json:"last_update"`
	Coverage    string    `json:"coverage"`
	DataLatency string    `json:"data_latency"`
	Parameters  []string  `json:"parameters"`
}

// Upstream request outcomes recorded in metrics.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeSimulated = "simulated"
)

// noise returns a deterministic value in [0, mod) derived from the inputs.
// FNV-1a over the formatted inputs replaces any platform-dependent hashing so
// simulated data is reproducible across runs and hosts.
func noise(mod uint32, parts ...float64) float64 {
	h := fnv.New32a()
	for _, p := range parts {
		fmt.Fprintf(h, "%.6f;", p)
	}
	return float64(h.Sum32() % mod)
}

// SimulatedSatelliteReading generates a deterministic location-seeded
// satellite bundle, used when the satellite provider is unreachable or
// unconfigured.
func SimulatedSatelliteReading(loc models.Location, now time.Time) *models.SatelliteReading {
	// Denser coordinates stand in for urban areas with higher pollution.
	urban := math.Mod(math.Abs(loc.Latitude)+math.Abs(loc.Longitude)/100, 3)

	return &models.SatelliteReading{
		NO2:       models.Float(20 + urban*10 + noise(10, loc.Latitude)),
		O3:        models.Float(50 + urban*15 + noise(15, loc.Longitude)),
		HCHO:      models.Float(5 + urban*2),
		Timestamp: now,
		Source:    "satellite-simulated",
	}
}

// SimulatedGroundReading generates a deterministic location-seeded
// ground-station bundle.
func SimulatedGroundReading(loc models.Location, now time.Time) *models.GroundReading {
	return &models.GroundReading{
		PM25:      models.Float(15 + noise(20, loc.Latitude)),
		PM10:      models.Float(25 + noise(30, loc.Longitude)),
		NO2:       models.Float(18 + noise(15, loc.Latitude+loc.Longitude)),
		O3:        models.Float(45 + noise(25, loc.Latitude*loc.Longitude)),
		Timestamp: now,
		Source:    "ground-simulated",
	}
}

// SimulatedWeather generates a deterministic weather observation for a
// location. Temperature tracks latitude and hour of day.
func SimulatedWeather(loc models.Location, now time.Time) *models.WeatherObservation {
	hour := float64(now.Hour())

	baseTemp := 20 - math.Abs(loc.Latitude)*0.5 + (hour-12)*0.5
	temperature := baseTemp + noise(10, loc.Latitude) - 5
	humidity := math.Min(100, math.Max(0, 50+noise(30, loc.Longitude)+math.Mod(hour, 10)))
	windSpeed := 5 + noise(15, loc.Latitude+loc.Longitude)
	pressure := 1013 + noise(20, loc.Longitude) - 10

	return &models.WeatherObservation{
		TemperatureC: models.Float(temperature),
		HumidityPct:  models.Float(humidity),
		WindSpeedMS:  models.Float(windSpeed),
		PressureHPa:  models.Float(pressure),
		Conditions:   conditionsForHumidity(humidity),
		Timestamp:    now,
		Source:       "weather-simulated",
	}
}

// SimulatedWeatherForecastDay generates a deterministic projection for a
// future day by perturbing the simulated current weather.
func SimulatedWeatherForecastDay(loc models.Location, daysAhead int, now time.Time) *models.WeatherObservation {
	base := SimulatedWeather(loc, now)
	day := float64(daysAhead)

	temperature := *base.TemperatureC + noise(10, day) - 5
	humidity := math.Min(100, math.Max(0, *base.HumidityPct+noise(20, day+1)-10))
	windSpeed := math.Max(0, *base.WindSpeedMS+noise(5, day)-2)
	pressure := *base.PressureHPa + noise(10, day) - 5

	return &models.WeatherObservation{
		TemperatureC: models.Float(temperature),
		HumidityPct:  models.Float(humidity),
		WindSpeedMS:  models.Float(windSpeed),
		PressureHPa:  models.Float(pressure),
		Conditions:   conditionsForHumidity(humidity),
		Timestamp:    now.AddDate(0, 0, daysAhead),
		Source:       "weather-simulated",
	}
}

// conditionsForHumidity maps humidity to a coarse conditions label.
func conditionsForHumidity(humidity float64) string {
	switch {
	case humidity < 30:
		return "clear"
	case humidity < 60:
		return "partly cloudy"
	case humidity < 80:
		return "cloudy"
	default:
		return "overcast"
	}
}
