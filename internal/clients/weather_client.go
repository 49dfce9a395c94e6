package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"airquality-platform/internal/models"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// WeatherClient fetches current weather and forecasts from an
// OpenWeatherMap-style API. Without an API key it serves simulated data.
type WeatherClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewWeatherClient creates a new weather client
func NewWeatherClient(baseURL, apiKey string, timeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherClient {
	return &WeatherClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// currentWeatherResponse is the current-conditions wire format.
type currentWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// forecastResponse is the 5-day/3-hour forecast wire format.
type forecastResponse struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Current returns the current weather observation for a location.
func (c *WeatherClient) Current(ctx context.Context, loc models.Location) (*models.WeatherObservation, error) {
	if c.apiKey == "" {
		c.metrics.RecordUpstreamRequest("weather", outcomeSimulated)
		return SimulatedWeather(loc, time.Now().UTC()), nil
	}

	timer := c.metrics.NewTimer(c.metrics.UpstreamRequestDuration.WithLabelValues("weather"))
	defer timer.ObserveDuration()

	var payload currentWeatherResponse
	if err := c.get(ctx, "/weather", loc, &payload); err != nil {
		c.metrics.RecordUpstreamRequest("weather", outcomeError)
		return nil, err
	}

	conditions := "unknown"
	if len(payload.Weather) > 0 {
		conditions = payload.Weather[0].Description
	}

	c.metrics.RecordUpstreamRequest("weather", outcomeOK)

	return &models.WeatherObservation{
		TemperatureC: models.Float(payload.Main.Temp),
		HumidityPct:  models.Float(payload.Main.Humidity),
		PressureHPa:  models.Float(payload.Main.Pressure),
		WindSpeedMS:  models.Float(payload.Wind.Speed),
		Conditions:   conditions,
		Timestamp:    time.Now().UTC(),
		Source:       "weather-api",
	}, nil
}

// ForecastDay returns the projected weather for a future day, averaged over
// the provider's intra-day forecast entries.
func (c *WeatherClient) ForecastDay(ctx context.Context, loc models.Location, daysAhead int) (*models.WeatherObservation, error) {
	if c.apiKey == "" {
		c.metrics.RecordUpstreamRequest("weather", outcomeSimulated)
		return SimulatedWeatherForecastDay(loc, daysAhead, time.Now().UTC()), nil
	}

	timer := c.metrics.NewTimer(c.metrics.UpstreamRequestDuration.WithLabelValues("weather"))
	defer timer.ObserveDuration()

	var payload forecastResponse
	if err := c.get(ctx, "/forecast", loc, &payload); err != nil {
		c.metrics.RecordUpstreamRequest("weather", outcomeError)
		return nil, err
	}

	targetDate := time.Now().UTC().AddDate(0, 0, daysAhead).Format("2006-01-02")

	var tempSum, humiditySum, pressureSum, windSum float64
	var conditions string
	count := 0

	for _, item := range payload.List {
		if len(item.DtTxt) < 10 || item.DtTxt[:10] != targetDate {
			continue
		}
		tempSum += item.Main.Temp
		humiditySum += item.Main.Humidity
		pressureSum += item.Main.Pressure
		windSum += item.Wind.Speed
		if conditions == "" && len(item.Weather) > 0 {
			conditions = item.Weather[0].Description
		}
		count++
	}

	if count == 0 {
		c.metrics.RecordUpstreamRequest("weather", outcomeError)
		return nil, fmt.Errorf("no forecast entries for day %d", daysAhead)
	}

	n := float64(count)
	c.metrics.RecordUpstreamRequest("weather", outcomeOK)

	return &models.WeatherObservation{
		TemperatureC: models.Float(tempSum / n),
		HumidityPct:  models.Float(humiditySum / n),
		PressureHPa:  models.Float(pressureSum / n),
		WindSpeedMS:  models.Float(windSum / n),
		Conditions:   conditions,
		Timestamp:    time.Now().UTC().AddDate(0, 0, daysAhead),
		Source:       "weather-api",
	}, nil
}

// get performs a metric-unit API request and decodes the JSON response.
func (c *WeatherClient) get(ctx context.Context, path string, loc models.Location, dest interface{}) error {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", loc.Latitude))
	params.Set("lon", fmt.Sprintf("%f", loc.Longitude))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode weather response: %w", err)
	}

	return nil
}

// HealthCheck reports whether the weather API is reachable.
func (c *WeatherClient) HealthCheck(ctx context.Context) bool {
	if c.apiKey == "" {
		// Simulated mode is always available
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payload currentWeatherResponse
	if err := c.get(ctx, "/weather", models.Location{Latitude: 51.5, Longitude: -0.1}, &payload); err != nil {
		c.logger.Warn(ctx, "[WEATHER_HEALTH] Weather health check failed", logging.Fields{
			"error": err.Error(),
		})
		return false
	}

	return true
}
