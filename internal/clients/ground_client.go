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

// groundSearchRadiusM is the radius around the requested point within which
// ground stations are considered representative.
const groundSearchRadiusM = 10000

// GroundClient fetches ground-station measurements from an OpenAQ-style API.
type GroundClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewGroundClient creates a new ground measurements client
func NewGroundClient(baseURL, apiKey string, timeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *GroundClient {
	return &GroundClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// groundResponse is the latest-measurements wire format.
type groundResponse struct {
	Results []struct {
		Measurements []struct {
			Parameter string  `json:"parameter"`
			Value     float64 `json:"value"`
		} `json:"measurements"`
	} `json:"results"`
}

// Readings returns station measurements near a location, averaged per
// pollutant across reporting stations.
func (c *GroundClient) Readings(ctx context.Context, loc models.Location) (*models.GroundReading, error) {
	timer := c.metrics.NewTimer(c.metrics.UpstreamRequestDuration.WithLabelValues("ground"))
	defer timer.ObserveDuration()

	params := url.Values{}
	params.Set("coordinates", fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude))
	params.Set("radius", fmt.Sprintf("%d", groundSearchRadiusM))
	params.Set("limit", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+params.Encode(), nil)
	if err != nil {
		c.metrics.RecordUpstreamRequest("ground", outcomeError)
		return nil, fmt.Errorf("failed to build ground request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest("ground", outcomeError)
		return nil, fmt.Errorf("ground request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamRequest("ground", outcomeError)
		return nil, fmt.Errorf("ground API returned status %d", resp.StatusCode)
	}

	var payload groundResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.RecordUpstreamRequest("ground", outcomeError)
		return nil, fmt.Errorf("failed to decode ground response: %w", err)
	}

	reading, err := averageMeasurements(&payload)
	if err != nil {
		c.metrics.RecordUpstreamRequest("ground", outcomeError)
		return nil, err
	}

	c.metrics.RecordUpstreamRequest("ground", outcomeOK)
	c.logger.Debug(ctx, "[GROUND_READINGS] Ground measurements fetched", logging.Fields{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"stations":  len(payload.Results),
	})

	return reading, nil
}

// averageMeasurements reduces per-station measurements to one value per
// pollutant.
func averageMeasurements(payload *groundResponse) (*models.GroundReading, error) {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, result := range payload.Results {
		for _, m := range result.Measurements {
			sums[m.Parameter] += m.Value
			counts[m.Parameter]++
		}
	}

	if len(counts) == 0 {
		return nil, fmt.Errorf("no ground measurements in range")
	}

	average := func(parameter string) *float64 {
		count, ok := counts[parameter]
		if !ok {
			return nil
		}
		return models.Float(sums[parameter] / float64(count))
	}

	return &models.GroundReading{
		PM25:      average("pm25"),
		PM10:      average("pm10"),
		NO2:       average("no2"),
		O3:        average("o3"),
		Timestamp: time.Now().UTC(),
		Source:    "ground-stations",
	}, nil
}

// HealthCheck reports whether the ground API is reachable.
func (c *GroundClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?limit=1", nil)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "[GROUND_HEALTH] Ground health check failed", logging.Fields{
			"error": err.Error(),
		})
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
