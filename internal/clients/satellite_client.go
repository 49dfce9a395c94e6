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

// SatelliteClient fetches tropospheric column readings from a TEMPO-style
// satellite data API. Without an API key it serves simulated readings.
type SatelliteClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewSatelliteClient creates a new satellite data client
func NewSatelliteClient(baseURL, apiKey string, timeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SatelliteClient {
	return &SatelliteClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// satelliteResponse is the wire format of the satellite readings endpoint.
type satelliteResponse struct {
	NO2       *float64  `json:"no2"`
	O3        *float64  `json:"o3"`
	HCHO      *float64  `json:"hcho"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Readings returns the satellite pollutant bundle for a location.
func (c *SatelliteClient) Readings(ctx context.Context, loc models.Location) (*models.SatelliteReading, error) {
	if c.apiKey == "" {
		c.metrics.RecordUpstreamRequest("satellite", outcomeSimulated)
		return SimulatedSatelliteReading(loc, time.Now().UTC()), nil
	}

	timer := c.metrics.NewTimer(c.metrics.UpstreamRequestDuration.WithLabelValues("satellite"))
	defer timer.ObserveDuration()

	endpoint := fmt.Sprintf("%s/air-quality?lat=%s&lon=%s",
		c.baseURL,
		url.QueryEscape(fmt.Sprintf("%f", loc.Latitude)),
		url.QueryEscape(fmt.Sprintf("%f", loc.Longitude)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.metrics.RecordUpstreamRequest("satellite", outcomeError)
		return nil, fmt.Errorf("failed to build satellite request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest("satellite", outcomeError)
		return nil, fmt.Errorf("satellite request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamRequest("satellite", outcomeError)
		return nil, fmt.Errorf("satellite API returned status %d", resp.StatusCode)
	}

	var payload satelliteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.RecordUpstreamRequest("satellite", outcomeError)
		return nil, fmt.Errorf("failed to decode satellite response: %w", err)
	}

	source := payload.Source
	if source == "" {
		source = "satellite"
	}

	c.metrics.RecordUpstreamRequest("satellite", outcomeOK)
	c.logger.Debug(ctx, "[SATELLITE_READINGS] Satellite readings fetched", logging.Fields{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"source":    source,
	})

	return &models.SatelliteReading{
		NO2:       payload.NO2,
		O3:        payload.O3,
		HCHO:      payload.HCHO,
		Timestamp: payload.Timestamp,
		Source:    source,
	}, nil
}

// Status reports satellite data availability.
func (c *SatelliteClient) Status(ctx context.Context) (*SatelliteStatus, error) {
	status := "simulated"
	if c.apiKey != "" {
		if c.HealthCheck(ctx) {
			status = "operational"
		} else {
			status = "unreachable"
		}
	}

	return &SatelliteStatus{
		Service:     "TEMPO",
		Status:      status,
		LastUpdate:  time.Now().UTC(),
		Coverage:    "North America",
		DataLatency: "1-2 hours",
		Parameters:  []string{"NO2", "HCHO", "O3"},
	}, nil
}

// HealthCheck reports whether the satellite API is reachable.
func (c *SatelliteClient) HealthCheck(ctx context.Context) bool {
	if c.apiKey == "" {
		// Simulated mode is always available
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "[SATELLITE_HEALTH] Satellite health check failed", logging.Fields{
			"error": err.Error(),
		})
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
