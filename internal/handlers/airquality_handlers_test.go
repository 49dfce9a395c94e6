package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/clients"
	"airquality-platform/internal/models"
	"airquality-platform/internal/services"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// Shared across the package's tests: prometheus collectors register globally,
// so the collector is created once per test binary.
var testMetrics = metrics.NewCollector("handlers_test")

type fakeSatellite struct{}

func (fakeSatellite) Readings(ctx context.Context, loc models.Location) (*models.SatelliteReading, error) {
	return &models.SatelliteReading{NO2: models.Float(53), Source: "satellite-test"}, nil
}

func (fakeSatellite) Status(ctx context.Context) (*clients.SatelliteStatus, error) {
	return &clients.SatelliteStatus{Service: "TEMPO", Status: "operational"}, nil
}

func (fakeSatellite) HealthCheck(ctx context.Context) bool { return true }

type fakeGround struct{}

func (fakeGround) Readings(ctx context.Context, loc models.Location) (*models.GroundReading, error) {
	return &models.GroundReading{PM25: models.Float(35.4), Source: "ground-test"}, nil
}

func (fakeGround) HealthCheck(ctx context.Context) bool { return true }

type fakeWeather struct{}

func (fakeWeather) Current(ctx context.Context, loc models.Location) (*models.WeatherObservation, error) {
	return models.DefaultWeather(), nil
}

func (fakeWeather) ForecastDay(ctx context.Context, loc models.Location, daysAhead int) (*models.WeatherObservation, error) {
	return models.DefaultWeather(), nil
}

func (fakeWeather) HealthCheck(ctx context.Context) bool { return false }

func newTestRouter() *mux.Router {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)

	calculator := services.NewAirQualityService(logger, testMetrics)
	forecaster := services.NewForecastService(fakeWeather{}, logger, testMetrics)
	assessment := services.NewAssessmentService(
		fakeSatellite{}, fakeGround{}, fakeWeather{},
		calculator, forecaster, logger, testMetrics,
	)

	handler := NewAirQualityHandler(assessment, logger, testMetrics)

	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	handler.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetAirQuality(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/air-quality", `{"latitude": 40.7, "longitude": -74.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var response AirQualityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, 2, response.CurrentAQI)
	require.NotNil(t, response.NO2Level)
	assert.Equal(t, 53.0, *response.NO2Level)
	require.NotNil(t, response.PM25Level)
	assert.Equal(t, 35.4, *response.PM25Level)
	assert.Equal(t, []string{"satellite-test", "ground-test"}, response.DataSources)
	assert.Len(t, response.Forecast, services.ForecastDays)
	assert.False(t, response.Defaulted)
}

func TestGetAirQuality_InvalidBody(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/air-quality", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Contains(t, response.Message, "invalid request body")
}

func TestGetAirQuality_InvalidCoordinates(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/air-quality", `{"latitude": 120, "longitude": 0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response.Message, "latitude")
}

func TestGetForecast(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/forecast", `{"latitude": 40.7, "longitude": -74.0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Forecast []models.DayForecast `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Forecast, services.ForecastDays)

	for _, day := range response.Forecast {
		assert.GreaterOrEqual(t, day.Index, 1)
		assert.LessOrEqual(t, day.Index, 5)
	}
}

func TestGetHistory(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/history", `{"latitude": 40.7, "longitude": -74.0, "days": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		History []models.HistoryPoint `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response.History, 5)
}

func TestGetHistory_TooManyDays(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/history", `{"latitude": 40.7, "longitude": -74.0, "days": 90}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Status   string          `json:"status"`
		Services map[string]bool `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "healthy", response.Status)
	assert.True(t, response.Services["satellite"])
	assert.True(t, response.Services["ground"])
	assert.False(t, response.Services["weather"])
	assert.True(t, response.Services["air_quality"])
}

func TestGetSatelliteStatus(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/satellite/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status clients.SatelliteStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "TEMPO", status.Service)
	assert.Equal(t, "operational", status.Status)
}

func TestGetDataSources(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/data-sources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sources map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sources))
	assert.Contains(t, sources, "satellite")
	assert.Contains(t, sources, "ground")
	assert.Contains(t, sources, "weather")
}

func TestRequestIDMiddleware_PreservesIncomingID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
