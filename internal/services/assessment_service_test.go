package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/clients"
	"airquality-platform/internal/models"
)

type stubSatelliteProvider struct {
	reading *models.SatelliteReading
	err     error
	healthy bool
}

func (s *stubSatelliteProvider) Readings(ctx context.Context, loc models.Location) (*models.SatelliteReading, error) {
	return s.reading, s.err
}

func (s *stubSatelliteProvider) Status(ctx context.Context) (*clients.SatelliteStatus, error) {
	return &clients.SatelliteStatus{Service: "NASA TEMPO", Status: "operational"}, nil
}

func (s *stubSatelliteProvider) HealthCheck(ctx context.Context) bool {
	return s.healthy
}

type stubGroundProvider struct {
	reading *models.GroundReading
	err     error
	healthy bool
}

func (s *stubGroundProvider) Readings(ctx context.Context, loc models.Location) (*models.GroundReading, error) {
	return s.reading, s.err
}

func (s *stubGroundProvider) HealthCheck(ctx context.Context) bool {
	return s.healthy
}

func newTestAssessment(satellite *stubSatelliteProvider, ground *stubGroundProvider, weather *stubWeatherProvider) *AssessmentService {
	logger := newTestLogger()
	calculator := NewAirQualityService(logger, testMetrics)
	forecaster := NewForecastService(weather, logger, testMetrics)

	svc := NewAssessmentService(satellite, ground, weather, calculator, forecaster, logger, testMetrics)

	fixed := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	calculator.now = func() time.Time { return fixed }
	forecaster.now = func() time.Time { return fixed }
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestAssess_HealthySources(t *testing.T) {
	satellite := &stubSatelliteProvider{
		reading: &models.SatelliteReading{NO2: models.Float(53), Source: "satellite-test"},
		healthy: true,
	}
	ground := &stubGroundProvider{
		reading: &models.GroundReading{PM25: models.Float(35.4), Source: "ground-test"},
		healthy: true,
	}
	weather := &stubWeatherProvider{current: defaultObservation(), healthy: true}

	svc := newTestAssessment(satellite, ground, weather)
	assessment := svc.Assess(context.Background(), testLocation)

	require.NotNil(t, assessment.Current)
	assert.Equal(t, 2, assessment.Current.ScaledIndex)
	assert.Equal(t, []string{"satellite-test", "ground-test"}, assessment.Current.Sources)
	assert.Len(t, assessment.Forecast, ForecastDays)
}

func TestAssess_AllSourcesDown(t *testing.T) {
	satellite := &stubSatelliteProvider{err: errors.New("satellite down")}
	ground := &stubGroundProvider{err: errors.New("ground down")}
	weather := &stubWeatherProvider{forecastErr: errors.New("weather down")}

	svc := newTestAssessment(satellite, ground, weather)
	assessment := svc.Assess(context.Background(), testLocation)

	// Every source fails, yet the assessment is complete and built from the
	// simulated fallbacks rather than marked defaulted.
	require.NotNil(t, assessment.Current)
	assert.False(t, assessment.Current.Defaulted)
	assert.GreaterOrEqual(t, assessment.Current.ScaledIndex, 1)
	assert.LessOrEqual(t, assessment.Current.ScaledIndex, 5)
	assert.Equal(t, []string{"satellite-simulated", "ground-simulated"}, assessment.Current.Sources)
	assert.Len(t, assessment.Forecast, ForecastDays)
}

func TestForecastWithoutCurrentIndex(t *testing.T) {
	svc := newTestAssessment(
		&stubSatelliteProvider{err: errors.New("down")},
		&stubGroundProvider{err: errors.New("down")},
		&stubWeatherProvider{current: defaultObservation()},
	)

	forecast := svc.Forecast(context.Background(), testLocation)
	require.Len(t, forecast, ForecastDays)
}

func TestHistory(t *testing.T) {
	satellite := &stubSatelliteProvider{
		reading: &models.SatelliteReading{NO2: models.Float(60), O3: models.Float(80), Source: "satellite-test"},
	}
	svc := newTestAssessment(satellite, &stubGroundProvider{}, &stubWeatherProvider{current: defaultObservation()})

	history := svc.History(context.Background(), testLocation, 10)
	require.Len(t, history, 10)

	for i, point := range history {
		assert.GreaterOrEqual(t, point.Index, 1)
		assert.LessOrEqual(t, point.Index, 5)
		if i > 0 {
			assert.True(t, point.Date.After(history[i-1].Date), "dates must ascend")
		}
	}

	// The last point is yesterday.
	assert.Equal(t, time.Date(2024, 4, 14, 12, 0, 0, 0, time.UTC), history[len(history)-1].Date)
}

func TestHistory_DefaultWindow(t *testing.T) {
	satellite := &stubSatelliteProvider{err: errors.New("down")}
	svc := newTestAssessment(satellite, &stubGroundProvider{}, &stubWeatherProvider{current: defaultObservation()})

	history := svc.History(context.Background(), testLocation, 0)
	assert.Len(t, history, ForecastDays)
}

func TestHistoricalVariation(t *testing.T) {
	for daysAgo := 1; daysAgo <= 30; daysAgo++ {
		v := historicalVariation(daysAgo)
		assert.GreaterOrEqual(t, v, -2, "daysAgo %d", daysAgo)
		assert.LessOrEqual(t, v, 2, "daysAgo %d", daysAgo)
		assert.Equal(t, v, historicalVariation(daysAgo), "must be reproducible")
	}

	// Recent days vary at most by one step.
	for daysAgo := 1; daysAgo <= 2; daysAgo++ {
		v := historicalVariation(daysAgo)
		assert.GreaterOrEqual(t, v, -1)
		assert.LessOrEqual(t, v, 1)
	}
}

func TestProviderHealth(t *testing.T) {
	svc := newTestAssessment(
		&stubSatelliteProvider{healthy: true},
		&stubGroundProvider{healthy: false},
		&stubWeatherProvider{healthy: true},
	)

	health := svc.ProviderHealth(context.Background())
	assert.True(t, health.Satellite)
	assert.False(t, health.Ground)
	assert.True(t, health.Weather)
}

func TestSatelliteStatus(t *testing.T) {
	svc := newTestAssessment(&stubSatelliteProvider{}, &stubGroundProvider{}, &stubWeatherProvider{})

	status, err := svc.SatelliteStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NASA TEMPO", status.Service)
}
