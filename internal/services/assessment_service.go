package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"airquality-platform/internal/clients"
	"airquality-platform/internal/models"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// Assessment bundles the current index with its forward projection.
type Assessment struct {
	Current  *models.IndexResult  `json:"current"`
	Forecast []models.DayForecast `json:"forecast"`
}

// ProviderHealth reports reachability of the upstream data providers.
type ProviderHealth struct {
	Satellite bool `json:"satellite"`
	Ground    bool `json:"ground"`
	Weather   bool `json:"weather"`
}

// AssessmentService orchestrates the upstream fetches and the two engine
// stages for one location. Like the engine itself it never propagates
// upstream failures: unavailable providers are replaced by simulated data.
type AssessmentService struct {
	satellite  clients.SatelliteProvider
	ground     clients.GroundProvider
	weather    clients.WeatherProvider
	calculator *AirQualityService
	forecaster *ForecastService
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
	now        func() time.Time
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	satellite clients.SatelliteProvider,
	ground clients.GroundProvider,
	weather clients.WeatherProvider,
	calculator *AirQualityService,
	forecaster *ForecastService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *AssessmentService {
	return &AssessmentService{
		satellite:  satellite,
		ground:     ground,
		weather:    weather,
		calculator: calculator,
		forecaster: forecaster,
		logger:     logger,
		metrics:    metricsCollector,
		now:        time.Now,
	}
}

// Assess computes the current index and the 7-day forecast for a location.
func (s *AssessmentService) Assess(ctx context.Context, loc models.Location) *Assessment {
	satellite, ground, weather := s.fetchInputs(ctx, loc)

	current := s.calculator.ComputeIndex(ctx, satellite, ground, weather)
	forecast := s.forecaster.GenerateForecast(ctx, loc, current)

	s.logger.Info(ctx, "[ASSESSMENT_COMPLETE] Air quality assessed", logging.Fields{
		"latitude":     loc.Latitude,
		"longitude":    loc.Longitude,
		"scaled_index": current.ScaledIndex,
		"sources":      current.Sources,
		"forecast_len": len(forecast),
	})

	return &Assessment{
		Current:  current,
		Forecast: forecast,
	}
}

// Forecast generates a forecast without a current index; the forecaster
// synthesizes its baseline.
func (s *AssessmentService) Forecast(ctx context.Context, loc models.Location) []models.DayForecast {
	return s.forecaster.GenerateForecast(ctx, loc, nil)
}

// fetchInputs retrieves the three independent source bundles concurrently.
// Failures are aggregated for logging and each failed source is replaced by
// its deterministic simulated equivalent.
func (s *AssessmentService) fetchInputs(ctx context.Context, loc models.Location) (*models.SatelliteReading, *models.GroundReading, *models.WeatherObservation) {
	var (
		satellite *models.SatelliteReading
		ground    *models.GroundReading
		weather   *models.WeatherObservation

		mu   sync.Mutex
		errs *multierror.Error
		wg   sync.WaitGroup
	)

	collect := func(err error) {
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		r, err := s.satellite.Readings(ctx, loc)
		if err != nil {
			collect(fmt.Errorf("satellite readings: %w", err))
			return
		}
		satellite = r
	}()
	go func() {
		defer wg.Done()
		r, err := s.ground.Readings(ctx, loc)
		if err != nil {
			collect(fmt.Errorf("ground readings: %w", err))
			return
		}
		ground = r
	}()
	go func() {
		defer wg.Done()
		w, err := s.weather.Current(ctx, loc)
		if err != nil {
			collect(fmt.Errorf("weather observation: %w", err))
			return
		}
		weather = w
	}()
	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		s.logger.Warn(ctx, "[ASSESS_DEGRADED] Some data sources unavailable, using simulated fallbacks", logging.Fields{
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
			"error":     err.Error(),
		})
	}

	now := s.now().UTC()
	if satellite == nil {
		satellite = clients.SimulatedSatelliteReading(loc, now)
	}
	if ground == nil {
		ground = clients.SimulatedGroundReading(loc, now)
	}
	if weather == nil {
		weather = clients.SimulatedWeather(loc, now)
	}

	return satellite, ground, weather
}

// History synthesizes recent daily history around the current satellite
// baseline, oldest day first. The variation widens for older days.
func (s *AssessmentService) History(ctx context.Context, loc models.Location, days int) []models.HistoryPoint {
	if days <= 0 {
		days = ForecastDays
	}

	satellite, err := s.satellite.Readings(ctx, loc)
	if err != nil {
		s.logger.Warn(ctx, "[HISTORY_FALLBACK] Satellite readings unavailable, simulating baseline", logging.Fields{
			"error": err.Error(),
		})
		satellite = clients.SimulatedSatelliteReading(loc, s.now().UTC())
	}

	base := s.calculator.ComputeIndex(ctx, satellite, nil, nil)

	no2 := base.Pollutants[models.PollutantNO2]
	o3 := base.Pollutants[models.PollutantO3]
	pm25 := base.Pollutants[models.PollutantPM25]

	now := s.now().UTC()
	history := make([]models.HistoryPoint, 0, days)
	for daysAgo := days; daysAgo >= 1; daysAgo-- {
		variation := historicalVariation(daysAgo)
		history = append(history, models.HistoryPoint{
			Date:      now.AddDate(0, 0, -daysAgo),
			Index:     clampInt(base.ScaledIndex+variation, 1, 5),
			NO2Level:  no2 + float64(variation)*5,
			O3Level:   o3 + float64(variation)*3,
			PM25Level: pm25 + float64(variation)*2,
		})
	}

	return history
}

// historicalVariation is a deterministic variation term whose range widens
// with age, capped at ±2.
func historicalVariation(daysAgo int) int {
	span := daysAgo/3 + 1
	if span > 2 {
		span = 2
	}

	h := fnv.New32a()
	h.Write([]byte{byte(daysAgo)})
	return int(h.Sum32()%uint32(span*2+1)) - span
}

// ProviderHealth checks each upstream provider concurrently.
func (s *AssessmentService) ProviderHealth(ctx context.Context) ProviderHealth {
	var health ProviderHealth
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		health.Satellite = s.satellite.HealthCheck(ctx)
	}()
	go func() {
		defer wg.Done()
		health.Ground = s.ground.HealthCheck(ctx)
	}()
	go func() {
		defer wg.Done()
		health.Weather = s.weather.HealthCheck(ctx)
	}()
	wg.Wait()

	return health
}

// SatelliteStatus reports satellite data availability.
func (s *AssessmentService) SatelliteStatus(ctx context.Context) (*clients.SatelliteStatus, error) {
	return s.satellite.Status(ctx)
}
