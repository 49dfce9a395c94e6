package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"airquality-platform/internal/models"
	"airquality-platform/internal/services"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// maxHistoryDays bounds the synthesized history window.
const maxHistoryDays = 30

// AirQualityHandler handles air quality API endpoints
type AirQualityHandler struct {
	assessment *services.AssessmentService
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewAirQualityHandler creates a new air quality handler
func NewAirQualityHandler(assessment *services.AssessmentService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AirQualityHandler {
	return &AirQualityHandler{
		assessment: assessment,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// LocationRequest is the request body shared by the assessment endpoints.
type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Days is only honored by the history endpoint.
	Days int `json:"days,omitempty"`
}

// AirQualityResponse is the combined current-index-plus-forecast envelope.
type AirQualityResponse struct {
	CurrentAQI    int                   `json:"current_aqi"`
	NO2Level      *float64              `json:"no2_level,omitempty"`
	O3Level       *float64              `json:"o3_level,omitempty"`
	PM25Level     *float64              `json:"pm25_level,omitempty"`
	WeatherFactor float64               `json:"weather_factor"`
	Defaulted     bool                  `json:"defaulted,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
	DataSources   []string              `json:"data_sources"`
	Forecast      []models.DayForecast  `json:"forecast"`
}

// GetAirQuality handles POST /air-quality
func (h *AirQualityHandler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/air-quality").Observe(duration.Seconds())
	}()

	loc, ok := h.parseLocation(w, r)
	if !ok {
		return
	}

	assessment := h.assessment.Assess(ctx, loc)

	response := AirQualityResponse{
		CurrentAQI:    assessment.Current.ScaledIndex,
		NO2Level:      pollutantLevel(assessment.Current, models.PollutantNO2),
		O3Level:       pollutantLevel(assessment.Current, models.PollutantO3),
		PM25Level:     pollutantLevel(assessment.Current, models.PollutantPM25),
		WeatherFactor: assessment.Current.WeatherFactor,
		Defaulted:     assessment.Current.Defaulted,
		Timestamp:     assessment.Current.Timestamp,
		DataSources:   assessment.Current.Sources,
		Forecast:      assessment.Forecast,
	}

	h.metrics.RecordAPIRequest("/air-quality", "POST", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetForecast handles POST /forecast
func (h *AirQualityHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/forecast").Observe(duration.Seconds())
	}()

	loc, ok := h.parseLocation(w, r)
	if !ok {
		return
	}

	forecast := h.assessment.Forecast(ctx, loc)

	h.metrics.RecordAPIRequest("/forecast", "POST", "200")
	h.sendJSON(w, map[string]interface{}{"forecast": forecast}, http.StatusOK)
}

// GetHistory handles POST /history
func (h *AirQualityHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/history").Observe(duration.Seconds())
	}()

	var req LocationRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	loc := models.Location{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := loc.Validate(); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Days > maxHistoryDays {
		h.sendError(w, r, "days must be at most "+strconv.Itoa(maxHistoryDays), http.StatusBadRequest)
		return
	}

	history := h.assessment.History(ctx, loc, req.Days)

	h.metrics.RecordAPIRequest("/history", "POST", "200")
	h.sendJSON(w, map[string]interface{}{"history": history}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *AirQualityHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := h.assessment.ProviderHealth(ctx)

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]bool{
			"satellite":   health.Satellite,
			"ground":      health.Ground,
			"weather":     health.Weather,
			"air_quality": true,
		},
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// GetSatelliteStatus handles GET /satellite/status
func (h *AirQualityHandler) GetSatelliteStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.assessment.SatelliteStatus(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_SATELLITE_STATUS_ERROR] Failed to get satellite status", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/satellite/status")
		h.sendError(w, r, "failed to retrieve satellite status", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/satellite/status", "GET", "200")
	h.sendJSON(w, status, http.StatusOK)
}

// GetDataSources handles GET /data-sources
func (h *AirQualityHandler) GetDataSources(w http.ResponseWriter, r *http.Request) {
	sources := map[string]interface{}{
		"satellite": map[string]interface{}{
			"name":             "NASA TEMPO",
			"description":      "Tropospheric Emissions: Monitoring of Pollution",
			"coverage":         "North America",
			"update_frequency": "Hourly",
			"parameters":       []string{"NO2", "HCHO", "O3"},
		},
		"ground": map[string]interface{}{
			"name":             "OpenAQ",
			"description":      "Global air quality data from ground stations",
			"coverage":         "Global",
			"update_frequency": "Real-time",
			"parameters":       []string{"PM2.5", "PM10", "NO2", "O3"},
		},
		"weather": map[string]interface{}{
			"name":             "OpenWeatherMap",
			"description":      "Weather data for air quality modeling",
			"coverage":         "Global",
			"update_frequency": "Hourly",
			"parameters":       []string{"Temperature", "Humidity", "Wind", "Pressure"},
		},
	}

	h.metrics.RecordAPIRequest("/data-sources", "GET", "200")
	h.sendJSON(w, sources, http.StatusOK)
}

// parseLocation decodes and validates the shared request body.
func (h *AirQualityHandler) parseLocation(w http.ResponseWriter, r *http.Request) (models.Location, bool) {
	var req LocationRequest
	if !h.decodeRequest(w, r, &req) {
		return models.Location{}, false
	}

	loc := models.Location{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := loc.Validate(); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return models.Location{}, false
	}

	return loc, true
}

func (h *AirQualityHandler) decodeRequest(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.sendError(w, r, "invalid request body, expected JSON with latitude and longitude", http.StatusBadRequest)
		return false
	}
	return true
}

// pollutantLevel extracts a pollutant concentration as an optional field.
func pollutantLevel(result *models.IndexResult, pollutant models.Pollutant) *float64 {
	if v, ok := result.Pollutants.Get(pollutant); ok {
		return models.Float(v)
	}
	return nil
}

// sendJSON sends a JSON response
func (h *AirQualityHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *AirQualityHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all air quality API routes
func (h *AirQualityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/air-quality", h.GetAirQuality).Methods("POST")
	router.HandleFunc("/forecast", h.GetForecast).Methods("POST")
	router.HandleFunc("/history", h.GetHistory).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/satellite/status", h.GetSatelliteStatus).Methods("GET")
	router.HandleFunc("/data-sources", h.GetDataSources).Methods("GET")
}
