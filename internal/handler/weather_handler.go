package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NazeerGreene/WeatherApp/internal/client"
	"github.com/NazeerGreene/WeatherApp/internal/config"
	"github.com/NazeerGreene/WeatherApp/internal/model"
	"github.com/NazeerGreene/WeatherApp/internal/observability"
	"github.com/NazeerGreene/WeatherApp/internal/service"
)

// Literal 400 bodies, kept bit-exact on the wire.
const (
	invalidDateFormatBody = "Invalid date format submitted, valid date format: yyyy-MM-dd"
	invalidDateRangeBody  = "Invalid date range submitted, end date must not precede start date"
)

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
}

func NewWeatherHandler(svc service.WeatherServiceInterface) *WeatherHandler {
	return &WeatherHandler{WeatherService: svc}
}

// Routes registers the weather endpoints plus health and metrics.
func (h *WeatherHandler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/weather/location/{address}", h.ForLocation).Methods(http.MethodGet)
	r.HandleFunc("/weather/location/{location}/{start}", h.ForLocationAtStartDate).Methods(http.MethodGet)
	r.HandleFunc("/weather/location/{location}/{start}/{end}", h.ForLocationBetweenDates).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	return r
}

// ForLocation handles GET /weather/location/{address}.
func (h *WeatherHandler) ForLocation(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	weather, err := h.WeatherService.AtLocation(r.Context(), address)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeWeather(w, weather)
}

// ForLocationAtStartDate handles GET /weather/location/{location}/{start},
// an open-ended range from start.
func (h *WeatherHandler) ForLocationAtStartDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	weather, err := h.WeatherService.AtLocationBetweenDates(r.Context(), vars["location"], vars["start"], "")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeWeather(w, weather)
}

// ForLocationBetweenDates handles GET /weather/location/{location}/{start}/{end}.
func (h *WeatherHandler) ForLocationBetweenDates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	weather, err := h.WeatherService.AtLocationBetweenDates(r.Context(), vars["location"], vars["start"], vars["end"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeWeather(w, weather)
}

// Health handles GET /healthz.
func (h *WeatherHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (h *WeatherHandler) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	errMsg := "Method not allowed"
	w.Header().Set("Allow", http.MethodGet)
	h.writeJSONResponse(w, http.StatusMethodNotAllowed, model.Response{
		Error:   &errMsg,
		Message: "Error",
	})
}

// writeWeather serializes the result directly, so a cache hit produces a body
// byte-identical to the response that populated it.
func (h *WeatherHandler) writeWeather(w http.ResponseWriter, weather *model.WeatherResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(weather); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

// writeServiceError maps the service/client error taxonomy onto HTTP statuses.
// Date errors keep their literal text bodies; everything else is the JSON
// error envelope with no internal detail leaked.
func (h *WeatherHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDateFormat):
		h.writeLiteralError(w, http.StatusBadRequest, invalidDateFormatBody)
	case errors.Is(err, service.ErrInvalidDateRange):
		h.writeLiteralError(w, http.StatusBadRequest, invalidDateRangeBody)
	case errors.Is(err, client.ErrLocationNotFound):
		h.writeEnvelopeError(w, http.StatusNotFound, "Location not found")
	case errors.Is(err, client.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		h.writeEnvelopeError(w, http.StatusGatewayTimeout, "Weather provider timed out")
	case errors.Is(err, client.ErrUpstreamUnavailable):
		h.writeEnvelopeError(w, http.StatusServiceUnavailable, "Weather provider unavailable")
	case errors.Is(err, client.ErrUpstreamError), errors.Is(err, client.ErrMalformedResponse):
		h.writeEnvelopeError(w, http.StatusBadGateway, "Weather provider returned an invalid response")
	default:
		config.GetLogger().Errorw("weather lookup failed", "error", err)
		h.writeEnvelopeError(w, http.StatusInternalServerError, "Failed to fetch weather data")
	}
}

func (h *WeatherHandler) writeLiteralError(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprint(w, body)
}

func (h *WeatherHandler) writeEnvelopeError(w http.ResponseWriter, statusCode int, msg string) {
	h.writeJSONResponse(w, statusCode, model.Response{
		Error:   &msg,
		Message: "Error",
	})
}
