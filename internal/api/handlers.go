package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/internal/config"
	"github.com/yegors/routemap/internal/mapview"
	"github.com/yegors/routemap/internal/scene"
	"github.com/yegors/routemap/internal/search"
	"github.com/yegors/routemap/internal/storage/sqlite"
	"github.com/yegors/routemap/internal/websocket"
	"github.com/yegors/routemap/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	airports *sqlite.AirportStorage
	searcher *search.Searcher
	mapView  *mapview.Controller
	scenes   *scene.Engine
	wsServer *websocket.Server
	config   *config.Config
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(airports *sqlite.AirportStorage, mapView *mapview.Controller, scenes *scene.Engine, wsServer *websocket.Server, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		airports: airports,
		searcher: search.NewSearcher(airports, logger),
		mapView:  mapView,
		scenes:   scenes,
		wsServer: wsServer,
		config:   config,
		logger:   logger.Named("api-handler"),
	}
}

// RouteRequest asks for a route between two airports. Speed defaults to the
// configured cruise speed in knots.
type RouteRequest struct {
	From  string         `json:"from"`
	To    string         `json:"to"`
	Speed *airport.Speed `json:"speed,omitempty"`
}

// ThemeRequest changes the label color
type ThemeRequest struct {
	LabelColor string `json:"labelColor"`
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	airports, err := h.airports.CountAirports(r.Context())
	status := "ok"
	if err != nil {
		h.logger.Error("Health check could not count airports", logger.Error(err))
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":            status,
		"map_state":         h.mapView.State().String(),
		"airport_count":     airports,
		"websocket_clients": h.wsServer.ClientCount(),
	})
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"map": map[string]interface{}{
			"basemap":          h.config.Map.Basemap,
			"next_basemap":     h.config.Map.NextBasemap,
			"zoom":             h.config.Map.Zoom,
			"container":        h.config.Map.Container,
			"label_color":      h.mapView.LabelColor(),
			"runway_min_scale": h.config.Map.RunwayMinScale,
		},
		"routes": map[string]interface{}{
			"default_speed_knots": h.config.Routes.DefaultSpeedKnots,
		},
	})
}

// GetAirport returns an airport by its ICAO code
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	apt, err := h.airports.GetAirportByICAO(r.Context(), normalizeICAO(chi.URLParam(r, "icao")))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, apt)
}

// GetCountries returns every known country
func (h *Handler) GetCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.airports.ListCountries(r.Context())
	if err != nil {
		h.logger.Error("Failed to list countries", logger.Error(err))
		http.Error(w, "Failed to list countries", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, countries)
}

// GetRoute returns the route currently drawn on the map
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	route := h.mapView.CurrentRoute()
	if route == nil {
		http.Error(w, "No route drawn", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, route)
}

// DrawRoute builds the route between two airports and draws it
func (h *Handler) DrawRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	speed := airport.Speed{Type: airport.SpeedKnots, Value: h.config.Routes.DefaultSpeedKnots}
	if req.Speed != nil {
		speed = *req.Speed
	}
	if err := speed.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	from, err := h.airports.GetAirportByICAO(r.Context(), normalizeICAO(req.From))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	to, err := h.airports.GetAirportByICAO(r.Context(), normalizeICAO(req.To))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	route, err := airport.NewRoute(from, to, speed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.requireReady(w) {
		return
	}

	h.mapView.DrawRoute(r.Context(), route)

	h.logger.Info("Route drawn",
		logger.String("from", from.ICAO),
		logger.String("to", to.ICAO),
		logger.Float64("distance_nm", route.Distance),
		logger.String("time", route.Time.String()))

	WriteJSON(w, http.StatusOK, route)
}

// SearchRoutes lists routes matching departure and arrival filters. Speed
// defaults to the configured cruise speed in knots.
func (h *Handler) SearchRoutes(w http.ResponseWriter, r *http.Request) {
	var filters search.Filters
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if filters.Speed == (airport.Speed{}) {
		filters.Speed = airport.Speed{Type: airport.SpeedKnots, Value: h.config.Routes.DefaultSpeedKnots}
	}
	for _, side := range []*search.AirportFilters{filters.Departure, filters.Arrival} {
		if side != nil {
			side.ICAO = normalizeICAO(side.ICAO)
		}
	}

	routes, err := h.searcher.Search(r.Context(), filters)
	switch {
	case errors.Is(err, airport.ErrInvalidSpeed),
		errors.Is(err, airport.ErrInvalidICAO),
		errors.Is(err, airport.ErrInvalidFilter):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("Route search failed", logger.Error(err))
		http.Error(w, "Route search failed", http.StatusInternalServerError)
		return
	}
	if routes == nil {
		routes = []*airport.Route{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
	})
}

// ClearRoute removes the drawn route and runways
func (h *Handler) ClearRoute(w http.ResponseWriter, r *http.Request) {
	if !h.requireReady(w) {
		return
	}

	h.mapView.ClearRoute()
	w.WriteHeader(http.StatusNoContent)
}

// ViewAirport moves the map to an airport
func (h *Handler) ViewAirport(w http.ResponseWriter, r *http.Request) {
	apt, err := h.airports.GetAirportByICAO(r.Context(), normalizeICAO(chi.URLParam(r, "icao")))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	if !h.requireReady(w) {
		return
	}

	h.mapView.ViewAirport(r.Context(), apt)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"icao":     apt.ICAO,
		"position": apt.Position,
		"scale":    h.mapView.TargetScale(),
	})
}

// SetTheme changes the label color and redraws the current route
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	color := strings.TrimSpace(req.LabelColor)
	if color == "" {
		http.Error(w, "labelColor is required", http.StatusBadRequest)
		return
	}

	h.mapView.SetLabelColor(r.Context(), color)
	WriteJSON(w, http.StatusOK, ThemeRequest{LabelColor: h.mapView.LabelColor()})
}

// GetScene returns the rendered scene as GeoJSON layers
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	s, err := h.scenes.Snapshot(mapview.Container(h.config.Map.Container))
	if errors.Is(err, scene.ErrNoView) {
		http.Error(w, "Map view is not mounted", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error("Failed to snapshot scene", logger.Error(err))
		http.Error(w, "Failed to render scene", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, s)
}

// HandleWebSocket streams scene updates
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.Handler().ServeHTTP(w, r)
}

func (h *Handler) requireReady(w http.ResponseWriter) bool {
	if h.mapView.State() != mapview.StateReady {
		http.Error(w, mapview.ErrNotReady.Error(), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, airport.ErrInvalidICAO):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, airport.ErrAirportNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("Airport lookup failed", logger.Error(err))
		http.Error(w, "Airport lookup failed", http.StatusInternalServerError)
	}
}

func normalizeICAO(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response: " + err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
