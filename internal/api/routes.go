package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/routemap/internal/config"
	"github.com/yegors/routemap/internal/mapview"
	"github.com/yegors/routemap/internal/scene"
	"github.com/yegors/routemap/internal/storage/sqlite"
	"github.com/yegors/routemap/internal/websocket"
	"github.com/yegors/routemap/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(airports *sqlite.AirportStorage, mapView *mapview.Controller, scenes *scene.Engine, wsServer *websocket.Server, config *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(airports, mapView, scenes, wsServer, config, logger),
		middleware: NewMiddleware(logger),
		config:     config,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)
		router.Get("/config", r.handler.GetConfig)

		// Reference data
		router.Get("/airports/{icao}", r.handler.GetAirport)
		router.Get("/countries", r.handler.GetCountries)
		router.Post("/routes/search", r.handler.SearchRoutes)

		// Map view
		router.Get("/route", r.handler.GetRoute)
		router.Post("/route", r.handler.DrawRoute)
		router.Post("/route/clear", r.handler.ClearRoute)
		router.Post("/view/{icao}", r.handler.ViewAirport)
		router.Put("/theme", r.handler.SetTheme)

		// Rendered scene
		router.Get("/scene", r.handler.GetScene)
		router.Get("/scene/ws", r.handler.HandleWebSocket)
	})

	if dir := r.config.Server.StaticFilesDir; dir != "" {
		router.Handle("/*", NewStaticFileHandler(dir, r.logger))
	}

	return router
}
