package api

import (
	"net/http"
	"transit-tracking-service/internal/api/handlers"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"
	"transit-tracking-service/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Deps struct {
	Shifts      *services.ShiftService
	Locations   *services.LocationService
	Registry    ports.Registry
	Auth        *Authenticator
	DB          handlers.Pinger
	CORSOrigins []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	shiftHandler := &handlers.ShiftHandler{Shifts: d.Shifts}
	locationHandler := &handlers.LocationHandler{Locations: d.Locations}
	fleetHandler := &handlers.FleetHandler{Registry: d.Registry, Locations: d.Locations}
	healthHandler := &handlers.HealthHandler{DB: d.DB}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusNotFound, handlers.CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusMethodNotAllowed, handlers.CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/shifts", func(r chi.Router) {
			r.Use(d.Auth.Middleware)

			r.Post("/start", shiftHandler.Start)
			r.Post("/complete", shiftHandler.Complete)
			r.Get("/active", shiftHandler.ListActive)
			r.Get("/my-active", shiftHandler.MyActive)
			r.Get("/my-history", shiftHandler.MyHistory)
			r.Get("/{id}", shiftHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(domain.RoleAdmin))
				r.Get("/history", shiftHandler.History)
				r.Get("/statistics", shiftHandler.Statistics)
				r.Post("/{id}/complete", shiftHandler.CompleteByID)
				r.Delete("/{id}", shiftHandler.Delete)
			})
		})

		r.Route("/locations", func(r chi.Router) {
			// Public position views for passenger map clients.
			r.Group(func(r chi.Router) {
				r.Use(d.Auth.Optional)
				r.Get("/latest", locationHandler.Latest)
				r.Get("/vehicle/{id}", locationHandler.VehicleHistory)
				r.Get("/shift/{id}/track", locationHandler.ShiftTrack)
			})

			r.Group(func(r chi.Router) {
				r.Use(d.Auth.Middleware)
				r.Post("/", locationHandler.Report)
				r.Get("/track", locationHandler.MyTrack)
				r.Put("/{id}", locationHandler.Immutable)
				r.Patch("/{id}", locationHandler.Immutable)
				r.Delete("/{id}", locationHandler.Immutable)
			})
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Use(d.Auth.Optional)
			r.Get("/", fleetHandler.ListVehicles)
			r.Get("/available", fleetHandler.Available)
			r.Get("/on-route", fleetHandler.OnRoute)
			r.Get("/{id}", fleetHandler.GetVehicle)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Use(d.Auth.Optional)
			r.Get("/", fleetHandler.ListRoutes)
			r.Get("/{id}", fleetHandler.GetRoute)
		})
	})

	return r
}
