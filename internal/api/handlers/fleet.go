package handlers

import (
	"net/http"
	"strings"
	"transit-tracking-service/internal/api/dto"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"
	"transit-tracking-service/internal/services"
)

// FleetHandler exposes read-only vehicle and route reference data.
type FleetHandler struct {
	Registry  ports.Registry
	Locations *services.LocationService
}

// ListVehicles accepts ?type=<vehicle type>&route=<id>.
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	f, ok := vehicleFilter(w, r)
	if !ok {
		return
	}
	h.listVehicles(w, r, "list vehicles", f)
}

// Available lists active vehicles that are not on a shift.
func (h *FleetHandler) Available(w http.ResponseWriter, r *http.Request) {
	onShift := false
	h.listVehicles(w, r, "available vehicles", ports.VehicleFilter{ActiveOnly: true, OnShift: &onShift})
}

// OnRoute lists active vehicles with an active shift, narrowed by ?type= and ?route=.
func (h *FleetHandler) OnRoute(w http.ResponseWriter, r *http.Request) {
	f, ok := vehicleFilter(w, r)
	if !ok {
		return
	}
	onShift := true
	f.ActiveOnly = true
	f.OnShift = &onShift
	h.listVehicles(w, r, "vehicles on route", f)
}

// vehicleFilter parses the shared listing parameters, answering 400 on bad input.
func vehicleFilter(w http.ResponseWriter, r *http.Request) (ports.VehicleFilter, bool) {
	var verr domain.ValidationError
	f := ports.VehicleFilter{RouteID: queryInt64(r, "route", &verr)}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		vt, err := domain.ParseVehicleType(raw)
		if err != nil {
			verr.Add("type", err.Error())
		}
		f.Type = vt
	}
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return ports.VehicleFilter{}, false
	}
	return f, true
}

func (h *FleetHandler) listVehicles(w http.ResponseWriter, r *http.Request, op string, f ports.VehicleFilter) {
	vehicles, err := h.Registry.ListVehicles(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	res := dto.ListVehiclesResponse{Vehicles: make([]dto.VehicleResponse, 0, len(vehicles))}
	for _, v := range vehicles {
		res.Vehicles = append(res.Vehicles, toVehicleResponse(v))
	}
	res.Count = len(res.Vehicles)

	writeJSON(w, r, http.StatusOK, res)
}

func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	v, err := h.Registry.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, "get vehicle", err)
		return
	}

	res := dto.VehicleDetailResponse{VehicleResponse: toVehicleResponse(v)}
	cur, err := h.Locations.CurrentLocation(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, "get vehicle", err)
		return
	}
	if cur != nil {
		loc := toLatestResponse(*cur)
		res.CurrentLocation = &loc
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *FleetHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	routes, err := h.Registry.ListRoutes(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, r, "list routes", err)
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for _, rt := range routes {
		res.Routes = append(res.Routes, toRouteResponse(rt))
	}
	res.Count = len(res.Routes)

	writeJSON(w, r, http.StatusOK, res)
}

func (h *FleetHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rt, err := h.Registry.GetRoute(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}
	n, err := h.Registry.ActiveVehicleCount(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RouteDetailResponse{RouteResponse: toRouteResponse(rt), ActiveVehicleCount: n})
}
