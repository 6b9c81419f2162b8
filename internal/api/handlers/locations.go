package handlers

import (
	"net/http"
	"strings"
	"transit-tracking-service/internal/api/dto"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"
	"transit-tracking-service/internal/services"
)

// LocationHandler exposes position ingestion and the position views.
type LocationHandler struct {
	Locations *services.LocationService
}

func (h *LocationHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req dto.LocationReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var verr domain.ValidationError
	if req.Latitude == nil {
		verr.Add("latitude", "is required")
	}
	if req.Longitude == nil {
		verr.Add("longitude", "is required")
	}
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	sample, err := h.Locations.Report(r.Context(), id, domain.LocationReport{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Accuracy:  req.Accuracy,
	})
	if err != nil {
		writeServiceError(w, r, "report location", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toLocationResponse(*sample))
}

// Latest accepts ?route=<id>&vehicle_type=<type>.
func (h *LocationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	var verr domain.ValidationError
	f := ports.LatestFilter{RouteID: queryInt64(r, "route", &verr)}
	if raw := strings.TrimSpace(r.URL.Query().Get("vehicle_type")); raw != "" {
		vt, err := domain.ParseVehicleType(raw)
		if err != nil {
			verr.Add("vehicle_type", err.Error())
		}
		f.VehicleType = vt
	}
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	items, err := h.Locations.Latest(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "latest locations", err)
		return
	}

	res := dto.LatestPositionsResponse{Vehicles: make([]dto.LatestPositionResponse, 0, len(items))}
	for _, p := range items {
		res.Vehicles = append(res.Vehicles, toLatestResponse(p))
	}
	res.Count = len(res.Vehicles)

	writeJSON(w, r, http.StatusOK, res)
}

func (h *LocationHandler) VehicleHistory(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var verr domain.ValidationError
	hours := queryInt(r, "hours", &verr)
	limit := queryInt(r, "limit", &verr)
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	samples, err := h.Locations.History(r.Context(), vehicleID, hours, limit)
	if err != nil {
		writeServiceError(w, r, "vehicle location history", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toLocationList(samples))
}

func (h *LocationHandler) ShiftTrack(w http.ResponseWriter, r *http.Request) {
	shiftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var verr domain.ValidationError
	limit := queryInt(r, "limit", &verr)
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	samples, err := h.Locations.Track(r.Context(), shiftID, limit)
	if err != nil {
		writeServiceError(w, r, "shift track", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toLocationList(samples))
}

// MyTrack returns the caller's current shift track.
func (h *LocationHandler) MyTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var verr domain.ValidationError
	limit := queryInt(r, "limit", &verr)
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	cur, err := h.Locations.MyTrack(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, r, "my track", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toTrackResponse(cur))
}

// Immutable rejects every attempt to modify or remove a stored sample.
func (h *LocationHandler) Immutable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	WriteError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "location samples cannot be modified or deleted")
}
