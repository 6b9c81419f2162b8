package handlers

import (
	"net/http"
	"time"
	"transit-tracking-service/internal/api/dto"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/services"
)

// ShiftHandler exposes the shift lifecycle and shift read views.
type ShiftHandler struct {
	Shifts *services.ShiftService
}

func (h *ShiftHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req dto.StartShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shift, err := h.Shifts.Start(r.Context(), id, req.VehicleID)
	if err != nil {
		writeServiceError(w, r, "start shift", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toShiftResponse(shift, time.Now()))
}

// Complete closes the caller's own active shift.
func (h *ShiftHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	shift, err := h.Shifts.Complete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "complete shift", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftResponse(shift, time.Now()))
}

func (h *ShiftHandler) CompleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	shiftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	shift, err := h.Shifts.CompleteByID(r.Context(), id, shiftID)
	if err != nil {
		writeServiceError(w, r, "complete shift by id", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftResponse(shift, time.Now()))
}

func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	shiftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Shifts.Delete(r.Context(), id, shiftID); err != nil {
		writeServiceError(w, r, "delete shift", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get returns one shift. Drivers may only read their own.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	shiftID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	shift, err := h.Shifts.Get(r.Context(), shiftID)
	if err != nil {
		writeServiceError(w, r, "get shift", err)
		return
	}
	if id.Role == domain.RoleDriver && shift.DriverID != id.ID {
		WriteError(w, r, http.StatusForbidden, CodeForbidden, "shift belongs to another driver")
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftResponse(shift, time.Now()))
}

func (h *ShiftHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Shifts.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, r, "list active shifts", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftList(shifts, time.Now()))
}

// MyActive answers 404 when the caller is off shift.
func (h *ShiftHandler) MyActive(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	shift, err := h.Shifts.ActiveForDriver(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, r, "my active shift", err)
		return
	}
	if shift == nil {
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "no active shift")
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftResponse(shift, time.Now()))
}

func (h *ShiftHandler) MyHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var verr domain.ValidationError
	days := queryInt(r, "days", &verr)
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	shifts, err := h.Shifts.MyHistory(r.Context(), id, days)
	if err != nil {
		writeServiceError(w, r, "my shift history", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftList(shifts, time.Now()))
}

func (h *ShiftHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var verr domain.ValidationError
	f := services.HistoryFilter{
		Days:      queryInt(r, "days", &verr),
		DriverID:  queryInt64(r, "driver", &verr),
		VehicleID: queryInt64(r, "vehicle", &verr),
	}
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	shifts, err := h.Shifts.History(r.Context(), id, f)
	if err != nil {
		writeServiceError(w, r, "shift history", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toShiftList(shifts, time.Now()))
}

func (h *ShiftHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var verr domain.ValidationError
	days := queryInt(r, "days", &verr)
	if verr.OrNil() != nil {
		writeValidation(w, r, &verr)
		return
	}

	st, err := h.Shifts.Statistics(r.Context(), id, days)
	if err != nil {
		writeServiceError(w, r, "shift statistics", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ShiftStatisticsResponse{
		PeriodDays:           st.PeriodDays,
		TotalShifts:          st.TotalShifts,
		ActiveShifts:         st.ActiveShifts,
		CompletedShifts:      st.CompletedShifts,
		AverageDurationHours: st.AverageDurationHours,
	})
}
