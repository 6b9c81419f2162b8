package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"transit-tracking-service/internal/api/dto"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/platform/obs"

	"github.com/go-chi/chi/v5"
)

// Machine-readable codes carried in the "error" field of error responses.
const (
	CodeValidation       = "validation_error"
	CodeNoActiveShift    = "no_active_shift"
	CodeInvalidState     = "invalid_state_transition"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeUnauthorized     = "unauthorized"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeBadRequest       = "bad_request"
	CodeInternal         = "internal_error"
)

type identityKey struct{}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: req_id=%s method=%s path=%s err=%v", obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
}

// WriteError writes the standard error body.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: code, Message: msg})
}

func writeValidation(w http.ResponseWriter, r *http.Request, verr *domain.ValidationError) {
	fields := make([]dto.FieldError, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, dto.FieldError{Field: f.Field, Message: f.Message})
	}
	writeJSON(w, r, http.StatusBadRequest, dto.ErrorResponse{
		Error:   CodeValidation,
		Message: "request contains invalid fields",
		Fields:  fields,
	})
}

// writeServiceError maps domain errors to HTTP responses.
// Anything unrecognised is logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr  *domain.ValidationError
		perr  *domain.PreconditionError
		terr  *domain.TransitionError
		nferr *domain.NotFoundError
	)

	switch {
	case errors.As(err, &verr):
		writeValidation(w, r, verr)
	case errors.As(err, &perr):
		WriteError(w, r, http.StatusBadRequest, string(perr.Reason), perr.Detail)
	case errors.Is(err, domain.ErrNoActiveShift):
		WriteError(w, r, http.StatusBadRequest, CodeNoActiveShift, "caller has no active shift")
	case errors.As(err, &terr):
		WriteError(w, r, http.StatusConflict, CodeInvalidState, terr.Error())
	case errors.As(err, &nferr):
		WriteError(w, r, http.StatusNotFound, CodeNotFound, nferr.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, r, http.StatusForbidden, CodeForbidden, err.Error())
	default:
		log.Printf("%s failed: req_id=%s err=%v", op, obs.RequestID(r.Context()), err)
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// decodeJSON reads exactly one JSON object into v. It writes the error response itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, r, http.StatusBadRequest, CodeBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// identity returns the caller set by the auth middleware, answering 401 when absent.
func identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	return id, ok
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		var verr domain.ValidationError
		verr.Add(name, "must be a positive integer")
		writeValidation(w, r, &verr)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter; absent means 0.
func queryInt(r *http.Request, name string, verr *domain.ValidationError) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		verr.Add(name, "must be a non-negative integer")
		return 0
	}
	return v
}

func queryInt64(r *http.Request, name string, verr *domain.ValidationError) int64 {
	return int64(queryInt(r, name, verr))
}
