package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

const maxBodyBytes = 1 << 20 // 1 MB

// envelope is the response shape of every JSON endpoint.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, code int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(payload)
}

func (h *Handlers) writeData(w http.ResponseWriter, r *http.Request, code int, data any) {
	if err := writeJSON(w, code, envelope{Success: true, Data: data}); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	if err := writeJSON(w, code, envelope{Success: false, Error: message}); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode error response", "error", err)
	}
}

func (h *Handlers) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	res := envelope{Success: false, Error: "invalid request"}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		res.Fields = make(map[string]string, len(ve))
		for _, fe := range ve {
			res.Fields[fieldPath(fe)] = fe.Tag()
		}
	} else if err != nil {
		res.Error = err.Error()
	}

	if encodeErr := writeJSON(w, http.StatusBadRequest, res); encodeErr != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode validation response", "error", encodeErr)
	}
}

// fieldPath drops the root struct name: "checkoutRequest.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// writeServiceError maps service and auth errors onto HTTP statuses.
// Unexpected errors are logged and reported as a generic 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotEligible):
		h.writeError(w, r, http.StatusBadRequest, "order is not eligible for a return")
	case errors.Is(err, services.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrConflict):
		h.writeError(w, r, http.StatusConflict, conflictMessage(err))
	case errors.Is(err, services.ErrUnavailable):
		h.loggerFromContext(r.Context()).Warn("dependency unavailable", "error", err)
		h.writeError(w, r, http.StatusServiceUnavailable, "payment provider unavailable, please try again")
	case errors.Is(err, auth.ErrUnauthorized):
		h.writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		h.writeError(w, r, http.StatusUnauthorized, "admin role required")
	default:
		h.loggerFromContext(r.Context()).Error("request failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func conflictMessage(err error) string {
	if _, detail, ok := strings.Cut(err.Error(), services.ErrConflict.Error()+": "); ok && detail != "" {
		return detail
	}
	return "conflict"
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// It writes the 400 response itself and reports false on failure.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			h.writeError(w, r, http.StatusBadRequest, "request body is required")
		default:
			h.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		}
		return false
	}
	if err := requestValidator.Struct(dst); err != nil {
		h.writeValidationError(w, r, err)
		return false
	}
	return true
}
