package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceError maps service errors to HTTP responses. Anything unknown
// is logged and reported as fallback with a 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "invalid_rate",
			"fields": verr.Fields,
		})
	case errors.Is(err, service.ErrRateNotFound):
		writeError(w, http.StatusNotFound, "rate_not_found")
	case errors.Is(err, service.ErrServiceUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "service_unavailable")
	case errors.Is(err, service.ErrInvalidSubtotal):
		writeError(w, http.StatusBadRequest, "invalid_subtotal")
	case errors.Is(err, service.ErrTooManyZipCodes):
		writeError(w, http.StatusBadRequest, "too_many_zip_codes")
	default:
		log.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
