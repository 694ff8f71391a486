package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/models"
)

// RateManager is the back-office side of the service layer.
type RateManager interface {
	Create(ctx context.Context, in models.RateInput) (*models.ShippingRate, error)
	Update(ctx context.Context, id uuid.UUID, in models.RateInput) (*models.ShippingRate, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error)
	List(ctx context.Context, f models.RateFilter) ([]models.ShippingRate, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RateHandler struct {
	svc RateManager
	log *zap.Logger
}

func NewRateHandler(svc RateManager, log *zap.Logger) *RateHandler {
	return &RateHandler{svc: svc, log: log}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /admin/shipping-rates
func (h *RateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.RateFilter{
		State:       q.Get("state"),
		ServiceType: q.Get("service_type"),
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid active filter")
			return
		}
		f.Active = &active
	}

	rates, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.log, err, "failed_list_rates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rates": rates})
}

// Create handles POST /admin/shipping-rates
func (h *RateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.RateInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	rate, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.log, err, "failed_create_rate")
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}

// Get handles GET /admin/shipping-rates/{id}
func (h *RateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rate, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "failed_get_rate")
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// Update handles PUT /admin/shipping-rates/{id}
func (h *RateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in models.RateInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	rate, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.log, err, "failed_update_rate")
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// Deactivate handles POST /admin/shipping-rates/{id}/deactivate
func (h *RateHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "failed_deactivate_rate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rate_deactivated"})
}

// Delete handles DELETE /admin/shipping-rates/{id}
func (h *RateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "failed_delete_rate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
