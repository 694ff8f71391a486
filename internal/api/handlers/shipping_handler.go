package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/geo"
	"github.com/Cheertaboi/shipping-service/internal/models"
)

// ShippingCalculator is what checkout needs from the service layer.
type ShippingCalculator interface {
	Calculate(ctx context.Context, zip string) (models.CalculationResult, error)
	Quote(ctx context.Context, zip, serviceType string, subtotal decimal.Decimal) (models.Quote, error)
	Simulate(ctx context.Context, zips []string) ([]models.CalculationResult, error)
	DeliveryForState(state string) geo.DeliveryTimeRange
	MaxDeliveryDaysForZip(zip string) int
}

// --- Request DTOs ---

type CalculateRequest struct {
	ZipCode string `json:"zip_code"`
}

type QuoteRequest struct {
	ZipCode     string          `json:"zip_code"`
	ServiceType string          `json:"service_type"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SimulateRequest struct {
	ZipCodes []string `json:"zip_codes"`
}

type ShippingHandler struct {
	svc ShippingCalculator
	log *zap.Logger
}

func NewShippingHandler(svc ShippingCalculator, log *zap.Logger) *ShippingHandler {
	return &ShippingHandler{svc: svc, log: log}
}

// Calculate handles GET and POST /shipping/calculate
func (h *ShippingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if r.Method == http.MethodGet {
		req.ZipCode = r.URL.Query().Get("zip_code")
	} else if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if geo.NormalizeZip(req.ZipCode) == "" {
		writeError(w, http.StatusBadRequest, "zip_code required")
		return
	}

	res, err := h.svc.Calculate(r.Context(), req.ZipCode)
	if err != nil {
		writeServiceError(w, h.log, err, "shipping_lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Quote handles POST /shipping/quote
func (h *ShippingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if geo.NormalizeZip(req.ZipCode) == "" || strings.TrimSpace(req.ServiceType) == "" {
		writeError(w, http.StatusBadRequest, "zip_code and service_type required")
		return
	}

	q, err := h.svc.Quote(r.Context(), req.ZipCode, req.ServiceType, req.Subtotal)
	if err != nil {
		writeServiceError(w, h.log, err, "shipping_lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// DeliveryTime handles GET /shipping/delivery-time?state= or ?zip_code=
func (h *ShippingHandler) DeliveryTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if state := strings.TrimSpace(q.Get("state")); state != "" {
		writeJSON(w, http.StatusOK, h.svc.DeliveryForState(state))
		return
	}
	if zip := geo.NormalizeZip(q.Get("zip_code")); zip != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"zip_code": zip,
			"max_days": h.svc.MaxDeliveryDaysForZip(zip),
		})
		return
	}
	writeError(w, http.StatusBadRequest, "state or zip_code required")
}

// Simulate handles POST /admin/shipping-rates/simulate
func (h *ShippingHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	res, err := h.svc.Simulate(r.Context(), req.ZipCodes)
	if err != nil {
		writeServiceError(w, h.log, err, "simulation_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": res})
}
