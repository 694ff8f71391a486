package models

import (
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/shipping-service/internal/geo"
)

// CalculationRate is one shipping option offered at checkout.
type CalculationRate struct {
	ID           string          `json:"id"`
	Rate         decimal.Decimal `json:"rate"`
	DeliveryDays int             `json:"delivery_days"`
	ServiceType  string          `json:"service_type"`
	Name         string          `json:"name"`
	Region       string          `json:"region"`
	ZipCode      string          `json:"zipCode"`
}

type CalculationResult struct {
	geo.Location
	Options  []CalculationRate     `json:"options"`
	Delivery geo.DeliveryTimeRange `json:"delivery"`
}

// Quote is the order total once a shipping option has been picked.
type Quote struct {
	ZipCode  string                `json:"zip_code"`
	Subtotal decimal.Decimal       `json:"subtotal"`
	Shipping decimal.Decimal       `json:"shipping"`
	Total    decimal.Decimal       `json:"total"`
	Option   CalculationRate       `json:"option"`
	Delivery geo.DeliveryTimeRange `json:"delivery"`
}
