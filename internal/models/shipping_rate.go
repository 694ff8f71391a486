package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingRate is a row of the shipping_rates table. State or Region may be
// geo.Wildcard; an empty State means the rate only applies by region.
type ShippingRate struct {
	ID            uuid.UUID       `json:"id"`
	State         string          `json:"state"`
	Region        string          `json:"region"`
	ServiceType   string          `json:"service_type"`
	FlatRate      decimal.Decimal `json:"flat_rate"`
	EstimatedDays *int            `json:"estimated_days,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RateFilter narrows admin listings. Nil Active lists everything.
type RateFilter struct {
	Active      *bool
	State       string
	ServiceType string
}

// RateInput is the writable part of a ShippingRate.
type RateInput struct {
	State         string          `json:"state" validate:"omitempty,uf_or_wildcard"`
	Region        string          `json:"region" validate:"omitempty,region_or_wildcard"`
	ServiceType   string          `json:"service_type" validate:"required,max=40"`
	FlatRate      decimal.Decimal `json:"flat_rate" validate:"gte=0"`
	EstimatedDays *int            `json:"estimated_days,omitempty" validate:"omitempty,min=1,max=60"`
	IsActive      *bool           `json:"is_active,omitempty"`
}
