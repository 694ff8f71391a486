package service

import (
	"sort"
	"strings"

	"github.com/Cheertaboi/shipping-service/internal/geo"
	"github.com/Cheertaboi/shipping-service/internal/models"
)

const defaultDeliveryDays = 5

var serviceLabels = map[string]string{
	"SEDEX": "SEDEX (Express)",
	"PAC":   "PAC (Convencional)",
}

// tier is one step of the fallback chain. Tiers are tried in order and the
// first one matching any rate answers the lookup.
type tier struct {
	name  string
	match func(r models.ShippingRate, loc geo.Location) bool
}

var tiers = []tier{
	{
		name: "state",
		match: func(r models.ShippingRate, loc geo.Location) bool {
			return r.State == loc.State || r.State == geo.Wildcard
		},
	},
	{
		name: "region",
		match: func(r models.ShippingRate, loc geo.Location) bool {
			return (loc.Region != "" && r.Region == loc.Region) || r.Region == geo.Wildcard
		},
	},
}

const tierNone = "none"

// selectTier returns the rates of the first matching tier and its name.
func selectTier(rates []models.ShippingRate, loc geo.Location) ([]models.ShippingRate, string) {
	for _, t := range tiers {
		var matched []models.ShippingRate
		for _, r := range rates {
			if t.match(r, loc) {
				matched = append(matched, r)
			}
		}
		if len(matched) > 0 {
			return matched, t.name
		}
	}
	return nil, tierNone
}

// cheapestPerService keeps the lowest flat rate for each service type.
// Ties keep the earlier rate.
func cheapestPerService(rates []models.ShippingRate) []models.ShippingRate {
	idx := make(map[string]int, len(rates))
	out := make([]models.ShippingRate, 0, len(rates))
	for _, r := range rates {
		key := strings.ToUpper(r.ServiceType)
		i, seen := idx[key]
		if !seen {
			idx[key] = len(out)
			out = append(out, r)
			continue
		}
		if r.FlatRate.LessThan(out[i].FlatRate) {
			out[i] = r
		}
	}
	return out
}

func serviceLabel(serviceType string) string {
	if l, ok := serviceLabels[strings.ToUpper(serviceType)]; ok {
		return l
	}
	return serviceType
}

func buildOptions(rates []models.ShippingRate, loc geo.Location) []models.CalculationRate {
	opts := make([]models.CalculationRate, 0, len(rates))
	for _, r := range rates {
		days := defaultDeliveryDays
		if r.EstimatedDays != nil && *r.EstimatedDays > 0 {
			days = *r.EstimatedDays
		}
		opts = append(opts, models.CalculationRate{
			ID:           r.ID.String(),
			Rate:         r.FlatRate,
			DeliveryDays: days,
			ServiceType:  r.ServiceType,
			Name:         serviceLabel(r.ServiceType),
			Region:       loc.Region,
			ZipCode:      loc.ZipCode,
		})
	}

	sort.SliceStable(opts, func(i, j int) bool {
		if c := opts[i].Rate.Cmp(opts[j].Rate); c != 0 {
			return c < 0
		}
		return opts[i].ServiceType < opts[j].ServiceType
	})
	return opts
}
