package geo

import "strings"

// Wildcard marks a shipping rate state or region that applies everywhere.
const Wildcard = "*"

// Macro-regions used for shipping-rate fallback.
const (
	RegionSoutheast   = "Sudeste"
	RegionSouth       = "Sul"
	RegionCentralWest = "Centro-Oeste"
	RegionNortheast   = "Nordeste"
	RegionNorth       = "Norte"
)

// Regions lists the five macro-regions.
var Regions = []string{RegionSoutheast, RegionSouth, RegionCentralWest, RegionNortheast, RegionNorth}

// DeliveryTimeRange is a business-day window for deliveries to a state.
type DeliveryTimeRange struct {
	State   string `json:"state,omitempty"`
	MinDays int    `json:"min_days"`
	MaxDays int    `json:"max_days"`
}

// Table is the single source of geographic lookup data: CEP prefixes,
// state membership in regions and delivery windows.
type Table struct {
	// two-digit CEP prefix -> UF
	Prefixes map[string]string
	// UF -> region
	StateRegions map[string]string
	// UF -> delivery window
	DeliveryTimes   map[string]DeliveryTimeRange
	DefaultDelivery DeliveryTimeRange
}

var regionStates = map[string][]string{
	RegionSoutheast:   {"SP", "RJ", "MG", "ES"},
	RegionSouth:       {"PR", "SC", "RS"},
	RegionCentralWest: {"MT", "MS", "GO", "DF"},
	RegionNortheast:   {"BA", "SE", "AL", "PE", "PB", "RN", "CE", "PI", "MA"},
	RegionNorth:       {"AM", "PA", "AC", "RO", "RR", "AP", "TO"},
}

type prefixRange struct {
	from, to int
	state    string
}

// Two-digit granularity. States sharing a prefix with a larger neighbour
// (AP, AC, RR, RO) resolve to that neighbour.
var prefixRanges = []prefixRange{
	{1, 19, "SP"},
	{20, 28, "RJ"},
	{29, 29, "ES"},
	{30, 39, "MG"},
	{40, 48, "BA"},
	{49, 49, "SE"},
	{50, 56, "PE"},
	{57, 57, "AL"},
	{58, 58, "PB"},
	{59, 59, "RN"},
	{60, 63, "CE"},
	{64, 64, "PI"},
	{65, 65, "MA"},
	{66, 68, "PA"},
	{69, 69, "AM"},
	{70, 72, "DF"},
	{73, 76, "GO"},
	{77, 77, "TO"},
	{78, 78, "MT"},
	{79, 79, "MS"},
	{80, 87, "PR"},
	{88, 89, "SC"},
	{90, 99, "RS"},
}

var regionDelivery = map[string]DeliveryTimeRange{
	RegionSoutheast:   {MinDays: 1, MaxDays: 4},
	RegionSouth:       {MinDays: 3, MaxDays: 6},
	RegionCentralWest: {MinDays: 3, MaxDays: 7},
	RegionNortheast:   {MinDays: 5, MaxDays: 10},
	RegionNorth:       {MinDays: 7, MaxDays: 14},
}

// DefaultTable returns the built-in lookup data.
func DefaultTable() *Table {
	t := &Table{
		Prefixes:        make(map[string]string, 99),
		StateRegions:    make(map[string]string, 27),
		DeliveryTimes:   make(map[string]DeliveryTimeRange, 27),
		DefaultDelivery: DeliveryTimeRange{MinDays: 2, MaxDays: 7},
	}

	for _, r := range prefixRanges {
		for p := r.from; p <= r.to; p++ {
			t.Prefixes[twoDigits(p)] = r.state
		}
	}

	for region, states := range regionStates {
		for _, uf := range states {
			t.StateRegions[uf] = region
			d := regionDelivery[region]
			d.State = uf
			t.DeliveryTimes[uf] = d
		}
	}
	// metropolitan São Paulo ships same-day-ish from the warehouse
	t.DeliveryTimes["SP"] = DeliveryTimeRange{State: "SP", MinDays: 1, MaxDays: 3}

	return t
}

// WithOverrides returns a copy of t with the given entries replaced.
// Keys are normalised; invalid entries are skipped.
func (t *Table) WithOverrides(prefixes map[string]string, delivery map[string]DeliveryTimeRange) *Table {
	out := t.clone()

	for p, uf := range prefixes {
		p = NormalizeZip(p)
		uf = strings.ToUpper(strings.TrimSpace(uf))
		if len(p) != 2 || uf == "" {
			continue
		}
		out.Prefixes[p] = uf
	}

	for uf, d := range delivery {
		uf = strings.ToUpper(strings.TrimSpace(uf))
		if uf == "" || d.MinDays <= 0 || d.MaxDays < d.MinDays {
			continue
		}
		d.State = uf
		out.DeliveryTimes[uf] = d
	}

	return out
}

// IsState reports whether uf is a state known to the table.
func (t *Table) IsState(uf string) bool {
	_, ok := t.StateRegions[uf]
	return ok
}

func (t *Table) clone() *Table {
	out := &Table{
		Prefixes:        make(map[string]string, len(t.Prefixes)),
		StateRegions:    make(map[string]string, len(t.StateRegions)),
		DeliveryTimes:   make(map[string]DeliveryTimeRange, len(t.DeliveryTimes)),
		DefaultDelivery: t.DefaultDelivery,
	}
	for k, v := range t.Prefixes {
		out.Prefixes[k] = v
	}
	for k, v := range t.StateRegions {
		out.StateRegions[k] = v
	}
	for k, v := range t.DeliveryTimes {
		out.DeliveryTimes[k] = v
	}
	return out
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
