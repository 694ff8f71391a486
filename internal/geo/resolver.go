package geo

import "strings"

// Location is a postal code resolved to its state and region.
type Location struct {
	ZipCode string `json:"zip_code"`
	State   string `json:"state"`
	Region  string `json:"region"`
}

// Resolver maps CEPs to states and states to regions.
type Resolver struct {
	table *Table
}

func NewResolver(t *Table) *Resolver {
	if t == nil {
		t = DefaultTable()
	}
	return &Resolver{table: t}
}

// NormalizeZip strips every non-digit character.
func NormalizeZip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StateOf returns the UF owning the zip's two-digit prefix, or "" when unknown.
func (r *Resolver) StateOf(zip string) string {
	digits := NormalizeZip(zip)
	if len(digits) < 2 {
		return ""
	}
	return r.table.Prefixes[digits[:2]]
}

// RegionOf returns the macro-region of a state, or "" when unmatched.
func (r *Resolver) RegionOf(state string) string {
	return r.table.StateRegions[strings.ToUpper(state)]
}

func (r *Resolver) Locate(raw string) Location {
	zip := NormalizeZip(raw)
	state := r.StateOf(zip)
	return Location{
		ZipCode: zip,
		State:   state,
		Region:  r.RegionOf(state),
	}
}

func (r *Resolver) Table() *Table {
	return r.table
}
