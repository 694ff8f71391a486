package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRateNotFound       = errors.New("shipping rate not found")
	ErrInvalidRate        = errors.New("invalid shipping rate")
	ErrServiceUnavailable = errors.New("shipping service not available for zip code")
	ErrInvalidSubtotal    = errors.New("subtotal must not be negative")
	ErrTooManyZipCodes    = errors.New("too many zip codes")
)

// ValidationError lists offending fields by their JSON name. It matches
// ErrInvalidRate under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRate, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRate
}
