package geo

import "strings"

// Estimator answers delivery-time questions from the same table the
// Resolver uses, so the state path and the zip path always agree.
type Estimator struct {
	resolver *Resolver
}

func NewEstimator(r *Resolver) *Estimator {
	return &Estimator{resolver: r}
}

// ForState returns the business-day window for a state, or the table
// default for unknown states.
func (e *Estimator) ForState(state string) DeliveryTimeRange {
	t := e.resolver.table
	if d, ok := t.DeliveryTimes[strings.ToUpper(state)]; ok {
		return d
	}
	return t.DefaultDelivery
}

// MaxDaysForZip returns only the upper bound for the zip's state.
func (e *Estimator) MaxDaysForZip(zip string) int {
	return e.ForState(e.resolver.StateOf(zip)).MaxDays
}
