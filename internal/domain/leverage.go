package domain

// LeverageResult is the outcome of the surprise-to-leverage mapping for one
// event. Computed fresh per event, never persisted.
type LeverageResult struct {
	Leverage    int       // Signed magnitude; 0 means the surprise fell inside the dead zone
	Direction   Direction // Long or Short (meaningless when Leverage is 0)
	CappedAtMax bool      // True when the raw leverage exceeded the configured cap
}

// NoTrade reports whether the decision landed in the dead zone.
func (r LeverageResult) NoTrade() bool {
	return r.Leverage == 0
}

// Magnitude returns the absolute leverage.
func (r LeverageResult) Magnitude() int {
	if r.Leverage < 0 {
		return -r.Leverage
	}
	return r.Leverage
}
