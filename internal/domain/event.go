package domain

import "time"

// IndicatorEvent is one scheduled release of a macroeconomic indicator.
// Loaded once from the historical dataset in backtests, or observed live.
// Never mutated after construction.
type IndicatorEvent struct {
	ID          string    `json:"eventId"`        // Opaque identifier, e.g. "cpi-2024-03"
	Indicator   string    `json:"indicator"`      // Selector into the per-indicator params table (CPI, GDP, PCE, NFP, FOMC)
	ReleaseTime time.Time `json:"releaseTimeUtc"` // Scheduled publication time, UTC
	Actual      *float64  `json:"actualValue"`    // nil until published
	Consensus   float64   `json:"consensusValue"` // Market expectation prior to release
	Previous    float64   `json:"previousValue"`  // Prior period's value
}

// Published reports whether the actual value is available.
func (e *IndicatorEvent) Published() bool {
	return e.Actual != nil
}
