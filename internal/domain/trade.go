package domain

import "time"

// TradeResult is one simulated (or completed live) trade for a single
// indicator event. Immutable once emitted; exactly one exists per event whose
// leverage decision left the dead zone.
type TradeResult struct {
	Event        string      `json:"event"`              // Indicator event identifier
	Indicator    string      `json:"indicator"`          // Indicator family (CPI, GDP, PCE, NFP, FOMC)
	Action       string      `json:"action"`             // "buy" or "sell", suffixed when the no-movement exit fired
	EntryTime    time.Time   `json:"entryTime"`          // Open of the first bar at/after the release
	ExitTime     time.Time   `json:"exitTime"`           // Always >= EntryTime
	EntryPrice   float64     `json:"entryPrice"`         // Fill price at entry
	ExitPrice    float64     `json:"exitPrice"`          // Fill price at exit
	ProfitOrLoss float64     `json:"profitOrLoss"`       // (exit-entry)*quantity, negated for shorts
	Quantity     float64     `json:"positionSizeInBase"` // Position size in the base asset
	Leverage     int         `json:"leverage"`           // Signed leverage applied
	CloseReason  CloseReason `json:"closeReason"`        // TP, SL, NO_MOVEMENT or MAX_HOLD
}

// IsWin reports whether the trade closed with a positive profit.
func (t *TradeResult) IsWin() bool {
	return t.ProfitOrLoss > 0
}

// Duration is the holding time of the trade.
func (t *TradeResult) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
