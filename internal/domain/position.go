package domain

import "time"

// Position represents a live leveraged position opened after a release.
type Position struct {
	ID         int64          // Unique identifier for the position (from DB)
	Symbol     string         // Trading symbol (e.g., "BTCUSDT")
	Event      string         // Indicator event that triggered the entry
	EntryPrice float64        // Actual fill price of the opening order
	ExitPrice  float64        // Price at which the position was exited (0 if open)
	Quantity   float64        // Size of the position in the base asset
	Leverage   int            // Signed leverage decided for the event
	StopLoss   float64        // Price level for the stop-loss reduce order
	TakeProfit float64        // Price level for the take-profit reduce order
	EntryTime  time.Time      // Timestamp when the position was entered
	ExitTime   time.Time      // Timestamp when the position was exited (zero value if open)
	Status     PositionStatus // Current status (open, closed)
	PNL        float64        // Profit and loss, set on close

	// Associated order IDs for SL/TP management (nullable in DB)
	StopLossOrderID   *string     `db:"stop_loss_order_id"`
	TakeProfitOrderID *string     `db:"take_profit_order_id"`
	CloseReason       CloseReason `db:"close_reason"`
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// IsShort reports whether the position was opened short.
func (p *Position) IsShort() bool {
	return p.Leverage < 0
}
