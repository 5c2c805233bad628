package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Direction is the side of a position derived from a leverage decision.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Side returns the order side that opens a position in this direction.
func (d Direction) Side() OrderSide {
	if d == Short {
		return Sell
	}
	return Buy
}

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonNoMovement CloseReason = "NO_MOVEMENT" // no favorable move within the grace period
	CloseReasonMaxHold    CloseReason = "MAX_HOLD"    // hard holding-time limit reached
	CloseReasonDataEnd    CloseReason = "DATA_END"    // price history ended while the position was open
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonUnknown    CloseReason = "Unknown"
)
