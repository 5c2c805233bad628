package domain

import "time"

// PriceBar is a single second-resolution OHLCV record from the price history.
type PriceBar struct {
	Timestamp time.Time // Start of the one-second interval
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
}
