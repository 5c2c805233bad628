package utils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"macroNewsBot/internal/domain"
)

// PriceFileHeader is the first line of every price history file.
const PriceFileHeader = "timestamp,open,high,low,close,volume"

// WriteBarsToCSV writes price bars in the price-history format: a header line
// followed by one comma-separated record per bar, timestamps as epoch
// milliseconds. Appends when the file already exists so long downloads can be
// resumed.
func WriteBarsToCSV(bars []*domain.PriceBar, filename string) error {
	info, statErr := os.Stat(filename)
	appending := statErr == nil && info.Size() > 0

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening price file %q: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if !appending {
		if err := writer.Write(strings.Split(PriceFileHeader, ",")); err != nil {
			return err
		}
	}

	for _, b := range bars {
		record := []string{
			strconv.FormatInt(b.Timestamp.UnixMilli(), 10),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

// ReadEventsFromJSON loads the historical event dataset: a JSON array of
// indicator events ordered by release time.
func ReadEventsFromJSON(filename string) ([]*domain.IndicatorEvent, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading events file %q: %w", filename, err)
	}
	var events []*domain.IndicatorEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing events file %q: %w", filename, err)
	}
	return events, nil
}

// WriteTradesToJSON persists a backtest's trade records as a JSON array.
func WriteTradesToJSON(trades []*domain.TradeResult, filename string) error {
	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trades: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing trades file %q: %w", filename, err)
	}
	return nil
}

// ReadTradesFromJSON loads a trade record set previously written by
// WriteTradesToJSON.
func ReadTradesFromJSON(filename string) ([]*domain.TradeResult, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading trades file %q: %w", filename, err)
	}
	var trades []*domain.TradeResult
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("parsing trades file %q: %w", filename, err)
	}
	return trades, nil
}

// WriteStatsToJSON persists an analyzer's output for later inspection.
func WriteStatsToJSON(stats interface{}, filename string) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing stats file %q: %w", filename, err)
	}
	return nil
}
