package backtesting

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"macroNewsBot/internal/domain"
)

// StopCondition is evaluated after every bar once the entry price is known.
// Returning true stops the stream; the triggering bar is the last one kept.
type StopCondition func(bar domain.PriceBar, entryPrice float64) bool

// CollectBars reads price bars from offset in file order and buffers one
// event's post-release window.
//
// Bars before entryTime are discarded: the located offset can land slightly
// before the exact entry bar. The entry price is captured as the open of the
// first bar at or after entryTime; from that bar on, every bar is kept and
// stop is consulted. Reaching end of data returns whatever was accumulated.
// A zero entry price with no bars means the file held no bar at or after
// entryTime.
//
// Read errors propagate to the caller; file reads are local and are not
// retried.
func CollectBars(path string, offset int64, entryTime time.Time, stop StopCondition) ([]domain.PriceBar, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening price file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seeking to offset %d: %w", offset, err)
	}

	var (
		bars       []domain.PriceBar
		entryPrice float64
	)
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			bar, ok := parseBarLine(line)
			if ok && !bar.Timestamp.Before(entryTime) {
				if entryPrice == 0 {
					entryPrice = bar.Open
				}
				bars = append(bars, bar)
				if stop != nil && stop(bar, entryPrice) {
					return bars, entryPrice, nil
				}
			}
		}
		if err == io.EOF {
			return bars, entryPrice, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading price bars: %w", err)
		}
	}
}

// parseBarLine parses one timestamp,open,high,low,close,volume record.
// Malformed lines (including the header) are skipped by the caller.
func parseBarLine(line []byte) (domain.PriceBar, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return domain.PriceBar{}, false
	}
	fields := bytes.Split(line, []byte{','})
	if len(fields) != 6 {
		return domain.PriceBar{}, false
	}
	ms, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return domain.PriceBar{}, false
	}
	vals := make([]float64, 5)
	for i, field := range fields[1:] {
		v, err := strconv.ParseFloat(string(field), 64)
		if err != nil {
			return domain.PriceBar{}, false
		}
		vals[i] = v
	}
	return domain.PriceBar{
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, true
}
