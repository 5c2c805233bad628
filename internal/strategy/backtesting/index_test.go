package backtesting

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePriceFile writes a header plus n one-second bars starting at start.
// With ~40 bytes per record a six-figure n spans many probe windows.
func writePriceFile(t *testing.T, start time.Time, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "timestamp,open,high,low,close,volume")
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Second)
		price := 60000.0 + float64(i%100)
		fmt.Fprintf(w, "%d,%.1f,%.1f,%.1f,%.1f,%.3f\n",
			ts.UnixMilli(), price, price+5, price-5, price+1, 1.234)
	}
	require.NoError(t, w.Flush())
	return path
}

// recordTimeAt parses the timestamp of the record beginning at offset.
func recordTimeAt(t *testing.T, path string, offset int64) time.Time {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Seek(offset, io.SeekStart)
	require.NoError(t, err)
	line, err := bufio.NewReader(f).ReadBytes('\n')
	require.NoError(t, err)
	ts, ok := parseLineTime(line)
	require.True(t, ok, "offset %d does not start a record: %q", offset, line)
	return ts
}

func TestLocate_ExactTimestamp(t *testing.T) {
	start := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	path := writePriceFile(t, start, 200_000)

	// Probe a spread of positions including both ends
	for _, i := range []int{0, 1, 57, 10_000, 99_999, 150_000, 199_999} {
		target := start.Add(time.Duration(i) * time.Second)
		offset, err := Locate(path, target)
		require.NoError(t, err)
		assert.True(t, recordTimeAt(t, path, offset).Equal(target),
			"record %d: offset %d points at %v, want %v", i, offset, recordTimeAt(t, path, offset), target)
	}
}

func TestLocate_BetweenRecords(t *testing.T) {
	start := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	path := writePriceFile(t, start, 100_000)

	// A target between two records resolves to the later one
	target := start.Add(42_000*time.Second + 300*time.Millisecond)
	offset, err := Locate(path, target)
	require.NoError(t, err)
	want := start.Add(42_001 * time.Second)
	assert.True(t, recordTimeAt(t, path, offset).Equal(want))
}

func TestLocate_TargetPrecedesHistory(t *testing.T) {
	start := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	path := writePriceFile(t, start, 10_000)

	offset, err := Locate(path, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), offset)
}

func TestLocate_TargetPastLastRecord(t *testing.T) {
	start := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	path := writePriceFile(t, start, 10_000)

	// The index still returns an offset; the stream from it is empty, which
	// is how callers detect exhaustion.
	target := start.Add(24 * time.Hour)
	offset, err := Locate(path, target)
	require.NoError(t, err)

	bars, entryPrice, err := CollectBars(path, offset, target, nil)
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Zero(t, entryPrice)
}

func TestLocate_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	offset, err := Locate(path, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), offset)
}

func TestLocate_SmallFile(t *testing.T) {
	// A file smaller than one probe window skips the binary search entirely
	start := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	path := writePriceFile(t, start, 50)

	target := start.Add(30 * time.Second)
	offset, err := Locate(path, target)
	require.NoError(t, err)
	assert.True(t, recordTimeAt(t, path, offset).Equal(target))
}
