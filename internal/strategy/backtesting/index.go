package backtesting

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// indexWindowSize is the number of bytes read per binary-search probe. Large
// enough that a window always contains many complete one-second records,
// small enough to keep each probe a single cheap read.
const indexWindowSize = 50_000

// Locate returns the byte offset of the first complete record in the price
// file whose timestamp is at or after target.
//
// The file is an append-only CSV sorted ascending by timestamp, one record
// per line, far too large to scan linearly per event. Locate binary-searches
// the byte range [0, fileSize]: each probe reads a window centered on the
// candidate midpoint, drops the possibly-truncated first and last lines,
// and tests whether any in-window timestamp qualifies. After convergence a
// short forward scan lands on the exact record boundary.
//
// Returns 0 when target precedes the first record in the file; callers treat
// that as "no price history for this event yet" and skip it. When target is
// past the last record the returned offset points at the tail of the file
// and the subsequent stream comes back empty.
func Locate(path string, target time.Time) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening price file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat price file: %w", err)
	}
	size := fi.Size()
	if size == 0 {
		return 0, nil
	}

	// Target before the first record means no history for this event.
	firstTs, ok, err := firstRecordTime(f, size)
	if err != nil {
		return 0, err
	}
	if !ok || firstTs.After(target) {
		return 0, nil
	}

	buf := make([]byte, indexWindowSize)
	lo, hi := int64(0), size
	candidate := int64(-1)

	for hi-lo > indexWindowSize/4 {
		mid := lo + (hi-lo)/2
		start := mid - indexWindowSize/2
		if start < 0 {
			start = 0
		}
		qualifies, err := windowHasRecordAtOrAfter(f, buf, start, size, target)
		if err != nil {
			return 0, err
		}
		if qualifies {
			candidate = start
			hi = mid
		} else {
			lo = mid
		}
	}

	scanStart := candidate
	if scanStart < 0 {
		// No probed window qualified: target is past every probed record.
		// Scan the tail so the caller still gets the last candidate position.
		scanStart = size - indexWindowSize
		if scanStart < 0 {
			scanStart = 0
		}
	}
	return scanForward(f, scanStart, target)
}

// firstRecordTime parses the timestamp of the first data record in the file.
// The header line (and any malformed line) is skipped.
func firstRecordTime(f *os.File, size int64) (time.Time, bool, error) {
	n := int64(indexWindowSize)
	if n > size {
		n = size
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return time.Time{}, false, fmt.Errorf("reading file head: %w", err)
	}
	for _, line := range bytes.Split(buf, []byte{'\n'}) {
		if ts, ok := parseLineTime(line); ok {
			return ts, true, nil
		}
	}
	return time.Time{}, false, nil
}

// windowHasRecordAtOrAfter reads one probe window and reports whether any
// complete in-window record has a timestamp >= target.
func windowHasRecordAtOrAfter(f *os.File, buf []byte, start, size int64, target time.Time) (bool, error) {
	n := int64(len(buf))
	if start+n > size {
		n = size - start
	}
	read, err := f.ReadAt(buf[:n], start)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading probe window at %d: %w", start, err)
	}
	lines := bytes.Split(buf[:read], []byte{'\n'})
	if len(lines) < 3 {
		return false, nil
	}
	// First line is truncated unless the window starts at the top of the
	// file; the last line is truncated unless the window reaches EOF.
	if start > 0 {
		lines = lines[1:]
	}
	if start+int64(read) < size {
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		ts, ok := parseLineTime(line)
		if !ok {
			continue // malformed or empty lines are skipped, not errors
		}
		if !ts.Before(target) {
			return true, nil
		}
	}
	return false, nil
}

// scanForward walks records from start and returns the byte offset of the
// first one whose timestamp is >= target. The scan begins at the next line
// boundary unless start is 0. When no record qualifies before EOF, the
// aligned scan start is returned and the caller observes an empty stream.
func scanForward(f *os.File, start int64, target time.Time) (int64, error) {
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking to %d: %w", start, err)
	}
	r := bufio.NewReader(f)
	offset := start
	if start > 0 {
		skipped, err := r.ReadBytes('\n')
		offset += int64(len(skipped))
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return 0, fmt.Errorf("aligning to line boundary: %w", err)
		}
	}

	alignedStart := offset
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			if ts, ok := parseLineTime(line); ok && !ts.Before(target) {
				return offset, nil
			}
			offset += int64(len(line))
		}
		if err == io.EOF {
			return alignedStart, nil
		}
		if err != nil {
			return 0, fmt.Errorf("scanning for record boundary: %w", err)
		}
	}
}

// parseLineTime extracts the leading epoch-millisecond timestamp from a CSV
// record. Returns false for the header, blank lines, or anything unparsable.
func parseLineTime(line []byte) (time.Time, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return time.Time{}, false
	}
	idx := bytes.IndexByte(line, ',')
	if idx <= 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(line[:idx]), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}
