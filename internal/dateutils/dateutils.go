// Package dateutils parses the timestamp and date formats found in CFDI
// documents and SAT taxpayer lists.
package dateutils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// LayoutCFDI is the Fecha attribute layout (local Mexican time, no zone).
	LayoutCFDI     = "2006-01-02T15:04:05"
	DateLayoutISO  = "2006-01-02"
	DateLayoutMX   = "02/01/2006"
	DateLayoutFull = "2006-01-02 15:04:05"
	// Placeholder used for missing date or time parts.
	NotAvailable = "NO DISPONIBLE"
)

// listFormats are the publication date layouts seen in SAT 69-B and EFOS exports.
var listFormats = []string{
	DateLayoutISO,
	DateLayoutMX,
	"02-01-2006",
	"02.01.2006",
	DateLayoutFull,
	LayoutCFDI,
	"2006/01/02",
}

var spaces = regexp.MustCompile(`\s+`)

// SplitTimestamp splits a Fecha value into its date and time-of-day parts.
// The time part keeps at most eight characters (HH:MM:SS). Missing parts
// are reported as NotAvailable.
func SplitTimestamp(raw string) (date, clock string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NotAvailable, NotAvailable
	}
	parts := strings.SplitN(raw, "T", 2)
	date = parts[0]
	if date == "" {
		date = NotAvailable
	}
	clock = NotAvailable
	if len(parts) == 2 && parts[1] != "" {
		clock = parts[1]
		if len(clock) > 8 {
			clock = clock[:8]
		}
	}
	return date, clock
}

// FiscalYear returns the year encoded in the first four characters of a
// Fecha value, or 0 when it cannot be read.
func FiscalYear(raw string) int {
	raw = strings.TrimSpace(raw)
	if len(raw) < 4 {
		return 0
	}
	y, err := strconv.Atoi(raw[:4])
	if err != nil {
		return 0
	}
	return y
}

// ParseCFDITimestamp parses a Fecha attribute. Fractional seconds and a
// trailing zone are tolerated; values without a zone are read as UTC.
func ParseCFDITimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{LayoutCFDI, time.RFC3339, "2006-01-02T15:04:05.999999999", DateLayoutISO} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse CFDI timestamp: %s", raw)
}

// ParseDate parses a date from a SAT list export using the known layouts.
// Returns the parsed time and the matching layout.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	for _, format := range listFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, format, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ToISODate formats t as YYYY-MM-DD, or "" for the zero time.
func ToISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayoutISO)
}

// CleanDateString trims and collapses whitespace.
func CleanDateString(dateStr string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}
