package utils

import (
	"math"
	"strconv"
	"strings"
)

// NotAvailable is shown when a row carries no usable confidence.
const NotAvailable = "N/A"

// ParseConfidence reads a confidence percentage such as "91.25" or "91.25%".
func ParseConfidence(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatConfidence renders one decimal place with halves rounded away from
// zero, so "91.25" becomes "91.3%".
func FormatConfidence(v float64) string {
	rounded := math.Round(v*10) / 10
	return strconv.FormatFloat(rounded, 'f', 1, 64) + "%"
}

// ConfidenceDisplay combines parsing and formatting, falling back to N/A.
func ConfidenceDisplay(raw string) (string, *float64) {
	v, ok := ParseConfidence(raw)
	if !ok {
		return NotAvailable, nil
	}
	return FormatConfidence(v), &v
}
