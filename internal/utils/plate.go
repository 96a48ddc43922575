package utils

import (
	"regexp"
	"strings"
)

var letterDigitRun = regexp.MustCompile(`([A-Za-z]+)(\d+)`)

// NormalizePlate reduces a plate to the canonical comparable form: no
// spaces or dashes, upper case.
func NormalizePlate(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ToUpper(normalized)
	return normalized
}

// FormatPlate inserts a single space between the first letter run and the
// digit run that follows it. Plates without such a boundary are returned
// unchanged.
func FormatPlate(plate string) string {
	loc := letterDigitRun.FindStringSubmatchIndex(plate)
	if loc == nil {
		return plate
	}
	// loc[3] is the end of the letter group, where the digits start.
	split := loc[3]
	return plate[:split] + " " + plate[split:]
}
