package service

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"anpr-dashboard/internal/domain/plates"
	"anpr-dashboard/internal/feed"
	"anpr-dashboard/internal/utils"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
}

// Layouts without an offset are read in the configured UI timezone.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp accepts the timestamp shapes recognition exports produce.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeRow turns a raw CSV row into a Record. Rows without a timestamp
// or plate, or with an unreadable timestamp, are dropped (ok == false).
func NormalizeRow(row feed.RawRow, loc *time.Location) (plates.Record, bool) {
	ts := row.Get(feed.ColumnTimestamp)
	plate := row.Get(feed.ColumnPlate)
	if ts == "" || plate == "" {
		return plates.Record{}, false
	}

	capturedAt, ok := ParseTimestamp(ts, loc)
	if !ok {
		return plates.Record{}, false
	}

	display, confidence := utils.ConfidenceDisplay(row.Get(feed.ColumnConfidence))

	return plates.Record{
		ID:                ts + "-" + plate,
		PlateText:         utils.FormatPlate(plate),
		RawPlate:          plate,
		NormalizedPlate:   utils.NormalizePlate(plate),
		IsOffender:        strings.EqualFold(row.Get(feed.ColumnIsOffender), "yes"),
		CapturedAt:        capturedAt,
		Confidence:        confidence,
		ConfidenceDisplay: display,
	}, true
}

// BuildCollection normalizes rows, drops the unusable ones, makes IDs
// unique and sorts newest first. Records with equal timestamps keep their
// source order.
func BuildCollection(rows []feed.RawRow, loc *time.Location) []plates.Record {
	records := make([]plates.Record, 0, len(rows))
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		rec, ok := NormalizeRow(row, loc)
		if !ok {
			continue
		}
		seen[rec.ID]++
		if n := seen[rec.ID]; n > 1 {
			rec.ID += "#" + strconv.Itoa(n)
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b plates.Record) int {
		return b.CapturedAt.Compare(a.CapturedAt)
	})
	return records
}
