package plates

import (
	"time"
)

// Record is one normalized recognition result. It is never modified after
// the normalizer builds it.
type Record struct {
	ID                string    `json:"id"`
	PlateText         string    `json:"plate"`
	RawPlate          string    `json:"raw_plate"`
	NormalizedPlate   string    `json:"normalized_plate"`
	IsOffender        bool      `json:"is_offender"`
	CapturedAt        time.Time `json:"captured_at"`
	Confidence        *float64  `json:"confidence,omitempty"`
	ConfidenceDisplay string    `json:"confidence_display"`
}

// Status is the per-row label shown in the status column.
func (r Record) Status() string {
	if r.IsOffender {
		return "Offender"
	}
	return "Normal"
}

type Camera struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Stats is the aggregate panel shown next to the camera feed.
type Stats struct {
	TotalRecords   int       `json:"total_records"`
	OffendersToday int       `json:"offenders_today"`
	CamerasActive  int       `json:"cameras_active"`
	CamerasTotal   int       `json:"cameras_total"`
	LastAlert      *Record   `json:"last_alert,omitempty"`
	ComputedAt     time.Time `json:"computed_at"`
}
