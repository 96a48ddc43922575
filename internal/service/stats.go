package service

import (
	"time"

	"anpr-dashboard/internal/domain/plates"
)

// ComputeStats summarises a newest-first collection for the statistics
// panel. Every configured camera counts as active; there is no camera
// health signal to say otherwise.
func ComputeStats(records []plates.Record, cameras []plates.Camera, now time.Time, loc *time.Location) plates.Stats {
	if loc == nil {
		loc = time.Local
	}
	stats := plates.Stats{
		TotalRecords:  len(records),
		CamerasActive: len(cameras),
		CamerasTotal:  len(cameras),
		ComputedAt:    now,
	}

	ty, tm, td := now.In(loc).Date()
	for i := range records {
		rec := records[i]
		if !rec.IsOffender {
			continue
		}
		if stats.LastAlert == nil {
			stats.LastAlert = &rec
		}
		y, m, d := rec.CapturedAt.In(loc).Date()
		if y == ty && m == tm && d == td {
			stats.OffendersToday++
		}
	}
	return stats
}
