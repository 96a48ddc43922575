package repository

import (
	"sync"

	"anpr-dashboard/internal/domain/plates"
)

// PlateRepository holds the collection of one list view, newest first.
// The slice is swapped as a whole and never modified in place, so pages
// handed out stay valid after a later Replace.
type PlateRepository struct {
	mu      sync.RWMutex
	records []plates.Record
}

func NewPlateRepository() *PlateRepository {
	return &PlateRepository{}
}

// Replace installs a new collection. records must already be sorted by
// CapturedAt descending; the repository takes ownership of the slice.
func (r *PlateRepository) Replace(records []plates.Record) {
	r.mu.Lock()
	r.records = records
	r.mu.Unlock()
}

func (r *PlateRepository) Clear() {
	r.Replace(nil)
}

// All returns the whole collection. Callers must not modify it.
func (r *PlateRepository) All() []plates.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records
}

// Window derives the visible slice for view in one read of the collection.
func (r *PlateRepository) Window(view plates.ViewState) plates.Window {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := countMatching(r.records, view.Filter)
	view = view.Clamp(filtered)
	page, _ := findPlates(r.records, view.Filter, view.PageSize, view.Offset())
	return plates.NewWindow(page, view, len(r.records), countMatching(r.records, plates.FilterOffenders), filtered)
}

// findPlates returns up to limit records matching filter, skipping the
// first offset matches, together with the total number of matches.
// limit <= 0 means no limit.
func findPlates(records []plates.Record, filter plates.Filter, limit, offset int) ([]plates.Record, int) {
	if offset < 0 {
		offset = 0
	}

	if filter != plates.FilterOffenders {
		total := len(records)
		if offset >= total {
			return []plates.Record{}, total
		}
		end := total
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		// full slice expression keeps callers from appending into the collection
		return records[offset:end:end], total
	}

	page := make([]plates.Record, 0)
	total := 0
	for _, rec := range records {
		if !filter.Match(rec) {
			continue
		}
		if total >= offset && (limit <= 0 || len(page) < limit) {
			page = append(page, rec)
		}
		total++
	}
	return page, total
}

func countMatching(records []plates.Record, filter plates.Filter) int {
	if filter != plates.FilterOffenders {
		return len(records)
	}
	n := 0
	for _, rec := range records {
		if rec.IsOffender {
			n++
		}
	}
	return n
}
