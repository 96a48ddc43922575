package plates

import "strings"

// Filter selects which records of the collection are visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterOffenders Filter = "offenders"
)

// ParseFilter maps a query value to a Filter. Unknown values mean all.
func ParseFilter(s string) Filter {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterOffenders)) {
		return FilterOffenders
	}
	return FilterAll
}

func (f Filter) Match(r Record) bool {
	if f == FilterOffenders {
		return r.IsOffender
	}
	return true
}

const DefaultPageSize = 10

// PageSizeOptions are the rows-per-page choices offered on the MyData page.
var PageSizeOptions = []int{10, 25, 50, 100}

func IsPageSizeOption(n int) bool {
	for _, opt := range PageSizeOptions {
		if opt == n {
			return true
		}
	}
	return false
}

// ViewState is the filter and pagination window a page renders. It is a
// value; transitions return a new state.
type ViewState struct {
	Filter   Filter `json:"filter"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func NewViewState(pageSize int) ViewState {
	return ViewState{Filter: FilterAll, PageSize: pageSize}.Normalize()
}

// WithFilter switches the filter and goes back to the first page.
func (v ViewState) WithFilter(f Filter) ViewState {
	v.Filter = f
	v.Page = 0
	return v.Normalize()
}

// WithPageSize changes rows per page and goes back to the first page.
func (v ViewState) WithPageSize(n int) ViewState {
	v.PageSize = n
	v.Page = 0
	return v.Normalize()
}

func (v ViewState) WithPage(p int) ViewState {
	v.Page = p
	return v.Normalize()
}

// Normalize replaces out-of-range values with their defaults.
func (v ViewState) Normalize() ViewState {
	if v.Filter != FilterOffenders {
		v.Filter = FilterAll
	}
	if v.PageSize <= 0 {
		v.PageSize = DefaultPageSize
	}
	if v.Page < 0 {
		v.Page = 0
	}
	return v
}

func (v ViewState) Offset() int {
	return v.Page * v.PageSize
}

// PageCount is the number of pages needed for n filtered records.
func (v ViewState) PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	pages := n / v.PageSize
	if n%v.PageSize != 0 {
		pages++
	}
	return pages
}

// Clamp moves the page back onto the last page when it points past n records.
func (v ViewState) Clamp(n int) ViewState {
	v = v.Normalize()
	if pages := v.PageCount(n); pages == 0 {
		v.Page = 0
	} else if v.Page >= pages {
		v.Page = pages - 1
	}
	return v
}

// Window is the visible slice of the collection plus the counts needed to
// render pagination and the filter selector.
type Window struct {
	Records   []Record  `json:"records"`
	View      ViewState `json:"view"`
	Total     int       `json:"total"`
	Offenders int       `json:"offenders"`
	Filtered  int       `json:"filtered"`
	PageCount int       `json:"page_count"`
	From      int       `json:"from"`
	To        int       `json:"to"`
}

// NewWindow assembles a window from a page of records already cut at
// view.Offset().
func NewWindow(page []Record, view ViewState, total, offenders, filtered int) Window {
	w := Window{
		Records:   page,
		View:      view,
		Total:     total,
		Offenders: offenders,
		Filtered:  filtered,
		PageCount: view.PageCount(filtered),
	}
	if len(page) > 0 {
		w.From = view.Offset() + 1
		w.To = view.Offset() + len(page)
	}
	return w
}

func (w Window) HasPrev() bool {
	return w.View.Page > 0
}

func (w Window) HasNext() bool {
	return w.View.Page+1 < w.PageCount
}
