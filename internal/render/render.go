// Package render turns controller snapshots into page models and HTML.
// Nothing here holds state between requests.
package render

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"anpr-dashboard/internal/camera"
	"anpr-dashboard/internal/domain/plates"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	DashboardTemplate = "dashboard.html"
	MyDataTemplate    = "mydata.html"
)

// Timestamp layouts for the two pages; MyData shows the year as well.
const (
	dashboardTimeLayout = "Jan 2, 03:04:05 PM"
	myDataTimeLayout    = "Jan 2, 2006, 03:04:05 PM"
	clockLayout         = "1/2/2006, 3:04:05 PM"
)

type PanelKind string

const (
	PanelLoading PanelKind = "loading"
	PanelError   PanelKind = "error"
	PanelEmpty   PanelKind = "empty"
	PanelTable   PanelKind = "table"
)

// PanelFor picks what a list area shows for a snapshot. The spinner only
// replaces the table while nothing has been loaded yet.
func PanelFor(s plates.Snapshot) PanelKind {
	switch s.State {
	case plates.StateLoading:
		if !s.HasData {
			return PanelLoading
		}
		return PanelTable
	case plates.StateError:
		return PanelError
	case plates.StateEmpty:
		return PanelEmpty
	default:
		return PanelTable
	}
}

type Row struct {
	ID         string
	Plate      string
	Timestamp  string
	Confidence string
	Status     string
	Offender   bool
}

type ListModel struct {
	Panel         PanelKind
	Rows          []Row
	Error         string
	EmptyTitle    string
	EmptyMessage  string
	Refreshing    bool
	LastUpdated   string
	RefreshAction string
}

type CameraModel struct {
	ID      int
	Name    string
	Label   string
	Clock   string
	PrevURL string
	NextURL string
}

type StatsModel struct {
	TotalRecords   string
	OffendersToday string
	Cameras        string
	HasAlert       bool
	AlertPlate     string
	AlertAgo       string
}

type DashboardPage struct {
	Title         string
	List          ListModel
	Camera        CameraModel
	Stats         StatsModel
	ReloadSeconds int
	MyDataURL     string
}

type FilterOption struct {
	Value    plates.Filter
	Label    string
	Selected bool
}

type PageSizeOption struct {
	Value    int
	Selected bool
}

// MyDataPage never reloads itself; ReloadSeconds stays zero for the shared head.
type MyDataPage struct {
	Title         string
	List          ListModel
	View          plates.ViewState
	Filters       []FilterOption
	PageSizes     []PageSizeOption
	From          int
	To            int
	Filtered      int
	PrevURL       string
	NextURL       string
	ReloadSeconds int
}

// Renderer formats times in the UI timezone and owns the parsed templates.
type Renderer struct {
	loc  *time.Location
	now  func() time.Time
	tmpl *template.Template
}

func New(loc *time.Location) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{loc: loc, now: time.Now, tmpl: tmpl}, nil
}

// Templates exposes the parsed set for gin's HTML renderer.
func (r *Renderer) Templates() *template.Template {
	return r.tmpl
}

func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

func (r *Renderer) Dashboard(s plates.Snapshot, stats plates.Stats, cams *camera.Carousel, camIndex int, reload time.Duration) DashboardPage {
	list := r.list(s, dashboardTimeLayout, "/refresh")
	list.EmptyTitle = "No License Plates Detected"
	list.EmptyMessage = "The system has not recorded any license plates yet."

	page := DashboardPage{
		Title:         "ANPR Dashboard",
		List:          list,
		Stats:         r.stats(stats),
		ReloadSeconds: int(reload / time.Second),
		MyDataURL:     "/mydata",
	}

	idx := cams.Index(camIndex)
	if cam, ok := cams.At(idx); ok {
		page.Camera = CameraModel{
			ID:      cam.ID,
			Name:    cam.Name,
			Label:   "Camera Feed " + strconv.Itoa(idx+1),
			Clock:   r.now().In(r.loc).Format(clockLayout),
			PrevURL: "/camera/prev?cam=" + strconv.Itoa(idx),
			NextURL: "/camera/next?cam=" + strconv.Itoa(idx),
		}
	}
	return page
}

func (r *Renderer) MyData(s plates.Snapshot) MyDataPage {
	view := s.Window.View
	list := r.list(s, myDataTimeLayout, "/mydata/refresh?"+MyDataQuery(view).Encode())
	list.EmptyTitle = "No license plate data available"
	if view.Filter == plates.FilterOffenders {
		list.EmptyTitle = "No offender plates found"
	}

	page := MyDataPage{
		Title: "License Plate Database",
		List:  list,
		View:  view,
		Filters: []FilterOption{
			{Value: plates.FilterAll, Label: "All Plates (" + strconv.Itoa(s.Window.Total) + ")"},
			{Value: plates.FilterOffenders, Label: "Offenders Only (" + strconv.Itoa(s.Window.Offenders) + ")"},
		},
		From:     s.Window.From,
		To:       s.Window.To,
		Filtered: s.Window.Filtered,
	}
	for i := range page.Filters {
		page.Filters[i].Selected = page.Filters[i].Value == view.Filter
	}
	for _, n := range plates.PageSizeOptions {
		page.PageSizes = append(page.PageSizes, PageSizeOption{Value: n, Selected: n == view.PageSize})
	}
	if s.Window.HasPrev() {
		page.PrevURL = MyDataURL(view.WithPage(view.Page - 1))
	}
	if s.Window.HasNext() {
		page.NextURL = MyDataURL(view.WithPage(view.Page + 1))
	}
	return page
}

func (r *Renderer) list(s plates.Snapshot, layout, refreshAction string) ListModel {
	m := ListModel{
		Panel:         PanelFor(s),
		Error:         s.Error,
		Refreshing:    s.Refreshing,
		RefreshAction: refreshAction,
	}
	if !s.LastUpdated.IsZero() {
		m.LastUpdated = s.LastUpdated.In(r.loc).Format(dashboardTimeLayout)
	}
	if m.Panel != PanelTable {
		return m
	}

	m.Rows = make([]Row, 0, len(s.Window.Records))
	for _, rec := range s.Window.Records {
		m.Rows = append(m.Rows, Row{
			ID:         rec.ID,
			Plate:      rec.PlateText,
			Timestamp:  rec.CapturedAt.In(r.loc).Format(layout),
			Confidence: rec.ConfidenceDisplay,
			Status:     rec.Status(),
			Offender:   rec.IsOffender,
		})
	}
	return m
}

func (r *Renderer) stats(s plates.Stats) StatsModel {
	m := StatsModel{
		TotalRecords:   humanize.Comma(int64(s.TotalRecords)),
		OffendersToday: humanize.Comma(int64(s.OffendersToday)),
		Cameras:        strconv.Itoa(s.CamerasActive) + "/" + strconv.Itoa(s.CamerasTotal),
	}
	if s.LastAlert != nil {
		now := s.ComputedAt
		if now.IsZero() {
			now = r.now()
		}
		m.HasAlert = true
		m.AlertPlate = s.LastAlert.PlateText
		m.AlertAgo = humanize.RelTime(s.LastAlert.CapturedAt, now, "ago", "from now")
	}
	return m
}

// MyDataQuery encodes a view as MyData query parameters.
func MyDataQuery(v plates.ViewState) url.Values {
	q := url.Values{}
	q.Set("filter", string(v.Filter))
	q.Set("page", strconv.Itoa(v.Page))
	q.Set("rows", strconv.Itoa(v.PageSize))
	return q
}

func MyDataURL(v plates.ViewState) string {
	return "/mydata?" + MyDataQuery(v).Encode()
}
