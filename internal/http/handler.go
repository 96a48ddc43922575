package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"anpr-dashboard/internal/camera"
	"anpr-dashboard/internal/config"
	"anpr-dashboard/internal/domain/plates"
	"anpr-dashboard/internal/render"
	"anpr-dashboard/internal/service"
)

type Handler struct {
	views    *service.Views
	cameras  *camera.Carousel
	renderer *render.Renderer
	config   *config.Config
	log      zerolog.Logger
	now      func() time.Time
}

func NewHandler(
	views *service.Views,
	cameras *camera.Carousel,
	renderer *render.Renderer,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		views:    views,
		cameras:  cameras,
		renderer: renderer,
		config:   cfg,
		log:      log.With().Str("component", "http").Logger(),
		now:      time.Now,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.healthz)

	// HTML pages
	r.GET("/", h.dashboard)
	r.POST("/refresh", h.refreshDashboard)
	r.GET("/camera/next", h.nextCamera)
	r.GET("/camera/prev", h.prevCamera)

	mydata := r.Group("/mydata")
	{
		mydata.GET("", h.myData)
		mydata.GET("/filter", h.myDataFilter)
		mydata.GET("/rows", h.myDataRows)
		mydata.POST("/refresh", h.refreshMyData)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/views/:view", h.getView)
		api.POST("/views/:view/refresh", h.refreshView)
		api.GET("/stats", h.getStats)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"views":  h.views.Names(),
	})
}

func (h *Handler) dashboard(c *gin.Context) {
	ctrl, err := h.views.Get(service.ViewDashboard)
	if err != nil {
		h.handleError(c, err)
		return
	}

	snap, records := ctrl.SnapshotWithRecords(plates.NewViewState(h.config.Dashboard.RecentLimit))
	stats := service.ComputeStats(records, h.cameras.Cameras(), h.now(), ctrl.Location())
	page := h.renderer.Dashboard(snap, stats, h.cameras, queryInt(c, "cam"), h.config.Dashboard.RefreshInterval)
	c.HTML(http.StatusOK, render.DashboardTemplate, page)
}

func (h *Handler) refreshDashboard(c *gin.Context) {
	if err := h.refresh(c, service.ViewDashboard); errors.Is(err, service.ErrUnknownView) {
		h.handleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) nextCamera(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/?cam="+strconv.Itoa(h.cameras.Next(queryInt(c, "cam"))))
}

func (h *Handler) prevCamera(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/?cam="+strconv.Itoa(h.cameras.Prev(queryInt(c, "cam"))))
}

func (h *Handler) myData(c *gin.Context) {
	ctrl, err := h.views.Get(service.ViewMyData)
	if err != nil {
		h.handleError(c, err)
		return
	}

	snap := ctrl.Snapshot(h.myDataView(c))
	c.HTML(http.StatusOK, render.MyDataTemplate, h.renderer.MyData(snap))
}

func (h *Handler) myDataFilter(c *gin.Context) {
	view := h.myDataView(c).WithFilter(plates.ParseFilter(c.Query("filter")))
	c.Redirect(http.StatusSeeOther, render.MyDataURL(view))
}

func (h *Handler) myDataRows(c *gin.Context) {
	view := h.myDataView(c)
	view = view.WithPageSize(view.PageSize)
	c.Redirect(http.StatusSeeOther, render.MyDataURL(view))
}

func (h *Handler) refreshMyData(c *gin.Context) {
	if err := h.refresh(c, service.ViewMyData); errors.Is(err, service.ErrUnknownView) {
		h.handleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, render.MyDataURL(h.myDataView(c)))
}

// myDataView reads the page state from the query. Bad values fall back to
// defaults; the HTML pages never answer 400.
func (h *Handler) myDataView(c *gin.Context) plates.ViewState {
	view := plates.NewViewState(h.config.MyData.PageSize).
		WithFilter(plates.ParseFilter(c.Query("filter")))
	if rows, err := parseInt(c.Query("rows")); err == nil && plates.IsPageSizeOption(rows) {
		view = view.WithPageSize(rows)
	}
	if page, err := parseInt(c.Query("page")); err == nil {
		view = view.WithPage(page)
	}
	return view
}

func (h *Handler) getView(c *gin.Context) {
	ctrl, err := h.views.Get(c.Param("view"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	view, err := parseViewQuery(c, h.defaultPageSize(ctrl.Name()))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ctrl.Snapshot(view)))
}

func (h *Handler) refreshView(c *gin.Context) {
	ctrl, err := h.views.Get(c.Param("view"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	view, err := parseViewQuery(c, h.defaultPageSize(ctrl.Name()))
	if err != nil {
		h.handleError(c, err)
		return
	}

	err = h.refresh(c, ctrl.Name())
	switch {
	case errors.Is(err, service.ErrSuperseded):
		c.JSON(http.StatusConflict, errorResponse("refresh superseded by a newer one"))
	case err != nil:
		c.JSON(http.StatusBadGateway, errorResponse(ctrl.Snapshot(view).Error))
	default:
		c.JSON(http.StatusOK, successResponse(ctrl.Snapshot(view)))
	}
}

func (h *Handler) getStats(c *gin.Context) {
	ctrl, err := h.views.Get(service.ViewDashboard)
	if err != nil {
		h.handleError(c, err)
		return
	}

	stats := service.ComputeStats(ctrl.Records(), h.cameras.Cameras(), h.now(), ctrl.Location())
	c.JSON(http.StatusOK, successResponse(stats))
}

// refresh runs a manual refresh cycle. A client that goes away does not
// abort the fetch; the result is still stored for the next page view.
func (h *Handler) refresh(c *gin.Context, name string) error {
	ctrl, err := h.views.Get(name)
	if err != nil {
		return err
	}
	ctx := context.WithoutCancel(c.Request.Context())
	if err := ctrl.Refresh(ctx); err != nil {
		h.log.Debug().Err(err).Str("view", name).Msg("manual refresh did not complete")
		return err
	}
	return nil
}

func (h *Handler) defaultPageSize(view string) int {
	if view == service.ViewDashboard {
		return h.config.Dashboard.RecentLimit
	}
	return h.config.MyData.PageSize
}

// parseViewQuery is the strict variant used by the JSON API.
func parseViewQuery(c *gin.Context, pageSize int) (plates.ViewState, error) {
	view := plates.NewViewState(pageSize)

	if f := strings.TrimSpace(c.Query("filter")); f != "" {
		switch filter := plates.Filter(strings.ToLower(f)); filter {
		case plates.FilterAll, plates.FilterOffenders:
			view = view.WithFilter(filter)
		default:
			return view, fmt.Errorf("%w: unknown filter %q", service.ErrInvalidInput, f)
		}
	}

	if r := c.Query("rows"); r != "" {
		rows, err := parseInt(r)
		if err != nil || !plates.IsPageSizeOption(rows) {
			return view, fmt.Errorf("%w: rows must be one of %v", service.ErrInvalidInput, plates.PageSizeOptions)
		}
		view = view.WithPageSize(rows)
	}

	if p := c.Query("page"); p != "" {
		page, err := parseInt(p)
		if err != nil || page < 0 {
			return view, fmt.Errorf("%w: page must be a non-negative integer", service.ErrInvalidInput)
		}
		view = view.WithPage(page)
	}
	return view, nil
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrUnknownView):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func queryInt(c *gin.Context, key string) int {
	n, _ := parseInt(c.Query(key))
	return n
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
